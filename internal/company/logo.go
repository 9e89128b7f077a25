// Package company は企業プロフィール周辺のドメインロジックを提供する。
package company

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// maxLogoSize はロゴ画像の最大サイズ（2MB）。
const maxLogoSize = 2 * 1024 * 1024

// logoTimeout はロゴ取得のタイムアウト。
const logoTimeout = 5 * time.Second

// maxHTMLSize はロゴ検出のために読み込むHTMLの最大サイズ。
const maxHTMLSize = 512 * 1024

// SSRFValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceを抽象化してテスタビリティを向上させる。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// LogoFetcherService は企業ロゴ取得のインターフェース。
type LogoFetcherService interface {
	// FetchLogo は指定URLからロゴ画像を取得する。
	// 取得失敗時はnilデータと空MIMEを返す（エラーは返さない）。
	// ロゴはプロフィール表示の装飾であり、取得失敗が登録を妨げてはならない。
	FetchLogo(ctx context.Context, logoURL string) (data []byte, mimeType string, err error)

	// FetchLogoForSite は企業サイトURLからロゴを検出して取得する。
	// HTMLの<link rel="icon">とog:imageを探し、
	// 見つからなければ /favicon.ico を試行する。
	FetchLogoForSite(ctx context.Context, siteURL string) (data []byte, mimeType string, err error)
}

// LogoFetcher はロゴ取得機能の実装。
type LogoFetcher struct {
	ssrfGuard SSRFValidator
}

// NewLogoFetcher はLogoFetcherの新しいインスタンスを生成する。
func NewLogoFetcher(ssrfGuard SSRFValidator) *LogoFetcher {
	return &LogoFetcher{
		ssrfGuard: ssrfGuard,
	}
}

// FetchLogo は指定URLからロゴ画像を取得する。
// 取得失敗時はnilデータと空MIMEを返す。
func (f *LogoFetcher) FetchLogo(ctx context.Context, logoURL string) ([]byte, string, error) {
	if logoURL == "" {
		return nil, "", nil
	}

	// SSRF検証
	if f.ssrfGuard != nil {
		if err := f.ssrfGuard.ValidateURL(logoURL); err != nil {
			slog.Warn("ロゴ取得: SSRFブロック", "url", logoURL, "error", err)
			return nil, "", nil
		}
	}

	client := f.getHTTPClient()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, logoURL, nil)
	if err != nil {
		slog.Warn("ロゴ取得: リクエスト作成失敗", "url", logoURL, "error", err)
		return nil, "", nil
	}
	req.Header.Set("User-Agent", "AssetVerse/1.0")

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("ロゴ取得: HTTPリクエスト失敗", "url", logoURL, "error", err)
		return nil, "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("ロゴ取得: HTTPステータス異常", "url", logoURL, "status", resp.StatusCode)
		return nil, "", nil
	}

	// レスポンスボディを読み込み（最大2MB）
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLogoSize+1))
	if err != nil {
		slog.Warn("ロゴ取得: レスポンス読み取り失敗", "url", logoURL, "error", err)
		return nil, "", nil
	}
	if int64(len(body)) > maxLogoSize {
		slog.Warn("ロゴ取得: サイズ超過", "url", logoURL, "size", len(body))
		return nil, "", nil
	}

	mimeType := extractMimeType(resp.Header.Get("Content-Type"))
	if !isImageMime(mimeType) {
		slog.Warn("ロゴ取得: 画像以外のContent-Type", "url", logoURL, "contentType", mimeType)
		return nil, "", nil
	}

	return body, mimeType, nil
}

// FetchLogoForSite は企業サイトURLからロゴを検出して取得する。
// サイトのHTMLから<link rel="icon">系とog:imageを探し、
// 候補が全滅なら /favicon.ico を試行する。
func (f *LogoFetcher) FetchLogoForSite(ctx context.Context, siteURL string) ([]byte, string, error) {
	if siteURL == "" {
		return nil, "", nil
	}

	for _, candidate := range f.discoverLogoURLs(ctx, siteURL) {
		data, mimeType, _ := f.FetchLogo(ctx, candidate)
		if data != nil {
			return data, mimeType, nil
		}
	}

	return f.FetchLogo(ctx, guessDefaultFaviconURL(siteURL))
}

// discoverLogoURLs はサイトのHTMLヘッダからロゴ候補URLを抽出する。
func (f *LogoFetcher) discoverLogoURLs(ctx context.Context, siteURL string) []string {
	if f.ssrfGuard != nil {
		if err := f.ssrfGuard.ValidateURL(siteURL); err != nil {
			slog.Warn("ロゴ検出: SSRFブロック", "url", siteURL, "error", err)
			return nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, siteURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", "AssetVerse/1.0")

	resp, err := f.getHTTPClient().Do(req)
	if err != nil {
		slog.Warn("ロゴ検出: HTTPリクエスト失敗", "url", siteURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHTMLSize))
	if err != nil {
		return nil
	}

	baseU, err := url.Parse(siteURL)
	if err != nil {
		return nil
	}

	return parseLogoCandidates(baseU, body)
}

// parseLogoCandidates はHTMLの<head>から<link rel="icon">系と
// og:imageのURLを抽出する。og:imageを先頭に置く。
// ロゴとしてはアイコンより大きい画像のほうが適しているため。
func parseLogoCandidates(baseU *url.URL, body []byte) []string {
	var icons []string
	var ogImages []string

	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	inHead := false

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return append(ogImages, icons...)

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tagName := string(tn)

			if tagName == "head" {
				inHead = true
				continue
			}
			if tagName == "body" {
				// bodyに入ったらheadの解析を終了
				return append(ogImages, icons...)
			}
			if !inHead || !hasAttr {
				continue
			}

			attrs := map[string]string{}
			for {
				key, val, more := tokenizer.TagAttr()
				attrs[strings.ToLower(string(key))] = string(val)
				if !more {
					break
				}
			}

			switch tagName {
			case "link":
				rel := strings.ToLower(attrs["rel"])
				href := attrs["href"]
				if href == "" {
					continue
				}
				if rel == "icon" || rel == "shortcut icon" || rel == "apple-touch-icon" {
					if resolved := resolveURL(baseU, href); resolved != "" {
						icons = append(icons, resolved)
					}
				}
			case "meta":
				if strings.ToLower(attrs["property"]) == "og:image" && attrs["content"] != "" {
					if resolved := resolveURL(baseU, attrs["content"]); resolved != "" {
						ogImages = append(ogImages, resolved)
					}
				}
			}

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "head" {
				return append(ogImages, icons...)
			}
		}
	}
}

// getHTTPClient はHTTPクライアントを取得する。
func (f *LogoFetcher) getHTTPClient() *http.Client {
	if f.ssrfGuard != nil {
		return f.ssrfGuard.NewSafeClient(logoTimeout, maxLogoSize)
	}
	return &http.Client{Timeout: logoTimeout}
}

// guessDefaultFaviconURL はサイトURLからデフォルトのfavicon URLを推測する。
func guessDefaultFaviconURL(siteURL string) string {
	u, err := url.Parse(siteURL)
	if err != nil {
		return ""
	}
	u.Path = "/favicon.ico"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// resolveURL は相対URLをベースURLを基準に絶対URLに解決する。
func resolveURL(base *url.URL, rawRef string) string {
	ref, err := url.Parse(rawRef)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// extractMimeType はContent-Typeヘッダーからメディアタイプを抽出する。
func extractMimeType(contentType string) string {
	if contentType == "" {
		return ""
	}
	parts := strings.SplitN(contentType, ";", 2)
	return strings.TrimSpace(strings.ToLower(parts[0]))
}

// isImageMime はMIMEタイプが画像かどうかを判定する。
func isImageMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// compile-time interface check
var _ LogoFetcherService = (*LogoFetcher)(nil)
