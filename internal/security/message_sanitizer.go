// Package security はアプリケーションのセキュリティ機能を提供する。
//
// MessageSanitizerService はユーザー投稿テキストをサニタイズし、
// 保存データ経由のXSS攻撃からユーザーを保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 問い合わせ本文は全タグを除去したプレーンテキストとして扱う。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// MessageSanitizerService はユーザー投稿テキストのサニタイズ機能の
// インターフェースを定義する。問い合わせメッセージの保存前に使用される。
type MessageSanitizerService interface {
	// SanitizeText は入力から全てのHTMLタグを除去したプレーンテキストを返す。
	// scriptタグ、イベント属性を含むあらゆるマークアップが除去される。
	// 前後の空白もトリムする。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string
}

// messageSanitizer はMessageSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type messageSanitizer struct {
	policy *bluemonday.Policy
}

// NewMessageSanitizer はMessageSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは全ての要素と属性を除去し、テキストのみを残す。
// 問い合わせ本文はUIでマークアップとして描画しないため、
// タグを一部許可する必要がない。
func NewMessageSanitizer() *messageSanitizer {
	return &messageSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText は入力から全てのHTMLタグを除去したプレーンテキストを返す。
func (s *messageSanitizer) SanitizeText(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
