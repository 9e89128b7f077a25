package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// トークンのpurposeクレーム値。セッショントークンとオンボーディングトークンを
// 相互に流用できないよう必ず検証する。
const (
	purposeSession    = "session"
	purposeOnboarding = "onboarding"
)

// sessionClaims はセッションJWTのクレーム。
// セッションIDを包むだけで、認可判定はサーバー側のセッション行に依存する。
type sessionClaims struct {
	SessionID string `json:"sid"`
	Email     string `json:"email"`
	Purpose   string `json:"purpose"`
	jwt.RegisteredClaims
}

// onboardingClaims はGoogleオンボーディングトークンのクレーム。
// コールバックで取得したプロバイダー情報を完了エンドポイントまで運ぶ。
type onboardingClaims struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	Provider       string `json:"provider"`
	ProviderUserID string `json:"provider_user_id"`
	Purpose        string `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenManager はHMAC署名付きJWTの発行と検証を行う。
type TokenManager struct {
	secret []byte
}

// NewTokenManager はTokenManagerを生成する。
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

// IssueSessionToken はセッションIDとメールアドレスを包むJWTを発行する。
func (m *TokenManager) IssueSessionToken(sessionID, email string, ttl time.Duration) (string, error) {
	claims := sessionClaims{
		SessionID: sessionID,
		Email:     email,
		Purpose:   purposeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			Subject:   sessionID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("セッショントークンの署名に失敗しました: %w", err)
	}
	return signed, nil
}

// ParseSessionToken はセッションJWTを検証し、セッションIDとメールアドレスを返す。
func (m *TokenManager) ParseSessionToken(tokenString string) (sessionID, email string, err error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, m.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", "", fmt.Errorf("セッショントークンの検証に失敗しました: %w", err)
	}
	if !token.Valid || claims.Purpose != purposeSession || claims.SessionID == "" {
		return "", "", errors.New("invalid session token")
	}
	return claims.SessionID, claims.Email, nil
}

// IssueOnboardingToken はGoogleコールバックで取得したユーザー情報を包む
// 短命トークンを発行する。
func (m *TokenManager) IssueOnboardingToken(info *OAuthUserInfo, ttl time.Duration) (string, error) {
	claims := onboardingClaims{
		Email:          info.Email,
		Name:           info.Name,
		Provider:       info.Provider,
		ProviderUserID: info.ProviderUserID,
		Purpose:        purposeOnboarding,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			Subject:   info.Email,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("オンボーディングトークンの署名に失敗しました: %w", err)
	}
	return signed, nil
}

// ParseOnboardingToken はオンボーディングトークンを検証し、
// プロバイダー情報を復元する。
func (m *TokenManager) ParseOnboardingToken(tokenString string) (*OAuthUserInfo, error) {
	claims := &onboardingClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, m.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("オンボーディングトークンの検証に失敗しました: %w", err)
	}
	if !token.Valid || claims.Purpose != purposeOnboarding || claims.Email == "" {
		return nil, errors.New("invalid onboarding token")
	}
	return &OAuthUserInfo{
		Email:          claims.Email,
		Name:           claims.Name,
		Provider:       claims.Provider,
		ProviderUserID: claims.ProviderUserID,
	}, nil
}

func (m *TokenManager) keyFunc(_ *jwt.Token) (interface{}, error) {
	return m.secret, nil
}
