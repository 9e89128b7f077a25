// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの役割を表す明示的な列挙型。
// プロフィール未解決の状態をゼロ値で表現しないよう、
// 判定には必ずIsValid()を使用する。
type Role string

const (
	// RoleEmployee は従業員ロール。
	RoleEmployee Role = "employee"
	// RoleHR はHRマネージャーロール。
	RoleHR Role = "hr"
)

// IsValid はロールが定義済みのいずれかであることを検証する。
func (r Role) IsValid() bool {
	return r == RoleEmployee || r == RoleHR
}

// User はバックエンドプロフィール（アプリケーション側のユーザーレコード）を表す。
// 外部IDプロバイダーのプリンシパルとは区別される。
// ロールは常にこのレコードから導出され、外部identityからは導出されない。
type User struct {
	ID           string
	Email        string
	Name         string
	Role         Role
	PasswordHash string // ローカル認証のみ。Google連携ユーザーは空。

	// 従業員固有フィールド
	DateOfBirth *time.Time

	// HR固有フィールド
	CompanyName     string
	CompanyLogoURL  string
	CompanyLogoData []byte
	CompanyLogoMime string
	MemberLimit     int // 現在のパッケージで追加できる従業員数の上限

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity は外部IDプロバイダーとの紐付け情報を表す。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
// セッション行の削除がサインアウト通知そのものであり、
// 行が消えた時点で以後のプロフィール参照は全て匿名に解決される。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
