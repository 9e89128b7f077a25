// Package model はドメインモデルを定義する。
package model

import "time"

// Package はHR向けのサブスクリプションパッケージを表す。
// MemberLimitは所属させられる従業員数の上限。
type Package struct {
	ID          string
	Name        string
	MemberLimit int
	PriceCents  int64 // 最小通貨単位（USDセント）
	CreatedAt   time.Time
}

// PaymentStatus は決済の状態を表す。
type PaymentStatus string

const (
	// PaymentStatusPending は決済開始済み・未確定の状態。
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusSucceeded は決済完了状態。
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	// PaymentStatusFailed は決済失敗状態。
	PaymentStatusFailed PaymentStatus = "failed"
)

// Payment はパッケージ購入の決済記録を表す。
// ProviderIntentIDはStripe PaymentIntentのID。
type Payment struct {
	ID               string
	HRUserID         string
	PackageID        string
	AmountCents      int64
	Currency         string
	ProviderIntentID string
	Status           PaymentStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ContactMessage は問い合わせフォームの投稿を表す。
// Messageは保存前にサニタイズ済みであること。
type ContactMessage struct {
	ID        string
	Email     string
	Message   string
	CreatedAt time.Time
}
