// Package model はドメインモデルを定義する。
package model

import "time"

// AssetType は資産の返却区分を表す。
type AssetType string

const (
	// AssetTypeReturnable は返却が必要な資産（PC、モニター等）。
	AssetTypeReturnable AssetType = "returnable"
	// AssetTypeNonReturnable は返却不要の資産（文房具等の消耗品）。
	AssetTypeNonReturnable AssetType = "non_returnable"
)

// IsValid は資産区分が定義済みのいずれかであることを検証する。
func (t AssetType) IsValid() bool {
	return t == AssetTypeReturnable || t == AssetTypeNonReturnable
}

// Asset はHRが管理する資産を表す。
// QuantityはHR在庫数であり、リクエスト承認時に減算される。
type Asset struct {
	ID        string
	HRUserID  string
	Name      string
	Type      AssetType
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Available は在庫が1以上あるかを返す。
func (a *Asset) Available() bool {
	return a.Quantity > 0
}

// AssetListQuery は資産一覧のページネーション・検索・絞り込み条件。
type AssetListQuery struct {
	Search        string    // 資産名の部分一致
	Type          AssetType // 空の場合は全区分
	AvailableOnly bool      // 在庫ありのみ
	SortByQty     string    // "asc" | "desc" | ""（作成日時降順）
	Page          int       // 1始まり
	PerPage       int
}

// AssignedAsset は従業員に割り当て済みの資産を表す。
// リクエスト承認時に作成され、返却可能資産の返却で解消される。
type AssignedAsset struct {
	ID         string
	AssetID    string
	AssetName  string
	AssetType  AssetType
	UserID     string
	HRUserID   string
	AssignedAt time.Time
	ReturnedAt *time.Time
}
