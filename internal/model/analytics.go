// Package model はドメインモデルを定義する。
package model

// AssetTypeCount は資産区分ごとの集計。
type AssetTypeCount struct {
	Type          AssetType
	AssetCount    int
	TotalQuantity int
}

// TopRequestedAsset はリクエスト数上位の資産。
type TopRequestedAsset struct {
	AssetID      string
	AssetName    string
	RequestCount int
}

// DashboardSummary はHRダッシュボードの集計結果。
type DashboardSummary struct {
	TotalAssets         int
	AssetsByType        []AssetTypeCount
	PendingRequests     int
	AffiliatedEmployees int
	TopRequested        []TopRequestedAsset
}
