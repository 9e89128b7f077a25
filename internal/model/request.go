// Package model はドメインモデルを定義する。
package model

import "time"

// RequestStatus は資産リクエストの状態を表す。
type RequestStatus string

const (
	// RequestStatusPending は未処理のリクエスト。
	RequestStatusPending RequestStatus = "pending"
	// RequestStatusApproved は承認済みのリクエスト。
	RequestStatusApproved RequestStatus = "approved"
	// RequestStatusRejected は却下されたリクエスト。
	RequestStatusRejected RequestStatus = "rejected"
	// RequestStatusCancelled は従業員が取り消したリクエスト。
	RequestStatusCancelled RequestStatus = "cancelled"
	// RequestStatusReturned は承認後に資産が返却された状態。
	RequestStatusReturned RequestStatus = "returned"
)

// IsValid はリクエスト状態が定義済みのいずれかであることを検証する。
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected,
		RequestStatusCancelled, RequestStatusReturned:
		return true
	}
	return false
}

// Request は従業員からHRへの資産リクエストを表す。
// pending → approved/rejected/cancelled、approved → returned の遷移のみ許可する。
type Request struct {
	ID            string
	AssetID       string
	AssetName     string
	AssetType     AssetType
	RequesterID   string
	RequesterName string
	HRUserID      string
	Note          string
	Status        RequestStatus
	RequestedAt   time.Time
	ProcessedAt   *time.Time
}

// RequestListQuery はリクエスト一覧の検索・絞り込み条件。
type RequestListQuery struct {
	Search  string        // 資産名または申請者名の部分一致
	Status  RequestStatus // 空の場合は全状態
	Page    int
	PerPage int
}

// Affiliation は従業員とHR管理企業の所属関係を表す。
// 最初のリクエスト承認時に暗黙的に作成される。
type Affiliation struct {
	ID          string
	EmployeeID  string
	HRUserID    string
	CompanyName string
	CreatedAt   time.Time
}
