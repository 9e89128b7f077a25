// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/assetverse/assetverse/internal/model"
)

// UserRepository はユーザー（バックエンドプロフィール）の永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByIDForUpdate は指定IDのユーザー行をFOR UPDATEでロックして取得する。
	// 同一HRに対する同時承認の直列化用。トランザクション内でのみ呼ばれる。
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	// Googleログインのオンボーディング分岐はこの結果のnil判定で決まる。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。メールアドレス重複時はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// Update はプロフィールの更新可能フィールド（名前、会社情報等）を更新する。
	Update(ctx context.Context, user *model.User) error

	// UpdateMemberLimit はHRユーザーの従業員数上限を更新する。
	// パッケージ購入の確定時に呼ばれる。
	UpdateMemberLimit(ctx context.Context, userID string, limit int) error

	// UpdateCompanyLogo はHRユーザーの企業ロゴデータを更新する。
	UpdateCompanyLogo(ctx context.Context, userID string, data []byte, mime string) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentities、sessions等はCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)

	// Create はidentityを作成する。
	Create(ctx context.Context, identity *model.Identity) error
}

// SessionRepository はセッションデータの永続化インターフェース。
// セッション行の削除がサインアウト通知そのものであり、
// 削除後の参照は全てnil（匿名）に解決される。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// AssetRepository は資産データの永続化インターフェース。
type AssetRepository interface {
	// FindByID は指定IDの資産を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Asset, error)

	// Create は資産を作成する。
	Create(ctx context.Context, asset *model.Asset) error

	// Update は資産の名前・区分・在庫数を更新する。
	Update(ctx context.Context, asset *model.Asset) error

	// Delete は指定IDの資産を削除する。
	Delete(ctx context.Context, id string) error

	// ListByHR はHRユーザーの資産一覧を検索条件付きで返す。
	ListByHR(ctx context.Context, hrUserID string, q model.AssetListQuery) ([]*model.Asset, int, error)

	// ListAvailableForEmployee は従業員が所属する企業の在庫あり資産を返す。
	// 未所属の従業員には全HRの在庫あり資産を返す（初回リクエスト用）。
	ListAvailableForEmployee(ctx context.Context, employeeID string, q model.AssetListQuery) ([]*model.Asset, int, error)

	// DecrementQuantity は在庫を1減算する。在庫0の場合は減算せずfalseを返す。
	// リクエスト承認時の在庫チェックと減算を原子的に行う。
	DecrementQuantity(ctx context.Context, tx *sql.Tx, assetID string) (bool, error)

	// IncrementQuantity は在庫を1加算する。資産返却時に使用する。
	IncrementQuantity(ctx context.Context, tx *sql.Tx, assetID string) error
}

// AssignedAssetRepository は割り当て済み資産の永続化インターフェース。
type AssignedAssetRepository interface {
	// Create は割り当てを作成する。トランザクション内で呼ばれる場合はtxを使用する。
	Create(ctx context.Context, tx *sql.Tx, assigned *model.AssignedAsset) error

	// FindByID は指定IDの割り当てを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.AssignedAsset, error)

	// FindActiveByUserAndAsset は従業員の未返却の割り当てを資産IDで検索する。
	// 見つからない場合はnilを返す。返却フローで使用する。
	FindActiveByUserAndAsset(ctx context.Context, userID, assetID string) (*model.AssignedAsset, error)

	// ListByUser は従業員の割り当て一覧を資産情報付きで返す。
	ListByUser(ctx context.Context, userID string, q model.AssetListQuery) ([]*model.AssignedAsset, int, error)

	// MarkReturned は割り当てを返却済みにする。
	MarkReturned(ctx context.Context, tx *sql.Tx, id string) error
}

// RequestRepository は資産リクエストの永続化インターフェース。
type RequestRepository interface {
	// FindByID は指定IDのリクエストを資産・申請者情報付きで取得する。
	// 見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Request, error)

	// Create はリクエストを作成する。
	Create(ctx context.Context, req *model.Request) error

	// UpdateStatus は現在状態がfromの場合に限り状態と処理日時を更新する。
	// 遷移できた場合はtrueを、競合する遷移が先行していた場合はfalseを返す。
	// トランザクション内で呼ばれる場合はtxを使用する。
	UpdateStatus(ctx context.Context, tx *sql.Tx, id string, from, to model.RequestStatus) (bool, error)

	// ListByRequester は従業員の自分のリクエスト一覧を返す。
	ListByRequester(ctx context.Context, requesterID string, q model.RequestListQuery) ([]*model.Request, int, error)

	// ListByHR はHR宛のリクエスト一覧を返す。
	ListByHR(ctx context.Context, hrUserID string, q model.RequestListQuery) ([]*model.Request, int, error)

	// CountPendingByHR はHR宛の未処理リクエスト数を返す。分析用。
	CountPendingByHR(ctx context.Context, hrUserID string) (int, error)
}

// AffiliationRepository は従業員所属の永続化インターフェース。
type AffiliationRepository interface {
	// FindByEmployeeAndHR は従業員とHRの所属関係を検索する。見つからない場合はnilを返す。
	FindByEmployeeAndHR(ctx context.Context, employeeID, hrUserID string) (*model.Affiliation, error)

	// FindByEmployee は従業員の所属を企業情報付きで返す。未所属の場合はnilを返す。
	FindByEmployee(ctx context.Context, employeeID string) (*model.Affiliation, error)

	// Create は所属を作成する。トランザクション内で呼ばれる場合はtxを使用する。
	Create(ctx context.Context, tx *sql.Tx, aff *model.Affiliation) error

	// CountByHR はHRの所属従業員数を返す。パッケージ上限の判定に使用する。
	// 上限判定をロック下で行う場合はtxを指定する。
	CountByHR(ctx context.Context, tx *sql.Tx, hrUserID string) (int, error)

	// ListByHR はHRの所属従業員一覧を返す。
	ListByHR(ctx context.Context, hrUserID string, page, perPage int) ([]*model.Affiliation, int, error)

	// Delete は所属を削除し、パッケージ枠を解放する。
	Delete(ctx context.Context, id string) error
}

// PackageRepository はサブスクリプションパッケージの永続化インターフェース。
type PackageRepository interface {
	// List は全パッケージをmember_limit昇順で返す。
	List(ctx context.Context) ([]*model.Package, error)

	// FindByID は指定IDのパッケージを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Package, error)
}

// PaymentRepository は決済記録の永続化インターフェース。
type PaymentRepository interface {
	// Create は決済記録を作成する。
	Create(ctx context.Context, payment *model.Payment) error

	// FindByID は指定IDの決済を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Payment, error)

	// FindByIntentID はプロバイダーのintent IDで決済を検索する。見つからない場合はnilを返す。
	FindByIntentID(ctx context.Context, intentID string) (*model.Payment, error)

	// UpdateStatus は決済状態を更新する。
	UpdateStatus(ctx context.Context, id string, status model.PaymentStatus) error

	// ListByHR はHRユーザーの決済履歴を作成日時降順で返す。
	ListByHR(ctx context.Context, hrUserID string) ([]*model.Payment, error)
}

// AnalyticsRepository はHRダッシュボード集計の読み取りインターフェース。
type AnalyticsRepository interface {
	// CountAssetsByType はHRの資産を区分ごとに集計する。
	CountAssetsByType(ctx context.Context, hrUserID string) ([]model.AssetTypeCount, error)

	// TopRequestedAssets はリクエスト数上位の資産をlimit件返す。
	TopRequestedAssets(ctx context.Context, hrUserID string, limit int) ([]model.TopRequestedAsset, error)
}

// ContactRepository は問い合わせメッセージの永続化インターフェース。
type ContactRepository interface {
	// Create は問い合わせを保存する。
	Create(ctx context.Context, msg *model.ContactMessage) error
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
