// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, asset, billing, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbiddenRole       = "FORBIDDEN_ROLE"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeDuplicateEmail      = "DUPLICATE_EMAIL"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeNoEmailFromProvider = "NO_EMAIL_FROM_PROVIDER"
	ErrCodeInvalidOnboarding   = "INVALID_ONBOARDING_TOKEN"
	ErrCodeInvalidRole         = "INVALID_ROLE"
	ErrCodeAssetNotFound       = "ASSET_NOT_FOUND"
	ErrCodeInsufficientStock   = "INSUFFICIENT_STOCK"
	ErrCodeRequestNotFound     = "REQUEST_NOT_FOUND"
	ErrCodeInvalidTransition   = "INVALID_STATUS_TRANSITION"
	ErrCodePackageNotFound     = "PACKAGE_NOT_FOUND"
	ErrCodePackageLimit        = "PACKAGE_LIMIT_EXCEEDED"
	ErrCodePaymentNotFound     = "PAYMENT_NOT_FOUND"
	ErrCodeValidation          = "VALIDATION_FAILED"
)

// NewUnauthorizedError は未認証エラーを生成する。
// attemptedPathには拒否されたリクエストのパスを添付し、
// ログイン後の復帰先としてクライアントが利用できるようにする。
func NewUnauthorizedError(attemptedPath string) *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  fmt.Sprintf("認証が必要です: %s", attemptedPath),
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenRoleError はロール不一致エラーを生成する。
// 認証済みだがロールが一致しない場合に使用し、未認証（401）とは区別する。
func NewForbiddenRoleError(attemptedPath string) *APIError {
	return &APIError{
		Code:     ErrCodeForbiddenRole,
		Message:  fmt.Sprintf("このページを表示する権限がありません: %s", attemptedPath),
		Category: "auth",
		Action:   "ホームに戻ってください。",
	}
}

// NewUserNotFoundError はプロフィール未登録エラーを生成する。
// Googleログイン時のオンボーディング分岐の判定にも使用される。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "このメールアドレスのプロフィールが見つかりません。",
		Category: "auth",
		Action:   "登録を完了するか、別のアカウントでログインしてください。",
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  fmt.Sprintf("このメールアドレスは既に登録されています: %s", email),
		Category: "validation",
		Action:   "ログインするか、別のメールアドレスを使用してください。",
	}
}

// NewInvalidCredentialsError は認証情報不正エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewNoEmailFromProviderError は外部プロバイダーがメールアドレスを返さなかった場合のエラーを生成する。
func NewNoEmailFromProviderError() *APIError {
	return &APIError{
		Code:     ErrCodeNoEmailFromProvider,
		Message:  "外部アカウントからメールアドレスを取得できませんでした。",
		Category: "auth",
		Action:   "メールアドレスを公開しているアカウントでログインしてください。",
	}
}

// NewInvalidOnboardingError は無効なオンボーディングトークンエラーを生成する。
func NewInvalidOnboardingError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidOnboarding,
		Message:  "登録セッションが無効または期限切れです。",
		Category: "auth",
		Action:   "Googleログインからやり直してください。",
	}
}

// NewInvalidRoleError は無効なロール指定エラーを生成する。
func NewInvalidRoleError(role string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRole,
		Message:  fmt.Sprintf("無効なロールです: %s", role),
		Category: "validation",
		Action:   "employee または hr を指定してください。",
	}
}

// NewAssetNotFoundError は資産未検出エラーを生成する。
func NewAssetNotFoundError(assetID string) *APIError {
	return &APIError{
		Code:     ErrCodeAssetNotFound,
		Message:  fmt.Sprintf("指定された資産が見つかりません: %s", assetID),
		Category: "asset",
		Action:   "資産IDを確認してください。",
	}
}

// NewInsufficientStockError は在庫不足エラーを生成する。
func NewInsufficientStockError(assetName string) *APIError {
	return &APIError{
		Code:     ErrCodeInsufficientStock,
		Message:  fmt.Sprintf("在庫が不足しています: %s", assetName),
		Category: "asset",
		Action:   "在庫を補充してから承認してください。",
	}
}

// NewRequestNotFoundError はリクエスト未検出エラーを生成する。
func NewRequestNotFoundError(requestID string) *APIError {
	return &APIError{
		Code:     ErrCodeRequestNotFound,
		Message:  fmt.Sprintf("指定されたリクエストが見つかりません: %s", requestID),
		Category: "asset",
		Action:   "リクエストIDを確認してください。",
	}
}

// NewInvalidTransitionError はリクエスト状態遷移エラーを生成する。
func NewInvalidTransitionError(from, to RequestStatus) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTransition,
		Message:  fmt.Sprintf("リクエスト状態を %s から %s に変更できません。", from, to),
		Category: "asset",
		Action:   "リクエストの現在の状態を確認してください。",
	}
}

// NewPackageNotFoundError はパッケージ未検出エラーを生成する。
func NewPackageNotFoundError(packageID string) *APIError {
	return &APIError{
		Code:     ErrCodePackageNotFound,
		Message:  fmt.Sprintf("指定されたパッケージが見つかりません: %s", packageID),
		Category: "billing",
		Action:   "パッケージ一覧から選択し直してください。",
	}
}

// NewPackageLimitError はパッケージ上限超過エラーを生成する。
// リクエスト承認時に所属従業員数が上限に達している場合に返す。
func NewPackageLimitError(limit int) *APIError {
	return &APIError{
		Code:     ErrCodePackageLimit,
		Message:  fmt.Sprintf("従業員数がパッケージ上限（%d人）に達しています。", limit),
		Category: "billing",
		Action:   "上位パッケージにアップグレードしてから承認してください。",
	}
}

// NewPaymentNotFoundError は決済記録未検出エラーを生成する。
func NewPaymentNotFoundError(paymentID string) *APIError {
	return &APIError{
		Code:     ErrCodePaymentNotFound,
		Message:  fmt.Sprintf("指定された決済が見つかりません: %s", paymentID),
		Category: "billing",
		Action:   "決済IDを確認してください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容が正しくありません: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}
