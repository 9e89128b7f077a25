// Package billing はサブスクリプションパッケージの購入フローを提供する。
package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/assetverse/assetverse/internal/model"
	"github.com/assetverse/assetverse/internal/repository"
)

// defaultCurrency は決済のデフォルト通貨。
const defaultCurrency = "usd"

// intentStatusSucceeded はプロバイダー側の決済完了状態。
const intentStatusSucceeded = "succeeded"

// PaymentProvider は決済プロバイダーの抽象。
// テスタビリティのためStripe APIを抽象化する。
type PaymentProvider interface {
	// CreateIntent は決済インテントを作成し、intent IDとclient secretを返す。
	CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (intentID, clientSecret string, err error)

	// GetIntentStatus は決済インテントの現在の状態を返す。
	GetIntentStatus(ctx context.Context, intentID string) (string, error)
}

// CheckoutResult はチェックアウト開始の結果。
// ClientSecretはフロントエンドのStripe.js確定フローで使用される。
type CheckoutResult struct {
	Payment      *model.Payment
	ClientSecret string
}

// MetricsRecorder は決済結果のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordPaymentResult(status string)
}

// Service はパッケージ購入のサービス層。
// チェックアウト開始 → プロバイダー側確定 → 確認・上限適用の3段階フロー。
type Service struct {
	packageRepo repository.PackageRepository
	paymentRepo repository.PaymentRepository
	userRepo    repository.UserRepository
	provider    PaymentProvider
	metrics     MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilを許容する。
func NewService(
	packageRepo repository.PackageRepository,
	paymentRepo repository.PaymentRepository,
	userRepo repository.UserRepository,
	provider PaymentProvider,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		packageRepo: packageRepo,
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		provider:    provider,
		metrics:     metrics,
	}
}

// recordPaymentResult はメトリクス未設定時に何もしない記録ヘルパー。
func (s *Service) recordPaymentResult(status model.PaymentStatus) {
	if s.metrics != nil {
		s.metrics.RecordPaymentResult(string(status))
	}
}

// ListPackages は全パッケージをmember_limit昇順で返す。
func (s *Service) ListPackages(ctx context.Context) ([]*model.Package, error) {
	packages, err := s.packageRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("パッケージ一覧の取得に失敗しました: %w", err)
	}
	return packages, nil
}

// StartCheckout はパッケージ購入のチェックアウトを開始する。
// PaymentIntentを作成し、pending状態の決済記録を保存する。
func (s *Service) StartCheckout(ctx context.Context, hrUserID, packageID string) (*CheckoutResult, error) {
	pkg, err := s.packageRepo.FindByID(ctx, packageID)
	if err != nil {
		return nil, fmt.Errorf("パッケージの取得に失敗しました: %w", err)
	}
	if pkg == nil {
		return nil, model.NewPackageNotFoundError(packageID)
	}

	intentID, clientSecret, err := s.provider.CreateIntent(ctx, pkg.PriceCents, defaultCurrency, map[string]string{
		"hr_user_id": hrUserID,
		"package_id": pkg.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("決済の開始に失敗しました: %w", err)
	}

	now := time.Now()
	payment := &model.Payment{
		ID:               uuid.New().String(),
		HRUserID:         hrUserID,
		PackageID:        pkg.ID,
		AmountCents:      pkg.PriceCents,
		Currency:         defaultCurrency,
		ProviderIntentID: intentID,
		Status:           model.PaymentStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("決済記録の作成に失敗しました: %w", err)
	}

	slog.Info("checkout started",
		slog.String("payment_id", payment.ID),
		slog.String("hr_user_id", hrUserID),
		slog.String("package_id", pkg.ID),
		slog.Int64("amount_cents", pkg.PriceCents),
	)

	return &CheckoutResult{Payment: payment, ClientSecret: clientSecret}, nil
}

// ConfirmPayment はプロバイダー側で確定した決済を確認し、
// 購入パッケージの従業員上限をHRプロフィールに適用する。
// 確認済みの決済に対しては冪等に動作する。
func (s *Service) ConfirmPayment(ctx context.Context, hrUserID, intentID string) (*model.Payment, error) {
	payment, err := s.paymentRepo.FindByIntentID(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("決済記録の取得に失敗しました: %w", err)
	}
	if payment == nil || payment.HRUserID != hrUserID {
		return nil, model.NewPaymentNotFoundError(intentID)
	}

	// 確認済み決済の再確認は現状を返すだけ
	if payment.Status == model.PaymentStatusSucceeded {
		return payment, nil
	}

	status, err := s.provider.GetIntentStatus(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("決済状態の確認に失敗しました: %w", err)
	}

	if status != intentStatusSucceeded {
		if err := s.paymentRepo.UpdateStatus(ctx, payment.ID, model.PaymentStatusFailed); err != nil {
			return nil, fmt.Errorf("決済状態の更新に失敗しました: %w", err)
		}
		slog.Warn("payment not succeeded",
			slog.String("payment_id", payment.ID),
			slog.String("provider_status", status),
		)
		s.recordPaymentResult(model.PaymentStatusFailed)
		return nil, model.NewValidationError("決済が完了していません")
	}

	pkg, err := s.packageRepo.FindByID(ctx, payment.PackageID)
	if err != nil {
		return nil, fmt.Errorf("パッケージの取得に失敗しました: %w", err)
	}
	if pkg == nil {
		return nil, model.NewPackageNotFoundError(payment.PackageID)
	}

	if err := s.paymentRepo.UpdateStatus(ctx, payment.ID, model.PaymentStatusSucceeded); err != nil {
		return nil, fmt.Errorf("決済状態の更新に失敗しました: %w", err)
	}

	if err := s.userRepo.UpdateMemberLimit(ctx, hrUserID, pkg.MemberLimit); err != nil {
		return nil, fmt.Errorf("従業員上限の適用に失敗しました: %w", err)
	}

	slog.Info("payment confirmed",
		slog.String("payment_id", payment.ID),
		slog.String("hr_user_id", hrUserID),
		slog.Int("member_limit", pkg.MemberLimit),
	)

	s.recordPaymentResult(model.PaymentStatusSucceeded)

	payment.Status = model.PaymentStatusSucceeded
	return payment, nil
}

// ListPayments はHRユーザーの決済履歴を作成日時降順で返す。
func (s *Service) ListPayments(ctx context.Context, hrUserID string) ([]*model.Payment, error) {
	payments, err := s.paymentRepo.ListByHR(ctx, hrUserID)
	if err != nil {
		return nil, fmt.Errorf("決済履歴の取得に失敗しました: %w", err)
	}
	return payments, nil
}
