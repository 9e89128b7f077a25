package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/assetverse/assetverse/internal/billing"
	"github.com/assetverse/assetverse/internal/middleware"
	"github.com/assetverse/assetverse/internal/model"
)

// BillingServiceInterface は課金ハンドラーが必要とするサービスインターフェース。
type BillingServiceInterface interface {
	ListPackages(ctx context.Context) ([]*model.Package, error)
	StartCheckout(ctx context.Context, hrUserID, packageID string) (*billing.CheckoutResult, error)
	ConfirmPayment(ctx context.Context, hrUserID, intentID string) (*model.Payment, error)
	ListPayments(ctx context.Context, hrUserID string) ([]*model.Payment, error)
}

// BillingHandler はパッケージ購入・決済のHTTPハンドラー。
type BillingHandler struct {
	service BillingServiceInterface
}

// NewBillingHandler はBillingHandlerを生成する。
func NewBillingHandler(service BillingServiceInterface) *BillingHandler {
	return &BillingHandler{service: service}
}

// checkoutRequest は決済開始リクエストのボディ。
type checkoutRequest struct {
	PackageID string `json:"package_id"`
}

// confirmPaymentRequest は決済確定リクエストのボディ。
type confirmPaymentRequest struct {
	IntentID string `json:"intent_id"`
}

// packageResponse はパッケージ情報のAPIレスポンス。
type packageResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemberLimit int    `json:"member_limit"`
	PriceCents  int64  `json:"price_cents"`
}

// paymentResponse は決済記録のAPIレスポンス。
type paymentResponse struct {
	ID          string    `json:"id"`
	PackageID   string    `json:"package_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// checkoutResponse は決済開始レスポンス。ClientSecretはフロントエンドのStripe.jsに渡す。
type checkoutResponse struct {
	PaymentID    string `json:"payment_id"`
	ClientSecret string `json:"client_secret"`
}

func toPaymentResponse(p *model.Payment) paymentResponse {
	return paymentResponse{
		ID:          p.ID,
		PackageID:   p.PackageID,
		AmountCents: p.AmountCents,
		Currency:    p.Currency,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
	}
}

// ListPackages は購入可能なパッケージ一覧を返す。
// GET /api/hr/packages
func (h *BillingHandler) ListPackages(w http.ResponseWriter, r *http.Request) {
	packages, err := h.service.ListPackages(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]packageResponse, len(packages))
	for i, p := range packages {
		results[i] = packageResponse{
			ID:          p.ID,
			Name:        p.Name,
			MemberLimit: p.MemberLimit,
			PriceCents:  p.PriceCents,
		}
	}
	writeJSON(w, http.StatusOK, results)
}

// Checkout は決済を開始しPaymentIntentのclient_secretを返す。
// POST /api/hr/payments/checkout
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	result, err := h.service.StartCheckout(r.Context(), principal.UserID, req.PackageID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		PaymentID:    result.Payment.ID,
		ClientSecret: result.ClientSecret,
	})
}

// Confirm は決済結果を確認しパッケージを適用する。
// POST /api/hr/payments/confirm
func (h *BillingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
		return
	}

	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	payment, err := h.service.ConfirmPayment(r.Context(), principal.UserID, req.IntentID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPaymentResponse(payment))
}

// ListPayments はHRの決済履歴を返す。
// GET /api/hr/payments
func (h *BillingHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(r.URL.Path))
		return
	}

	payments, err := h.service.ListPayments(r.Context(), principal.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]paymentResponse, len(payments))
	for i, p := range payments {
		results[i] = toPaymentResponse(p)
	}
	writeJSON(w, http.StatusOK, results)
}
