package billing

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
)

// StripeProvider はStripe PaymentIntent APIのPaymentProvider実装。
type StripeProvider struct{}

// NewStripeProvider はStripe APIキーを設定しStripeProviderを生成する。
func NewStripeProvider(apiKey string) *StripeProvider {
	stripe.Key = apiKey
	return &StripeProvider{}
}

// CreateIntent はPaymentIntentを作成し、IDとclient secretを返す。
func (p *StripeProvider) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (string, string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: metadata,
	}
	params.Context = ctx

	intent, err := paymentintent.New(params)
	if err != nil {
		return "", "", fmt.Errorf("PaymentIntentの作成に失敗しました: %w", err)
	}

	return intent.ID, intent.ClientSecret, nil
}

// GetIntentStatus はPaymentIntentの現在の状態を返す。
func (p *StripeProvider) GetIntentStatus(ctx context.Context, intentID string) (string, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := paymentintent.Get(intentID, params)
	if err != nil {
		return "", fmt.Errorf("PaymentIntentの取得に失敗しました: %w", err)
	}

	return string(intent.Status), nil
}

// compile-time interface check
var _ PaymentProvider = (*StripeProvider)(nil)
