// Package contact は公開問い合わせフォームのドメインロジックを提供する。
package contact

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/assetverse/assetverse/internal/model"
	"github.com/assetverse/assetverse/internal/repository"
)

const (
	// maxMessageLength は問い合わせ本文の最大文字数。
	maxMessageLength = 5000

	// maxEmailLength はメールアドレスの最大文字数。
	maxEmailLength = 254
)

// Sanitizer は問い合わせ本文のサニタイズインターフェース。
type Sanitizer interface {
	SanitizeText(input string) string
}

// Service は問い合わせフォームのサービス層。
// 本文はHTML・スクリプトを除去してから保存する。
type Service struct {
	contactRepo repository.ContactRepository
	sanitizer   Sanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(contactRepo repository.ContactRepository, sanitizer Sanitizer) *Service {
	return &Service{
		contactRepo: contactRepo,
		sanitizer:   sanitizer,
	}
}

// Submit は問い合わせを検証・サニタイズして保存する。
func (s *Service) Submit(ctx context.Context, email, message string) (*model.ContactMessage, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") || len(email) > maxEmailLength {
		return nil, model.NewValidationError("メールアドレスの形式が不正です")
	}

	sanitized := s.sanitizer.SanitizeText(message)
	if sanitized == "" {
		return nil, model.NewValidationError("問い合わせ内容は必須です")
	}
	if len(sanitized) > maxMessageLength {
		return nil, model.NewValidationError("問い合わせ内容が長すぎます")
	}

	msg := &model.ContactMessage{
		ID:        uuid.New().String(),
		Email:     email,
		Message:   sanitized,
		CreatedAt: time.Now(),
	}

	if err := s.contactRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("問い合わせの保存に失敗しました: %w", err)
	}

	slog.Info("contact message received", slog.String("contact_id", msg.ID))

	return msg, nil
}
