// Package user はプロフィール管理と退会処理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/assetverse/assetverse/internal/model"
	"github.com/assetverse/assetverse/internal/repository"
)

// maxNameLength は表示名の最大文字数。
const maxNameLength = 100

// LogoFetcher は企業ロゴ取得のインターフェース。
// 取得失敗は(nil, "", nil)に解決される契約。
type LogoFetcher interface {
	FetchLogo(ctx context.Context, logoURL string) ([]byte, string, error)
	FetchLogoForSite(ctx context.Context, siteURL string) ([]byte, string, error)
}

// UpdateProfileInput はプロフィール更新の入力。
// ポインタフィールドはnilの場合に未指定として扱う。
type UpdateProfileInput struct {
	Name           *string
	DateOfBirth    *time.Time
	CompanyName    *string
	CompanyLogoURL *string
	CompanySiteURL *string
}

// Service はプロフィール管理のサービス層。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	logoFetcher LogoFetcher
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	logoFetcher LogoFetcher,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		logoFetcher: logoFetcher,
	}
}

// GetProfile は指定IDのユーザープロフィールを返す。
func (s *Service) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateProfile はプロフィールを更新する。
// HRユーザーがロゴURLまたは企業サイトURLを指定した場合、
// SSRFガード付きでロゴを取得して保存する。取得失敗はロゴなしとして続行する。
func (s *Service) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*model.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" || len(name) > maxNameLength {
			return nil, model.NewValidationError("表示名の形式が不正です")
		}
		user.Name = name
	}
	if input.DateOfBirth != nil {
		user.DateOfBirth = input.DateOfBirth
	}

	if user.Role == model.RoleHR {
		if input.CompanyName != nil {
			companyName := strings.TrimSpace(*input.CompanyName)
			if companyName == "" {
				return nil, model.NewValidationError("会社名は必須です")
			}
			user.CompanyName = companyName
		}
		s.applyCompanyLogo(ctx, user, input)
	}

	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}

	if len(user.CompanyLogoData) > 0 {
		if err := s.userRepo.UpdateCompanyLogo(ctx, userID, user.CompanyLogoData, user.CompanyLogoMime); err != nil {
			return nil, fmt.Errorf("企業ロゴの保存に失敗しました: %w", err)
		}
	}

	return user, nil
}

// Withdraw は退会処理を行う。
// 全セッションを削除してからユーザーを削除する。
// 所属・リクエスト・割り当てはCASCADE削除される。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	if _, err := s.GetProfile(ctx, userID); err != nil {
		return err
	}

	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}

	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("user withdrawn", slog.String("user_id", userID))

	return nil
}

// applyCompanyLogo はロゴURLまたは企業サイトURLからロゴを取得する。
// 直接URL指定を優先し、取得失敗時はロゴを変更しない。
func (s *Service) applyCompanyLogo(ctx context.Context, user *model.User, input UpdateProfileInput) {
	if s.logoFetcher == nil {
		return
	}

	var data []byte
	var mime string

	switch {
	case input.CompanyLogoURL != nil && *input.CompanyLogoURL != "":
		user.CompanyLogoURL = *input.CompanyLogoURL
		data, mime, _ = s.logoFetcher.FetchLogo(ctx, *input.CompanyLogoURL)
	case input.CompanySiteURL != nil && *input.CompanySiteURL != "":
		data, mime, _ = s.logoFetcher.FetchLogoForSite(ctx, *input.CompanySiteURL)
	default:
		return
	}

	if data == nil {
		slog.Warn("company logo fetch returned no image",
			slog.String("user_id", user.ID),
		)
		return
	}

	user.CompanyLogoData = data
	user.CompanyLogoMime = mime
}
