// Package request は資産リクエストの承認ワークフローを提供する。
package request

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/assetverse/assetverse/internal/model"
	"github.com/assetverse/assetverse/internal/repository"
)

const (
	// maxNoteLength はリクエスト備考の最大文字数。
	maxNoteLength = 500

	// defaultPerPage は一覧のデフォルトページサイズ。
	defaultPerPage = 20

	// maxPerPage は一覧の最大ページサイズ。
	maxPerPage = 100
)

// Service は資産リクエストのサービス層。
// 承認時の在庫減算・所属作成・割り当て作成は単一トランザクションで行う。
type Service struct {
	requestRepo  repository.RequestRepository
	assetRepo    repository.AssetRepository
	assignedRepo repository.AssignedAssetRepository
	affRepo      repository.AffiliationRepository
	userRepo     repository.UserRepository
	db           repository.TxBeginner
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	requestRepo repository.RequestRepository,
	assetRepo repository.AssetRepository,
	assignedRepo repository.AssignedAssetRepository,
	affRepo repository.AffiliationRepository,
	userRepo repository.UserRepository,
	db repository.TxBeginner,
) *Service {
	return &Service{
		requestRepo:  requestRepo,
		assetRepo:    assetRepo,
		assignedRepo: assignedRepo,
		affRepo:      affRepo,
		userRepo:     userRepo,
		db:           db,
	}
}

// CreateRequest は従業員の資産リクエストを作成する。
// リクエスト先HRは資産の所有者から導出される。
func (s *Service) CreateRequest(ctx context.Context, requesterID, assetID, note string) (*model.Request, error) {
	if len(note) > maxNoteLength {
		return nil, model.NewValidationError("備考が長すぎます")
	}

	asset, err := s.assetRepo.FindByID(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("資産の取得に失敗しました: %w", err)
	}
	if asset == nil {
		return nil, model.NewAssetNotFoundError(assetID)
	}
	if !asset.Available() {
		return nil, model.NewInsufficientStockError(asset.Name)
	}

	req := &model.Request{
		ID:          uuid.New().String(),
		AssetID:     asset.ID,
		AssetName:   asset.Name,
		AssetType:   asset.Type,
		RequesterID: requesterID,
		HRUserID:    asset.HRUserID,
		Note:        note,
		Status:      model.RequestStatusPending,
		RequestedAt: time.Now(),
	}

	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}

	slog.Info("asset request created",
		slog.String("request_id", req.ID),
		slog.String("asset_id", asset.ID),
		slog.String("requester_id", requesterID),
	)

	return req, nil
}

// Approve はHRがリクエストを承認する。
// 状態遷移 → 在庫減算 → 所属作成（初回のみ、上限チェック付き） → 割り当て作成を
// 単一トランザクションで実行する。条件付きの状態遷移が同一リクエストへの
// 同時承認を、HRユーザー行のロックが上限判定をそれぞれ直列化する。
func (s *Service) Approve(ctx context.Context, hrUserID, requestID string) (*model.Request, error) {
	req, err := s.findOwnedRequest(ctx, hrUserID, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != model.RequestStatusPending {
		return nil, model.NewInvalidTransitionError(req.Status, model.RequestStatusApproved)
	}

	// 既存所属の確認。初回承認時のみ所属を新規作成する。
	// 同時の初回承認はaffiliationsの一意制約とHR行ロックで防がれる。
	existingAff, err := s.affRepo.FindByEmployeeAndHR(ctx, req.RequesterID, hrUserID)
	if err != nil {
		return nil, fmt.Errorf("所属の確認に失敗しました: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	// pendingからの遷移を条件付きUPDATEで確定する。競合する承認・却下・
	// 取り消しが先にコミットされていた場合はここで行が変更されず失敗する。
	transitioned, err := s.requestRepo.UpdateStatus(ctx, tx, req.ID, model.RequestStatusPending, model.RequestStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("リクエスト状態の更新に失敗しました: %w", err)
	}
	if !transitioned {
		if fresh, ferr := s.requestRepo.FindByID(ctx, req.ID); ferr == nil && fresh != nil {
			req = fresh
		}
		return nil, model.NewInvalidTransitionError(req.Status, model.RequestStatusApproved)
	}

	// 在庫チェックと減算は同一UPDATEで原子的に行う
	decremented, err := s.assetRepo.DecrementQuantity(ctx, tx, req.AssetID)
	if err != nil {
		return nil, fmt.Errorf("在庫の減算に失敗しました: %w", err)
	}
	if !decremented {
		return nil, model.NewInsufficientStockError(req.AssetName)
	}

	if existingAff == nil {
		// HRユーザー行をロックしてから数えることで、別リクエストの同時承認が
		// 上限を超えて所属を増やすことを防ぐ。
		hrUser, err := s.userRepo.FindByIDForUpdate(ctx, tx, hrUserID)
		if err != nil {
			return nil, fmt.Errorf("HRユーザーの取得に失敗しました: %w", err)
		}
		if hrUser == nil {
			return nil, model.NewUserNotFoundError()
		}

		count, err := s.affRepo.CountByHR(ctx, tx, hrUserID)
		if err != nil {
			return nil, fmt.Errorf("所属数の確認に失敗しました: %w", err)
		}
		if count >= hrUser.MemberLimit {
			return nil, model.NewPackageLimitError(hrUser.MemberLimit)
		}

		aff := &model.Affiliation{
			ID:         uuid.New().String(),
			EmployeeID: req.RequesterID,
			HRUserID:   hrUserID,
			CreatedAt:  time.Now(),
		}
		if err := s.affRepo.Create(ctx, tx, aff); err != nil {
			return nil, fmt.Errorf("所属の作成に失敗しました: %w", err)
		}
	}

	assigned := &model.AssignedAsset{
		ID:         uuid.New().String(),
		AssetID:    req.AssetID,
		UserID:     req.RequesterID,
		HRUserID:   hrUserID,
		AssignedAt: time.Now(),
	}
	if err := s.assignedRepo.Create(ctx, tx, assigned); err != nil {
		return nil, fmt.Errorf("割り当ての作成に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	slog.Info("asset request approved",
		slog.String("request_id", req.ID),
		slog.String("hr_user_id", hrUserID),
		slog.Bool("affiliation_created", existingAff == nil),
	)

	return s.requestRepo.FindByID(ctx, req.ID)
}

// Reject はHRがリクエストを却下する。在庫・所属は変化しない。
func (s *Service) Reject(ctx context.Context, hrUserID, requestID string) (*model.Request, error) {
	req, err := s.findOwnedRequest(ctx, hrUserID, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != model.RequestStatusPending {
		return nil, model.NewInvalidTransitionError(req.Status, model.RequestStatusRejected)
	}

	if err := s.transition(ctx, req, model.RequestStatusPending, model.RequestStatusRejected); err != nil {
		return nil, err
	}

	return s.requestRepo.FindByID(ctx, req.ID)
}

// Cancel は従業員が自分の未処理リクエストを取り消す。
func (s *Service) Cancel(ctx context.Context, requesterID, requestID string) (*model.Request, error) {
	req, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("リクエストの取得に失敗しました: %w", err)
	}
	if req == nil || req.RequesterID != requesterID {
		return nil, model.NewRequestNotFoundError(requestID)
	}
	if req.Status != model.RequestStatusPending {
		return nil, model.NewInvalidTransitionError(req.Status, model.RequestStatusCancelled)
	}

	if err := s.transition(ctx, req, model.RequestStatusPending, model.RequestStatusCancelled); err != nil {
		return nil, err
	}

	return s.requestRepo.FindByID(ctx, req.ID)
}

// Return は従業員が承認済みの返却可能資産を返却する。
// 在庫加算・割り当ての返却記録・状態更新を単一トランザクションで行う。
func (s *Service) Return(ctx context.Context, requesterID, requestID string) (*model.Request, error) {
	req, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("リクエストの取得に失敗しました: %w", err)
	}
	if req == nil || req.RequesterID != requesterID {
		return nil, model.NewRequestNotFoundError(requestID)
	}
	if req.Status != model.RequestStatusApproved {
		return nil, model.NewInvalidTransitionError(req.Status, model.RequestStatusReturned)
	}
	if req.AssetType != model.AssetTypeReturnable {
		return nil, model.NewValidationError("返却不要の資産は返却できません")
	}

	assigned, err := s.assignedRepo.FindActiveByUserAndAsset(ctx, requesterID, req.AssetID)
	if err != nil {
		return nil, fmt.Errorf("割り当ての取得に失敗しました: %w", err)
	}
	if assigned == nil {
		return nil, model.NewValidationError("返却対象の割り当てが見つかりません")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	// 二重返却は条件付きの状態遷移で防ぐ
	transitioned, err := s.requestRepo.UpdateStatus(ctx, tx, req.ID, model.RequestStatusApproved, model.RequestStatusReturned)
	if err != nil {
		return nil, fmt.Errorf("リクエスト状態の更新に失敗しました: %w", err)
	}
	if !transitioned {
		return nil, model.NewInvalidTransitionError(req.Status, model.RequestStatusReturned)
	}

	if err := s.assetRepo.IncrementQuantity(ctx, tx, req.AssetID); err != nil {
		return nil, fmt.Errorf("在庫の加算に失敗しました: %w", err)
	}
	if err := s.assignedRepo.MarkReturned(ctx, tx, assigned.ID); err != nil {
		return nil, fmt.Errorf("返却記録の更新に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	slog.Info("asset returned",
		slog.String("request_id", req.ID),
		slog.String("user_id", requesterID),
	)

	return s.requestRepo.FindByID(ctx, req.ID)
}

// ListMine は従業員の自分のリクエスト一覧を返す。
func (s *Service) ListMine(ctx context.Context, requesterID string, q model.RequestListQuery) ([]*model.Request, int, error) {
	normalizeQuery(&q)
	list, total, err := s.requestRepo.ListByRequester(ctx, requesterID, q)
	if err != nil {
		return nil, 0, fmt.Errorf("リクエスト一覧の取得に失敗しました: %w", err)
	}
	return list, total, nil
}

// ListForHR はHR宛のリクエスト一覧を返す。
func (s *Service) ListForHR(ctx context.Context, hrUserID string, q model.RequestListQuery) ([]*model.Request, int, error) {
	normalizeQuery(&q)
	list, total, err := s.requestRepo.ListByHR(ctx, hrUserID, q)
	if err != nil {
		return nil, 0, fmt.Errorf("リクエスト一覧の取得に失敗しました: %w", err)
	}
	return list, total, nil
}

// transition は条件付きUPDATEで状態遷移を確定する。
// 競合する遷移が先にコミットされていた場合は無効遷移エラーを返す。
func (s *Service) transition(ctx context.Context, req *model.Request, from, to model.RequestStatus) error {
	transitioned, err := s.requestRepo.UpdateStatus(ctx, nil, req.ID, from, to)
	if err != nil {
		return fmt.Errorf("リクエスト状態の更新に失敗しました: %w", err)
	}
	if !transitioned {
		if fresh, ferr := s.requestRepo.FindByID(ctx, req.ID); ferr == nil && fresh != nil {
			req = fresh
		}
		return model.NewInvalidTransitionError(req.Status, to)
	}
	return nil
}

// findOwnedRequest はリクエストを取得し、HRユーザー宛であることを検証する。
func (s *Service) findOwnedRequest(ctx context.Context, hrUserID, requestID string) (*model.Request, error) {
	req, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("リクエストの取得に失敗しました: %w", err)
	}
	if req == nil || req.HRUserID != hrUserID {
		return nil, model.NewRequestNotFoundError(requestID)
	}
	return req, nil
}

// normalizeQuery はページネーションパラメータをデフォルト値に正規化する。
func normalizeQuery(q *model.RequestListQuery) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = defaultPerPage
	}
	if q.PerPage > maxPerPage {
		q.PerPage = maxPerPage
	}
}
