package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/assetverse/assetverse/internal/model"
)

// PostgresRequestRepo はPostgreSQLを使用した資産リクエストリポジトリ。
type PostgresRequestRepo struct {
	db *sql.DB
}

// NewPostgresRequestRepo はPostgresRequestRepoを生成する。
func NewPostgresRequestRepo(db *sql.DB) *PostgresRequestRepo {
	return &PostgresRequestRepo{db: db}
}

const requestSelect = `
	SELECT r.id, r.asset_id, a.name, a.type, r.requester_id, u.name, r.hr_user_id,
	       r.note, r.status, r.requested_at, r.processed_at
	FROM requests r
	JOIN assets a ON a.id = r.asset_id
	JOIN users u ON u.id = r.requester_id`

// FindByID は指定IDのリクエストを資産・申請者情報付きで取得する。
// 見つからない場合はnilを返す。
func (r *PostgresRequestRepo) FindByID(ctx context.Context, id string) (*model.Request, error) {
	req := &model.Request{}
	var processedAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		requestSelect+` WHERE r.id = $1`,
		id,
	).Scan(&req.ID, &req.AssetID, &req.AssetName, &req.AssetType,
		&req.RequesterID, &req.RequesterName, &req.HRUserID,
		&req.Note, &req.Status, &req.RequestedAt, &processedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("リクエストの取得に失敗しました: %w", err)
	}
	if processedAt.Valid {
		req.ProcessedAt = &processedAt.Time
	}
	return req, nil
}

// Create はリクエストを作成する。
func (r *PostgresRequestRepo) Create(ctx context.Context, req *model.Request) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO requests (id, asset_id, requester_id, hr_user_id, note, status, requested_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		req.ID, req.AssetID, req.RequesterID, req.HRUserID, req.Note, req.Status, req.RequestedAt,
	)
	if err != nil {
		return fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateStatus は現在状態がfromの場合に限り状態と処理日時を更新する。
// 条件付きUPDATEなので、競合する遷移が先にコミットされていた場合は
// 行を変更せずfalseを返す。txがnilでない場合はトランザクション内で実行する。
func (r *PostgresRequestRepo) UpdateStatus(ctx context.Context, tx *sql.Tx, id string, from, to model.RequestStatus) (bool, error) {
	const query = `UPDATE requests SET status = $3, processed_at = now()
	               WHERE id = $1 AND status = $2`

	var result sql.Result
	var err error
	if tx != nil {
		result, err = tx.ExecContext(ctx, query, id, from, to)
	} else {
		result, err = r.db.ExecContext(ctx, query, id, from, to)
	}
	if err != nil {
		return false, fmt.Errorf("リクエスト状態の更新に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新行数の取得に失敗しました: %w", err)
	}
	return affected > 0, nil
}

// ListByRequester は従業員の自分のリクエスト一覧を返す。
func (r *PostgresRequestRepo) ListByRequester(ctx context.Context, requesterID string, q model.RequestListQuery) ([]*model.Request, int, error) {
	return r.list(ctx, ` WHERE r.requester_id = $1`, requesterID, q)
}

// ListByHR はHR宛のリクエスト一覧を返す。
func (r *PostgresRequestRepo) ListByHR(ctx context.Context, hrUserID string, q model.RequestListQuery) ([]*model.Request, int, error) {
	return r.list(ctx, ` WHERE r.hr_user_id = $1`, hrUserID, q)
}

// list は絞り込み条件を共有するリクエスト一覧の共通実装。
func (r *PostgresRequestRepo) list(ctx context.Context, where, ownerID string, q model.RequestListQuery) ([]*model.Request, int, error) {
	args := []interface{}{ownerID}
	argIndex := 2

	if q.Search != "" {
		where += fmt.Sprintf(" AND (a.name ILIKE $%d OR u.name ILIKE $%d)", argIndex, argIndex)
		args = append(args, "%"+q.Search+"%")
		argIndex++
	}
	if q.Status != "" {
		where += fmt.Sprintf(" AND r.status = $%d", argIndex)
		args = append(args, q.Status)
		argIndex++
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM requests r
		 JOIN assets a ON a.id = r.asset_id
		 JOIN users u ON u.id = r.requester_id`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("リクエスト件数の取得に失敗しました: %w", err)
	}

	query := requestSelect + where + " ORDER BY r.requested_at DESC" +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, q.PerPage, (q.Page-1)*q.PerPage)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("リクエスト一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var requests []*model.Request
	for rows.Next() {
		req := &model.Request{}
		var processedAt sql.NullTime
		if err := rows.Scan(&req.ID, &req.AssetID, &req.AssetName, &req.AssetType,
			&req.RequesterID, &req.RequesterName, &req.HRUserID,
			&req.Note, &req.Status, &req.RequestedAt, &processedAt); err != nil {
			return nil, 0, fmt.Errorf("リクエスト行の読み取りに失敗しました: %w", err)
		}
		if processedAt.Valid {
			req.ProcessedAt = &processedAt.Time
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("リクエスト一覧の走査に失敗しました: %w", err)
	}

	return requests, total, nil
}

// CountPendingByHR はHR宛の未処理リクエスト数を返す。
func (r *PostgresRequestRepo) CountPendingByHR(ctx context.Context, hrUserID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM requests WHERE hr_user_id = $1 AND status = $2`,
		hrUserID, model.RequestStatusPending,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("未処理リクエスト数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ RequestRepository = (*PostgresRequestRepo)(nil)
