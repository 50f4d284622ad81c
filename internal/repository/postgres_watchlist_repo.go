package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/venturex/internal/model"
)

// PostgresWatchlistRepo はPostgreSQLを使用したウォッチリストリポジトリ。
type PostgresWatchlistRepo struct {
	db *sql.DB
}

// NewPostgresWatchlistRepo はPostgresWatchlistRepoを生成する。
func NewPostgresWatchlistRepo(db *sql.DB) *PostgresWatchlistRepo {
	return &PostgresWatchlistRepo{db: db}
}

// Exists は(identityID, companyID)の登録があるかを返す。
func (r *PostgresWatchlistRepo) Exists(ctx context.Context, identityID, companyID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM watchlist WHERE identity_id = $1 AND company_id = $2)`,
		identityID, companyID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ウォッチリストの確認に失敗しました: %w", err)
	}
	return exists, nil
}

// Insert は登録を作成する。
// UNIQUE(identity_id, company_id)違反の場合はErrDuplicateを返す。
func (r *PostgresWatchlistRepo) Insert(ctx context.Context, entry *model.WatchlistEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO watchlist (id, identity_id, company_id, created_at) VALUES ($1, $2, $3, $4)`,
		entry.ID, entry.IdentityID, entry.CompanyID, entry.CreatedAt,
	)
	if err != nil {
		if classified := classifyPQError(err); classified != nil {
			return fmt.Errorf("ウォッチリストの登録に失敗しました: %w", classified)
		}
		return fmt.Errorf("ウォッチリストの登録に失敗しました: %w", err)
	}
	return nil
}

// Delete は登録を削除し、削除した行があったかを返す。
func (r *PostgresWatchlistRepo) Delete(ctx context.Context, identityID, companyID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM watchlist WHERE identity_id = $1 AND company_id = $2`,
		identityID, companyID,
	)
	if err != nil {
		return false, fmt.Errorf("ウォッチリストの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("影響行数の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// ListByIdentityID はユーザーのウォッチリストをキャンペーン付きで新しい順に返す。
func (r *PostgresWatchlistRepo) ListByIdentityID(ctx context.Context, identityID string) ([]model.WatchlistItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT w.created_at, `+prefixColumns("c", companyColumns)+`
		 FROM watchlist w
		 JOIN companies c ON c.id = w.company_id
		 WHERE w.identity_id = $1
		 ORDER BY w.created_at DESC, w.id DESC`,
		identityID,
	)
	if err != nil {
		return nil, fmt.Errorf("ウォッチリスト一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	items := []model.WatchlistItem{}
	for rows.Next() {
		var savedAt time.Time
		company, err := scanCompany(savedAtScanner{row: rows, savedAt: &savedAt})
		if err != nil {
			return nil, fmt.Errorf("ウォッチリスト行の読み取りに失敗しました: %w", err)
		}
		items = append(items, model.WatchlistItem{SavedAt: savedAt, Company: *company})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ウォッチリスト一覧の走査に失敗しました: %w", err)
	}
	return items, nil
}

// savedAtScanner は先頭列のwatchlist.created_atを読み取ってから残りをscanCompanyに渡す。
type savedAtScanner struct {
	row     rowScanner
	savedAt *time.Time
}

func (s savedAtScanner) Scan(dest ...any) error {
	return s.row.Scan(append([]any{s.savedAt}, dest...)...)
}

// prefixColumns はカンマ区切りの列名にテーブル別名を付ける。
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// compile-time interface check
var _ WatchlistRepository = (*PostgresWatchlistRepo)(nil)
