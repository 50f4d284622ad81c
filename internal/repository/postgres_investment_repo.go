package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/venturex/internal/model"
)

// PostgresInvestmentRepo はPostgreSQLを使用した出資意向リポジトリ。
type PostgresInvestmentRepo struct {
	db *sql.DB
}

// NewPostgresInvestmentRepo はPostgresInvestmentRepoを生成する。
func NewPostgresInvestmentRepo(db *sql.DB) *PostgresInvestmentRepo {
	return &PostgresInvestmentRepo{db: db}
}

// Create は出資意向を作成する。
func (r *PostgresInvestmentRepo) Create(ctx context.Context, inv *model.Investment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO investments (id, company_id, startup_name, investor_identity_id, investor_email, amount, note, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		inv.ID, inv.CompanyID, inv.StartupName, inv.InvestorIdentityID, inv.InvestorEmail,
		inv.Amount, inv.Note, string(inv.Status), inv.CreatedAt,
	)
	if err != nil {
		if classified := classifyPQError(err); classified != nil {
			return fmt.Errorf("出資意向の作成に失敗しました: %w", classified)
		}
		return fmt.Errorf("出資意向の作成に失敗しました: %w", err)
	}
	return nil
}

// ListByCompanyID はキャンペーンの出資意向を作成日時の降順で返す。
func (r *PostgresInvestmentRepo) ListByCompanyID(ctx context.Context, companyID string) ([]model.Investment, error) {
	return r.list(ctx,
		`SELECT id, company_id, startup_name, investor_identity_id, investor_email, amount, note, status, created_at
		 FROM investments WHERE company_id = $1 ORDER BY created_at DESC, id DESC`,
		companyID,
	)
}

// ListByInvestor は投資家の出資意向を作成日時の降順で返す。
func (r *PostgresInvestmentRepo) ListByInvestor(ctx context.Context, identityID string) ([]model.Investment, error) {
	return r.list(ctx,
		`SELECT id, company_id, startup_name, investor_identity_id, investor_email, amount, note, status, created_at
		 FROM investments WHERE investor_identity_id = $1 ORDER BY created_at DESC, id DESC`,
		identityID,
	)
}

func (r *PostgresInvestmentRepo) list(ctx context.Context, query, arg string) ([]model.Investment, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("出資意向一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	investments := []model.Investment{}
	for rows.Next() {
		var (
			inv    model.Investment
			status string
		)
		if err := rows.Scan(
			&inv.ID, &inv.CompanyID, &inv.StartupName, &inv.InvestorIdentityID, &inv.InvestorEmail,
			&inv.Amount, &inv.Note, &status, &inv.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("出資意向行の読み取りに失敗しました: %w", err)
		}
		inv.Status = model.InvestmentStatus(status)
		investments = append(investments, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("出資意向一覧の走査に失敗しました: %w", err)
	}
	return investments, nil
}

// compile-time interface check
var _ InvestmentRepository = (*PostgresInvestmentRepo)(nil)
