package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/venturex/internal/model"
)

const companyColumns = `id, identity_id, name, startup_name, website, location, one_liner, description,
	industries, tags, raise_already, raise_want, cover_photo, cover_video, logo,
	social_links, team, products, round_days_left, round_target, round_min_investment, round_live,
	created_at, updated_at`

// PostgresCompanyRepo はPostgreSQLを使用したキャンペーンリポジトリ。
type PostgresCompanyRepo struct {
	db *sql.DB
}

// NewPostgresCompanyRepo はPostgresCompanyRepoを生成する。
func NewPostgresCompanyRepo(db *sql.DB) *PostgresCompanyRepo {
	return &PostgresCompanyRepo{db: db}
}

// FindByIdentityID は所有者のIDでキャンペーンを取得する。見つからない場合はnilを返す。
func (r *PostgresCompanyRepo) FindByIdentityID(ctx context.Context, identityID string) (*model.Company, error) {
	return r.findOne(ctx, "identity", `SELECT `+companyColumns+` FROM companies WHERE identity_id = $1`, identityID)
}

// FindByID は指定IDのキャンペーンを取得する。見つからない場合はnilを返す。
func (r *PostgresCompanyRepo) FindByID(ctx context.Context, id string) (*model.Company, error) {
	return r.findOne(ctx, "id", `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id)
}

// FindBySlug はスラッグでキャンペーンを取得する。
// 同じスラッグが複数ある場合は最も古いものを返す。
func (r *PostgresCompanyRepo) FindBySlug(ctx context.Context, slug string) (*model.Company, error) {
	return r.findOne(ctx, "slug",
		`SELECT `+companyColumns+` FROM companies
		 WHERE startup_name = $1
		 ORDER BY created_at ASC, id ASC
		 LIMIT 1`,
		slug,
	)
}

func (r *PostgresCompanyRepo) findOne(ctx context.Context, by, query string, arg any) (*model.Company, error) {
	company, err := scanCompany(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("キャンペーンの取得に失敗しました（%s）: %w", by, err)
	}
	return company, nil
}

// CountBySlug は指定スラッグを持つキャンペーン数を返す。
func (r *PostgresCompanyRepo) CountBySlug(ctx context.Context, slug string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM companies WHERE startup_name = $1`,
		slug,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("スラッグの件数取得に失敗しました: %w", err)
	}
	return count, nil
}

// CreatePlaceholder は所有者IDのみのキャンペーンを作成する。
// identity_idの一意制約によりON CONFLICT DO NOTHINGとし、同時呼び出しでも1件しか作られない。
func (r *PostgresCompanyRepo) CreatePlaceholder(ctx context.Context, id, identityID string) (bool, error) {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO companies (id, identity_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $3)
		 ON CONFLICT (identity_id) DO NOTHING`,
		id, identityID, now,
	)
	if err != nil {
		return false, fmt.Errorf("プレースホルダの作成に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("影響行数の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// UpdateSlug はスラッグを更新する。
func (r *PostgresCompanyRepo) UpdateSlug(ctx context.Context, id, slug string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE companies SET startup_name = $2, updated_at = $3 WHERE id = $1`,
		id, slug, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("スラッグの更新に失敗しました: %w", err)
	}
	return nil
}

// UpsertBasics は基本情報をidentity_idをキーにUPSERTする。
// 説明文・チーム・ラウンドなど他セクションの列には触れない。
func (r *PostgresCompanyRepo) UpsertBasics(ctx context.Context, c *model.Company) (*model.Company, error) {
	now := time.Now().UTC()
	saved, err := scanCompany(r.db.QueryRowContext(ctx,
		`INSERT INTO companies (id, identity_id, name, startup_name, website, location, one_liner,
		     industries, tags, raise_already, raise_want, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		 ON CONFLICT (identity_id) DO UPDATE SET
		     name = EXCLUDED.name,
		     startup_name = EXCLUDED.startup_name,
		     website = EXCLUDED.website,
		     location = EXCLUDED.location,
		     one_liner = EXCLUDED.one_liner,
		     industries = EXCLUDED.industries,
		     tags = EXCLUDED.tags,
		     raise_already = EXCLUDED.raise_already,
		     raise_want = EXCLUDED.raise_want,
		     updated_at = EXCLUDED.updated_at
		 RETURNING `+companyColumns,
		c.ID, c.IdentityID, c.Name, c.StartupName, c.Website, c.Location, c.OneLiner,
		stringArray(c.Industries), stringArray(c.Tags), c.Raise.Already, c.Raise.Want, now,
	))
	if err != nil {
		return nil, fmt.Errorf("キャンペーン基本情報の保存に失敗しました: %w", err)
	}
	return saved, nil
}

// UpdateDescription は説明文を更新する。キャンペーンが存在しない場合はnilを返す。
func (r *PostgresCompanyRepo) UpdateDescription(ctx context.Context, identityID, description string) (*model.Company, error) {
	return r.updateSection(ctx, "description",
		`description = $2`, identityID, description)
}

// UpdateRound はラウンド条件を更新する。キャンペーンが存在しない場合はnilを返す。
func (r *PostgresCompanyRepo) UpdateRound(ctx context.Context, identityID string, round model.Round) (*model.Company, error) {
	return r.updateSection(ctx, "round",
		`round_days_left = $2, round_target = $3, round_min_investment = $4, round_live = $5`,
		identityID, round.DaysLeft, round.Target, round.MinInvestment, round.Live)
}

// UpdateTeam はチーム構成を置き換える。キャンペーンが存在しない場合はnilを返す。
func (r *PostgresCompanyRepo) UpdateTeam(ctx context.Context, identityID string, team []model.TeamMember) (*model.Company, error) {
	if team == nil {
		team = []model.TeamMember{}
	}
	data, err := json.Marshal(team)
	if err != nil {
		return nil, fmt.Errorf("チームのエンコードに失敗しました: %w", err)
	}
	return r.updateSection(ctx, "team", `team = $2`, identityID, string(data))
}

// UpdateProducts はプロダクト一覧を置き換える。キャンペーンが存在しない場合はnilを返す。
func (r *PostgresCompanyRepo) UpdateProducts(ctx context.Context, identityID string, products []model.Product) (*model.Company, error) {
	if products == nil {
		products = []model.Product{}
	}
	data, err := json.Marshal(products)
	if err != nil {
		return nil, fmt.Errorf("プロダクトのエンコードに失敗しました: %w", err)
	}
	return r.updateSection(ctx, "products", `products = $2`, identityID, string(data))
}

// UpdateMedia はメディアURLを更新する。キャンペーンが存在しない場合はnilを返す。
func (r *PostgresCompanyRepo) UpdateMedia(ctx context.Context, identityID string, media model.Media) (*model.Company, error) {
	links := media.SocialLinks
	if links == nil {
		links = map[string]string{}
	}
	data, err := json.Marshal(links)
	if err != nil {
		return nil, fmt.Errorf("SNSリンクのエンコードに失敗しました: %w", err)
	}
	return r.updateSection(ctx, "media",
		`cover_photo = $2, cover_video = $3, logo = $4, social_links = $5`,
		identityID, media.CoverPhoto, media.CoverVideo, media.Logo, string(data))
}

// updateSection はidentity_idで特定したキャンペーンの一部の列を更新し、更新後の行を返す。
// setClauseのプレースホルダは$2から始め、$1はidentity_idとする。
func (r *PostgresCompanyRepo) updateSection(ctx context.Context, section, setClause, identityID string, args ...any) (*model.Company, error) {
	n := len(args) + 2
	query := fmt.Sprintf(
		`UPDATE companies SET %s, updated_at = $%d WHERE identity_id = $1 RETURNING %s`,
		setClause, n, companyColumns,
	)
	params := make([]any, 0, n)
	params = append(params, identityID)
	params = append(params, args...)
	params = append(params, time.Now().UTC())

	company, err := scanCompany(r.db.QueryRowContext(ctx, query, params...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("キャンペーンの%s更新に失敗しました: %w", section, err)
	}
	return company, nil
}

// List は名前付きキャンペーンを検索条件で絞り込み、作成日時の降順で返す。
// 2番目の戻り値はページングを無視した総件数。
func (r *PostgresCompanyRepo) List(ctx context.Context, filter model.CompanyListFilter) ([]model.Company, int, error) {
	where := []string{`startup_name <> ''`}
	var args []any

	if len(filter.Industries) > 0 {
		args = append(args, pq.Array(filter.Industries))
		where = append(where, fmt.Sprintf(`industries && $%d`, len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		where = append(where, fmt.Sprintf(`(name ILIKE $%d OR one_liner ILIKE $%d)`, len(args), len(args)))
	}
	if filter.LiveOnly {
		where = append(where, `round_live = TRUE`)
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM companies WHERE `+whereClause, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("キャンペーン件数の取得に失敗しました: %w", err)
	}

	pageArgs := append(append([]any{}, args...), filter.Limit, filter.Skip)
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM companies WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
			companyColumns, whereClause, len(args)+1, len(args)+2),
		pageArgs...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("キャンペーン一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	companies := make([]model.Company, 0, filter.Limit)
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("キャンペーン行の読み取りに失敗しました: %w", err)
		}
		companies = append(companies, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("キャンペーン一覧の走査に失敗しました: %w", err)
	}
	return companies, total, nil
}

// escapeLike はLIKEパターンのメタ文字をエスケープする。
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// scanCompany はcompanyColumnsの並びで1行を読み取る。
func scanCompany(row rowScanner) (*model.Company, error) {
	var (
		c                           model.Company
		socialLinks, team, products []byte
	)
	err := row.Scan(
		&c.ID, &c.IdentityID, &c.Name, &c.StartupName, &c.Website, &c.Location, &c.OneLiner, &c.Description,
		pq.Array(&c.Industries), pq.Array(&c.Tags), &c.Raise.Already, &c.Raise.Want,
		&c.Media.CoverPhoto, &c.Media.CoverVideo, &c.Media.Logo,
		&socialLinks, &team, &products,
		&c.Round.DaysLeft, &c.Round.Target, &c.Round.MinInvestment, &c.Round.Live,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeJSONColumn(socialLinks, &c.Media.SocialLinks); err != nil {
		return nil, fmt.Errorf("SNSリンクのデコードに失敗しました: %w", err)
	}
	if err := decodeJSONColumn(team, &c.Team); err != nil {
		return nil, fmt.Errorf("チームのデコードに失敗しました: %w", err)
	}
	if err := decodeJSONColumn(products, &c.Products); err != nil {
		return nil, fmt.Errorf("プロダクトのデコードに失敗しました: %w", err)
	}
	return &c, nil
}

func decodeJSONColumn(data []byte, dst any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

// compile-time interface check
var _ CompanyRepository = (*PostgresCompanyRepo)(nil)
