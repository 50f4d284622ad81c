package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/venturex/internal/model"
)

const userColumns = `id, identity_id, email, name, birthday, street, city, region, country,
	interests, plan_from, plan_to, annual_investment_range, notifications,
	image_url, bio, website_url, tax_id, tax_id_verified, onboarding_step,
	created_at, updated_at`

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByIdentityID はIdPのIDでユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByIdentityID(ctx context.Context, identityID string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE identity_id = $1`,
		identityID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	return user, nil
}

// SyncIdentity はIdPからのサインイン情報でユーザーをUPSERTする。
// 1. identity_idで行ロックを取り、存在すればemail・名前・画像を更新する
// 2. 存在しなければemailをキーにINSERT ON CONFLICTし、identity_idを付け替える
// 名前と画像は空文字の場合は既存値を維持する。
func (r *PostgresUserRepo) SyncIdentity(ctx context.Context, user *model.User) (*model.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	var existingID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM users WHERE identity_id = $1 FOR UPDATE`,
		user.IdentityID,
	).Scan(&existingID)

	var synced *model.User
	switch {
	case err == nil:
		synced, err = scanUser(tx.QueryRowContext(ctx,
			`UPDATE users SET
			     email = $2,
			     name = CASE WHEN $3::text <> '' THEN $3::text ELSE name END,
			     image_url = CASE WHEN $4::text <> '' THEN $4::text ELSE image_url END,
			     updated_at = $5
			 WHERE id = $1
			 RETURNING `+userColumns,
			existingID, nullString(user.Email), user.Name, user.ImageURL, now,
		))
	case errors.Is(err, sql.ErrNoRows):
		synced, err = scanUser(tx.QueryRowContext(ctx,
			`INSERT INTO users (id, identity_id, email, name, image_url, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $6)
			 ON CONFLICT (email) DO UPDATE SET
			     identity_id = EXCLUDED.identity_id,
			     name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE users.name END,
			     image_url = CASE WHEN EXCLUDED.image_url <> '' THEN EXCLUDED.image_url ELSE users.image_url END,
			     updated_at = EXCLUDED.updated_at
			 RETURNING `+userColumns,
			uuid.New().String(), user.IdentityID, nullString(user.Email), user.Name, user.ImageURL, now,
		))
	default:
		return nil, fmt.Errorf("ユーザーのロックに失敗しました: %w", err)
	}
	if err != nil {
		if classified := classifyPQError(err); classified != nil {
			return nil, fmt.Errorf("ユーザーの同期に失敗しました: %w", classified)
		}
		return nil, fmt.Errorf("ユーザーの同期に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return synced, nil
}

// Save はユーザーのプロフィール全体をidentity_idをキーにUPSERTする。
// IDが空の場合は新規IDを採番する。
func (r *PostgresUserRepo) Save(ctx context.Context, user *model.User) (*model.User, error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()

	saved, err := scanUser(r.db.QueryRowContext(ctx,
		`INSERT INTO users (id, identity_id, email, name, birthday, street, city, region, country,
		     interests, plan_from, plan_to, annual_investment_range, notifications,
		     image_url, bio, website_url, tax_id, tax_id_verified, onboarding_step,
		     created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $21)
		 ON CONFLICT (identity_id) DO UPDATE SET
		     email = EXCLUDED.email,
		     name = EXCLUDED.name,
		     birthday = EXCLUDED.birthday,
		     street = EXCLUDED.street,
		     city = EXCLUDED.city,
		     region = EXCLUDED.region,
		     country = EXCLUDED.country,
		     interests = EXCLUDED.interests,
		     plan_from = EXCLUDED.plan_from,
		     plan_to = EXCLUDED.plan_to,
		     annual_investment_range = EXCLUDED.annual_investment_range,
		     notifications = EXCLUDED.notifications,
		     image_url = EXCLUDED.image_url,
		     bio = EXCLUDED.bio,
		     website_url = EXCLUDED.website_url,
		     tax_id = EXCLUDED.tax_id,
		     tax_id_verified = EXCLUDED.tax_id_verified,
		     onboarding_step = EXCLUDED.onboarding_step,
		     updated_at = EXCLUDED.updated_at
		 RETURNING `+userColumns,
		user.ID, user.IdentityID, nullString(user.Email), user.Name, user.Birthday,
		user.Address.Street, user.Address.City, user.Address.Region, user.Address.Country,
		stringArray(user.Interests), nullFloat(user.PlanFrom), nullFloat(user.PlanTo),
		user.AnnualInvestmentRange, user.Notifications,
		user.ImageURL, user.Bio, user.WebsiteURL, user.TaxID, user.TaxIDVerified, string(user.OnboardingStep),
		now,
	))
	if err != nil {
		if classified := classifyPQError(err); classified != nil {
			return nil, fmt.Errorf("ユーザーの保存に失敗しました: %w", classified)
		}
		return nil, fmt.Errorf("ユーザーの保存に失敗しました: %w", err)
	}
	return saved, nil
}

// scanUser はuserColumnsの並びで1行を読み取る。
func scanUser(row rowScanner) (*model.User, error) {
	var (
		u        model.User
		email    sql.NullString
		planFrom sql.NullFloat64
		planTo   sql.NullFloat64
		step     string
	)
	err := row.Scan(
		&u.ID, &u.IdentityID, &email, &u.Name, &u.Birthday,
		&u.Address.Street, &u.Address.City, &u.Address.Region, &u.Address.Country,
		pq.Array(&u.Interests), &planFrom, &planTo, &u.AnnualInvestmentRange, &u.Notifications,
		&u.ImageURL, &u.Bio, &u.WebsiteURL, &u.TaxID, &u.TaxIDVerified, &step,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Email = nullStringValue(email)
	u.PlanFrom = nullFloatPtr(planFrom)
	u.PlanTo = nullFloatPtr(planTo)
	u.OnboardingStep = model.OnboardingStep(step)
	return &u, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
