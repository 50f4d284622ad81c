package company

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/hitoshi/venturex/internal/metrics"
	"github.com/hitoshi/venturex/internal/model"
	"github.com/hitoshi/venturex/internal/repository"
)

// Resolver は呼び出し元のキャンペーン作成状況と遷移先を判定する。
// 読み取り系の呼び出しでも、スラッグの保存やプレースホルダ作成を行うことがある。
type Resolver struct {
	repo    repository.CompanyRepository
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewResolver はResolverを生成する。metricsはnilでもよい。
func NewResolver(repo repository.CompanyRepository, logger *slog.Logger, recorder metrics.Recorder) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{repo: repo, logger: logger, metrics: recorder}
}

// GetStatus はidentityIDのキャンペーン作成状況を返す。
// キャンペーンがなければ全てfalseのステータスを返す。
// スラッグ未保存で会社名がある場合は、スラッグを導出して保存する。
func (r *Resolver) GetStatus(ctx context.Context, identityID string) (*model.CompanyStatus, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return nil, model.NewMissingIdentityError()
	}

	c, err := r.repo.FindByIdentityID(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("キャンペーンの取得に失敗しました: %w", err)
	}
	if c == nil {
		return &model.CompanyStatus{}, nil
	}

	slug, err := r.ensureSlug(ctx, c)
	if err != nil {
		return nil, err
	}

	status := &model.CompanyStatus{
		HasCompany:    true,
		StartupName:   slug,
		HasLocation:   strings.TrimSpace(c.Location) != "",
		HasTags:       hasValue(c.Tags),
		HasIndustries: hasValue(c.Industries),
		HasRaise:      strings.TrimSpace(c.Raise.Already) != "" || strings.TrimSpace(c.Raise.Want) != "",
	}
	// tagsはindustriesと別の列で完了判定には含めない（DESIGN.md参照）
	status.IsComplete = status.HasLocation && status.HasIndustries && status.HasRaise
	return status, nil
}

// ResolveRedirect はidentityIDの遷移先パスを返す。
//  1. キャンペーンがなければプレースホルダを作成して開始画面へ
//  2. スラッグを導出できなければ開始画面へ
//  3. それ以外は（新たに導出したスラッグを保存して）概要画面へ
func (r *Resolver) ResolveRedirect(ctx context.Context, identityID string) (string, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return "", model.NewMissingIdentityError()
	}

	c, err := r.repo.FindByIdentityID(ctx, identityID)
	if err != nil {
		return "", fmt.Errorf("キャンペーンの取得に失敗しました: %w", err)
	}

	if c == nil {
		created, err := r.repo.CreatePlaceholder(ctx, uuid.New().String(), identityID)
		if err != nil {
			return "", fmt.Errorf("プレースホルダの作成に失敗しました: %w", err)
		}
		if created {
			r.logger.Info("placeholder company created", slog.String("identity_id", identityID))
		}
		return StartPath, nil
	}

	slug, err := r.ensureSlug(ctx, c)
	if err != nil {
		return "", err
	}
	if slug == "" {
		return StartPath, nil
	}
	return OverviewPath(slug), nil
}

// ensureSlug は保存済みスラッグを返す。未保存なら会社名から導出して保存する。
// 導出できない場合は空文字を返す。
func (r *Resolver) ensureSlug(ctx context.Context, c *model.Company) (string, error) {
	if c.StartupName != "" {
		return c.StartupName, nil
	}

	slug := Slugify(c.Name)
	if slug == "" {
		return "", nil
	}

	if err := r.repo.UpdateSlug(ctx, c.ID, slug); err != nil {
		return "", fmt.Errorf("スラッグの保存に失敗しました: %w", err)
	}
	c.StartupName = slug
	checkSlugCollision(ctx, r.repo, r.logger, r.metrics, c)
	return slug, nil
}

// checkSlugCollision は同じスラッグを持つ別キャンペーンがあれば警告ログとメトリクスを残す。
// 重複は解決せず、両方のキャンペーンをそのまま保持する。
func checkSlugCollision(ctx context.Context, repo repository.CompanyRepository, logger *slog.Logger, recorder metrics.Recorder, c *model.Company) {
	count, err := repo.CountBySlug(ctx, c.StartupName)
	if err != nil {
		logger.Warn("slug collision check failed",
			slog.String("startup_name", c.StartupName),
			slog.String("error", err.Error()),
		)
		return
	}
	if count <= 1 {
		return
	}
	logger.Warn("slug collision",
		slog.String("startup_name", c.StartupName),
		slog.String("company_id", c.ID),
		slog.Int("count", count),
	)
	if recorder != nil {
		recorder.RecordSlugCollision()
	}
}

func hasValue(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}
