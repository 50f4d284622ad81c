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
	"github.com/hitoshi/venturex/internal/security"
)

const (
	// DefaultListLimit は一覧取得のデフォルト件数。
	DefaultListLimit = 12
	// MaxListLimit は一覧取得の最大件数。
	MaxListLimit = 50
)

// Service はキャンペーンの保存・取得・一覧を扱うサービス層。
// 各エディタセクションは独立した列を更新するため、並行する別セクションの保存を上書きしない。
type Service struct {
	repo      repository.CompanyRepository
	sanitizer security.RichTextSanitizer
	urlGuard  security.URLGuard
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// NewService はServiceを生成する。urlGuardとmetricsはnilでもよい。
func NewService(
	repo repository.CompanyRepository,
	sanitizer security.RichTextSanitizer,
	urlGuard security.URLGuard,
	logger *slog.Logger,
	recorder metrics.Recorder,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		urlGuard:  urlGuard,
		logger:    logger,
		metrics:   recorder,
	}
}

// SaveBasics はキャンペーン基本情報を保存する。キャンペーンがなければ作成する。
// 会社名からスラッグを導出し直し、重複があれば警告する。
func (s *Service) SaveBasics(ctx context.Context, identityID string, basics model.CompanyBasics) (*model.Company, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return nil, model.NewMissingIdentityError()
	}

	// 1. 既存キャンペーンを読み込む（なければ新規）
	existing, err := s.repo.FindByIdentityID(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("キャンペーンの取得に失敗しました: %w", err)
	}
	c := existing
	if c == nil {
		c = &model.Company{ID: uuid.New().String(), IdentityID: identityID}
	}
	previousSlug := c.StartupName

	// 2. パッチを適用して正規化する
	applyBasics(c, basics)
	if err := validateBasics(c); err != nil {
		return nil, err
	}
	if err := s.validateLink("website", c.Website); err != nil {
		return nil, err
	}
	c.StartupName = Slugify(c.Name)

	// 3. 保存
	saved, err := s.repo.UpsertBasics(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("キャンペーン基本情報の保存に失敗しました: %w", err)
	}

	if saved.StartupName != "" && saved.StartupName != previousSlug {
		checkSlugCollision(ctx, s.repo, s.logger, s.metrics, saved)
	}
	return saved, nil
}

// GetByIdentity は呼び出し元自身のキャンペーンを返す。
func (s *Service) GetByIdentity(ctx context.Context, identityID string) (*model.Company, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return nil, model.NewMissingIdentityError()
	}
	c, err := s.repo.FindByIdentityID(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("キャンペーンの取得に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewCompanyNotFoundError(identityID)
	}
	return c, nil
}

// Get はidまたはスラッグでキャンペーンを返す。両方指定された場合はidを優先する。
func (s *Service) Get(ctx context.Context, slug, id string) (*model.Company, error) {
	slug, id = strings.TrimSpace(slug), strings.TrimSpace(id)

	var (
		c   *model.Company
		err error
	)
	switch {
	case id != "":
		if _, parseErr := uuid.Parse(id); parseErr != nil {
			return nil, model.NewCompanyNotFoundError(id)
		}
		c, err = s.repo.FindByID(ctx, id)
	case slug != "":
		c, err = s.repo.FindBySlug(ctx, slug)
	default:
		return nil, model.NewMissingFieldError("slug")
	}
	if err != nil {
		return nil, fmt.Errorf("キャンペーンの取得に失敗しました: %w", err)
	}
	if c == nil {
		ref := id
		if ref == "" {
			ref = slug
		}
		return nil, model.NewCompanyNotFoundError(ref)
	}
	return c, nil
}

// List は名前付きキャンペーンの一覧を返す。
// limitは未指定(0以下)なら12件、最大50件に丸める。skipは負なら0とする。
func (s *Service) List(ctx context.Context, filter model.CompanyListFilter) (*model.CompanyPage, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	if filter.Skip < 0 {
		filter.Skip = 0
	}
	filter.Industries = normalizeLabels(filter.Industries)

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("キャンペーン一覧の取得に失敗しました: %w", err)
	}
	return &model.CompanyPage{Items: items, Total: total, Limit: filter.Limit, Skip: filter.Skip}, nil
}

// UpdateDescription は説明文をサニタイズして保存する。
func (s *Service) UpdateDescription(ctx context.Context, identityID, rawHTML string) (*model.Company, error) {
	clean := s.sanitizer.Sanitize(rawHTML)
	return s.updateSection(ctx, identityID, func(ctx context.Context, id string) (*model.Company, error) {
		return s.repo.UpdateDescription(ctx, id, clean)
	})
}

// UpdateRound はラウンド条件を保存する。負の値は受け付けない。
func (s *Service) UpdateRound(ctx context.Context, identityID string, round model.Round) (*model.Company, error) {
	switch {
	case round.DaysLeft < 0:
		return nil, model.NewInvalidFieldError("daysLeft", "must not be negative")
	case round.Target < 0:
		return nil, model.NewInvalidFieldError("target", "must not be negative")
	case round.MinInvestment < 0:
		return nil, model.NewInvalidFieldError("minInvestment", "must not be negative")
	case round.Target > 0 && round.MinInvestment > round.Target:
		return nil, model.NewInvalidFieldError("minInvestment", "must not exceed target")
	}
	if err := model.FirstError(
		model.CheckDaysLeft("daysLeft", round.DaysLeft),
		model.CheckAmountRange("target", round.Target),
		model.CheckAmountRange("minInvestment", round.MinInvestment),
	); err != nil {
		return nil, err
	}
	return s.updateSection(ctx, identityID, func(ctx context.Context, id string) (*model.Company, error) {
		return s.repo.UpdateRound(ctx, id, round)
	})
}

// UpdateTeam はチーム構成を置き換える。メンバーには名前が必須。
func (s *Service) UpdateTeam(ctx context.Context, identityID string, team []model.TeamMember) (*model.Company, error) {
	members := make([]model.TeamMember, 0, len(team))
	for i, m := range team {
		m.Name = strings.TrimSpace(m.Name)
		m.Title = strings.TrimSpace(m.Title)
		m.WorkEmail = strings.TrimSpace(m.WorkEmail)
		m.LinkedIn = strings.TrimSpace(m.LinkedIn)
		m.Photo = strings.TrimSpace(m.Photo)
		if m.Name == "" {
			return nil, model.NewInvalidFieldError(fmt.Sprintf("team[%d].name", i), "is required")
		}
		if err := s.validateLink(fmt.Sprintf("team[%d].linkedin", i), m.LinkedIn); err != nil {
			return nil, err
		}
		if err := s.validateLink(fmt.Sprintf("team[%d].photo", i), m.Photo); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return s.updateSection(ctx, identityID, func(ctx context.Context, id string) (*model.Company, error) {
		return s.repo.UpdateTeam(ctx, id, members)
	})
}

// UpdateProducts はプロダクト一覧を置き換える。プロダクトには名前が必須。
func (s *Service) UpdateProducts(ctx context.Context, identityID string, products []model.Product) (*model.Company, error) {
	items := make([]model.Product, 0, len(products))
	for i, p := range products {
		p.Name = strings.TrimSpace(p.Name)
		p.URL = strings.TrimSpace(p.URL)
		p.Image = strings.TrimSpace(p.Image)
		if p.Name == "" {
			return nil, model.NewInvalidFieldError(fmt.Sprintf("products[%d].name", i), "is required")
		}
		if err := s.validateLink(fmt.Sprintf("products[%d].url", i), p.URL); err != nil {
			return nil, err
		}
		if err := s.validateLink(fmt.Sprintf("products[%d].image", i), p.Image); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return s.updateSection(ctx, identityID, func(ctx context.Context, id string) (*model.Company, error) {
		return s.repo.UpdateProducts(ctx, id, items)
	})
}

// UpdateMedia はカバー写真・動画・ロゴ・SNSリンクを保存する。空のSNSリンクは除去する。
func (s *Service) UpdateMedia(ctx context.Context, identityID string, media model.Media) (*model.Company, error) {
	media.CoverPhoto = strings.TrimSpace(media.CoverPhoto)
	media.CoverVideo = strings.TrimSpace(media.CoverVideo)
	media.Logo = strings.TrimSpace(media.Logo)
	for field, value := range map[string]string{
		"coverPhoto": media.CoverPhoto,
		"coverVideo": media.CoverVideo,
		"logo":       media.Logo,
	} {
		if err := s.validateLink(field, value); err != nil {
			return nil, err
		}
	}

	links := make(map[string]string, len(media.SocialLinks))
	for network, link := range media.SocialLinks {
		network = strings.ToLower(strings.TrimSpace(network))
		link = strings.TrimSpace(link)
		if network == "" || link == "" {
			continue
		}
		if err := s.validateLink("socialLinks."+network, link); err != nil {
			return nil, err
		}
		links[network] = link
	}
	media.SocialLinks = links

	return s.updateSection(ctx, identityID, func(ctx context.Context, id string) (*model.Company, error) {
		return s.repo.UpdateMedia(ctx, id, media)
	})
}

// updateSection はセクション更新を実行し、キャンペーンがなければプレースホルダを作成して再実行する。
func (s *Service) updateSection(ctx context.Context, identityID string, update func(context.Context, string) (*model.Company, error)) (*model.Company, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return nil, model.NewMissingIdentityError()
	}

	c, err := update(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("キャンペーンの更新に失敗しました: %w", err)
	}
	if c != nil {
		return c, nil
	}

	if _, err := s.repo.CreatePlaceholder(ctx, uuid.New().String(), identityID); err != nil {
		return nil, fmt.Errorf("プレースホルダの作成に失敗しました: %w", err)
	}
	c, err = update(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("キャンペーンの更新に失敗しました: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("キャンペーンの更新に失敗しました: company for %s disappeared", identityID)
	}
	return c, nil
}

// validateLink は空でないURLをSSRFガードで検証する。
func (s *Service) validateLink(field, link string) error {
	if link == "" || s.urlGuard == nil {
		return nil
	}
	if err := s.urlGuard.ValidateURL(link); err != nil {
		return model.NewInvalidURLError(fmt.Sprintf("%s: %v", field, err))
	}
	return nil
}

// applyBasics はnilでないフィールドを反映し、文字列の前後空白を除去する。
func applyBasics(c *model.Company, b model.CompanyBasics) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&c.Name, b.Name)
	set(&c.Website, b.Website)
	set(&c.Location, b.Location)
	set(&c.OneLiner, b.OneLiner)
	set(&c.Raise.Already, b.RaiseAlready)
	set(&c.Raise.Want, b.RaiseWant)
	if b.Industries != nil {
		c.Industries = normalizeLabels(b.Industries)
	}
	if b.Tags != nil {
		c.Tags = normalizeLabels(b.Tags)
	}
}

// validateBasics は列の上限を超える基本情報を拒否する。
func validateBasics(c *model.Company) error {
	return model.FirstError(
		model.CheckLength("name", c.Name, model.MaxNameLength),
		model.CheckLength("location", c.Location, model.MaxLocationLength),
		model.CheckLength("oneLiner", c.OneLiner, model.MaxOneLinerLength),
	)
}

// normalizeLabels は前後空白を除去し、空要素と重複を取り除く。順序は保持する。
func normalizeLabels(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
