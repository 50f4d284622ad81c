// Package user はIdP連携ユーザーの同期とオンボーディングプロフィールのドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/venturex/internal/model"
	"github.com/hitoshi/venturex/internal/repository"
	"github.com/hitoshi/venturex/internal/taxid"
)

// TaxIDVerifier は税番号の検証インターフェース。
// 検証できなかった場合はfalseを返し、エラーは返さない。
type TaxIDVerifier interface {
	Verify(ctx context.Context, taxID string) bool
}

// SyncInput はIdPからのサインイン情報。
type SyncInput struct {
	IdentityID string
	Email      string
	Name       string
	ImageURL   string
}

// Service はユーザー同期とオンボーディングのサービス層。
type Service struct {
	repo     repository.UserRepository
	verifier TaxIDVerifier
	logger   *slog.Logger
}

// NewService はServiceを生成する。verifierがnilの場合、税番号は常に未検証となる。
func NewService(repo repository.UserRepository, verifier TaxIDVerifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, verifier: verifier, logger: logger}
}

// Sync はサインイン情報でユーザーをUPSERTする。
// 同じメールアドレスのユーザーが別のIdP IDで存在する場合は、そのユーザーにIDを付け替える。
func (s *Service) Sync(ctx context.Context, in SyncInput) (*model.User, error) {
	in.IdentityID = strings.TrimSpace(in.IdentityID)
	in.Email = normalizeEmail(in.Email)
	if in.IdentityID == "" {
		return nil, model.NewMissingIdentityError()
	}
	if in.Email == "" {
		return nil, model.NewMissingFieldError("email")
	}
	if err := model.FirstError(
		model.CheckLength("userId", in.IdentityID, model.MaxIdentityLength),
		model.CheckLength("email", in.Email, model.MaxEmailLength),
		model.CheckLength("name", strings.TrimSpace(in.Name), model.MaxNameLength),
	); err != nil {
		return nil, err
	}

	u, err := s.repo.SyncIdentity(ctx, &model.User{
		IdentityID: in.IdentityID,
		Email:      in.Email,
		Name:       strings.TrimSpace(in.Name),
		ImageURL:   strings.TrimSpace(in.ImageURL),
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, model.NewInvalidFieldError("email", "already linked to another account")
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの同期に失敗しました: %w", err)
	}
	return u, nil
}

// GetProfile はユーザーのプロフィールを返す。存在しない場合はUSER_NOT_FOUNDを返す。
func (s *Service) GetProfile(ctx context.Context, identityID string) (*model.User, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return nil, model.NewMissingIdentityError()
	}
	u, err := s.repo.FindByIdentityID(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError()
	}
	return u, nil
}

// SaveProgress はオンボーディングの部分更新を保存する。初回保存時はユーザーを作成する。
//   - 税番号が変わった場合はベストエフォートで検証し、結果に関わらず保存は続行する
//   - completeStepが指定された場合はウィザードの状態を進める
func (s *Service) SaveProgress(ctx context.Context, identityID string, patch model.ProfilePatch, completeStep string) (*model.User, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return nil, model.NewMissingIdentityError()
	}
	if err := model.CheckLength("userId", identityID, model.MaxIdentityLength); err != nil {
		return nil, err
	}

	// 1. 既存ユーザーを読み込む（なければ新規）
	u, err := s.repo.FindByIdentityID(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		u = &model.User{IdentityID: identityID, Notifications: true}
	}
	previousTaxID := u.TaxID

	// 2. 入力を正規化・検証する
	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		patch.Email = &email
	}
	if patch.Interests != nil {
		patch.Interests = normalizeInterests(patch.Interests)
	}
	if patch.TaxID != nil {
		normalized := taxid.Normalize(*patch.TaxID)
		patch.TaxID = &normalized
	}
	if err := validatePlan(u, patch); err != nil {
		return nil, err
	}
	if err := validateLengths(patch); err != nil {
		return nil, err
	}

	// 3. ウィザードの状態を進める
	if strings.TrimSpace(completeStep) != "" {
		next, err := advanceStep(u.OnboardingStep, strings.TrimSpace(completeStep))
		if err != nil {
			return nil, err
		}
		u.OnboardingStep = next
	}

	patch.Apply(u)

	// 4. 税番号の検証（変更時のみ）
	if patch.TaxID != nil && (u.TaxID != previousTaxID || !u.TaxIDVerified) {
		u.TaxIDVerified = s.verifyTaxID(ctx, u.TaxID)
	}

	// 5. 保存
	saved, err := s.repo.Save(ctx, u)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, model.NewInvalidFieldError("email", "already linked to another account")
	}
	if err != nil {
		return nil, fmt.Errorf("プロフィールの保存に失敗しました: %w", err)
	}
	return saved, nil
}

func (s *Service) verifyTaxID(ctx context.Context, taxID string) bool {
	if taxID == "" || s.verifier == nil {
		return false
	}
	verified := s.verifier.Verify(ctx, taxID)
	if !verified {
		s.logger.Info("tax id left unverified")
	}
	return verified
}

// validatePlan は投資計画の範囲を検証する。
func validatePlan(u *model.User, patch model.ProfilePatch) error {
	from, to := u.PlanFrom, u.PlanTo
	if patch.PlanFrom != nil {
		from = patch.PlanFrom
	}
	if patch.PlanTo != nil {
		to = patch.PlanTo
	}
	if from != nil && *from < 0 {
		return model.NewInvalidFieldError("planFrom", "must not be negative")
	}
	if to != nil && *to < 0 {
		return model.NewInvalidFieldError("planTo", "must not be negative")
	}
	if from != nil && to != nil && *from > *to {
		return model.NewInvalidFieldError("planTo", "must not be less than planFrom")
	}
	if patch.PlanFrom != nil {
		if err := model.CheckAmountRange("planFrom", *patch.PlanFrom); err != nil {
			return err
		}
	}
	if patch.PlanTo != nil {
		if err := model.CheckAmountRange("planTo", *patch.PlanTo); err != nil {
			return err
		}
	}
	return nil
}

// validateLengths は列の上限を超える文字列フィールドを拒否する。
func validateLengths(patch model.ProfilePatch) error {
	limits := []struct {
		field string
		value *string
		max   int
	}{
		{"email", patch.Email, model.MaxEmailLength},
		{"name", patch.Name, model.MaxNameLength},
		{"birthday", patch.Birthday, model.MaxBirthdayLength},
		{"address.street", patch.Street, model.MaxAddressLength},
		{"address.city", patch.City, model.MaxAddressLength},
		{"address.region", patch.Region, model.MaxAddressLength},
		{"address.country", patch.Country, model.MaxAddressLength},
		{"annualInvestmentRange", patch.AnnualInvestmentRange, model.MaxInvestmentRangeLength},
		{"taxId", patch.TaxID, model.MaxTaxIDLength},
	}
	for _, l := range limits {
		if l.value == nil {
			continue
		}
		if err := model.CheckLength(l.field, strings.TrimSpace(*l.value), l.max); err != nil {
			return err
		}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizeInterests は空要素と重複を除いたカテゴリ集合を返す。
func normalizeInterests(values []string) []string {
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
