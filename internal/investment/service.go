// Package investment は出資意向（プレッジ）の作成と一覧取得を提供する。
// 決済・確定処理は行わず、作成された出資意向は常にpendingとなる。
package investment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/venturex/internal/metrics"
	"github.com/hitoshi/venturex/internal/model"
	"github.com/hitoshi/venturex/internal/repository"
)

// CompanyLookup はキャンペーン参照のインターフェース。
type CompanyLookup interface {
	FindByID(ctx context.Context, id string) (*model.Company, error)
	FindBySlug(ctx context.Context, slug string) (*model.Company, error)
}

// CreateInput は出資意向の作成リクエスト。
// キャンペーンはCompanyIDまたはStartupNameで指定する（CompanyID優先）。
type CreateInput struct {
	CompanyID          string
	StartupName        string
	InvestorIdentityID string
	InvestorEmail      string
	Amount             float64
	Note               string
}

// Service は出資意向のサービス層。
type Service struct {
	repo      repository.InvestmentRepository
	companies CompanyLookup
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// NewService はServiceを生成する。
func NewService(repo repository.InvestmentRepository, companies CompanyLookup, logger *slog.Logger, recorder metrics.Recorder) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, companies: companies, logger: logger, metrics: recorder}
}

// Create は出資意向を作成する。
// 金額は正の値で、ラウンドに最低出資額が設定されていればそれ以上でなければならない。
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Investment, error) {
	in.InvestorIdentityID = strings.TrimSpace(in.InvestorIdentityID)
	in.InvestorEmail = strings.ToLower(strings.TrimSpace(in.InvestorEmail))

	// 1. 入力検証
	if in.InvestorIdentityID == "" && in.InvestorEmail == "" {
		return nil, model.NewMissingIdentityError()
	}
	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) || in.Amount <= 0 {
		return nil, model.NewInvalidAmountError()
	}
	if err := model.FirstError(
		model.CheckAmountRange("amount", in.Amount),
		model.CheckLength("userId", in.InvestorIdentityID, model.MaxIdentityLength),
		model.CheckLength("email", in.InvestorEmail, model.MaxEmailLength),
	); err != nil {
		return nil, err
	}

	// 2. キャンペーン解決
	c, err := s.resolveCompany(ctx, in.CompanyID, in.StartupName)
	if err != nil {
		return nil, err
	}
	if minimum := c.Round.MinInvestment; minimum > 0 && in.Amount < minimum {
		return nil, model.NewBelowMinimumInvestmentError(minimum)
	}

	// 3. 作成
	inv := &model.Investment{
		ID:                 uuid.New().String(),
		CompanyID:          c.ID,
		StartupName:        c.StartupName,
		InvestorIdentityID: in.InvestorIdentityID,
		InvestorEmail:      in.InvestorEmail,
		Amount:             in.Amount,
		Note:               strings.TrimSpace(in.Note),
		Status:             model.InvestmentStatusPending,
		CreatedAt:          time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		if errors.Is(err, repository.ErrReferenceNotFound) {
			return nil, model.NewCompanyNotFoundError(c.ID)
		}
		return nil, fmt.Errorf("出資意向の作成に失敗しました: %w", err)
	}

	s.logger.Info("investment pledged",
		slog.String("investment_id", inv.ID),
		slog.String("company_id", inv.CompanyID),
		slog.Float64("amount", inv.Amount),
	)
	if s.metrics != nil {
		s.metrics.RecordInvestment(inv.Amount)
	}
	return inv, nil
}

// ListByCompany はスラッグで指定したキャンペーンの出資意向を新しい順に返す。
func (s *Service) ListByCompany(ctx context.Context, startupName string) ([]model.Investment, error) {
	c, err := s.resolveCompany(ctx, "", startupName)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListByCompanyID(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("出資意向一覧の取得に失敗しました: %w", err)
	}
	return items, nil
}

// ListByInvestor は投資家の出資意向（ポートフォリオ）を新しい順に返す。
func (s *Service) ListByInvestor(ctx context.Context, identityID string) ([]model.Investment, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return nil, model.NewMissingIdentityError()
	}
	items, err := s.repo.ListByInvestor(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("出資意向一覧の取得に失敗しました: %w", err)
	}
	return items, nil
}

func (s *Service) resolveCompany(ctx context.Context, companyID, startupName string) (*model.Company, error) {
	companyID, startupName = strings.TrimSpace(companyID), strings.TrimSpace(startupName)

	var (
		c   *model.Company
		err error
		ref string
	)
	switch {
	case companyID != "":
		ref = companyID
		if _, parseErr := uuid.Parse(companyID); parseErr != nil {
			return nil, model.NewCompanyNotFoundError(ref)
		}
		c, err = s.companies.FindByID(ctx, companyID)
	case startupName != "":
		ref = startupName
		c, err = s.companies.FindBySlug(ctx, startupName)
	default:
		return nil, model.NewMissingFieldError("startupName")
	}
	if err != nil {
		return nil, fmt.Errorf("キャンペーンの取得に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewCompanyNotFoundError(ref)
	}
	return c, nil
}
