// Package watchlist はユーザーが保存したキャンペーン（ウォッチリスト）の管理を提供する。
package watchlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/venturex/internal/metrics"
	"github.com/hitoshi/venturex/internal/model"
	"github.com/hitoshi/venturex/internal/repository"
)

// UserLookup はユーザー存在確認のインターフェース。
type UserLookup interface {
	FindByIdentityID(ctx context.Context, identityID string) (*model.User, error)
}

// CompanyLookup はキャンペーン存在確認のインターフェース。
type CompanyLookup interface {
	FindByID(ctx context.Context, id string) (*model.Company, error)
}

// Service はウォッチリストのサービス層。
type Service struct {
	repo      repository.WatchlistRepository
	users     UserLookup
	companies CompanyLookup
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// NewService はServiceを生成する。
func NewService(
	repo repository.WatchlistRepository,
	users UserLookup,
	companies CompanyLookup,
	logger *slog.Logger,
	recorder metrics.Recorder,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, users: users, companies: companies, logger: logger, metrics: recorder}
}

// Toggle は登録があれば削除し、なければ登録する。トグル後に保存状態ならtrueを返す。
// 同時実行で挿入が一意制約に当たった場合は保存済みとしてtrueを返し、
// 削除対象が既になかった場合は未保存としてfalseを返す。
func (s *Service) Toggle(ctx context.Context, identityID, companyID string) (bool, error) {
	identityID, companyID = strings.TrimSpace(identityID), strings.TrimSpace(companyID)
	if identityID == "" {
		return false, model.NewMissingIdentityError()
	}
	if companyID == "" {
		return false, model.NewMissingFieldError("companyId")
	}

	// 1. 参照先の存在確認
	if err := s.checkReferences(ctx, identityID, companyID); err != nil {
		return false, err
	}

	// 2. 現在の状態に応じて削除または登録
	exists, err := s.repo.Exists(ctx, identityID, companyID)
	if err != nil {
		return false, fmt.Errorf("ウォッチリストの確認に失敗しました: %w", err)
	}

	var saved bool
	if exists {
		if _, err := s.repo.Delete(ctx, identityID, companyID); err != nil {
			return false, fmt.Errorf("ウォッチリストの削除に失敗しました: %w", err)
		}
		saved = false
	} else {
		err := s.repo.Insert(ctx, &model.WatchlistEntry{
			ID:         uuid.New().String(),
			IdentityID: identityID,
			CompanyID:  companyID,
			CreatedAt:  time.Now().UTC(),
		})
		switch {
		case err == nil, errors.Is(err, repository.ErrDuplicate):
			saved = true
		case errors.Is(err, repository.ErrReferenceNotFound):
			return false, model.NewCompanyNotFoundError(companyID)
		default:
			return false, fmt.Errorf("ウォッチリストの登録に失敗しました: %w", err)
		}
	}

	s.logger.Debug("watchlist toggled",
		slog.String("identity_id", identityID),
		slog.String("company_id", companyID),
		slog.Bool("saved", saved),
	)
	if s.metrics != nil {
		s.metrics.RecordWatchlistToggle(saved)
	}
	return saved, nil
}

// List はユーザーのウォッチリストをキャンペーン付きで新しい順に返す。
func (s *Service) List(ctx context.Context, identityID string) ([]model.WatchlistItem, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return nil, model.NewMissingIdentityError()
	}
	items, err := s.repo.ListByIdentityID(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("ウォッチリストの取得に失敗しました: %w", err)
	}
	return items, nil
}

func (s *Service) checkReferences(ctx context.Context, identityID, companyID string) error {
	u, err := s.users.FindByIdentityID(ctx, identityID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return model.NewUserNotFoundError()
	}

	if _, err := uuid.Parse(companyID); err != nil {
		return model.NewCompanyNotFoundError(companyID)
	}
	c, err := s.companies.FindByID(ctx, companyID)
	if err != nil {
		return fmt.Errorf("キャンペーンの取得に失敗しました: %w", err)
	}
	if c == nil {
		return model.NewCompanyNotFoundError(companyID)
	}
	return nil
}
