// Package repository はデータ永続化のインターフェースとPostgreSQL実装を提供する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/venturex/internal/model"
)

// ErrDuplicate は一意制約違反を表す。
var ErrDuplicate = errors.New("duplicate key")

// ErrReferenceNotFound は外部キーの参照先が存在しないことを表す。
var ErrReferenceNotFound = errors.New("referenced record not found")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByIdentityID はIdPのIDでユーザーを取得する。見つからない場合はnilを返す。
	FindByIdentityID(ctx context.Context, identityID string) (*model.User, error)

	// SyncIdentity はIdPからのサインイン情報でユーザーをUPSERTする。
	// identity_idが既存ならその行を更新し、なければemailで検索してidentity_idを付け替える。
	// どちらもなければ新規作成する。
	SyncIdentity(ctx context.Context, user *model.User) (*model.User, error)

	// Save はユーザーのプロフィール全体をidentity_idをキーにUPSERTする。
	Save(ctx context.Context, user *model.User) (*model.User, error)
}

// CompanyRepository はキャンペーンデータの永続化インターフェース。
type CompanyRepository interface {
	// FindByIdentityID は所有者のIDでキャンペーンを取得する。見つからない場合はnilを返す。
	FindByIdentityID(ctx context.Context, identityID string) (*model.Company, error)

	// FindByID は指定IDのキャンペーンを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Company, error)

	// FindBySlug はスラッグでキャンペーンを取得する。
	// 同じスラッグが複数ある場合は最も古いものを返す。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Company, error)

	// CountBySlug は指定スラッグを持つキャンペーン数を返す。
	CountBySlug(ctx context.Context, slug string) (int, error)

	// CreatePlaceholder は所有者IDのみのキャンペーンを作成する。
	// 既に存在する場合は何もせずfalseを返す。
	CreatePlaceholder(ctx context.Context, id, identityID string) (bool, error)

	// UpdateSlug はスラッグを更新する。
	UpdateSlug(ctx context.Context, id, slug string) error

	// UpsertBasics は基本情報（名前、スラッグ、所在地、業種、調達額など）をidentity_idをキーにUPSERTする。
	UpsertBasics(ctx context.Context, company *model.Company) (*model.Company, error)

	// UpdateDescription は説明文を更新する。キャンペーンが存在しない場合はnilを返す。
	UpdateDescription(ctx context.Context, identityID, description string) (*model.Company, error)

	// UpdateRound はラウンド条件を更新する。キャンペーンが存在しない場合はnilを返す。
	UpdateRound(ctx context.Context, identityID string, round model.Round) (*model.Company, error)

	// UpdateTeam はチーム構成を置き換える。キャンペーンが存在しない場合はnilを返す。
	UpdateTeam(ctx context.Context, identityID string, team []model.TeamMember) (*model.Company, error)

	// UpdateProducts はプロダクト一覧を置き換える。キャンペーンが存在しない場合はnilを返す。
	UpdateProducts(ctx context.Context, identityID string, products []model.Product) (*model.Company, error)

	// UpdateMedia はメディアURLを更新する。キャンペーンが存在しない場合はnilを返す。
	UpdateMedia(ctx context.Context, identityID string, media model.Media) (*model.Company, error)

	// List は名前付きキャンペーンを検索条件で絞り込み、作成日時の降順で返す。
	List(ctx context.Context, filter model.CompanyListFilter) ([]model.Company, int, error)
}

// InvestmentRepository は出資意向データの永続化インターフェース。
type InvestmentRepository interface {
	// Create は出資意向を作成する。
	Create(ctx context.Context, investment *model.Investment) error

	// ListByCompanyID はキャンペーンの出資意向を作成日時の降順で返す。
	ListByCompanyID(ctx context.Context, companyID string) ([]model.Investment, error)

	// ListByInvestor は投資家の出資意向を作成日時の降順で返す。
	ListByInvestor(ctx context.Context, identityID string) ([]model.Investment, error)
}

// WatchlistRepository はウォッチリストの永続化インターフェース。
type WatchlistRepository interface {
	// Exists は(identityID, companyID)の登録があるかを返す。
	Exists(ctx context.Context, identityID, companyID string) (bool, error)

	// Insert は登録を作成する。一意制約違反の場合はErrDuplicateを返す。
	Insert(ctx context.Context, entry *model.WatchlistEntry) error

	// Delete は登録を削除し、削除した行があったかを返す。
	Delete(ctx context.Context, identityID, companyID string) (bool, error)

	// ListByIdentityID はユーザーのウォッチリストをキャンペーン付きで新しい順に返す。
	ListByIdentityID(ctx context.Context, identityID string) ([]model.WatchlistItem, error)
}
