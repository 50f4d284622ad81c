package chat

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/hitoshi/venturex/internal/metrics"
	"github.com/hitoshi/venturex/internal/model"
)

// Gateway はチャットSaaSの操作インターフェース。
type Gateway interface {
	APIKey() string
	UserToken(userID string) (string, error)
	UpsertUsers(ctx context.Context, userIDs ...string) error
	CreateChannel(ctx context.Context, channelID, createdBy string, members []string, data map[string]string) error
}

// CompanyLookup はスラッグからキャンペーンを引くインターフェース。
type CompanyLookup interface {
	FindBySlug(ctx context.Context, slug string) (*model.Company, error)
}

// Token はクライアントウィジェットの接続情報。
type Token struct {
	Token  string
	APIKey string
}

// Channel は作成したチャンネルを表す。
type Channel struct {
	ID      string
	Type    string
	Members []string
}

// Service は投資家と起業家の1対1チャットを仲介する。
// gatewayがnilの場合はチャット機能が無効で、各操作はSERVICE_UNAVAILABLEを返す。
type Service struct {
	gateway   Gateway
	companies CompanyLookup
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// NewService はServiceを生成する。
func NewService(gateway Gateway, companies CompanyLookup, logger *slog.Logger, recorder metrics.Recorder) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gateway: gateway, companies: companies, logger: logger, metrics: recorder}
}

// IssueToken はユーザーのチャット接続トークンを発行する。
func (s *Service) IssueToken(ctx context.Context, userID string) (*Token, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, model.NewMissingIdentityError()
	}
	if s.gateway == nil {
		return nil, model.NewServiceUnavailableError("chat")
	}

	if err := s.gateway.UpsertUsers(ctx, userID); err != nil {
		return nil, s.unavailable("upsert user", err)
	}
	token, err := s.gateway.UserToken(userID)
	if err != nil {
		return nil, s.unavailable("sign token", err)
	}
	return &Token{Token: token, APIKey: s.gateway.APIKey()}, nil
}

// OpenChannel はユーザーとキャンペーン所有者の1対1チャンネルを作成する。
// チャンネルIDはメンバーとスラッグから決定的に導出するため、同じ組み合わせでは同じチャンネルになる。
func (s *Service) OpenChannel(ctx context.Context, userID, startupName string) (*Channel, error) {
	userID, startupName = strings.TrimSpace(userID), strings.TrimSpace(startupName)
	if userID == "" {
		return nil, model.NewMissingIdentityError()
	}
	if startupName == "" {
		return nil, model.NewMissingFieldError("startupName")
	}
	if s.gateway == nil {
		return nil, model.NewServiceUnavailableError("chat")
	}

	// 1. 相手（キャンペーン所有者）を解決
	c, err := s.companies.FindBySlug(ctx, startupName)
	if err != nil {
		return nil, fmt.Errorf("キャンペーンの取得に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewCompanyNotFoundError(startupName)
	}

	members := uniqueSorted(userID, c.IdentityID)
	channelID := ChannelID(members, startupName)

	// 2. メンバー登録とチャンネル作成
	if err := s.gateway.UpsertUsers(ctx, members...); err != nil {
		return nil, s.unavailable("upsert members", err)
	}
	data := map[string]string{"startup_name": startupName, "company_id": c.ID}
	if c.Name != "" {
		data["name"] = c.Name
	}
	if err := s.gateway.CreateChannel(ctx, channelID, userID, members, data); err != nil {
		return nil, s.unavailable("create channel", err)
	}

	return &Channel{ID: channelID, Type: ChannelType, Members: members}, nil
}

func (s *Service) unavailable(op string, err error) error {
	s.logger.Error("chat service call failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
	if s.metrics != nil {
		s.metrics.RecordExternalFailure("chat")
	}
	return model.NewChatUnavailableError()
}

// ChannelID はソート済みメンバーとスラッグからチャンネルIDを導出する。
func ChannelID(members []string, startupName string) string {
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)
	sum := sha1.Sum([]byte(strings.Join(sorted, "|") + "|" + startupName))
	return "dm-" + hex.EncodeToString(sum[:])
}

func uniqueSorted(ids ...string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
