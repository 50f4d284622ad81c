package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/venturex/internal/chat"
)

// ChatServiceInterface はチャットハンドラーが必要とするサービスインターフェース。
type ChatServiceInterface interface {
	IssueToken(ctx context.Context, userID string) (*chat.Token, error)
	OpenChannel(ctx context.Context, userID, startupName string) (*chat.Channel, error)
}

// ChatHandler はチャットSaaSを中継するHTTPハンドラー。
type ChatHandler struct {
	service ChatServiceInterface
}

// NewChatHandler はChatHandlerを生成する。
func NewChatHandler(service ChatServiceInterface) *ChatHandler {
	return &ChatHandler{service: service}
}

type chatTokenRequest struct {
	UserID string `json:"userId"`
}

type chatChannelRequest struct {
	UserID      string `json:"userId"`
	StartupName string `json:"startupName"`
}

type chatTokenResponse struct {
	Token  string `json:"token"`
	APIKey string `json:"apiKey"`
}

type chatChannelResponse struct {
	ChannelID string   `json:"channelId"`
	Type      string   `json:"type"`
	Members   []string `json:"members"`
}

// Token はチャットウィジェットの接続トークンを発行する。
// POST /api/chat/token
func (h *ChatHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req chatTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	identityID, err := callerIdentity(r, req.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	token, err := h.service.IssueToken(r.Context(), identityID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, chatTokenResponse{Token: token.Token, APIKey: token.APIKey})
}

// Channel は投資家とキャンペーン所有者の1対1チャンネルを作成する。
// POST /api/chat/channel
func (h *ChatHandler) Channel(w http.ResponseWriter, r *http.Request) {
	var req chatChannelRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	identityID, err := callerIdentity(r, req.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	ch, err := h.service.OpenChannel(r.Context(), identityID, req.StartupName)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, chatChannelResponse{ChannelID: ch.ID, Type: ch.Type, Members: ch.Members})
}
