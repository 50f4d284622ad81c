package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/venturex/internal/model"
)

// WatchlistServiceInterface はウォッチリストハンドラーが必要とするサービスインターフェース。
type WatchlistServiceInterface interface {
	Toggle(ctx context.Context, identityID, companyID string) (bool, error)
	List(ctx context.Context, identityID string) ([]model.WatchlistItem, error)
}

// WatchlistHandler はウォッチリストのHTTPハンドラー。
type WatchlistHandler struct {
	service WatchlistServiceInterface
}

// NewWatchlistHandler はWatchlistHandlerを生成する。
func NewWatchlistHandler(service WatchlistServiceInterface) *WatchlistHandler {
	return &WatchlistHandler{service: service}
}

type toggleRequest struct {
	UserID    string `json:"userId"`
	CompanyID string `json:"companyId"`
}

// List は保存済みキャンペーンを新しい順に返す。
// GET /api/watchlist/list?userId=
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	identityID, err := callerIdentity(r, r.URL.Query().Get("userId"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	items, err := h.service.List(r.Context(), identityID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]watchlistItemResponse, 0, len(items))
	for i := range items {
		resp = append(resp, watchlistItemResponse{
			SavedAt: items[i].SavedAt,
			Company: toCompanySummaryResponse(&items[i].Company),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Toggle はキャンペーンの保存状態を切り替える。
// POST /api/watchlist/toggle
func (h *WatchlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	identityID, err := callerIdentity(r, req.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	saved, err := h.service.Toggle(r.Context(), identityID, req.CompanyID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"saved": saved})
}
