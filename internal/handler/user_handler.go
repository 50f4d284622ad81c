package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/venturex/internal/model"
	"github.com/hitoshi/venturex/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Sync はサインイン情報でユーザーをUPSERTする。
	Sync(ctx context.Context, in user.SyncInput) (*model.User, error)
	// GetProfile はプロフィールを返す。
	GetProfile(ctx context.Context, identityID string) (*model.User, error)
	// SaveProgress はオンボーディングの部分更新を保存する。
	SaveProgress(ctx context.Context, identityID string, patch model.ProfilePatch, completeStep string) (*model.User, error)
}

// UserHandler はサインイン同期とオンボーディングのHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

type syncRequest struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
}

type addressPatch struct {
	Street  *string `json:"street"`
	City    *string `json:"city"`
	Region  *string `json:"region"`
	Country *string `json:"country"`
}

// welcomePatchRequest はオンボーディングの部分更新リクエスト。
// 省略したフィールドは変更しない。
type welcomePatchRequest struct {
	UserID                string        `json:"userId"`
	Email                 *string       `json:"email"`
	Name                  *string       `json:"name"`
	Birthday              *string       `json:"birthday"`
	Address               *addressPatch `json:"address"`
	Interests             []string      `json:"interests"`
	PlanFrom              *float64      `json:"planFrom"`
	PlanTo                *float64      `json:"planTo"`
	AnnualInvestmentRange *string       `json:"annualInvestmentRange"`
	Notifications         *bool         `json:"notifications"`
	ImageURL              *string       `json:"imageUrl"`
	Bio                   *string       `json:"bio"`
	WebsiteURL            *string       `json:"websiteUrl"`
	TaxID                 *string       `json:"taxId"`
	CompleteStep          string        `json:"completeStep"`
}

func (req *welcomePatchRequest) toPatch() model.ProfilePatch {
	patch := model.ProfilePatch{
		Email:                 req.Email,
		Name:                  req.Name,
		Birthday:              req.Birthday,
		Interests:             req.Interests,
		PlanFrom:              req.PlanFrom,
		PlanTo:                req.PlanTo,
		AnnualInvestmentRange: req.AnnualInvestmentRange,
		Notifications:         req.Notifications,
		ImageURL:              req.ImageURL,
		Bio:                   req.Bio,
		WebsiteURL:            req.WebsiteURL,
		TaxID:                 req.TaxID,
	}
	if req.Address != nil {
		patch.Street = req.Address.Street
		patch.City = req.Address.City
		patch.Region = req.Address.Region
		patch.Country = req.Address.Country
	}
	return patch
}

// Sync はIdPでのサインイン後にプロフィールを同期する。
// POST /api/auth/sync
func (h *UserHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	identityID, err := callerIdentity(r, req.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	u, err := h.service.Sync(r.Context(), user.SyncInput{
		IdentityID: identityID,
		Email:      req.Email,
		Name:       req.Name,
		ImageURL:   req.ImageURL,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(u))
}

// GetWelcome はオンボーディング中のプロフィールを返す。
// GET /api/welcome?userId=
func (h *UserHandler) GetWelcome(w http.ResponseWriter, r *http.Request) {
	identityID, err := callerIdentity(r, r.URL.Query().Get("userId"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	u, err := h.service.GetProfile(r.Context(), identityID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(u))
}

// PatchWelcome はオンボーディングの途中経過を保存する。
// PATCH /api/welcome
func (h *UserHandler) PatchWelcome(w http.ResponseWriter, r *http.Request) {
	var req welcomePatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	identityID, err := callerIdentity(r, req.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	u, err := h.service.SaveProgress(r.Context(), identityID, req.toPatch(), req.CompleteStep)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(u))
}
