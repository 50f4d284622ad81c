package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/hitoshi/venturex/internal/investment"
	"github.com/hitoshi/venturex/internal/model"
)

// InvestmentServiceInterface は出資意向ハンドラーが必要とするサービスインターフェース。
type InvestmentServiceInterface interface {
	Create(ctx context.Context, in investment.CreateInput) (*model.Investment, error)
	ListByCompany(ctx context.Context, startupName string) ([]model.Investment, error)
	ListByInvestor(ctx context.Context, identityID string) ([]model.Investment, error)
}

// InvestmentHandler は出資意向のHTTPハンドラー。
type InvestmentHandler struct {
	service InvestmentServiceInterface
}

// NewInvestmentHandler はInvestmentHandlerを生成する。
func NewInvestmentHandler(service InvestmentServiceInterface) *InvestmentHandler {
	return &InvestmentHandler{service: service}
}

type createInvestmentRequest struct {
	CompanyID   string  `json:"companyId"`
	StartupName string  `json:"startupName"`
	UserID      string  `json:"userId"`
	Email       string  `json:"email"`
	Amount      float64 `json:"amount"`
	Note        string  `json:"note"`
}

// Create は出資意向を登録する。投資家はuserIdまたはemailで指定する。
// POST /api/investment
func (h *InvestmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createInvestmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	identityID, err := optionalIdentity(r, req.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	inv, err := h.service.Create(r.Context(), investment.CreateInput{
		CompanyID:          req.CompanyID,
		StartupName:        req.StartupName,
		InvestorIdentityID: identityID,
		InvestorEmail:      req.Email,
		Amount:             req.Amount,
		Note:               req.Note,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toInvestmentResponse(inv))
}

// List はキャンペーン（startupName指定）または投資家（userId指定）の出資意向を返す。
// GET /api/investment/list?startupName= | ?userId=
func (h *InvestmentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		items []model.Investment
		err   error
	)
	if startupName := strings.TrimSpace(q.Get("startupName")); startupName != "" {
		items, err = h.service.ListByCompany(r.Context(), startupName)
	} else {
		var identityID string
		identityID, err = callerIdentity(r, q.Get("userId"))
		if err == nil {
			items, err = h.service.ListByInvestor(r.Context(), identityID)
		}
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]investmentResponse, 0, len(items))
	for i := range items {
		resp = append(resp, toInvestmentResponse(&items[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}
