package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/venturex/internal/chat"
	"github.com/hitoshi/venturex/internal/investment"
	"github.com/hitoshi/venturex/internal/middleware"
	"github.com/hitoshi/venturex/internal/model"
	"github.com/hitoshi/venturex/internal/user"
)

// --- モック ---

type mockUserService struct {
	syncFn         func(ctx context.Context, in user.SyncInput) (*model.User, error)
	getProfileFn   func(ctx context.Context, identityID string) (*model.User, error)
	saveProgressFn func(ctx context.Context, identityID string, patch model.ProfilePatch, completeStep string) (*model.User, error)
}

func (m *mockUserService) Sync(ctx context.Context, in user.SyncInput) (*model.User, error) {
	return m.syncFn(ctx, in)
}

func (m *mockUserService) GetProfile(ctx context.Context, identityID string) (*model.User, error) {
	return m.getProfileFn(ctx, identityID)
}

func (m *mockUserService) SaveProgress(ctx context.Context, identityID string, patch model.ProfilePatch, completeStep string) (*model.User, error) {
	return m.saveProgressFn(ctx, identityID, patch, completeStep)
}

type mockCompanyResolver struct {
	getStatusFn       func(ctx context.Context, identityID string) (*model.CompanyStatus, error)
	resolveRedirectFn func(ctx context.Context, identityID string) (string, error)
}

func (m *mockCompanyResolver) GetStatus(ctx context.Context, identityID string) (*model.CompanyStatus, error) {
	return m.getStatusFn(ctx, identityID)
}

func (m *mockCompanyResolver) ResolveRedirect(ctx context.Context, identityID string) (string, error) {
	return m.resolveRedirectFn(ctx, identityID)
}

type mockCompanyService struct {
	saveBasicsFn        func(ctx context.Context, identityID string, basics model.CompanyBasics) (*model.Company, error)
	getByIdentityFn     func(ctx context.Context, identityID string) (*model.Company, error)
	getFn               func(ctx context.Context, slug, id string) (*model.Company, error)
	listFn              func(ctx context.Context, filter model.CompanyListFilter) (*model.CompanyPage, error)
	updateDescriptionFn func(ctx context.Context, identityID, rawHTML string) (*model.Company, error)
	updateRoundFn       func(ctx context.Context, identityID string, round model.Round) (*model.Company, error)
	updateTeamFn        func(ctx context.Context, identityID string, team []model.TeamMember) (*model.Company, error)
	updateProductsFn    func(ctx context.Context, identityID string, products []model.Product) (*model.Company, error)
	updateMediaFn       func(ctx context.Context, identityID string, media model.Media) (*model.Company, error)
}

func (m *mockCompanyService) SaveBasics(ctx context.Context, identityID string, basics model.CompanyBasics) (*model.Company, error) {
	return m.saveBasicsFn(ctx, identityID, basics)
}

func (m *mockCompanyService) GetByIdentity(ctx context.Context, identityID string) (*model.Company, error) {
	return m.getByIdentityFn(ctx, identityID)
}

func (m *mockCompanyService) Get(ctx context.Context, slug, id string) (*model.Company, error) {
	return m.getFn(ctx, slug, id)
}

func (m *mockCompanyService) List(ctx context.Context, filter model.CompanyListFilter) (*model.CompanyPage, error) {
	return m.listFn(ctx, filter)
}

func (m *mockCompanyService) UpdateDescription(ctx context.Context, identityID, rawHTML string) (*model.Company, error) {
	return m.updateDescriptionFn(ctx, identityID, rawHTML)
}

func (m *mockCompanyService) UpdateRound(ctx context.Context, identityID string, round model.Round) (*model.Company, error) {
	return m.updateRoundFn(ctx, identityID, round)
}

func (m *mockCompanyService) UpdateTeam(ctx context.Context, identityID string, team []model.TeamMember) (*model.Company, error) {
	return m.updateTeamFn(ctx, identityID, team)
}

func (m *mockCompanyService) UpdateProducts(ctx context.Context, identityID string, products []model.Product) (*model.Company, error) {
	return m.updateProductsFn(ctx, identityID, products)
}

func (m *mockCompanyService) UpdateMedia(ctx context.Context, identityID string, media model.Media) (*model.Company, error) {
	return m.updateMediaFn(ctx, identityID, media)
}

type mockInvestmentService struct {
	createFn         func(ctx context.Context, in investment.CreateInput) (*model.Investment, error)
	listByCompanyFn  func(ctx context.Context, startupName string) ([]model.Investment, error)
	listByInvestorFn func(ctx context.Context, identityID string) ([]model.Investment, error)
}

func (m *mockInvestmentService) Create(ctx context.Context, in investment.CreateInput) (*model.Investment, error) {
	return m.createFn(ctx, in)
}

func (m *mockInvestmentService) ListByCompany(ctx context.Context, startupName string) ([]model.Investment, error) {
	return m.listByCompanyFn(ctx, startupName)
}

func (m *mockInvestmentService) ListByInvestor(ctx context.Context, identityID string) ([]model.Investment, error) {
	return m.listByInvestorFn(ctx, identityID)
}

type mockWatchlistService struct {
	toggleFn func(ctx context.Context, identityID, companyID string) (bool, error)
	listFn   func(ctx context.Context, identityID string) ([]model.WatchlistItem, error)
}

func (m *mockWatchlistService) Toggle(ctx context.Context, identityID, companyID string) (bool, error) {
	return m.toggleFn(ctx, identityID, companyID)
}

func (m *mockWatchlistService) List(ctx context.Context, identityID string) ([]model.WatchlistItem, error) {
	return m.listFn(ctx, identityID)
}

type mockUploadService struct {
	uploadDataURIFn func(ctx context.Context, kind, file, folder string) (string, error)
	uploadRemoteFn  func(ctx context.Context, rawURL, folder string) (string, error)
}

func (m *mockUploadService) UploadDataURI(ctx context.Context, kind, file, folder string) (string, error) {
	return m.uploadDataURIFn(ctx, kind, file, folder)
}

func (m *mockUploadService) UploadRemote(ctx context.Context, rawURL, folder string) (string, error) {
	return m.uploadRemoteFn(ctx, rawURL, folder)
}

type mockChatService struct {
	issueTokenFn  func(ctx context.Context, userID string) (*chat.Token, error)
	openChannelFn func(ctx context.Context, userID, startupName string) (*chat.Channel, error)
}

func (m *mockChatService) IssueToken(ctx context.Context, userID string) (*chat.Token, error) {
	return m.issueTokenFn(ctx, userID)
}

func (m *mockChatService) OpenChannel(ctx context.Context, userID, startupName string) (*chat.Channel, error) {
	return m.openChannelFn(ctx, userID, startupName)
}

// --- ヘルパー ---

// withVerifiedIdentity はIdPトークン検証済みの呼び出し元をリクエストに注入する。
func withVerifiedIdentity(req *http.Request, identityID string) *http.Request {
	ctx := middleware.ContextWithIdentity(req.Context(), middleware.Identity{ID: identityID, Verified: true})
	return req.WithContext(ctx)
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v\nraw: %s", err, w.Body.String())
	}
	return v
}

func assertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Errorf("status = %d, want %d (body: %s)", w.Code, status, w.Body.String())
	}
	body := decodeBody[middleware.ErrorResponseBody](t, w)
	if body.Code != code {
		t.Errorf("code = %q, want %q", body.Code, code)
	}
}
