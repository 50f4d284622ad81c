package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/hitoshi/venturex/internal/model"
)

// CompanyResolverInterface はキャンペーン作成状況と遷移先を解決するインターフェース。
type CompanyResolverInterface interface {
	GetStatus(ctx context.Context, identityID string) (*model.CompanyStatus, error)
	ResolveRedirect(ctx context.Context, identityID string) (string, error)
}

// CompanyServiceInterface はキャンペーン編集・閲覧のサービスインターフェース。
type CompanyServiceInterface interface {
	SaveBasics(ctx context.Context, identityID string, basics model.CompanyBasics) (*model.Company, error)
	GetByIdentity(ctx context.Context, identityID string) (*model.Company, error)
	Get(ctx context.Context, slug, id string) (*model.Company, error)
	List(ctx context.Context, filter model.CompanyListFilter) (*model.CompanyPage, error)
	UpdateDescription(ctx context.Context, identityID, rawHTML string) (*model.Company, error)
	UpdateRound(ctx context.Context, identityID string, round model.Round) (*model.Company, error)
	UpdateTeam(ctx context.Context, identityID string, team []model.TeamMember) (*model.Company, error)
	UpdateProducts(ctx context.Context, identityID string, products []model.Product) (*model.Company, error)
	UpdateMedia(ctx context.Context, identityID string, media model.Media) (*model.Company, error)
}

// CompanyHandler はキャンペーン関連のHTTPハンドラー。
type CompanyHandler struct {
	resolver CompanyResolverInterface
	service  CompanyServiceInterface
}

// NewCompanyHandler はCompanyHandlerを生成する。
func NewCompanyHandler(resolver CompanyResolverInterface, service CompanyServiceInterface) *CompanyHandler {
	return &CompanyHandler{resolver: resolver, service: service}
}

type raisePatch struct {
	Already *string `json:"already"`
	Want    *string `json:"want"`
}

// basicsRequest はキャンペーン基本情報の保存リクエスト。
type basicsRequest struct {
	UserID     string      `json:"userId"`
	Name       *string     `json:"name"`
	Website    *string     `json:"website"`
	Location   *string     `json:"location"`
	OneLiner   *string     `json:"oneLiner"`
	Industries []string    `json:"industries"`
	Tags       []string    `json:"tags"`
	Raise      *raisePatch `json:"raise"`
}

func (req *basicsRequest) toBasics() model.CompanyBasics {
	basics := model.CompanyBasics{
		Name:       req.Name,
		Website:    req.Website,
		Location:   req.Location,
		OneLiner:   req.OneLiner,
		Industries: req.Industries,
		Tags:       req.Tags,
	}
	if req.Raise != nil {
		basics.RaiseAlready = req.Raise.Already
		basics.RaiseWant = req.Raise.Want
	}
	return basics
}

type descriptionRequest struct {
	UserID      string `json:"userId"`
	Description string `json:"description"`
}

type roundRequest struct {
	UserID        string  `json:"userId"`
	DaysLeft      int     `json:"daysLeft"`
	Target        float64 `json:"target"`
	MinInvestment float64 `json:"minInvestment"`
	Live          bool    `json:"live"`
}

type teamRequest struct {
	UserID string             `json:"userId"`
	Team   []model.TeamMember `json:"team"`
}

type productsRequest struct {
	UserID   string          `json:"userId"`
	Products []model.Product `json:"products"`
}

type mediaRequest struct {
	UserID      string            `json:"userId"`
	CoverPhoto  string            `json:"coverPhoto"`
	CoverVideo  string            `json:"coverVideo"`
	Logo        string            `json:"logo"`
	SocialLinks map[string]string `json:"socialLinks"`
}

// Status はキャンペーンの作成状況を返す。
// GET /api/company/status?userId=
func (h *CompanyHandler) Status(w http.ResponseWriter, r *http.Request) {
	identityID, err := callerIdentity(r, r.URL.Query().Get("userId"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	status, err := h.resolver.GetStatus(r.Context(), identityID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toStatusResponse(status))
}

// Redirect はキャンペーン編集画面の遷移先を返す。
// GET /api/company/redirect?userId=
func (h *CompanyHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	identityID, err := callerIdentity(r, r.URL.Query().Get("userId"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	path, err := h.resolver.ResolveRedirect(r.Context(), identityID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"redirect": path})
}

// Save はキャンペーン基本情報を保存する。
// POST /api/company/save, PATCH /api/raise_money/start
func (h *CompanyHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req basicsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	identityID, err := callerIdentity(r, req.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	c, err := h.service.SaveBasics(r.Context(), identityID, req.toBasics())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCompanyResponse(c))
}

// Get はスラッグまたはIDでキャンペーンを返す。
// GET /api/company/get?slug= | ?id=
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	c, err := h.service.Get(r.Context(), q.Get("slug"), q.Get("id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCompanyResponse(c))
}

// List は名前付きキャンペーンの一覧を返す。
// GET /api/company/list?industries=&q=&live=&limit=&skip=
func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	page, err := h.service.List(r.Context(), filter)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	items := make([]companySummaryResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, toCompanySummaryResponse(&page.Items[i]))
	}
	writeJSON(w, http.StatusOK, companyListResponse{
		Items: items,
		Total: page.Total,
		Limit: page.Limit,
		Skip:  page.Skip,
	})
}

// Mine は呼び出し元のキャンペーンを返す。
// GET /api/raise_money/start?userId=
func (h *CompanyHandler) Mine(w http.ResponseWriter, r *http.Request) {
	identityID, err := callerIdentity(r, r.URL.Query().Get("userId"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	c, err := h.service.GetByIdentity(r.Context(), identityID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCompanyResponse(c))
}

// UpdateDescription はリッチテキストの説明文を保存する。
// PATCH /api/raise_money/description
func (h *CompanyHandler) UpdateDescription(w http.ResponseWriter, r *http.Request) {
	var req descriptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.updateSection(w, r, req.UserID, func(ctx context.Context, identityID string) (*model.Company, error) {
		return h.service.UpdateDescription(ctx, identityID, req.Description)
	})
}

// UpdateRound は募集ラウンドの条件を保存する。
// PATCH /api/raise_money/round
func (h *CompanyHandler) UpdateRound(w http.ResponseWriter, r *http.Request) {
	var req roundRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.updateSection(w, r, req.UserID, func(ctx context.Context, identityID string) (*model.Company, error) {
		return h.service.UpdateRound(ctx, identityID, model.Round{
			DaysLeft:      req.DaysLeft,
			Target:        req.Target,
			MinInvestment: req.MinInvestment,
			Live:          req.Live,
		})
	})
}

// UpdateTeam はチームメンバーを置き換える。
// PATCH /api/raise_money/team
func (h *CompanyHandler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.updateSection(w, r, req.UserID, func(ctx context.Context, identityID string) (*model.Company, error) {
		return h.service.UpdateTeam(ctx, identityID, req.Team)
	})
}

// UpdateProducts はプロダクト一覧を置き換える。
// PATCH /api/raise_money/products
func (h *CompanyHandler) UpdateProducts(w http.ResponseWriter, r *http.Request) {
	var req productsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.updateSection(w, r, req.UserID, func(ctx context.Context, identityID string) (*model.Company, error) {
		return h.service.UpdateProducts(ctx, identityID, req.Products)
	})
}

// UpdateMedia はカバー画像・動画、ロゴ、SNSリンクを保存する。
// PATCH /api/raise_money/media
func (h *CompanyHandler) UpdateMedia(w http.ResponseWriter, r *http.Request) {
	var req mediaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.updateSection(w, r, req.UserID, func(ctx context.Context, identityID string) (*model.Company, error) {
		return h.service.UpdateMedia(ctx, identityID, model.Media{
			CoverPhoto:  req.CoverPhoto,
			CoverVideo:  req.CoverVideo,
			Logo:        req.Logo,
			SocialLinks: req.SocialLinks,
		})
	})
}

func (h *CompanyHandler) updateSection(w http.ResponseWriter, r *http.Request, userID string, update func(context.Context, string) (*model.Company, error)) {
	identityID, err := callerIdentity(r, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	c, err := update(r.Context(), identityID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCompanyResponse(c))
}

// parseListFilter はクエリパラメータから一覧の検索条件を組み立てる。
// limitとskipの丸めはサービス層で行う。
func parseListFilter(r *http.Request) (model.CompanyListFilter, error) {
	q := r.URL.Query()
	filter := model.CompanyListFilter{Query: strings.TrimSpace(q.Get("q"))}

	if raw := q.Get("industries"); raw != "" {
		filter.Industries = strings.Split(raw, ",")
	}

	if raw := q.Get("live"); raw != "" {
		live, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, model.NewInvalidFieldError("live", "must be true or false")
		}
		filter.LiveOnly = live
	}

	var err error
	if filter.Limit, err = parseIntParam(q.Get("limit"), "limit"); err != nil {
		return filter, err
	}
	if filter.Skip, err = parseIntParam(q.Get("skip"), "skip"); err != nil {
		return filter, err
	}
	return filter, nil
}

func parseIntParam(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.NewInvalidFieldError(field, "must be an integer")
	}
	return n, nil
}
