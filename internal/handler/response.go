package handler

import (
	"time"

	"github.com/hitoshi/venturex/internal/company"
	"github.com/hitoshi/venturex/internal/model"
	"github.com/hitoshi/venturex/internal/user"
)

// --- ユーザー ---

type addressResponse struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
}

// profileResponse はユーザープロフィールのAPIレスポンス。
type profileResponse struct {
	ID                    string          `json:"id"`
	UserID                string          `json:"userId"`
	Email                 string          `json:"email"`
	Name                  string          `json:"name"`
	Birthday              string          `json:"birthday"`
	Address               addressResponse `json:"address"`
	Interests             []string        `json:"interests"`
	PlanFrom              *float64        `json:"planFrom"`
	PlanTo                *float64        `json:"planTo"`
	AnnualInvestmentRange string          `json:"annualInvestmentRange"`
	Notifications         bool            `json:"notifications"`
	ImageURL              string          `json:"imageUrl"`
	Bio                   string          `json:"bio"`
	WebsiteURL            string          `json:"websiteUrl"`
	TaxID                 string          `json:"taxId"`
	TaxIDVerified         bool            `json:"taxIdVerified"`
	OnboardingStep        string          `json:"onboardingStep"`
	NextStep              string          `json:"nextStep"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

func toProfileResponse(u *model.User) profileResponse {
	return profileResponse{
		ID:       u.ID,
		UserID:   u.IdentityID,
		Email:    u.Email,
		Name:     u.Name,
		Birthday: u.Birthday,
		Address: addressResponse{
			Street:  u.Address.Street,
			City:    u.Address.City,
			Region:  u.Address.Region,
			Country: u.Address.Country,
		},
		Interests:             nonNil(u.Interests),
		PlanFrom:              u.PlanFrom,
		PlanTo:                u.PlanTo,
		AnnualInvestmentRange: u.AnnualInvestmentRange,
		Notifications:         u.Notifications,
		ImageURL:              u.ImageURL,
		Bio:                   u.Bio,
		WebsiteURL:            u.WebsiteURL,
		TaxID:                 u.TaxID,
		TaxIDVerified:         u.TaxIDVerified,
		OnboardingStep:        string(u.OnboardingStep),
		NextStep:              string(user.NextStep(u.OnboardingStep)),
		CreatedAt:             u.CreatedAt,
		UpdatedAt:             u.UpdatedAt,
	}
}

// --- キャンペーン ---

type raiseResponse struct {
	Already string `json:"already"`
	Want    string `json:"want"`
}

type mediaResponse struct {
	CoverPhoto  string            `json:"coverPhoto"`
	CoverVideo  string            `json:"coverVideo"`
	Logo        string            `json:"logo"`
	SocialLinks map[string]string `json:"socialLinks"`
}

type roundResponse struct {
	DaysLeft      int     `json:"daysLeft"`
	Target        float64 `json:"target"`
	MinInvestment float64 `json:"minInvestment"`
	Live          bool    `json:"live"`
}

// companyResponse はキャンペーン詳細のAPIレスポンス。
// startupNameは未導出の場合null。
type companyResponse struct {
	ID          string             `json:"id"`
	UserID      string             `json:"userId"`
	Name        string             `json:"name"`
	StartupName *string            `json:"startupName"`
	Website     string             `json:"website"`
	Location    string             `json:"location"`
	OneLiner    string             `json:"oneLiner"`
	Description string             `json:"description"`
	Industries  []string           `json:"industries"`
	Tags        []string           `json:"tags"`
	Raise       raiseResponse      `json:"raise"`
	Media       mediaResponse      `json:"media"`
	Team        []model.TeamMember `json:"team"`
	Products    []model.Product    `json:"products"`
	Round       roundResponse      `json:"round"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

func toCompanyResponse(c *model.Company) companyResponse {
	links := c.Media.SocialLinks
	if links == nil {
		links = map[string]string{}
	}
	team := c.Team
	if team == nil {
		team = []model.TeamMember{}
	}
	products := c.Products
	if products == nil {
		products = []model.Product{}
	}
	return companyResponse{
		ID:          c.ID,
		UserID:      c.IdentityID,
		Name:        c.Name,
		StartupName: nullableString(c.StartupName),
		Website:     c.Website,
		Location:    c.Location,
		OneLiner:    c.OneLiner,
		Description: c.Description,
		Industries:  nonNil(c.Industries),
		Tags:        nonNil(c.Tags),
		Raise:       raiseResponse{Already: c.Raise.Already, Want: c.Raise.Want},
		Media: mediaResponse{
			CoverPhoto:  c.Media.CoverPhoto,
			CoverVideo:  c.Media.CoverVideo,
			Logo:        c.Media.Logo,
			SocialLinks: links,
		},
		Team:      team,
		Products:  products,
		Round:     toRoundResponse(c.Round),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toRoundResponse(r model.Round) roundResponse {
	return roundResponse{
		DaysLeft:      r.DaysLeft,
		Target:        r.Target,
		MinInvestment: r.MinInvestment,
		Live:          r.Live,
	}
}

// companySummaryResponse は一覧表示用のキャンペーン概要。
type companySummaryResponse struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	StartupName *string       `json:"startupName"`
	Location    string        `json:"location"`
	OneLiner    string        `json:"oneLiner"`
	Excerpt     string        `json:"excerpt"`
	Industries  []string      `json:"industries"`
	Tags        []string      `json:"tags"`
	Logo        string        `json:"logo"`
	CoverPhoto  string        `json:"coverPhoto"`
	Round       roundResponse `json:"round"`
}

func toCompanySummaryResponse(c *model.Company) companySummaryResponse {
	return companySummaryResponse{
		ID:          c.ID,
		Name:        c.Name,
		StartupName: nullableString(c.StartupName),
		Location:    c.Location,
		OneLiner:    c.OneLiner,
		Excerpt:     company.Excerpt(c.Description, company.DefaultExcerptLength),
		Industries:  nonNil(c.Industries),
		Tags:        nonNil(c.Tags),
		Logo:        c.Media.Logo,
		CoverPhoto:  c.Media.CoverPhoto,
		Round:       toRoundResponse(c.Round),
	}
}

// companyListResponse はキャンペーン一覧のAPIレスポンス。
type companyListResponse struct {
	Items []companySummaryResponse `json:"items"`
	Total int                      `json:"total"`
	Limit int                      `json:"limit"`
	Skip  int                      `json:"skip"`
}

// statusResponse はキャンペーン作成状況のAPIレスポンス。
type statusResponse struct {
	HasCompany    bool    `json:"hasCompany"`
	StartupName   *string `json:"startupName"`
	HasLocation   bool    `json:"hasLocation"`
	HasTags       bool    `json:"hasTags"`
	HasIndustries bool    `json:"hasIndustries"`
	HasRaise      bool    `json:"hasRaise"`
	IsComplete    bool    `json:"isComplete"`
}

func toStatusResponse(s *model.CompanyStatus) statusResponse {
	return statusResponse{
		HasCompany:    s.HasCompany,
		StartupName:   nullableString(s.StartupName),
		HasLocation:   s.HasLocation,
		HasTags:       s.HasTags,
		HasIndustries: s.HasIndustries,
		HasRaise:      s.HasRaise,
		IsComplete:    s.IsComplete,
	}
}

// --- 出資意向 ---

type investmentResponse struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"companyId"`
	StartupName string    `json:"startupName"`
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	Amount      float64   `json:"amount"`
	Note        string    `json:"note"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toInvestmentResponse(inv *model.Investment) investmentResponse {
	return investmentResponse{
		ID:          inv.ID,
		CompanyID:   inv.CompanyID,
		StartupName: inv.StartupName,
		UserID:      inv.InvestorIdentityID,
		Email:       inv.InvestorEmail,
		Amount:      inv.Amount,
		Note:        inv.Note,
		Status:      string(inv.Status),
		CreatedAt:   inv.CreatedAt,
	}
}

// --- ウォッチリスト ---

type watchlistItemResponse struct {
	SavedAt time.Time              `json:"savedAt"`
	Company companySummaryResponse `json:"company"`
}

// --- ヘルパー関数 ---

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
