package model

import "time"

// User はIdPのIDに紐づく投資家/起業家のプロフィールを表す。
type User struct {
	ID                    string
	IdentityID            string
	Email                 string // 未確定の場合は空文字（DB上はNULL）
	Name                  string
	Birthday              string
	Address               Address
	Interests             []string
	PlanFrom              *float64
	PlanTo                *float64
	AnnualInvestmentRange string
	Notifications         bool
	ImageURL              string
	Bio                   string
	WebsiteURL            string
	TaxID                 string
	TaxIDVerified         bool
	OnboardingStep        OnboardingStep // 最後に完了したステップ
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Address はユーザーの住所を表す。
type Address struct {
	Street  string
	City    string
	Region  string
	Country string
}

// OnboardingStep はオンボーディングウィザードのステップを表す。
type OnboardingStep string

const (
	// OnboardingStepNone はまだどのステップも完了していない状態。
	OnboardingStepNone           OnboardingStep = ""
	OnboardingStepIdentity       OnboardingStep = "identity"
	OnboardingStepInterests      OnboardingStep = "interests"
	OnboardingStepInvestmentPlan OnboardingStep = "investment_plan"
	OnboardingStepPublicProfile  OnboardingStep = "public_profile"
	OnboardingStepFinish         OnboardingStep = "finish"
)

// OnboardingSteps はウィザードのステップを完了順に並べたもの。
var OnboardingSteps = []OnboardingStep{
	OnboardingStepIdentity,
	OnboardingStepInterests,
	OnboardingStepInvestmentPlan,
	OnboardingStepPublicProfile,
	OnboardingStepFinish,
}

// ProfilePatch はオンボーディングの部分更新を表す。
// nilのフィールドは変更しない。
type ProfilePatch struct {
	Email                 *string
	Name                  *string
	Birthday              *string
	Street                *string
	City                  *string
	Region                *string
	Country               *string
	Interests             []string // nilは変更なし、空スライスはクリア
	PlanFrom              *float64
	PlanTo                *float64
	AnnualInvestmentRange *string
	Notifications         *bool
	ImageURL              *string
	Bio                   *string
	WebsiteURL            *string
	TaxID                 *string
}

// Apply はパッチの値をユーザーに反映する。
func (p *ProfilePatch) Apply(u *User) {
	setString(&u.Email, p.Email)
	setString(&u.Name, p.Name)
	setString(&u.Birthday, p.Birthday)
	setString(&u.Address.Street, p.Street)
	setString(&u.Address.City, p.City)
	setString(&u.Address.Region, p.Region)
	setString(&u.Address.Country, p.Country)
	if p.Interests != nil {
		u.Interests = p.Interests
	}
	if p.PlanFrom != nil {
		u.PlanFrom = p.PlanFrom
	}
	if p.PlanTo != nil {
		u.PlanTo = p.PlanTo
	}
	setString(&u.AnnualInvestmentRange, p.AnnualInvestmentRange)
	if p.Notifications != nil {
		u.Notifications = *p.Notifications
	}
	setString(&u.ImageURL, p.ImageURL)
	setString(&u.Bio, p.Bio)
	setString(&u.WebsiteURL, p.WebsiteURL)
	setString(&u.TaxID, p.TaxID)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
