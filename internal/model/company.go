package model

import "time"

// Company は1件の資金調達キャンペーンを表す。
// 所有者はIdPのID（IdentityID）で識別し、1つのIDにつき1件まで。
type Company struct {
	ID          string
	IdentityID  string
	Name        string
	StartupName string // Nameから導出したURLスラッグ。未導出の場合は空文字
	Website     string
	Location    string
	OneLiner    string
	Description string // サニタイズ済みHTML
	Industries  []string
	Tags        []string
	Raise       Raise
	Media       Media
	Team        []TeamMember
	Products    []Product
	Round       Round
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Raise は調達状況の自由記述を表す。
type Raise struct {
	Already string
	Want    string
}

// Media はキャンペーンのメディアURLを表す。
type Media struct {
	CoverPhoto  string
	CoverVideo  string
	Logo        string
	SocialLinks map[string]string
}

// TeamMember はチームメンバー1名を表す。
type TeamMember struct {
	Name      string `json:"name"`
	Title     string `json:"title"`
	Bio       string `json:"bio"`
	WorkEmail string `json:"workEmail"`
	IsFounder bool   `json:"isFounder"`
	LinkedIn  string `json:"linkedin"`
	Photo     string `json:"photo"`
}

// Product はキャンペーンで紹介するプロダクト1件を表す。
type Product struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Image       string `json:"image"`
}

// Round は募集ラウンドの条件を表す。
type Round struct {
	DaysLeft      int
	Target        float64
	MinInvestment float64
	Live          bool
}

// CompanyStatus はキャンペーンの作成状況を表す。
type CompanyStatus struct {
	HasCompany    bool
	StartupName   string // 空文字はnullとして返す
	HasLocation   bool
	HasTags       bool
	HasIndustries bool
	HasRaise      bool
	IsComplete    bool
}

// CompanyBasics はキャンペーン基本情報の部分更新を表す。
// nilのフィールドは変更しない。
type CompanyBasics struct {
	Name         *string
	Website      *string
	Location     *string
	OneLiner     *string
	Industries   []string // nilは変更なし
	Tags         []string // nilは変更なし
	RaiseAlready *string
	RaiseWant    *string
}

// CompanyListFilter はキャンペーン一覧の検索条件を表す。
type CompanyListFilter struct {
	Industries []string // いずれかに一致
	Query      string   // 会社名・ワンライナーの部分一致
	LiveOnly   bool
	Limit      int
	Skip       int
}

// CompanyPage はキャンペーン一覧の1ページ分の結果を表す。
type CompanyPage struct {
	Items []Company
	Total int
	Limit int
	Skip  int
}
