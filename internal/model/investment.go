package model

import "time"

// InvestmentStatus は出資意向の状態を表す。
type InvestmentStatus string

const (
	InvestmentStatusPending   InvestmentStatus = "pending"
	InvestmentStatusConfirmed InvestmentStatus = "confirmed"
	InvestmentStatusCancelled InvestmentStatus = "cancelled"
)

// Investment は決済を伴わない出資意向（プレッジ）を表す。
type Investment struct {
	ID                 string
	CompanyID          string
	StartupName        string
	InvestorIdentityID string
	InvestorEmail      string
	Amount             float64
	Note               string
	Status             InvestmentStatus
	CreatedAt          time.Time
}
