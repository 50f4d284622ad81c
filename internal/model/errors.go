// Package model はドメインモデルとAPIエラーを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, company, investment, upload, chat, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeMissingIdentity    = "MISSING_IDENTITY"
	ErrCodeMissingField       = "MISSING_FIELD"
	ErrCodeInvalidField       = "INVALID_FIELD"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeIdentityMismatch   = "IDENTITY_MISMATCH"
	ErrCodeInvalidURL         = "INVALID_URL"
	ErrCodeSSRFBlocked        = "SSRF_BLOCKED"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeCompanyNotFound    = "COMPANY_NOT_FOUND"
	ErrCodeInvalidAmount      = "INVALID_AMOUNT"
	ErrCodeBelowMinimum       = "BELOW_MINIMUM_INVESTMENT"
	ErrCodeInvalidStep        = "INVALID_STEP"
	ErrCodeInvalidStepOrder   = "INVALID_STEP_ORDER"
	ErrCodeInvalidFile        = "INVALID_FILE"
	ErrCodeFileTooLarge       = "FILE_TOO_LARGE"
	ErrCodeUploadFailed       = "UPLOAD_FAILED"
	ErrCodeChatUnavailable    = "CHAT_UNAVAILABLE"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewInvalidRequestError はリクエストボディ解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "The request body could not be parsed.",
		Category: "validation",
		Action:   "Send a valid JSON body.",
	}
}

// NewMissingIdentityError はuserIdが指定されていない場合のエラーを生成する。
func NewMissingIdentityError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingIdentity,
		Message:  "userId is required.",
		Category: "validation",
		Action:   "Sign in and retry the request with your user id.",
	}
}

// NewMissingFieldError は必須フィールド欠落エラーを生成する。
func NewMissingFieldError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingField,
		Message:  fmt.Sprintf("%s is required.", field),
		Category: "validation",
		Action:   fmt.Sprintf("Provide a value for %s.", field),
	}
}

// NewInvalidFieldError はフィールド値が不正な場合のエラーを生成する。
func NewInvalidFieldError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidField,
		Message:  fmt.Sprintf("%s is invalid: %s", field, reason),
		Category: "validation",
		Action:   fmt.Sprintf("Correct the value of %s.", field),
	}
}

// NewUnauthorizedError はIdPトークンが無効な場合のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "A valid identity token is required.",
		Category: "auth",
		Action:   "Sign in again.",
	}
}

// NewIdentityMismatchError は検証済みIDとuserIdパラメータが異なる場合のエラーを生成する。
func NewIdentityMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodeIdentityMismatch,
		Message:  "userId does not match the signed-in identity.",
		Category: "auth",
		Action:   "Retry the request as the signed-in user.",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("Invalid URL: %s", reason),
		Category: "validation",
		Action:   "Enter a URL starting with http:// or https://.",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "Access to the given URL is blocked by the security policy.",
		Category: "validation",
		Action:   "Use a publicly reachable URL.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found.",
		Category: "auth",
		Action:   "Complete sign-up before using this feature.",
	}
}

// NewCompanyNotFoundError はキャンペーンが見つからない場合のエラーを生成する。
func NewCompanyNotFoundError(ref string) *APIError {
	return &APIError{
		Code:     ErrCodeCompanyNotFound,
		Message:  fmt.Sprintf("Company not found: %s", ref),
		Category: "company",
		Action:   "Check the startup name or company id.",
	}
}

// NewInvalidAmountError は投資額が正でない場合のエラーを生成する。
func NewInvalidAmountError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAmount,
		Message:  "amount must be greater than zero.",
		Category: "investment",
		Action:   "Enter a positive amount.",
	}
}

// NewBelowMinimumInvestmentError はラウンドの最低投資額を下回る場合のエラーを生成する。
func NewBelowMinimumInvestmentError(minimum float64) *APIError {
	return &APIError{
		Code:     ErrCodeBelowMinimum,
		Message:  fmt.Sprintf("amount is below the minimum investment of %.2f.", minimum),
		Category: "investment",
		Action:   "Increase the amount to at least the round minimum.",
	}
}

// NewInvalidStepError は未知のオンボーディングステップが指定された場合のエラーを生成する。
func NewInvalidStepError(step string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStep,
		Message:  fmt.Sprintf("Unknown onboarding step: %s", step),
		Category: "validation",
		Action:   "Use one of identity, interests, investment_plan, public_profile, finish.",
	}
}

// NewInvalidStepOrderError はステップを順番通りに完了していない場合のエラーを生成する。
func NewInvalidStepOrderError(step, next string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStepOrder,
		Message:  fmt.Sprintf("Step %s cannot be completed yet; next step is %s.", step, next),
		Category: "validation",
		Action:   "Complete the onboarding steps in order.",
	}
}

// NewInvalidFileError はアップロードデータが不正な場合のエラーを生成する。
func NewInvalidFileError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFile,
		Message:  fmt.Sprintf("Invalid file: %s", reason),
		Category: "upload",
		Action:   "Send the file as a base64 data URI.",
	}
}

// NewFileTooLargeError はアップロードサイズ超過エラーを生成する。
func NewFileTooLargeError(limit int64) *APIError {
	return &APIError{
		Code:     ErrCodeFileTooLarge,
		Message:  fmt.Sprintf("File exceeds the %d byte limit.", limit),
		Category: "upload",
		Action:   "Upload a smaller file.",
	}
}

// NewUploadFailedError はCDNへのアップロード失敗エラーを生成する。
func NewUploadFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeUploadFailed,
		Message:  "The upload service rejected the file.",
		Category: "upload",
		Action:   "Wait a moment and try again.",
	}
}

// NewChatUnavailableError はチャットSaaS呼び出し失敗エラーを生成する。
func NewChatUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeChatUnavailable,
		Message:  "The chat service is unavailable.",
		Category: "chat",
		Action:   "Wait a moment and try again.",
	}
}

// NewServiceUnavailableError は外部連携が未設定の場合のエラーを生成する。
func NewServiceUnavailableError(service string) *APIError {
	return &APIError{
		Code:     ErrCodeServiceUnavailable,
		Message:  fmt.Sprintf("%s is not configured on this server.", service),
		Category: "system",
		Action:   "Contact the administrator.",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Too many requests.",
		Category: "system",
		Action:   "Wait a moment and try again.",
	}
}

// NewInternalError は内部エラーを生成する。詳細はサーバーログにのみ出力する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "An internal error occurred.",
		Category: "system",
		Action:   "Wait a moment and try again.",
	}
}
