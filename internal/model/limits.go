package model

import (
	"fmt"
	"math"
	"unicode/utf8"
)

// 保存先の列の最大文字数。マイグレーションのVARCHAR定義と一致させる。
const (
	MaxIdentityLength        = 255
	MaxEmailLength           = 320
	MaxNameLength            = 255
	MaxAddressLength         = 255
	MaxBirthdayLength        = 32
	MaxInvestmentRangeLength = 64
	MaxTaxIDLength           = 32
	MaxLocationLength        = 255
	MaxOneLinerLength        = 512
)

// MaxAmount はNUMERIC(18, 2)の列に格納できる金額の上限（この値を含まない）。
const MaxAmount = 1e16

// CheckLength は文字数が上限を超える場合にINVALID_FIELDを返す。
func CheckLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return NewInvalidFieldError(field, fmt.Sprintf("must be at most %d characters", max))
	}
	return nil
}

// CheckAmountRange は金額が有限かつ格納可能な範囲にない場合にINVALID_FIELDを返す。
// 負の値の扱いは呼び出し側で判定する。
func CheckAmountRange(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) >= MaxAmount {
		return NewInvalidFieldError(field, "is out of range")
	}
	return nil
}

// CheckDaysLeft は残り日数がINTEGER列に収まらない場合にINVALID_FIELDを返す。
func CheckDaysLeft(field string, days int) error {
	if days > math.MaxInt32 {
		return NewInvalidFieldError(field, "is out of range")
	}
	return nil
}

// FirstError は最初の非nilエラーを返す。
func FirstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
