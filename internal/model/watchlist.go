package model

import "time"

// WatchlistEntry はユーザーとキャンペーンのウォッチリスト登録を表す。
// (IdentityID, CompanyID) の組は一意。
type WatchlistEntry struct {
	ID         string
	IdentityID string
	CompanyID  string
	CreatedAt  time.Time
}

// WatchlistItem はウォッチリスト一覧の1件で、登録日時とキャンペーンを結合したもの。
type WatchlistItem struct {
	SavedAt time.Time
	Company Company
}
