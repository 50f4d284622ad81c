// Package company は資金調達キャンペーンのドメインロジックを提供する。
// スラッグ導出、作成状況の判定と遷移先の決定、エディタ各セクションの保存を扱う。
package company

import (
	"regexp"
	"strings"
)

var nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify は会社名からURLスラッグを導出する。
// 小文字化し、英数字以外の連続を1つのハイフンに置き換え、前後のハイフンを除去する。
// 結果は[a-z0-9-]のみからなり、Slugify(Slugify(s)) == Slugify(s) が成り立つ。
func Slugify(name string) string {
	slug := nonSlugRun.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

// StartPath はキャンペーン作成開始画面のパス。
const StartPath = "/raise_money/start"

// OverviewPath はキャンペーン概要画面のパスを返す。
func OverviewPath(slug string) string {
	return "/raise_money/" + slug + "/overview"
}
