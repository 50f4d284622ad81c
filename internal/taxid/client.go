// Package taxid は税番号（GSTIN）の形式チェックと外部検証APIのクライアントを提供する。
// 検証は常にベストエフォートで、失敗は「未検証」として扱う。
package taxid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/hitoshi/venturex/internal/metrics"
)

// gstinPattern はGSTIN（州コード2桁+PAN10桁+登録番号+Z+チェック文字）の形式。
var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)

// 検証結果のメトリクスラベル
const (
	ResultVerified      = "verified"
	ResultUnverified    = "unverified"
	ResultInvalidFormat = "invalid_format"
	ResultSkipped       = "skipped"
	ResultError         = "error"
)

// maxResponseBytes は検証APIレスポンスの読み取り上限。
const maxResponseBytes = 64 << 10

// Normalize は前後空白を除去し大文字に揃える。
func Normalize(taxID string) string {
	return strings.ToUpper(strings.TrimSpace(taxID))
}

// ValidFormat はGSTINの形式に一致するかを返す。
func ValidFormat(taxID string) bool {
	return gstinPattern.MatchString(taxID)
}

// verifyResponse は検証APIのレスポンス。
type verifyResponse struct {
	Valid  bool   `json:"valid"`
	Status string `json:"status"`
}

// Client は税番号検証APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.Recorder
	endpoint   string
	apiKey     string
}

// NewClient はClientを生成する。endpointが空の場合は形式チェックのみ行い、常に未検証を返す。
func NewClient(httpClient *http.Client, endpoint, apiKey string, logger *slog.Logger, recorder metrics.Recorder) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    recorder,
		endpoint:   endpoint,
		apiKey:     apiKey,
	}
}

// Verify は税番号が有効かを返す。
// 形式不正・未設定・通信失敗・200以外・否定応答はいずれもfalseとなり、エラーは返さない。
func (c *Client) Verify(ctx context.Context, taxID string) bool {
	taxID = Normalize(taxID)
	if !ValidFormat(taxID) {
		c.record(ResultInvalidFormat)
		return false
	}
	if c.endpoint == "" {
		c.record(ResultSkipped)
		return false
	}

	verified, err := c.lookup(ctx, taxID)
	if err != nil {
		c.logger.Warn("tax id verification failed",
			slog.String("error", err.Error()),
		)
		c.record(ResultError)
		if c.metrics != nil {
			c.metrics.RecordExternalFailure("taxid")
		}
		return false
	}
	if verified {
		c.record(ResultVerified)
	} else {
		c.record(ResultUnverified)
	}
	return verified
}

func (c *Client) lookup(ctx context.Context, taxID string) (bool, error) {
	// 1. リクエストURL構築
	reqURL, err := url.Parse(c.endpoint)
	if err != nil {
		return false, fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}
	q := reqURL.Query()
	q.Set("gstin", taxID)
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return false, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	// 2. 実行
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("検証APIがステータス %d を返しました", resp.StatusCode)
	}

	// 3. デコード
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return false, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}
	var result verifyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return false, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	if !result.Valid {
		return false, nil
	}
	return result.Status == "" || strings.EqualFold(result.Status, "active"), nil
}

func (c *Client) record(result string) {
	if c.metrics != nil {
		c.metrics.RecordTaxIDVerification(result)
	}
}
