// Package upload は画像・動画をCDNへ中継するアップロードクライアントを提供する。
// リモートURLからの取り込みはSSRF防止クライアント経由で行う。
package upload

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/venturex/internal/metrics"
	"github.com/hitoshi/venturex/internal/model"
	"github.com/hitoshi/venturex/internal/security"
)

// アップロード種別
const (
	KindImage = "image"
	KindVideo = "video"
)

var (
	errMissingFile = errors.New("file is required")
	errInvalidFile = errors.New("invalid file")
	errTooLarge    = errors.New("file too large")
)

// folderPattern はCDN上のフォルダ名として許可する形式。
var folderPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+(/[A-Za-z0-9_-]+)*$`)

// defaultFolder はフォルダ未指定時の保存先。
const defaultFolder = "venturex"

// Config はCDNクライアントの設定。
type Config struct {
	BaseURL        string
	CloudName      string
	APIKey         string
	APISecret      string
	MaxBytes       int64
	RemoteMaxBytes int64
}

// Client はCDNアップロードAPIのクライアント。
type Client struct {
	cfg         Config
	httpClient  *http.Client
	fetchClient *http.Client
	urlGuard    security.URLGuard
	logger      *slog.Logger
	metrics     metrics.Recorder
	now         func() time.Time // テスト用に差し替え可能
}

// NewClient はClientを生成する。
// httpClientはCDN呼び出し用、リモート取り込みにはurlGuardのSSRF防止クライアントを使う。
func NewClient(cfg Config, httpClient *http.Client, urlGuard security.URLGuard, fetchTimeout time.Duration, logger *slog.Logger, recorder metrics.Recorder) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:         cfg,
		httpClient:  httpClient,
		fetchClient: urlGuard.NewSafeClient(fetchTimeout),
		urlGuard:    urlGuard,
		logger:      logger,
		metrics:     recorder,
		now:         time.Now,
	}
}

// UploadDataURI はdata URI形式のファイルを検証してCDNへアップロードし、配信URLを返す。
func (c *Client) UploadDataURI(ctx context.Context, kind, file, folder string) (string, error) {
	folder, err := normalizeFolder(folder)
	if err != nil {
		return "", err
	}

	d, err := parseDataURI(file, kind, c.cfg.MaxBytes)
	if err != nil {
		c.record(kind, "rejected")
		return "", c.toAPIError(err)
	}
	return c.upload(ctx, kind, d.String(), folder)
}

// UploadRemote はリモートURLの画像・動画を取得してCDNへアップロードし、配信URLを返す。
//  1. URLを静的に検証する
//  2. SSRF防止クライアントで取得する（DNS解決後のIPも検証される）
//  3. Content-Typeから種別を判定し、サイズ上限内であればアップロードする
func (c *Client) UploadRemote(ctx context.Context, rawURL, folder string) (string, error) {
	folder, err := normalizeFolder(folder)
	if err != nil {
		return "", err
	}
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", model.NewMissingFieldError("url")
	}
	if err := c.urlGuard.ValidateURL(rawURL); err != nil {
		c.record("remote", "blocked")
		return "", model.NewSSRFBlockedError()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", model.NewInvalidURLError(err.Error())
	}
	req.Header.Set("User-Agent", "VentureX/1.0 media import")
	req.Header.Set("Accept", "image/*, video/*")

	resp, err := c.fetchClient.Do(req)
	if err != nil {
		c.logger.Warn("remote media fetch failed",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		c.record("remote", "fetch_failed")
		return "", model.NewInvalidURLError("the remote file could not be fetched")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.record("remote", "fetch_failed")
		return "", model.NewInvalidURLError(fmt.Sprintf("the remote server responded with status %d", resp.StatusCode))
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	kind, _, _ := strings.Cut(mediaType, "/")
	if kind != KindImage && kind != KindVideo {
		c.record("remote", "rejected")
		return "", model.NewInvalidFileError("the remote file is not an image or video")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.RemoteMaxBytes+1))
	if err != nil {
		c.record("remote", "fetch_failed")
		return "", model.NewInvalidURLError("the remote file could not be read")
	}
	if int64(len(body)) > c.cfg.RemoteMaxBytes {
		c.record("remote", "rejected")
		return "", model.NewFileTooLargeError(c.cfg.RemoteMaxBytes)
	}
	if len(body) == 0 {
		c.record("remote", "rejected")
		return "", model.NewInvalidFileError("the remote file is empty")
	}

	d := &dataURI{MediaType: mediaType, Data: body}
	return c.upload(ctx, kind, d.String(), folder)
}

// uploadResponse はCDNアップロードAPIのレスポンス。
type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// upload は署名付きリクエストでCDNへファイルを送信する。
func (c *Client) upload(ctx context.Context, kind, file, folder string) (string, error) {
	params := map[string]string{
		"folder":    folder,
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("file", file)
	form.Set("api_key", c.cfg.APIKey)
	form.Set("signature", Sign(params, c.cfg.APISecret))

	endpoint := fmt.Sprintf("%s/%s/%s/upload",
		strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(c.cfg.CloudName), kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.failed(kind, "transport error", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", c.failed(kind, "read error", err)
	}

	var result uploadResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", c.failed(kind, "decode error", fmt.Errorf("status %d: %w", resp.StatusCode, err))
	}
	if resp.StatusCode != http.StatusOK || result.SecureURL == "" {
		msg := fmt.Sprintf("status %d", resp.StatusCode)
		if result.Error != nil {
			msg += ": " + result.Error.Message
		}
		return "", c.failed(kind, "cdn rejected upload", errors.New(msg))
	}

	c.record(kind, "success")
	return result.SecureURL, nil
}

// failed はCDN障害をログ・メトリクスに残し、利用者向けエラーを返す。
func (c *Client) failed(kind, reason string, err error) error {
	c.logger.Error("cdn upload failed",
		slog.String("kind", kind),
		slog.String("reason", reason),
		slog.String("error", err.Error()),
	)
	c.record(kind, "error")
	if c.metrics != nil {
		c.metrics.RecordExternalFailure("cdn")
	}
	return model.NewUploadFailedError()
}

func (c *Client) record(kind, result string) {
	if c.metrics != nil {
		c.metrics.RecordUpload(kind, result)
	}
}

func (c *Client) toAPIError(err error) error {
	switch {
	case errors.Is(err, errMissingFile):
		return model.NewMissingFieldError("file")
	case errors.Is(err, errTooLarge):
		return model.NewFileTooLargeError(c.cfg.MaxBytes)
	default:
		return model.NewInvalidFileError(err.Error())
	}
}

// Sign はCDNの署名（パラメータをキー順にk=vで連結し、APIシークレットを付与したSHA-1）を返す。
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

func normalizeFolder(folder string) (string, error) {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "" {
		return defaultFolder, nil
	}
	if !folderPattern.MatchString(folder) {
		return "", model.NewInvalidFieldError("folder", "only letters, digits, '-', '_' and '/' are allowed")
	}
	return folder, nil
}
