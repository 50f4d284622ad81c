// Package chat はチャットSaaSへの中継（ユーザートークン発行と1対1チャンネル作成）を提供する。
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ChannelType は1対1チャンネルの種別。
const ChannelType = "messaging"

// Client はチャットSaaSのREST APIクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	apiKey     string
	apiSecret  string
	now        func() time.Time // テスト用に差し替え可能
}

// NewClient はClientを生成する。
func NewClient(httpClient *http.Client, baseURL, apiKey, apiSecret string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		now:        time.Now,
	}
}

// APIKey はクライアントウィジェットに渡す公開APIキーを返す。
func (c *Client) APIKey() string {
	return c.apiKey
}

// UserToken はクライアントウィジェットがユーザーとして接続するためのトークンを発行する。
func (c *Client) UserToken(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"iat":     c.now().Add(-5 * time.Second).Unix(),
	})
	signed, err := token.SignedString([]byte(c.apiSecret))
	if err != nil {
		return "", fmt.Errorf("ユーザートークンの署名に失敗しました: %w", err)
	}
	return signed, nil
}

// serverToken はサーバー間呼び出し用のトークンを発行する。
func (c *Client) serverToken() (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"server": true})
	signed, err := token.SignedString([]byte(c.apiSecret))
	if err != nil {
		return "", fmt.Errorf("サーバートークンの署名に失敗しました: %w", err)
	}
	return signed, nil
}

// UpsertUsers はチャンネルメンバーとなるユーザーを作成または更新する。
func (c *Client) UpsertUsers(ctx context.Context, userIDs ...string) error {
	users := make(map[string]map[string]string, len(userIDs))
	for _, id := range userIDs {
		users[id] = map[string]string{"id": id}
	}
	return c.do(ctx, http.MethodPost, "/users", map[string]any{"users": users})
}

// CreateChannel はメンバーとデータを指定してチャンネルを取得または作成する。
// 同じIDのチャンネルが既にあればそれを返すため、繰り返し呼び出してもよい。
func (c *Client) CreateChannel(ctx context.Context, channelID, createdBy string, members []string, data map[string]string) error {
	body := map[string]any{
		"data": mergeChannelData(data, createdBy, members),
	}
	path := fmt.Sprintf("/channels/%s/%s/query", ChannelType, url.PathEscape(channelID))
	return c.do(ctx, http.MethodPost, path, body)
}

func mergeChannelData(data map[string]string, createdBy string, members []string) map[string]any {
	out := make(map[string]any, len(data)+2)
	for k, v := range data {
		out[k] = v
	}
	out["created_by_id"] = createdBy
	out["members"] = members
	return out
}

// do はサーバートークン付きでAPIを呼び出す。200番台以外はエラーを返す。
func (c *Client) do(ctx context.Context, method, path string, payload any) error {
	token, err := c.serverToken()
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("リクエストJSONの生成に失敗しました: %w", err)
	}

	reqURL := c.baseURL + path + "?api_key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)
	req.Header.Set("Stream-Auth-Type", "jwt")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("チャットAPIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		c.logger.Error("chat api returned error status",
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
			slog.String("body", string(detail)),
		)
		return fmt.Errorf("チャットAPIがステータス %d を返しました", resp.StatusCode)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
