// Package engine は ComfyUI 互換の推論エンジン HTTP API クライアントです。
package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shouni/go-http-kit/httpkit"

	"github.com/shouni/go-scene-kit/pkg/config"
)

const maxErrorBody = 4 << 10

// Client は推論エンジンとの通信を担います。ジョブごとの状態は持たず、並行に利用できます。
type Client struct {
	baseURL         string
	kit             *httpkit.Client
	doer            httpkit.Doer
	requestTimeout  time.Duration
	pollInterval    time.Duration
	maxWait         time.Duration
	healthTimeout   time.Duration
	retryInterval   time.Duration
	downloadRetries uint64
}

// Option は Client の設定を変更します。
type Option func(*Client)

// WithHTTPClient は下位の HTTP クライアントを差し替えます。
func WithHTTPClient(d httpkit.Doer) Option {
	return func(c *Client) { c.doer = d }
}

// WithRequestTimeout は1リクエストあたりのタイムアウトを設定します。
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// WithPollInterval は履歴のポーリング間隔を設定します。
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithMaxWait は完了待ちの上限時間を設定します。
func WithMaxWait(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.maxWait = d
		}
	}
}

// WithHealthTimeout はヘルスチェックのタイムアウトを設定します。
func WithHealthTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.healthTimeout = d
		}
	}
}

// WithDownloadRetries は再試行回数と初回待機時間を設定します。
// ヘルスチェック、アップロード、履歴の取得、出力画像の取得に適用されます。
func WithDownloadRetries(n uint64, initial time.Duration) Option {
	return func(c *Client) {
		c.downloadRetries = n
		if initial > 0 {
			c.retryInterval = initial
		}
	}
}

// New は baseURL のエンジンに接続するクライアントを生成します。
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		requestTimeout:  config.DefaultRequestTimeout,
		pollInterval:    config.DefaultPollInterval,
		maxWait:         config.DefaultMaxWait,
		healthTimeout:   config.DefaultHealthTimeout,
		retryInterval:   500 * time.Millisecond,
		downloadRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}

	// エンジンの URL は運用者の設定値であり、ローカルホストも許可する
	kitOpts := []httpkit.ClientOption{
		httpkit.WithSkipNetworkValidation(true),
		httpkit.WithMaxRetries(c.downloadRetries),
		httpkit.WithInitialInterval(c.retryInterval),
	}
	if c.doer != nil {
		kitOpts = append(kitOpts, httpkit.WithHTTPClient(c.doer))
	}
	c.kit = httpkit.New(c.requestTimeout, kitOpts...)
	return c
}

// NewFromConfig は設定値からクライアントを生成します。
func NewFromConfig(cfg config.Config, opts ...Option) *Client {
	base := []Option{
		WithRequestTimeout(cfg.RequestTimeout),
		WithPollInterval(cfg.PollInterval),
		WithMaxWait(cfg.MaxWait),
		WithHealthTimeout(cfg.HealthTimeout),
		WithDownloadRetries(cfg.DownloadRetry, 0),
	}
	return New(cfg.EngineURL, append(base, opts...)...)
}

// BaseURL は接続先のURLを返します。
func (c *Client) BaseURL() string { return c.baseURL }

// MaxWait は完了待ちの上限時間を返します。
func (c *Client) MaxWait() time.Duration { return c.maxWait }

// SystemStats は /system_stats の応答です。
type SystemStats struct {
	System struct {
		OS             string `json:"os"`
		PythonVersion  string `json:"python_version"`
		ComfyUIVersion string `json:"comfyui_version"`
	} `json:"system"`
	Devices []Device `json:"devices"`
}

// Device は推論デバイスの情報です。
type Device struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	VRAMTotal int64  `json:"vram_total"`
	VRAMFree  int64  `json:"vram_free"`
}

// SystemStats はエンジンのシステム情報を取得します。到達できない場合は ErrUnavailable を返します。
func (c *Client) SystemStats(ctx context.Context) (*SystemStats, error) {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	var stats SystemStats
	if err := c.kit.FetchAndDecodeJSON(ctx, c.baseURL+"/system_stats", &stats); err != nil {
		return nil, fmt.Errorf("%w at %s: %v", ErrUnavailable, c.baseURL, err)
	}
	return &stats, nil
}

// IsAvailable はエンジンが応答するかどうかを返します。
func (c *Client) IsAvailable(ctx context.Context) bool {
	_, err := c.SystemStats(ctx)
	if err != nil {
		slog.DebugContext(ctx, "推論エンジンに接続できません", "url", c.baseURL, "error", err)
	}
	return err == nil
}

// send はリクエストを再試行せずに1回だけ送信し、ステータスコードと本文を返します。
// ステータスコードの解釈は呼び出し元が行います。
func (c *Client) send(ctx context.Context, method, path, contentType string, body []byte) (int, []byte, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return 0, nil, fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.kit.Do(req)
	if err != nil {
		return 0, nil, err
	}
	b, err := httpkit.HandleLimitedResponse(resp, httpkit.MaxResponseBodySize)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, b, nil
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}
	return strings.TrimSpace(string(b))
}
