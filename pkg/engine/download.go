package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/shouni/go-http-kit/httpkit"

	"github.com/shouni/go-scene-kit/pkg/domain"
)

// ViewURL は出力画像を取得するための /view URL を返します。
func (c *Client) ViewURL(img domain.OutputImage) string {
	return c.baseURL + viewPath(img)
}

func viewPath(img domain.OutputImage) string {
	typ := img.Type
	if typ == "" {
		typ = "output"
	}
	q := url.Values{}
	q.Set("filename", img.Filename)
	q.Set("subfolder", img.Subfolder)
	q.Set("type", typ)
	return "/view?" + q.Encode()
}

// Download は出力画像をダウンロードします。
// ネットワークエラーと 5xx は指数バックオフで再試行し、4xx は即座に *StatusError を返します。
func (c *Client) Download(ctx context.Context, img domain.OutputImage) ([]byte, error) {
	data, err := c.kit.FetchBytes(ctx, c.ViewURL(img))
	if err != nil {
		var nr *httpkit.NonRetryableHTTPError
		if errors.As(err, &nr) {
			err = &StatusError{Method: http.MethodGet, Path: "/view", StatusCode: nr.StatusCode, Body: truncate(nr.Body)}
		}
		slog.WarnContext(ctx, "出力画像の取得に失敗しました", "filename", img.Filename, "error", err)
		return nil, fmt.Errorf("出力画像 %s のダウンロードに失敗しました: %w", img.Filename, err)
	}
	return data, nil
}
