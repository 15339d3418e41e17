package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/shouni/go-http-kit/httpkit"
)

type uploadResponse struct {
	Name      string `json:"name"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// Upload は画像をエンジンの入力ディレクトリにアップロードし、ワークフローから参照する名前を返します。
// 同名のファイルは上書きされるため、ネットワークエラーと 5xx は再試行します。
// サブフォルダに保存された場合は "subfolder/name" を返します。
func (c *Client) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	body, contentType, err := multipartImage(data, sanitizeFilename(filename))
	if err != nil {
		return "", &UploadError{Filename: filename, Err: err}
	}

	raw, err := c.kit.PostRawBodyAndFetchBytes(ctx, c.baseURL+"/upload/image", body, contentType)
	if err != nil {
		return "", uploadError(ctx, filename, err)
	}

	var ur uploadResponse
	if err := json.Unmarshal(raw, &ur); err != nil {
		return "", &UploadError{Filename: filename, Err: fmt.Errorf("アップロード応答の解析に失敗しました: %w", err)}
	}
	if ur.Name == "" {
		return "", &UploadError{Filename: filename, Err: fmt.Errorf("アップロード応答に name が含まれていません")}
	}

	name := ur.Name
	if ur.Subfolder != "" {
		name = path.Join(ur.Subfolder, ur.Name)
	}
	slog.DebugContext(ctx, "画像をアップロードしました", "filename", filename, "stored", name, "bytes", len(data))
	return name, nil
}

// uploadError は httpkit のエラーを *UploadError に変換します。
// 4xx はステータスと本文を保持し、再試行を使い切った失敗は ErrUnavailable とします。
func uploadError(ctx context.Context, filename string, err error) *UploadError {
	if ctx.Err() != nil {
		return &UploadError{Filename: filename, Err: ctx.Err()}
	}
	var nr *httpkit.NonRetryableHTTPError
	if errors.As(err, &nr) {
		se := &StatusError{Method: http.MethodPost, Path: "/upload/image", StatusCode: nr.StatusCode, Body: truncate(nr.Body)}
		return &UploadError{Filename: filename, StatusCode: se.StatusCode, Body: se.Body, Err: se}
	}
	return &UploadError{Filename: filename, Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
}

func multipartImage(data []byte, filename string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("image", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("overwrite", "true"); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// sanitizeFilename はアップロード名に使えない文字を置き換えます。
func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
