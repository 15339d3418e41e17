package engine

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnavailable は推論エンジンに到達できない場合に返されます。
	ErrUnavailable = errors.New("inference engine unavailable")
	// ErrTimedOut は完了待ちがタイムアウトした場合に返されます。
	ErrTimedOut = errors.New("generation job timed out")
	// ErrCancelled は呼び出し元がコンテキストをキャンセルした場合に返されます。
	ErrCancelled = fmt.Errorf("generation job cancelled: %w", context.Canceled)
)

// UploadError は画像アップロードの失敗です。
type UploadError struct {
	Filename   string
	StatusCode int // HTTP 応答を受け取れなかった場合は 0
	Body       string
	Err        error
}

func (e *UploadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upload %s failed: status %d: %s", e.Filename, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("upload %s failed: %v", e.Filename, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// SubmitError はワークフロー投入の拒否です。Body にはエンジンの応答がそのまま入ります。
type SubmitError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *SubmitError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("submit rejected: status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("submit failed: %v", e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// JobFailedError はエンジン側でジョブの実行が失敗したことを表します。
type JobFailedError struct {
	JobID    string
	Messages string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job %s failed: %s", e.JobID, e.Messages)
}

// StatusError は想定外の HTTP ステータスです。
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}
