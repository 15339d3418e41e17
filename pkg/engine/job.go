package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/shouni/go-scene-kit/pkg/domain"
	"github.com/shouni/go-scene-kit/pkg/graph"
)

type submitRequest struct {
	Prompt   *graph.Graph `json:"prompt"`
	ClientID string       `json:"client_id"`
}

type submitResponse struct {
	PromptID   string                     `json:"prompt_id"`
	Number     int                        `json:"number"`
	NodeErrors map[string]json.RawMessage `json:"node_errors"`
}

// Submit はグラフをエンジンのキューに投入します。拒否された場合は再試行せず *SubmitError を返します。
func (c *Client) Submit(ctx context.Context, g *graph.Graph) (*domain.GenerationJob, error) {
	if err := g.Validate(); err != nil {
		return nil, &SubmitError{Err: fmt.Errorf("不正なグラフです: %w", err)}
	}
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, &SubmitError{Err: fmt.Errorf("グラフのエンコードに失敗しました: %w", err)}
	}
	payload, err := json.Marshal(submitRequest{Prompt: g, ClientID: uuid.NewString()})
	if err != nil {
		return nil, &SubmitError{Err: err}
	}

	status, body, err := c.send(ctx, http.MethodPost, "/prompt", "application/json", payload)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &SubmitError{Err: ctx.Err()}
		}
		if status != 0 {
			return nil, &SubmitError{StatusCode: status, Err: err}
		}
		return nil, &SubmitError{Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	if status/100 != 2 {
		return nil, &SubmitError{StatusCode: status, Body: truncate(body)}
	}

	var sr submitResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, &SubmitError{StatusCode: status, Body: truncate(body), Err: fmt.Errorf("投入応答の解析に失敗しました: %w", err)}
	}
	if len(sr.NodeErrors) > 0 {
		return nil, &SubmitError{StatusCode: status, Body: truncate(body), Err: errors.New("engine reported node errors")}
	}
	if sr.PromptID == "" {
		return nil, &SubmitError{StatusCode: status, Body: truncate(body), Err: errors.New("prompt_id が応答に含まれていません")}
	}

	job := &domain.GenerationJob{
		ID:          sr.PromptID,
		Graph:       raw,
		SubmittedAt: time.Now(),
		Status:      domain.JobPending,
	}
	slog.InfoContext(ctx, "ワークフローを投入しました", "job_id", job.ID, slog.Int("nodes", g.Len()), slog.Int("queue_number", sr.Number))
	return job, nil
}

type historyEntry struct {
	Status *struct {
		StatusStr string          `json:"status_str"`
		Completed bool            `json:"completed"`
		Messages  json.RawMessage `json:"messages"`
	} `json:"status"`
	Outputs map[string]struct {
		Images []domain.OutputImage `json:"images"`
	} `json:"outputs"`
}

// AwaitCompletion はジョブの完了を待ち、出力画像の一覧を返します。
//
// timeout はクライアントの上限時間で切り詰められ、0 以下なら上限時間を使います。
// タイムアウトは ErrTimedOut、呼び出し元のキャンセルは ErrCancelled を返します。
// どちらの場合もエンジン側のジョブは削除しません。一時的なポーリング失敗はログに残して継続します。
func (c *Client) AwaitCompletion(ctx context.Context, job *domain.GenerationJob, timeout time.Duration) ([]domain.OutputImage, error) {
	if timeout <= 0 || timeout > c.maxWait {
		timeout = c.maxWait
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	job.Status = domain.JobRunning
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	historyPath := "/history/" + url.PathEscape(job.ID)
	for {
		images, done, err := c.pollHistory(waitCtx, historyPath, job.ID)
		switch {
		case err != nil && done:
			job.Status = domain.JobFailed
			return nil, err
		case done:
			job.Status = domain.JobSucceeded
			slog.InfoContext(ctx, "ジョブが完了しました", "job_id", job.ID, slog.Int("images", len(images)), "elapsed", time.Since(job.SubmittedAt).Round(time.Millisecond))
			return images, nil
		case err != nil && waitCtx.Err() == nil:
			slog.WarnContext(ctx, "履歴の取得に失敗しました。ポーリングを継続します", "job_id", job.ID, "error", err)
		}

		select {
		case <-waitCtx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				job.Status = domain.JobCancelled
				return nil, fmt.Errorf("%w: job %s", ErrCancelled, job.ID)
			}
			job.Status = domain.JobTimedOut
			return nil, fmt.Errorf("%w: job %s did not complete within %s", ErrTimedOut, job.ID, timeout)
		case <-ticker.C:
		}
	}
}

// pollHistory は履歴を取得します。done はジョブが確定した（成功または失敗）ことを示します。
func (c *Client) pollHistory(ctx context.Context, historyPath, jobID string) ([]domain.OutputImage, bool, error) {
	var history map[string]historyEntry
	if err := c.kit.FetchAndDecodeJSON(ctx, c.baseURL+historyPath, &history); err != nil {
		return nil, false, fmt.Errorf("履歴の取得に失敗しました: %w", err)
	}
	entry, ok := history[jobID]
	if !ok {
		return nil, false, nil
	}

	if entry.Status != nil && entry.Status.StatusStr == "error" {
		msg := string(entry.Status.Messages)
		if msg == "" || msg == "null" {
			msg = "unknown error"
		}
		return nil, true, &JobFailedError{JobID: jobID, Messages: msg}
	}

	var images []domain.OutputImage
	for _, node := range slices.Sorted(maps.Keys(entry.Outputs)) {
		images = append(images, entry.Outputs[node].Images...)
	}
	if len(images) > 0 {
		return images, true, nil
	}
	if len(entry.Outputs) > 0 || (entry.Status != nil && entry.Status.Completed) {
		return nil, true, &JobFailedError{JobID: jobID, Messages: "workflow completed but no images were found in outputs"}
	}
	return nil, false, nil
}
