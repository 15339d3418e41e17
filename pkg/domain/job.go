package domain

import (
	"encoding/json"
	"time"
)

// JobStatus は推論ジョブの状態です。
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobTimedOut  JobStatus = "timed_out"
	JobCancelled JobStatus = "cancelled"
)

// Terminal は状態が確定済み（これ以上遷移しない）かどうかを返します。
func (s JobStatus) Terminal() bool {
	switch s {
	case JobSucceeded, JobFailed, JobTimedOut, JobCancelled:
		return true
	}
	return false
}

// GenerationJob は推論エンジンに投入したジョブを表します。
// Submit で作成され、状態は AwaitCompletion だけが更新します。
type GenerationJob struct {
	ID          string          `json:"id"`
	Graph       json.RawMessage `json:"graph"` // 投入したワークフローグラフ（エンジンAPI形式）
	SubmittedAt time.Time       `json:"submitted_at"`
	Status      JobStatus       `json:"status"`
}
