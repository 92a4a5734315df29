package domain

import (
	"context"
	"time"
)

// FetchJobCause описывает источник запроса на загрузку новостей.
type FetchJobCause string

const (
	// FetchCauseScheduled — загрузка запланирована по расписанию.
	FetchCauseScheduled FetchJobCause = "scheduled"
	// FetchCauseManual — загрузка запрошена вручную.
	FetchCauseManual FetchJobCause = "manual"
)

// FetchJob содержит информацию о задаче загрузки новостей.
type FetchJob struct {
	ID          string        `json:"job_id,omitempty"`
	Categories  []string      `json:"categories,omitempty"`
	RequestedAt time.Time     `json:"requested_at"`
	Cause       FetchJobCause `json:"cause"`
}

// FetchQueue описывает очередь задач загрузки.
type FetchQueue interface {
	Enqueue(ctx context.Context, job FetchJob) error
	Receive(ctx context.Context) (FetchJob, FetchAckFunc, error)
}

// FetchAckFunc подтверждает обработку либо возвращает задачу в очередь.
type FetchAckFunc func(success bool) error
