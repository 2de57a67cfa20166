// Package refresh coordinates the background snapshot re-ingestion:
// at most one run at a time, with observable progress state.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/temaweb/pkg/logger"
	"github.com/wonny/temaweb/pkg/redis"
)

// ErrAlreadyRunning means a refresh was triggered while one is in flight.
// Concurrent triggers collapse into the running job, they do not queue.
var ErrAlreadyRunning = errors.New("refresh already in progress")

// Job is the ingestion work a refresh runs, typically the crawler.
type Job interface {
	Run(ctx context.Context) (string, error)
}

// JobFunc adapts a plain function to Job.
type JobFunc func(ctx context.Context) (string, error)

// Run implements Job.
func (f JobFunc) Run(ctx context.Context) (string, error) {
	return f(ctx)
}

// State is the observable progress of the orchestrator. Timestamps are
// wall-clock ISO strings; RefreshID increases by one per started run.
type State struct {
	InProgress bool   `json:"in_progress"`
	StartedAt  string `json:"started_at,omitempty"`
	EndedAt    string `json:"ended_at,omitempty"`
	LastResult string `json:"last_result,omitempty"`
	LastError  string `json:"last_error,omitempty"`
	RefreshID  int64  `json:"refresh_id"`
}

// Orchestrator owns the refresh state machine: Idle -> Running -> Idle.
// ⭐ SSOT: 리프레시 동시 실행 차단은 여기서만
type Orchestrator struct {
	job    Job
	cache  *redis.Cache
	logger *logger.Logger

	mu    sync.Mutex
	state State
}

// New creates an orchestrator around job. cache may be a disabled client;
// on a successful run its theme/insight entries are invalidated.
func New(job Job, cache *redis.Cache, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		job:    job,
		cache:  cache,
		logger: log.WithField("module", "refresh"),
	}
}

// Trigger starts a refresh on a background goroutine. ErrAlreadyRunning when
// one is in flight; the in-flight run's RefreshID is left untouched.
func (o *Orchestrator) Trigger(ctx context.Context) (int64, error) {
	o.mu.Lock()
	if o.state.InProgress {
		o.mu.Unlock()
		return 0, ErrAlreadyRunning
	}

	o.state.InProgress = true
	o.state.StartedAt = nowISO()
	o.state.EndedAt = ""
	o.state.RefreshID++
	id := o.state.RefreshID
	o.mu.Unlock()

	o.logger.WithField("refresh_id", id).Info("Refresh started")
	// HTTP 요청 컨텍스트는 핸들러 리턴과 함께 취소된다. 시작된 갱신은
	// 끝까지 돌아야 하므로 취소 신호와 분리해서 넘긴다.
	go o.run(context.WithoutCancel(ctx), id)
	return id, nil
}

// run executes the job to completion; there is no mid-run cancellation.
func (o *Orchestrator) run(ctx context.Context, id int64) {
	result, err := o.job.Run(ctx)

	o.mu.Lock()
	if err != nil {
		o.state.LastError = fmt.Sprintf("%v", err)
		o.state.LastResult = ""
	} else {
		o.state.LastResult = result
		o.state.LastError = ""
	}
	o.state.InProgress = false
	o.state.EndedAt = nowISO()
	o.mu.Unlock()

	if err != nil {
		o.logger.WithError(err).WithField("refresh_id", id).Error("Refresh failed")
		return
	}

	// 새 스냅샷이 생겼으니 캐시된 랭킹/인사이트는 무효
	if o.cache != nil {
		if cerr := o.cache.InvalidatePrefix(ctx); cerr != nil {
			o.logger.WithError(cerr).Warn("Cache invalidation after refresh failed")
		}
	}
	o.logger.WithFields(map[string]interface{}{"refresh_id": id, "result": result}).Info("Refresh finished")
}

// Status returns a copy of the current state; it never blocks on the job.
func (o *Orchestrator) Status() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func nowISO() string {
	return time.Now().Format("2006-01-02T15:04:05")
}
