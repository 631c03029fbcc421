package agentgraph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/agentgraph/internal/eventbus"
)

// ExecutionStatus enumerates the lifecycle of an async execution.
type ExecutionStatus string

const (
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionComplete  ExecutionStatus = "complete"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// Execution tracks one asynchronous processing run.
type Execution struct {
	ID        string
	Query     string
	Status    ExecutionStatus
	Response  *Response
	Err       error
	StartTime time.Time
	EndTime   time.Time

	cancel context.CancelFunc
}

// ExecutionInfo is the caller-facing snapshot of an async execution.
type ExecutionInfo struct {
	ExecutionID  string          `json:"execution_id"`
	Query        string          `json:"query"`
	Status       ExecutionStatus `json:"status"`
	StartTime    time.Time       `json:"start_time"`
	Duration     time.Duration   `json:"duration"`
	Result       *Response       `json:"result,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	ErrorType    string          `json:"error_type,omitempty"`
}

// ProcessAsync starts a query execution in the background and returns a
// unique execution ID for polling.
func (r *Runtime) ProcessAsync(ctx context.Context, req Request) (string, error) {
	// Validate eagerly so callers get bad requests synchronously.
	if _, err := newState(req); err != nil {
		return "", err
	}

	executionID := uuid.New().String()
	asyncCtx, cancel := context.WithCancel(context.Background())

	exec := &Execution{
		ID:        executionID,
		Query:     req.Query,
		Status:    ExecutionRunning,
		StartTime: time.Now(),
		cancel:    cancel,
	}

	r.asyncMutex.Lock()
	r.asyncExecutions[executionID] = exec
	r.asyncMutex.Unlock()

	r.publish(ctx, eventbus.EventQueryAsyncProcessingStarted, req.Query, map[string]interface{}{
		"execution_id": executionID,
	})

	go func() {
		defer cancel()

		resp, err := r.Process(asyncCtx, req)

		r.asyncMutex.Lock()
		exec.EndTime = time.Now()
		if err != nil {
			exec.Err = err
			if asyncCtx.Err() != nil {
				exec.Status = ExecutionCancelled
			} else {
				exec.Status = ExecutionFailed
			}
		} else {
			exec.Response = resp
			exec.Status = ExecutionComplete
		}
		r.asyncMutex.Unlock()

		eventType := eventbus.EventQueryAsyncProcessingSuccess
		metadata := map[string]interface{}{
			"execution_id": executionID,
			"duration_ms":  exec.EndTime.Sub(exec.StartTime).Milliseconds(),
		}
		if err != nil {
			eventType = eventbus.EventQueryAsyncProcessingFailure
			metadata["error"] = err.Error()
		}
		// The request context may already be done; publish on background.
		r.publish(context.Background(), eventType, req.Query, metadata)
	}()

	return executionID, nil
}

// GetExecution retrieves the current status of an async execution.
func (r *Runtime) GetExecution(executionID string) (*ExecutionInfo, error) {
	r.asyncMutex.RLock()
	defer r.asyncMutex.RUnlock()

	exec, exists := r.asyncExecutions[executionID]
	if !exists {
		return nil, fmt.Errorf("execution with ID '%s' not found", executionID)
	}

	info := &ExecutionInfo{
		ExecutionID: exec.ID,
		Query:       exec.Query,
		Status:      exec.Status,
		StartTime:   exec.StartTime,
	}
	if exec.EndTime.IsZero() {
		info.Duration = time.Since(exec.StartTime)
	} else {
		info.Duration = exec.EndTime.Sub(exec.StartTime)
	}
	if exec.Status == ExecutionComplete {
		info.Result = exec.Response
	}
	if exec.Err != nil {
		info.ErrorMessage = exec.Err.Error()
		if ae, ok := AsAgentError(exec.Err); ok {
			info.ErrorType = ae.Code
		}
	}
	return info, nil
}

// CancelExecution cancels an ongoing async execution. Returns false if the
// execution had already finished.
func (r *Runtime) CancelExecution(executionID string) (bool, error) {
	r.asyncMutex.Lock()
	defer r.asyncMutex.Unlock()

	exec, exists := r.asyncExecutions[executionID]
	if !exists {
		return false, fmt.Errorf("execution with ID '%s' not found", executionID)
	}
	if exec.Status != ExecutionRunning {
		return false, nil
	}

	exec.cancel()
	exec.Status = ExecutionCancelled
	exec.EndTime = time.Now()
	exec.Err = NewCancelledError("async", context.Canceled)

	r.publish(context.Background(), eventbus.EventQueryAsyncProcessingCancelled, exec.Query, map[string]interface{}{
		"execution_id": executionID,
	})
	return true, nil
}
