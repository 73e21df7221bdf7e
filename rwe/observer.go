package rwe

import (
	"fmt"
	"time"

	"github.com/aalemi-dev/rwe/observability"
)

// finishExecution logs the outcome of exec and notifies the observer.
func (h *Host) finishExecution(exec *execution, duration time.Duration, err error) {
	if h.logger != nil {
		fields := map[string]interface{}{
			"module":       exec.name,
			"execution_id": exec.id,
			"duration_ms":  duration.Milliseconds(),
		}
		if exec.op != "" {
			fields["op"] = exec.op
		}
		if err != nil {
			h.logger.ErrorWithContext(exec.ctx, "module execution aborted", err, fields)
		} else {
			h.logger.InfoWithContext(exec.ctx, "module executed", nil, fields)
		}
	}

	if h.observer == nil {
		return
	}
	h.observer.ObserveOperation(observability.OperationContext{
		Component:   "rwe",
		Operation:   "execute_module",
		Resource:    exec.name,
		SubResource: exec.op,
		Duration:    duration,
		Error:       err,
		Metadata: map[string]interface{}{
			"execution_id": exec.id,
		},
	})
}

// requestedOp is the op setting a caller passed, used to label the execution.
func requestedOp(settings Settings) string {
	switch v := settings[OpSettingKey].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
