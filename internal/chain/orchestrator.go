package chain

import (
	"context"
	"log"
	"strings"

	"priceops/gateway/internal/domain"
	"priceops/gateway/internal/runlock"
)

// StatusRecorder persists the outcome of a finished run.
type StatusRecorder interface {
	Record(processName string, succeeded bool, message string) error
}

// Orchestrator serializes chain execution behind the run lock and records
// each outcome. Both the manual path and the scheduler go through it.
type Orchestrator struct {
	lock     *runlock.RunLock
	executor *Executor
	status   StatusRecorder
}

func NewOrchestrator(lock *runlock.RunLock, executor *Executor, status StatusRecorder) *Orchestrator {
	return &Orchestrator{lock: lock, executor: executor, status: status}
}

// Busy reports which run context currently holds the lock, if any.
func (o *Orchestrator) Busy() (string, bool) {
	return o.lock.Holder()
}

// Run executes def under the run lock. A call arriving while another chain
// is executing blocks until the lock frees, then proceeds; nothing is
// skipped or cancelled.
func (o *Orchestrator) Run(ctx context.Context, holder string, def domain.ProcessDefinition) domain.ChainResult {
	o.lock.Acquire(holder)
	defer o.lock.Release()

	log.Printf("chain: run %q holder=%s", def.Name, holder)
	result := o.executor.Run(ctx, def)
	o.recordStatus(result)
	return result
}

func (o *Orchestrator) recordStatus(result domain.ChainResult) {
	if o.status == nil {
		return
	}
	message := strings.Join(result.Log, "\n")
	if err := o.status.Record(result.ProcessName, result.Succeeded, message); err != nil {
		// A failed status write never aborts the run or its notifications.
		log.Printf("chain: status record for %q failed: %v", result.ProcessName, err)
	}
}
