package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	cronv3 "github.com/robfig/cron/v3"

	"priceops/gateway/internal/domain"
	"priceops/gateway/internal/schedule"
)

const (
	failureDetailLimit = 1000
	successDetailLimit = 500
)

// ChainRunner executes one process chain under the run lock.
type ChainRunner interface {
	Run(ctx context.Context, holder string, def domain.ProcessDefinition) domain.ChainResult
}

// Registry resolves process names to chain definitions.
type Registry interface {
	Get(name string) (domain.ProcessDefinition, error)
}

// RegistryFunc adapts a lookup function to the Registry interface.
type RegistryFunc func(name string) (domain.ProcessDefinition, error)

func (f RegistryFunc) Get(name string) (domain.ProcessDefinition, error) {
	return f(name)
}

// Notifier fans one message out to every configured recipient.
type Notifier interface {
	Broadcast(ctx context.Context, text string)
}

// PersistWarning wraps a schedule-file write failure. The in-memory job
// table already changed; the operator is warned instead of rolled back, and
// the table and the file diverge until the next successful write.
type PersistWarning struct {
	Err error
}

func (e *PersistWarning) Error() string {
	return fmt.Sprintf("schedule applied but not persisted: %v", e.Err)
}

func (e *PersistWarning) Unwrap() error {
	return e.Err
}

type Dependencies struct {
	Store    *schedule.Store
	Registry Registry
	Runner   ChainRunner
	Notifier Notifier
	Location *time.Location
}

// Engine owns the live, time-triggered job table and keeps it in sync with
// the schedule store. The store is the source of truth; every mutation here
// is mirrored to it immediately.
type Engine struct {
	deps Dependencies
	cron *cronv3.Cron

	mu      sync.Mutex
	entries map[string]cronv3.EntryID
	times   map[string]string
}

func NewEngine(deps Dependencies) *Engine {
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	parser := cronv3.NewParser(cronv3.Minute | cronv3.Hour | cronv3.Dom | cronv3.Month | cronv3.Dow)
	return &Engine{
		deps: deps,
		cron: cronv3.New(
			cronv3.WithParser(parser),
			cronv3.WithLocation(loc),
			cronv3.WithChain(cronv3.Recover(cronv3.DefaultLogger)),
		),
		entries: map[string]cronv3.EntryID{},
		times:   map[string]string{},
	}
}

// Start replays every persisted schedule into the live job table, then
// begins firing. Replay completes before any live mutation is accepted.
// A trigger that was missed while the process was down is not caught up.
func (e *Engine) Start() {
	for processName, timeOfDay := range e.deps.Store.LoadAll() {
		if err := e.addJob(processName, timeOfDay); err != nil {
			log.Printf("scheduler: replay of %q at %s failed: %v", processName, timeOfDay, err)
			continue
		}
		log.Printf("scheduler: restored %s at %s", schedule.JobID(processName), timeOfDay)
	}
	e.cron.Start()
}

// Stop halts future fires. An in-flight chain is abandoned to finish on its
// own; the schedule store is flushed so the file on disk is final.
func (e *Engine) Stop() {
	e.cron.Stop()
	if err := e.deps.Store.Flush(); err != nil {
		log.Printf("scheduler: flush on stop failed: %v", err)
	}
}

// Set validates and applies a daily schedule, replacing any live job for the
// process wholesale, then persists it. A persist failure leaves the live job
// in place and surfaces as a PersistWarning.
func (e *Engine) Set(processName, timeOfDay string) error {
	if _, err := e.deps.Registry.Get(processName); err != nil {
		return &schedule.ValidationError{Code: "unknown_process", Message: err.Error()}
	}
	if _, _, err := schedule.ParseTime(timeOfDay); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.addJobLocked(processName, timeOfDay); err != nil {
		return err
	}
	if err := e.deps.Store.Set(processName, timeOfDay); err != nil {
		return &PersistWarning{Err: err}
	}
	return nil
}

// Clear removes the live job and the persisted entry. A firing already in
// flight finishes; the clear affects future fires only.
func (e *Engine) Clear(processName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id, ok := e.entries[processName]; ok {
		e.cron.Remove(id)
		delete(e.entries, processName)
		delete(e.times, processName)
	}
	if err := e.deps.Store.Clear(processName); err != nil {
		return &PersistWarning{Err: err}
	}
	return nil
}

// Schedules reports the live job table as process -> HH:MM.
func (e *Engine) Schedules() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.times))
	for k, v := range e.times {
		out[k] = v
	}
	return out
}

func (e *Engine) addJob(processName, timeOfDay string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addJobLocked(processName, timeOfDay)
}

func (e *Engine) addJobLocked(processName, timeOfDay string) error {
	hour, minute, err := schedule.ParseTime(timeOfDay)
	if err != nil {
		return err
	}
	if id, ok := e.entries[processName]; ok {
		e.cron.Remove(id)
	}
	spec := fmt.Sprintf("%d %d * * *", minute, hour)
	id, err := e.cron.AddFunc(spec, func() { e.fire(processName) })
	if err != nil {
		return err
	}
	e.entries[processName] = id
	e.times[processName] = timeOfDay
	return nil
}

// fire runs one scheduled chain. A fire that lands while another chain holds
// the run lock blocks until the lock frees; the resulting start drift is
// accepted, not corrected.
func (e *Engine) fire(processName string) {
	jobID := schedule.JobID(processName)
	def, err := e.deps.Registry.Get(processName)
	if err != nil {
		log.Printf("scheduler: %s refers to unknown process: %v", jobID, err)
		return
	}
	log.Printf("scheduler: firing %s", jobID)
	result := e.deps.Runner.Run(context.Background(), jobID, def)
	log.Printf("scheduler: %s finished succeeded=%t", jobID, result.Succeeded)
	if e.deps.Notifier != nil {
		e.deps.Notifier.Broadcast(context.Background(), FormatNotification(result))
	}
}

// FormatNotification condenses a chain result into one operator message,
// capping the detail section so chat transports are not flooded.
func FormatNotification(result domain.ChainResult) string {
	details := strings.Join(result.Log, "\n")
	if result.Succeeded {
		text := fmt.Sprintf("[schedule] process %q finished: success", result.ProcessName)
		if details != "" {
			text += "\n\n" + truncate(details, successDetailLimit)
		}
		return text
	}
	text := fmt.Sprintf("[schedule] process %q finished: FAILED", result.ProcessName)
	if details != "" {
		text += "\n\n" + truncate(details, failureDetailLimit)
	}
	return text
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	// Back up so the cut never lands inside a multi-byte rune.
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
