package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"priceops/gateway/internal/domain"
	"priceops/gateway/internal/schedule"
)

type fakeRunner struct {
	mu      sync.Mutex
	holders []string
	defs    []domain.ProcessDefinition
	result  domain.ChainResult
}

func (r *fakeRunner) Run(_ context.Context, holder string, def domain.ProcessDefinition) domain.ChainResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.holders = append(r.holders, holder)
	r.defs = append(r.defs, def)
	return r.result
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Broadcast(_ context.Context, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
}

func testRegistry() Registry {
	return RegistryFunc(func(name string) (domain.ProcessDefinition, error) {
		if name != "Sale" && name != "CurrencyInfo" {
			return domain.ProcessDefinition{}, fmt.Errorf("unknown process %q", name)
		}
		return domain.ProcessDefinition{Name: name, Parsers: []string{name}}, nil
	})
}

func newTestEngine(t *testing.T, dir string, runner ChainRunner, notifier Notifier) *Engine {
	t.Helper()
	store, err := schedule.NewStore(dir, func(name string) bool {
		return name == "Sale" || name == "CurrencyInfo"
	})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return NewEngine(Dependencies{
		Store:    store,
		Registry: testRegistry(),
		Runner:   runner,
		Notifier: notifier,
	})
}

func TestStartReplaysPersistedSchedules(t *testing.T) {
	dir := t.TempDir()
	content := `{"schedule_Sale": "08:00", "schedule_Bogus": "09:00"}`
	if err := os.WriteFile(filepath.Join(dir, "schedules.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("seed schedules file: %v", err)
	}

	engine := newTestEngine(t, dir, &fakeRunner{}, nil)
	engine.Start()
	defer engine.Stop()

	got := engine.Schedules()
	if len(got) != 1 || got["Sale"] != "08:00" {
		t.Fatalf("expected only the valid schedule to replay, got %v", got)
	}
}

func TestSetSyncsLiveTableAndStore(t *testing.T) {
	dir := t.TempDir()
	engine := newTestEngine(t, dir, &fakeRunner{}, nil)
	engine.Start()
	defer engine.Stop()

	if err := engine.Set("Sale", "09:15"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got := engine.Schedules(); got["Sale"] != "09:15" {
		t.Fatalf("live table not updated: %v", got)
	}

	// Replacing the time keeps a single live entry.
	if err := engine.Set("Sale", "21:45"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got := engine.Schedules()
	if len(got) != 1 || got["Sale"] != "21:45" {
		t.Fatalf("expected single replaced entry, got %v", got)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "schedules.json"))
	if err != nil {
		t.Fatalf("read schedules file: %v", err)
	}
	if !strings.Contains(string(raw), `"schedule_Sale": "21:45"`) {
		t.Fatalf("store not synced: %s", raw)
	}
}

func TestSetRejectsInvalidInput(t *testing.T) {
	engine := newTestEngine(t, t.TempDir(), &fakeRunner{}, nil)
	engine.Start()
	defer engine.Stop()

	var vErr *schedule.ValidationError
	if err := engine.Set("Bogus", "08:00"); !errors.As(err, &vErr) || vErr.Code != "unknown_process" {
		t.Fatalf("expected unknown_process, got %v", err)
	}
	if err := engine.Set("Sale", "8am"); !errors.As(err, &vErr) || vErr.Code != "invalid_time" {
		t.Fatalf("expected invalid_time, got %v", err)
	}
	if got := engine.Schedules(); len(got) != 0 {
		t.Fatalf("rejected mutations must leave the table empty, got %v", got)
	}
}

func TestClearRemovesLiveJobAndStoreEntry(t *testing.T) {
	dir := t.TempDir()
	engine := newTestEngine(t, dir, &fakeRunner{}, nil)
	engine.Start()
	defer engine.Stop()

	if err := engine.Set("Sale", "09:15"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := engine.Clear("Sale"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if got := engine.Schedules(); len(got) != 0 {
		t.Fatalf("expected empty table, got %v", got)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "schedules.json"))
	if err != nil {
		t.Fatalf("read schedules file: %v", err)
	}
	if strings.Contains(string(raw), "schedule_Sale") {
		t.Fatalf("store entry not cleared: %s", raw)
	}

	// Clearing an absent schedule is a quiet success.
	if err := engine.Clear("Sale"); err != nil {
		t.Fatalf("Clear of absent schedule failed: %v", err)
	}
}

func TestFireRunsChainAndNotifies(t *testing.T) {
	runner := &fakeRunner{result: domain.ChainResult{
		ProcessName: "Sale",
		Succeeded:   true,
		Log:         []string{"[200] Parser 'Sale': started"},
	}}
	notifier := &fakeNotifier{}
	engine := newTestEngine(t, t.TempDir(), runner, notifier)

	engine.fire("Sale")

	if len(runner.holders) != 1 || runner.holders[0] != "schedule_Sale" {
		t.Fatalf("chain must run under the job id, got %v", runner.holders)
	}
	if runner.defs[0].Name != "Sale" {
		t.Fatalf("unexpected definition %+v", runner.defs[0])
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("expected one notification, got %v", notifier.messages)
	}
	msg := notifier.messages[0]
	if !strings.Contains(msg, `process "Sale" finished: success`) {
		t.Fatalf("unexpected notification %q", msg)
	}
	if !strings.Contains(msg, "[200] Parser 'Sale': started") {
		t.Fatalf("notification must carry the run log, got %q", msg)
	}
}

func TestFireUnknownProcessDoesNotRun(t *testing.T) {
	runner := &fakeRunner{}
	notifier := &fakeNotifier{}
	engine := newTestEngine(t, t.TempDir(), runner, notifier)

	engine.fire("Bogus")

	if len(runner.holders) != 0 {
		t.Fatalf("unknown process must not run, got %v", runner.holders)
	}
	if len(notifier.messages) != 0 {
		t.Fatalf("unknown process must not notify, got %v", notifier.messages)
	}
}

func TestFormatNotificationTruncation(t *testing.T) {
	long := strings.Repeat("x", 2000)

	failed := FormatNotification(domain.ChainResult{ProcessName: "Sale", Succeeded: false, Log: []string{long}})
	if !strings.Contains(failed, "FAILED") {
		t.Fatalf("unexpected failure header: %q", failed[:80])
	}
	if !strings.HasSuffix(failed, "...") {
		t.Fatalf("truncated detail must end with ellipsis")
	}
	wantFailed := strings.Repeat("x", failureDetailLimit) + "..."
	if !strings.HasSuffix(failed, wantFailed) {
		t.Fatalf("failure detail not capped at %d", failureDetailLimit)
	}

	ok := FormatNotification(domain.ChainResult{ProcessName: "Sale", Succeeded: true, Log: []string{long}})
	wantOK := strings.Repeat("x", successDetailLimit) + "..."
	if !strings.HasSuffix(ok, wantOK) {
		t.Fatalf("success detail not capped at %d", successDetailLimit)
	}
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	// Two-byte runes, so an odd byte limit lands mid-rune.
	long := strings.Repeat("ц", 600)

	got := truncate(long, 501)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis suffix, got %q", got[len(got)-8:])
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8")
	}
	if len(got) > 501+len("...") {
		t.Fatalf("truncation exceeded the cap: %d bytes", len(got))
	}

	if short := truncate("короткое", 501); short != "короткое" {
		t.Fatalf("under-limit text must pass through, got %q", short)
	}
}

func TestFormatNotificationWithoutDetails(t *testing.T) {
	got := FormatNotification(domain.ChainResult{ProcessName: "Sale", Succeeded: true})
	if got != `[schedule] process "Sale" finished: success` {
		t.Fatalf("unexpected notification %q", got)
	}
}
