package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"priceops/gateway/internal/bizapi"
	"priceops/gateway/internal/chain"
	"priceops/gateway/internal/channel"
	"priceops/gateway/internal/config"
	"priceops/gateway/internal/domain"
	"priceops/gateway/internal/observability"
	"priceops/gateway/internal/process"
	"priceops/gateway/internal/runlock"
	"priceops/gateway/internal/schedule"
	"priceops/gateway/internal/scheduler"
	"priceops/gateway/internal/status"
)

const version = "0.1.0"

type Server struct {
	cfg      config.Config
	api      *bizapi.Client
	orch     *chain.Orchestrator
	statuses *status.Store
	engine   *scheduler.Engine
	hub      *wsHub

	closeOnce sync.Once
}

func NewServer(cfg config.Config) (*Server, error) {
	statuses, err := status.NewStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	scheduleStore, err := schedule.NewStore(cfg.DataDir, process.Known)
	if err != nil {
		return nil, err
	}

	loc := time.Local
	if cfg.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
		}
	}

	api := bizapi.New(cfg.APIBaseURL, cfg.CallTimeout)
	orch := chain.NewOrchestrator(runlock.New(), chain.NewExecutor(api), statuses)
	hub := newWSHub()

	var admin channel.Notifier
	if cfg.TelegramToken != "" {
		admin = channel.NewTelegramChannel(cfg.TelegramToken, "")
	} else {
		admin = channel.NewConsoleChannel()
	}

	engine := scheduler.NewEngine(scheduler.Dependencies{
		Store:    scheduleStore,
		Registry: scheduler.RegistryFunc(process.Get),
		Runner:   orch,
		Notifier: notifierGroup{channel.NewFanout(admin, cfg.AdminChatIDs), hub},
		Location: loc,
	})

	srv := &Server{
		cfg:      cfg,
		api:      api,
		orch:     orch,
		statuses: statuses,
		engine:   engine,
		hub:      hub,
	}
	srv.engine.Start()
	return srv, nil
}

// Close stops future schedule fires, abandons any in-flight chain to finish
// on its own and flushes the schedule store.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.engine.Stop()
		s.hub.closeAll()
	})
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(observability.RequestID)
	r.Use(observability.Logging)
	r.Use(observability.APIKey(s.cfg.APIKey))

	r.Get("/version", s.handleVersion)
	r.Get("/healthz", s.handleHealthz)

	r.Route("/processes", func(r chi.Router) {
		r.Get("/", s.listProcesses)
		r.Post("/{process_name}/run", s.runProcess)
		r.Get("/{process_name}/status", s.getProcessStatus)
	})

	r.Route("/parsers", func(r chi.Router) {
		r.Get("/", s.listParsers)
		r.Get("/{parser_name}/logs", s.getParserLogs)
	})

	r.Route("/schedules", func(r chi.Router) {
		r.Get("/", s.listSchedules)
		r.Put("/{process_name}", s.putSchedule)
		r.Delete("/{process_name}", s.deleteSchedule)
	})

	r.Get("/ws", s.operatorStream)

	return r
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": version})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// notifierGroup fans a broadcast across independent sinks (admin chat and
// connected operator consoles).
type notifierGroup []scheduler.Notifier

func (g notifierGroup) Broadcast(ctx context.Context, text string) {
	for _, n := range g {
		n.Broadcast(ctx, text)
	}
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func writeErr(w http.ResponseWriter, code int, errCode, message string, details interface{}) {
	writeJSON(w, code, domain.APIErrorBody{Error: domain.APIError{Code: errCode, Message: message, Details: details}})
}
