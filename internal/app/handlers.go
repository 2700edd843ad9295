package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"priceops/gateway/internal/domain"
	"priceops/gateway/internal/process"
	"priceops/gateway/internal/schedule"
	"priceops/gateway/internal/scheduler"
)

type runResponse struct {
	domain.ChainResult
	QueuedBehind string `json:"queued_behind,omitempty"`
}

func (s *Server) listProcesses(w http.ResponseWriter, _ *http.Request) {
	out := make([]domain.ProcessDefinition, 0)
	for _, name := range process.Names() {
		def, err := process.Get(name)
		if err != nil {
			continue
		}
		out = append(out, def)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) runProcess(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "process_name")
	def, err := process.Get(name)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "unknown_process", err.Error(), nil)
		return
	}

	holder, busy := s.orch.Busy()
	if busy {
		log.Printf("app: manual run of %q queued behind %s", name, holder)
	}

	// The chain runs to completion even if the operator disconnects; only
	// per-call timeouts apply inside it.
	result := s.orch.Run(context.Background(), "manual_"+name, def)

	resp := runResponse{ChainResult: result}
	if busy {
		resp.QueuedBehind = holder
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getProcessStatus(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "process_name")
	if !process.Known(name) {
		writeErr(w, http.StatusBadRequest, "unknown_process", fmt.Sprintf("unknown process %q", name), nil)
		return
	}
	rec, ok, err := s.statuses.Read(name)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "status_read_failed", err.Error(), nil)
		return
	}
	if !ok {
		writeErr(w, http.StatusNotFound, "status_not_found", fmt.Sprintf("no runs recorded for %q yet", name), nil)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listParsers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, process.ParserNames())
}

func (s *Server) getParserLogs(w http.ResponseWriter, r *http.Request) {
	parser := chi.URLParam(r, "parser_name")
	if !process.KnownParser(parser) {
		writeErr(w, http.StatusBadRequest, "unknown_parser", fmt.Sprintf("unknown parser %q", parser), nil)
		return
	}
	text, err := s.api.ParserLogs(r.Context(), parser)
	if err != nil {
		writeErr(w, http.StatusBadGateway, "logs_unavailable", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"parser": parser, "log": text})
}

func (s *Server) listSchedules(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Schedules())
}

func (s *Server) putSchedule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "process_name")
	var req struct {
		Time string `json:"time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_request", "body must be JSON with a time field", nil)
		return
	}
	req.Time = strings.TrimSpace(req.Time)
	if req.Time == "" {
		writeErr(w, http.StatusBadRequest, "invalid_request", `time must be "HH:MM" or "-" to disable`, nil)
		return
	}
	if req.Time == "-" {
		s.clearSchedule(w, name)
		return
	}
	s.applySchedule(w, name, req.Time)
}

func (s *Server) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	s.clearSchedule(w, chi.URLParam(r, "process_name"))
}

func (s *Server) applySchedule(w http.ResponseWriter, name, timeOfDay string) {
	err := s.engine.Set(name, timeOfDay)
	var vErr *schedule.ValidationError
	var warn *scheduler.PersistWarning
	switch {
	case errors.As(err, &vErr):
		writeErr(w, http.StatusBadRequest, vErr.Code, vErr.Message, nil)
	case errors.As(err, &warn):
		writeJSON(w, http.StatusOK, map[string]string{"process": name, "time": timeOfDay, "persist_warning": warn.Error()})
	case err != nil:
		writeErr(w, http.StatusInternalServerError, "schedule_update_failed", err.Error(), nil)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"process": name, "time": timeOfDay})
	}
}

func (s *Server) clearSchedule(w http.ResponseWriter, name string) {
	if !process.Known(name) {
		writeErr(w, http.StatusBadRequest, "unknown_process", fmt.Sprintf("unknown process %q", name), nil)
		return
	}
	err := s.engine.Clear(name)
	var warn *scheduler.PersistWarning
	switch {
	case errors.As(err, &warn):
		writeJSON(w, http.StatusOK, map[string]string{"process": name, "time": "-", "persist_warning": warn.Error()})
	case err != nil:
		writeErr(w, http.StatusInternalServerError, "schedule_update_failed", err.Error(), nil)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"process": name, "time": "-"})
	}
}
