package webapp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/jdsquared/thequeue/pkg/workcell"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Workcells []workcell.Workcell
	}{Workcells: s.workcells.List()}

	if err := s.renderer.render(w, "index.html", http.StatusOK, data); err != nil {
		s.renderError(w, r, http.StatusInternalServerError, "could not render the home page", err)
	}
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["workcell"]
	wc, ok := s.workcells.Get(id)
	if !ok {
		s.renderError(w, r, http.StatusNotFound,
			fmt.Sprintf("Work cell '%s' not found", id), nil)
		return
	}

	jobs, err := s.store.JobsWithDetails(r.Context(), wc.Ops)
	if err != nil {
		s.renderError(w, r, http.StatusInternalServerError,
			"could not load the queue", err)
		return
	}

	data := struct {
		WorkcellID   string
		WorkcellName string
		Workcell     workcell.Workcell
		Workcells    []workcell.Workcell
		Jobs         interface{}
	}{
		WorkcellID:   id,
		WorkcellName: wc.Name,
		Workcell:     wc,
		Workcells:    s.workcells.List(),
		Jobs:         jobs,
	}

	if err := s.renderer.render(w, "queue.html", http.StatusOK, data); err != nil {
		s.renderError(w, r, http.StatusInternalServerError, "could not render the queue", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	}
	code := http.StatusOK
	if err := s.store.Ping(r.Context()); err != nil {
		status["status"] = "degraded"
		status["database"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil {
		otelzap.Ctx(r.Context()).Error("Page handler failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	data := struct{ Message string }{Message: message}
	if renderErr := s.renderer.render(w, "error.html", status, data); renderErr != nil {
		http.Error(w, message, status)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
