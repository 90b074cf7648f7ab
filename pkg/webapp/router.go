package webapp

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware, recoveryMiddleware, accessLogMiddleware)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/queue/{workcell}", s.handleQueue).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/queue/{workcell}", s.apiQueue).Methods(http.MethodGet)
	api.HandleFunc("/materials/{workcell}", s.apiMaterials).Methods(http.MethodGet)
	api.HandleFunc("/jobs_by_material/{workcell}/{part}", s.apiJobsByMaterial).Methods(http.MethodGet)
	api.HandleFunc("/colors/{workcell}", s.apiColors).Methods(http.MethodGet)
	api.HandleFunc("/jobs_by_color/{workcell}/{color}", s.apiJobsByColor).Methods(http.MethodGet)
	api.HandleFunc("/job/{job}/{asm:[0-9]+}/{opr:[0-9]+}", s.apiJobDetail).Methods(http.MethodGet)
	api.HandleFunc("/job/{job}/quantity", s.apiUpdateJobQuantity).Methods(http.MethodPost)
	api.HandleFunc("/last_checkin/{part}", s.apiLastCheckin).Methods(http.MethodGet)
	api.HandleFunc("/last_checkin/{part}/{op}", s.apiLastCheckin).Methods(http.MethodGet)
	api.HandleFunc("/labor/start", s.apiStartActivity).Methods(http.MethodPost)
	api.HandleFunc("/labor/end", s.apiEndActivity).Methods(http.MethodPost)
	api.HandleFunc("/labor/active/{employee}", s.apiActiveLabor).Methods(http.MethodGet)
	api.HandleFunc("/kanban_receipt", s.apiKanbanReceipt).Methods(http.MethodPost)

	staticRoot, _ := fs.Sub(staticFS, "static")
	r.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", http.FileServer(http.FS(staticRoot))))

	return r
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				otelzap.Ctx(r.Context()).Error("Handler panic",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		otelzap.Ctx(r.Context()).Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
