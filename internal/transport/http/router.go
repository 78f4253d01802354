package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"crossborder/internal/alignment"
	"crossborder/internal/broadcast"
	"crossborder/internal/metrics"
	"crossborder/internal/records"
	"crossborder/internal/sequencer"
	"crossborder/internal/transform"
)

// Handler is the thin HTTP layer over one shared sequencer.
type Handler struct {
	seq            *sequencer.Sequencer
	hub            *broadcast.Hub[sequencer.Event]
	metrics        *metrics.Metrics
	logger         *zap.Logger
	threshold      float64
	originPatterns []string
	// runCtx bounds operations started by a press; they outlive the request.
	runCtx context.Context
}

// Option configures a Handler.
type Option func(*Handler)

// WithOriginPatterns sets the websocket origins accepted besides same-host.
func WithOriginPatterns(patterns []string) Option {
	return func(h *Handler) { h.originPatterns = patterns }
}

// WithReportThreshold sets the confidence threshold used by /api/report.
func WithReportThreshold(threshold float64) Option {
	return func(h *Handler) { h.threshold = threshold }
}

// NewHandler wires the handler. runCtx is the lifetime of background runs.
func NewHandler(
	runCtx context.Context,
	seq *sequencer.Sequencer,
	hub *broadcast.Hub[sequencer.Event],
	m *metrics.Metrics,
	logger *zap.Logger,
	opts ...Option,
) *Handler {
	h := &Handler{
		seq:       seq,
		hub:       hub,
		metrics:   m,
		logger:    logger,
		threshold: alignment.DefaultThreshold,
		runCtx:    runCtx,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.logger))

	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/ws", h.handleStream)

	r.Route("/api", func(r chi.Router) {
		r.Get("/negotiation", h.handleSnapshot)
		r.Post("/negotiation/start", h.pressHandler(sequencer.ControlStart))
		r.Post("/negotiation/results", h.pressHandler(sequencer.ControlShowResults))
		r.Post("/negotiation/transform", h.pressHandler(sequencer.ControlApply))
		r.Post("/negotiation/controls/{control}", h.handlePressByName)
		r.Get("/records", h.handleRecords)
		r.Get("/alignments", h.handleAlignments)
		r.Get("/report", h.handleReport)
	})
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.seq.Snapshot())
}

func (h *Handler) pressHandler(c sequencer.Control) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.press(w, r, c)
	}
}

func (h *Handler) handlePressByName(w http.ResponseWriter, r *http.Request) {
	c, err := sequencer.ParseControl(chi.URLParam(r, "control"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.press(w, r, c)
}

// press claims the control before answering and runs the rest of the
// operation in the background. A disabled or busy control answers 409 and
// nothing runs.
func (h *Handler) press(w http.ResponseWriter, r *http.Request, c sequencer.Control) {
	run, ok := h.seq.Accept(c)
	if !ok {
		h.metrics.RecordPress(c, false)
		writeJSON(w, http.StatusConflict, map[string]string{
			"status":  "disabled",
			"control": string(c),
		})
		return
	}
	h.metrics.RecordPress(c, true)
	reqID := middleware.GetReqID(r.Context())
	go func() {
		if err := run(h.runCtx); err != nil {
			h.logger.Info("background run stopped",
				zap.String("control", string(c)),
				zap.String("request_id", reqID),
				zap.Error(err),
			)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "started",
		"control": string(c),
	})
}

type recordsResponse struct {
	Before    records.SourceRecord `json:"before"`
	After     records.TargetRecord `json:"after"`
	Converted records.TargetRecord `json:"converted"`
	Warnings  []string             `json:"warnings"`
	Visible   bool                 `json:"visible"`
}

func (h *Handler) handleRecords(w http.ResponseWriter, _ *http.Request) {
	src := records.Source()
	res := transform.Apply(src, records.Italy)
	warnings := make([]string, 0, len(res.Warnings))
	for _, warn := range res.Warnings {
		warnings = append(warnings, warn.String())
	}
	writeJSON(w, http.StatusOK, recordsResponse{
		Before:    src,
		After:     records.Target(),
		Converted: res.Record,
		Warnings:  warnings,
		Visible:   h.seq.Snapshot().TransformationVisible,
	})
}

type alignmentsResponse struct {
	Visible    bool              `json:"visible"`
	Alignments []alignment.Entry `json:"alignments"`
}

func (h *Handler) handleAlignments(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, alignmentsResponse{
		Visible:    h.seq.Snapshot().ResultsVisible,
		Alignments: alignment.Results(),
	})
}

func (h *Handler) handleReport(w http.ResponseWriter, _ *http.Request) {
	snap := h.seq.Snapshot()
	report := alignment.NewReport(snap.RunID, string(records.Italy)+" → "+string(records.Germany), alignment.Results(), h.threshold)
	writeJSON(w, http.StatusOK, report)
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
