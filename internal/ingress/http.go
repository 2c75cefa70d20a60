// Package ingress turns HTTP requests and Pub/Sub events into ETL runs.
package ingress

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Lllllllleong/bankguaranteeflow/internal/gcp"
	"github.com/Lllllllleong/bankguaranteeflow/internal/models"
)

// Runner executes the ETL. *app.GuaranteeETL implements it.
type Runner interface {
	Execute(ctx context.Context, docs []models.DocumentContractState) ([]models.DocumentContractState, error)
	ExecuteFromBucket(ctx context.Context, position *int) ([]models.DocumentContractState, error)
}

// NewRouter returns the HTTP ingress: POST /start-etl with explicit documents, GET /start-etl to
// process the source bucket, and GET /healthz.
func NewRouter(runner Runner) http.Handler {
	h := &handler{runner: runner}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/start-etl", h.startETL)
	r.Get("/start-etl", h.startETLFromBucket)
	return r
}

type handler struct {
	runner Runner
}

func (h *handler) startETL(w http.ResponseWriter, r *http.Request) {
	var req models.StartETLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateDocuments(req.Documents); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	logCtx := slog.With("requestId", middleware.GetReqID(r.Context()), "documents", len(req.Documents))
	logCtx.Info("Received ETL request.")
	results, err := h.runner.Execute(r.Context(), req.Documents)
	h.respond(w, logCtx, results, err)
}

func (h *handler) startETLFromBucket(w http.ResponseWriter, r *http.Request) {
	var position *int
	if raw := r.URL.Query().Get("position"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "position must be an integer")
			return
		}
		position = &p
	}

	logCtx := slog.With("requestId", middleware.GetReqID(r.Context()))
	logCtx.Info("Received bucket ETL request.", "position", position)
	results, err := h.runner.ExecuteFromBucket(r.Context(), position)
	if errors.Is(err, gcp.ErrPositionOutOfRange) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respond(w, logCtx, results, err)
}

func (h *handler) respond(w http.ResponseWriter, logCtx *slog.Logger, results []models.DocumentContractState, err error) {
	if err != nil {
		logCtx.Error("ETL run failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := models.StartETLResponse{Status: "success"}
	for _, d := range results {
		if d.Status == models.StatusFailed {
			resp.Failed++
		} else {
			resp.Processed++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func validateDocuments(docs []models.DocumentContractState) error {
	for i := range docs {
		if err := docs[i].Validate(); err != nil {
			return errors.Wrapf(err, "documents[%d]", i)
		}
	}
	return nil
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, models.StartETLResponse{Status: "error", Message: message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
