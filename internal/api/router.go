// Package api exposes lead search, import and duplicate maintenance over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/leads"
	"github.com/sells-group/leadscout/internal/model"
)

// OwnerHeader carries the opaque owner id of the caller.
const OwnerHeader = "X-Owner-ID"

const maxBodyBytes = 10 << 20

// LeadService is the subset of leads.Service served over HTTP.
type LeadService interface {
	Search(ctx context.Context, ownerID string, req model.SearchRequest) (*model.SearchResult, error)
	ImportBulk(ctx context.Context, ownerID string, records []model.BusinessRecord, policy model.ImportPolicy) (*model.ImportResult, error)
	ClearDuplicateFlags(ctx context.Context) (int, error)
	FlagDuplicates(ctx context.Context, ownerID string) (int, error)
}

var _ LeadService = (*leads.Service)(nil)

// NewRouter builds the HTTP handler. A zero requestTimeout disables the
// per-request deadline.
func NewRouter(svc LeadService, allowedOrigins []string, requestTimeout time.Duration) http.Handler {
	h := &handler{svc: svc}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if requestTimeout > 0 {
		r.Use(middleware.Timeout(requestTimeout))
	}
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", OwnerHeader},
			MaxAge:         300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/search", h.search)
		r.Post("/import", h.importRecords)
		r.Post("/duplicates/clear", h.clearDuplicates)
		r.Post("/duplicates/flag", h.flagDuplicates)
	})
	return r
}

type handler struct {
	svc LeadService
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	var req model.SearchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.svc.Search(r.Context(), r.Header.Get(OwnerHeader), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type importRequest struct {
	Records []model.BusinessRecord `json:"records"`
}

// importRecords accepts either a JSON body of records or a CSV file body.
func (h *handler) importRecords(w http.ResponseWriter, r *http.Request) {
	policy, err := model.ParseImportPolicy(r.URL.Query().Get("policy"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var records []model.BusinessRecord
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "text/csv":
		records, err = leads.ReadCSV(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	default:
		var body importRequest
		err = decodeJSON(w, r, &body)
		records = body.Records
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.svc.ImportBulk(r.Context(), r.Header.Get(OwnerHeader), records, policy)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) clearDuplicates(w http.ResponseWriter, r *http.Request) {
	cleared, err := h.svc.ClearDuplicateFlags(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cleared": cleared})
}

func (h *handler) flagDuplicates(w http.ResponseWriter, r *http.Request) {
	flagged, err := h.svc.FlagDuplicates(r.Context(), r.Header.Get(OwnerHeader))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"flagged": flagged})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return eris.Wrapf(model.ErrInvalidRequest, "api: invalid request body: %v", err)
	}
	return nil
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrGeocodeFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrProviderUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("api: request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: write response", zap.Error(err))
	}
}
