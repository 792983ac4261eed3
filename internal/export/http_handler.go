package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rpattn/catalog-export/internal/auth"
	"github.com/rpattn/catalog-export/internal/domain"
)

const maxPreviewBody = 1 << 20

type Handler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes serves the public download endpoint, mounted under /export.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{hash}", h.handleDownload)
	return r
}

// AdminRoutes serves preview and field discovery, mounted under
// /admin/export behind the admin token check.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/preview", h.handlePreview)
	r.Get("/fields", h.handleFields)
	return r
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	download, err := h.service.OpenDownload(r.Context(), hash, r.URL.Query().Get("currency"))
	if err != nil {
		writeError(w, err)
		return
	}

	header := w.Header()
	header.Set("Content-Type", download.ContentType)
	header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", download.Filename))
	header.Set("Cache-Control", "no-store")
	header.Set("X-Content-Type-Options", "nosniff")

	counter := &countingWriter{writer: w}
	if _, err := download.Stream(r.Context(), counter); err != nil {
		if counter.count == 0 {
			header.Del("Content-Disposition")
			header.Del("Cache-Control")
			writeError(w, err)
			return
		}
		// Part of the file is already on the wire; drop the connection so the
		// client cannot mistake it for a complete download.
		panic(http.ErrAbortHandler)
	}
}

type previewPayload struct {
	Filters      json.RawMessage        `json:"filters"`
	Fields       []domain.SelectedField `json:"fields"`
	ClientUserID *int64                 `json:"client_user_id"`
	Currency     string                 `json:"currency"`
	Limit        int                    `json:"limit"`
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var payload previewPayload
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPreviewBody))
	if err := decoder.Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid payload: %v", err)})
		return
	}
	filters, err := domain.FilterGroupFromJSON(payload.Filters)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid filters: %v", err)})
		return
	}

	subject, _ := auth.AdminFromContext(r.Context())
	result, err := h.service.Preview(r.Context(), PreviewRequest{
		Filters:      filters,
		Fields:       payload.Fields,
		ClientUserID: payload.ClientUserID,
		Currency:     payload.Currency,
		Limit:        payload.Limit,
	})
	if err != nil {
		zap.L().Info("preview rejected", zap.String("admin", subject), zap.Error(err))
		writeError(w, err)
		return
	}
	zap.L().Debug("preview served", zap.String("admin", subject), zap.Int("total", result.Total))
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Fields())
}

type errorResponse struct {
	Error    string                     `json:"error"`
	Problems []domain.ValidationProblem `json:"problems,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid export definition", Problems: verr.Problems})
	default:
		zap.L().Error("export request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "export failed"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
