package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"exampro-service/internal/app"
	"exampro-service/internal/domain"
)

// SubmissionPublisher hands submission events to the message broker.
type SubmissionPublisher interface {
	PublishSubmission(ctx context.Context, evt domain.SubmissionEvent) error
}

// Handler exposes the leaderboard service over REST and websockets.
type Handler struct {
	service         *app.Service
	publisher       SubmissionPublisher
	logger          *slog.Logger
	defaultPageSize int
	maxPageSize     int
	ws              *WSHandler
}

func NewHandler(service *app.Service, logger *slog.Logger, defaultPageSize, maxPageSize int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxPageSize <= 0 || maxPageSize > app.MaxPageSize {
		maxPageSize = app.MaxPageSize
	}
	if defaultPageSize <= 0 || defaultPageSize > maxPageSize {
		defaultPageSize = min(app.DefaultPageSize, maxPageSize)
	}
	h := &Handler{
		service:         service,
		logger:          logger,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
	h.ws = NewWSHandler(service, logger, defaultPageSize, maxPageSize)
	return h
}

// WithSubmissionPublisher routes submission events through the broker. The
// broker's consumer performs the invalidation.
func (h *Handler) WithSubmissionPublisher(publisher SubmissionPublisher) *Handler {
	h.publisher = publisher
	return h
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/leaderboard", instrument("leaderboard", h.getLeaderboard))
	mux.HandleFunc("POST /api/admin/refresh", instrument("admin_refresh", h.refresh))
	mux.HandleFunc("POST /api/admin/recalculate", instrument("admin_recalculate", h.recalculate))
	mux.HandleFunc("POST /api/admin/reset", instrument("admin_reset", h.reset))
	mux.HandleFunc("GET /api/admin/status", instrument("admin_status", h.status))
	mux.HandleFunc("POST /api/events/submission", instrument("submission", h.submission))
	mux.HandleFunc("POST /internal/leaderboard/compute", instrument("compute", h.compute))
	mux.HandleFunc("GET /ws/leaderboard", h.ws.ServeWS)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, limit, err := parsePaging(q.Get("offset"), q.Get("limit"), h.defaultPageSize, h.maxPageSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.service.GetLeaderboard(r.Context(), q.Get("departmentId"), offset, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type departmentRequest struct {
	DepartmentID string `json:"departmentId"`
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req departmentRequest
	if err := decodeOptional(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	report, err := h.service.RefreshCache(r.Context(), req.DepartmentID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) recalculate(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.RecalculateAll(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	var req departmentRequest
	if err := decodeOptional(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.service.ResetDepartment(r.Context(), req.DepartmentID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.GetStatus(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) submission(w http.ResponseWriter, r *http.Request) {
	var evt domain.SubmissionEvent
	if err := decodeOptional(r, &evt); err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.publisher != nil {
		if err := h.publisher.PublishSubmission(r.Context(), evt); err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, app.AdminResult{
			Success:      true,
			Message:      "submission queued",
			DepartmentID: evt.DepartmentID,
		})
		return
	}
	if err := h.service.HandleSubmission(r.Context(), evt); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, app.AdminResult{
		Success:      true,
		Message:      "leaderboard invalidated",
		DepartmentID: evt.DepartmentID,
	})
}

func (h *Handler) compute(w http.ResponseWriter, r *http.Request) {
	var req app.ComputeRequest
	if err := decodeOptional(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.PageSize == 0 {
		req.PageSize = h.defaultPageSize
	}
	page, err := h.service.Compute(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func parsePaging(rawOffset, rawLimit string, defaultLimit, maxLimit int) (int, int, error) {
	offset, limit := 0, defaultLimit
	var err error
	if rawOffset != "" {
		if offset, err = strconv.Atoi(rawOffset); err != nil {
			return 0, 0, fmt.Errorf("%w: offset must be an integer", domain.ErrInvalidArgument)
		}
	}
	if rawLimit != "" {
		if limit, err = strconv.Atoi(rawLimit); err != nil {
			return 0, 0, fmt.Errorf("%w: limit must be an integer", domain.ErrInvalidArgument)
		}
	}
	if limit > maxLimit {
		return 0, 0, fmt.Errorf("%w: limit must be <= %d", domain.ErrInvalidArgument, maxLimit)
	}
	return offset, limit, nil
}

// decodeOptional decodes a JSON body; an empty body leaves v untouched.
func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, domain.ErrDataSourceUnavailable),
		errors.Is(err, domain.ErrCacheError),
		errors.Is(err, domain.ErrRemoteUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: strings.TrimSpace(err.Error())})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
