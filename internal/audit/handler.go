package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/innkeep-pms/innkeep/internal/platform/httpx"
)

const (
	defaultDateRange = 7 * 24 * time.Hour
	maxDateRange     = 90 * 24 * time.Hour
)

// Handler serves the audit trail endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	now     func() time.Time
}

// NewHandler constructs the audit handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, now: time.Now}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Get("/trail", h.handleTrail)
		r.Get("/trail/export", h.handleExport)
	})
}

func (h *Handler) handleTrail(w http.ResponseWriter, r *http.Request) {
	filters, ok := h.parseFilters(w, r)
	if !ok {
		return
	}
	result, err := h.service.Trail(r.Context(), filters)
	if err != nil {
		h.logger.Error("load audit trail", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "could not load audit trail")
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, ok := h.parseFilters(w, r)
	if !ok {
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("export audit trail", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "could not export audit trail")
		return
	}
	csvBytes, err := WriteCSV(rows)
	if err != nil {
		h.logger.Error("encode csv", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "could not encode export")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-trail.csv"`)
	if _, err := w.Write(csvBytes); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) parseFilters(w http.ResponseWriter, r *http.Request) (TrailFilters, bool) {
	q := r.URL.Query()
	now := h.now().UTC()

	toStr := strings.TrimSpace(q.Get("to"))
	if toStr == "" {
		toStr = now.Format("2006-01-02")
	}
	toDate, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid to date")
		return TrailFilters{}, false
	}
	fromStr := strings.TrimSpace(q.Get("from"))
	if fromStr == "" {
		fromStr = toDate.Add(-defaultDateRange).Format("2006-01-02")
	}
	fromDate, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid from date")
		return TrailFilters{}, false
	}
	if fromDate.After(toDate) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from date is after to date")
		return TrailFilters{}, false
	}
	if toDate.Sub(fromDate) > maxDateRange {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date range exceeds 90 days")
		return TrailFilters{}, false
	}

	page := 0
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		page, err = strconv.Atoi(v)
		if err != nil || page <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid page")
			return TrailFilters{}, false
		}
	}
	pageSize := 0
	if v := strings.TrimSpace(q.Get("page_size")); v != "" {
		pageSize, err = strconv.Atoi(v)
		if err != nil || pageSize <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid page_size")
			return TrailFilters{}, false
		}
	}
	var actorID int64
	if v := strings.TrimSpace(q.Get("actor_id")); v != "" {
		actorID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid actor_id")
			return TrailFilters{}, false
		}
	}

	// The to date is inclusive: the query bound is the following midnight.
	return TrailFilters{
		From:     fromDate,
		To:       toDate.Add(24 * time.Hour),
		ActorID:  actorID,
		Entity:   strings.TrimSpace(q.Get("entity")),
		Action:   strings.TrimSpace(q.Get("action")),
		Page:     page,
		PageSize: pageSize,
	}, true
}
