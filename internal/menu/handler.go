package menu

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/innkeep-pms/innkeep/internal/platform/httpx"
	"github.com/innkeep-pms/innkeep/internal/shared"
)

// Handler wires HTTP endpoints for recipe availability.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the menu handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers menu routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/menu", func(r chi.Router) {
		r.Get("/recipes", h.handleList)
		r.Get("/recipes/{id}", h.handleGet)
		r.Get("/recipes/{id}/availability", h.handleAvailability)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.service.ListRecipes(r.Context(), scopeFromQuery(r), r.URL.Query().Get("active") == "true")
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, recipes)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	recipe, err := h.service.GetRecipe(r.Context(), pathID(r))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, recipe)
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	warehouseID, _ := strconv.ParseInt(r.URL.Query().Get("warehouse_id"), 10, 64)
	availability, err := h.service.Availability(r.Context(), pathID(r), warehouseID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, availability)
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Warn("menu operation failed",
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	httpx.RespondError(w, err)
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

func scopeFromQuery(r *http.Request) shared.ScopeFilter {
	if raw := r.URL.Query().Get("property_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return shared.ScopeProperty(id)
		}
	}
	return shared.ScopeAll()
}
