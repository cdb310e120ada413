package masterdata

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/innkeep-pms/innkeep/internal/platform/httpx"
	"github.com/innkeep-pms/innkeep/internal/shared"
)

// Handler wires HTTP endpoints for the catalog.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the catalog handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/items", func(r chi.Router) {
		r.Post("/", h.handleCreateItem)
		r.Get("/", h.handleListItems)
		r.Get("/{id}", h.handleGetItem)
		r.Put("/{id}", h.handleUpdateItem)
		r.Post("/{id}/active", h.handleSetItemActive)
		r.Delete("/{id}", h.handleDeleteItem)
	})
	r.Route("/warehouses", func(r chi.Router) {
		r.Post("/", h.handleCreateWarehouse)
		r.Get("/", h.handleListWarehouses)
		r.Get("/{id}", h.handleGetWarehouse)
		r.Post("/{id}/active", h.handleSetWarehouseActive)
		r.Delete("/{id}", h.handleDeleteWarehouse)
	})
}

type createItemRequest struct {
	PropertyID  int64           `json:"property_id" validate:"required"`
	Code        string          `json:"code" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	Category    string          `json:"category"`
	Unit        string          `json:"unit" validate:"required"`
	ParLevel    decimal.Decimal `json:"par_level"`
	Consignment bool            `json:"is_consignment"`
}

func (h *Handler) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	item, err := h.service.CreateItem(r.Context(), CreateItemInput{
		PropertyID:  req.PropertyID,
		Code:        req.Code,
		Name:        req.Name,
		Category:    req.Category,
		Unit:        req.Unit,
		ParLevel:    req.ParLevel,
		Consignment: req.Consignment,
	}, actorID(r))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

type updateItemRequest struct {
	Name        string          `json:"name" validate:"required"`
	Category    string          `json:"category"`
	Unit        string          `json:"unit" validate:"required"`
	ParLevel    decimal.Decimal `json:"par_level"`
	Consignment bool            `json:"is_consignment"`
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	item, err := h.service.UpdateItem(r.Context(), UpdateItemInput{
		ID:          pathID(r),
		Name:        req.Name,
		Category:    req.Category,
		Unit:        req.Unit,
		ParLevel:    req.ParLevel,
		Consignment: req.Consignment,
	}, actorID(r))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func (h *Handler) handleSetItemActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.SetItemActive(r.Context(), pathID(r), req.Active, actorID(r)); err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"active": req.Active})
}

func (h *Handler) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteItem(r.Context(), pathID(r), actorID(r)); err != nil {
		h.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetItem(r.Context(), pathID(r))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) handleListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.service.ListItems(r.Context(), scopeFromQuery(r), ListItemsRequest{
		Category:    q.Get("category"),
		ActiveOnly:  q.Get("active") == "true",
		SearchQuery: q.Get("q"),
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

type createWarehouseRequest struct {
	PropertyID int64  `json:"property_id" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Type       string `json:"warehouse_type" validate:"required"`
}

func (h *Handler) handleCreateWarehouse(w http.ResponseWriter, r *http.Request) {
	var req createWarehouseRequest
	if !h.decode(w, r, &req) {
		return
	}
	wh, err := h.service.CreateWarehouse(r.Context(), CreateWarehouseInput{
		PropertyID: req.PropertyID,
		Name:       req.Name,
		Type:       WarehouseType(req.Type),
	}, actorID(r))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, wh)
}

func (h *Handler) handleSetWarehouseActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.SetWarehouseActive(r.Context(), pathID(r), req.Active, actorID(r)); err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"active": req.Active})
}

func (h *Handler) handleDeleteWarehouse(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteWarehouse(r.Context(), pathID(r), actorID(r)); err != nil {
		h.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetWarehouse(w http.ResponseWriter, r *http.Request) {
	wh, err := h.service.GetWarehouse(r.Context(), pathID(r))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, wh)
}

func (h *Handler) handleListWarehouses(w http.ResponseWriter, r *http.Request) {
	warehouses, err := h.service.ListWarehouses(r.Context(), scopeFromQuery(r))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, warehouses)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON payload")
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Warn("masterdata operation failed",
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	httpx.RespondError(w, err)
}

func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
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
