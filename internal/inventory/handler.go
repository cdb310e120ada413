package inventory

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/innkeep-pms/innkeep/internal/platform/httpx"
	"github.com/innkeep-pms/innkeep/internal/shared"
)

// Handler wires HTTP endpoints for the stock module. Authorization happens
// upstream; the actor id arrives pre-validated in the X-Actor-ID header.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the stock handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/stock", func(r chi.Router) {
		r.Post("/receipts", h.handleReceive)
		r.Post("/consumptions", h.handleConsume)
		r.Post("/returns", h.handleReturn)
		r.Post("/waste", h.handleWaste)
		r.Post("/transfers", h.handleTransfer)
		r.Post("/adjustments", h.handleAdjust)
		r.Post("/expiry-sweep", h.handleExpirySweep)
		r.Get("/levels", h.handleLevel)
		r.Get("/batches", h.handleBatches)
		r.Get("/batches/next", h.handleNextBatch)
		r.Get("/batches/expiring", h.handleExpiringBatches)
		r.Get("/movements", h.handleMovements)
		r.Get("/alerts/low-stock", h.handleLowStock)
		r.Get("/valuation", h.handleValuation)
		r.Get("/waste-report", h.handleWasteReport)
	})
}

type receiveRequest struct {
	ItemID         int64           `json:"item_id" validate:"required"`
	WarehouseID    int64           `json:"warehouse_id" validate:"required"`
	Quantity       decimal.Decimal `json:"quantity" validate:"required"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	BatchNumber    string          `json:"batch_number"`
	ExpirationDate *time.Time      `json:"expiration_date"`
	RefType        string          `json:"ref_type"`
	RefID          string          `json:"ref_id"`
	Reason         string          `json:"reason"`
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	var req receiveRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.Receive(r.Context(), ReceiveInput{
		ItemID:         req.ItemID,
		WarehouseID:    req.WarehouseID,
		Quantity:       req.Quantity,
		UnitCost:       req.UnitCost,
		BatchNumber:    req.BatchNumber,
		ExpirationDate: req.ExpirationDate,
		RefType:        req.RefType,
		RefID:          req.RefID,
		Reason:         req.Reason,
		ActorID:        actorID(r),
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

type consumeRequest struct {
	ItemID      int64           `json:"item_id" validate:"required"`
	WarehouseID int64           `json:"warehouse_id" validate:"required"`
	BatchID     int64           `json:"batch_id"`
	Quantity    decimal.Decimal `json:"quantity" validate:"required"`
	RefType     string          `json:"ref_type"`
	RefID       string          `json:"ref_id"`
	Reason      string          `json:"reason"`
}

func (h *Handler) handleConsume(w http.ResponseWriter, r *http.Request) {
	h.handleOutflow(w, r, h.service.Consume)
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	h.handleOutflow(w, r, h.service.Return)
}

func (h *Handler) handleOutflow(w http.ResponseWriter, r *http.Request, post func(ctx context.Context, input ConsumeInput) (ConsumeResult, error)) {
	var req consumeRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := post(r.Context(), ConsumeInput{
		ItemID:      req.ItemID,
		WarehouseID: req.WarehouseID,
		BatchID:     req.BatchID,
		Quantity:    req.Quantity,
		RefType:     req.RefType,
		RefID:       req.RefID,
		Reason:      req.Reason,
		ActorID:     actorID(r),
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

type wasteRequest struct {
	ItemID      int64           `json:"item_id" validate:"required"`
	WarehouseID int64           `json:"warehouse_id" validate:"required"`
	BatchID     int64           `json:"batch_id"`
	WasteType   string          `json:"waste_type" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity" validate:"required"`
	Reason      string          `json:"reason" validate:"required"`
}

func (h *Handler) handleWaste(w http.ResponseWriter, r *http.Request) {
	var req wasteRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.RecordWaste(r.Context(), WasteInput{
		ItemID:      req.ItemID,
		WarehouseID: req.WarehouseID,
		BatchID:     req.BatchID,
		Type:        WasteType(req.WasteType),
		Quantity:    req.Quantity,
		Reason:      req.Reason,
		ActorID:     actorID(r),
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

type transferRequest struct {
	ItemID         int64           `json:"item_id" validate:"required"`
	SrcWarehouseID int64           `json:"src_warehouse_id" validate:"required"`
	DstWarehouseID int64           `json:"dst_warehouse_id" validate:"required"`
	Quantity       decimal.Decimal `json:"quantity" validate:"required"`
	Reason         string          `json:"reason"`
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.Transfer(r.Context(), TransferInput{
		ItemID:         req.ItemID,
		SrcWarehouseID: req.SrcWarehouseID,
		DstWarehouseID: req.DstWarehouseID,
		Quantity:       req.Quantity,
		Reason:         req.Reason,
		ActorID:        actorID(r),
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

type adjustRequest struct {
	ItemID      int64           `json:"item_id" validate:"required"`
	WarehouseID int64           `json:"warehouse_id" validate:"required"`
	NewQuantity decimal.Decimal `json:"new_quantity"`
	Reason      string          `json:"reason" validate:"required"`
}

func (h *Handler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.Adjust(r.Context(), AdjustInput{
		ItemID:      req.ItemID,
		WarehouseID: req.WarehouseID,
		NewQuantity: req.NewQuantity,
		Reason:      req.Reason,
		ActorID:     actorID(r),
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExpirySweep(w http.ResponseWriter, r *http.Request) {
	warehouseID := queryInt64(r, "warehouse_id")
	flipped, err := h.service.SweepExpired(r.Context(), warehouseID, actorID(r))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"expired_batches": flipped})
}

func (h *Handler) handleLevel(w http.ResponseWriter, r *http.Request) {
	level, err := h.service.Level(r.Context(), queryInt64(r, "item_id"), queryInt64(r, "warehouse_id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, level)
}

func (h *Handler) handleBatches(w http.ResponseWriter, r *http.Request) {
	itemID := queryInt64(r, "item_id")
	warehouseID := queryInt64(r, "warehouse_id")
	includeExpired := r.URL.Query().Get("include_expired") == "true"
	batches, err := h.service.Batches(r.Context(), itemID, warehouseID, includeExpired)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	available, err := h.service.AvailableBatchQuantity(r.Context(), itemID, warehouseID, includeExpired)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"batches": batches, "available_quantity": available})
}

func (h *Handler) handleNextBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := h.service.NextBatch(r.Context(), queryInt64(r, "item_id"), queryInt64(r, "warehouse_id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if batch == nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no eligible batch")
		return
	}
	httpx.JSON(w, http.StatusOK, batch)
}

func (h *Handler) handleExpiringBatches(w http.ResponseWriter, r *http.Request) {
	days := int(queryInt64(r, "days"))
	if days == 0 {
		days = 7
	}
	batches, err := h.service.ExpiringBatches(r.Context(), queryInt64(r, "warehouse_id"), days)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, batches)
}

func (h *Handler) handleMovements(w http.ResponseWriter, r *http.Request) {
	filter := MovementFilter{
		ItemID:      queryInt64(r, "item_id"),
		WarehouseID: queryInt64(r, "warehouse_id"),
		Type:        MovementType(r.URL.Query().Get("type")),
		Limit:       int(queryInt64(r, "limit")),
	}
	if from, ok := queryTime(r, "from"); ok {
		filter.From = from
	}
	if to, ok := queryTime(r, "to"); ok {
		filter.To = to
	}
	movements, err := h.service.Movements(r.Context(), filter)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, movements)
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.service.LowStockAlerts(r.Context(), scopeFromQuery(r))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, alerts)
}

func (h *Handler) handleValuation(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Valuation(r.Context(), scopeFromQuery(r), queryInt64(r, "warehouse_id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) handleWasteReport(w http.ResponseWriter, r *http.Request) {
	from, okFrom := queryTime(r, "from")
	to, okTo := queryTime(r, "to")
	if !okFrom || !okTo {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from and to are required (RFC3339 or YYYY-MM-DD)")
		return
	}
	report, err := h.service.WasteReport(r.Context(), queryInt64(r, "warehouse_id"), from, to)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
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
	h.logger.Warn("stock operation failed",
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	httpx.RespondError(w, err)
}

func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}

func queryInt64(r *http.Request, key string) int64 {
	v, _ := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	return v
}

func queryTime(r *http.Request, key string) (time.Time, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func scopeFromQuery(r *http.Request) shared.ScopeFilter {
	if raw := r.URL.Query().Get("property_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return shared.ScopeProperty(id)
		}
	}
	return shared.ScopeAll()
}
