package procurement

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/innkeep-pms/innkeep/internal/platform/httpx"
)

// Handler wires HTTP endpoints for purchase orders.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the purchase order handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers purchase order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/purchase-orders", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
		r.Post("/{id}/transition", h.handleTransition)
		r.Post("/{id}/receipts", h.handleReceive)
	})
}

type createPORequest struct {
	PropertyID  int64                 `json:"property_id"`
	SupplierID  int64                 `json:"supplier_id" validate:"required"`
	WarehouseID int64                 `json:"warehouse_id" validate:"required"`
	ExpectedAt  *time.Time            `json:"expected_at"`
	Notes       string                `json:"notes"`
	Lines       []createPOLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type createPOLineRequest struct {
	ItemID   int64           `json:"item_id" validate:"required"`
	Quantity decimal.Decimal `json:"quantity" validate:"required"`
	UnitCost decimal.Decimal `json:"unit_cost"`
	Note     string          `json:"note"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPORequest
	if !h.decode(w, r, &req) {
		return
	}
	input := CreatePOInput{
		PropertyID:  req.PropertyID,
		SupplierID:  req.SupplierID,
		WarehouseID: req.WarehouseID,
		ExpectedAt:  req.ExpectedAt,
		Notes:       req.Notes,
		CreatedBy:   actorID(r),
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, CreatePOLineInput{
			ItemID:   line.ItemID,
			Quantity: line.Quantity,
			UnitCost: line.UnitCost,
			Note:     line.Note,
		})
	}
	detail, err := h.service.CreatePO(r.Context(), input)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, detail)
}

type transitionRequest struct {
	To string `json:"to" validate:"required"`
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if !h.decode(w, r, &req) {
		return
	}
	po, err := h.service.Transition(r.Context(), TransitionInput{
		POID:    pathID(r),
		To:      POStatus(req.To),
		ActorID: actorID(r),
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

type receiveLineRequest struct {
	LineID         int64           `json:"line_id" validate:"required"`
	Quantity       decimal.Decimal `json:"quantity" validate:"required"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	BatchNumber    string          `json:"batch_number"`
	ExpirationDate *time.Time      `json:"expiration_date"`
}

type receiveRequest struct {
	Lines []receiveLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	var req receiveRequest
	if !h.decode(w, r, &req) {
		return
	}
	input := ReceiveInput{POID: pathID(r), ActorID: actorID(r)}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, ReceiveLineInput{
			LineID:         line.LineID,
			Quantity:       line.Quantity,
			UnitCost:       line.UnitCost,
			BatchNumber:    line.BatchNumber,
			ExpirationDate: line.ExpirationDate,
		})
	}
	result, err := h.service.Receive(r.Context(), input)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetPOWithLines(r.Context(), pathID(r))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := ListPOsRequest{
		Status: POStatus(q.Get("status")),
	}
	req.PropertyID, _ = strconv.ParseInt(q.Get("property_id"), 10, 64)
	req.SupplierID, _ = strconv.ParseInt(q.Get("supplier_id"), 10, 64)
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	req.Limit = limit
	req.Offset = offset
	pos, err := h.service.ListPOs(r.Context(), req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pos)
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
	h.logger.Warn("purchase order operation failed",
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
