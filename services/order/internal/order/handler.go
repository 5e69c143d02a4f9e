package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const MaxBodyBytes = 1 << 20

type Handler struct {
	logger    apt.Logger
	config    *apt.Config
	tlm       *telemetry.HTTP
	validate  *validator.Validate
	orderRepo OrderRepo
	billing   *SessionBilling
	publisher events.Publisher
	staffOnly func(http.Handler) http.Handler
}

type HandlerDeps struct {
	Repos     Repos
	Billing   *SessionBilling
	Publisher events.Publisher
	// StaffOnly guards kitchen and cashier routes. Nil leaves them open.
	StaffOnly func(http.Handler) http.Handler
}

type Repos struct {
	OrderRepo OrderRepo
	BillRepo  BillRepo
}

func NewHandler(hd HandlerDeps, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	billing := hd.Billing
	if billing == nil {
		billing = NewSessionBilling(hd.Repos.OrderRepo, hd.Repos.BillRepo, nil, hd.Publisher, logger)
	}

	staffOnly := hd.StaffOnly
	if staffOnly == nil {
		staffOnly = func(next http.Handler) http.Handler { return next }
	}

	return &Handler{
		config:    config,
		logger:    logger,
		tlm:       telemetry.NewHTTP(),
		validate:  validator.New(),
		orderRepo: hd.Repos.OrderRepo,
		billing:   billing,
		publisher: hd.Publisher,
		staffOnly: staffOnly,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrder)
		r.With(h.staffOnly).Patch("/{id}/status", h.UpdateOrderStatus)
	})

	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/orders", h.ListSessionOrders)
		r.Post("/payment-request", h.RequestPayment)
		r.Get("/bill", h.GetBill)
		r.With(h.staffOnly).Post("/bill", h.FinalizeBill)
		r.With(h.staffOnly).Patch("/billing-status", h.UpdateBillingStatus)
	})
}

// Order Handlers

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreateOrder")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	req, ok := h.decodeOrderCreatePayload(w, r, log)
	if !ok {
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Debug("invalid create order request", "error", err)
		apt.RespondError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	order := req.toOrder()
	order.RecalculateTotals()
	if diff := order.Total - req.Total; req.Total > 0 && (diff > 0.01 || diff < -0.01) {
		log.Info("client totals differ from recomputed totals", "session_id", req.SessionID, "client_total", req.Total, "total", order.Total)
	}
	order.BeforeCreate()

	if err := h.billing.Place(ctx, order); err != nil {
		if errors.Is(err, ErrSessionSettled) {
			log.Info("order rejected for settled session", "session_id", req.SessionID)
			apt.RespondError(w, http.StatusConflict, ErrSessionSettled.Error())
			return
		}
		log.Error("cannot create order", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not create order")
		return
	}

	h.publishOrderPlaced(ctx, order)

	links := apt.RESTfulLinksFor(order)
	w.WriteHeader(http.StatusCreated)
	apt.RespondSuccess(w, order, links...)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetOrder")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	order, err := h.orderRepo.Get(ctx, id)
	if err != nil {
		log.Error("error loading order", "error", err, "id", id.String())
		apt.RespondError(w, http.StatusInternalServerError, "Could not load order")
		return
	}

	if order == nil {
		apt.RespondError(w, http.StatusNotFound, "Order not found")
		return
	}

	links := apt.RESTfulLinksFor(order)
	apt.RespondSuccess(w, order, links...)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListOrders")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	sessionID := r.URL.Query().Get("session_id")
	status := strings.ToUpper(r.URL.Query().Get("status"))

	var orders []*Order
	var err error

	switch {
	case sessionID != "":
		orders, err = h.orderRepo.ListBySession(ctx, sessionID)
		if err == nil && status != "" {
			orders = filterByStatus(orders, status)
		}
	case status != "":
		orders, err = h.orderRepo.ListByStatus(ctx, status)
	default:
		orders, err = h.orderRepo.List(ctx)
	}

	if err != nil {
		log.Error("error listing orders", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not list orders")
		return
	}

	apt.RespondCollection(w, newestFirst(orders), "order")
}

func (h *Handler) ListSessionOrders(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListSessionOrders")
	defer finish()

	log := h.log(r)
	sessionID := chi.URLParam(r, "sessionID")

	orders, err := h.orderRepo.ListBySession(r.Context(), sessionID)
	if err != nil {
		log.Error("error listing session orders", "error", err, "session_id", sessionID)
		apt.RespondError(w, http.StatusInternalServerError, "Could not list orders")
		return
	}

	apt.RespondCollection(w, newestFirst(orders), "order")
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateOrderStatus")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	req, ok := h.decodeStatusPayload(w, r, log)
	if !ok {
		return
	}

	order, err := h.orderRepo.Get(ctx, id)
	if err != nil {
		log.Error("error loading order", "error", err, "id", id.String())
		apt.RespondError(w, http.StatusInternalServerError, "Could not load order")
		return
	}
	if order == nil {
		apt.RespondError(w, http.StatusNotFound, "Order not found")
		return
	}

	previous := order.Status
	changed, err := order.ApplyStatus(req.Status)
	switch {
	case errors.Is(err, ErrUnknownStatus):
		apt.RespondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ErrTerminalStatus):
		apt.RespondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		log.Error("cannot apply order status", "error", err, "id", id.String())
		apt.RespondError(w, http.StatusInternalServerError, "Could not update order")
		return
	}

	if changed {
		if err := h.orderRepo.Save(ctx, order); err != nil {
			log.Error("cannot save order", "error", err, "id", id.String())
			apt.RespondError(w, http.StatusInternalServerError, "Could not update order")
			return
		}
		h.publishOrderStatusChanged(ctx, order, previous)
		if _, err := h.billing.Resync(ctx, order.SessionID); err != nil {
			log.Error("cannot resync session bill", "error", err, "session_id", order.SessionID)
		}
	}

	links := apt.RESTfulLinksFor(order)
	apt.RespondSuccess(w, order, links...)
}

// Session billing handlers

func (h *Handler) RequestPayment(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RequestPayment")
	defer finish()

	log := h.log(r)
	sessionID := chi.URLParam(r, "sessionID")

	result, err := h.billing.RequestPayment(r.Context(), sessionID)
	if err != nil {
		h.respondBillingError(w, log, sessionID, err)
		return
	}

	apt.Respond(w, http.StatusAccepted, result, nil)
}

func (h *Handler) UpdateBillingStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateBillingStatus")
	defer finish()

	log := h.log(r)
	sessionID := chi.URLParam(r, "sessionID")

	req, ok := h.decodeBillingStatusPayload(w, r, log)
	if !ok {
		return
	}

	result, err := h.billing.Transition(r.Context(), sessionID, req.BillingStatus)
	if err != nil {
		h.respondBillingError(w, log, sessionID, err)
		return
	}

	apt.Respond(w, http.StatusOK, result, nil)
}

func (h *Handler) GetBill(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetBill")
	defer finish()

	log := h.log(r)
	sessionID := chi.URLParam(r, "sessionID")

	bill, err := h.billing.Bill(r.Context(), sessionID)
	if err != nil {
		h.respondBillingError(w, log, sessionID, err)
		return
	}
	if bill == nil {
		apt.RespondError(w, http.StatusNotFound, "Bill not found")
		return
	}

	apt.RespondSuccess(w, bill, apt.RESTfulLinksFor(bill)...)
}

func (h *Handler) FinalizeBill(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.FinalizeBill")
	defer finish()

	log := h.log(r)
	sessionID := chi.URLParam(r, "sessionID")

	bill, err := h.billing.Finalize(r.Context(), sessionID)
	if err != nil {
		h.respondBillingError(w, log, sessionID, err)
		return
	}
	if bill == nil {
		apt.RespondError(w, http.StatusServiceUnavailable, "Bill storage not configured")
		return
	}

	apt.RespondSuccess(w, bill, apt.RESTfulLinksFor(bill)...)
}

func (h *Handler) respondBillingError(w http.ResponseWriter, log apt.Logger, sessionID string, err error) {
	switch {
	case errors.Is(err, ErrSessionIDRequired), errors.Is(err, ErrUnknownBilling):
		apt.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrSessionNotFound):
		apt.RespondError(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, ErrBillingBackwards):
		apt.RespondError(w, http.StatusConflict, err.Error())
	default:
		log.Error("session billing failed", "error", err, "session_id", sessionID)
		apt.RespondError(w, http.StatusInternalServerError, "Could not process billing request")
	}
}

// Request types

type OrderCreateRequest struct {
	SessionID     string             `json:"session_id" validate:"required"`
	OrderNumber   string             `json:"order_number"`
	TableNumber   int                `json:"table_number" validate:"gte=1"`
	CustomerName  string             `json:"customer_name"`
	CustomerPhone string             `json:"customer_phone"`
	CustomerEmail string             `json:"customer_email" validate:"omitempty,email"`
	UserID        string             `json:"user_id,omitempty"`
	CustomerID    string             `json:"customer_id,omitempty"`
	Items         []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	Subtotal      float64            `json:"subtotal"`
	Tax           float64            `json:"tax"`
	Total         float64            `json:"total"`
	EstimatedTime int                `json:"estimated_time" validate:"gte=0"`
}

type OrderItemRequest struct {
	MenuItemID     string          `json:"menu_item_id" validate:"required"`
	Name           string          `json:"name" validate:"required"`
	Quantity       int             `json:"quantity" validate:"gte=1"`
	Price          float64         `json:"price" validate:"gte=0"`
	Description    string          `json:"description"`
	ImageLink      string          `json:"image_link"`
	IsVeg          bool            `json:"is_veg"`
	Customizations []Customization `json:"customizations"`
}

type OrderStatusRequest struct {
	Status string `json:"status"`
}

type BillingStatusRequest struct {
	BillingStatus string `json:"billing_status"`
}

func (req OrderCreateRequest) toOrder() *Order {
	order := NewOrder()
	order.SessionID = req.SessionID
	order.OrderNumber = req.OrderNumber
	order.TableNumber = req.TableNumber
	order.CustomerName = strings.TrimSpace(req.CustomerName)
	if order.CustomerName == "" {
		order.CustomerName = "Guest"
	}
	order.CustomerPhone = req.CustomerPhone
	order.CustomerEmail = req.CustomerEmail
	order.UserID = req.UserID
	order.CustomerID = req.CustomerID
	if req.EstimatedTime > 0 {
		order.EstimatedTime = req.EstimatedTime
	}

	order.Items = make([]OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		order.Items = append(order.Items, OrderItem{
			MenuItemID:     item.MenuItemID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			Price:          item.Price,
			Description:    item.Description,
			ImageLink:      item.ImageLink,
			IsVeg:          item.IsVeg,
			Customizations: append([]Customization(nil), item.Customizations...),
		})
	}
	return order
}

// Helpers

func (h *Handler) parseIDParam(w http.ResponseWriter, r *http.Request, log apt.Logger) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	if idStr == "" {
		log.Debug("missing id parameter")
		apt.RespondError(w, http.StatusBadRequest, "Missing id parameter")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		log.Debug("invalid id parameter", "id", idStr)
		apt.RespondError(w, http.StatusBadRequest, "Invalid id parameter")
		return uuid.Nil, false
	}

	return id, true
}

func (h *Handler) decodeOrderCreatePayload(w http.ResponseWriter, r *http.Request, log apt.Logger) (OrderCreateRequest, bool) {
	var req OrderCreateRequest
	return req, h.decodeJSON(w, r, log, &req)
}

func (h *Handler) decodeStatusPayload(w http.ResponseWriter, r *http.Request, log apt.Logger) (OrderStatusRequest, bool) {
	var req OrderStatusRequest
	if !h.decodeJSON(w, r, log, &req) {
		return req, false
	}
	if strings.TrimSpace(req.Status) == "" {
		apt.RespondError(w, http.StatusBadRequest, "status is required")
		return req, false
	}
	return req, true
}

func (h *Handler) decodeBillingStatusPayload(w http.ResponseWriter, r *http.Request, log apt.Logger) (BillingStatusRequest, bool) {
	var req BillingStatusRequest
	if !h.decodeJSON(w, r, log, &req) {
		return req, false
	}
	if strings.TrimSpace(req.BillingStatus) == "" {
		apt.RespondError(w, http.StatusBadRequest, "billing_status is required")
		return req, false
	}
	return req, true
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, log apt.Logger, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("failed to read request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		log.Debug("failed to decode request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return false
	}

	return true
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
	}
	return "Invalid request: " + strings.Join(fields, ", ")
}

func filterByStatus(orders []*Order, status string) []*Order {
	out := orders[:0:0]
	for _, o := range orders {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

func newestFirst(orders []*Order) []*Order {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders
}
