package order

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nilemart/backend/internal/dto"
	"github.com/nilemart/backend/internal/entity"
	"github.com/nilemart/backend/internal/presentation/http/response"
	service "github.com/nilemart/backend/internal/service/order"
	"github.com/nilemart/backend/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/nilemart/backend/transport/http/order")

// customerHeader carries the authenticated customer id, set by the upstream
// auth proxy.
const customerHeader = "X-Customer-ID"

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.getByID)
	g.POST("/:id/cancel", h.cancel)
	g.PATCH("/:id/status", h.updateStatus)
	g.PATCH("/:id/payment-status", h.updatePaymentStatus)
	g.PATCH("/:id/fulfillment-status", h.updateFulfillmentStatus)
}

func customerID(c echo.Context) (int64, error) {
	raw := c.Request().Header.Get(customerHeader)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errorbank.BadRequest("missing or invalid " + customerHeader + " header")
	}
	return id, nil
}

func orderID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, errorbank.BadRequest("invalid order id", errorbank.WithCause(err))
	}
	return id, nil
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	cid, err := customerID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		BillingAddressID  int64  `json:"billing_address_id"`
		ShippingAddressID int64  `json:"shipping_address_id"`
		Currency          string `json:"currency"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.BillingAddressID <= 0 || payload.ShippingAddressID <= 0 {
		return b.WithError(errorbank.BadRequest("billing_address_id and shipping_address_id are required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create", trace.WithAttributes(attribute.Int64("customer.id", cid)))
	defer span.End()

	order, intent, err := h.svc.Checkout(ctx, cid, service.CheckoutInput{
		BillingAddressID:  payload.BillingAddressID,
		ShippingAddressID: payload.ShippingAddressID,
		Currency:          payload.Currency,
	})
	if err != nil {
		return b.WithError(err).Build()
	}

	b = b.WithStatus(http.StatusCreated).WithData(dto.FromOrder(order))
	if intent != nil {
		b = b.WithMeta("payment_intent", dto.PaymentIntentResponse{
			Provider:     intent.Provider,
			Reference:    intent.Reference,
			ClientSecret: intent.ClientSecret,
		})
	}
	return b.Build()
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	cid, err := customerID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list", trace.WithAttributes(attribute.Int64("customer.id", cid)))
	defer span.End()

	orders, err := h.svc.List(ctx, cid)
	if err != nil {
		return b.WithError(err).Build()
	}

	out := make([]dto.OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, dto.FromOrder(o))
	}
	return b.WithData(out).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	cid, err := customerID(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, id, cid)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) cancel(c echo.Context) error {
	b := response.New(c)

	cid, err := customerID(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.cancel", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Cancel(ctx, id, cid)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromOrder(order)).Build()
}

type statusPayload struct {
	Status string `json:"status"`
}

func (h *Handler) updateStatus(c echo.Context) error {
	return h.applyStatus(c, "orders.updateStatus", h.svc.UpdateStatus)
}

func (h *Handler) updatePaymentStatus(c echo.Context) error {
	return h.applyStatus(c, "orders.updatePaymentStatus", h.svc.UpdatePaymentStatus)
}

func (h *Handler) updateFulfillmentStatus(c echo.Context) error {
	return h.applyStatus(c, "orders.updateFulfillmentStatus", h.svc.UpdateFulfillmentStatus)
}

func (h *Handler) applyStatus(c echo.Context, op string, apply func(ctx context.Context, id int64, raw string) (*entity.Order, error)) error {
	b := response.New(c)

	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload statusPayload
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.Status == "" {
		return b.WithError(errorbank.BadRequest("status is required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), op, trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := apply(ctx, id, payload.Status)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromOrder(order)).Build()
}
