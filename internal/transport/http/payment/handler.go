package payment

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nilemart/backend/internal/dto"
	"github.com/nilemart/backend/internal/presentation/http/response"
	service "github.com/nilemart/backend/internal/service/payment"
	"github.com/nilemart/backend/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/nilemart/backend/transport/http/payment")

// Signature headers by provider. Paymob sends its digest in a query parameter
// as well; the header takes precedence when both are present.
const (
	stripeSignatureHeader = "Stripe-Signature"
	paymobSignatureHeader = "X-Paymob-Signature"
	paymobSignatureQuery  = "hmac"
)

// Handler exposes payment endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a payment Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.POST("/webhooks/payments/:provider", h.webhook)
	g := e.Group("/orders/:id")
	g.POST("/cash-payment", h.recordCash)
	g.GET("/payments", h.listForOrder)
}

// webhook ingests a provider notification. The body is read raw before any
// binding so signature verification sees the exact bytes the provider signed.
func (h *Handler) webhook(c echo.Context) error {
	b := response.New(c)
	provider := c.Param("provider")

	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return b.WithError(errorbank.BadRequest("unreadable payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "payments.webhook", trace.WithAttributes(attribute.String("payment.provider", provider)))
	defer span.End()

	if err := h.svc.ApplyWebhook(ctx, provider, raw, h.signature(c, provider)); err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(map[string]string{"status": "accepted"}).Build()
}

func (h *Handler) signature(c echo.Context, provider string) string {
	switch provider {
	case "stripe":
		return c.Request().Header.Get(stripeSignatureHeader)
	default:
		if sig := c.Request().Header.Get(paymobSignatureHeader); sig != "" {
			return sig
		}
		return c.QueryParam(paymobSignatureQuery)
	}
}

func (h *Handler) recordCash(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid order id", errorbank.WithCause(err))).Build()
	}

	var payload struct {
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.Currency == "" {
		return b.WithError(errorbank.BadRequest("currency is required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "payments.recordCash", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if err := h.svc.RecordCash(ctx, id, payload.Amount, payload.Currency); err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(map[string]string{"status": "recorded"}).Build()
}

func (h *Handler) listForOrder(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid order id", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "payments.listForOrder", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	payments, err := h.svc.ListForOrder(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	out := make([]dto.PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, dto.FromPayment(p))
	}
	return b.WithData(out).Build()
}
