package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rl1809/food-order/internal/core/service"
	"github.com/rl1809/food-order/internal/metrics"
)

const maxWebhookBytes = 1 << 20

type HTTPHandler struct {
	orderService *service.OrderService
	auth         *Authenticator
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

type messageResponse struct {
	Message string `json:"message"`
}

type checkoutResponse struct {
	URL string `json:"url"`
}

func NewHTTPHandler(orderService *service.OrderService, auth *Authenticator, m *metrics.Metrics, logger *slog.Logger) *HTTPHandler {
	return &HTTPHandler{
		orderService: orderService,
		auth:         auth,
		metrics:      m,
		logger:       logger.With("component", "http"),
	}
}

func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.observe)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	// signed by the payment provider, not by the user
	r.Post("/api/order/checkout/webhook", h.PaymentWebhook)

	r.Group(func(r chi.Router) {
		r.Use(h.requireUser)
		r.Get("/api/my/orders", h.GetMyOrders)
		r.Post("/api/order/checkout/create-checkout-session", h.CreateCheckoutSession)
		r.Delete("/api/order/{orderId}", h.DeleteOrder)
	})

	return r
}

func (h *HTTPHandler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		if h.metrics != nil {
			h.metrics.ObserveHTTP(r.Method, route, ww.Status(), elapsed)
		}
		h.logger.Info("request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"route", route,
			"status", ww.Status(),
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

func (h *HTTPHandler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := h.auth.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			if !errors.Is(err, ErrUnauthenticated) {
				h.logger.Error("authentication failed", "error", err)
				writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "something went wrong"})
				return
			}
			writeJSON(w, http.StatusUnauthorized, messageResponse{Message: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), user.ID)))
	})
}

func (h *HTTPHandler) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	orders, err := h.orderService.ListMyOrders(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

func (h *HTTPHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var req service.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid request body"})
		return
	}

	url, err := h.orderService.CreateCheckoutSession(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{URL: url})
}

func (h *HTTPHandler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("webhook payload exceeds limit",
				"request_id", middleware.GetReqID(r.Context()), "limit_bytes", tooLarge.Limit)
			writeJSON(w, http.StatusRequestEntityTooLarge, messageResponse{Message: "payload too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "unreadable payload"})
		return
	}

	err = h.orderService.HandlePaymentWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *HTTPHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	if err := h.orderService.DeleteOrder(r.Context(), userID, chi.URLParam(r, "orderId")); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Order deleted successfully"})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := httpStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"request_id", middleware.GetReqID(r.Context()), "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, messageResponse{Message: message})
}

func httpStatus(err error) (int, string) {
	switch {
	case service.IsClientError(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrInvalidSignature):
		return http.StatusBadRequest, "Webhook error: " + err.Error()
	case errors.Is(err, service.ErrRestaurantNotFound):
		return http.StatusNotFound, "Restaurant not found"
	case errors.Is(err, service.ErrOrderNotFound):
		return http.StatusNotFound, "Order not found"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "Unauthorized to delete this order"
	case errors.Is(err, service.ErrOrderInProgress):
		return http.StatusBadRequest, "Cannot delete order that is in progress"
	case errors.Is(err, service.ErrPaymentSession):
		return http.StatusBadGateway, "Error creating stripe session"
	default:
		return http.StatusInternalServerError, "something went wrong"
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
