package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"returnremind/internal/pkg/logger"
	"returnremind/internal/service/reminder/application"
	"returnremind/internal/service/reminder/domain"
	"returnremind/internal/service/reminder/port"
)

const maxBodyBytes = 1 << 20

// ReminderHandler 封装了 reminder 服务的 HTTP 处理器
type ReminderHandler struct {
	service *application.ReminderService
	clock   port.Clock
}

// NewReminderHandler 创建一个新的 HTTP 处理器实例
func NewReminderHandler(service *application.ReminderService, clock port.Clock) *ReminderHandler {
	return &ReminderHandler{service: service, clock: clock}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *ReminderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /users/{userId}/purchases", h.handleListActive)
	mux.HandleFunc("GET /users/{userId}/purchases/history", h.handleListHistory)
	mux.HandleFunc("GET /users/{userId}/purchases/{purchaseId}", h.handleGetPurchase)
	mux.HandleFunc("POST /users/{userId}/purchases", h.handleAddPurchase)
	mux.HandleFunc("GET /users/{userId}/notifications", h.handleListNotifications)
	mux.HandleFunc("GET /users/{userId}/dashboard", h.handleDashboard)
}

func (h *ReminderHandler) handleListActive(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListActive(ctx, r.PathValue("userId"), asOf)
	if err != nil {
		writeError(ctx, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ReminderHandler) handleListHistory(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListHistory(ctx, r.PathValue("userId"), asOf)
	if err != nil {
		writeError(ctx, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ReminderHandler) handleGetPurchase(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}
	p, err := h.service.GetPurchase(ctx, r.PathValue("userId"), r.PathValue("purchaseId"), asOf)
	if err != nil {
		writeError(ctx, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ReminderHandler) handleAddPurchase(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	var req application.AddPurchaseRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	resp, err := h.service.AddPurchase(ctx, r.PathValue("userId"), &req)
	if err != nil {
		writeError(ctx, w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *ReminderHandler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListUpcoming(ctx, r.PathValue("userId"), asOf)
	if err != nil {
		writeError(ctx, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ReminderHandler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}
	d, err := h.service.GetDashboard(ctx, r.PathValue("userId"), asOf)
	if err != nil {
		writeError(ctx, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// asOf 读取可选的 asOf 参数（YYYY-MM-DD 或 RFC3339），缺省时取当前时间
func (h *ReminderHandler) asOf(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("asOf"))
	if raw == "" {
		return h.clock.Now(), true
	}
	if d, err := domain.ParseDate(raw); err == nil {
		return d, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:  "invalid asOf",
		Fields: map[string]string{"asOf": "must be YYYY-MM-DD or RFC3339"},
	})
	return time.Time{}, false
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeError 根据错误类型返回不同的 HTTP 状态码
func writeError(ctx context.Context, w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: domain.ErrValidation.Error(), Fields: verr.Fields})
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrPurchaseNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		logger.Ctx(ctx).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
