package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/luizaugustom/montshop-desktop-sub000/internal/backoffice"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/domain"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/metrics"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/money"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/service"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/session"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/store"
)

const maxBodyBytes = 1 << 20

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	pinLimiter    *attemptLimiter
	metrics       *metrics.Recorder
	logger        *zap.Logger
}

// New builds the HTTP API. A nil recorder disables /metrics.
func New(svc *service.Service, auth *AuthManager, allowedOrigin string, rec *metrics.Recorder, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		pinLimiter:    newAttemptLimiter(8, time.Minute),
		metrics:       rec,
		logger:        logger.Named("http"),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.withMiddleware)

	r.Get("/healthz", a.handleHealth)
	if a.metrics != nil {
		r.Method(http.MethodGet, "/metrics", a.metrics.Handler())
	}

	all := []string{domain.RoleAdmin, domain.RoleManager, domain.RoleSeller}
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth(all...))

			r.Get("/ui-config", a.handleUIConfig)
			r.Get("/products", a.handleProducts)

			r.Post("/exchange-sessions", a.handleOpenExchange)
			r.Get("/exchange-sessions/{id}", a.handleExchangeView)
			r.Patch("/exchange-sessions/{id}", a.handleExchangeEdit)
			r.Post("/exchange-sessions/{id}/submit", a.handleExchangeSubmit)
			r.Delete("/exchange-sessions/{id}", a.handleExchangeClose)
			r.Get("/exchanges/{id}/voucher", a.handleVoucher)

			r.Post("/debt-sessions", a.handleOpenDebt)
			r.Get("/debt-sessions/{id}", a.handleDebtView)
			r.Post("/debt-sessions/{id}/toggle", a.handleDebtToggle)
			r.Post("/debt-sessions/{id}/amount", a.handleDebtAmount)
			r.Post("/debt-sessions/{id}/select-all", a.handleDebtSelectAll)
			r.Post("/debt-sessions/{id}/clear", a.handleDebtClear)
			r.Post("/debt-sessions/{id}/submit", a.handleDebtSubmit)
			r.Delete("/debt-sessions/{id}", a.handleDebtClose)

			r.Post("/installments/{id}/payments", a.handleInstallmentPayment)
		})
		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth(domain.RoleAdmin))
			r.Get("/audit-logs", a.handleAuditLogs)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMethodNotAllowed(w)
	})
	return r
}

func (a *API) requireAuth(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authorization := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
				writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
				return
			}

			token := strings.TrimSpace(authorization[len("Bearer "):])
			actor, err := a.auth.ParseToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err)
				return
			}

			if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
				writeError(w, http.StatusForbidden, errors.New("forbidden role"))
				return
			}

			ctx := service.WithActor(r.Context(), actor)
			ctx = backoffice.WithToken(ctx, actor.Token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleUIConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.service.UIConfig())
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := domain.ProductQuery{
		Search: strings.TrimSpace(query.Get("q")),
		Page:   parsePositiveLimit(query.Get("page"), 1, 0),
		Limit:  parsePositiveLimit(query.Get("limit"), 20, 100),
	}
	page, err := a.service.SearchProducts(r.Context(), q)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Exchange dialog

func (a *API) handleOpenExchange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SaleID string `json:"sale_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := a.service.OpenExchange(r.Context(), req.SaleID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (a *API) handleExchangeView(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.ExchangeView(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleExchangeEdit(w http.ResponseWriter, r *http.Request) {
	var edit session.ExchangeEdit
	if err := decodeJSON(r, &edit); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := a.service.EditExchange(r.Context(), chi.URLParam(r, "id"), edit)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleExchangeSubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ManagerPIN string `json:"manager_pin,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.ManagerPIN) != "" && !a.pinLimiter.Allow("pin:exchange:"+clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many manager pin attempts"))
		return
	}

	out, err := a.service.SubmitExchange(r.Context(), chi.URLParam(r, "id"), req.ManagerPIN)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleExchangeClose(w http.ResponseWriter, r *http.Request) {
	if err := a.service.CloseExchange(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleVoucher(w http.ResponseWriter, r *http.Request) {
	out, err := a.service.ExchangeVoucher(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Bulk payment dialog

type installmentRef struct {
	InstallmentID string `json:"installment_id"`
	Amount        any    `json:"amount,omitempty"`
}

func (a *API) handleOpenDebt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID string `json:"customer_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := a.service.OpenDebt(r.Context(), req.CustomerID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (a *API) handleDebtView(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.DebtView(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleDebtToggle(w http.ResponseWriter, r *http.Request) {
	var req installmentRef
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := a.service.ToggleInstallment(r.Context(), chi.URLParam(r, "id"), req.InstallmentID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleDebtAmount(w http.ResponseWriter, r *http.Request) {
	var req installmentRef
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount := money.Normalize(a.logger, "debt.amount", req.Amount)
	view, err := a.service.SetInstallmentAmount(r.Context(), chi.URLParam(r, "id"), req.InstallmentID, amount)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleDebtSelectAll(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.SelectAllInstallments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleDebtClear(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.ClearInstallments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleDebtSubmit(w http.ResponseWriter, r *http.Request) {
	var req service.DebtPaymentInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := a.service.SubmitDebt(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleDebtClose(w http.ResponseWriter, r *http.Request) {
	if err := a.service.CloseDebt(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleInstallmentPayment(w http.ResponseWriter, r *http.Request) {
	var req service.InstallmentPaymentInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := a.service.PayInstallment(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.AuditFilter{
		Actor:  strings.TrimSpace(query.Get("actor")),
		Action: strings.TrimSpace(query.Get("action")),
		Limit:  parsePositiveLimit(query.Get("limit"), 100, 500),
	}
	var err error
	if filter.From, err = parseTimeParam(query.Get("from")); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("from must be RFC3339"))
		return
	}
	if filter.To, err = parseTimeParam(query.Get("to")); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("to must be RFC3339"))
		return
	}

	logs, err := a.service.ListAuditLogs(r.Context(), filter)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		if a.allowedOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
			w.Header().Set("Vary", "Origin")
		}

		if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		elapsed := time.Since(startedAt)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		a.metrics.ObserveRequest(r.Method, route, strconv.Itoa(status), elapsed.Seconds())
		a.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	if verr, ok := domain.AsValidation(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": verr.Message,
			"code":  verr.Code,
		})
		return
	}
	if brerr, ok := domain.AsBusinessRule(err); ok {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":  brerr.Error(),
			"status": brerr.Status,
		})
		return
	}
	if _, ok := domain.AsNetwork(err); ok {
		a.logger.Warn("shop service unreachable", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": domain.GenericNetworkReason})
		return
	}

	switch {
	case errors.Is(err, backoffice.ErrMalformedResponse):
		a.logger.Error("unexpected shop service response", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": domain.GenericNetworkReason})
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, session.ErrClosed):
		writeError(w, http.StatusGone, err)
	case errors.Is(err, session.ErrSubmissionInFlight), errors.Is(err, session.ErrCompleted):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, service.ErrManagerPINRequired):
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error": err.Error(),
			"code":  domain.CodeManagerPINRequired,
		})
	case errors.Is(err, service.ErrManagerPINInvalid), errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, store.ErrInvalidRecord):
		writeError(w, http.StatusBadRequest, err)
	default:
		a.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	decoder.UseNumber()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func parseTimeParam(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// writeError hides the message of 5xx responses.
func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
