package httpapi

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"tiendita/backend/internal/business"
	"tiendita/backend/internal/catalog"
	"tiendita/backend/internal/domain"
	"tiendita/backend/internal/ledger"
	"tiendita/backend/internal/register"
	"tiendita/backend/internal/report"
	"tiendita/backend/internal/store"
)

type API struct {
	businesses    *business.Service
	catalog       *catalog.Service
	engine        *register.Engine
	ledger        *ledger.Service
	reports       *report.Service
	auth          *AuthManager
	allowedOrigin string
	loc           *time.Location
	loginLimiter  *attemptLimiter
	csrfSecret    []byte
}

func New(biz *business.Service, cat *catalog.Service, engine *register.Engine, led *ledger.Service, reports *report.Service, auth *AuthManager, allowedOrigin string, loc *time.Location) *API {
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		// Fall back to a deterministic secret if crypto/rand fails (should not happen in practice).
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	if loc == nil {
		loc = time.Local
	}
	return &API{
		businesses:    biz,
		catalog:       cat,
		engine:        engine,
		ledger:        led,
		reports:       reports,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loc:           loc,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		csrfSecret:    csrfSecret,
	}
}

// csrfTokenForHour computes an HMAC-SHA256 token for the given hour bucket
// (expressed as Unix time truncated to the hour). The token is hex-encoded.
func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

// generateCSRFToken returns a token valid for the current hour bucket.
func (a *API) generateCSRFToken() string {
	now := time.Now().UTC()
	bucket := now.Truncate(time.Hour).Unix()
	return a.csrfTokenForHour(bucket)
}

// validateCSRFToken checks whether the provided token matches the current or
// previous hour bucket, giving a 2-hour validity window.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	now := time.Now().UTC()
	currentBucket := now.Truncate(time.Hour).Unix()
	prevBucket := currentBucket - 3600

	expected1 := a.csrfTokenForHour(currentBucket)
	expected2 := a.csrfTokenForHour(prevBucket)

	return hmac.Equal([]byte(token), []byte(expected1)) ||
		hmac.Equal([]byte(token), []byte(expected2))
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
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/api/v1/auth/register", a.handleRegister)
	mux.HandleFunc("/api/v1/auth/csrf-token", a.handleCSRFToken)

	mux.HandleFunc("/api/v1/businesses", a.requireAuth(a.handleBusinesses, domain.RoleOwner, domain.RoleEmployee))
	mux.HandleFunc("/api/v1/products", a.requireAuth(a.handleProducts, domain.RoleOwner, domain.RoleEmployee))
	mux.HandleFunc("/api/v1/products/", a.requireAuth(a.handleProductActions, domain.RoleOwner))
	mux.HandleFunc("/api/v1/skus/preview", a.requireAuth(a.handleSKUPreview, domain.RoleOwner))
	mux.HandleFunc("/api/v1/checkout", a.requireAuth(a.handleCheckout, domain.RoleOwner, domain.RoleEmployee))
	mux.HandleFunc("/api/v1/sales", a.requireAuth(a.handleSales, domain.RoleOwner, domain.RoleEmployee))
	mux.HandleFunc("/api/v1/reports/summary", a.requireAuth(a.handleReportSummary, domain.RoleOwner))
	mux.HandleFunc("/api/v1/dashboard", a.requireAuth(a.handleDashboard, domain.RoleOwner, domain.RoleEmployee))
	mux.HandleFunc("/api/v1/users/employees", a.requireAuth(a.handleEmployees, domain.RoleOwner))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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

		next(w, r.WithContext(catalog.WithActor(r.Context(), actor)))
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

func actorBusinessID(r *http.Request) (string, error) {
	actor, ok := catalog.ActorFromContext(r.Context())
	if !ok || actor.BusinessID == "" {
		return "", errors.New("no business bound to token")
	}
	return actor.BusinessID, nil
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow("register:" + clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many registration attempts"))
		return
	}

	var req domain.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Register(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleEmployees(w http.ResponseWriter, r *http.Request) {
	bizID, err := actorBusinessID(r)
	if err != nil {
		writeError(w, http.StatusForbidden, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		employees, err := a.auth.ListEmployees(r.Context(), bizID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"employees": employees})
	case http.MethodPost:
		var req domain.EmployeeCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		employee, err := a.auth.CreateEmployee(r.Context(), bizID, req)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"employee": employee})
	default:
		writeMethodNotAllowed(w)
	}
}

// handleCSRFToken returns a stateless CSRF token valid for the current hour bucket.
// Clients must include this token in the X-CSRF-Token header for all mutating requests.
func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"csrf_token": a.generateCSRFToken(),
	})
}

// csrfExemptPaths lists paths that are exempt from CSRF validation.
// Login and registration are excluded because they are called without a
// prior CSRF token fetch.
var csrfExemptPaths = []string{
	"/api/v1/auth/login",
	"/api/v1/auth/register",
}

// checkCSRF enforces CSRF token validation for state-changing methods
// (POST/PUT/PATCH/DELETE). Returns false and writes an error response if
// validation fails.
func (a *API) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	method := r.Method
	if method != http.MethodPost && method != http.MethodPut && method != http.MethodPatch && method != http.MethodDelete {
		return true
	}
	for _, exempt := range csrfExemptPaths {
		if r.URL.Path == exempt {
			return true
		}
	}
	token := strings.TrimSpace(r.Header.Get("X-CSRF-Token"))
	if !a.validateCSRFToken(token) {
		writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
		return false
	}
	return true
}

func (a *API) handleBusinesses(w http.ResponseWriter, r *http.Request) {
	actor, _ := catalog.ActorFromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		bizID, err := actorBusinessID(r)
		if err != nil {
			writeError(w, http.StatusForbidden, err)
			return
		}
		biz, err := a.businesses.Get(r.Context(), bizID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"business": biz})
	case http.MethodPost:
		if actor.Role != domain.RoleOwner {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}
		var req domain.BusinessCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		biz, err := a.businesses.Create(r.Context(), req)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"business": biz})
	case http.MethodPut:
		if actor.Role != domain.RoleOwner {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}
		bizID, err := actorBusinessID(r)
		if err != nil {
			writeError(w, http.StatusForbidden, err)
			return
		}
		var req domain.BusinessUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		biz, err := a.businesses.UpdateProfile(r.Context(), bizID, req)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"business": biz})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	bizID, err := actorBusinessID(r)
	if err != nil {
		writeError(w, http.StatusForbidden, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		products, err := a.catalog.List(r.Context(), bizID, r.URL.Query().Get("q"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"products": products})
	case http.MethodPost:
		actor, _ := catalog.ActorFromContext(r.Context())
		if actor.Role != domain.RoleOwner {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}
		var req domain.ProductUpsertRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		product, err := a.catalog.Upsert(r.Context(), bizID, req)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		status := http.StatusCreated
		if req.ID != "" {
			status = http.StatusOK
		}
		writeJSON(w, status, map[string]any{"product": product})
	case http.MethodDelete:
		actor, _ := catalog.ActorFromContext(r.Context())
		if actor.Role != domain.RoleOwner {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}
		if err := a.catalog.ClearForBusiness(r.Context(), bizID); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleProductActions(w http.ResponseWriter, r *http.Request) {
	bizID, err := actorBusinessID(r)
	if err != nil {
		writeError(w, http.StatusForbidden, err)
		return
	}

	prefix := "/api/v1/products/"
	productID := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if productID == "" {
		writeError(w, http.StatusBadRequest, errors.New("product id required"))
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req domain.ProductUpsertRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		req.ID = productID
		product, err := a.catalog.Upsert(r.Context(), bizID, req)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": product})
	case http.MethodDelete:
		if err := a.catalog.Delete(r.Context(), bizID, productID); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleSKUPreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	bizID, err := actorBusinessID(r)
	if err != nil {
		writeError(w, http.StatusForbidden, err)
		return
	}

	var req domain.SKUPreviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sku, err := a.catalog.PreviewSKU(r.Context(), bizID, req.Name, req.Category)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.SKUPreviewResponse{SKU: sku})
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	bizID, err := actorBusinessID(r)
	if err != nil {
		writeError(w, http.StatusForbidden, err)
		return
	}

	var req domain.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// Resolve the idempotency key before rebuilding the cart. A replay of
	// an already-recorded request must return the original sale even when
	// that sale consumed the remaining stock, so the stock-checked cart
	// rebuild below cannot run first.
	idempotencyKey := strings.TrimSpace(req.IdempotencyKey)
	if idempotencyKey != "" {
		existing, err := a.ledger.FindByIdempotencyKey(r.Context(), bizID, idempotencyKey)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if existing != nil {
			writeJSON(w, http.StatusOK, domain.CheckoutResponse{Sale: *existing, Duplicate: true})
			return
		}
	}

	cart := register.NewCart(a.catalog, bizID)
	for _, item := range req.Items {
		if err := cart.AddQty(r.Context(), item.ProductID, item.Qty); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	sale, duplicate, err := a.engine.Checkout(r.Context(), bizID, cart, register.CheckoutOptions{
		DiscountCents:  req.DiscountCents,
		PaymentMethod:  strings.TrimSpace(req.PaymentMethod),
		EmployeeName:   strings.TrimSpace(req.EmployeeName),
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domain.CheckoutResponse{Sale: sale, Duplicate: duplicate})
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	bizID, err := actorBusinessID(r)
	if err != nil {
		writeError(w, http.StatusForbidden, err)
		return
	}

	filter, err := a.parseSaleFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sales, err := a.ledger.ListForBusiness(r.Context(), bizID, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": sales})
}

func (a *API) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	bizID, err := actorBusinessID(r)
	if err != nil {
		writeError(w, http.StatusForbidden, err)
		return
	}

	filter, err := a.parseSaleFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	summary, err := a.reports.Summary(r.Context(), bizID, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="sales-report.csv"`)
		_, _ = w.Write([]byte(summaryToCSV(summary)))
	case "print":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(summaryToPrintableHTML(summary)))
	default:
		writeJSON(w, http.StatusOK, summary)
	}
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	bizID, err := actorBusinessID(r)
	if err != nil {
		writeError(w, http.StatusForbidden, err)
		return
	}

	resp, err := a.reports.Dashboard(r.Context(), bizID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseSaleFilter reads from/to (YYYY-MM-DD, interpreted in the report
// timezone) and method query parameters.
func (a *API) parseSaleFilter(r *http.Request) (ledger.Filter, error) {
	var filter ledger.Filter
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		t, err := time.ParseInLocation("2006-01-02", raw, a.loc)
		if err != nil {
			return ledger.Filter{}, fmt.Errorf("invalid from date %q", raw)
		}
		filter.From = &t
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		t, err := time.ParseInLocation("2006-01-02", raw, a.loc)
		if err != nil {
			return ledger.Filter{}, fmt.Errorf("invalid to date %q", raw)
		}
		filter.To = &t
	}
	filter.Method = strings.TrimSpace(r.URL.Query().Get("method"))
	return filter, nil
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// Enforce CSRF protection for all state-changing requests.
		if !a.checkCSRF(w, r) {
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

// writeDomainError maps the sentinel error kinds onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrValidation),
		errors.Is(err, store.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, store.ErrDuplicateSKU),
		errors.Is(err, store.ErrDuplicateHandle),
		errors.Is(err, store.ErrOutOfStock),
		errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrProductGone):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, store.ErrNonPositiveTotal):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func summaryToCSV(summary report.Summary) string {
	lines := []string{
		"section,key,value",
		fmt.Sprintf("summary,income_cents,%d", summary.IncomeCents),
		fmt.Sprintf("summary,sales_count,%d", summary.SalesCount),
		fmt.Sprintf("summary,avg_ticket_cents,%d", summary.AvgTicketCents),
		fmt.Sprintf("summary,projected_next_30_cents,%d", summary.ProjectedNext30Cents),
	}
	for i, day := range summary.Daily.Labels {
		lines = append(lines, fmt.Sprintf("daily,%s,%d", day, summary.Daily.Values[i]))
	}
	for i, method := range summary.ByMethod.Labels {
		lines = append(lines, fmt.Sprintf("method,%s,%d", method, summary.ByMethod.Values[i]))
	}
	for i, name := range summary.TopProducts.Labels {
		lines = append(lines, fmt.Sprintf("top_product,%s,%d", name, summary.TopProducts.Values[i]))
	}
	for _, emp := range summary.Employees {
		lines = append(lines, fmt.Sprintf("employee,%s_income_cents,%d", emp.Employee, emp.IncomeCents))
		lines = append(lines, fmt.Sprintf("employee,%s_sales_count,%d", emp.Employee, emp.SalesCount))
	}
	return strings.Join(lines, "\n") + "\n"
}

// summaryHTMLTmpl renders the printable sales report. User-controlled
// fields are auto-escaped by html/template.
var summaryHTMLTmpl = template.Must(template.New("sales-report").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Sales Report</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    h2, h3 { margin-bottom: 4px; }
  </style>
</head>
<body>
  <h2>Sales Report</h2>
  <p>Income: {{.IncomeCents}} | Sales: {{.SalesCount}} | Avg ticket: {{.AvgTicketCents}} | Projected 30d: {{.ProjectedNext30Cents}}</p>

  <h3>Daily</h3>
  <table>
    <thead><tr><th>Day</th><th>Total Cents</th></tr></thead>
    <tbody>{{range $i, $day := .Daily.Labels}}<tr><td>{{$day}}</td><td style="text-align:right;">{{index $.Daily.Values $i}}</td></tr>{{end}}</tbody>
  </table>

  <h3>By Payment Method</h3>
  <table>
    <thead><tr><th>Method</th><th>Total Cents</th></tr></thead>
    <tbody>{{range $i, $m := .ByMethod.Labels}}<tr><td>{{$m}}</td><td style="text-align:right;">{{index $.ByMethod.Values $i}}</td></tr>{{end}}</tbody>
  </table>

  <h3>Top Products</h3>
  <table>
    <thead><tr><th>Product</th><th>Qty</th></tr></thead>
    <tbody>{{range $i, $p := .TopProducts.Labels}}<tr><td>{{$p}}</td><td style="text-align:right;">{{index $.TopProducts.Values $i}}</td></tr>{{end}}</tbody>
  </table>

  <h3>Employees</h3>
  <table>
    <thead><tr><th>Employee</th><th>Sales</th><th>Income Cents</th><th>Items</th></tr></thead>
    <tbody>{{range .Employees}}<tr><td>{{.Employee}}</td><td style="text-align:right;">{{.SalesCount}}</td><td style="text-align:right;">{{.IncomeCents}}</td><td style="text-align:right;">{{.ItemCount}}</td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

func summaryToPrintableHTML(summary report.Summary) string {
	var buf bytes.Buffer
	if err := summaryHTMLTmpl.Execute(&buf, summary); err != nil {
		// Fallback: return a plain-text error page rather than leaking internal details.
		return "<!doctype html><html><body><p>Report rendering error.</p></body></html>"
	}
	return buf.String()
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// For 5xx responses, return a generic message to avoid leaking internal
	// implementation details (stack traces, SQL errors, file paths, etc.).
	// 4xx responses are user-facing so we return the original error message.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
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
