package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"invoicehub-sync/internal/application"
	"invoicehub-sync/internal/domain"
	"invoicehub-sync/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Handler exposes the sync core operations as a thin JSON layer. All business
// rules live in the application services; this layer only decodes, dispatches
// and maps errors to status codes.
type Handler struct {
	connections *application.ConnectionService
	settings    *application.SettingsService
	sync        *application.SyncService
	logger      zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	connections *application.ConnectionService,
	settings *application.SettingsService,
	sync *application.SyncService,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		connections: connections,
		settings:    settings,
		sync:        sync,
		logger:      logger,
	}
}

// Router builds the chi router with the standard middleware stack
func (h *Handler) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Tenant-ID", "X-Company-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/integrations", func(r chi.Router) {
		r.Use(tenantMiddleware)
		r.Post("/", h.connect)
		r.Route("/{integrationID}", func(r chi.Router) {
			r.Get("/", h.getConnection)
			r.Delete("/", h.deactivate)
			r.Post("/sync", h.runSync)
			r.Post("/reactivate", h.reactivate)
			r.Get("/settings", h.getSettings)
			r.Put("/settings", h.updateSettings)
		})
	})

	return r
}

// tenantMiddleware scopes every request to the tenant named in the header.
func tenantMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := r.Header.Get("X-Tenant-ID")
		if tenantID == "" {
			writeError(w, http.StatusUnauthorized, "missing X-Tenant-ID header")
			return
		}
		ctx := domain.WithTenantID(r.Context(), tenantID)
		if companyID := r.Header.Get("X-Company-ID"); companyID != "" {
			ctx = domain.WithCompanyID(ctx, companyID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type connectRequest struct {
	Provider  string               `json:"provider"`
	CompanyID string               `json:"company_id"`
	Token     string               `json:"token"`
	AccountID string               `json:"account_id,omitempty"`
	Settings  domain.SettingsPatch `json:"settings"`
}

func (h *Handler) connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	if !domain.Provider(req.Provider).IsValid() {
		writeError(w, http.StatusBadRequest, "unsupported provider")
		return
	}

	companyID := req.CompanyID
	if companyID == "" {
		companyID = domain.CompanyIDFromContext(r.Context())
	}

	conn, err := h.connections.Connect(r.Context(), application.ConnectInput{
		TenantID:  domain.TenantIDFromContext(r.Context()),
		CompanyID: companyID,
		Provider:  domain.Provider(req.Provider),
		Token:     req.Token,
		AccountID: req.AccountID,
		Settings:  req.Settings,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, conn)
}

func (h *Handler) getConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.connections.GetConnection(r.Context(), chi.URLParam(r, "integrationID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	conn, err := h.connections.Deactivate(r.Context(), chi.URLParam(r, "integrationID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

func (h *Handler) reactivate(w http.ResponseWriter, r *http.Request) {
	conn, err := h.connections.Reactivate(r.Context(), chi.URLParam(r, "integrationID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

func (h *Handler) runSync(w http.ResponseWriter, r *http.Request) {
	result, err := h.sync.RunSync(r.Context(), chi.URLParam(r, "integrationID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, result)
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.GetSettings(r.Context(), chi.URLParam(r, "integrationID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse(settings))
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var patch domain.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	settings, err := h.settings.UpdateSettings(r.Context(), chi.URLParam(r, "integrationID"), patch)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse(settings))
}

// settingsView renders the VAT rate as a JSON number string rather than the
// decimal's internal representation.
type settingsView struct {
	AutoGenerateInvoices bool            `json:"auto_generate_invoices"`
	AutoCreateCustomer   bool            `json:"auto_create_customer"`
	AutoCreateProduct    bool            `json:"auto_create_product"`
	AutoMarkAsPaid       bool            `json:"auto_mark_as_paid"`
	DefaultVatRate       decimal.Decimal `json:"default_vat_rate"`
	SyncFrequencyMinutes int             `json:"sync_frequency_minutes"`
}

func settingsResponse(s domain.IntegrationSettings) settingsView {
	return settingsView{
		AutoGenerateInvoices: s.AutoGenerateInvoices,
		AutoCreateCustomer:   s.AutoCreateCustomer,
		AutoCreateProduct:    s.AutoCreateProduct,
		AutoMarkAsPaid:       s.AutoMarkAsPaid,
		DefaultVatRate:       s.DefaultVatRate,
		SyncFrequencyMinutes: s.SyncFrequencyMinutes,
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrConnectionNotFound):
		writeError(w, http.StatusNotFound, "integration not found")
	case domain.IsAuth(err):
		writeError(w, http.StatusUnauthorized, errorBody(err))
	case errors.Is(err, domain.ErrInvalidSettings):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrRunInProgress):
		writeError(w, http.StatusConflict, "sync already running")
	default:
		h.logger.Error().Err(err).
			Str("path", r.URL.Path).
			Msg("Request failed")
		writeError(w, http.StatusInternalServerError, errorBody(err))
	}
}

// errorBody keeps wrap chains with transport details out of responses.
func errorBody(err error) string {
	var syncErr *domain.SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Message
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
