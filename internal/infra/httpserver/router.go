package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appai "github.com/bryanwahyu/rfp-manager/internal/application/ai"
	appinbound "github.com/bryanwahyu/rfp-manager/internal/application/inbound"
	apprfps "github.com/bryanwahyu/rfp-manager/internal/application/rfps"
	appvendors "github.com/bryanwahyu/rfp-manager/internal/application/vendors"
	errs "github.com/bryanwahyu/rfp-manager/internal/domain"
	domai "github.com/bryanwahyu/rfp-manager/internal/domain/ai"
	domain "github.com/bryanwahyu/rfp-manager/internal/domain/rfps"
	"github.com/bryanwahyu/rfp-manager/internal/domain/vendors"
	"github.com/bryanwahyu/rfp-manager/internal/infra/mail/inboundmail"
	"github.com/bryanwahyu/rfp-manager/internal/middleware"
)

// maxInboundMemory is the multipart memory budget of the inbound webhook.
const maxInboundMemory = 32 << 20

// Deps are the services and settings the router serves.
type Deps struct {
	Rfps    *apprfps.Service
	Vendors *appvendors.Service
	Inbound *appinbound.Service
	AI      *appai.Service
	// DB backs the readiness check. Optional.
	DB     middleware.Pinger
	Logger *zap.Logger

	APIKeys      map[string]string
	FrontendURLs []string
	// Limiter guards the LLM routes. Optional.
	Limiter *middleware.RateLimiter
}

type Router struct {
	rfpsSvc    *apprfps.Service
	vendorsSvc *appvendors.Service
	inboundSvc *appinbound.Service
	aiSvc      *appai.Service
	log        *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	r := &Router{rfpsSvc: d.Rfps, vendorsSvc: d.Vendors, inboundSvc: d.Inbound, aiSvc: d.AI, log: log}
	mux := chi.NewRouter()

	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.LoggingMiddleware(log))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.FrontendURLs,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	checkers := map[string]middleware.HealthChecker{}
	if d.DB != nil {
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: d.DB}
	}
	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/health/ready", middleware.HealthHandler(checkers))
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/api/v1", func(rt chi.Router) {
		// provider webhook, tanpa auth
		rt.Post("/webhooks/sendgrid/inbound", r.handleSendGridInbound)

		rt.Group(func(op chi.Router) {
			op.Use(middleware.APIKeyAuth(d.APIKeys))
			op.Use(chimw.Timeout(90 * time.Second))

			op.Group(func(llm chi.Router) {
				if d.Limiter != nil {
					llm.Use(middleware.RateLimit(d.Limiter))
				}
				llm.Post("/rfps/generate", r.wrap(r.handleGenerate))
				llm.Post("/chat/message", r.wrap(r.handleChatMessage))
				llm.Post("/chat/generate", r.wrap(r.handleChatGenerate))
			})

			op.Post("/rfps", r.wrap(r.handleCreateRfp))
			op.Get("/rfps", r.wrap(r.handleListRfps))
			op.Get("/rfps/{id}", r.wrap(r.handleGetRfp))
			op.Post("/rfps/{id}/send", r.wrap(r.handleSend))
			op.Get("/rfps/{id}/proposals", r.wrap(r.handleProposals))
			op.Post("/rfps/{id}/proposals/{proposalId}/confirm", r.wrap(r.handleConfirm))
			op.Post("/rfps/{id}/proposals/{proposalId}/reject", r.wrap(r.handleReject))

			op.Post("/vendors", r.wrap(r.handleCreateVendor))
			op.Get("/vendors", r.wrap(r.handleListVendors))
			op.Delete("/vendors/{id}", r.wrap(r.handleDeleteVendor))

			op.Post("/emails/inbound", r.wrap(r.handleLegacyInbound))
			op.Get("/inbound/errors", r.wrap(r.handleInboundErrors))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var verr *domai.ValidationError
		switch {
		case errors.Is(err, errs.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		case errors.Is(err, errs.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
		case errors.Is(err, errs.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody(err.Error()))
		case errors.Is(err, domai.ErrQuotaExceeded):
			writeJSON(w, http.StatusTooManyRequests, errorBody("ai quota exceeded, please try again later"))
		case errors.As(err, &verr),
			errors.Is(err, domai.ErrUpstream),
			errors.Is(err, domai.ErrMalformedResponse),
			errors.Is(err, domai.ErrEmptyResponse):
			r.log.Error("ai request failed", zap.String("path", req.URL.Path), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorBody("failed to process ai response"))
		default:
			r.log.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal server error"))
		}
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body; any decode failure is a client error.
func decode(req *http.Request, v any) error {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed json body: %v", errs.ErrInvalidInput, err)
	}
	return nil
}

func pathID(req *http.Request, name, kind string) (string, error) {
	id := chi.URLParam(req, name)
	if err := middleware.ValidateID(kind, id); err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}
	return id, nil
}

// POST /api/v1/rfps/generate
// Body: {"description": "..."}
func (r *Router) handleGenerate(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Description string `json:"description"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	draft, err := r.rfpsSvc.Generate(req.Context(), middleware.SanitizeString(body.Description))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, draft)
	return nil
}

// POST /api/v1/rfps
func (r *Router) handleCreateRfp(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Title        string              `json:"title"`
		Description  string              `json:"description"`
		Items        []apprfps.ItemInput `json:"items"`
		Budget       apprfps.Number      `json:"budget"`
		DeliveryDays apprfps.Number      `json:"deliveryDays"`
		PaymentTerms *string             `json:"paymentTerms"`
		Warranty     *string             `json:"warranty"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	rfp, err := r.rfpsSvc.Create(req.Context(), apprfps.CreateCommand{
		Title:        body.Title,
		Description:  body.Description,
		Items:        body.Items,
		Budget:       body.Budget,
		DeliveryDays: body.DeliveryDays,
		PaymentTerms: body.PaymentTerms,
		Warranty:     body.Warranty,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, rfp)
	return nil
}

// GET /api/v1/rfps?status=Open
func (r *Router) handleListRfps(w http.ResponseWriter, req *http.Request) error {
	list, err := r.rfpsSvc.List(req.Context(), req.URL.Query().Get("status"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// GET /api/v1/rfps/{id}
func (r *Router) handleGetRfp(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id", "rfp id")
	if err != nil {
		return err
	}
	detail, err := r.rfpsSvc.Get(req.Context(), domain.ID(id))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, detail)
	return nil
}

// POST /api/v1/rfps/{id}/send
// Body: {"vendorIds": ["..."]}
func (r *Router) handleSend(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id", "rfp id")
	if err != nil {
		return err
	}
	var body struct {
		VendorIDs []string `json:"vendorIds"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	ids := make([]vendors.ID, 0, len(body.VendorIDs))
	for _, v := range body.VendorIDs {
		ids = append(ids, vendors.ID(middleware.SanitizeString(v)))
	}

	report, err := r.rfpsSvc.Send(req.Context(), domain.ID(id), ids)
	if err != nil {
		return err
	}
	middleware.RecordRfpSend(report.Summary.Sent, report.Summary.Failed)
	writeJSON(w, http.StatusOK, report)
	return nil
}

// GET /api/v1/rfps/{id}/proposals
func (r *Router) handleProposals(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id", "rfp id")
	if err != nil {
		return err
	}
	list, err := r.rfpsSvc.Proposals(req.Context(), domain.ID(id))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

func proposalPath(req *http.Request) (domain.ID, domain.ProposalID, error) {
	id, err := pathID(req, "id", "rfp id")
	if err != nil {
		return "", "", err
	}
	pid, err := pathID(req, "proposalId", "proposal id")
	if err != nil {
		return "", "", err
	}
	return domain.ID(id), domain.ProposalID(pid), nil
}

// POST /api/v1/rfps/{id}/proposals/{proposalId}/confirm
func (r *Router) handleConfirm(w http.ResponseWriter, req *http.Request) error {
	id, pid, err := proposalPath(req)
	if err != nil {
		return err
	}
	detail, err := r.rfpsSvc.Accept(req.Context(), id, pid)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, detail)
	return nil
}

// POST /api/v1/rfps/{id}/proposals/{proposalId}/reject
func (r *Router) handleReject(w http.ResponseWriter, req *http.Request) error {
	id, pid, err := proposalPath(req)
	if err != nil {
		return err
	}
	p, err := r.rfpsSvc.Reject(req.Context(), id, pid)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, p)
	return nil
}

// POST /api/v1/chat/message
// Body: {"history": [{"role": "user", "content": "..."}], "message": "..."}
func (r *Router) handleChatMessage(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		History []domai.Turn `json:"history"`
		Message string       `json:"message"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	reply, err := r.aiSvc.Chat(req.Context(), body.History, middleware.SanitizeString(body.Message))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, reply)
	return nil
}

// POST /api/v1/chat/generate
// Body: {"history": [...]}
func (r *Router) handleChatGenerate(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		History []domai.Turn `json:"history"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	draft, err := r.rfpsSvc.GenerateFromChat(req.Context(), body.History)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, draft)
	return nil
}

// POST /api/v1/vendors
func (r *Router) handleCreateVendor(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Category string `json:"category"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	if body.Email != "" {
		if err := middleware.ValidateEmail(body.Email); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
		}
	}
	v, err := r.vendorsSvc.Create(req.Context(), appvendors.CreateCommand{
		Name:     middleware.SanitizeString(body.Name),
		Email:    body.Email,
		Category: middleware.SanitizeString(body.Category),
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, v)
	return nil
}

// GET /api/v1/vendors
func (r *Router) handleListVendors(w http.ResponseWriter, req *http.Request) error {
	list, err := r.vendorsSvc.List(req.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// DELETE /api/v1/vendors/{id}
func (r *Router) handleDeleteVendor(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id", "vendor id")
	if err != nil {
		return err
	}
	if err := r.vendorsSvc.Delete(req.Context(), vendors.ID(id)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// POST /api/v1/emails/inbound
// Body: {"text": "...", "rfpId": "...", "vendorId": "..."}
func (r *Router) handleLegacyInbound(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Text     string `json:"text"`
		RfpID    string `json:"rfpId"`
		VendorID string `json:"vendorId"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	p, err := r.inboundSvc.Ingest(req.Context(), domain.ID(body.RfpID), vendors.ID(body.VendorID), body.Text)
	if err != nil {
		return err
	}
	middleware.RecordInbound(middleware.InboundCreated)
	writeJSON(w, http.StatusCreated, p)
	return nil
}

// GET /api/v1/inbound/errors?limit=20
func (r *Router) handleInboundErrors(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.inboundSvc.RecentErrors(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// POST /api/v1/webhooks/sendgrid/inbound
// Selalu 200 supaya provider tidak retry.
func (r *Router) handleSendGridInbound(w http.ResponseWriter, req *http.Request) {
	e, err := inboundmail.ParseRequest(req, maxInboundMemory)
	if err != nil {
		r.log.Warn("inbound payload rejected", zap.Error(err))
		middleware.RecordInbound(middleware.InboundFailed)
		ok := false
		writeJSON(w, http.StatusOK, appinbound.Outcome{Success: &ok, Message: appinbound.MsgFailed, Error: err.Error()})
		return
	}

	out := r.inboundSvc.Process(req.Context(), e)
	middleware.RecordInbound(out.Status)
	writeJSON(w, http.StatusOK, out)
}
