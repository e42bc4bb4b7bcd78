package security

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/FACorreiaa/tournament-auth/internal/api"
	"github.com/FACorreiaa/tournament-auth/internal/api/auth"
	"github.com/FACorreiaa/tournament-auth/internal/audit"
	"github.com/FACorreiaa/tournament-auth/internal/authz"
	"github.com/FACorreiaa/tournament-auth/internal/types"
	"github.com/FACorreiaa/tournament-auth/internal/validation"
)

const maxAuditLimit = 500

type SecurityHandler struct {
	service SecurityService
	logger  *slog.Logger
}

func NewSecurityHandler(service SecurityService, logger *slog.Logger) *SecurityHandler {
	return &SecurityHandler{
		service: service,
		logger:  logger,
	}
}

func actor(r *http.Request) string {
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		return claims.Subject
	}
	return ""
}

// ValidateToken godoc
// @Summary      Validate a token for a role
// @Description  Verifies a token and checks that it carries the given role.
// @Tags         Security
// @Accept       json
// @Produce      json
// @Param        request body ValidateTokenRequest true "Token and required role"
// @Success      200 {object} ValidateTokenResponse
// @Failure      401 {object} api.ErrorBody "Invalid or Expired Token"
// @Failure      403 {object} api.ErrorBody "Insufficient Permissions"
// @Router       /security/validate-token [post]
func (h *SecurityHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ValidateToken"))

	var req ValidateTokenRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Token == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "token is required")
		return
	}

	var role types.Role
	if req.Role != "" {
		parsed, ok := types.ParseRole(req.Role)
		if !ok {
			api.ErrorResponse(w, r, http.StatusBadRequest, "unknown role "+req.Role)
			return
		}
		role = parsed
	}

	claims, err := h.service.ValidateToken(ctx, req.Token, role)
	if err != nil {
		api.WriteError(w, r, l, err)
		return
	}

	resp := ValidateTokenResponse{Valid: true, Username: claims.Subject, Roles: claims.Roles}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// Authorize godoc
// @Summary      Check a permission
// @Description  Evaluates a role/operation/resource triple against the permission matrix.
// @Tags         Security
// @Accept       json
// @Produce      json
// @Param        request body AuthorizeRequest true "Triple to check"
// @Success      200 {object} AuthorizeResponse
// @Failure      400 {object} api.ErrorBody "Invalid Input"
// @Security     BearerAuth
// @Router       /security/authorize [post]
func (h *SecurityHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	var req AuthorizeRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Role == "" || req.Operation == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "role and operation are required")
		return
	}

	// Unknown roles are passed through so the matrix records the denial.
	role, ok := types.ParseRole(req.Role)
	if !ok {
		role = types.Role(strings.ToUpper(strings.TrimSpace(req.Role)))
	}
	op := authz.Operation(strings.ToUpper(strings.TrimSpace(req.Operation)))

	allowed := h.service.Authorize(r.Context(), role, op, req.Resource)
	api.WriteJSONResponse(w, r, http.StatusOK, AuthorizeResponse{
		Allowed:   allowed,
		Role:      string(role),
		Operation: string(op),
		Resource:  req.Resource,
	})
}

// Encrypt godoc
// @Summary      Encrypt sensitive data
// @Tags         Security
// @Accept       json
// @Produce      json
// @Param        request body SealRequest true "Plaintext"
// @Success      200 {object} SealResponse
// @Failure      403 {object} api.ErrorBody "Forbidden"
// @Security     BearerAuth
// @Router       /security/encrypt [post]
func (h *SecurityHandler) Encrypt(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "Encrypt"))

	var req SealRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sealed, err := h.service.Encrypt(r.Context(), actor(r), req.Data)
	if err != nil {
		api.WriteError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, SealResponse{Data: sealed})
}

// Decrypt godoc
// @Summary      Decrypt sensitive data
// @Tags         Security
// @Accept       json
// @Produce      json
// @Param        request body SealRequest true "Sealed value"
// @Success      200 {object} SealResponse
// @Failure      400 {object} api.ErrorBody "Invalid Ciphertext"
// @Failure      403 {object} api.ErrorBody "Forbidden"
// @Security     BearerAuth
// @Router       /security/decrypt [post]
func (h *SecurityHandler) Decrypt(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "Decrypt"))

	var req SealRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	plaintext, err := h.service.Decrypt(r.Context(), actor(r), req.Data)
	if err != nil {
		api.WriteError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, SealResponse{Data: plaintext})
}

// ValidateInput godoc
// @Summary      Validate input
// @Description  Sanitizes input and checks it against EMAIL, PASSWORD, EXTERNAL_ID, NAME or GENERAL_TEXT.
// @Tags         Security
// @Accept       json
// @Produce      json
// @Param        request body ValidateInputRequest true "Input and kind"
// @Success      200 {object} validation.Result
// @Failure      400 {object} api.ErrorBody "Unknown Type"
// @Router       /security/validate-input [post]
func (h *SecurityHandler) ValidateInput(w http.ResponseWriter, r *http.Request) {
	var req ValidateInputRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	kind, err := validation.ParseKind(req.Type)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, h.service.ValidateInput(r.Context(), actor(r), req.Input, kind))
}

// LogEvent godoc
// @Summary      Record an audit event
// @Tags         Security
// @Accept       json
// @Produce      json
// @Param        request body LogEventRequest true "Event"
// @Success      202 {object} audit.Event
// @Failure      400 {object} api.ErrorBody "Invalid Input"
// @Security     BearerAuth
// @Router       /security/log-event [post]
func (h *SecurityHandler) LogEvent(w http.ResponseWriter, r *http.Request) {
	var req LogEventRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.EventType) == "" || strings.TrimSpace(req.Description) == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "event_type and description are required")
		return
	}
	severity := audit.SeverityInfo
	if req.Severity != "" {
		s, ok := audit.ParseSeverity(req.Severity)
		if !ok {
			api.ErrorResponse(w, r, http.StatusBadRequest, "unknown severity "+req.Severity)
			return
		}
		severity = s
	}

	e := audit.Event{
		Type:        strings.ToUpper(strings.TrimSpace(req.EventType)),
		Severity:    severity,
		Actor:       actor(r),
		Resource:    req.Resource,
		Description: req.Description,
	}
	api.WriteJSONResponse(w, r, http.StatusAccepted, h.service.LogEvent(r.Context(), e))
}

// AuditEvents godoc
// @Summary      Recent audit events
// @Tags         Security
// @Produce      json
// @Param        limit query int false "Maximum number of events (default 100, max 500)"
// @Success      200 {object} AuditEventsResponse
// @Failure      403 {object} api.ErrorBody "Forbidden"
// @Security     BearerAuth
// @Router       /security/audit [get]
func (h *SecurityHandler) AuditEvents(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "AuditEvents"))

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			api.ErrorResponse(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxAuditLimit)
	}

	events, err := h.service.RecentEvents(r.Context(), limit)
	if err != nil {
		api.WriteError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, AuditEventsResponse{Events: events, Count: len(events)})
}
