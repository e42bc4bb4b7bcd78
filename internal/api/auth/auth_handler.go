package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/FACorreiaa/tournament-auth/internal/api"
	"github.com/FACorreiaa/tournament-auth/internal/authz"
	"github.com/FACorreiaa/tournament-auth/internal/types"
)

type AuthHandler struct {
	service AuthService
	logger  *slog.Logger
}

func NewAuthHandler(service AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

// Login godoc
// @Summary      Log in
// @Description  Verifies username and password and returns a bearer token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        credentials body LoginRequest true "Credentials"
// @Success      200 {object} LoginResponse
// @Failure      400 {object} api.ErrorBody "Invalid Input"
// @Failure      401 {object} api.ErrorBody "Invalid Credentials"
// @Failure      404 {object} api.ErrorBody "User Not Found"
// @Router       /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Login"))

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Invalid login body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username == "" || req.Password == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "username and password are required")
		return
	}

	res, err := h.service.Login(ctx, req.Username, req.Password)
	if err != nil {
		api.WriteError(w, r, l, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, LoginResponse{
		Success:   true,
		Token:     res.AccessToken,
		TokenType: "Bearer",
		ExpiresAt: res.ExpiresAt,
		User:      res.User,
	})
}

// Register godoc
// @Summary      Register
// @Description  Creates an account. The password must satisfy the password policy.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        account body RegisterRequest true "New account"
// @Success      201 {object} RegisterResponse
// @Failure      400 {object} api.ErrorBody "Invalid Input"
// @Failure      409 {object} api.ErrorBody "Duplicate Username, Email or External ID"
// @Failure      422 {object} api.ErrorBody "Password Policy Violation"
// @Router       /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Register"))

	var req RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Invalid register body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
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

	user, err := h.service.Register(ctx, RegisterParams{
		Username:      req.Username,
		Email:         req.Email,
		Password:      req.Password,
		Role:          role,
		ExternalID:    req.ExternalID,
		Confederation: req.Confederation,
		Team:          req.Team,
	})
	if err != nil {
		api.WriteError(w, r, l, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, RegisterResponse{Success: true, User: user.View()})
}

// ChangePassword godoc
// @Summary      Change password
// @Description  Rotates the caller's password. The last eight passwords may not be reused.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        password body ChangePasswordRequest true "New password"
// @Success      200 {object} Response
// @Failure      401 {object} api.ErrorBody "Unauthorized"
// @Failure      422 {object} api.ErrorBody "Password Policy Violation"
// @Security     BearerAuth
// @Router       /auth/password [put]
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ChangePassword"))

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.NewPassword == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "new_password is required")
		return
	}

	if err := h.service.ChangePassword(ctx, claims.Subject, req.NewPassword); err != nil {
		api.WriteError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, Response{Success: true, Message: "password changed"})
}

// PasswordExpired godoc
// @Summary      Password expiry
// @Description  Reports whether an account's password is past its role's maximum age. Checking another account requires MANAGE_USERS.
// @Tags         Auth
// @Produce      json
// @Param        username query string false "Account to check (defaults to the caller)"
// @Success      200 {object} PasswordExpiredResponse
// @Failure      403 {object} api.ErrorBody "Forbidden"
// @Failure      404 {object} api.ErrorBody "User Not Found"
// @Security     BearerAuth
// @Router       /auth/password/expired [get]
func (h *AuthHandler) PasswordExpired(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "PasswordExpired"))

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		username = claims.Subject
	}
	if username != claims.Subject {
		role, _ := claims.PrimaryRole()
		if !h.service.Authorize(ctx, role, authz.OpManageUsers, "users/"+username) {
			api.ErrorResponse(w, r, http.StatusForbidden, types.ErrUnauthorized.Error())
			return
		}
	}

	expired, err := h.service.IsPasswordExpired(ctx, username)
	if err != nil {
		api.WriteError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, PasswordExpiredResponse{Username: username, Expired: expired})
}

// Me godoc
// @Summary      Current token
// @Description  Returns the verified claims of the caller's bearer token.
// @Tags         Auth
// @Produce      json
// @Success      200 {object} MeResponse
// @Failure      401 {object} api.ErrorBody "Unauthorized"
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	resp := MeResponse{
		Username: claims.Subject,
		Roles:    claims.Roles,
		Issuer:   claims.Issuer,
	}
	if claims.IssuedAt != nil {
		resp.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}
