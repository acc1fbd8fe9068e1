package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/watertime/watertime/internal/api/models"
	"github.com/watertime/watertime/internal/api/response"
	"github.com/watertime/watertime/internal/auth"
	"github.com/watertime/watertime/internal/user"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService *auth.Service
	userService *user.Service
	logger      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *auth.Service, userService *user.Service, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
		logger:      logger,
	}
}

// Register handles POST /v1/auth/register - create an account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.authService.Register(r.Context(), auth.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Goal:     req.Goal,
	})
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			response.BadRequest(w, r, "email already registered", []models.FieldError{
				{Field: "email", Message: "is already registered", Code: models.CodeTaken},
			})
			return
		}
		writeError(w, r, h.logger, err, "registration")
		return
	}

	h.respondWithTokens(w, r, http.StatusCreated, pair)
}

// Login handles POST /v1/auth/login - sign in with email and password.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			response.Unauthorized(w, r, "invalid email or password")
			return
		}
		writeError(w, r, h.logger, err, "login")
		return
	}

	h.respondWithTokens(w, r, http.StatusOK, pair)
}

// RefreshToken handles POST /v1/auth/refresh - refresh access token.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "refreshToken", Message: "refreshToken is required", Code: models.CodeRequired},
		})
		return
	}

	pair, err := h.authService.RefreshAccessToken(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidRefreshToken):
			response.Unauthorized(w, r, "invalid refresh token")
		case errors.Is(err, auth.ErrRefreshTokenExpired):
			response.Unauthorized(w, r, "refresh token has expired")
		case errors.Is(err, auth.ErrUserNotFound):
			response.Unauthorized(w, r, "user not found")
		default:
			writeError(w, r, h.logger, err, "token refresh")
		}
		return
	}

	h.respondWithTokens(w, r, http.StatusOK, pair)
}

// Logout handles POST /v1/auth/logout - revoke current session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		response.BadRequest(w, r, "refreshToken is required", nil)
		return
	}

	if err := h.authService.RevokeRefreshToken(r.Context(), req.RefreshToken); err != nil {
		writeError(w, r, h.logger, err, "logout")
		return
	}

	response.NoContent(w, r)
}

// LogoutAll handles POST /v1/auth/logout-all - revoke all sessions for the user.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "authentication required")
		return
	}

	if err := h.authService.RevokeAllTokens(r.Context(), userID); err != nil {
		writeError(w, r, h.logger, err, "logout")
		return
	}

	response.NoContent(w, r)
}

// Me handles GET /v1/auth/me - the signed-in user's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.userService.GetProfile(r.Context(), GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err, "get user")
		return
	}
	response.JSON(w, r, http.StatusOK, profile)
}

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, r *http.Request, status int, pair *auth.TokenPair) {
	resp := models.AuthResponse{
		AccessToken:  pair.AccessToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
		RefreshToken: pair.RefreshToken,
	}

	profile, err := h.userService.GetProfile(r.Context(), pair.User.ID)
	if err != nil {
		h.logger.Warn().Err(err).Str("user_id", pair.User.ID).Msg("profile missing for authenticated user")
	} else {
		resp.User = profile
	}

	response.JSON(w, r, status, resp)
}
