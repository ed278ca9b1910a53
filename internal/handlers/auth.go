package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yukikurage/team-task-api/internal/constants"
	"github.com/yukikurage/team-task-api/internal/dto"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/middleware"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
	cookie      sessions.Options
}

// NewAuthHandler creates a new AuthHandler. cookie holds the options of the
// refresh token cookie.
func NewAuthHandler(authService *services.AuthService, cookie sessions.Options) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookie:      cookie,
	}
}

// Register creates an account and signs it in.
func (h *AuthHandler) Register(c *gin.Context) {
	type RegisterRequest struct {
		Username string      `json:"username" binding:"required"`
		Email    string      `json:"email" binding:"required"`
		Password string      `json:"password" binding:"required"`
		Role     models.Role `json:"role"`
		Team     *uint64     `json:"team"`
	}

	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, pair, err := h.authService.Register(c.Request.Context(), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		TeamID:   req.Team,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	h.signIn(c, http.StatusCreated, user, pair)
}

// Login authenticates by username or email and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Identifier string `json:"identifier" binding:"required"`
		Password   string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, pair, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	h.signIn(c, http.StatusOK, user, pair)
}

// signIn stores the refresh token in the session cookie and returns the
// access token in the body.
func (h *AuthHandler) signIn(c *gin.Context, status int, user *models.User, pair services.TokenPair) {
	session := sessions.Default(c)
	session.Set(constants.SessionKeyRefreshToken, pair.RefreshToken)
	if err := session.Save(); err != nil {
		apierrors.Respond(c, err)
		return
	}

	respond(c, status, dto.AuthDTO{
		User:        dto.ToUserDTO(*user),
		AccessToken: pair.AccessToken,
		ExpiresAt:   pair.AccessExpiresAt,
	})
}

// clearSession drops the refresh token and expires the cookie.
func (h *AuthHandler) clearSession(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	opts := h.cookie
	opts.MaxAge = -1
	session.Options(opts)
	return session.Save()
}

// Refresh issues a new access token from the refresh cookie.
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, _ := sessions.Default(c).Get(constants.SessionKeyRefreshToken).(string)

	issued, err := h.authService.Refresh(c.Request.Context(), token)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respond(c, http.StatusOK, dto.AccessTokenDTO{
		AccessToken: issued.Token,
		ExpiresAt:   issued.ExpiresAt,
	})
}

// Logout revokes the presented refresh token and clears the cookie. It
// succeeds when no refresh cookie is present.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	session := sessions.Default(c)
	token, _ := session.Get(constants.SessionKeyRefreshToken).(string)

	if err := h.authService.Logout(c.Request.Context(), userID, token); err != nil {
		apierrors.Respond(c, err)
		return
	}

	if err := h.clearSession(c); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Message("Logged out successfully"))
}

// ChangePassword replaces the password and ends every session.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	type ChangePasswordRequest struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required"`
	}

	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, _ := middleware.GetUserID(c)

	err := h.authService.ChangePassword(c.Request.Context(), userID, services.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	if err := h.clearSession(c); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Message("Password changed successfully. Please log in again."))
}

// GetProfile returns the authenticated user.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	user, err := h.authService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respond(c, http.StatusOK, dto.ToUserDTO(*user))
}

// UpdateProfile changes the caller's username or email.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	type UpdateProfileRequest struct {
		Username *string `json:"username"`
		Email    *string `json:"email"`
	}

	var req UpdateProfileRequest
	if !bindStrictJSON(c, &req) {
		return
	}
	userID, _ := middleware.GetUserID(c)

	user, err := h.authService.UpdateProfile(c.Request.Context(), userID, services.UpdateProfileInput{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respond(c, http.StatusOK, dto.ToUserDTO(*user))
}
