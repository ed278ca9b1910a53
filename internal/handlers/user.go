package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/team-task-api/internal/dto"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/middleware"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/optional"
	"github.com/yukikurage/team-task-api/internal/services"
	"github.com/yukikurage/team-task-api/internal/utils"
)

// UserHandler handles user administration requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

func userListInput(c *gin.Context) (services.ListUsersInput, bool) {
	input := services.ListUsersInput{
		Search:     c.Query("search"),
		Pagination: utils.GetPaginationParams(c),
	}
	if r := c.Query("role"); r != "" {
		role := models.Role(r)
		input.Role = &role
	}
	teamID, ok := queryID(c, "team")
	input.TeamID = teamID
	return input, ok
}

// ListUsers returns the users visible to the caller
func (h *UserHandler) ListUsers(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	input, ok := userListInput(c)
	if !ok {
		return
	}

	users, total, err := h.userService.ListUsers(c.Request.Context(), p, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondPage(c, dto.ToUserDTOs(users), input.Pagination, total)
}

// TeamMembers returns the users of the caller's team
func (h *UserHandler) TeamMembers(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	input, ok := userListInput(c)
	if !ok {
		return
	}

	users, total, err := h.userService.TeamMembers(c.Request.Context(), p, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondPage(c, dto.ToUserDTOs(users), input.Pagination, total)
}

// Stats returns user counts within the caller's visibility
func (h *UserHandler) Stats(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	stats, err := h.userService.Stats(c.Request.Context(), p)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respond(c, http.StatusOK, stats)
}

// GetUser returns a single user
func (h *UserHandler) GetUser(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), p, middleware.ParamID(c, "id"))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respond(c, http.StatusOK, dto.ToUserDTO(*user))
}

// CreateUser creates an account on behalf of an Admin or Manager
func (h *UserHandler) CreateUser(c *gin.Context) {
	type CreateUserRequest struct {
		Username string      `json:"username" binding:"required"`
		Email    string      `json:"email" binding:"required"`
		Password string      `json:"password" binding:"required"`
		Role     models.Role `json:"role"`
		Team     *uint64     `json:"team"`
	}

	p, ok := principal(c)
	if !ok {
		return
	}
	var req CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), p, services.CreateUserInput{
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

	respond(c, http.StatusCreated, dto.ToUserDTO(*user))
}

// UpdateUser changes profile, role and team of a user
func (h *UserHandler) UpdateUser(c *gin.Context) {
	type UpdateUserRequest struct {
		Username *string                `json:"username"`
		Email    *string                `json:"email"`
		Role     *models.Role           `json:"role"`
		Team     optional.Value[uint64] `json:"team"`
	}

	p, ok := principal(c)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !bindStrictJSON(c, &req) {
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), p, middleware.ParamID(c, "id"), services.UpdateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Role:     req.Role,
		Team:     req.Team,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respond(c, http.StatusOK, dto.ToUserDTO(*user))
}

// DeleteUser deletes a user
func (h *UserHandler) DeleteUser(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), p, middleware.ParamID(c, "id")); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Message("User deleted successfully"))
}
