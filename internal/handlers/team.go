package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/team-task-api/internal/dto"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/middleware"
	"github.com/yukikurage/team-task-api/internal/optional"
	"github.com/yukikurage/team-task-api/internal/services"
	"github.com/yukikurage/team-task-api/internal/utils"
)

// TeamHandler handles team-related HTTP requests
type TeamHandler struct {
	teamService *services.TeamService
}

// NewTeamHandler creates a new TeamHandler
func NewTeamHandler(teamService *services.TeamService) *TeamHandler {
	return &TeamHandler{
		teamService: teamService,
	}
}

// ListPublic returns team ids and names for the registration form
func (h *TeamHandler) ListPublic(c *gin.Context) {
	teams, err := h.teamService.ListPublic(c.Request.Context())
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	respond(c, http.StatusOK, dto.ToTeamSummaries(teams))
}

// ListTeams returns all teams
func (h *TeamHandler) ListTeams(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	teams, total, err := h.teamService.ListTeams(c.Request.Context(), p, c.Query("search"), params)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondPage(c, dto.ToTeamDTOs(teams), params, total)
}

// GetTeam returns a team with its manager and members
func (h *TeamHandler) GetTeam(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	team, err := h.teamService.GetTeam(c.Request.Context(), p, middleware.ParamID(c, "id"))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respond(c, http.StatusOK, dto.ToTeamDTO(*team))
}

// ListMembers returns the member list of a team
func (h *TeamHandler) ListMembers(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	members, err := h.teamService.ListMembers(c.Request.Context(), p, middleware.ParamID(c, "id"))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respond(c, http.StatusOK, dto.ToMemberDTOs(members))
}

// MyTeam returns the caller's team
func (h *TeamHandler) MyTeam(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	team, err := h.teamService.MyTeam(c.Request.Context(), p)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respond(c, http.StatusOK, dto.ToTeamDTO(*team))
}

// CreateTeam creates a new team
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	type CreateTeamRequest struct {
		Name    string   `json:"name" binding:"required"`
		Manager *uint64  `json:"manager"`
		Members []uint64 `json:"members"`
	}

	p, ok := principal(c)
	if !ok {
		return
	}
	var req CreateTeamRequest
	if !bindJSON(c, &req) {
		return
	}

	team, err := h.teamService.CreateTeam(c.Request.Context(), p, services.CreateTeamInput{
		Name:      req.Name,
		ManagerID: req.Manager,
		MemberIDs: req.Members,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respond(c, http.StatusCreated, dto.ToTeamDTO(*team))
}

// UpdateTeam renames a team or replaces its manager or members
func (h *TeamHandler) UpdateTeam(c *gin.Context) {
	type UpdateTeamRequest struct {
		Name    *string                `json:"name"`
		Manager optional.Value[uint64] `json:"manager"`
		Members *[]uint64              `json:"members"`
	}

	p, ok := principal(c)
	if !ok {
		return
	}
	var req UpdateTeamRequest
	if !bindStrictJSON(c, &req) {
		return
	}

	team, err := h.teamService.UpdateTeam(c.Request.Context(), p, middleware.ParamID(c, "id"), services.UpdateTeamInput{
		Name:      req.Name,
		Manager:   req.Manager,
		MemberIDs: req.Members,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respond(c, http.StatusOK, dto.ToTeamDTO(*team))
}

// DeleteTeam deletes a team
func (h *TeamHandler) DeleteTeam(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	if err := h.teamService.DeleteTeam(c.Request.Context(), p, middleware.ParamID(c, "id")); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Message("Team deleted successfully"))
}

// AddMember adds a user to a team
func (h *TeamHandler) AddMember(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	team, err := h.teamService.AddMember(c.Request.Context(), p, middleware.ParamID(c, "id"), middleware.ParamID(c, "userId"))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respond(c, http.StatusOK, dto.ToTeamDTO(*team))
}

// RemoveMember removes a user from a team
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	team, err := h.teamService.RemoveMember(c.Request.Context(), p, middleware.ParamID(c, "id"), middleware.ParamID(c, "userId"))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respond(c, http.StatusOK, dto.ToTeamDTO(*team))
}
