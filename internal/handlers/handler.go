package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/team-task-api/internal/authz"
	"github.com/yukikurage/team-task-api/internal/dto"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/middleware"
	"github.com/yukikurage/team-task-api/internal/utils"
	"github.com/yukikurage/team-task-api/internal/validation"
)

// bindJSON decodes the request body into req and runs binding validation.
// It writes the error response and returns false on failure.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		apierrors.Respond(c, validation.FromBindError(err))
		return false
	}
	return true
}

// bindStrictJSON is bindJSON for partial updates: unknown keys are rejected
// instead of ignored.
func bindStrictJSON(c *gin.Context, req any) bool {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		if errors.Is(err, io.EOF) {
			apierrors.Respond(c, apierrors.ErrInvalidInput)
			return false
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			apierrors.Respond(c, validation.FromBindError(err))
			return false
		}
		apierrors.Respond(c, apierrors.Validation("Invalid request body: "+err.Error()))
		return false
	}
	return true
}

// principal returns the caller resolved by RequireAuth.
func principal(c *gin.Context) (authz.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		apierrors.Respond(c, apierrors.ErrUnauthorized)
	}
	return p, ok
}

// queryID parses an optional numeric query parameter.
func queryID(c *gin.Context, name string) (*uint64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		apierrors.Respond(c, apierrors.Validation("Validation failed", apierrors.FieldError{
			Field:   name,
			Message: "Invalid ID format",
		}))
		return nil, false
	}
	return &id, true
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, dto.OK(data))
}

func respondPage(c *gin.Context, data any, params utils.PaginationParams, total int64) {
	c.JSON(http.StatusOK, dto.Page(data, utils.NewPaginationResponse(params, total)))
}
