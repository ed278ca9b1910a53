package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apierrors "github.com/yukikurage/team-task-api/internal/errors"
)

const paramKeyPrefix = "param:"

// RequireIDParams parses the named path parameters as positive ids and
// rejects the request with a validation error otherwise.
func RequireIDParams(names ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var fields []apierrors.FieldError
		for _, name := range names {
			id, err := strconv.ParseUint(c.Param(name), 10, 64)
			if err != nil || id == 0 {
				fields = append(fields, apierrors.FieldError{Field: name, Message: "Invalid ID format"})
				continue
			}
			c.Set(paramKeyPrefix+name, id)
		}
		if len(fields) > 0 {
			apierrors.Respond(c, apierrors.Validation("Invalid ID format", fields...))
			return
		}
		c.Next()
	}
}

// ParamID returns a path parameter parsed by RequireIDParams.
func ParamID(c *gin.Context, name string) uint64 {
	return c.GetUint64(paramKeyPrefix + name)
}
