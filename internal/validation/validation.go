package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/yukikurage/team-task-api/internal/constants"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	validate        = validator.New()
	registerOnce    sync.Once
)

func jsonTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// Register makes gin's binding validator report JSON field names.
func Register() {
	registerOnce.Do(func() {
		validate.RegisterTagNameFunc(jsonTagName)
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(jsonTagName)
		}
	})
}

// FromBindError converts a gin binding failure into a validation error.
func FromBindError(err error) *apierrors.Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]apierrors.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, apierrors.FieldError{Field: fe.Field(), Message: message(fe)})
		}
		return apierrors.Validation("Validation failed", fields...)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return apierrors.Validation("Validation failed", apierrors.FieldError{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("must be a %s", typeErr.Type.String()),
		})
	}
	return apierrors.ErrInvalidInput
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "email":
		return "Please provide a valid email"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// Collector accumulates field errors.
type Collector struct {
	fields []apierrors.FieldError
}

func (c *Collector) Add(field, msg string) {
	c.fields = append(c.fields, apierrors.FieldError{Field: field, Message: msg})
}

// Err returns a validation error when any field failed, nil otherwise.
func (c *Collector) Err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return apierrors.Validation("Validation failed", c.fields...)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (c *Collector) Username(field, username string) {
	n := len(username)
	switch {
	case n < constants.MinUsernameLength || n > constants.MaxUsernameLength:
		c.Add(field, fmt.Sprintf("Username must be between %d and %d characters",
			constants.MinUsernameLength, constants.MaxUsernameLength))
	case !usernamePattern.MatchString(username):
		c.Add(field, "Username can only contain letters, numbers, and underscores")
	}
}

func (c *Collector) Email(field, email string) {
	if err := validate.Var(email, "required,email"); err != nil {
		c.Add(field, "Please provide a valid email")
	}
}

// Password requires a minimum length and at least one upper case letter,
// lower case letter, digit and special character.
func (c *Collector) Password(field, password string) {
	if len(password) < constants.MinPasswordLength {
		c.Add(field, fmt.Sprintf("Password must be at least %d characters long", constants.MinPasswordLength))
		return
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(constants.PasswordSpecialChars, r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		c.Add(field, "Password must contain at least one uppercase letter, one lowercase letter, one number, and one special character")
	}
}

func (c *Collector) TeamName(field, name string) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		c.Add(field, "Team name is required")
	case len(name) > constants.MaxTeamNameLength:
		c.Add(field, fmt.Sprintf("Team name cannot exceed %d characters", constants.MaxTeamNameLength))
	}
}

func (c *Collector) TaskTitle(field, title string) {
	title = strings.TrimSpace(title)
	switch {
	case title == "":
		c.Add(field, "Title is required")
	case len(title) > constants.MaxTaskTitleLength:
		c.Add(field, fmt.Sprintf("Title cannot exceed %d characters", constants.MaxTaskTitleLength))
	}
}

func (c *Collector) TaskDescription(field, desc string) {
	if len(desc) > constants.MaxTaskDescLength {
		c.Add(field, fmt.Sprintf("Description cannot exceed %d characters", constants.MaxTaskDescLength))
	}
}

// FutureDate checks that due lies after now.
func (c *Collector) FutureDate(field string, due, now time.Time) {
	if !due.After(now) {
		c.Add(field, "Due date must be in the future")
	}
}

// Check reports a failed custom rule.
func (c *Collector) Check(ok bool, field, msg string) {
	if !ok {
		c.Add(field, msg)
	}
}
