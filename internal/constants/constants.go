package constants

// Context keys
const (
	ContextKeyUserID    = "userID"
	ContextKeyPrincipal = "principal"
	ContextKeyUser      = "currentUser"
	ContextKeyLogger    = "logger"
	ContextKeyRequestID = "requestID"
)

// Session
const (
	SessionCookieName      = "refreshToken"
	SessionKeyRefreshToken = "refresh_token"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
	PublicTeamLimit = 20
)

// Validation limits
const (
	MinPasswordLength    = 8
	MinUsernameLength    = 3
	MaxUsernameLength    = 30
	MaxTaskTitleLength   = 200
	MaxTaskDescLength    = 1000
	MaxTeamNameLength    = 100
	PasswordSpecialChars = "@$!%*?&"
)

const RequestIDHeader = "X-Request-ID"
