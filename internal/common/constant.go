package common

// AuthorizationHeaderName is the HTTP header (and gRPC metadata key, lower
// cased) that carries the bearer token.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token inside the authorization header.
const BearerPrefix = "Bearer "

// Session end reasons stored in user_sessions.logout_reason.
const (
	LogoutReasonUser    = "user_logout"
	LogoutReasonExpired = "expired"
	LogoutReasonRevoked = "revoked"
)

// Activity types written to session_activities.
const (
	ActivitySignup               = "signup"
	ActivityLogin                = "login"
	ActivityLoginFailed          = "login_failed"
	ActivityLogout               = "logout"
	ActivityPasswordResetRequest = "password_reset_request"
)

// MaxUserAgentLength bounds the stored user agent string.
const MaxUserAgentLength = 500
