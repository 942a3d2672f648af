package auth

// Error is an identity failure with a stable machine-readable code.
// The application layer translates codes into user-facing messages;
// the codes themselves never reach end users.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return "auth: " + e.Message
}

// Identity errors. Messages are developer-facing; see the application
// layer for the user-facing translation table.
var (
	ErrInvalidEmailOrPassword = &Error{Code: "INVALID_EMAIL_OR_PASSWORD", Message: "invalid email or password"}
	ErrEmailNotVerified       = &Error{Code: "EMAIL_NOT_VERIFIED", Message: "email not verified"}
	ErrUserNotFound           = &Error{Code: "USER_NOT_FOUND", Message: "user not found"}
	ErrInvalidPassword        = &Error{Code: "INVALID_PASSWORD", Message: "invalid password"}
	ErrInvalidToken           = &Error{Code: "INVALID_TOKEN", Message: "invalid or expired token"}
	ErrUserAlreadyExists      = &Error{Code: "USER_ALREADY_EXISTS", Message: "user already exists"}
	ErrPasswordTooShort       = &Error{Code: "PASSWORD_TOO_SHORT", Message: "password too short"}
	ErrPasswordTooLong        = &Error{Code: "PASSWORD_TOO_LONG", Message: "password too long"}
	ErrEmailAlreadyVerified   = &Error{Code: "EMAIL_ALREADY_VERIFIED", Message: "email already verified"}
	ErrUnauthorized           = &Error{Code: "UNAUTHORIZED", Message: "authentication required"}
	ErrProviderNotFound       = &Error{Code: "PROVIDER_NOT_FOUND", Message: "oauth provider not configured"}
	ErrStateMismatch          = &Error{Code: "STATE_MISMATCH", Message: "oauth state mismatch"}
)
