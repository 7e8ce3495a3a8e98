// Package apperr defines the domain error taxonomy shared by all services.
// Every error carries an HTTP status and a stable machine-readable code so
// the API layer can map it onto the wire without inspecting messages.
package apperr

// Stable machine-readable error codes.
const (
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidJSON        = "INVALID_JSON"
	CodeEmailInUse         = "EMAIL_IN_USE"
	CodeAlreadyMember      = "ALREADY_MEMBER"
	CodeOwnerMustTransfer  = "OWNER_MUST_TRANSFER"
	CodeListNotEmpty       = "LIST_NOT_EMPTY"
	CodeListArchived       = "LIST_ARCHIVED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_SERVER_ERROR"
)

// Error is a domain error with a wire representation. Details, when present,
// is a field→message map produced by aggregated validation.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Unauthorized reports a missing or invalid credential.
func Unauthorized() *Error {
	return &Error{Status: 401, Code: CodeUnauthorized, Message: "Unauthorized"}
}

// Forbidden reports an authenticated caller without entitlement to the
// resource or action.
func Forbidden() *Error {
	return &Error{Status: 403, Code: CodeForbidden, Message: "Forbidden"}
}

// NotFound reports a resource id that does not resolve.
func NotFound(message string) *Error {
	return &Error{Status: 404, Code: CodeNotFound, Message: message}
}

// NotFoundCode is NotFound with a caller-chosen code (e.g. USER_NOT_FOUND).
func NotFoundCode(code, message string) *Error {
	return &Error{Status: 404, Code: code, Message: message}
}

// Validation aggregates all violated fields into a single error. The details
// map reports every failure, not just the first.
func Validation(details map[string]string) *Error {
	return &Error{Status: 422, Code: CodeValidation, Message: "Validation error", Details: details}
}

// Conflict reports a state-dependent refusal with a distinct machine code.
func Conflict(code, message string) *Error {
	return &Error{Status: 409, Code: code, Message: message}
}

// BadRequest reports an unparseable request body.
func BadRequest(code, message string) *Error {
	return &Error{Status: 400, Code: code, Message: message}
}
