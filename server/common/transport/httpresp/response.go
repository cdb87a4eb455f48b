package httpresp

const (
	ErrUnauthorized       = "unauthorized"
	ErrInvalidCredentials = "invalid credentials"
	ErrMissingBearerToken = "bearer token is required"
	ErrInvalidToken       = "invalid token"
	ErrForbidden          = "forbidden"
	ErrInsufficientRole   = "insufficient permissions"
	ErrEventMismatch      = "token was issued for another event"
	ErrRateLimited        = "rate limit exceeded"
	ErrNotFound           = "not found"
	ErrInvalidCursor      = "cursor is invalid"
	ErrInternal           = "internal error"
	ErrNoFiles            = "at least one file is required"
	ErrInvalidVisibility  = "visibility must be public or private"
	ErrMemoryTextRequired = "memory_text is required"
	ErrUnsupportedMedia   = "unsupported media type"
	ErrFileTooLarge       = "file too large"
	ErrConflict           = "already exists"
	ErrInvalidRequest     = "invalid request"
	ErrBootstrapDisabled  = "event bootstrap is disabled"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type IDResponse struct {
	ID string `json:"id"`
}

type VisibilityResponse struct {
	ID         string `json:"id"`
	Visibility string `json:"visibility"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	AdminID     string `json:"admin_id"`
	EventID     string `json:"event_id"`
	Role        string `json:"role"`
	ExpiresIn   int64  `json:"expires_in"`
}

func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}

func NewOKResponse() OKResponse {
	return OKResponse{OK: true}
}

func NewIDResponse(id string) IDResponse {
	return IDResponse{ID: id}
}

func NewVisibilityResponse(id, visibility string) VisibilityResponse {
	return VisibilityResponse{ID: id, Visibility: visibility}
}

func NewTokenResponse(accessToken, adminID, eventID, role string, expiresIn int64) TokenResponse {
	return TokenResponse{AccessToken: accessToken, AdminID: adminID, EventID: eventID, Role: role, ExpiresIn: expiresIn}
}
