package dto

// Stable machine-checkable error kinds.
const (
	KindValidation    = "validation"
	KindConflict      = "conflict"
	KindNotFound      = "not_found"
	KindAuthorization = "authorization"
	KindUpstream      = "upstream"
	KindExhausted     = "exhausted"
	KindInternal      = "internal"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// PageResponse wraps a paginated listing with its total row count.
type PageResponse struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
}
