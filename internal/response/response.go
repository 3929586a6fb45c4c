package response

import "net/http"

// APIResponse is the JSON envelope for every endpoint except the health
// import, which answers with a flat {message, count} body.
type APIResponse struct {
	Data       interface{}    `json:"data,omitempty"`
	Pagination interface{}    `json:"pagination,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	Message    string         `json:"message,omitempty"`
	Error      string         `json:"error,omitempty"`
	Code       int            `json:"code,omitempty"`
}

func Success(data interface{}, meta map[string]any) APIResponse {
	return APIResponse{Data: data, Meta: meta}
}

func Page(data interface{}, pagination interface{}) APIResponse {
	return APIResponse{Data: data, Pagination: pagination}
}

func Message(msg string) APIResponse {
	return APIResponse{Message: msg}
}

func BadRequest(msg string) APIResponse {
	return NewAppError(http.StatusBadRequest, msg)
}

func Unauthorized(msg string) APIResponse {
	return NewAppError(http.StatusUnauthorized, msg)
}

func NotFound(msg string) APIResponse {
	return NewAppError(http.StatusNotFound, msg)
}

func Conflict(msg string) APIResponse {
	return NewAppError(http.StatusConflict, msg)
}

func InternalError(msg string) APIResponse {
	return NewAppError(http.StatusInternalServerError, msg)
}

func NewAppError(status int, msg string) APIResponse {
	return APIResponse{Error: msg, Code: status}
}
