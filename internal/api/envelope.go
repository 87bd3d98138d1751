// Package api serves a service.Service over HTTP using the fluxtodo JSON
// envelope. The httpapi backend is its client.
package api

import (
	"encoding/json"

	"fluxtodo/internal/service"
)

// Envelope is the body of every API response.
//
//	success: {"success":true,"data":...,"meta":{...}}
//	failure: {"success":false,"error":{"code":...,"message":...,"details":...}}
type Envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data,omitempty"`
	Meta    *service.PageMeta `json:"meta,omitempty"`
	Error   *ErrorBody        `json:"error,omitempty"`
}

// ErrorBody describes a failure.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// UpdateListBody is the PATCH /api/lists payload.
type UpdateListBody struct {
	ListID string `json:"listId"`
	Title  string `json:"title"`
}

// UpdateTaskBody is the PATCH /api/tasks payload. Patch fields are inlined.
type UpdateTaskBody struct {
	TaskID string `json:"taskId"`
	service.TaskPatch
}

// MessageBody is returned by deletes.
type MessageBody struct {
	Message string `json:"message"`
}

// AsServiceError converts a failure envelope into a *service.Error carrying
// the HTTP status it arrived with.
func (e *ErrorBody) AsServiceError(status int) *service.Error {
	return &service.Error{Status: status, Code: e.Code, Message: e.Message, Details: e.Details}
}

// response is the server-side form of Envelope.
type response struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Meta    *service.PageMeta `json:"meta,omitempty"`
	Error   *ErrorBody        `json:"error,omitempty"`
}
