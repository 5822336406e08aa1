// Package httpx holds the HTTP plumbing shared by carddesk's servers:
// response writers, form binding and middleware.
//
// Overview:
//   - Responsibility: JSON and error responses, form binding with validation, request middleware
//   - Key Types: ErrorResponse, Middleware
//   - Concurrency Model: All functions are safe for concurrent use
//   - Error Semantics: Errors map to status codes through core/errors codes
//
// Usage:
//
//	var form model.NewClientForm
//	if err := httpx.BindForm(r, &form); err != nil { ... }
//	httpx.WriteError(w, err)
package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"go.eggybyte.com/carddesk/core/errors"
	"go.eggybyte.com/carddesk/httpx/internal"
)

// ErrorResponse is the JSON body of every error answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeForm decodes r's form values into target using `form` tags without validating.
func DecodeForm(r *http.Request, target any) error {
	if err := r.ParseForm(); err != nil {
		return errors.Wrap(errors.CodeInvalidArgument, "httpx.DecodeForm", err)
	}
	if err := internal.DecodeForm(r.PostForm, target); err != nil {
		return errors.Wrap(errors.CodeInvalidArgument, "httpx.DecodeForm", err)
	}
	return nil
}

// BindForm decodes r's form values into target using `form` tags, then runs
// its `validate` tags. Both failures carry CodeInvalidArgument; target keeps
// the decoded values either way.
func BindForm(r *http.Request, target any) error {
	if err := DecodeForm(r, target); err != nil {
		return err
	}
	if err := validate.Struct(target); err != nil {
		return errors.Wrapf(errors.CodeInvalidArgument, "httpx.BindForm", err, "validation failed")
	}
	return nil
}

// WriteJSON writes data as JSON with status.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteError answers with the status derived from err's code.
func WriteError(w http.ResponseWriter, err error) error {
	code := errors.CodeOf(err)
	if code == "" {
		code = errors.CodeInternal
	}
	return WriteErrorStatus(w, err, errors.HTTPStatus(code))
}

// WriteErrorStatus answers with an explicit status.
func WriteErrorStatus(w http.ResponseWriter, err error, status int) error {
	resp := ErrorResponse{Error: http.StatusText(status)}
	if err != nil {
		resp.Code = string(errors.CodeOf(err))
		resp.Message = err.Error()
	}
	return WriteJSON(w, status, resp)
}

// NotFoundHandler answers unknown paths with a JSON 404.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = WriteJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   http.StatusText(http.StatusNotFound),
			Code:    string(errors.CodeNotFound),
			Message: fmt.Sprintf("path %s not found", r.URL.Path),
		})
	}
}

// MethodNotAllowedHandler answers known paths with a wrong method with a JSON 405.
func MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = WriteJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
			Error:   http.StatusText(http.StatusMethodNotAllowed),
			Message: fmt.Sprintf("method %s not allowed for %s", r.Method, r.URL.Path),
		})
	}
}
