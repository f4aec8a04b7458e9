package errors

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
)

// ErrorResponse is the JSON body returned for every failed request.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// RenderError writes the error as a JSON response with the status mapped
// from its code. Non-structured errors render as a 500 without leaking the
// underlying message.
func RenderError(w http.ResponseWriter, r *http.Request, err error) {
	var structured *Error
	if !errors.As(err, &structured) {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Code: ErrCodeInternal, Message: "internal error"})
		return
	}

	render.Status(r, structured.HTTPStatusCode())
	render.JSON(w, r, ErrorResponse{Code: structured.Code, Message: structured.Message})
}
