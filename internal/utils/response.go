package utils

import (
	"net/http"

	"github.com/go-chi/render"
)

// Envelope is the body shape shared by every API response.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`

	status int
}

func (e *Envelope) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.status)
	return nil
}

func respond(w http.ResponseWriter, r *http.Request, e *Envelope) {
	if err := render.Render(w, r, e); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func RespondData(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	respond(w, r, &Envelope{Success: true, Data: data, status: status})
}

func RespondMessage(w http.ResponseWriter, r *http.Request, status int, message string, data interface{}) {
	respond(w, r, &Envelope{Success: true, Message: message, Data: data, status: status})
}

func RespondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respond(w, r, &Envelope{Success: false, Message: message, status: status})
}

// RespondValidation writes a 422 with the field-level report.
func RespondValidation(w http.ResponseWriter, r *http.Request, message string, errs map[string][]string) {
	respond(w, r, &Envelope{Success: false, Message: message, Errors: errs, status: http.StatusUnprocessableEntity})
}

func RespondNotFound(w http.ResponseWriter, r *http.Request, what string) {
	RespondError(w, r, http.StatusNotFound, what+" not found")
}

// RespondNullData writes {"success":true,"data":null}, for lookups where
// absence is a normal answer.
func RespondNullData(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, struct {
		Success bool        `json:"success"`
		Data    interface{} `json:"data"`
	}{Success: true})
}
