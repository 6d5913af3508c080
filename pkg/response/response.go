// Package response writes the shop's JSON envelope:
//
//	{"success": true, "data": ..., "pagination": {...}}
//	{"success": false, "message": "Product not found"}
package response

import (
	"encoding/json"
	"net/http"

	"github.com/shashiranjanraj/kisanmart/pkg/orm"
)

type Envelope struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message,omitempty"`
	Data       interface{}       `json:"data,omitempty"`
	Count      *int              `json:"count,omitempty"`
	Pagination *orm.Pagination   `json:"pagination,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
}

// Write encodes body with the given status.
func Write(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

// Success sends a 200 JSON response with data.
func Success(w http.ResponseWriter, data interface{}) {
	Write(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(w http.ResponseWriter, data interface{}) {
	Write(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

// Message sends a 200 with a message and optional data.
func Message(w http.ResponseWriter, message string, data interface{}) {
	Write(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// List sends a 200 with data and its element count.
func List(w http.ResponseWriter, data interface{}, count int) {
	Write(w, http.StatusOK, Envelope{Success: true, Data: data, Count: &count})
}

// Paginated sends a 200 response with data and pagination metadata.
func Paginated(w http.ResponseWriter, data interface{}, p orm.Pagination) {
	Write(w, http.StatusOK, Envelope{Success: true, Data: data, Pagination: &p})
}

// Error sends a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	Write(w, status, Envelope{Message: message})
}

// ValidationError sends a 400 with a field-level error map.
func ValidationError(w http.ResponseWriter, errs map[string]string) {
	Write(w, http.StatusBadRequest, Envelope{Message: "Validation failed", Errors: errs})
}

func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, message)
}

func Forbidden(w http.ResponseWriter) {
	Error(w, http.StatusForbidden, "Access denied")
}

func NotFound(w http.ResponseWriter) {
	Error(w, http.StatusNotFound, "Route not found")
}
