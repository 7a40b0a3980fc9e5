// Package response writes the JSON envelope every API endpoint answers with.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func success(c *gin.Context, status int, data any) {
	c.JSON(status, Body{Success: true, Data: data})
}

func failure(c *gin.Context, status int, err string) {
	c.JSON(status, Body{Success: false, Error: err})
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data any) { success(c, http.StatusOK, data) }

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data any) { success(c, http.StatusCreated, data) }

// Accepted sends 202 for work handed to the background worker.
func Accepted(c *gin.Context, data any) { success(c, http.StatusAccepted, data) }

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) { failure(c, http.StatusBadRequest, err) }

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) { failure(c, http.StatusUnauthorized, err) }

// Forbidden sends 403.
func Forbidden(c *gin.Context, err string) { failure(c, http.StatusForbidden, err) }

// NotFound sends 404.
func NotFound(c *gin.Context, err string) { failure(c, http.StatusNotFound, err) }

// Conflict sends 409, e.g. confirming attendance for an event that already happened.
func Conflict(c *gin.Context, err string) { failure(c, http.StatusConflict, err) }

// Internal sends 500.
func Internal(c *gin.Context, err string) { failure(c, http.StatusInternalServerError, err) }

// ServiceUnavailable sends 503.
func ServiceUnavailable(c *gin.Context, err string) { failure(c, http.StatusServiceUnavailable, err) }
