package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	healthy := PingFunc(func(context.Context) error { return nil })
	broken := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	r := gin.New()
	r.GET("/ok", NewHealthHandler(map[string]Pinger{"database": healthy}).Health)
	r.GET("/broken", NewHealthHandler(map[string]Pinger{"database": healthy, "redis": broken}).Health)

	w := doJSON(t, r, http.MethodGet, "/ok", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decodeBody(t, w)["status"])

	w = doJSON(t, r, http.MethodGet, "/broken", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	checks := decodeBody(t, w)["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"])
	assert.Contains(t, checks["redis"], "connection refused")
}
