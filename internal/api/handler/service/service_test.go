// internal/api/handler/service/service_test.go
package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/avrabe/mcp-loxone/internal/api/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_Health(t *testing.T) {
	h := NewHandler("loxone-mcp-sse", "dev", true, "/sse")

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	h.Health(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"loxone-mcp-sse"}`, w.Body.String())
}

func TestHandler_Root(t *testing.T) {
	h := NewHandler("loxone-mcp-sse", "1.2.3", true, "/sse")

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	h.Root(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp response.SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, "1.2.3", data["version"])
	assert.Equal(t, true, data["auth_required"])
	assert.Len(t, data["auth_headers"], 2)
}

func TestHandler_RootAuthDisabled(t *testing.T) {
	h := NewHandler("svc", "dev", false, "/sse")

	w := httptest.NewRecorder()
	h.Root(w, httptest.NewRequest("GET", "/", nil))

	var resp response.SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, false, data["auth_required"])
	assert.NotContains(t, data, "auth_headers")
}

func TestHandler_Docs(t *testing.T) {
	h := NewHandler("<svc>", "dev", true, "/sse")

	w := httptest.NewRecorder()
	h.Docs(w, httptest.NewRequest("GET", "/docs", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, w.Body.String(), "&lt;svc&gt;", "name is escaped")
	assert.Contains(t, w.Body.String(), "X-API-Key")
}

func TestHandler_OpenAPI(t *testing.T) {
	h := NewHandler("svc", "dev", true, "/sse")

	w := httptest.NewRecorder()
	h.OpenAPI(w, httptest.NewRequest("GET", "/openapi.json", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])

	paths := doc["paths"].(map[string]any)
	assert.Contains(t, paths, "/health")
	assert.Contains(t, paths, "/sse")

	schemes := doc["components"].(map[string]any)["securitySchemes"].(map[string]any)
	apiKey := schemes["apiKeyAuth"].(map[string]any)
	assert.Equal(t, "X-API-Key", apiKey["name"])
}
