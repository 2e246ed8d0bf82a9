// internal/api/handler/service/service.go
package service

import (
	"html/template"
	"net/http"

	"github.com/avrabe/mcp-loxone/internal/api/response"
	"github.com/avrabe/mcp-loxone/internal/auth"
)

// Handler serves the unauthenticated service endpoints.
type Handler struct {
	name         string
	version      string
	authRequired bool
	streamPath   string
}

// NewHandler creates a new service handler.
func NewHandler(name, version string, authRequired bool, streamPath string) *Handler {
	return &Handler{
		name:         name,
		version:      version,
		authRequired: authRequired,
		streamPath:   streamPath,
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	response.Raw(w, http.StatusOK, HealthResponse{Status: "healthy", Service: h.name})
}

// Info describes the service and how to authenticate.
type Info struct {
	Service      string            `json:"service"`
	Version      string            `json:"version"`
	AuthRequired bool              `json:"auth_required"`
	AuthHeaders  []string          `json:"auth_headers,omitempty"`
	Endpoints    map[string]string `json:"endpoints"`
}

// Root returns service information.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	info := Info{
		Service:      h.name,
		Version:      h.version,
		AuthRequired: h.authRequired,
		Endpoints: map[string]string{
			"health":  "/health",
			"stream":  h.streamPath,
			"docs":    "/docs",
			"openapi": "/openapi.json",
		},
	}
	if h.authRequired {
		info.AuthHeaders = []string{"Authorization: Bearer <key>", auth.HeaderAPIKey + ": <key>"}
	}
	response.JSON(w, http.StatusOK, info)
}

var docsTemplate = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Name}} API</title></head>
<body>
<h1>{{.Name}} {{.Version}}</h1>
<p>Event stream: <code>GET {{.StreamPath}}</code> (<code>text/event-stream</code>).</p>
{{if .AuthRequired}}<p>Authenticate with <code>Authorization: Bearer &lt;key&gt;</code> or <code>X-API-Key: &lt;key&gt;</code>.
Run <code>loxone-sse key show</code> on the server to print the key.</p>{{end}}
<p>Machine-readable description: <a href="/openapi.json">/openapi.json</a>.</p>
</body>
</html>
`))

// Docs serves a human-readable API overview.
func (h *Handler) Docs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	docsTemplate.Execute(w, map[string]any{
		"Name":         h.name,
		"Version":      h.version,
		"StreamPath":   h.streamPath,
		"AuthRequired": h.authRequired,
	})
}

// OpenAPI serves an OpenAPI 3 description of the public surface.
func (h *Handler) OpenAPI(w http.ResponseWriter, r *http.Request) {
	security := []map[string][]string{{"bearerAuth": {}}, {"apiKeyAuth": {}}}
	if !h.authRequired {
		security = []map[string][]string{}
	}

	doc := map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   h.name,
			"version": h.version,
		},
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"bearerAuth": map[string]any{"type": "http", "scheme": "bearer"},
				"apiKeyAuth": map[string]any{"type": "apiKey", "in": "header", "name": auth.HeaderAPIKey},
			},
		},
		"paths": map[string]any{
			"/health": map[string]any{
				"get": map[string]any{
					"summary":  "Health check",
					"security": []map[string][]string{},
					"responses": map[string]any{
						"200": map[string]any{"description": "Service is healthy"},
					},
				},
			},
			h.streamPath: map[string]any{
				"get": map[string]any{
					"summary":  "Server-sent event stream",
					"security": security,
					"responses": map[string]any{
						"200": map[string]any{
							"description": "Event stream",
							"content":     map[string]any{"text/event-stream": map[string]any{}},
						},
						"401": map[string]any{"description": "Invalid or missing API key"},
					},
				},
			},
		},
	}
	response.Raw(w, http.StatusOK, doc)
}
