// Package auth decides, per request, whether a caller may reach the event
// stream. Decisions are pure functions of the request path, its headers and
// a Policy fixed at startup.
package auth

import (
	"errors"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/avrabe/mcp-loxone/internal/apikey"
	"github.com/avrabe/mcp-loxone/internal/core"
)

// HeaderAPIKey is the fallback credential header.
const HeaderAPIKey = "X-API-Key"

// Reason explains an Outcome. It is for logs and metrics only and must not
// be sent to the client.
type Reason string

const (
	ReasonExempt             Reason = "exempt"
	ReasonDisabled           Reason = "disabled"
	ReasonMissingCredential  Reason = "missing_credential"
	ReasonStoreMisconfigured Reason = "store_misconfigured"
	ReasonMismatch           Reason = "mismatch"
	ReasonOK                 Reason = "ok"
)

// Outcome is the result of one decision.
type Outcome struct {
	Allowed bool
	Reason  Reason
}

// DefaultExemptPaths are reachable without a key.
var DefaultExemptPaths = []string{"/health", "/", "/docs", "/openapi.json"}

// ExemptSet is an immutable set of normalized paths matched exactly.
type ExemptSet struct {
	paths map[string]struct{}
}

// NewExemptSet normalizes and stores paths.
func NewExemptSet(paths ...string) ExemptSet {
	s := ExemptSet{paths: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		s.paths[NormalizePath(p)] = struct{}{}
	}
	return s
}

// Contains reports whether the already normalized path is exempt.
func (s ExemptSet) Contains(normalized string) bool {
	_, ok := s.paths[normalized]
	return ok
}

// Paths returns the members in sorted order.
func (s ExemptSet) Paths() []string {
	out := make([]string, 0, len(s.paths))
	for p := range s.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// NormalizePath resolves "." and ".." segments and collapses repeated
// slashes. The result always starts with "/".
func NormalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	return path.Clean(p)
}

// ExtractCredential returns the candidate key of a request: the token of an
// "Authorization: Bearer" header (scheme case-insensitive), else the
// X-API-Key header. Only one source is ever used.
func ExtractCredential(h http.Header) (string, bool) {
	if scheme, token, ok := strings.Cut(strings.TrimSpace(h.Get("Authorization")), " "); ok {
		token = strings.TrimSpace(token)
		if strings.EqualFold(scheme, "Bearer") && token != "" {
			return token, true
		}
	}
	if key := h.Get(HeaderAPIKey); key != "" {
		return key, true
	}
	return "", false
}

// Policy holds the startup-time inputs of every decision. It is never
// modified after construction. The zero Policy enforces authentication
// without a key: the default exempt paths pass, everything else is denied.
type Policy struct {
	disabled bool
	exempt   ExemptSet
	key      *apikey.Material
}

// NewPolicy builds a Policy. When authentication is required a key must be
// present; the server must not start otherwise.
func NewPolicy(required bool, key *apikey.Material, exempt ExemptSet) (*Policy, error) {
	if required && key == nil {
		return nil, core.WrapError(core.ErrKeyUnresolved, errors.New("policy requires a key"))
	}
	return &Policy{disabled: !required, exempt: exempt, key: key}, nil
}

// Required reports whether authentication is enforced.
func (p *Policy) Required() bool { return !p.disabled }

// defaultExempt backs policies built without an exempt set, including the
// zero Policy. Read-only after init.
var defaultExempt = NewExemptSet(DefaultExemptPaths...)

// Exempt returns the exempt path set.
func (p *Policy) Exempt() ExemptSet {
	if p.exempt.paths == nil {
		return defaultExempt
	}
	return p.exempt
}

// Decide classifies one request.
//
// Branches depend only on policy flags and on which headers are present,
// never on the secret's content; the comparison itself is apikey.Verify.
func (p *Policy) Decide(rawPath string, h http.Header) Outcome {
	normalized := NormalizePath(rawPath)

	if p.disabled {
		return Outcome{Allowed: true, Reason: ReasonDisabled}
	}
	if p.Exempt().Contains(normalized) {
		return Outcome{Allowed: true, Reason: ReasonExempt}
	}

	candidate, ok := ExtractCredential(h)
	if !ok {
		return Outcome{Allowed: false, Reason: ReasonMissingCredential}
	}
	if p.key == nil {
		return Outcome{Allowed: false, Reason: ReasonStoreMisconfigured}
	}
	if apikey.Verify(candidate, p.key) {
		return Outcome{Allowed: true, Reason: ReasonOK}
	}
	return Outcome{Allowed: false, Reason: ReasonMismatch}
}
