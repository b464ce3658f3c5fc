package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/relgov/gateway/internal/envelope"
	"github.com/relgov/gateway/internal/gwerror"
)

// loginRequest is validated at the gateway edge before the credentials are
// forwarded; the backend remains the authority on whether they are correct.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login forwards credential checks to the backend's /auth/login.
func (p *Proxy) Login(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		envelope.WriteError(w, r, gwerror.Validation("Failed to read request body"))
		return
	}

	var req loginRequest
	if err := json.Unmarshal(body, &req); err != nil {
		envelope.WriteError(w, r, gwerror.Validation("Request body must be valid JSON"))
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		envelope.WriteError(w, r, gwerror.Validation("email and password are required"))
		return
	}

	resp, err := p.client.Post(r.Context(), "/auth/login", body, forwardHeaders(r))
	if err != nil {
		envelope.WriteError(w, r, gwerror.FromError(err))
		return
	}
	p.writeProxied(w, r, resp)
}

// Me forwards the caller's token to the backend's /auth/me.
func (p *Proxy) Me(w http.ResponseWriter, r *http.Request) {
	resp, err := p.client.Get(r.Context(), "/auth/me", forwardHeaders(r))
	if err != nil {
		envelope.WriteError(w, r, gwerror.FromError(err))
		return
	}
	p.writeProxied(w, r, resp)
}
