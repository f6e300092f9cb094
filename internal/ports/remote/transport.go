package remote

import (
	"net/http"
	"strings"
)

// bearerTransport adds the session token to every request outside /auth/
// and reports 401 answers from those requests to the session. Login and
// signup failures are ordinary errors and never clear the session.
type bearerTransport struct {
	base   http.RoundTripper
	client *Client
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	if isAuthPath(req.URL.Path) {
		return base.RoundTrip(req)
	}

	sess := t.client.currentSession()
	if sess != nil {
		if token := sess.Token(); token != "" {
			req = req.Clone(req.Context())
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	resp, err := base.RoundTrip(req)
	if err == nil && resp.StatusCode == http.StatusUnauthorized && sess != nil {
		t.client.logger.WarnContext(req.Context(), "API rejected the session token",
			"path", req.URL.Path)
		sess.HandleUnauthorized()
	}
	return resp, err
}

func isAuthPath(path string) bool {
	return strings.Contains(path, "/auth/")
}
