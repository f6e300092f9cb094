package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"expensetracker/internal/core"
)

// decodeJSON reads a single JSON object from the request body. Malformed
// input is reported as a validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return core.NewValidationError("body", "request body too large")
		case errors.Is(err, io.EOF):
			return core.NewValidationError("body", "request body is required")
		}
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			return ve
		}
		return core.NewValidationError("body", "malformed JSON body")
	}
	if dec.More() {
		return core.NewValidationError("body", "request body must be a single JSON object")
	}
	return nil
}

// pathID parses the {id} wildcard of the route.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewValidationError("id", "expense id must be a positive number")
	}
	return id, nil
}

// bearerToken extracts the token of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// ownRequest binds an expense request to the authenticated user. An explicit
// userId for somebody else is refused.
func ownRequest(req *core.ExpenseRequest, user core.User) error {
	if req.UserID != 0 && req.UserID != user.UserID {
		return errForbidden
	}
	req.UserID = user.UserID
	return nil
}
