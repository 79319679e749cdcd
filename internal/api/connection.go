package api

import "net/http"

// handleConnection verifies the warehouse session and returns its
// masked details. Passwords never appear in the payload.
func handleConnection(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Connection == nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "CONNECTION_FAILED", "warehouse connection is not configured", true, nil)
		return
	}
	if err := deps.Connection.Ping(r.Context()); err != nil {
		writeQueryError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "connected",
		"connection": deps.Connection.Info(),
	})
}
