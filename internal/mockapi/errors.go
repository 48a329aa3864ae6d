package mockapi

import (
	"encoding/json"
	"net/http"

	"imgclass/pkg/types"
)

// writeJSONError writes a consistent JSON error payload. The "error" field
// doubles as the prediction error field clients render.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg, Code: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
