package handlers

import (
	"fmt"
	"net/http"
	"strconv"
)

// queryInt parses an integer query parameter with a default and inclusive
// bounds. Out-of-range and non-numeric values are rejected, not clamped.
func queryInt(r *http.Request, name string, def, min, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return 0, fmt.Errorf("%s: must be an integer between %d and %d", name, min, max)
	}
	return v, nil
}
