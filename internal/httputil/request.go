package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"vowcraft/internal/domain"
)

// maxBodyBytes bounds request bodies; a full document replacement is the largest legitimate payload.
const maxBodyBytes = 2 << 20

// ParseJSON decodes JSON from the request body into the given destination.
// It limits the request body size and rejects unknown fields, so a typo in a
// field name such as base_version fails loudly instead of reading as zero.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", domain.ErrValidation, err)
	}
	return nil
}

// QueryInt reads a non-negative integer query parameter, returning def when absent.
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewValidation("query parameter %s must be a non-negative integer", name)
	}
	return n, nil
}
