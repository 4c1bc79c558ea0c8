package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// ParseValidateGte reads an integer query parameter and requires it to be
// greater than or equal to min. Writes a 400 response and returns false when
// the parameter is missing or out of range.
func ParseValidateGte(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, min int64) (int32, bool) {
	return parseIntParam(r, w, logger, key, func(v int64) bool { return v >= min })
}

// ParseValidateGt is like ParseValidateGte but requires a strictly greater value.
func ParseValidateGt(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, min int64) (int32, bool) {
	return parseIntParam(r, w, logger, key, func(v int64) bool { return v > min })
}

func parseIntParam(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, valid func(int64) bool) (int32, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("%s url parameter is required", key))
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || !valid(v) {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s number: %s", key, raw))
		return 0, false
	}
	return int32(v), true
}
