package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/MrEthical07/marketgate"
)

// ErrorBody is the JSON shape of every rejection.
type ErrorBody struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// WriteError renders err with its mapped status and public message. Rate
// limit rejections also carry a Retry-After header.
func WriteError(w http.ResponseWriter, err error) {
	body := ErrorBody{Message: marketgate.PublicMessage(err)}

	var rle *marketgate.RateLimitError
	if errors.As(err, &rle) {
		body.RetryAfter = rle.RetryAfterSeconds()
		w.Header().Set("Retry-After", strconv.Itoa(body.RetryAfter))
	}

	WriteJSON(w, marketgate.StatusCode(err), body)
}

// WriteJSON writes v as a JSON response with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
