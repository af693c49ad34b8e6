package vision

import (
	"errors"
	"strings"
)

// ErrNoAPIKey is returned when no API credential is configured.
// User-correctable; never retried.
var ErrNoAPIKey = errors.New("vision: API key not configured")

// ErrAuth is returned when the model API rejects the credential.
var ErrAuth = errors.New("vision: invalid API key")

// ErrQuota is returned when the account's usage quota is exhausted.
var ErrQuota = errors.New("vision: quota exceeded")

// ErrRateLimit is returned when the model API throttles the request.
var ErrRateLimit = errors.New("vision: rate limit reached")

// ErrBadImage is returned when the model could not retrieve or decode the
// image URL it was given. The pipeline may retry once with downloaded bytes.
var ErrBadImage = errors.New("vision: image could not be processed")

// ErrNetwork is returned on transport failure.
var ErrNetwork = errors.New("vision: network error")

// ErrTimeout is returned when the request exceeded the transport deadline.
var ErrTimeout = errors.New("vision: request timeout")

// ErrExtraction is the unclassified failure.
var ErrExtraction = errors.New("vision: extraction failed")

// classifyAPIError maps the model API's error payload to a sentinel.
func classifyAPIError(code, message string) error {
	blob := code + " " + message
	switch {
	case contains(blob, "invalid_api_key", "Unauthorized", "incorrect API key"):
		return ErrAuth
	case contains(blob, "insufficient_quota", "quota"):
		return ErrQuota
	case contains(blob, "rate_limit"):
		return ErrRateLimit
	case contains(blob, "invalid_image_url", "Error while downloading"):
		return ErrBadImage
	case contains(blob, "timeout"):
		return ErrTimeout
	}
	return ErrExtraction
}

func contains(s string, subs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// Message maps a classified error to the guidance string shown to the user.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrNoAPIKey):
		return "OpenAI API key required. Please set it in extension options."
	case errors.Is(err, ErrAuth):
		return "Invalid OpenAI API key. Please check your API key in options."
	case errors.Is(err, ErrQuota):
		return "OpenAI API quota exceeded. Please check your usage limits."
	case errors.Is(err, ErrRateLimit):
		return "OpenAI API rate limit reached. Please wait and try again."
	case errors.Is(err, ErrBadImage):
		return "Image could not be processed. Please try a different image."
	case errors.Is(err, ErrNetwork):
		return "Network error. Please check your internet connection."
	case errors.Is(err, ErrTimeout):
		return "Request timeout. Please try again."
	}
	return "Image processing failed"
}
