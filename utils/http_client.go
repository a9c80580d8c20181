package utils

import (
	"net/http"
	"time"
)

// NewHTTPClient returns the client used for outbound calls to collaborating
// services.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 5 * time.Second,
	}
}
