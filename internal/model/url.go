package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SentinelPrefix marks a short code that has not been finalized yet.
// It lies outside the base62 alphabet, so no encoded id can start with it.
const SentinelPrefix = "~"

// URL represents a shortened URL mapping
type URL struct {
	ID         uint64    `json:"id"`         // input to Base62 encoder
	ShortCode  string    `json:"short_code"` // base62 encoded id
	LongURL    string    `json:"long_url"`   // redirect target
	ClickCount uint64    `json:"click_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewSentinel returns a placeholder code unique to one pending row.
func NewSentinel() string {
	return SentinelPrefix + uuid.NewString()
}

// IsSentinel reports whether code is a placeholder produced by NewSentinel.
func IsSentinel(code string) bool {
	return strings.HasPrefix(code, SentinelPrefix)
}

// CreateURLRequest is the API request body
type CreateURLRequest struct {
	LongURL string `json:"long_url"`
}

// CreateURLResponse is the API response
type CreateURLResponse struct {
	ShortURL  string `json:"short_url"`
	ShortCode string `json:"short_code"`
}
