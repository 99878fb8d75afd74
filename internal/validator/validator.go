package validator

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/darkodi/tinyurl/internal/apperrors"
	"github.com/darkodi/tinyurl/internal/encoder"
)

const defaultMaxLength = 2048

// URLValidator validates URL inputs
type URLValidator struct {
	maxLength       int
	allowedSchemes  []string
	blockedDomains  []string
	blockPrivateIPs bool
}

// NewURLValidator creates a validator with default settings
func NewURLValidator() *URLValidator {
	return &URLValidator{
		maxLength:       defaultMaxLength,
		allowedSchemes:  []string{"http", "https"},
		blockedDomains:  []string{},
		blockPrivateIPs: true,
	}
}

// ValidateURL validates a long URL submitted for shortening
func (v *URLValidator) ValidateURL(rawURL string) *apperrors.AppError {
	if strings.TrimSpace(rawURL) == "" {
		return apperrors.MissingField("long_url")
	}

	if len(rawURL) > v.maxLength {
		return apperrors.InvalidURL(fmt.Sprintf("URL exceeds maximum length of %d characters", v.maxLength))
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return apperrors.InvalidURL("URL could not be parsed")
	}

	if !v.isAllowedScheme(parsedURL.Scheme) {
		return apperrors.InvalidURL("URL must use http or https scheme")
	}

	if parsedURL.Hostname() == "" {
		return apperrors.InvalidURL("URL must have a valid host")
	}

	if v.isBlockedDomain(parsedURL.Hostname()) {
		return apperrors.InvalidURL("This domain is not allowed")
	}

	if v.blockPrivateIPs && isPrivateHost(parsedURL.Hostname()) {
		return apperrors.InvalidURL("URLs pointing to private IPs are not allowed")
	}

	return nil
}

// ValidateShortCode checks that code is something the encoder could have
// produced. Anything else cannot exist in the store.
func (v *URLValidator) ValidateShortCode(code string) *apperrors.AppError {
	if code == "" {
		return apperrors.MissingField("short_code")
	}
	if !encoder.IsCanonical(code) {
		return apperrors.BadRequest(fmt.Sprintf(
			"Short code must be 1-%d base62 characters without leading zeros", encoder.MaxLength))
	}
	return nil
}

// ============================================================
// HELPER METHODS
// ============================================================

func (v *URLValidator) isAllowedScheme(scheme string) bool {
	scheme = strings.ToLower(scheme)
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

func (v *URLValidator) isBlockedDomain(host string) bool {
	host = strings.ToLower(host)
	for _, blocked := range v.blockedDomains {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return true
		}
	}
	return false
}

func isPrivateHost(host string) bool {
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return true
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast()
}

// ============================================================
// CONFIGURATION METHODS
// ============================================================

// WithMaxLength sets maximum URL length
func (v *URLValidator) WithMaxLength(length int) *URLValidator {
	v.maxLength = length
	return v
}

// WithBlockedDomains adds domains to block list
func (v *URLValidator) WithBlockedDomains(domains ...string) *URLValidator {
	for _, d := range domains {
		v.blockedDomains = append(v.blockedDomains, strings.ToLower(d))
	}
	return v
}

// WithAllowPrivateIPs allows private IP addresses
func (v *URLValidator) WithAllowPrivateIPs() *URLValidator {
	v.blockPrivateIPs = false
	return v
}
