package validation

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ImageURLValidator checks image URLs before they are handed to the search
// service. The service fetches the image itself, so hosts that only resolve
// on the user's machine are rejected unless explicitly allowed.
type ImageURLValidator struct {
	AllowLocalhost  bool
	AllowPrivateIPs bool
	MaxLength       int
}

func NewImageURLValidator() *ImageURLValidator {
	return &ImageURLValidator{
		MaxLength: 2048,
	}
}

// NewPermissiveImageURLValidator accepts local and private hosts, for
// pointing the client at a development deployment.
func NewPermissiveImageURLValidator() *ImageURLValidator {
	return &ImageURLValidator{
		AllowLocalhost:  true,
		AllowPrivateIPs: true,
		MaxLength:       2048,
	}
}

// ValidateAndNormalize trims input, defaults a missing scheme to https and
// returns the normalized URL.
func (v *ImageURLValidator) ValidateAndNormalize(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("URL cannot be empty")
	}
	if v.MaxLength > 0 && len(input) > v.MaxLength {
		return "", fmt.Errorf("URL too long (max %d characters)", v.MaxLength)
	}
	if strings.ContainsAny(input, "<>\"'` ") {
		return "", fmt.Errorf("URL contains invalid characters")
	}

	if !strings.Contains(input, "://") {
		input = "https://" + input
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("URL must use http or https protocol")
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("URL must have a valid hostname")
	}
	if u.User != nil {
		return "", fmt.Errorf("URL must not embed credentials")
	}
	if err := v.checkHost(u.Hostname()); err != nil {
		return "", err
	}

	return u.String(), nil
}

func (v *ImageURLValidator) checkHost(hostname string) error {
	hostname = strings.ToLower(hostname)

	if !v.AllowLocalhost && isLocalhost(hostname) {
		return fmt.Errorf("localhost URLs are not reachable by the search service")
	}

	if ip := net.ParseIP(hostname); ip != nil {
		if ip.IsUnspecified() || ip.Equal(net.IPv4bcast) {
			return fmt.Errorf("invalid host address: %s", hostname)
		}
		if !v.AllowPrivateIPs && !ip.IsLoopback() && isPrivateIP(ip) {
			return fmt.Errorf("private IP addresses are not reachable by the search service")
		}
		if !v.AllowLocalhost && ip.IsLoopback() {
			return fmt.Errorf("localhost URLs are not reachable by the search service")
		}
		return nil
	}

	if !strings.Contains(hostname, ".") && !isLocalhost(hostname) {
		return fmt.Errorf("hostname %q is not fully qualified", hostname)
	}
	return nil
}

// IsHTTP reports whether raw parses as an absolute http(s) URL.
func IsHTTP(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isLocalhost(hostname string) bool {
	return hostname == "localhost" ||
		hostname == "::1" ||
		strings.HasSuffix(hostname, ".localhost") ||
		strings.HasPrefix(hostname, "127.")
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLoopback()
}
