// Package validation checks values that leave the process, such as URLs
// handed to the platform browser opener.
package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// shellChars may not appear in a URL passed to an external command.
const shellChars = ";&|`$()<>\"'\\\n\r "

// BrowserURL parses rawURL and checks that it is an http or https URL with
// a host and without shell metacharacters.
func BrowserURL(rawURL string) (*url.URL, error) {
	if i := strings.IndexAny(rawURL, shellChars); i >= 0 {
		return nil, fmt.Errorf("URL contains dangerous character %q", rawURL[i])
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL scheme: %s (only http/https allowed)", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("URL must have a valid hostname")
	}

	return parsed, nil
}
