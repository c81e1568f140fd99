package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowserURL(t *testing.T) {
	testCases := []struct {
		name    string
		url     string
		wantErr string
	}{
		{name: "http", url: "http://localhost:8080"},
		{name: "https with path", url: "https://example.com/exhibitions?x=1"},
		{name: "file scheme", url: "file:///etc/passwd", wantErr: "invalid URL scheme"},
		{name: "javascript", url: "javascript:alert(1)", wantErr: "dangerous character"},
		{name: "command chaining", url: "http://localhost;rm", wantErr: "dangerous character ';'"},
		{name: "space", url: "http://localhost /x", wantErr: "dangerous character"},
		{name: "no host", url: "http:///path", wantErr: "valid hostname"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			u, err := BrowserURL(tc.url)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.url, u.String())
		})
	}
}
