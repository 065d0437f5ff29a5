package urlutil

import (
	"net/url"
	"testing"
)

func TestParseAsURL(t *testing.T) {
	base, _ := url.Parse("https://app.example.com/games/index.html?x=1")

	testCases := []struct {
		name     string
		raw      string
		base     *url.URL
		expected string
	}{
		{
			name:     "absolute URL",
			raw:      "https://example.com/callback",
			expected: "https://example.com/callback",
		},
		{
			name:     "relative without base",
			raw:      "/callback",
			expected: "/callback",
		},
		{
			name:     "relative path resolved against base",
			raw:      "/callback?a=b",
			base:     base,
			expected: "https://app.example.com/callback?a=b",
		},
		{
			name:     "absolute URL ignores base",
			raw:      "http://localhost:3334/oauth/callback",
			base:     base,
			expected: "http://localhost:3334/oauth/callback",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			u, err := ParseAsURL(tc.raw, tc.base)
			if err != nil {
				t.Fatalf("ParseAsURL(%q) error: %v", tc.raw, err)
			}
			if u.String() != tc.expected {
				t.Errorf("Expected %s, got %s", tc.expected, u.String())
			}
		})
	}
}

func TestParseAsURLInvalid(t *testing.T) {
	if _, err := ParseAsURL("http://[::1", nil); err == nil {
		t.Error("Expected error for malformed URL")
	}
}

func TestQueryValue(t *testing.T) {
	u, _ := url.Parse("https://example.com/cb?rslCallback=battlenet&error=access_denied")

	if got := QueryValue(u, "rslCallback"); got != "battlenet" {
		t.Errorf("Expected battlenet, got %q", got)
	}
	if got := QueryValue(u, "error"); got != "access_denied" {
		t.Errorf("Expected access_denied, got %q", got)
	}
	if got := QueryValue(u, "missing"); got != "" {
		t.Errorf("Expected empty value, got %q", got)
	}
	if got := QueryValue(nil, "error"); got != "" {
		t.Errorf("Expected empty value for nil URL, got %q", got)
	}
}

func TestHashValue(t *testing.T) {
	u, _ := url.Parse("https://example.com/cb?rslCallback=battlenet#access_token=XYZ&expires_in=3600&token_type=bearer")

	if got := HashValue(u, "access_token"); got != "XYZ" {
		t.Errorf("Expected XYZ, got %q", got)
	}
	if got := HashValue(u, "expires_in"); got != "3600" {
		t.Errorf("Expected 3600, got %q", got)
	}

	// Query parameters are not fragment parameters
	if got := HashValue(u, "rslCallback"); got != "" {
		t.Errorf("Expected empty value, got %q", got)
	}

	noFragment, _ := url.Parse("https://example.com/cb?access_token=XYZ")
	if got := HashValue(noFragment, "access_token"); got != "" {
		t.Errorf("Expected empty value without fragment, got %q", got)
	}
}

func TestHashValueEncoded(t *testing.T) {
	u, _ := url.Parse("https://example.com/cb#access_token=a%2Bb%26c")
	if got := HashValue(u, "access_token"); got != "a+b&c" {
		t.Errorf("Expected a+b&c, got %q", got)
	}
}

func TestAppendQuery(t *testing.T) {
	testCases := []struct {
		raw      string
		expected string
	}{
		{"https://example.com/cb", "https://example.com/cb?rslCallback=battlenet"},
		{"https://example.com/cb?foo=bar", "https://example.com/cb?foo=bar&rslCallback=battlenet"},
		{"https://example.com/cb#frag", "https://example.com/cb?rslCallback=battlenet#frag"},
	}

	for _, tc := range testCases {
		u, _ := url.Parse(tc.raw)
		got := AppendQuery(u, "rslCallback=battlenet")
		if got.String() != tc.expected {
			t.Errorf("AppendQuery(%s): expected %s, got %s", tc.raw, tc.expected, got.String())
		}
		if u.String() != tc.raw {
			t.Errorf("AppendQuery modified its input: %s", u.String())
		}
	}
}
