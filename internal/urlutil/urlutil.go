// Package urlutil holds the small URL helpers the login adapters share:
// parsing a possibly relative URL, and reading values out of the query string
// or the fragment of a landing URL.
package urlutil

import (
	"fmt"
	"net/url"
)

// ParseAsURL parses rawURL. A relative URL is resolved against base when base is
// non-nil, the way a browser resolves it against the current page.
func ParseAsURL(rawURL string, base *url.URL) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if base != nil && !u.IsAbs() {
		u = base.ResolveReference(u)
	}
	return u, nil
}

// QueryValue returns the first value of key in the query string of u.
func QueryValue(u *url.URL, key string) string {
	if u == nil {
		return ""
	}
	return u.Query().Get(key)
}

// HashValue returns the first value of key in the fragment of u, which is read
// as a query string (access_token=...&expires_in=...).
func HashValue(u *url.URL, key string) string {
	if u == nil || u.Fragment == "" {
		return ""
	}
	// ParseQuery keeps the pairs it could read on error
	values, _ := url.ParseQuery(u.EscapedFragment())
	return values.Get(key)
}

// AppendQuery returns a copy of u with the already encoded pair appended to its
// query string, joined with "&" when a query is present.
func AppendQuery(u *url.URL, pair string) *url.URL {
	out := *u
	if out.RawQuery != "" {
		out.RawQuery = out.RawQuery + "&" + pair
	} else {
		out.RawQuery = pair
	}
	return &out
}
