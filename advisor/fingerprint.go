package advisor

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
)

var ErrInvalidURL = errors.New("advisor: a valid http(s) url is required")

// NormalizeURL canonicalises a user supplied site address so that trivially
// different spellings share one fingerprint. A missing scheme means https.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", ErrInvalidURL
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidURL
	}
	u.Host = strings.ToLower(u.Host)
	switch u.Scheme {
	case "https":
		u.Host = strings.TrimSuffix(u.Host, ":443")
	case "http":
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "/" {
		u.Path = ""
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""
	return u.String(), nil
}

func roastKey(normalized string) string { return "roast-" + normalized }

// qualifyKey hashes the defining lead fields, case and space folded.
func qualifyKey(in LeadInfo) string {
	h := sha256.New()
	for _, f := range []string{in.BusinessType, in.CurrentWebsite, in.BiggestChallenge, in.Budget, in.Timeline} {
		h.Write([]byte(strings.ToLower(strings.Join(strings.Fields(f), " "))))
		h.Write([]byte{0})
	}
	return "qualify-" + hex.EncodeToString(h.Sum(nil))
}
