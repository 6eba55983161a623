package amazon

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	// DefaultTag is the affiliate tag used when none is configured.
	DefaultTag = "unbiasedtechr-20"

	baseURL = "https://amazon.com"
)

var (
	asinRe   = regexp.MustCompile(`^B[0-9A-Z]{9}$`)
	dpPathRe = regexp.MustCompile(`/dp/([B0-9A-Z]{10})`)
)

// IsValidASIN reports whether s has the ASIN shape: B followed by nine
// uppercase letters or digits.
func IsValidASIN(s string) bool {
	return asinRe.MatchString(s)
}

// SearchURL is the Amazon search page for name, carrying tag.
func SearchURL(name, tag string) string {
	return baseURL + "/s?k=" + url.QueryEscape(strings.TrimSpace(name)) + "&tag=" + url.QueryEscape(tag)
}

// ProductURL is the product page for asin, carrying tag.
func ProductURL(asin, tag string) string {
	return baseURL + "/dp/" + asin + "?tag=" + url.QueryEscape(tag)
}

// HomeURL is the Amazon home page carrying tag.
func HomeURL(tag string) string {
	return baseURL + "/?tag=" + url.QueryEscape(tag)
}

// ExtractASIN pulls the ASIN out of a /dp/ URL. It returns "" when rawURL
// does not parse or has no /dp/ segment.
func ExtractASIN(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	m := dpPathRe.FindStringSubmatch(u.Path)
	if m == nil {
		return ""
	}
	return m[1]
}

// IsAffiliateURL reports whether rawURL points at amazon.com and carries a
// tag or a product path.
func IsAffiliateURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	if !strings.Contains(strings.ToLower(u.Host), "amazon.com") {
		return false
	}
	return u.Query().Has("tag") || strings.Contains(u.Path, "/dp/")
}
