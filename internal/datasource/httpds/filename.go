package httpds

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// filenameCleaner replaces sequences of non-alphanumeric characters with "_".
var filenameCleaner = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// HashString returns a stable SHA1 hex digest of s.
func HashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}

// NameFromURL derives the registry filename for a remote payload.
//
// When the URL path ends in ".fit" (optionally ".fit.gz") its base name is
// used. Otherwise the cleaned query string is used, falling back to a hash of
// the whole URL when the query is empty or the URL does not parse; ".fit" is
// appended in both cases.
func NameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return HashString(rawURL) + ".fit"
	}

	base := path.Base(u.Path)
	lower := strings.ToLower(base)
	if strings.HasSuffix(lower, ".fit") {
		return base
	}
	if strings.HasSuffix(lower, ".fit.gz") {
		return base[:len(base)-len(".gz")]
	}

	clean := strings.Trim(filenameCleaner.ReplaceAllString(u.RawQuery, "_"), "_")
	if clean == "" {
		return HashString(rawURL) + ".fit"
	}
	return clean + ".fit"
}
