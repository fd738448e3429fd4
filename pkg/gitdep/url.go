package gitdep

import (
	"net/url"
	"regexp"
	"strings"
)

// scpLike matches "user@host:path" SSH shorthand, e.g. "git@github.com:org/repo.git".
// It deliberately excludes strings that already look like a scheme://.
var scpLike = regexp.MustCompile(`^([^@/:]+)@([^:/]+):(.+)$`)

// Normalise canonicalises a dependency URL so that two spellings of the same
// remote produce the same key: SSH shorthand is rewritten to ssh://, repeated
// path slashes are collapsed, and a trailing ".git" is kept but normalised
// consistently (spec.md §4.A, §8 "Dependency-key uniqueness").
func Normalise(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}

	if m := scpLike.FindStringSubmatch(raw); m != nil {
		user, host, path := m[1], m[2], m[3]
		return "ssh://" + user + "@" + host + "/" + collapseSlashes(path)
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		// Not a recognised URL form; collapse slashes defensively and return as-is.
		return collapseSlashes(raw)
	}

	u.Path = "/" + collapseSlashes(strings.TrimPrefix(u.Path, "/"))
	// Preserve explicit ports; do not inject default ports for unspecified ones.
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	return u.String()
}

func collapseSlashes(path string) string {
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	return strings.TrimSuffix(path, "/")
}

// BareClonePath derives the on-disk path for a URL's shared bare clone,
// rooted at <dependenciesDir>/.repos/<host>/<path>, per spec.md §3.
func BareClonePath(reposDir, normalisedURL string) string {
	u, err := url.Parse(normalisedURL)
	if err != nil || u.Host == "" {
		// Fall back to a flat, sanitised directory name.
		return reposDir + "/" + sanitise(normalisedURL)
	}
	p := strings.TrimPrefix(u.Path, "/")
	p = strings.TrimSuffix(p, ".git")
	return reposDir + "/" + u.Host + "/" + p
}

func sanitise(s string) string {
	replacer := strings.NewReplacer("://", "_", "/", "_", ":", "_", "@", "_")
	return replacer.Replace(s)
}
