// Package reference classifies the raw text a user submits into one of the
// three inputs the service understands: a private Slack file URL, a generic
// URL, or neither.
package reference

import (
	"net/url"
	"regexp"
	"strings"
)

// Kind is the classification outcome.
type Kind int

const (
	Invalid Kind = iota
	PrivateRef
	GenericURL
)

// Ref is the classified form of an input string. FileID is set only for
// PrivateRef, URL only for GenericURL.
type Ref struct {
	Kind   Kind
	FileID string
	URL    string
}

// slackFilePattern matches URLs of files shared on Slack; the capture group
// is the opaque file ID used with the files.info API.
var slackFilePattern = regexp.MustCompile(`^https?.*\.slack\.com/files/.*/(.*)/.*$`)

// Classify maps any input string to exactly one Ref. Private file URLs take
// precedence over the generic URL check. Pure and total.
func Classify(input string) Ref {
	if m := slackFilePattern.FindStringSubmatch(input); m != nil {
		return Ref{Kind: PrivateRef, FileID: m[1]}
	}
	if isAbsoluteURL(input) {
		return Ref{Kind: GenericURL, URL: input}
	}
	return Ref{Kind: Invalid}
}

// isAbsoluteURL reports whether s is an absolute URL with a plausible host:
// either a dotted domain or localhost. net/url alone parses almost any
// string, so the host check is what actually rejects plain text.
func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}
	host := u.Hostname()
	return strings.Contains(host, ".") || host == "localhost"
}
