// Package viewer builds links into the external 3dmol.js viewer.
package viewer

import "net/url"

const (
	baseURL = "http://3dmol.csb.pitt.edu/viewer.html?url="
	style   = "&style=stick"
)

// BuildLink returns the viewer URL for a publicly fetchable file location.
// No validation; the caller decides what is linkable.
func BuildLink(fileURL string) string {
	return baseURL + url.QueryEscape(fileURL) + style
}
