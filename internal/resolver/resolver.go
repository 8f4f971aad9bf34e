// Package resolver turns an opaque private file ID plus a tenant credential
// into fetchable bytes and metadata.
package resolver

import "context"

// FileInfo is what a successful resolution yields: the original filename,
// the authenticated download location, and (when known) the channel the file
// was shared in.
type FileInfo struct {
	Name      string
	FetchURL  string
	ChannelID string
}

// Resolver resolves a private file reference. One attempt per request; the
// caller maps every failure to the same user-facing error, so implementations
// do not need to distinguish not-found from unauthorized.
type Resolver interface {
	Resolve(ctx context.Context, token, fileID string) (FileInfo, error)
}
