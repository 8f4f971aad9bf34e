package resolver

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// slackResolver resolves file IDs through the Slack Web API files.info
// endpoint, authenticated with the tenant's own token.
type slackResolver struct{}

// NewSlack returns the Slack-backed Resolver.
func NewSlack() Resolver {
	return &slackResolver{}
}

func (r *slackResolver) Resolve(ctx context.Context, token, fileID string) (FileInfo, error) {
	api := slack.New(token)
	file, _, _, err := api.GetFileInfoContext(ctx, fileID, 0, 0)
	if err != nil {
		return FileInfo{}, fmt.Errorf("files.info %s: %w", fileID, err)
	}

	info := FileInfo{
		Name:     file.Name,
		FetchURL: file.URLPrivateDownload,
	}
	if len(file.Channels) > 0 {
		info.ChannelID = file.Channels[0]
	}
	return info, nil
}
