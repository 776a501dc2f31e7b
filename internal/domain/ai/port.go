package ai

import "context"

// Client writes a narrative for a report digest (JSON of the report summary)
type Client interface {
	Narrate(ctx context.Context, digest string) (string, error)
	Provider() string
}
