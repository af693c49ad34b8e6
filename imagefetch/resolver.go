package imagefetch

import (
	"context"
	"fmt"
	"log/slog"
)

// Delegate fetches a URL inside the authenticated page context and returns
// the bytes as a data URI. Available only when the extraction was triggered
// from a context with an associated browsing tab.
type Delegate interface {
	FetchImage(ctx context.Context, url string) (string, error)
}

// Resolution describes how a source was prepared for the vision model.
type Resolution struct {
	// Ref is what gets submitted: the original URL for open sources (the
	// model fetches those itself), or a data URI when bytes were obtained
	// here.
	Ref     string
	Access  Access
	Channel Channel
}

// Resolver composes classification with the two fetch channels.
type Resolver struct {
	classifier *Classifier
	fetcher    *Fetcher
	logger     *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(classifier *Classifier, fetcher *Fetcher, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{classifier: classifier, fetcher: fetcher, logger: logger}
}

// Classify exposes the access class of src.
func (r *Resolver) Classify(src string) Access {
	return r.classifier.Classify(src)
}

// Resolve prepares src for submission to the vision model.
//
// Open sources pass through untouched — the model retrieves public URLs
// itself, and data URIs are already self-describing. Restricted sources are
// fetched here: through the delegate when one is available (it shares the
// page's cookies), otherwise by best-effort direct fetch, which will
// usually fail with ErrNetwork for truly protected resources.
func (r *Resolver) Resolve(ctx context.Context, src string, delegate Delegate) (Resolution, error) {
	access := r.classifier.Classify(src)
	if access == AccessOpen {
		return Resolution{Ref: src, Access: access, Channel: ChannelDirect}, nil
	}

	if delegate != nil {
		ref, err := delegate.FetchImage(ctx, src)
		if err != nil {
			return Resolution{Access: access, Channel: ChannelDelegated},
				fmt.Errorf("%w: %v", ErrDelegation, err)
		}
		return Resolution{Ref: ref, Access: access, Channel: ChannelDelegated}, nil
	}

	r.logger.Debug("imagefetch: restricted source without delegate, trying direct fetch", "src", src)
	ref, err := r.fetcher.Fetch(ctx, src)
	if err != nil {
		return Resolution{Access: access, Channel: ChannelDirect}, err
	}
	return Resolution{Ref: ref, Access: access, Channel: ChannelDirect}, nil
}

// Download forces a direct fetch of src into a data URI, regardless of
// access class. Used by the pipeline's alternate-channel retry.
func (r *Resolver) Download(ctx context.Context, src string) (string, error) {
	return r.fetcher.Fetch(ctx, src)
}
