// Package imagefetch resolves access to image sources before vision
// extraction.
//
// A source is classified once per attempt as openly fetchable or
// access-restricted (hosted on a CDN that requires page-level cookies), and
// the bytes are then obtained through the matching channel: a plain HTTP
// fetch, or a delegated fetch executed inside the authenticated page.
package imagefetch

import "errors"

// Access classifies an image source.
type Access string

const (
	// AccessOpen sources can be fetched without page credentials.
	AccessOpen Access = "open"
	// AccessRestricted sources live on cookie-gated CDN domains.
	AccessRestricted Access = "restricted"
)

// Channel identifies how image bytes were (or will be) obtained.
type Channel string

const (
	// ChannelDirect is a plain HTTP fetch from this process.
	ChannelDirect Channel = "direct-fetch"
	// ChannelDelegated runs the fetch inside the page's execution context,
	// sharing its authentication cookies.
	ChannelDelegated Channel = "delegated-fetch"
)

// ErrNetwork is returned on transport failure or a non-success HTTP status.
var ErrNetwork = errors.New("imagefetch: network error")

// ErrDelegation is returned when the delegated in-page fetch reports
// failure. The remote error message is wrapped in.
var ErrDelegation = errors.New("imagefetch: delegated fetch failed")
