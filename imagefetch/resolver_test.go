package imagefetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeDelegate struct {
	ref string
	err error
}

func (f fakeDelegate) FetchImage(context.Context, string) (string, error) {
	return f.ref, f.err
}

func TestResolve_OpenSourcePassesThrough(t *testing.T) {
	// WHAT: Open URLs are submitted as-is; the model fetches them itself.
	// WHY: Downloading public images here would only add latency and a second
	// copy of the bytes.
	r := NewResolver(NewClassifier(), NewFetcher(FetchConfig{}), nil)

	res, err := r.Resolve(context.Background(), "https://example.com/card.png", nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Ref != "https://example.com/card.png" {
		t.Errorf("ref = %q, want the original URL", res.Ref)
	}
	if res.Access != AccessOpen || res.Channel != ChannelDirect {
		t.Errorf("access/channel = %v/%v", res.Access, res.Channel)
	}
}

func TestResolve_RestrictedUsesDelegate(t *testing.T) {
	// WHAT: Restricted sources go through the delegate, which fetches inside
	// the authenticated page.
	r := NewResolver(NewClassifier(), NewFetcher(FetchConfig{}), nil)
	d := fakeDelegate{ref: "data:image/jpeg;base64,AAAA"}

	res, err := r.Resolve(context.Background(), "https://pbs.twimg.com/media/a.jpg", d)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Ref != d.ref {
		t.Errorf("ref = %q, want the delegate's data URI", res.Ref)
	}
	if res.Channel != ChannelDelegated {
		t.Errorf("channel = %v, want delegated", res.Channel)
	}
}

func TestResolve_DelegateFailureIsDelegationError(t *testing.T) {
	// WHAT: A failed delegated fetch surfaces as ErrDelegation.
	// WHY: The pipeline picks the "refresh the page" guidance off this
	// sentinel.
	r := NewResolver(NewClassifier(), NewFetcher(FetchConfig{}), nil)
	d := fakeDelegate{err: errors.New("page gone")}

	_, err := r.Resolve(context.Background(), "https://pbs.twimg.com/media/a.jpg", d)
	if !errors.Is(err, ErrDelegation) {
		t.Errorf("expected ErrDelegation, got: %v", err)
	}
}

func TestResolve_RestrictedWithoutDelegateFallsBackToDirect(t *testing.T) {
	// WHAT: With no delegate available, a restricted source is still tried
	// directly; a reachable one resolves to downloaded bytes.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngHeader)
	}))
	defer srv.Close()

	// The test server's loopback host is marked restricted via configuration.
	r := NewResolver(NewClassifier("127.0.0.1"), NewFetcher(FetchConfig{}), nil)

	res, err := r.Resolve(context.Background(), srv.URL+"/a.png", nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Access != AccessRestricted || res.Channel != ChannelDirect {
		t.Errorf("access/channel = %v/%v", res.Access, res.Channel)
	}
	if !strings.HasPrefix(res.Ref, "data:image/png;base64,") {
		t.Errorf("ref = %q, want downloaded data URI", res.Ref)
	}
}

func TestResolve_RestrictedUnreachableWithoutDelegate(t *testing.T) {
	// WHAT: A truly protected source with no delegate fails with ErrNetwork.
	r := NewResolver(NewClassifier("127.0.0.1"), NewFetcher(FetchConfig{}), nil)

	_, err := r.Resolve(context.Background(), "http://127.0.0.1:1/a.png", nil)
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("expected ErrNetwork, got: %v", err)
	}
}

func TestDownload_ForcesDirectFetch(t *testing.T) {
	// WHAT: Download fetches bytes regardless of the access class.
	// WHY: It backs the alternate-channel retry after the model rejected a URL
	// that classified as open.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngHeader)
	}))
	defer srv.Close()

	r := NewResolver(NewClassifier(), NewFetcher(FetchConfig{}), nil)
	ref, err := r.Download(context.Background(), srv.URL+"/a.png")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if !strings.HasPrefix(ref, "data:image/png;base64,") {
		t.Errorf("ref = %q, want data URI", ref)
	}
}
