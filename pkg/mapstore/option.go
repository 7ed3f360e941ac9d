package mapstore

import (
	"time"

	"github.com/hashicorp/go-hclog"
)

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithFetcherLogger sets the logger for the fetcher.
func WithFetcherLogger(l hclog.Logger) FetcherOption {
	return func(f *Fetcher) { f.l = l.Named("catalog") }
}

// WithListService overrides the name of the list service.
func WithListService(s string) FetcherOption {
	return func(f *Fetcher) { f.service = s }
}

// WithLocation sets the timezone labels are rendered in.
func WithLocation(loc *time.Location) FetcherOption {
	return func(f *Fetcher) { f.loc = loc }
}

// WithFetchTimeout bounds how long a list call may take.  Zero waits
// for as long as the caller's context allows.
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.timeout = d }
}

// WithLoaderLogger sets the logger for the loader.
func WithLoaderLogger(l hclog.Logger) LoaderOption {
	return func(ld *Loader) { ld.l = l.Named("loader") }
}

// WithPublishService overrides the name of the publish service.
func WithPublishService(s string) LoaderOption {
	return func(ld *Loader) { ld.service = s }
}

// WithLoadTimeout bounds how long a publish call may take.
func WithLoadTimeout(d time.Duration) LoaderOption {
	return func(ld *Loader) { ld.timeout = d }
}
