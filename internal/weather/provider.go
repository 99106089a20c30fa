package weather

import (
	"context"
	"errors"
)

// Fetch failure classes. A Fetcher reports at most one of them per call.
var (
	ErrTransportTimeout  = errors.New("forecast request timed out")
	ErrTransport         = errors.New("forecast request failed")
	ErrUnexpectedStatus  = errors.New("unexpected status code")
	ErrMalformedResponse = errors.New("malformed forecast response")
)

// ErrBlobNotFound is returned by a BlobStore for keys it has never saved.
var ErrBlobNotFound = errors.New("blob not found")

// FetchStatus is the outcome of one Fetch call.
type FetchStatus int

const (
	// StatusFresh means the prior payload had not expired; nothing was requested.
	StatusFresh FetchStatus = iota
	// StatusUpdated carries a new payload and freshness pair.
	StatusUpdated
	// StatusNotModified is a 304: keep the prior payload and freshness pair.
	StatusNotModified
	// StatusFailed means the request could not produce a payload; Err says why.
	StatusFailed
)

func (s FetchStatus) String() string {
	switch s {
	case StatusFresh:
		return "fresh"
	case StatusUpdated:
		return "updated"
	case StatusNotModified:
		return "not_modified"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FetchResult is returned by Fetcher.Fetch. Body, Payload and Freshness are
// only meaningful for StatusUpdated; for the other statuses Freshness echoes
// the prior pair.
type FetchResult struct {
	Status    FetchStatus
	Body      []byte
	Payload   *RawPayload
	Freshness Freshness
	Err       error
}

// Fetcher performs the conditional forecast request for one location.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, prior Freshness) FetchResult
}

// RawForecast is the last good payload together with its freshness pair.
type RawForecast struct {
	Body      []byte
	Payload   *RawPayload
	Freshness Freshness
}

// RawStore holds the last good RawForecast in memory.
type RawStore interface {
	Latest() RawForecast
	Replace(raw RawForecast)
}

// BlobStore persists opaque blobs by key.
type BlobStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}
