package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Blob keys used for persistence.
const (
	KeyRawData = "rawdata"
	KeySetup   = "setup"
)

var (
	// ErrUpdateInProgress is returned when Update is called while another
	// update cycle is still running.
	ErrUpdateInProgress = errors.New("forecast update already in progress")

	// ErrEmptyForecast is returned when a fetched payload has no timeseries.
	ErrEmptyForecast = errors.New("forecast payload has no timeseries")
)

// Service runs the fetch → normalize → persist cycle for one location and
// answers queries against the last good normalized forecast.
type Service struct {
	fetcher Fetcher
	raw     RawStore
	blobs   BlobStore
	base    Location
	log     *slog.Logger

	mu       sync.Mutex
	location atomic.Pointer[Location]
}

// NewService creates a new Service for the location identity base.
func NewService(fetcher Fetcher, raw RawStore, blobs BlobStore, base Location, log *slog.Logger) *Service {
	s := &Service{
		fetcher: fetcher,
		raw:     raw,
		blobs:   blobs,
		base:    base.identity(),
		log:     log.With("component", "forecast", "place", base.Name),
	}
	initial := s.base
	s.location.Store(&initial)
	return s
}

// Load seeds the raw store and the normalized model from the blob store.
// Missing blobs are not an error. Freshness is only restored together with a
// usable payload, otherwise the next Update would skip the request.
func (s *Service) Load(ctx context.Context) error {
	body, err := s.blobs.Load(ctx, KeyRawData)
	if errors.Is(err, ErrBlobNotFound) {
		s.log.Debug("no stored raw payload, a new one will be fetched")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", KeyRawData, err)
	}

	var payload RawPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		s.log.Warn("stored raw payload is unreadable, ignoring it", "error", err)
		return nil
	}
	if !payload.HasTimeseries() {
		s.log.Debug("stored raw payload has no timeseries, ignoring it")
		return nil
	}

	var fresh Freshness
	setup, err := s.blobs.Load(ctx, KeySetup)
	switch {
	case errors.Is(err, ErrBlobNotFound):
	case err != nil:
		return fmt.Errorf("load %s: %w", KeySetup, err)
	default:
		if err := json.Unmarshal(setup, &fresh); err != nil {
			s.log.Warn("stored freshness is unreadable, ignoring it", "error", err)
			fresh = Freshness{}
		}
	}

	loc := Normalize(&payload, s.base)
	s.raw.Replace(RawForecast{Body: body, Payload: &payload, Freshness: fresh})
	s.location.Store(&loc)
	s.log.Info("restored forecast from store",
		"timeseries", len(loc.TimeSeries), "expires", fresh.Expires, "last_modified", fresh.LastModified)
	return nil
}

// Update runs one fetch → normalize → persist cycle. Fetch failures are
// logged and leave the last good forecast in place; they do not fail the
// cycle. Only one cycle runs at a time.
func (s *Service) Update(ctx context.Context) error {
	if !s.mu.TryLock() {
		return ErrUpdateInProgress
	}
	defer s.mu.Unlock()

	log := s.log.With("cycle", uuid.NewString())
	started := time.Now()

	prior := s.raw.Latest()
	res := s.fetcher.Fetch(ctx, prior.Freshness)
	log.Debug("fetch finished", "provider", s.fetcher.Name(), "status", res.Status.String())

	switch res.Status {
	case StatusUpdated:
		loc := Normalize(res.Payload, s.base)
		if loc.Empty() {
			log.Error("fetched payload has no timeseries, keeping previous forecast")
			return ErrEmptyForecast
		}
		s.raw.Replace(RawForecast{Body: res.Body, Payload: res.Payload, Freshness: res.Freshness})
		s.location.Store(&loc)
		log.Info("forecast updated",
			"timeseries", len(loc.TimeSeries), "expires", res.Freshness.Expires, "last_modified", res.Freshness.LastModified)

	case StatusFresh, StatusNotModified:
		// Nothing changed upstream. Rebuild the model only if it was never built.
		if s.Location().Empty() && prior.Payload.HasTimeseries() {
			loc := Normalize(prior.Payload, s.base)
			s.location.Store(&loc)
		}

	case StatusFailed:
		log.Warn("forecast fetch failed, serving previous forecast", "error", res.Err)
		return nil
	}

	if err := s.persist(ctx); err != nil {
		return err
	}
	log.Debug("update cycle completed", "duration", time.Since(started))
	return nil
}

// persist writes the current raw payload and freshness pair to the blob store.
func (s *Service) persist(ctx context.Context) error {
	raw := s.raw.Latest()
	if len(raw.Body) > 0 {
		if err := s.blobs.Save(ctx, KeyRawData, raw.Body); err != nil {
			return fmt.Errorf("save %s: %w", KeyRawData, err)
		}
	}
	setup, err := json.Marshal(raw.Freshness)
	if err != nil {
		return fmt.Errorf("encode freshness: %w", err)
	}
	if err := s.blobs.Save(ctx, KeySetup, setup); err != nil {
		return fmt.Errorf("save %s: %w", KeySetup, err)
	}
	return nil
}

// Location returns the last good normalized forecast.
func (s *Service) Location() Location {
	return *s.location.Load()
}

// CurrentSnapshot returns the hourly view bracketing at.
func (s *Service) CurrentSnapshot(at time.Time) (Attributes, bool) {
	return Select(s.Location(), at)
}

// ForecastSeries returns up to maxCount hourly views in forecast order.
func (s *Service) ForecastSeries(maxCount int) []HourlyView {
	return Series(s.Location(), maxCount)
}

// Intervals returns up to maxCount non-empty intervals of horizon h.
func (s *Service) Intervals(h Horizon, maxCount int) []HourlyView {
	return HorizonSeries(s.Location(), h, maxCount)
}
