package providers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metno-forecast/norwegianweather/internal/common"
	"github.com/metno-forecast/norwegianweather/internal/weather"
)

const testAgent = "norwegianweather-test/1.0 ops@example.org"

var testNow = time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testLocation() weather.Location {
	alt := 12.0
	return weather.NewLocation("Syrevågen", 59.15113, 5.22524, &alt)
}

func newTestProvider(t *testing.T, url string, timeout time.Duration) *MetNoProvider {
	t.Helper()
	p, err := NewMetNoProvider(http.DefaultClient, testLocation(), MetNoOptions{
		BaseURL:   url,
		UserAgent: testAgent,
		Timeout:   timeout,
		Clock:     common.FixedClock(testNow),
	}, testLogger())
	require.NoError(t, err)
	return p
}

func fixtureBody(t *testing.T) []byte {
	t.Helper()
	body, err := os.ReadFile("../testdata/complete.json")
	require.NoError(t, err)
	return body
}

func TestMetNoFetchUpdated(t *testing.T) {
	body := fixtureBody(t)
	var gotAgent, gotQuery, gotIMS string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		gotQuery = r.URL.RawQuery
		gotIMS = r.Header.Get("If-Modified-Since")
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Expires", "Sun, 18 Oct 2026 10:30:00 GMT")
		w.Header().Set("Last-Modified", "Sun, 18 Oct 2026 09:58:12 GMT")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL, time.Second)
	res := p.Fetch(context.Background(), weather.Freshness{})

	require.Equal(t, weather.StatusUpdated, res.Status)
	require.NoError(t, res.Err)
	assert.Equal(t, testAgent, gotAgent)
	assert.Equal(t, "lat=59.1511&lon=5.2252&altitude=12", gotQuery)
	assert.Empty(t, gotIMS)

	assert.Equal(t, body, res.Body)
	require.NotNil(t, res.Payload)
	assert.Len(t, res.Payload.Properties.Timeseries, 4)
	assert.Equal(t, time.Date(2026, 10, 18, 10, 30, 0, 0, time.UTC), res.Freshness.Expires)
	assert.Equal(t, time.Date(2026, 10, 18, 9, 58, 12, 0, time.UTC), res.Freshness.LastModified)
}

func TestMetNoFetchNotModified(t *testing.T) {
	prior := weather.Freshness{
		Expires:      testNow.Add(-time.Minute),
		LastModified: time.Date(2026, 10, 18, 9, 58, 12, 0, time.UTC),
	}
	var gotIMS string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIMS = r.Header.Get("If-Modified-Since")
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL, time.Second)
	res := p.Fetch(context.Background(), prior)

	assert.Equal(t, weather.StatusNotModified, res.Status)
	assert.Equal(t, "Sun, 18 Oct 2026 09:58:12 GMT", gotIMS)
	assert.Equal(t, prior, res.Freshness)
	assert.Nil(t, res.Payload)
	assert.Empty(t, res.Body)
}

func TestMetNoFetchSkipsWhileFresh(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	prior := weather.Freshness{Expires: testNow.Add(5 * time.Minute)}
	p := newTestProvider(t, srv.URL, time.Second)
	res := p.Fetch(context.Background(), prior)

	assert.Equal(t, weather.StatusFresh, res.Status)
	assert.Equal(t, prior, res.Freshness)
	assert.Zero(t, calls.Load())
}

func TestMetNoFetchUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	prior := weather.Freshness{LastModified: testNow.Add(-time.Hour)}
	p := newTestProvider(t, srv.URL, time.Second)
	res := p.Fetch(context.Background(), prior)

	assert.Equal(t, weather.StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, weather.ErrUnexpectedStatus)
	assert.Contains(t, res.Err.Error(), "500")
	assert.Equal(t, prior, res.Freshness)
}

func TestMetNoFetchMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"properties": [`))
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL, time.Second)
	res := p.Fetch(context.Background(), weather.Freshness{})

	assert.Equal(t, weather.StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, weather.ErrMalformedResponse)
}

func TestMetNoFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL, 50*time.Millisecond)
	res := p.Fetch(context.Background(), weather.Freshness{})

	assert.Equal(t, weather.StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, weather.ErrTransportTimeout)
}

func TestMetNoFetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := newTestProvider(t, url, time.Second)
	res := p.Fetch(context.Background(), weather.Freshness{})

	assert.Equal(t, weather.StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, weather.ErrTransport)
}

func TestMetNoFetchBadHeaders(t *testing.T) {
	body := fixtureBody(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Expires", "tomorrow-ish")
		w.Header().Set("Last-Modified", "Sun, 18 Oct 2026 11:58:12 +0200")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL, time.Second)
	res := p.Fetch(context.Background(), weather.Freshness{})

	require.Equal(t, weather.StatusUpdated, res.Status)
	assert.True(t, res.Freshness.Expires.IsZero())
	assert.Equal(t, time.Date(2026, 10, 18, 9, 58, 12, 0, time.UTC), res.Freshness.LastModified)
}

func TestMetNoFetchToleratesLooseDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"properties":{"timeseries":[{"time":"2026-10-18T10:00:00Z","data":{
			"instant":{"details":{"wind_speed":null,"air_temperature":7.5,"note":"n/a"}}}}]}}`))
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL, time.Second)
	res := p.Fetch(context.Background(), weather.Freshness{})

	require.Equal(t, weather.StatusUpdated, res.Status)
	require.NoError(t, res.Err)
	assert.True(t, res.Payload.HasTimeseries())
}

func TestCircuitBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	cb := newCircuitBreaker("test")
	fail := func() (interface{}, error) { return nil, io.ErrUnexpectedEOF }

	for i := 0; i < 4; i++ {
		_, _ = cb.Execute(fail)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())

	_, _ = cb.Execute(fail)
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err := cb.Execute(fail)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestNewMetNoProviderRequiresUserAgent(t *testing.T) {
	_, err := NewMetNoProvider(http.DefaultClient, testLocation(), MetNoOptions{}, testLogger())
	assert.Error(t, err)
}

func TestBuildMetNoURL(t *testing.T) {
	u, err := BuildMetNoURL(DefaultMetNoURL, weather.NewLocation("x", 59.9427871, 10.7206515, nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultMetNoURL+"?lat=59.9428&lon=10.7207", u)

	u, err = BuildMetNoURL("http://localhost:9000/forecast?key=abc", testLocation())
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/forecast?key=abc&lat=59.1511&lon=5.2252&altitude=12", u)

	_, err = BuildMetNoURL("/relative/path", testLocation())
	assert.Error(t, err)
}

func TestParseHTTPDate(t *testing.T) {
	want := time.Date(2026, 10, 18, 9, 58, 12, 0, time.UTC)
	for _, s := range []string{
		"Sun, 18 Oct 2026 09:58:12 GMT",
		"Sun, 18 Oct 2026 11:58:12 +0200",
		"Sunday, 18-Oct-26 09:58:12 GMT",
	} {
		got, err := ParseHTTPDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}

	_, err := ParseHTTPDate("")
	assert.Error(t, err)
	_, err = ParseHTTPDate("yesterday")
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify(context.DeadlineExceeded), weather.ErrTransportTimeout)
	assert.ErrorIs(t, classify(io.ErrUnexpectedEOF), weather.ErrTransport)
	assert.ErrorIs(t, classify(errCircuitOpen), weather.ErrTransport)
}
