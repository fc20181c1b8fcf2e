package weather

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"

	"github.com/saaga0h/gammad/internal/cache"
	"github.com/saaga0h/gammad/internal/geo"
)

var santiago = geo.Coordinates{Latitude: -33.4489, Longitude: -70.6693}

type fakeFetcher struct {
	body  string
	err   error
	calls int
}

func (f *fakeFetcher) GetJSON(ctx context.Context, endpoint string, params url.Values) (gjson.Result, error) {
	f.calls++
	if f.err != nil {
		return gjson.Result{}, f.err
	}
	return gjson.Parse(f.body), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFromCode(t *testing.T) {
	testCases := []struct {
		code int64
		want State
	}{
		{0, Clear},
		{1, Clouds},
		{2, Clouds},
		{3, Clouds},
		{45, Clouds},
		{61, Clouds},
		{95, Clouds},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, FromCode(tc.code), "code %d", tc.code)
	}
}

func TestClassify_Disabled(t *testing.T) {
	store := cache.NewMemoryStore(testLogger())
	fetcher := &fakeFetcher{body: `{"current_weather":{"weathercode":0}}`}
	c := NewClassifier(store, fetcher, "https://wx.test", false, testLogger())

	assert.Equal(t, Unknown, c.Classify(context.Background(), santiago))
	assert.Equal(t, 0, fetcher.calls)
	assert.Equal(t, 0, store.Len())
}

func TestClassify_NetworkFailure(t *testing.T) {
	store := cache.NewMemoryStore(testLogger())
	fetcher := &fakeFetcher{err: errors.New("no route to host")}
	c := NewClassifier(store, fetcher, "https://wx.test", true, testLogger())

	assert.Equal(t, Unknown, c.Classify(context.Background(), santiago))
	assert.False(t, store.Has(cache.KeyWeather))
}

func TestClassify_MalformedResponse(t *testing.T) {
	for _, body := range []string{`{}`, `{"current_weather":{"weathercode":"rain"}}`, `[]`} {
		store := cache.NewMemoryStore(testLogger())
		c := NewClassifier(store, &fakeFetcher{body: body}, "https://wx.test", true, testLogger())

		assert.Equal(t, Unknown, c.Classify(context.Background(), santiago), body)
		assert.False(t, store.Has(cache.KeyWeather), body)
	}
}

func TestClassify_CachesSuccess(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := cache.NewMemoryStore(testLogger(), cache.WithClock(func() time.Time { return now }))
	fetcher := &fakeFetcher{body: `{"current_weather":{"weathercode":3,"temperature":14.2}}`}
	c := NewClassifier(store, fetcher, "https://wx.test", true, testLogger())

	assert.Equal(t, Clouds, c.Classify(context.Background(), santiago))
	assert.Equal(t, Clouds, c.Classify(context.Background(), santiago))
	assert.Equal(t, 1, fetcher.calls)

	// Expired after an hour
	now = now.Add(cache.TTLWeather)
	fetcher.body = `{"current_weather":{"weathercode":0}}`
	assert.Equal(t, Clear, c.Classify(context.Background(), santiago))
	assert.Equal(t, 2, fetcher.calls)
}

func TestClassify_LocationChangeRefetches(t *testing.T) {
	store := cache.NewMemoryStore(testLogger())
	fetcher := &fakeFetcher{body: `{"current_weather":{"weathercode":3}}`}
	c := NewClassifier(store, fetcher, "https://wx.test", true, testLogger())

	assert.Equal(t, Clouds, c.Classify(context.Background(), santiago))

	lima := geo.Coordinates{Latitude: -12.0464, Longitude: -77.0428}
	fetcher.body = `{"current_weather":{"weathercode":0}}`
	assert.Equal(t, Clear, c.Classify(context.Background(), lima))
	assert.Equal(t, 2, fetcher.calls)

	// The record now belongs to lima
	assert.Equal(t, Clear, c.Classify(context.Background(), lima))
	assert.Equal(t, 2, fetcher.calls)
}

func TestClassify_FailureSelfHeals(t *testing.T) {
	store := cache.NewMemoryStore(testLogger())
	fetcher := &fakeFetcher{err: errors.New("timeout")}
	c := NewClassifier(store, fetcher, "https://wx.test", true, testLogger())

	assert.Equal(t, Unknown, c.Classify(context.Background(), santiago))

	fetcher.err = nil
	fetcher.body = `{"current_weather":{"weathercode":0}}`
	assert.Equal(t, Clear, c.Classify(context.Background(), santiago))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "clear", Clear.String())
	assert.Equal(t, "clouds", Clouds.String())
	assert.Equal(t, "unknown", Unknown.String())
}
