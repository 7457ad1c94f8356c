// Package enrich merges live hotel rate results with cached static hotel
// descriptors, producing a combined view model per hotel.
//
// The engine is cache-aside: each hotel's static descriptor is read from the
// cache first; misses are fetched from the vendor in small concurrent
// batches with an inter-batch pause, written back, then attached. A failed
// fetch degrades that single hotel (HasStaticInfo=false) without aborting
// the batch.
package enrich

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/hoteldesk/etg-client/pkg/cache"
	"github.com/hoteldesk/etg-client/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

var etgEnrichmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "etg_enrichments_total",
	Help: "Total per-hotel enrichment outcomes by result",
}, []string{"result"}) // "cache_hit", "fetched", "failed"

// StaticFetcher fetches a static hotel descriptor from the vendor.
// *client.Client satisfies it.
type StaticFetcher interface {
	GetHotelInformation(ctx context.Context, hotelID, language string) (*client.StaticHotel, error)
}

// StaticStore reads and writes cached static descriptors.
// *cache.Store satisfies it.
type StaticStore interface {
	GetStatic(ctx context.Context, hotelID, language string) (json.RawMessage, error)
	PutStatic(ctx context.Context, hotelID, language string, payload json.RawMessage) error
}

// Config holds enrichment batching configuration.
type Config struct {
	// BatchSize is the number of concurrent miss-fetches per batch.
	// Deliberate backpressure against upstream quotas, not a performance
	// knob.
	BatchSize int

	// BatchPause is the pause between batches.
	BatchPause time.Duration
}

// DefaultConfig returns safe defaults sized for the vendor's info quota.
func DefaultConfig() Config {
	return Config{
		BatchSize:  5,
		BatchPause: 500 * time.Millisecond,
	}
}

// EnrichedHotel is a hotel search result augmented with its static view
// model. StaticVM is attached verbatim from cache or a fresh fetch and must
// survive any further cache round trip unchanged.
type EnrichedHotel struct {
	client.HotelRates

	StaticVM      json.RawMessage `json:"static_vm,omitempty"`
	HasStaticInfo bool            `json:"has_static_info"`
}

// Enricher combines live rates with cached static hotel data.
type Enricher struct {
	fetcher StaticFetcher
	store   StaticStore
	config  Config
	logger  zerolog.Logger
	group   singleflight.Group
}

// New creates an enricher.
func New(fetcher StaticFetcher, store StaticStore, cfg Config) *Enricher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.BatchPause < 0 {
		cfg.BatchPause = 0
	}
	return &Enricher{
		fetcher: fetcher,
		store:   store,
		config:  cfg,
		logger:  log.With().Str("component", "enricher").Logger(),
	}
}

// EnrichHotels attaches static view models to every hotel in the live
// result set. The returned slice always has one element per input hotel;
// hotels whose static data could not be obtained carry HasStaticInfo=false.
func (e *Enricher) EnrichHotels(ctx context.Context, hotels []client.HotelRates, language string) []EnrichedHotel {
	start := time.Now()
	result := make([]EnrichedHotel, len(hotels))

	// Cache pass: attach what is already present and collect misses.
	var misses []int
	for i, hotel := range hotels {
		result[i] = EnrichedHotel{HotelRates: hotel}

		payload, err := e.store.GetStatic(ctx, hotel.ID, language)
		switch {
		case err == nil:
			result[i].StaticVM = payload
			result[i].HasStaticInfo = true
			etgEnrichmentsTotal.WithLabelValues("cache_hit").Inc()
		case err == cache.ErrCacheMiss:
			misses = append(misses, i)
		default:
			e.logger.Warn().Err(err).
				Str("hotel_id", hotel.ID).
				Msg("Static cache read failed - treating as miss")
			misses = append(misses, i)
		}
	}

	if len(misses) == 0 {
		return result
	}

	e.logger.Debug().
		Int("hotels", len(hotels)).
		Int("misses", len(misses)).
		Msg("Fetching static data for uncached hotels")

	// Fetch pass: bounded batches with an inter-batch pause.
	for batchStart := 0; batchStart < len(misses); batchStart += e.config.BatchSize {
		batchEnd := min(batchStart+e.config.BatchSize, len(misses))

		var wg sync.WaitGroup
		for _, idx := range misses[batchStart:batchEnd] {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				hotelID := result[idx].ID

				payload, err := e.fetchStatic(ctx, hotelID, language)
				if err != nil {
					e.logger.Warn().Err(err).
						Str("hotel_id", hotelID).
						Msg("Static fetch failed - hotel returned without enrichment")
					etgEnrichmentsTotal.WithLabelValues("failed").Inc()
					return
				}

				result[idx].StaticVM = payload
				result[idx].HasStaticInfo = true
				etgEnrichmentsTotal.WithLabelValues("fetched").Inc()
			}(idx)
		}
		wg.Wait()

		if batchEnd < len(misses) {
			select {
			case <-ctx.Done():
				e.logger.Warn().
					Int("remaining", len(misses)-batchEnd).
					Msg("Enrichment cancelled - returning partial batch")
				return result
			case <-time.After(e.config.BatchPause):
			}
		}
	}

	e.logger.Debug().
		Int("hotels", len(hotels)).
		Dur("duration", time.Since(start)).
		Msg("Enrichment complete")

	return result
}

// fetchStatic fetches and caches one hotel's static descriptor. Concurrent
// misses for the same hotel collapse into a single upstream fetch.
func (e *Enricher) fetchStatic(ctx context.Context, hotelID, language string) (json.RawMessage, error) {
	payload, err, _ := e.group.Do(hotelID+":"+language, func() (any, error) {
		hotel, err := e.fetcher.GetHotelInformation(ctx, hotelID, language)
		if err != nil {
			return nil, err
		}

		if err := e.store.PutStatic(ctx, hotelID, language, hotel.Raw); err != nil {
			// The fetched payload is still usable; only the write-back failed.
			e.logger.Warn().Err(err).
				Str("hotel_id", hotelID).
				Msg("Static cache write failed")
		}

		return hotel.Raw, nil
	})
	if err != nil {
		return nil, err
	}
	return payload.(json.RawMessage), nil
}
