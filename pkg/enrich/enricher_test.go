package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hoteldesk/etg-client/pkg/cache"
	"github.com/hoteldesk/etg-client/pkg/client"
)

// fakeStore is an in-memory StaticStore.
type fakeStore struct {
	mu      sync.Mutex
	entries map[string]json.RawMessage
	getErr  error
	putErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]json.RawMessage)}
}

func (s *fakeStore) GetStatic(ctx context.Context, hotelID, language string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	payload, ok := s.entries[hotelID+":"+language]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return payload, nil
}

func (s *fakeStore) PutStatic(ctx context.Context, hotelID, language string, payload json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.entries[hotelID+":"+language] = payload
	return nil
}

// fakeFetcher is a scriptable StaticFetcher.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   map[string]int
	failIDs map[string]bool
}

func newFakeFetcher(failIDs ...string) *fakeFetcher {
	failing := make(map[string]bool, len(failIDs))
	for _, id := range failIDs {
		failing[id] = true
	}
	return &fakeFetcher{calls: make(map[string]int), failIDs: failing}
}

func (f *fakeFetcher) GetHotelInformation(ctx context.Context, hotelID, language string) (*client.StaticHotel, error) {
	f.mu.Lock()
	f.calls[hotelID]++
	f.mu.Unlock()

	if f.failIDs[hotelID] {
		return nil, errors.New("upstream unavailable")
	}

	raw := json.RawMessage(fmt.Sprintf(`{"id":%q,"name":"Hotel %s","amenities":["wifi"]}`, hotelID, hotelID))
	return &client.StaticHotel{ID: hotelID, Name: "Hotel " + hotelID, Raw: raw}, nil
}

func (f *fakeFetcher) callCount(hotelID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[hotelID]
}

func hotels(ids ...string) []client.HotelRates {
	out := make([]client.HotelRates, 0, len(ids))
	for _, id := range ids {
		out = append(out, client.HotelRates{
			ID:    id,
			Rates: []client.Rate{{MatchHash: "m-" + id}},
		})
	}
	return out
}

func TestEnrichHotels_CacheHit(t *testing.T) {
	store := newFakeStore()
	store.entries["h1:en"] = json.RawMessage(`{"id":"h1","name":"Cached Hotel"}`)
	fetcher := newFakeFetcher()
	e := New(fetcher, store, DefaultConfig())

	result := e.EnrichHotels(context.Background(), hotels("h1"), "en")

	if len(result) != 1 {
		t.Fatalf("got %d hotels, want 1", len(result))
	}
	if !result[0].HasStaticInfo {
		t.Error("HasStaticInfo = false for cached hotel")
	}
	if string(result[0].StaticVM) != `{"id":"h1","name":"Cached Hotel"}` {
		t.Errorf("StaticVM = %s, want cached payload unchanged", result[0].StaticVM)
	}
	if n := fetcher.callCount("h1"); n != 0 {
		t.Errorf("fetcher called %d times on cache hit, want 0", n)
	}
}

func TestEnrichHotels_MissFetchesAndCaches(t *testing.T) {
	store := newFakeStore()
	fetcher := newFakeFetcher()
	e := New(fetcher, store, DefaultConfig())

	result := e.EnrichHotels(context.Background(), hotels("h1"), "en")

	if !result[0].HasStaticInfo {
		t.Fatal("HasStaticInfo = false after successful fetch")
	}
	if n := fetcher.callCount("h1"); n != 1 {
		t.Errorf("fetcher called %d times, want 1", n)
	}

	// Written back: a second enrichment is served from cache.
	result = e.EnrichHotels(context.Background(), hotels("h1"), "en")
	if !result[0].HasStaticInfo {
		t.Fatal("second enrichment lost static info")
	}
	if n := fetcher.callCount("h1"); n != 1 {
		t.Errorf("fetcher called %d times after cached re-read, want still 1", n)
	}
}

func TestEnrichHotels_PartialFailureDegrades(t *testing.T) {
	store := newFakeStore()
	fetcher := newFakeFetcher("h2", "h4") // 2 of 5 fail
	e := New(fetcher, store, Config{BatchSize: 5, BatchPause: 0})

	result := e.EnrichHotels(context.Background(), hotels("h1", "h2", "h3", "h4", "h5"), "en")

	if len(result) != 5 {
		t.Fatalf("got %d hotels, want all 5 despite failures", len(result))
	}

	wantStatic := map[string]bool{"h1": true, "h2": false, "h3": true, "h4": false, "h5": true}
	for _, h := range result {
		if h.HasStaticInfo != wantStatic[h.ID] {
			t.Errorf("hotel %s: HasStaticInfo = %v, want %v", h.ID, h.HasStaticInfo, wantStatic[h.ID])
		}
		if wantStatic[h.ID] && len(h.StaticVM) == 0 {
			t.Errorf("hotel %s: static payload missing", h.ID)
		}
		if !wantStatic[h.ID] && len(h.StaticVM) != 0 {
			t.Errorf("hotel %s: failed fetch still attached a payload", h.ID)
		}
	}
}

func TestEnrichHotels_StoreErrorTreatedAsMiss(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("redis: connection pool timeout")
	fetcher := newFakeFetcher()
	e := New(fetcher, store, Config{BatchSize: 5, BatchPause: 0})

	result := e.EnrichHotels(context.Background(), hotels("h1"), "en")

	// Cache backend failure degrades to a fetch, not a dropped hotel.
	if !result[0].HasStaticInfo {
		t.Error("store failure dropped enrichment instead of falling back to fetch")
	}
}

func TestEnrichHotels_WriteBackFailureStillAttaches(t *testing.T) {
	store := newFakeStore()
	store.putErr = errors.New("redis: readonly replica")
	fetcher := newFakeFetcher()
	e := New(fetcher, store, Config{BatchSize: 5, BatchPause: 0})

	result := e.EnrichHotels(context.Background(), hotels("h1"), "en")
	if !result[0].HasStaticInfo {
		t.Error("write-back failure dropped an already fetched payload")
	}
}

func TestEnrichHotels_BatchPauseBetweenBatches(t *testing.T) {
	store := newFakeStore()
	fetcher := newFakeFetcher()
	e := New(fetcher, store, Config{BatchSize: 2, BatchPause: 60 * time.Millisecond})

	start := time.Now()
	result := e.EnrichHotels(context.Background(), hotels("h1", "h2", "h3", "h4", "h5"), "en")
	elapsed := time.Since(start)

	if len(result) != 5 {
		t.Fatalf("got %d hotels, want 5", len(result))
	}
	// 3 batches → 2 pauses.
	if elapsed < 100*time.Millisecond {
		t.Errorf("enrichment took %v, expected inter-batch pauses", elapsed)
	}
}

func TestEnrichHotels_CancellationReturnsPartial(t *testing.T) {
	store := newFakeStore()
	fetcher := newFakeFetcher()
	e := New(fetcher, store, Config{BatchSize: 1, BatchPause: 10 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	done := make(chan []EnrichedHotel, 1)
	go func() {
		done <- e.EnrichHotels(ctx, hotels("h1", "h2", "h3"), "en")
	}()

	select {
	case result := <-done:
		if len(result) != 3 {
			t.Fatalf("got %d hotels, want 3 (partial enrichment keeps all hotels)", len(result))
		}
		if !result[0].HasStaticInfo {
			t.Error("first hotel should be enriched before cancellation")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("enrichment did not return after cancellation")
	}
}
