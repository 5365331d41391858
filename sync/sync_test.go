package sync

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/fuelmap-es/gasolineras-api/station"
)

type fakeFetcher struct {
	raws []station.Raw
	err  error
}

func (f *fakeFetcher) FetchStations(ctx context.Context) ([]station.Raw, error) {
	return f.raws, f.err
}

type fakeStore struct {
	live         map[string]station.Station
	history      map[string]station.Snapshot
	replaceCalls int
	geoCalls     int
	replaceErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		live:    make(map[string]station.Station),
		history: make(map[string]station.Snapshot),
	}
}

func (f *fakeStore) ReplaceDataset(ctx context.Context, batch []station.Station, snapshots []station.Snapshot, day time.Time) (int64, int64, int64, error) {
	f.replaceCalls++
	if f.replaceErr != nil {
		return 0, 0, 0, f.replaceErr
	}

	deleted := int64(len(f.live))
	f.live = make(map[string]station.Station, len(batch))
	for _, st := range batch {
		f.live[st.IDEESS] = st
	}

	dayKey := day.Format("2006-01-02")
	for key, snap := range f.history {
		if snap.Fecha.Format("2006-01-02") == dayKey {
			delete(f.history, key)
		}
	}
	for _, snap := range snapshots {
		f.history[snap.IDEESS+"|"+dayKey] = snap
	}

	return deleted, int64(len(batch)), int64(len(snapshots)), nil
}

func (f *fakeStore) EnsureGeoIndex(ctx context.Context) error {
	f.geoCalls++
	return nil
}

func testRaws() []station.Raw {
	return []station.Raw{
		{IDEESS: "100", Rotulo: "REPSOL", PrecioGasolina95E5: "1,459", Latitud: "40,4168", Longitud: "-3,7038"},
		{IDEESS: "200", Rotulo: "CEPSA", PrecioGasolina95E5: "1,50", Latitud: "41,3851", Longitud: "2,1734"},
		{IDEESS: "300", Rotulo: "BP", Latitud: "", Longitud: "-1,0"}, // missing latitude
		{IDEESS: "", Rotulo: "SIN ID", Latitud: "40,0", Longitud: "1,0"}, // missing identifier
		{IDEESS: "100", Rotulo: "REPSOL DUP", Latitud: "40,0", Longitud: "1,0"},
	}
}

func newTestOrchestrator(f Fetcher, s Store, now time.Time) *Orchestrator {
	o := New(f, s)
	o.now = func() time.Time { return now }
	return o
}

func TestSynchronize(t *testing.T) {
	store := newFakeStore()
	now := time.Date(2026, 8, 27, 14, 30, 0, 0, time.UTC)
	o := newTestOrchestrator(&fakeFetcher{raws: testRaws()}, store, now)

	res, err := o.Synchronize(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Inserted != 2 {
		t.Errorf("Inserted = %d, want 2", res.Inserted)
	}
	if res.Historical != 2 {
		t.Errorf("Historical = %d, want 2", res.Historical)
	}
	if res.SkippedNoCoordinates != 1 {
		t.Errorf("SkippedNoCoordinates = %d, want 1", res.SkippedNoCoordinates)
	}
	if res.SkippedNoID != 1 {
		t.Errorf("SkippedNoID = %d, want 1", res.SkippedNoID)
	}
	if res.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", res.Duplicates)
	}

	wantDay := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	if !res.SnapshotDate.Equal(wantDay) {
		t.Errorf("SnapshotDate = %v, want %v", res.SnapshotDate, wantDay)
	}

	st, ok := store.live["100"]
	if !ok {
		t.Fatal("station 100 missing from live dataset")
	}
	if st.Geo == nil {
		t.Error("inserted station has no geo point")
	}
	if st.Rotulo != "REPSOL" {
		t.Errorf("duplicate record overwrote the first occurrence: %q", st.Rotulo)
	}
	if store.geoCalls != 1 {
		t.Errorf("geo index ensured %d times, want 1", store.geoCalls)
	}
}

func TestSynchronizeSameDayIdempotent(t *testing.T) {
	store := newFakeStore()
	now := time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC)
	o := newTestOrchestrator(&fakeFetcher{raws: testRaws()}, store, now)

	first, err := o.Synchronize(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	liveAfterFirst := store.live

	// Second run later the same UTC day.
	o.now = func() time.Time { return now.Add(6 * time.Hour) }
	second, err := o.Synchronize(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if second.Deleted != first.Inserted {
		t.Errorf("second run deleted %d, want %d", second.Deleted, first.Inserted)
	}
	if !reflect.DeepEqual(liveAfterFirst, store.live) {
		t.Error("live dataset differs after same-day re-run")
	}
	if len(store.history) != int(first.Historical) {
		t.Errorf("history has %d rows after re-run, want %d (no duplicates)", len(store.history), first.Historical)
	}
}

func TestSynchronizeEmptyUpstream(t *testing.T) {
	store := newFakeStore()
	store.live["old"] = station.Station{IDEESS: "old"}

	o := New(&fakeFetcher{raws: []station.Raw{}}, store)
	_, err := o.Synchronize(context.Background())
	if !errors.Is(err, ErrEmptyUpstream) {
		t.Fatalf("got %v, want ErrEmptyUpstream", err)
	}
	if store.replaceCalls != 0 {
		t.Fatal("empty upstream payload must not touch the live dataset")
	}
	if len(store.live) != 1 {
		t.Fatal("live dataset changed")
	}
}

func TestSynchronizeNoInsertableRecords(t *testing.T) {
	store := newFakeStore()
	store.live["old"] = station.Station{IDEESS: "old"}

	raws := []station.Raw{
		{IDEESS: "1", Latitud: "", Longitud: ""},
		{IDEESS: "2", Latitud: "garbage", Longitud: "1,0"},
	}

	o := New(&fakeFetcher{raws: raws}, store)
	res, err := o.Synchronize(context.Background())
	if !errors.Is(err, ErrNoInsertable) {
		t.Fatalf("got %v, want ErrNoInsertable", err)
	}
	if store.replaceCalls != 0 {
		t.Fatal("no-insertable batch must abort before any destructive write")
	}
	if res.SkippedNoCoordinates != 2 {
		t.Errorf("SkippedNoCoordinates = %d, want 2", res.SkippedNoCoordinates)
	}
}

func TestSynchronizeFetchErrorPropagates(t *testing.T) {
	fetchErr := errors.New("boom")
	store := newFakeStore()

	o := New(&fakeFetcher{err: fetchErr}, store)
	_, err := o.Synchronize(context.Background())
	if !errors.Is(err, fetchErr) {
		t.Fatalf("got %v, want the fetch error", err)
	}
	if store.replaceCalls != 0 {
		t.Fatal("fetch failure must not touch the store")
	}
}

func TestSynchronizeReplaceErrorPropagates(t *testing.T) {
	storeErr := errors.New("storage down")
	store := newFakeStore()
	store.replaceErr = storeErr

	o := New(&fakeFetcher{raws: testRaws()}, store)
	_, err := o.Synchronize(context.Background())
	if !errors.Is(err, storeErr) {
		t.Fatalf("got %v, want the storage error", err)
	}
}
