// Package sync coordinates one full synchronization cycle against the
// government fuel-price feed: fetch, normalize, geo-tag, replace the live
// dataset and append the day's deduplicated price snapshots.
package sync

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/fuelmap-es/gasolineras-api/metrics"
	"github.com/fuelmap-es/gasolineras-api/station"
)

var (
	// ErrEmptyUpstream is returned when the feed yields zero records. The
	// cycle aborts before any write so an upstream outage cannot wipe the
	// live dataset.
	ErrEmptyUpstream = errors.New("upstream returned no records")

	// ErrNoInsertable is returned when every record was filtered out after
	// normalization. Also raised before any destructive write.
	ErrNoInsertable = errors.New("no insertable records after normalization")
)

// Fetcher retrieves raw records from the upstream feed.
type Fetcher interface {
	FetchStations(ctx context.Context) ([]station.Raw, error)
}

// Store is the write-side storage surface the orchestrator owns.
type Store interface {
	ReplaceDataset(ctx context.Context, batch []station.Station, snapshots []station.Snapshot, day time.Time) (deleted, inserted, historical int64, err error)
	EnsureGeoIndex(ctx context.Context) error
}

// Result reports the counts of one completed cycle.
type Result struct {
	Deleted              int64     `json:"registros_eliminados"`
	Inserted             int64     `json:"registros_insertados"`
	Historical           int64     `json:"registros_historicos"`
	SnapshotDate         time.Time `json:"fecha"`
	SkippedNoID          int       `json:"descartados_sin_id"`
	SkippedNoCoordinates int       `json:"descartados_sin_coordenadas"`
	Duplicates           int       `json:"descartados_duplicados"`
}

// Orchestrator runs sync cycles. It exclusively owns write access to both
// collections; concurrent invocations are not mutually excluded (sync is
// assumed to be triggered at low frequency by a single operator/scheduler).
type Orchestrator struct {
	fetcher Fetcher
	store   Store
	now     func() time.Time
}

// New creates an Orchestrator.
func New(fetcher Fetcher, store Store) *Orchestrator {
	return &Orchestrator{
		fetcher: fetcher,
		store:   store,
		now:     time.Now,
	}
}

// Synchronize performs one full cycle and returns counts, or fails leaving
// both collections untouched.
func (o *Orchestrator) Synchronize(ctx context.Context) (Result, error) {
	started := o.now()
	res, err := o.run(ctx)
	metrics.ObserveSync(err, res.Inserted, o.now().Sub(started))
	return res, err
}

func (o *Orchestrator) run(ctx context.Context) (Result, error) {
	raws, err := o.fetcher.FetchStations(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(raws) == 0 {
		return Result{}, ErrEmptyUpstream
	}
	log.Printf("sync: fetched %d raw records", len(raws))

	day := snapshotDay(o.now())
	res := Result{SnapshotDate: day}

	batch := make([]station.Station, 0, len(raws))
	snapshots := make([]station.Snapshot, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))

	for _, raw := range raws {
		st := station.Normalize(raw)
		if st.IDEESS == "" {
			res.SkippedNoID++
			continue
		}
		if !st.HasCoordinates() {
			res.SkippedNoCoordinates++
			continue
		}
		if _, dup := seen[st.IDEESS]; dup {
			res.Duplicates++
			continue
		}
		seen[st.IDEESS] = struct{}{}

		st.AttachGeo()
		batch = append(batch, st)
		snapshots = append(snapshots, st.PriceSnapshot(day))
	}

	// Refuse to replace the live dataset with nothing: a parsing regression
	// must not silently empty the store.
	if len(batch) == 0 {
		return res, ErrNoInsertable
	}

	deleted, inserted, historical, err := o.store.ReplaceDataset(ctx, batch, snapshots, day)
	if err != nil {
		return res, err
	}
	res.Deleted = deleted
	res.Inserted = inserted
	res.Historical = historical

	if err := o.store.EnsureGeoIndex(ctx); err != nil {
		return res, err
	}

	log.Printf("sync: replaced live dataset (deleted=%d inserted=%d historical=%d skipped_no_coords=%d skipped_no_id=%d duplicates=%d)",
		res.Deleted, res.Inserted, res.Historical, res.SkippedNoCoordinates, res.SkippedNoID, res.Duplicates)
	return res, nil
}

// snapshotDay truncates to the UTC calendar day of the run.
func snapshotDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
