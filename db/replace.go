package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fuelmap-es/gasolineras-api/station"
)

// ReplaceDataset swaps the live dataset and appends the day's price history
// in a single transaction: delete all live rows, bulk-insert the new batch,
// drop any history rows already written for the snapshot day, and insert the
// fresh snapshots. Running it twice on the same day yields the same live
// contents and the same history rows for that day.
//
// The transaction closes the empty-window failure mode a plain
// delete-then-insert would have: a failure at any point leaves both
// collections in their prior state.
func (s *Store) ReplaceDataset(
	ctx context.Context,
	batch []station.Station,
	snapshots []station.Snapshot,
	day time.Time,
) (deleted, inserted, historical int64, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM stations`)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("delete live dataset: %w", err)
	}
	deleted = tag.RowsAffected()

	now := time.Now().UTC()
	stationRows := make([][]any, 0, len(batch))
	for _, st := range batch {
		stationRows = append(stationRows, []any{
			st.IDEESS,
			st.Rotulo,
			st.Municipio,
			st.Provincia,
			st.Direccion,
			st.Gasolina95E5,
			st.Gasolina98E5,
			st.GasoleoA,
			st.GasoleoB,
			st.GasoleoPremium,
			st.Lat,
			st.Lon,
			now,
		})
	}

	inserted, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{"stations"},
		[]string{
			"ideess", "rotulo", "municipio", "provincia", "direccion",
			"gasolina95_e5", "gasolina98_e5", "gasoleo_a", "gasoleo_b",
			"gasoleo_premium", "lat", "lon", "updated_at",
		},
		pgx.CopyFromRows(stationRows),
	)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("insert live dataset: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM price_history WHERE fecha = $1`, day); err != nil {
		return 0, 0, 0, fmt.Errorf("delete same-day history: %w", err)
	}

	historyRows := make([][]any, 0, len(snapshots))
	for _, snap := range snapshots {
		historyRows = append(historyRows, []any{
			snap.IDEESS,
			snap.Fecha,
			snap.Gasolina95E5,
			snap.Gasolina98E5,
			snap.GasoleoA,
			snap.GasoleoB,
			snap.GasoleoPremium,
		})
	}

	historical, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{"price_history"},
		[]string{
			"ideess", "fecha", "gasolina95_e5", "gasolina98_e5",
			"gasoleo_a", "gasoleo_b", "gasoleo_premium",
		},
		pgx.CopyFromRows(historyRows),
	)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("insert history snapshots: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, 0, fmt.Errorf("commit replace: %w", err)
	}
	return deleted, inserted, historical, nil
}
