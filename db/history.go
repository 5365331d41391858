package db

import (
	"context"
	"time"

	"github.com/fuelmap-es/gasolineras-api/station"
)

const historySQL = `
SELECT ideess, fecha, gasolina95_e5, gasolina98_e5, gasoleo_a, gasoleo_b, gasoleo_premium
FROM price_history
WHERE ideess = $1 AND fecha >= $2 AND fecha <= $3
ORDER BY fecha ASC
`

// History returns the station's snapshots with date in [today-days, today],
// chronologically ascending. An empty result is not an error; "station
// unknown" is the caller's check via GetStation.
func (s *Store) History(ctx context.Context, ideess string, days int) ([]station.Snapshot, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -days)

	rows, err := s.pool.Query(ctx, historySQL, ideess, since, today)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := make([]station.Snapshot, 0)
	for rows.Next() {
		var snap station.Snapshot
		if err := rows.Scan(
			&snap.IDEESS,
			&snap.Fecha,
			&snap.Gasolina95E5,
			&snap.Gasolina98E5,
			&snap.GasoleoA,
			&snap.GasoleoB,
			&snap.GasoleoPremium,
		); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// CountHistory returns the number of historical snapshot rows.
func (s *Store) CountHistory(ctx context.Context) (int64, error) {
	var total int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM price_history").Scan(&total)
	return total, err
}
