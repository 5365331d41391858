package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fuelmap-es/gasolineras-api/station"
)

// ErrNotFound is returned when a lookup matches no station.
var ErrNotFound = errors.New("station not found")

// Store wraps database access helpers over a shared pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool capped at maxConns connections.
func New(ctx context.Context, databaseURL string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const stationColumns = `ideess, rotulo, municipio, provincia, direccion,
	gasolina95_e5, gasolina98_e5, gasoleo_a, gasoleo_b, gasoleo_premium, lat, lon`

func scanStation(row pgx.Row) (station.Station, error) {
	var st station.Station
	err := row.Scan(
		&st.IDEESS,
		&st.Rotulo,
		&st.Municipio,
		&st.Provincia,
		&st.Direccion,
		&st.Gasolina95E5,
		&st.Gasolina98E5,
		&st.GasoleoA,
		&st.GasoleoB,
		&st.GasoleoPremium,
		&st.Lat,
		&st.Lon,
	)
	if err != nil {
		return station.Station{}, err
	}
	st.AttachGeo()
	return st, nil
}

// ListQuery holds filters and pagination for station listings.
type ListQuery struct {
	Provincia string
	Municipio string
	PrecioMax *float64
	Skip      int
	Limit     int
}

// whereClause builds the filter clause shared by listing, counting and stats
// queries. Matching on provincia/municipio is case-insensitive substring.
func (q ListQuery) whereClause() (string, []any) {
	clause := ""
	args := []any{}
	argPos := 1

	and := func(cond string) {
		if clause == "" {
			clause = " WHERE " + cond
		} else {
			clause += " AND " + cond
		}
	}

	if q.Provincia != "" {
		and("provincia ILIKE '%' || $" + strconv.Itoa(argPos) + " || '%'")
		args = append(args, q.Provincia)
		argPos++
	}
	if q.Municipio != "" {
		and("municipio ILIKE '%' || $" + strconv.Itoa(argPos) + " || '%'")
		args = append(args, q.Municipio)
		argPos++
	}
	if q.PrecioMax != nil {
		and("gasolina95_e5 IS NOT NULL AND gasolina95_e5 <= $" + strconv.Itoa(argPos))
		args = append(args, *q.PrecioMax)
	}

	return clause, args
}

// ListStations returns one page of stations plus the total match count.
func (s *Store) ListStations(ctx context.Context, q ListQuery) ([]station.Station, int64, error) {
	clause, args := q.whereClause()

	var total int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM stations"+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	argPos := len(args) + 1
	sql := "SELECT " + stationColumns + " FROM stations" + clause +
		" ORDER BY ideess OFFSET $" + strconv.Itoa(argPos) + " LIMIT $" + strconv.Itoa(argPos+1)
	args = append(args, q.Skip, q.Limit)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	stations := make([]station.Station, 0)
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, 0, err
		}
		stations = append(stations, st)
	}
	return stations, total, rows.Err()
}

// CountStations returns the number of live station records.
func (s *Store) CountStations(ctx context.Context) (int64, error) {
	var total int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM stations").Scan(&total)
	return total, err
}

// GetStation returns the station with the given identifier, or ErrNotFound.
func (s *Store) GetStation(ctx context.Context, ideess string) (station.Station, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+stationColumns+" FROM stations WHERE ideess = $1", ideess)
	st, err := scanStation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return station.Station{}, ErrNotFound
	}
	return st, err
}

// NearbyQuery describes a proximity search around a center point.
type NearbyQuery struct {
	Lat       float64
	Lon       float64
	RadiusM   float64
	Limit     int
	ExcludeID string
}

// NearbyStation is a station annotated with its distance from the center.
type NearbyStation struct {
	station.Station
	DistanceM float64 `json:"distancia_m"`
}

const nearbySQL = `
SELECT * FROM (
    SELECT ` + stationColumns + `,
        2 * 6371000 * asin(sqrt(
            pow(sin(radians(lat - $1) / 2), 2) +
            cos(radians($1)) * cos(radians(lat)) *
            pow(sin(radians(lon - $2) / 2), 2)
        )) AS distance_m
    FROM stations
    WHERE $5 = '' OR ideess <> $5
) nearby
WHERE distance_m <= $3
ORDER BY distance_m
LIMIT $4
`

// Nearby returns stations within the radius ordered by ascending spherical
// distance, capped at the query limit.
func (s *Store) Nearby(ctx context.Context, q NearbyQuery) ([]NearbyStation, error) {
	rows, err := s.pool.Query(ctx, nearbySQL, q.Lat, q.Lon, q.RadiusM, q.Limit, q.ExcludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stations := make([]NearbyStation, 0)
	for rows.Next() {
		var st NearbyStation
		if err := rows.Scan(
			&st.IDEESS,
			&st.Rotulo,
			&st.Municipio,
			&st.Provincia,
			&st.Direccion,
			&st.Gasolina95E5,
			&st.Gasolina98E5,
			&st.GasoleoA,
			&st.GasoleoB,
			&st.GasoleoPremium,
			&st.Lat,
			&st.Lon,
			&st.DistanceM,
		); err != nil {
			return nil, err
		}
		st.AttachGeo()
		stations = append(stations, st)
	}
	return stations, rows.Err()
}

// FuelPrices collects per-fuel samples of parseable positive prices over all
// stations matching the filters. Returned keys are the canonical fuel names
// used by the statistics endpoint.
func (s *Store) FuelPrices(ctx context.Context, provincia, municipio string) (map[string][]float64, int64, error) {
	clause, args := ListQuery{Provincia: provincia, Municipio: municipio}.whereClause()

	sql := "SELECT gasolina95_e5, gasolina98_e5, gasoleo_a, gasoleo_b, gasoleo_premium FROM stations" + clause

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	samples := map[string][]float64{
		"gasolina_95":     nil,
		"gasolina_98":     nil,
		"gasoleo_a":       nil,
		"gasoleo_b":       nil,
		"gasoleo_premium": nil,
	}

	var total int64
	for rows.Next() {
		var g95, g98, ga, gb, gp *float64
		if err := rows.Scan(&g95, &g98, &ga, &gb, &gp); err != nil {
			return nil, 0, err
		}
		total++
		appendSample(samples, "gasolina_95", g95)
		appendSample(samples, "gasolina_98", g98)
		appendSample(samples, "gasoleo_a", ga)
		appendSample(samples, "gasoleo_b", gb)
		appendSample(samples, "gasoleo_premium", gp)
	}
	return samples, total, rows.Err()
}

func appendSample(samples map[string][]float64, fuel string, v *float64) {
	if v != nil && *v > 0 {
		samples[fuel] = append(samples[fuel], *v)
	}
}
