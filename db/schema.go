package db

import "context"

// Schema for the two collections: the live dataset, replaced wholesale on
// each sync, and the per-day price history it feeds.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS stations (
		ideess          text PRIMARY KEY,
		rotulo          text NOT NULL DEFAULT '',
		municipio       text NOT NULL DEFAULT '',
		provincia       text NOT NULL DEFAULT '',
		direccion       text NOT NULL DEFAULT '',
		gasolina95_e5   double precision,
		gasolina98_e5   double precision,
		gasoleo_a       double precision,
		gasoleo_b       double precision,
		gasoleo_premium double precision,
		lat             double precision NOT NULL,
		lon             double precision NOT NULL,
		updated_at      timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS stations_provincia_idx ON stations (provincia)`,
	`CREATE INDEX IF NOT EXISTS stations_municipio_idx ON stations (municipio)`,
	`CREATE TABLE IF NOT EXISTS price_history (
		ideess          text NOT NULL,
		fecha           date NOT NULL,
		gasolina95_e5   double precision,
		gasolina98_e5   double precision,
		gasoleo_a       double precision,
		gasoleo_b       double precision,
		gasoleo_premium double precision,
		PRIMARY KEY (ideess, fecha)
	)`,
	`CREATE INDEX IF NOT EXISTS price_history_ideess_fecha_idx ON price_history (ideess, fecha DESC)`,
	`CREATE INDEX IF NOT EXISTS price_history_fecha_idx ON price_history (fecha DESC)`,
}

// EnsureSchema creates tables and indexes if missing. Safe to re-run.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// EnsureGeoIndex creates the geospatial index backing proximity queries.
// Idempotent; the orchestrator re-runs it on every sync cycle.
func (s *Store) EnsureGeoIndex(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS stations_geo_idx ON stations (lat, lon)`)
	return err
}
