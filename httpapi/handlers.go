package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/fuelmap-es/gasolineras-api/db"
	"github.com/fuelmap-es/gasolineras-api/minetur"
	"github.com/fuelmap-es/gasolineras-api/stats"
	syncpkg "github.com/fuelmap-es/gasolineras-api/sync"
)

var validate = validator.New()

const (
	defaultNearbyKm  = 5.0
	maxNearbyResults = 200
	maxHistoryDays   = 365
)

// handleList returns stations matching the optional filters, paginated.
// GET /api/gasolineras?provincia=&municipio=&precio_max=&skip=&limit=
func (s *Server) handleList(c *gin.Context) {
	q := db.ListQuery{
		Provincia: c.Query("provincia"),
		Municipio: c.Query("municipio"),
		Skip:      0,
		Limit:     s.cfg.DefaultLimit,
	}

	if v := c.Query("precio_max"); v != "" {
		max, err := strconv.ParseFloat(v, 64)
		if err != nil || max <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid precio_max"})
			return
		}
		q.PrecioMax = &max
	}
	if v := c.Query("skip"); v != "" {
		skip, err := strconv.Atoi(v)
		if err != nil || skip < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid skip"})
			return
		}
		q.Skip = skip
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		q.Limit = limit
	}
	if q.Limit > s.cfg.MaxLimit {
		q.Limit = s.cfg.MaxLimit
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	stations, total, err := s.store.ListStations(ctx, q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":       total,
		"skip":        q.Skip,
		"limit":       q.Limit,
		"count":       len(stations),
		"gasolineras": stations,
	})
}

// handleCount returns the total number of live stations.
// GET /api/gasolineras/count
func (s *Server) handleCount(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	total, err := s.store.CountStations(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total})
}

// handleGet returns one station by its identifier.
// GET /api/gasolineras/:ideess
func (s *Server) handleGet(c *gin.Context) {
	ideess := c.Param("ideess")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	st, err := s.store.GetStation(ctx, ideess)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "gasolinera no encontrada"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

// nearbyParams is validated with the ranges proximity search accepts.
type nearbyParams struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lon float64 `validate:"gte=-180,lte=180"`
	Km  float64 `validate:"gt=0,lte=500"`
}

func parseKm(c *gin.Context) (float64, error) {
	v := c.Query("km")
	if v == "" {
		return defaultNearbyKm, nil
	}
	km, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.New("invalid km")
	}
	return km, nil
}

// handleNearby returns stations within km of an explicit center, nearest
// first. GET /api/gasolineras/cerca?lat=&lon=&km=
func (s *Server) handleNearby(c *gin.Context) {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon are required"})
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lat"})
		return
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lon"})
		return
	}
	km, err := parseKm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := nearbyParams{Lat: lat, Lon: lon, Km: km}
	if err := validate.Struct(params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.respondNearby(c, db.NearbyQuery{
		Lat:     params.Lat,
		Lon:     params.Lon,
		RadiusM: params.Km * 1000,
		Limit:   maxNearbyResults,
	})
}

// handleNearbySelf returns stations near an existing station, excluding it.
// GET /api/gasolineras/:ideess/cerca?km=
func (s *Server) handleNearbySelf(c *gin.Context) {
	ideess := c.Param("ideess")

	km, err := parseKm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	st, err := s.store.GetStation(ctx, ideess)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "gasolinera no encontrada"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !st.HasCoordinates() {
		c.JSON(http.StatusNotFound, gin.H{"error": "gasolinera sin coordenadas"})
		return
	}

	params := nearbyParams{Lat: *st.Lat, Lon: *st.Lon, Km: km}
	if err := validate.Struct(params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.respondNearby(c, db.NearbyQuery{
		Lat:       params.Lat,
		Lon:       params.Lon,
		RadiusM:   params.Km * 1000,
		Limit:     maxNearbyResults,
		ExcludeID: ideess,
	})
}

func (s *Server) respondNearby(c *gin.Context, q db.NearbyQuery) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	stations, err := s.store.Nearby(ctx, q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":       len(stations),
		"gasolineras": stations,
	})
}

// fuel names in the order the statistics endpoint reports them.
var fuelNames = []string{"gasolina_95", "gasolina_98", "gasoleo_a", "gasoleo_b", "gasoleo_premium"}

// handleStatistics returns per-fuel price statistics over matching stations.
// Fuel types with zero parseable positive samples are omitted.
// GET /api/gasolineras/estadisticas?provincia=&municipio=
func (s *Server) handleStatistics(c *gin.Context) {
	provincia := c.Query("provincia")
	municipio := c.Query("municipio")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	samples, total, err := s.store.FuelPrices(ctx, provincia, municipio)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	combustibles := gin.H{}
	for _, fuel := range fuelNames {
		if summary, ok := stats.Summarize(samples[fuel]); ok {
			combustibles[fuel] = summary
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"total_gasolineras": total,
		"filtros": gin.H{
			"provincia": nullableString(provincia),
			"municipio": nullableString(municipio),
		},
		"combustibles": combustibles,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// handleHistory returns the station's price snapshots within the day window,
// ascending. An unknown station is 404; a known station with no rows in the
// window is 200 with an empty series.
// GET /api/gasolineras/:ideess/historial?dias=
func (s *Server) handleHistory(c *gin.Context) {
	ideess := c.Param("ideess")

	days := s.cfg.DefaultDays
	if v := c.Query("dias"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxHistoryDays {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dias"})
			return
		}
		days = n
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if _, err := s.store.GetStation(ctx, ideess); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "gasolinera no encontrada"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	snapshots, err := s.store.History(ctx, ideess, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"IDEESS":    ideess,
		"dias":      days,
		"registros": len(snapshots),
		"historial": snapshots,
	})
}

// handleSync triggers one synchronization cycle. Upstream unavailability is
// reported as 503, internal processing failure as 500.
// POST /api/gasolineras/sync
func (s *Server) handleSync(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Minute)
	defer cancel()

	res, err := s.syncer.Synchronize(ctx)
	if err != nil {
		if upstreamUnavailable(err) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "no se pudieron obtener datos de la API del gobierno: " + err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"mensaje":                "datos sincronizados correctamente",
		"registros_eliminados":   res.Deleted,
		"registros_insertados":   res.Inserted,
		"registros_historicos":   res.Historical,
		"fecha":                  res.SnapshotDate.Format("2006-01-02"),
		"descartados_sin_coords": res.SkippedNoCoordinates,
	})
}

func upstreamUnavailable(err error) bool {
	return errors.Is(err, syncpkg.ErrEmptyUpstream) ||
		errors.Is(err, minetur.ErrTimeout) ||
		errors.Is(err, minetur.ErrConnection) ||
		errors.Is(err, minetur.ErrHTTPStatus) ||
		errors.Is(err, minetur.ErrParse)
}
