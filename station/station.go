package station

import (
	"time"

	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Raw mirrors one record of the government fuel-price feed. Every value
// arrives as a string; prices use comma as decimal separator and the
// longitude lives under a differently named key than the latitude.
type Raw struct {
	IDEESS               string `json:"IDEESS"`
	Rotulo               string `json:"Rótulo"`
	Municipio            string `json:"Municipio"`
	Provincia            string `json:"Provincia"`
	Direccion            string `json:"Dirección"`
	PrecioGasolina95E5   string `json:"Precio Gasolina 95 E5"`
	PrecioGasolina98E5   string `json:"Precio Gasolina 98 E5"`
	PrecioGasoleoA       string `json:"Precio Gasoleo A"`
	PrecioGasoleoB       string `json:"Precio Gasoleo B"`
	PrecioGasoleoPremium string `json:"Precio Gasoleo Premium"`
	Latitud              string `json:"Latitud"`
	Longitud             string `json:"Longitud (WGS84)"`
}

// Station is the normalized record. Nil prices mean "not sold / not
// reported", never "free". Coordinates stay nullable here; whether a
// record without them is persisted is the orchestrator's call.
type Station struct {
	IDEESS         string            `json:"IDEESS"`
	Rotulo         string            `json:"rotulo"`
	Municipio      string            `json:"municipio"`
	Provincia      string            `json:"provincia"`
	Direccion      string            `json:"direccion"`
	Gasolina95E5   *float64          `json:"gasolina_95_e5"`
	Gasolina98E5   *float64          `json:"gasolina_98_e5"`
	GasoleoA       *float64          `json:"gasoleo_a"`
	GasoleoB       *float64          `json:"gasoleo_b"`
	GasoleoPremium *float64          `json:"gasoleo_premium"`
	Lat            *float64          `json:"lat,omitempty"`
	Lon            *float64          `json:"lon,omitempty"`
	Geo            *geojson.Geometry `json:"geo,omitempty"`
}

// Snapshot is one immutable per-day, per-station price record.
type Snapshot struct {
	IDEESS         string    `json:"IDEESS"`
	Fecha          time.Time `json:"fecha"`
	Gasolina95E5   *float64  `json:"gasolina_95_e5"`
	Gasolina98E5   *float64  `json:"gasolina_98_e5"`
	GasoleoA       *float64  `json:"gasoleo_a"`
	GasoleoB       *float64  `json:"gasoleo_b"`
	GasoleoPremium *float64  `json:"gasoleo_premium"`
}

// HasCoordinates reports whether both coordinates resolved to valid values.
func (s *Station) HasCoordinates() bool {
	return s.Lat != nil && s.Lon != nil
}

// AttachGeo derives the GeoJSON point ([lon, lat]) when both coordinates
// are present. Records without coordinates keep a nil Geo.
func (s *Station) AttachGeo() {
	if !s.HasCoordinates() {
		return
	}
	p := geom.NewPointFlat(geom.XY, []float64{*s.Lon, *s.Lat})
	if g, err := geojson.Encode(p); err == nil {
		s.Geo = g
	}
}

// PriceSnapshot projects the station's prices onto the given calendar day.
func (s *Station) PriceSnapshot(day time.Time) Snapshot {
	return Snapshot{
		IDEESS:         s.IDEESS,
		Fecha:          day,
		Gasolina95E5:   s.Gasolina95E5,
		Gasolina98E5:   s.Gasolina98E5,
		GasoleoA:       s.GasoleoA,
		GasoleoB:       s.GasoleoB,
		GasoleoPremium: s.GasoleoPremium,
	}
}
