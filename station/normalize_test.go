package station

import (
	"math"
	"testing"

	geom "github.com/twpayne/go-geom"
)

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  *float64
	}{
		{"comma separator", "1,459", ptr(1.459)},
		{"dot separator", "1.459", ptr(1.459)},
		{"integer", "2", ptr(2)},
		{"surrounding whitespace", " 1,5 ", ptr(1.5)},
		{"empty", "", nil},
		{"whitespace only", "   ", nil},
		{"garbage", "abc", nil},
		{"double comma", "1,4,5", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseDecimal(tc.input)
			if (got == nil) != (tc.want == nil) {
				t.Fatalf("ParseDecimal(%q) = %v, want %v", tc.input, got, tc.want)
			}
			if got != nil && math.Abs(*got-*tc.want) > 1e-9 {
				t.Fatalf("ParseDecimal(%q) = %f, want %f", tc.input, *got, *tc.want)
			}
		})
	}
}

func TestNormalizeTrimsAndParses(t *testing.T) {
	raw := Raw{
		IDEESS:             " 12345 ",
		Rotulo:             "  REPSOL ",
		Municipio:          "MADRID",
		Provincia:          " MADRID",
		Direccion:          "CALLE MAYOR 123 ",
		PrecioGasolina95E5: "1,459",
		PrecioGasoleoA:     "",
		Latitud:            "40,4168",
		Longitud:           "-3,7038",
	}

	st := Normalize(raw)

	if st.IDEESS != "12345" {
		t.Errorf("IDEESS = %q", st.IDEESS)
	}
	if st.Rotulo != "REPSOL" {
		t.Errorf("Rotulo = %q", st.Rotulo)
	}
	if st.Direccion != "CALLE MAYOR 123" {
		t.Errorf("Direccion = %q", st.Direccion)
	}
	if st.Gasolina95E5 == nil || math.Abs(*st.Gasolina95E5-1.459) > 1e-9 {
		t.Errorf("Gasolina95E5 = %v, want 1.459", st.Gasolina95E5)
	}
	if st.GasoleoA != nil {
		t.Errorf("GasoleoA = %v, want nil for empty input", st.GasoleoA)
	}
	if st.Lat == nil || math.Abs(*st.Lat-40.4168) > 1e-9 {
		t.Errorf("Lat = %v, want 40.4168", st.Lat)
	}
	if st.Lon == nil || math.Abs(*st.Lon+3.7038) > 1e-9 {
		t.Errorf("Lon = %v, want -3.7038", st.Lon)
	}
	if !st.HasCoordinates() {
		t.Error("HasCoordinates() = false")
	}
}

func TestNormalizeRejectsOutOfRangeCoordinates(t *testing.T) {
	cases := []struct {
		name     string
		lat, lon string
	}{
		{"latitude above range", "91", "-3,7"},
		{"latitude below range", "-91", "-3,7"},
		{"longitude above range", "40,4", "181"},
		{"longitude below range", "40,4", "-181"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := Normalize(Raw{IDEESS: "1", Latitud: tc.lat, Longitud: tc.lon})
			if st.HasCoordinates() {
				t.Fatalf("expected invalid coordinates to be dropped (lat=%v lon=%v)", st.Lat, st.Lon)
			}
		})
	}
}

func TestNormalizeMissingCoordinates(t *testing.T) {
	st := Normalize(Raw{IDEESS: "1", Latitud: "40,4"})
	if st.HasCoordinates() {
		t.Fatal("HasCoordinates() = true with missing longitude")
	}
	st.AttachGeo()
	if st.Geo != nil {
		t.Fatal("AttachGeo() set a point without both coordinates")
	}
}

func TestAttachGeoBuildsLonLatPoint(t *testing.T) {
	st := Normalize(Raw{IDEESS: "1", Latitud: "40,4168", Longitud: "-3,7038"})
	st.AttachGeo()
	if st.Geo == nil {
		t.Fatal("Geo is nil")
	}
	if st.Geo.Type != "Point" {
		t.Fatalf("Geo.Type = %q, want Point", st.Geo.Type)
	}

	decoded, err := st.Geo.Decode()
	if err != nil {
		t.Fatalf("decode geometry: %v", err)
	}
	point, ok := decoded.(*geom.Point)
	if !ok {
		t.Fatalf("decoded geometry is %T, want *geom.Point", decoded)
	}
	coords := point.Coords()
	if math.Abs(coords[0]+3.7038) > 1e-9 || math.Abs(coords[1]-40.4168) > 1e-9 {
		t.Fatalf("coordinates = %v, want [-3.7038 40.4168]", coords)
	}
}

func ptr(f float64) *float64 { return &f }
