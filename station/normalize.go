package station

import (
	"strconv"
	"strings"
)

// ParseDecimal converts a locale-formatted numeric string ("1,459") into a
// float. Empty or absent input yields nil, and so does anything that still
// fails to parse after swapping the comma; this function never errors.
func ParseDecimal(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return nil
	}
	return &f
}

// parseCoordinate parses like ParseDecimal but additionally rejects values
// outside the given WGS84 range.
func parseCoordinate(s string, min, max float64) *float64 {
	v := ParseDecimal(s)
	if v == nil {
		return nil
	}
	if *v < min || *v > max {
		return nil
	}
	return v
}

// Normalize converts a raw feed record into a typed station. Per-field
// failures surface as nil fields, never as an error; inclusion policy for
// records missing coordinates lives in the sync orchestrator.
func Normalize(raw Raw) Station {
	return Station{
		IDEESS:         strings.TrimSpace(raw.IDEESS),
		Rotulo:         strings.TrimSpace(raw.Rotulo),
		Municipio:      strings.TrimSpace(raw.Municipio),
		Provincia:      strings.TrimSpace(raw.Provincia),
		Direccion:      strings.TrimSpace(raw.Direccion),
		Gasolina95E5:   ParseDecimal(raw.PrecioGasolina95E5),
		Gasolina98E5:   ParseDecimal(raw.PrecioGasolina98E5),
		GasoleoA:       ParseDecimal(raw.PrecioGasoleoA),
		GasoleoB:       ParseDecimal(raw.PrecioGasoleoB),
		GasoleoPremium: ParseDecimal(raw.PrecioGasoleoPremium),
		Lat:            parseCoordinate(raw.Latitud, -90, 90),
		Lon:            parseCoordinate(raw.Longitud, -180, 180),
	}
}
