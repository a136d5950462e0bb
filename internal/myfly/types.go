package myfly

import "maps"

// Airport is a loosely typed airport record as returned by the MyFly API.
// The upstream schema is undocumented, so fields are read through Lookup.
type Airport map[string]any

// ID returns the numeric airport id, or 0 when absent or malformed.
func (a Airport) ID() int {
	return Int(a["id"])
}

// Size returns the airport size used to filter candidates.
func (a Airport) Size() int {
	v, _ := Lookup(a, "size", "Scale", "airportSize")
	return Int(v)
}

// Name returns the display name.
func (a Airport) Name() string {
	return FirstText(a["name"], a["Name"])
}

// Code returns the IATA code, falling back to ICAO.
func (a Airport) Code() string {
	return FirstText(a["iata"], a["IATA"], a["code"], a["icao"], a["ICAO"])
}

// CountryCode returns the country code from either a flat field or a nested
// country object.
func (a Airport) CountryCode() string {
	country, ok := Lookup(a, "country", "nation", "countryCode")
	if !ok {
		return ""
	}
	if m := AsMap(country); m != nil {
		return FirstText(m["code"], m["iso2"], m["name"])
	}
	if s, ok := country.(string); ok {
		return s
	}
	return ""
}

// Display is the short form used in log lines.
func (a Airport) Display() string {
	code := FirstText(a["iata"], a["IATA"], a["code"])
	name := a.Name()
	switch {
	case code != "" && name != "":
		return code + " (" + name + ")"
	case name != "":
		return name
	case code != "":
		return code
	}
	return "<unknown airport>"
}

// Enrich returns a new record with detail's fields layered over a's.
// Neither input is modified.
func (a Airport) Enrich(detail Airport) Airport {
	merged := make(Airport, len(a)+len(detail))
	maps.Copy(merged, a)
	maps.Copy(merged, detail)
	return merged
}

// Clone returns a shallow copy of a.
func (a Airport) Clone() Airport {
	return maps.Clone(a)
}
