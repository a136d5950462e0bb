package formatter

import (
	"strings"

	"github.com/neexbeast/routebot/internal/myfly"
)

const missing = "–"

var relationshipLabels = map[int]string{
	-2: "Very Poor",
	-1: "Poor",
	0:  "Neutral",
	1:  "Good",
	2:  "Very Good",
}

func summaryBlock(origin, destination myfly.Airport, route myfly.RoutePayload) []string {
	var lines []string

	if km, ok := directDistance(route); ok && km != 0 {
		lines = append(lines, "Distance (direct): "+grouped(km)+" km")
	}

	if runway := runwayLimit(destination); runway != "" {
		lines = append(lines, "Runway Restriction: "+runway+" ("+destination.Code()+")")
	}

	popOrigin, popDest := population(origin), population(destination)
	if popOrigin != "" || popDest != "" {
		lines = append(lines, "Population: "+orDefault(popOrigin, "Unknown")+" / "+orDefault(popDest, "Unknown"))
	}

	incOrigin, okOrigin := incomePPP(origin)
	incDest, okDest := incomePPP(destination)
	if okOrigin || okDest {
		lines = append(lines, "Income per Capita, PPP: "+money(incOrigin)+" / "+money(incDest))
	}

	if rel, ok := route.Lookup("relationship", "relationshipBetweenCountries"); ok {
		lines = append(lines, "Relationship between Countries: "+relationship(rel))
	}

	if aff, ok := route.Lookup("affinities", "affinity"); ok {
		if text := myfly.Text(aff); text != "" {
			lines = append(lines, "Affinities: "+text)
		}
	}

	if origin.CountryCode() != destination.CountryCode() {
		lines = append(lines, "Flight Type: International")
	} else {
		lines = append(lines, "Flight Type: Domestic")
	}

	if demand := directDemand(route); demand != "" {
		lines = append(lines, "Direct Demand: "+demand)
	}

	return lines
}

func directDistance(route myfly.RoutePayload) (float64, bool) {
	distance, ok := route.Lookup("distance", "distances", "distanceKm")
	if !ok {
		return 0, false
	}
	if km, ok := myfly.Number(distance); ok {
		return km, true
	}
	direct, _ := myfly.Lookup(distance, "direct", "directKm", "directDistanceKm", "km")
	return myfly.Number(direct)
}

// runwayLimit prefers the longest entry of a runway list over the legacy
// scalar fields.
func runwayLimit(a myfly.Airport) string {
	runways, _ := myfly.Lookup(a, "runways", "runway", "Runways")
	longest := 0
	for _, r := range myfly.AsList(runways) {
		m := myfly.AsMap(r)
		if m == nil {
			continue
		}
		if length := myfly.Int(myfly.FirstTruthy(m, "length", "lengthMeters", "meters")); length > longest {
			longest = length
		}
	}
	if longest > 0 {
		return grouped(float64(longest)) + "m"
	}

	legacy, ok := myfly.Lookup(a, "runwayLimit", "runwayRestriction", "maxRunwayLength", "maxRunway", "longestRunway")
	if !ok {
		return ""
	}
	if m := myfly.AsMap(legacy); m != nil {
		length, ok := myfly.Float(myfly.FirstTruthy(m, "length", "meters", "m"))
		if !ok {
			return ""
		}
		return grouped(float64(int64(length))) + "m"
	}
	if n, ok := myfly.Number(legacy); ok {
		return grouped(float64(int64(n))) + "m"
	}
	if s, ok := legacy.(string); ok {
		return s
	}
	return ""
}

// population prefers the nested catchment object over flat fields.
func population(a myfly.Airport) string {
	catchment, _ := myfly.Lookup(a, "catchment", "catchmentArea", "populationCatchment")
	if m := myfly.AsMap(catchment); m != nil {
		if n, ok := myfly.Number(myfly.FirstTruthy(m, "population", "total")); ok {
			return grouped(float64(int64(n)))
		}
	}

	flat, _ := myfly.Lookup(a, "population", "catchmentPopulation", "metroPopulation", "populationCatchment")
	if n, ok := myfly.Number(flat); ok {
		return grouped(float64(int64(n)))
	}
	return ""
}

func incomePPP(a myfly.Airport) (float64, bool) {
	catchment, _ := myfly.Lookup(a, "catchment", "catchmentArea")
	m := myfly.AsMap(catchment)
	if m == nil {
		return 0, false
	}
	income := m["incomePerCapitaPPP"]
	if !myfly.Truthy(income) {
		income = m["incomePPP"]
	}
	if income == nil {
		return 0, false
	}
	return myfly.Float(income)
}

func money(f float64) string {
	if f == 0 {
		return missing
	}
	return "$" + grouped(f)
}

func relationship(v any) string {
	raw := myfly.Text(v)
	if raw == "" {
		raw = "None"
	}
	label := raw
	if n, ok := myfly.Number(v); ok && n == float64(int(n)) {
		if l, ok := relationshipLabels[int(n)]; ok {
			label = l
		}
	}
	return raw + " (" + label + ")"
}

func directDemand(route myfly.RoutePayload) string {
	demand, ok := route.Lookup("directDemand", "demand", "demandProfile")
	if !ok {
		return ""
	}

	if m := myfly.AsMap(demand); m != nil {
		eco, _ := myfly.Lookup(m, "economy", "eco", "Y")
		bus, _ := myfly.Lookup(m, "business", "C")
		first, _ := myfly.Lookup(m, "first", "F")
		return strings.Join([]string{demandValue(eco), demandValue(bus), demandValue(first)}, " / ")
	}

	if l := myfly.AsList(demand); len(l) > 0 {
		values := make([]string, len(l))
		for i, v := range l {
			values[i] = demandValue(v)
		}
		return strings.Join(values, " / ")
	}
	return ""
}

func demandValue(v any) string {
	if n, ok := myfly.Number(v); ok {
		return myfly.FormatNumber(float64(int64(n)))
	}
	return missing
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
