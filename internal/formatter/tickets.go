package formatter

import (
	"math"
	"sort"
	"strings"

	"github.com/neexbeast/routebot/internal/myfly"
)

const noDirectLinks = "No existing direct links"

var ticketLabels = []string{"Best Deal", "Best Seller"}

func directLinksBlock(route myfly.RoutePayload) []string {
	links, _ := route.Lookup("existingLinks", "links", "directLinks")
	list := myfly.AsList(links)
	if len(list) == 0 {
		return []string{noDirectLinks}
	}

	lines := []string{"Existing direct links:"}
	for _, link := range list {
		carrier, _ := myfly.Lookup(link, "airline", "carrier", "name")
		inner, _ := myfly.Lookup(link, "airline", "carrier")
		nested, _ := myfly.Lookup(inner, "name", "code")
		name := orDefault(myfly.FirstText(carrier, nested), "Unknown carrier")

		frequency, _ := myfly.Lookup(link, "frequency", "flightsPerWeek")
		freq := "n/a"
		if myfly.Truthy(frequency) {
			freq = orDefault(myfly.Text(frequency), "n/a")
		}
		lines = append(lines, "- "+name+" ("+freq+" per week)")
	}
	return lines
}

type rankedItinerary struct {
	data  map[string]any
	price float64
	sales float64
}

// rankItineraries orders by ascending price then descending sales score.
// Unpriced itineraries sort last; ties keep their original order.
func rankItineraries(itineraries []map[string]any) []rankedItinerary {
	ranked := make([]rankedItinerary, len(itineraries))
	for i, it := range itineraries {
		ranked[i] = rankedItinerary{data: it, price: itineraryPrice(it), sales: salesScore(it)}
	}

	sortKey := func(r rankedItinerary) float64 {
		if r.price == 0 {
			return math.Inf(1)
		}
		return r.price
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		pi, pj := sortKey(ranked[i]), sortKey(ranked[j])
		if pi != pj {
			return pi < pj
		}
		return ranked[i].sales > ranked[j].sales
	})
	return ranked
}

func ticketsBlock(route myfly.RoutePayload) []string {
	itineraries := route.Itineraries()
	if len(itineraries) == 0 {
		return nil
	}

	ranked := rankItineraries(itineraries)
	if len(ranked) > len(ticketLabels) {
		ranked = ranked[:len(ticketLabels)]
	}

	lines := []string{"Tickets", ""}
	for i, it := range ranked {
		lines = append(lines, ticketLabels[i])

		header := itineraryHeader(it.data)
		if it.price > 0 {
			header += " — $" + grouped(it.price) + " (Economy)"
		}
		lines = append(lines, header)

		for _, seg := range segments(it.data) {
			lines = append(lines, formatSegment(seg)...)
		}

		if i != len(ranked)-1 {
			lines = append(lines, "")
		}
	}
	return lines
}

// itineraryPrice sums the per-segment prices of a "route" list, falling back to
// the itinerary-level price fields.
func itineraryPrice(it map[string]any) float64 {
	total := 0.0
	for _, seg := range myfly.AsList(it["route"]) {
		if p, ok := myfly.Number(myfly.AsMap(seg)["price"]); ok {
			total += p
		}
	}
	if total > 0 {
		return total
	}
	p, _, _ := extractPrice(it)
	return p
}

// extractPrice reads an amount and optional currency from the generic price fields.
func extractPrice(data map[string]any) (float64, string, bool) {
	for _, keys := range [][]string{
		{"price", "totalPrice", "fare", "cost"},
		{"economyPrice", "economyFare"},
	} {
		candidate, ok := myfly.Lookup(data, keys...)
		if !ok {
			continue
		}
		if m := myfly.AsMap(candidate); m != nil {
			amount := myfly.FirstTruthy(m, "amount", "value", "total")
			if amount == nil {
				continue
			}
			if f, ok := myfly.Float(amount); ok {
				currency := myfly.Text(myfly.FirstTruthy(m, "currency", "currencyCode"))
				return f, currency, true
			}
			continue
		}
		if f, ok := myfly.Float(candidate); ok {
			return f, "", true
		}
	}
	return 0, "", false
}

// salesScore is the mean of a nested scoring object or a direct numeric field.
func salesScore(it map[string]any) float64 {
	for _, keys := range [][]string{
		{"sales", "bookings", "popularity", "demand"},
		{"score", "ranking"},
	} {
		candidate, ok := myfly.Lookup(it, keys...)
		if !ok {
			continue
		}
		if m := myfly.AsMap(candidate); m != nil {
			sum, n := 0.0, 0
			for _, v := range m {
				if f, ok := myfly.Number(v); ok {
					sum += f
					n++
				}
			}
			if n > 0 {
				return sum / float64(n)
			}
			continue
		}
		if f, ok := myfly.Number(candidate); ok {
			return f
		}
	}
	return 0
}

func itineraryHeader(it map[string]any) string {
	if title := myfly.FirstText(it["name"], it["summary"], it["title"]); title != "" {
		return title
	}
	if codes := routeCodes(myfly.AsList(it["route"])); len(codes) > 0 {
		return strings.Join(codes, " - ")
	}
	if stops := stopCodes(it); len(stops) > 0 {
		return strings.Join(stops, " - ")
	}
	from, _ := myfly.Lookup(it, "origin", "from")
	to, _ := myfly.Lookup(it, "destination", "to")
	if o, d := airportCode(from), airportCode(to); o != "" && d != "" {
		return o + " - " + d
	}
	return "Itinerary"
}

// routeCodes lists the unique airport codes along consecutive segment endpoints.
func routeCodes(route []any) []string {
	if len(route) == 0 {
		return nil
	}
	fromCode := func(seg any) string {
		v, _ := myfly.Lookup(seg, "fromAirportIata", "fromAirportCode")
		return myfly.Text(v)
	}
	toCode := func(seg any) string {
		v, _ := myfly.Lookup(seg, "toAirportIata", "toAirportCode")
		return myfly.Text(v)
	}
	if fromCode(route[0]) == "" || toCode(route[len(route)-1]) == "" {
		return nil
	}

	var codes []string
	seen := map[string]bool{}
	add := func(code string) {
		if code != "" && !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}
	for _, seg := range route {
		add(fromCode(seg))
		add(toCode(seg))
	}
	return codes
}

func stopCodes(it map[string]any) []string {
	var stops []string
	for _, k := range []string{"stops", "path", "codes"} {
		switch v := it[k].(type) {
		case string:
			var parts []string
			for _, p := range strings.Split(v, "-") {
				if p = strings.TrimSpace(p); p != "" {
					parts = append(parts, p)
				}
			}
			return parts
		case []any:
			for _, item := range v {
				if code := airportCode(item); code != "" {
					stops = append(stops, code)
				}
			}
		}
	}
	if len(stops) > 0 {
		return stops
	}

	segs := segments(it)
	for _, seg := range segs {
		from, _ := myfly.Lookup(seg, "origin", "from")
		if code := airportCode(from); code != "" {
			stops = append(stops, code)
		}
	}
	if len(segs) > 0 {
		to, _ := myfly.Lookup(segs[len(segs)-1], "destination", "to")
		if code := airportCode(to); code != "" {
			stops = append(stops, code)
		}
	}
	return stops
}

// segments returns the itinerary legs: the MyFly "route" list, or the first
// non-empty legacy alias.
func segments(it map[string]any) []map[string]any {
	raw, isRoute := it["route"].([]any)
	if !isRoute {
		for _, k := range []string{"segments", "legs", "hops", "flights"} {
			if l := myfly.AsList(it[k]); len(l) > 0 {
				raw = l
				break
			}
		}
	}

	out := make([]map[string]any, 0, len(raw))
	for _, s := range raw {
		if m := myfly.AsMap(s); m != nil {
			out = append(out, m)
		}
	}
	return out
}

func airportCode(v any) string {
	if m := myfly.AsMap(v); m != nil {
		return myfly.Airport(m).Code()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
