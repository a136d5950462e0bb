// Package formatter renders an accepted route as the "Random Route of the Day"
// chat message.
package formatter

import (
	"math"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/neexbeast/routebot/internal/myfly"
)

const (
	dateLayout     = "02 January 2006"
	noItineraries  = "No available itineraries were returned by the API."
	unknownAirport = "Unknown Airport"
)

var printer = message.NewPrinter(language.English)

// Format renders the message dated with the current UTC day.
func Format(origin, destination myfly.Airport, route myfly.RoutePayload) string {
	return FormatOn(origin, destination, route, time.Now().UTC())
}

// FormatOn renders the message for the given reference date. The output depends
// only on its inputs.
func FormatOn(origin, destination myfly.Airport, route myfly.RoutePayload, date time.Time) string {
	blocks := [][]string{
		{
			"Random Route of the Day:  " + date.Format(dateLayout),
			"",
			airportTitle(origin) + " - " + airportTitle(destination),
		},
		summaryBlock(origin, destination, route),
		directLinksBlock(route),
	}

	if tickets := ticketsBlock(route); len(tickets) > 0 {
		blocks = append(blocks, tickets)
	} else {
		blocks = append(blocks, []string{noItineraries})
	}

	var parts []string
	for _, b := range blocks {
		if len(b) > 0 {
			parts = append(parts, strings.Join(b, "\n"))
		}
	}
	return strings.TrimRightFunc(strings.Join(parts, "\n\n"), unicode.IsSpace)
}

func airportTitle(a myfly.Airport) string {
	var pieces []string
	if name := a.Name(); name != "" {
		pieces = append(pieces, name)
	}
	if code := myfly.FirstText(a["iata"], a["IATA"], a["code"]); code != "" {
		pieces = append(pieces, "("+code+")")
	}
	if country := a.CountryCode(); country != "" {
		if flag := countryFlag(country); flag != "" {
			pieces = append(pieces, flag)
		} else {
			pieces = append(pieces, "("+country+")")
		}
	}
	if len(pieces) == 0 {
		return unknownAirport
	}
	return strings.Join(pieces, " ")
}

// countryFlag converts a two-letter country code to its regional-indicator
// pair. Anything else yields "".
func countryFlag(code string) string {
	if len(code) != 2 {
		return ""
	}
	var b strings.Builder
	for _, r := range strings.ToUpper(code) {
		if r < 'A' || r > 'Z' {
			return ""
		}
		b.WriteRune(0x1F1E6 + (r - 'A'))
	}
	return b.String()
}

// grouped renders a whole number with thousands separators. Halves round to
// even, so 2.5 renders as 2 and 3.5 as 4.
func grouped(f float64) string {
	return printer.Sprintf("%d", int64(math.RoundToEven(f)))
}
