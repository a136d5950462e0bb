package formatter

import (
	"strconv"
	"strings"

	"github.com/neexbeast/routebot/internal/myfly"
)

const (
	modeFlight = "flight"
	modeGround = "ground"
	modeTrain  = "train"

	transitType = "GENERIC_TRANSIT"
)

func formatSegment(seg map[string]any) []string {
	var from, to string
	_, hasFrom := seg["fromAirportIata"]
	_, hasTo := seg["toAirportIata"]
	if hasFrom && hasTo {
		from, to = myfly.Text(seg["fromAirportIata"]), myfly.Text(seg["toAirportIata"])
	} else {
		o, _ := myfly.Lookup(seg, "origin", "from", "departure", "start")
		d, _ := myfly.Lookup(seg, "destination", "to", "arrival", "end")
		from, to = airportCode(o), airportCode(d)
	}

	lines := []string{travelLine(segmentMode(seg), from, to)}
	if detail := detailLine(seg); detail != "" {
		lines = append(lines, detail)
	}
	return lines
}

func segmentMode(seg map[string]any) string {
	if t, ok := seg["transportType"]; ok {
		switch s := myfly.Text(t); s {
		case "FLIGHT":
			return modeFlight
		case transitType:
			return modeGround
		case "TRAIN":
			return modeTrain
		default:
			return strings.ToLower(s)
		}
	}

	mode, _ := myfly.Lookup(seg, "mode", "type", "transport")
	s, ok := mode.(string)
	if !ok {
		return modeFlight
	}
	switch normalized := strings.ToLower(strings.TrimSpace(s)); normalized {
	case "flight", "air", "plane", "aircraft":
		return modeFlight
	case "bus", "ground", "coach":
		return modeGround
	case "train", "rail":
		return modeTrain
	default:
		return normalized
	}
}

func travelLine(mode, from, to string) string {
	depart, arrive := "🛫", "🛬"
	switch mode {
	case modeGround:
		depart, arrive = "🚌", "🚌"
	case modeTrain:
		depart, arrive = "🚆", "🚆"
	}
	return depart + " " + orDefault(from, "???") + " - " + orDefault(to, "???") + " " + arrive
}

func detailLine(seg map[string]any) string {
	if _, ok := seg["airlineName"]; ok {
		return myflyDetailLine(seg)
	}
	return genericDetailLine(seg)
}

// myflyDetailLine renders the segment shape returned by the MyFly ticket search.
func myflyDetailLine(seg map[string]any) string {
	duration := formatDuration(seg["duration"])
	if myfly.Text(seg["transportType"]) == transitType {
		return "Local Transit | Duration: " + duration
	}

	var details []string
	carrier, code := myfly.Text(seg["airlineName"]), myfly.Text(seg["flightCode"])
	switch {
	case carrier != "" && code != "":
		details = append(details, carrier+" - "+code)
	case carrier != "":
		details = append(details, carrier)
	case code != "":
		details = append(details, code)
	}

	if aircraft := myfly.Text(seg["airplaneModelName"]); aircraft != "" {
		details = append(details, "| "+aircraft)
	}
	if duration != "" {
		details = append(details, "| Duration: "+duration)
	}
	if price, ok := myfly.Number(seg["price"]); ok && price > 0 {
		details = append(details, "| $"+grouped(price)+" (Economy)")
	}
	if quality, ok := myfly.Number(seg["computedQuality"]); ok && quality > 0 {
		details = append(details, "with "+myfly.FormatNumber(quality)+" quality")
	}
	if amenities := amenities(myfly.AsList(seg["features"])); len(amenities) > 0 {
		details = append(details, "including "+strings.Join(amenities, ", "))
	}

	return strings.Join(details, " ")
}

func amenities(features []any) []string {
	var out []string
	for _, f := range features {
		name := myfly.Text(f)
		switch {
		case name == "IFE":
			out = append(out, "IFE")
		case name == "WIFI":
			out = append(out, "power outlet", "wifi")
		case strings.Contains(name, "MEAL"):
			switch {
			case strings.Contains(name, "HOT"):
				out = append(out, "hot meal service")
			case strings.Contains(name, "COLD"):
				out = append(out, "cold meal service")
			default:
				out = append(out, "beverage service")
			}
		}
	}
	return out
}

// genericDetailLine renders segments from other ticket schemas.
func genericDetailLine(seg map[string]any) string {
	operator, _ := myfly.Lookup(seg, "carrier", "airline", "operator")
	operatorName, _ := myfly.Lookup(operator, "name", "code")
	carrier := myfly.FirstText(operator, operatorName)

	number, _ := myfly.Lookup(seg, "flightNumber", "number", "designator")
	flight, _ := myfly.Lookup(seg, "flight", "flightCode")
	flightNumber := myfly.FirstText(number, flightDesignator(operator, flight))

	equipment, _ := myfly.Lookup(seg, "aircraft", "equipment")
	equipmentName, _ := myfly.Lookup(equipment, "name", "code")
	aircraft := myfly.FirstText(equipment, equipmentName)

	rawDuration, _ := myfly.Lookup(seg, "duration", "travelTime", "durationMinutes")
	duration := formatDuration(rawDuration)

	var details []string
	if carrier != "" {
		details = append(details, carrier)
	}
	if flightNumber != "" {
		details = append(details, flightNumber)
	}
	if aircraft != "" {
		details = append(details, "| "+aircraft)
	}
	if duration != "" {
		details = append(details, "| Duration: "+duration)
	}
	if price, currency, ok := extractPrice(seg); ok {
		details = append(details, strings.TrimRight("| "+grouped(price)+" "+currency, " "))
	}
	if quality, ok := myfly.Lookup(seg, "quality", "productQuality"); ok {
		details = append(details, "with "+myfly.Text(quality)+" quality")
	}
	if extras := genericExtras(seg); len(extras) > 0 {
		details = append(details, "including "+strings.Join(extras, ", "))
	}

	return strings.Join(details, " ")
}

func genericExtras(seg map[string]any) []string {
	var extras []string
	flag := func(keys ...string) bool {
		v, _ := myfly.Lookup(seg, keys...)
		return myfly.Truthy(v)
	}
	if flag("ife", "inFlightEntertainment", "hasIFE") {
		extras = append(extras, "IFE")
	}
	if flag("wifi", "hasWifi") {
		extras = append(extras, "power outlet", "wifi")
	}
	if flag("meals", "hasMeal") {
		extras = append(extras, "meals")
	}
	return extras
}

func flightDesignator(carrier, flight any) string {
	code := myfly.Text(carrier)
	if m := myfly.AsMap(carrier); m != nil {
		code = myfly.FirstText(m["code"], m["iata"])
	}
	number := myfly.Text(flight)
	if code == "" || number == "" {
		return ""
	}
	return code + " " + number
}

// formatDuration renders minutes as "H hours M minutes", omitting zero units.
// The units are never singularized. Zero or missing durations render as "".
func formatDuration(v any) string {
	var minutes int
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if m := myfly.FirstTruthy(t, "minutes", "totalMinutes"); m != nil {
			minutes = myfly.Int(m)
		} else if h, ok := t["hours"]; ok && h != nil {
			minutes = 60*myfly.Int(h) + myfly.Int(t["minutes"])
		}
	default:
		if n, ok := myfly.Number(v); ok {
			minutes = int(n)
		}
	}

	if minutes == 0 {
		return ""
	}

	hours, mins := minutes/60, minutes%60
	switch {
	case hours != 0 && mins != 0:
		return strconv.Itoa(hours) + " hours " + strconv.Itoa(mins) + " minutes"
	case hours != 0:
		return strconv.Itoa(hours) + " hours"
	default:
		return strconv.Itoa(mins) + " minutes"
	}
}
