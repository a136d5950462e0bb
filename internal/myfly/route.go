package myfly

import "maps"

// ItineraryKeys are the object keys under which the route search may list
// itineraries, in the order they are checked.
var ItineraryKeys = []string{"tickets", "itineraries", "results", "routes", "options"}

// RouteShape identifies which JSON shape a route search returned.
type RouteShape int

const (
	// ShapeKeyed is an object carrying itineraries under one of ItineraryKeys
	// alongside route metadata (distance, demand, links...).
	ShapeKeyed RouteShape = iota
	// ShapeList is a bare array of itineraries with no metadata.
	ShapeList
)

// RoutePayload is the normalized route search result. Exactly one of the two
// shapes is populated; the shape is resolved once when the payload is decoded.
type RoutePayload struct {
	shape  RouteShape
	list   []any
	fields map[string]any
}

// NewKeyedRoute wraps an object-shaped route response.
func NewKeyedRoute(fields map[string]any) RoutePayload {
	if fields == nil {
		fields = map[string]any{}
	}
	return RoutePayload{shape: ShapeKeyed, fields: fields}
}

// NewListRoute wraps a bare itinerary list.
func NewListRoute(itineraries []any) RoutePayload {
	if itineraries == nil {
		itineraries = []any{}
	}
	return RoutePayload{shape: ShapeList, list: itineraries}
}

// decodeRoute resolves the shape of a decoded JSON document. Scalars and null
// become an empty keyed payload, which carries no itineraries.
func decodeRoute(v any) RoutePayload {
	switch t := v.(type) {
	case []any:
		return NewListRoute(t)
	case map[string]any:
		return NewKeyedRoute(t)
	}
	return NewKeyedRoute(nil)
}

// Shape reports which shape the payload holds.
func (r RoutePayload) Shape() RouteShape { return r.shape }

// IsList reports whether the payload is a bare itinerary list.
func (r RoutePayload) IsList() bool { return r.shape == ShapeList }

// Fields returns the object form, or nil for the list shape.
func (r RoutePayload) Fields() map[string]any {
	if r.shape == ShapeList {
		return nil
	}
	return r.fields
}

// Lookup reads route metadata. The list shape has none.
func (r RoutePayload) Lookup(keys ...string) (any, bool) {
	if r.shape == ShapeList {
		return nil, false
	}
	return Lookup(r.fields, keys...)
}

// Itineraries returns the itinerary objects: the bare list itself, or the first
// non-empty array found under ItineraryKeys. Entries that are not objects are
// dropped.
func (r RoutePayload) Itineraries() []map[string]any {
	raw := r.list
	if r.shape == ShapeKeyed {
		raw = nil
		for _, k := range ItineraryKeys {
			if l := AsList(r.fields[k]); len(l) > 0 {
				raw = l
				break
			}
		}
	}

	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m := AsMap(item); m != nil {
			out = append(out, m)
		}
	}
	return out
}

// HasItineraries is the acceptance rule of the discovery loop.
func (r RoutePayload) HasItineraries() bool {
	return len(r.Itineraries()) > 0
}

// WithResearch returns a keyed payload with research's fields merged over the
// route's. A list-shaped route is first wrapped as {"tickets": list}.
func (r RoutePayload) WithResearch(research map[string]any) RoutePayload {
	fields := make(map[string]any, len(r.fields)+len(research)+1)
	if r.shape == ShapeList {
		fields["tickets"] = r.list
	} else {
		maps.Copy(fields, r.fields)
	}
	maps.Copy(fields, research)
	return NewKeyedRoute(fields)
}
