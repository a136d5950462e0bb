package myfly_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/routebot/internal/myfly"
)

func TestLookup(t *testing.T) {
	m := map[string]any{"Size": 4, "runway": nil, "Name": "Heathrow"}

	v, ok := myfly.Lookup(m, "size", "Scale")
	require.True(t, ok)
	assert.Equal(t, 4, v)

	_, ok = myfly.Lookup(m, "runway", "Runway")
	assert.False(t, ok, "an exact key holding null ends the search")

	_, ok = myfly.Lookup(m, "missing")
	assert.False(t, ok)

	_, ok = myfly.Lookup("not a map", "size")
	assert.False(t, ok)
}

func TestLookup_PrefersExactKeyOrder(t *testing.T) {
	m := map[string]any{"iata": "LHR", "code": "EGLL"}
	v, ok := myfly.Lookup(m, "code", "iata")
	require.True(t, ok)
	assert.Equal(t, "EGLL", v)
}

func TestAirport_Accessors(t *testing.T) {
	a := myfly.Airport{
		"id":      float64(12),
		"name":    "Heathrow",
		"iata":    "LHR",
		"country": map[string]any{"code": "GB"},
	}
	assert.Equal(t, 12, a.ID())
	assert.Equal(t, "Heathrow", a.Name())
	assert.Equal(t, "LHR", a.Code())
	assert.Equal(t, "GB", a.CountryCode())
	assert.Equal(t, "LHR (Heathrow)", a.Display())

	assert.Equal(t, 0, myfly.Airport{"id": "abc"}.ID())
	assert.Equal(t, "FR", myfly.Airport{"countryCode": "FR"}.CountryCode())
	assert.Equal(t, "<unknown airport>", myfly.Airport{}.Display())
}

func TestAirport_EnrichReturnsNewRecord(t *testing.T) {
	base := myfly.Airport{"id": 1, "name": "Old", "size": 3}
	detail := myfly.Airport{"name": "New", "runways": []any{}}

	merged := base.Enrich(detail)

	assert.Equal(t, "New", merged.Name())
	assert.Equal(t, 3, merged.Size())
	assert.Contains(t, merged, "runways")
	assert.Equal(t, "Old", base.Name(), "input is untouched")
	assert.NotContains(t, base, "runways")
}

func TestRoutePayload_Itineraries(t *testing.T) {
	tests := []struct {
		name  string
		route myfly.RoutePayload
		want  int
	}{
		{"bare list", myfly.NewListRoute([]any{map[string]any{}, map[string]any{}}), 2},
		{"empty list", myfly.NewListRoute(nil), 0},
		{"tickets", myfly.NewKeyedRoute(map[string]any{"tickets": []any{map[string]any{}}}), 1},
		{"empty tickets", myfly.NewKeyedRoute(map[string]any{"tickets": []any{}}), 0},
		{"later key", myfly.NewKeyedRoute(map[string]any{"tickets": []any{}, "options": []any{map[string]any{}}}), 1},
		{"string is not a list", myfly.NewKeyedRoute(map[string]any{"results": "abc"}), 0},
		{"non-object entries dropped", myfly.NewListRoute([]any{1, "x"}), 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Len(t, tc.route.Itineraries(), tc.want)
			assert.Equal(t, tc.want > 0, tc.route.HasItineraries())
		})
	}
}

func TestRoutePayload_ListHasNoMetadata(t *testing.T) {
	r := myfly.NewListRoute([]any{map[string]any{"distance": 5}})
	_, ok := r.Lookup("distance")
	assert.False(t, ok)
	assert.Nil(t, r.Fields())
	assert.Equal(t, myfly.ShapeList, r.Shape())
}

func TestRoutePayload_WithResearchOverrides(t *testing.T) {
	r := myfly.NewKeyedRoute(map[string]any{"distance": 1, "tickets": []any{map[string]any{}}})
	merged := r.WithResearch(map[string]any{"distance": 2})

	d, _ := merged.Lookup("distance")
	assert.Equal(t, 2, d)
	assert.True(t, merged.HasItineraries())

	orig, _ := r.Lookup("distance")
	assert.Equal(t, 1, orig)
}
