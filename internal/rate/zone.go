package rate

import (
	"fmt"
	"strings"
)

// Direction is the shipment direction relative to the home country.
type Direction string

const (
	Export Direction = "export"
	Import Direction = "import"
)

// ParseDirection validates a direction string. Matching is case-insensitive.
func ParseDirection(value string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(value))) {
	case Export:
		return Export, nil
	case Import:
		return Import, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, value)
	}
}

// Zone identifies a partition of the tariff table.
type Zone string

// ZoneTable maps a counterpart country and direction to a tariff zone.
// For exports the counterpart is the destination, for imports it is the origin.
type ZoneTable struct {
	entries  map[Direction]map[string]Zone
	fallback map[Direction]Zone
}

// NewZoneTable builds a table from per-direction country maps.
func NewZoneTable(export, imports map[string]Zone) ZoneTable {
	t := ZoneTable{entries: map[Direction]map[string]Zone{
		Export: make(map[string]Zone, len(export)),
		Import: make(map[string]Zone, len(imports)),
	}}
	for country, zone := range export {
		t.entries[Export][NormalizeCountry(country)] = zone
	}
	for country, zone := range imports {
		t.entries[Import][NormalizeCountry(country)] = zone
	}
	return t
}

// WithFallback returns a copy of the table that resolves unknown countries for the direction
// to the given zone instead of failing.
func (t ZoneTable) WithFallback(direction Direction, zone Zone) ZoneTable {
	fallback := make(map[Direction]Zone, len(t.fallback)+1)
	for d, z := range t.fallback {
		fallback[d] = z
	}
	fallback[direction] = zone
	t.fallback = fallback
	return t
}

// Zones lists every zone referenced by the table, fallbacks included.
func (t ZoneTable) Zones() []Zone {
	seen := make(map[Zone]struct{})
	var out []Zone
	add := func(z Zone) {
		if _, ok := seen[z]; ok {
			return
		}
		seen[z] = struct{}{}
		out = append(out, z)
	}
	for _, d := range []Direction{Export, Import} {
		for _, z := range t.entries[d] {
			add(z)
		}
		if z, ok := t.fallback[d]; ok {
			add(z)
		}
	}
	return out
}

// Resolve maps (origin, destination, direction) to a zone.
func (t ZoneTable) Resolve(origin, destination string, direction Direction) (Zone, error) {
	if direction != Export && direction != Import {
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, string(direction))
	}
	country := NormalizeCountry(destination)
	if direction == Import {
		country = NormalizeCountry(origin)
	}
	if zone, ok := t.entries[direction][country]; ok {
		return zone, nil
	}
	if zone, ok := t.fallback[direction]; ok {
		return zone, nil
	}
	return "", fmt.Errorf("%w: %s (%s)", ErrUnknownDestination, country, direction)
}

// NormalizeCountry upper-cases and trims a country code.
func NormalizeCountry(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
