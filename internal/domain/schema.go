package domain

import (
	"fmt"
	"regexp"
)

// TableSpec describes the searchable shape of one whitelisted table.
type TableSpec struct {
	Name string
	// LocalizedFields are JSON columns mapping language code to text.
	LocalizedFields []string
	// TextFields are plain text columns included in text search.
	TextFields []string
	HasGeo       bool
	HasEmbedding bool
	HasMedia     bool
}

// tableRegistry is the single source of truth for valid table names and
// their searchable fields. Every dynamic table reference must go through
// TableFor; nothing else derives table names.
var tableRegistry = map[string]TableSpec{
	"attractions": {
		Name:            "attractions",
		LocalizedFields: []string{"name", "description"},
		TextFields:      []string{"category"},
		HasGeo:          true,
		HasEmbedding:    true,
		HasMedia:        true,
	},
	"restaurants": {
		Name:            "restaurants",
		LocalizedFields: []string{"name", "description"},
		TextFields:      []string{"cuisine"},
		HasGeo:          true,
		HasEmbedding:    true,
		HasMedia:        true,
	},
	"accommodations": {
		Name:            "accommodations",
		LocalizedFields: []string{"name", "description"},
		TextFields:      []string{"category"},
		HasGeo:          true,
		HasEmbedding:    true,
		HasMedia:        true,
	},
	"cities": {
		Name:            "cities",
		LocalizedFields: []string{"name", "description"},
		HasGeo:          true,
		HasEmbedding:    true,
	},
	"regions": {
		Name:            "regions",
		LocalizedFields: []string{"name", "description"},
		HasGeo:          true,
		HasEmbedding:    true,
	},
	"users": {
		Name:       "users",
		TextFields: []string{"username"},
	},
	"tourism_faqs": {
		Name:            "tourism_faqs",
		LocalizedFields: []string{"question", "answer"},
		HasEmbedding:    true,
	},
	"practical_info": {
		Name:            "practical_info",
		LocalizedFields: []string{"title", "content"},
		HasEmbedding:    true,
	},
	"transportation_types": {
		Name:            "transportation_types",
		LocalizedFields: []string{"name", "description"},
	},
	"transportation_routes": {
		Name:            "transportation_routes",
		LocalizedFields: []string{"name", "description"},
	},
	"transportation_stations": {
		Name:            "transportation_stations",
		LocalizedFields: []string{"name"},
		HasGeo:          true,
	},
	"events_festivals": {
		Name:            "events_festivals",
		LocalizedFields: []string{"name", "description"},
		HasGeo:          true,
		HasEmbedding:    true,
		HasMedia:        true,
	},
	"itineraries": {
		Name:            "itineraries",
		LocalizedFields: []string{"name", "description"},
		HasEmbedding:    true,
	},
}

// TableFor returns the spec for a whitelisted table name. An unknown table
// is a caller error, never a silent empty result.
func TableFor(name string) (TableSpec, error) {
	spec, ok := tableRegistry[name]
	if !ok {
		return TableSpec{}, NewDomainErrorWithCause(ErrCodeValidation, fmt.Sprintf("unknown table %q", name), ErrInvalidTable)
	}
	return spec, nil
}

// TableNames returns the whitelist in registry order (unordered).
func TableNames() []string {
	names := make([]string, 0, len(tableRegistry))
	for name := range tableRegistry {
		names = append(names, name)
	}
	return names
}

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

// ValidColumnName reports whether a caller-supplied identifier is safe to
// interpolate into a dynamic WHERE or ORDER BY clause. Every code path that
// builds a dynamic column reference must use this check.
func ValidColumnName(name string) bool {
	return identifierPattern.MatchString(name)
}
