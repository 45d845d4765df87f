package places

import (
	"fmt"
	"strings"
)

// Schema describes how to pull visits out of one browser's history layout.
//
// Query must return exactly three columns, (url, title, visit time in
// microseconds since the Unix epoch), ordered as described in the package
// documentation.
type Schema struct {
	Name  string
	Query string
}

// Firefox reads places.sqlite. visit_date is already Unix microseconds.
var Firefox = Schema{
	Name: "firefox",
	Query: `
		SELECT p.url, p.title, v.visit_date
		FROM moz_places p
		JOIN moz_historyvisits v
			ON p.id = v.place_id
		ORDER BY v.visit_date / 1000, p.url COLLATE BINARY`,
}

// Chromium reads the "History" database of Chrome, Chromium and Edge.
// visit_time counts microseconds from 1601-01-01 and is shifted to the Unix
// epoch in SQL so ordering stays in the query.
var Chromium = Schema{
	Name: "chromium",
	Query: `
		SELECT u.url, u.title, v.visit_time - 11644473600000000
		FROM urls u
		JOIN visits v
			ON u.id = v.url
		ORDER BY (v.visit_time - 11644473600000000) / 1000, u.url COLLATE BINARY`,
}

// Schemas lists the known layouts by name.
var Schemas = []Schema{Firefox, Chromium}

// SchemaNames returns the names of Schemas.
func SchemaNames() []string {
	names := make([]string, len(Schemas))
	for i, s := range Schemas {
		names[i] = s.Name
	}
	return names
}

// LookupSchema returns the schema with the given name, case-insensitively.
func LookupSchema(name string) (Schema, error) {
	for _, s := range Schemas {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	return Schema{}, fmt.Errorf("unknown browser %q: must be one of %v", name, SchemaNames())
}
