// Package regmanifest extracts the "nx-migrations" / "ng-update" migration
// declaration out of a package's registry metadata document. A package
// declares this either as a bare string (the migrations file path) or as an
// object carrying a migrations path and an optional packageGroup.
package regmanifest

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Declaration is a package's as-declared migration config, prior to the
// planner's packageGroup normalization.
type Declaration struct {
	MigrationsPath string
	PackageGroup   json.RawMessage
}

var declarationKeys = []string{"nx-migrations", "ng-update"}

// Lookup inspects doc (a package version's registry metadata) for a
// migration declaration under either of the two keys npm packages have
// historically used. Returns ok=false when neither key is present.
func Lookup(doc json.RawMessage) (Declaration, bool) {
	for _, key := range declarationKeys {
		result := gjson.GetBytes(doc, key)
		if !result.Exists() {
			continue
		}

		if result.Type == gjson.String {
			return Declaration{MigrationsPath: result.String()}, true
		}

		decl := Declaration{
			MigrationsPath: result.Get("migrations").String(),
		}
		if pg := result.Get("packageGroup"); pg.Exists() {
			decl.PackageGroup = json.RawMessage(pg.Raw)
		}
		return decl, true
	}

	return Declaration{}, false
}
