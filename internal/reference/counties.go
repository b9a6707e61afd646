package reference

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/buildtrends/internal/fetcher"
	"github.com/sells-group/buildtrends/internal/model"
)

// utahCounties maps the 5-digit FIPS of Utah's 29 counties to names. Used
// when no lookup file is deployed; counties change on decennial timescales.
var utahCounties = map[string]string{
	"49001": "Beaver", "49003": "Box Elder", "49005": "Cache",
	"49007": "Carbon", "49009": "Daggett", "49011": "Davis",
	"49013": "Duchesne", "49015": "Emery", "49017": "Garfield",
	"49019": "Grand", "49021": "Iron", "49023": "Juab",
	"49025": "Kane", "49027": "Millard", "49029": "Morgan",
	"49031": "Piute", "49033": "Rich", "49035": "Salt Lake",
	"49037": "San Juan", "49039": "Sanpete", "49041": "Sevier",
	"49043": "Summit", "49045": "Tooele", "49047": "Uintah",
	"49049": "Utah", "49051": "Wasatch", "49053": "Washington",
	"49055": "Wayne", "49057": "Weber",
}

// LoadCountyLookup reads the county FIPS -> name table. Unlike the other
// reference files this one has a programmatic fallback, since the state's
// county set is fixed between decennial releases.
func LoadCountyLookup(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Info("county lookup file absent, using built-in table",
				zap.String("path", path))
			lookup := make(map[string]string, len(utahCounties))
			for k, v := range utahCounties {
				lookup[k] = v
			}
			return lookup, nil
		}
		return nil, eris.Wrapf(err, "reference: open county lookup %s", path)
	}
	defer f.Close() //nolint:errcheck

	tbl, err := fetcher.ReadTable(f, fetcher.TableOptions{TrimSpace: true})
	if err != nil {
		return nil, eris.Wrapf(err, "reference: parse county lookup %s", path)
	}
	if err := tbl.RequireCols("county_fips", "county_name"); err != nil {
		return nil, eris.Wrapf(err, "reference: county lookup %s", path)
	}

	lookup := make(map[string]string, len(tbl.Rows))
	for _, row := range tbl.Rows {
		lookup[zfill(tbl.Get(row, "county_fips"), model.CountyLen)] = tbl.Get(row, "county_name")
	}
	return lookup, nil
}

// LoadCountyBoundaries reads county polygons from a GeoJSON
// FeatureCollection, filtered to the given state. Feature IDs are 5-digit
// county FIPS codes; names come from the feature properties when present,
// otherwise from the lookup table.
func LoadCountyBoundaries(path, stateFIPS string, names map[string]string) (map[string]model.CountyBoundary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "reference: missing county boundary file %s", path)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "reference: parse county geojson %s", path)
	}

	boundaries := make(map[string]model.CountyBoundary)
	for _, feat := range fc.Features {
		fips := featureCountyFIPS(feat)
		if fips == "" || !strings.HasPrefix(fips, stateFIPS) {
			continue
		}
		if feat.Geometry == nil {
			return nil, eris.Errorf("reference: county %s has no geometry", fips)
		}

		name := featureName(feat)
		if name == "" {
			name = names[fips]
		}
		boundaries[fips] = model.CountyBoundary{
			FIPS:     fips,
			Name:     name,
			Geometry: feat.Geometry,
		}
	}

	if len(boundaries) == 0 {
		return nil, eris.Errorf("reference: no county boundaries for state %s in %s", stateFIPS, path)
	}

	zap.L().Info("county boundaries loaded",
		zap.String("path", path),
		zap.Int("counties", len(boundaries)),
	)
	return boundaries, nil
}

func featureCountyFIPS(feat *geojson.Feature) string {
	if feat.ID != "" {
		return zfill(feat.ID, model.CountyLen)
	}
	// Some sources carry the FIPS in properties instead of the feature ID.
	for _, key := range []string{"GEOID", "geoid", "id", "FIPS"} {
		if v, ok := feat.Properties[key].(string); ok && v != "" {
			return zfill(v, model.CountyLen)
		}
	}
	return ""
}

func featureName(feat *geojson.Feature) string {
	for _, key := range []string{"NAME", "name", "Name", "NAMELSAD"} {
		if v, ok := feat.Properties[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
