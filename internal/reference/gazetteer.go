// Package reference loads the operator-managed static datasets: gazetteer
// centroids, Opportunity Atlas mobility scores, county boundaries and names,
// and tract boundary shapes. All loads are local-file only; a missing or
// unparseable file is a deployment error and fails the run immediately.
package reference

import (
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/buildtrends/internal/fetcher"
	"github.com/sells-group/buildtrends/internal/model"
)

// LoadGazetteer reads block group centroids (geoid, lat, lon) from a CSV
// file. GEOIDs are zero-padded to 12 characters.
func LoadGazetteer(path string) (map[string]model.Centroid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "reference: missing gazetteer file %s", path)
	}
	defer f.Close() //nolint:errcheck

	tbl, err := fetcher.ReadTable(f, fetcher.TableOptions{TrimSpace: true})
	if err != nil {
		return nil, eris.Wrapf(err, "reference: parse gazetteer %s", path)
	}
	if err := tbl.RequireCols("geoid", "lat", "lon"); err != nil {
		return nil, eris.Wrapf(err, "reference: gazetteer %s", path)
	}

	centroids := make(map[string]model.Centroid, len(tbl.Rows))
	for i, row := range tbl.Rows {
		geoid := zfill(tbl.Get(row, "geoid"), model.GEOIDLen)
		lat, err := strconv.ParseFloat(tbl.Get(row, "lat"), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "reference: gazetteer row %d lat", i+1)
		}
		lon, err := strconv.ParseFloat(tbl.Get(row, "lon"), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "reference: gazetteer row %d lon", i+1)
		}
		centroids[geoid] = model.Centroid{Lat: lat, Lon: lon}
	}

	zap.L().Info("gazetteer loaded",
		zap.String("path", path),
		zap.Int("block_groups", len(centroids)),
	)
	return centroids, nil
}

// zfill left-pads s with zeros to the given width.
func zfill(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}
