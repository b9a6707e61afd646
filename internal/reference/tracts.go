package reference

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/buildtrends/internal/model"
)

// LoadTractShapes reads tract polygons from a TIGER cartographic-boundary
// shapefile, keyed by 11-digit tract FIPS, filtered to the given state.
func LoadTractShapes(path, stateFIPS string) (map[string]geom.T, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "reference: open tract shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	geoidIdx := -1
	for _, name := range []string{"GEOID", "GEOID20"} {
		if geoidIdx = fieldIndex(reader, name); geoidIdx >= 0 {
			break
		}
	}
	if geoidIdx < 0 {
		return nil, eris.Errorf("reference: tract shapefile %s has no GEOID field", path)
	}

	shapes := make(map[string]geom.T)
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}

		tract := zfill(strings.TrimSpace(reader.Attribute(geoidIdx)), model.TractLen)
		if !strings.HasPrefix(tract, stateFIPS) {
			continue
		}

		mp, err := polygonToGeom(poly)
		if err != nil {
			return nil, eris.Wrapf(err, "reference: tract %s geometry", tract)
		}
		shapes[tract] = mp
	}

	if len(shapes) == 0 {
		return nil, eris.Errorf("reference: no tract shapes for state %s in %s", stateFIPS, path)
	}

	zap.L().Info("tract shapes loaded",
		zap.String("path", path),
		zap.Int("tracts", len(shapes)),
	)
	return shapes, nil
}

// fieldIndex returns the index of a named field in the shapefile, or -1.
// Shapefile field names are fixed-width and NUL-padded.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

// polygonToGeom converts a shapefile polygon to a go-geom MultiPolygon,
// treating each part as a single-ring polygon.
func polygonToGeom(p *shp.Polygon) (*geom.MultiPolygon, error) {
	mp := geom.NewMultiPolygon(geom.XY)
	if p.NumParts == 0 || len(p.Points) == 0 {
		return mp, nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end <= start {
			continue
		}

		ring := make([]geom.Coord, 0, end-start)
		for j := start; j < end; j++ {
			ring = append(ring, geom.Coord{p.Points[j].X, p.Points[j].Y})
		}

		poly := geom.NewPolygon(geom.XY)
		if _, err := poly.SetCoords([][]geom.Coord{ring}); err != nil {
			return nil, eris.Wrap(err, "set ring coords")
		}
		if err := mp.Push(poly); err != nil {
			return nil, eris.Wrap(err, "push polygon")
		}
	}

	return mp, nil
}
