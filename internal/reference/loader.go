package reference

import (
	"context"

	"github.com/twpayne/go-geom"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/buildtrends/internal/model"
)

// Paths locates the reference files on local disk.
type Paths struct {
	Gazetteer      string
	Mobility       string
	CountyGeoJSON  string
	CountyLookup   string
	TractShapefile string
}

// Set is the full complement of loaded reference data for one run.
type Set struct {
	Centroids   map[string]model.Centroid
	Mobility    map[string]float64
	CountyNames map[string]string
	Counties    map[string]model.CountyBoundary
	TractShapes map[string]geom.T
}

// LoadAll loads every reference dataset. The files are independent, so they
// load concurrently; any failure aborts the lot, since all of them are
// required before the join can start.
func LoadAll(ctx context.Context, paths Paths, stateFIPS string) (*Set, error) {
	set := &Set{}
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		c, err := LoadGazetteer(paths.Gazetteer)
		if err != nil {
			return err
		}
		set.Centroids = c
		return nil
	})

	g.Go(func() error {
		m, err := LoadMobility(paths.Mobility)
		if err != nil {
			return err
		}
		set.Mobility = m
		return nil
	})

	g.Go(func() error {
		names, err := LoadCountyLookup(paths.CountyLookup)
		if err != nil {
			return err
		}
		set.CountyNames = names

		// Boundary names fall back to the lookup, so load in sequence.
		counties, err := LoadCountyBoundaries(paths.CountyGeoJSON, stateFIPS, names)
		if err != nil {
			return err
		}
		set.Counties = counties
		return nil
	})

	g.Go(func() error {
		t, err := LoadTractShapes(paths.TractShapefile, stateFIPS)
		if err != nil {
			return err
		}
		set.TractShapes = t
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return set, nil
}
