// Package export writes the enriched block group table to analyst-facing
// formats: a diffable CSV intermediate and an XLSX workbook.
package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/buildtrends/internal/model"
)

// Columns of the enriched table, in output order.
var columns = []string{
	"geoid", "name", "county_fips", "county_name", "tract_fips",
	"lat", "lon",
	"total_units", "built_recent", "pct_new_construction", "tier",
	"pct_renter", "pct_college", "units_10_plus", "mobility_score",
}

// identityColumns hold codes and labels that must never be rendered as
// numbers: a GEOID in scientific notation is a corrupted GEOID.
var identityColumns = map[int]bool{
	0: true, // geoid
	1: true, // name
	2:  true, // county_fips
	3:  true, // county_name
	4:  true, // tract_fips
	10: true, // tier
}

// WriteCSV writes the enriched table to path. The input arrives sorted by
// GEOID, so successive runs over the same data produce byte-identical files.
func WriteCSV(path string, records []model.BlockGroupRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "export: create output dir for %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for i := range records {
		if err := w.Write(recordFields(&records[i])); err != nil {
			return eris.Wrapf(err, "export: write row %s", records[i].GEOID)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush")
	}

	zap.L().Info("enriched table written",
		zap.String("path", path),
		zap.Int("rows", len(records)),
	)
	return nil
}

// WriteXLSX writes the enriched table as a single-sheet workbook.
func WriteXLSX(path string, records []model.BlockGroupRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "export: create output dir for %s", path)
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Block Groups")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range columns {
		header.AddCell().SetString(col)
	}

	for i := range records {
		row := sheet.AddRow()
		for col, field := range recordFields(&records[i]) {
			cell := row.AddCell()
			if identityColumns[col] || field == "" {
				cell.SetString(field)
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return eris.Wrapf(err, "export: column %s row %s", columns[col], records[i].GEOID)
			}
			cell.SetFloat(v)
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}

	zap.L().Info("workbook written",
		zap.String("path", path),
		zap.Int("rows", len(records)),
	)
	return nil
}

// recordFields renders one record in column order. Undefined metrics and
// absent mobility scores render empty, not as zero.
func recordFields(rec *model.BlockGroupRecord) []string {
	pctNew := ""
	if rec.MetricDefined {
		pctNew = formatFloat(rec.PctNew)
	}
	mobility := ""
	if rec.MobilityScore != nil {
		mobility = formatFloat(*rec.MobilityScore)
	}

	return []string{
		rec.GEOID,
		rec.Name,
		rec.CountyFIPS,
		rec.CountyName,
		rec.TractFIPS,
		formatFloat(rec.Centroid.Lat),
		formatFloat(rec.Centroid.Lon),
		formatFloat(rec.TotalUnits),
		formatFloat(rec.BuiltRecent),
		pctNew,
		rec.Tier.Label,
		formatFloat(rec.PctRenter),
		formatFloat(rec.PctCollege),
		formatFloat(rec.Units10Plus),
		mobility,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
