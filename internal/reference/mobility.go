package reference

import (
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/buildtrends/internal/fetcher"
	"github.com/sells-group/buildtrends/internal/model"
)

// LoadMobility reads tract-level economic-mobility scores (tract_fips,
// mobility_score) from a CSV file. Rows with an empty score are skipped:
// coverage is legitimately partial, and absence must stay distinguishable
// from a present zero.
func LoadMobility(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "reference: missing mobility file %s", path)
	}
	defer f.Close() //nolint:errcheck

	tbl, err := fetcher.ReadTable(f, fetcher.TableOptions{TrimSpace: true})
	if err != nil {
		return nil, eris.Wrapf(err, "reference: parse mobility %s", path)
	}
	if err := tbl.RequireCols("tract_fips", "mobility_score"); err != nil {
		return nil, eris.Wrapf(err, "reference: mobility %s", path)
	}

	scores := make(map[string]float64, len(tbl.Rows))
	skipped := 0
	for i, row := range tbl.Rows {
		raw := tbl.Get(row, "mobility_score")
		if raw == "" {
			skipped++
			continue
		}
		score, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "reference: mobility row %d score", i+1)
		}
		tract := zfill(tbl.Get(row, "tract_fips"), model.TractLen)
		scores[tract] = score
	}

	zap.L().Info("mobility scores loaded",
		zap.String("path", path),
		zap.Int("tracts", len(scores)),
		zap.Int("without_score", skipped),
	)
	return scores, nil
}
