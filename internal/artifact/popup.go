package artifact

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/buildtrends/internal/model"
)

// Popup context variables read straight from the raw survey values. These
// are display-only; classification inputs come through the config layer.
const (
	varBuilt2010s   = "B25034_003E"
	varBuilt2000s   = "B25034_004E"
	varUnits50Plus  = "B25024_010E"
	varMedianValue  = "B25077_001E"
	varMedianIncome = "B19013_001E"
)

// popupCSS is injected once into the page head so per-marker HTML stays
// small. Class names are deliberately terse; the artifact embeds thousands
// of popup strings.
const popupCSS = `
.bt-p{font-family:Arial,sans-serif;width:280px;font-size:13px;line-height:1.5;margin:0;padding:0}
.bt-h{color:#fff;padding:8px 12px;border-radius:6px 6px 0 0;font-size:11px;font-weight:bold;letter-spacing:.5px;text-transform:uppercase}
.bt-b{padding:10px 12px}
.bt-sl{font-size:11px;color:#555;text-transform:uppercase;letter-spacing:.5px;margin-bottom:4px}
.bt-d{border-top:1px solid #eee;margin:8px 0}
.bt-v{font-size:12px;line-height:1.6}
.bt-m{color:#888;font-size:11px}
.bt-bar{background:#eee;height:8px;border-radius:3px;margin-bottom:4px}
.bt-tt{font-family:Arial,sans-serif;font-size:12px;padding:4px 8px;max-width:200px;line-height:1.4}
`

var numPrinter = message.NewPrinter(language.English)

// commaInt formats a count with thousands separators.
func commaInt(v float64) string {
	return numPrinter.Sprintf("%d", int64(v))
}

// dollars formats a raw survey value as a dollar amount, or N/A when the
// value is absent or suppressed.
func dollars(raw map[string]float64, code string) string {
	v, ok := raw[code]
	if !ok || !model.Usable(v) {
		return "N/A"
	}
	return "$" + commaInt(v)
}

// rawCount returns a raw survey value as a count, zero when unusable.
func rawCount(raw map[string]float64, code string) float64 {
	v, ok := raw[code]
	if !ok || !model.Usable(v) {
		return 0
	}
	return v
}

// tooltipHTML is the compact three-line hover preview.
func tooltipHTML(rec *model.BlockGroupRecord) string {
	pct := "No data"
	if rec.MetricDefined {
		pct = fmt.Sprintf("%.1f%% new construction", rec.PctNew)
	}
	return fmt.Sprintf(
		`<div class="bt-tt"><b>%s</b><br>`+
			`<span style="color:%s;font-size:14px">&#9632;</span> %s<br>`+
			`<span class="bt-m">%s total units</span></div>`,
		rec.CountyName, rec.Tier.Color, pct, commaInt(rec.TotalUnits),
	)
}

// popupHTML is the full data card shown on click: tier badge, progress bar
// against a fixed 20% ceiling, housing profile, and market context with the
// statewide benchmark.
func popupHTML(rec *model.BlockGroupRecord, stateAvg float64) string {
	barPct := math.Min(rec.PctNew/20.0, 1.0) * 100
	if !rec.MetricDefined {
		barPct = 0
	}

	return fmt.Sprintf(
		`<div class="bt-p">`+
			`<div class="bt-h" style="background:%s">%s</div>`+
			`<div class="bt-b">`+
			`<div class="bt-m">%s County</div>`+
			`<div style="font-weight:bold;margin-bottom:8px">%s</div>`+
			`<div class="bt-sl">New Construction</div>`+
			`<div class="bt-bar"><div style="background:%s;height:8px;border-radius:3px;width:%.0f%%"></div></div>`+
			`<div><b>%.1f%%</b> built since 2020 (%s units)</div>`+
			`<div class="bt-m">State average: %.1f%%</div>`+
			`<div class="bt-d"></div>`+
			`<div class="bt-sl">Housing Profile</div>`+
			`<div class="bt-v">Total units: %s<br>`+
			`Built 2010&#8211;2019: %s<br>`+
			`Built 2000&#8211;2009: %s<br>`+
			`In 10+ unit bldgs: %s<br>`+
			`In 50+ unit bldgs: %s</div>`+
			`<div class="bt-d"></div>`+
			`<div class="bt-sl">Market Context</div>`+
			`<div class="bt-v">Median home value: %s<br>`+
			`Renter-occupied: %.0f%%<br>`+
			`Median HH income: %s</div>`+
			`</div></div>`,
		rec.Tier.Color, rec.Tier.Label,
		rec.CountyName,
		rec.Name,
		rec.Tier.Color, barPct,
		rec.PctNew, commaInt(rec.BuiltRecent),
		stateAvg,
		commaInt(rec.TotalUnits),
		commaInt(rawCount(rec.Raw, varBuilt2010s)),
		commaInt(rawCount(rec.Raw, varBuilt2000s)),
		commaInt(rec.Units10Plus),
		commaInt(rawCount(rec.Raw, varUnits50Plus)),
		dollars(rec.Raw, varMedianValue),
		rec.PctRenter,
		dollars(rec.Raw, varMedianIncome),
	)
}
