package artifact

import (
	"fmt"
	"strings"

	"github.com/sells-group/buildtrends/internal/model"
)

// titleBarHTML is the fixed header. The vintage and block group count are
// embedded verbatim so the artifact is self-describing.
func titleBarHTML(vintage, blockGroups int) string {
	return fmt.Sprintf(`<div id="title-bar" style="
    position:fixed; top:0; left:0; right:0; z-index:1000;
    background:rgba(255,255,255,0.95);
    padding:10px 20px;
    box-shadow:0 2px 6px rgba(0,0,0,0.15);
    font-family:Arial,sans-serif;
    max-height:65px; overflow:hidden;
">
    <div style="font-size:14px;font-weight:bold;letter-spacing:0.5px;color:#222">
        UTAH BUILDING TRENDS EXPLORER
    </div>
    <div style="font-size:12px;color:#555;margin-top:2px">
        Where is new housing being built? Explore construction patterns
        across Utah&#39;s %s census block groups.
    </div>
    <div style="font-size:11px;color:#999;margin-top:1px">
        Hover to preview &middot; Click for details &middot; Source: ACS %d
    </div>
</div>`, commaInt(float64(blockGroups)), vintage)
}

// legendHTML is the discrete tier legend, highest tier first.
func legendHTML(tiers []model.Tier) string {
	var rows strings.Builder
	for i := len(tiers) - 1; i >= 0; i-- {
		t := tiers[i]
		var rangeStr string
		switch i {
		case len(tiers) - 1:
			rangeStr = fmt.Sprintf("(%.0f%%+)", t.Min)
		case 0:
			rangeStr = fmt.Sprintf("(<%.0f%%)", t.Max)
		default:
			rangeStr = fmt.Sprintf("(%.0f&#8211;%.0f%%)", t.Min, t.Max)
		}
		fmt.Fprintf(&rows,
			`<div style="margin:3px 0"><span style="color:%s;font-size:16px;vertical-align:middle">&#9679;</span> <span style="vertical-align:middle">%s %s</span></div>`+"\n",
			t.Color, t.Label, rangeStr)
	}
	fmt.Fprintf(&rows,
		`<div style="margin:3px 0"><span style="color:%s;font-size:16px;vertical-align:middle">&#9679;</span> <span style="vertical-align:middle">%s</span></div>`+"\n",
		model.InsufficientDataTier.Color, model.InsufficientDataTier.Label)

	return fmt.Sprintf(`<div id="legend" style="
    position:fixed; bottom:30px; left:10px; z-index:1000;
    background:white; padding:12px 16px; border-radius:6px;
    box-shadow:0 1px 4px rgba(0,0,0,0.2);
    font-family:Arial,sans-serif; font-size:12px;
    line-height:1.4; max-width:260px;
">
    <div style="font-weight:bold;margin-bottom:6px">
        %% Housing Built Since 2020
    </div>
    %s
    <div style="color:#888;font-size:11px;margin-top:6px">
        &#9675; larger = more total units
    </div>
</div>`, rows.String())
}

// attributionHTML is the badge in the bottom-right corner.
func attributionHTML(text string) string {
	if text == "" {
		text = "Powered by <b>SOCIO</b>"
	}
	return fmt.Sprintf(`<div id="attribution" style="
    position:fixed; bottom:10px; right:10px; z-index:1000;
    background:white; padding:6px 12px; border-radius:4px;
    font-family:Arial,sans-serif; font-size:11px; color:#555;
    box-shadow:0 1px 3px rgba(0,0,0,0.2);
">%s</div>`, text)
}

// resetButtonHTML returns the map to the default view. The click handler is
// wired up in the page script where the map variable is in scope.
const resetButtonHTML = `<button id="reset-view-btn" style="
    position:fixed; top:75px; right:10px; z-index:1000;
    background:white; border:1px solid #ccc; border-radius:4px;
    padding:6px 12px; cursor:pointer;
    font-family:Arial,sans-serif; font-size:12px; color:#333;
" onmouseover="this.style.background='#f0f0f0'"
  onmouseout="this.style.background='white'"
>&#8635; Reset View</button>`
