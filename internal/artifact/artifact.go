// Package artifact assembles the self-contained interactive map document.
// The output is a single HTML file with Leaflet loaded from a CDN and all
// three overlays embedded as GeoJSON, so it can be opened from disk or
// dropped on any static host with no server-side component.
package artifact

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"text/template"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/buildtrends/internal/model"
)

// MapOptions controls the document's viewport and styling. Mirrors the map
// section of the configuration.
type MapOptions struct {
	CenterLat       float64
	CenterLon       float64
	Zoom            int
	TileURL         string
	TileAttribution string
	MarkerMinRadius float64
	MarkerMaxRadius float64
	MobilityColors  []string
}

// Params carries everything the generator needs for one document.
type Params struct {
	Vintage        int
	Records        []model.BlockGroupRecord
	StateAvgPctNew float64
	Tiers          []model.Tier
	Counties       map[string]model.CountyBoundary
	TractShapes    map[string]geom.T
	Map            MapOptions
}

// pageData is the template input. Overlay JSON is pre-marshaled; the
// template inserts it verbatim inside <script> tags.
type pageData struct {
	Title           string
	PopupCSS        string
	TitleBar        string
	Legend          string
	Attribution     string
	ResetButton     string
	CenterLat       float64
	CenterLon       float64
	Zoom            int
	TileURL         string
	TileAttribution string
	BuildingName    string
	MobilityName    string
	CountyName      string
	BuildingJSON    string
	MobilityJSON    string
	CountyJSON      string
}

var pageTmpl = template.Must(template.New("map").Parse(pageTemplate))

// Generate assembles the full document in memory.
func Generate(p Params) ([]byte, error) {
	building, err := marshalLayer(buildingTrendsLayer(p.Records, p.StateAvgPctNew, p.Map))
	if err != nil {
		return nil, eris.Wrap(err, "artifact: encode building trends overlay")
	}
	mobility, err := marshalLayer(mobilityLayer(p.Records, p.TractShapes, p.Map.MobilityColors))
	if err != nil {
		return nil, eris.Wrap(err, "artifact: encode mobility overlay")
	}
	counties, err := marshalLayer(countyLayer(p.Counties))
	if err != nil {
		return nil, eris.Wrap(err, "artifact: encode county overlay")
	}

	data := pageData{
		Title:           "Utah Building Trends Explorer",
		PopupCSS:        popupCSS,
		TitleBar:        titleBarHTML(p.Vintage, len(p.Records)),
		Legend:          legendHTML(p.Tiers),
		Attribution:     attributionHTML(""),
		ResetButton:     resetButtonHTML,
		CenterLat:       p.Map.CenterLat,
		CenterLon:       p.Map.CenterLon,
		Zoom:            p.Map.Zoom,
		TileURL:         p.Map.TileURL,
		TileAttribution: p.Map.TileAttribution,
		BuildingName:    BuildingLayerName,
		MobilityName:    MobilityLayerName,
		CountyName:      CountyLayerName,
		BuildingJSON:    building,
		MobilityJSON:    mobility,
		CountyJSON:      counties,
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		return nil, eris.Wrap(err, "artifact: render page")
	}

	zap.L().Info("artifact assembled",
		zap.Int("block_groups", len(p.Records)),
		zap.Int("bytes", buf.Len()),
	)
	return buf.Bytes(), nil
}

// Write places the document at path atomically: the content lands in a temp
// file in the same directory and is renamed into place, so a crash mid-write
// never leaves a partial artifact at the output path.
func Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "artifact: create output dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrap(err, "artifact: create temp file")
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return eris.Wrap(err, "artifact: write temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return eris.Wrap(err, "artifact: close temp file")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return eris.Wrapf(err, "artifact: rename into %s", path)
	}

	zap.L().Info("artifact written", zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}

func marshalLayer(fc *geojson.FeatureCollection) (string, error) {
	b, err := json.Marshal(fc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8"/>
<meta name="viewport" content="width=device-width, initial-scale=1.0"/>
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css"/>
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>
html,body{height:100%;margin:0;padding:0}
#map{position:absolute;top:0;bottom:0;left:0;right:0}
{{.PopupCSS}}
</style>
</head>
<body>
<div id="map"></div>
{{.TitleBar}}
{{.Legend}}
{{.Attribution}}
{{.ResetButton}}
<script>
var map = L.map('map', {preferCanvas: true}).setView([{{.CenterLat}}, {{.CenterLon}}], {{.Zoom}});
L.tileLayer('{{.TileURL}}', {attribution: '{{.TileAttribution}}'}).addTo(map);

var buildingData = {{.BuildingJSON}};
var mobilityData = {{.MobilityJSON}};
var countyData = {{.CountyJSON}};

var countyLayer = L.geoJSON(countyData, {
    style: function () {
        return {fillOpacity: 0, color: '#888888', weight: 1.5, dashArray: '5 5'};
    },
    onEachFeature: function (f, layer) {
        if (f.properties && f.properties.name) {
            layer.bindTooltip('County: ' + f.properties.name, {sticky: true});
        }
    }
}).addTo(map);

var mobilityLayer = L.geoJSON(mobilityData, {
    style: function (f) {
        return {fillColor: f.properties.fill, fillOpacity: 0.5, color: '#666', weight: 0.3, opacity: 0.6};
    },
    onEachFeature: function (f, layer) {
        layer.bindTooltip(f.properties.tooltip, {sticky: true});
    }
});

var buildingLayer = L.geoJSON(buildingData, {
    pointToLayer: function (f, latlng) {
        return L.circleMarker(latlng, {
            radius: f.properties.radius,
            color: f.properties.color,
            weight: 0.5,
            fill: true,
            fillColor: f.properties.color,
            fillOpacity: 0.7
        });
    },
    onEachFeature: function (f, layer) {
        layer.bindTooltip(f.properties.tooltip);
        layer.bindPopup(f.properties.popup, {maxWidth: 320});
    }
}).addTo(map);

var overlays = {};
overlays['{{.BuildingName}}'] = buildingLayer;
overlays['{{.MobilityName}}'] = mobilityLayer;
overlays['{{.CountyName}}'] = countyLayer;
L.control.layers(null, overlays, {collapsed: false}).addTo(map);

document.getElementById('reset-view-btn').addEventListener('click', function () {
    map.setView([{{.CenterLat}}, {{.CenterLon}}], {{.Zoom}});
});
</script>
</body>
</html>
`
