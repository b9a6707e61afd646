// Package config loads application configuration from config.yaml and
// BUILDTRENDS_* environment variables, and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/buildtrends/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Census    CensusConfig    `yaml:"census" mapstructure:"census"`
	Reference ReferenceConfig `yaml:"reference" mapstructure:"reference"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Map       MapConfig       `yaml:"map" mapstructure:"map"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CensusConfig configures the ACS fetch: vintage, geography, and the
// variable codes to pull (code -> friendly column name).
type CensusConfig struct {
	BaseURL   string            `yaml:"base_url" mapstructure:"base_url"`
	APIKey    string            `yaml:"api_key" mapstructure:"api_key"`
	Vintage   int               `yaml:"vintage" mapstructure:"vintage"`
	StateFIPS string            `yaml:"state_fips" mapstructure:"state_fips"`
	Variables map[string]string `yaml:"variables" mapstructure:"variables"`
}

// MetricVarsConfig names the variable codes the classifier derives metrics
// from. These are configuration, not inference: a vintage that renames a
// table requires an operator update here.
type MetricVarsConfig struct {
	TotalUnits  string   `yaml:"total_units" mapstructure:"total_units"`
	BuiltRecent string   `yaml:"built_recent" mapstructure:"built_recent"`
	OwnerOcc    string   `yaml:"owner_occupied" mapstructure:"owner_occupied"`
	RenterOcc   string   `yaml:"renter_occupied" mapstructure:"renter_occupied"`
	Population  string   `yaml:"population" mapstructure:"population"`
	College     []string `yaml:"college" mapstructure:"college"`
	Units10_19  string   `yaml:"units_10_19" mapstructure:"units_10_19"`
	Units20_49  string   `yaml:"units_20_49" mapstructure:"units_20_49"`
	Units50Plus string   `yaml:"units_50_plus" mapstructure:"units_50_plus"`
}

// ReferenceConfig locates the operator-managed static reference files.
type ReferenceConfig struct {
	GazetteerPath      string `yaml:"gazetteer_path" mapstructure:"gazetteer_path"`
	MobilityPath       string `yaml:"mobility_path" mapstructure:"mobility_path"`
	CountyGeoJSONPath  string `yaml:"county_geojson_path" mapstructure:"county_geojson_path"`
	CountyLookupPath   string `yaml:"county_lookup_path" mapstructure:"county_lookup_path"`
	TractShapefilePath string `yaml:"tract_shapefile_path" mapstructure:"tract_shapefile_path"`
}

// PipelineConfig configures joining and classification.
type PipelineConfig struct {
	// Tiers partition the pct_new_construction domain. Static configuration,
	// never recomputed from the run's own distribution, so tiers stay
	// comparable year over year.
	Tiers []model.Tier `yaml:"tiers" mapstructure:"tiers"`

	// MismatchEscalation is the fraction of survey rows allowed to miss the
	// centroid table before the run aborts as a structural incompatibility.
	MismatchEscalation float64 `yaml:"mismatch_escalation" mapstructure:"mismatch_escalation"`

	Metrics MetricVarsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// MapConfig configures the emitted map document.
type MapConfig struct {
	CenterLat       float64  `yaml:"center_lat" mapstructure:"center_lat"`
	CenterLon       float64  `yaml:"center_lon" mapstructure:"center_lon"`
	Zoom            int      `yaml:"zoom" mapstructure:"zoom"`
	TileURL         string   `yaml:"tile_url" mapstructure:"tile_url"`
	TileAttribution string   `yaml:"tile_attribution" mapstructure:"tile_attribution"`
	MarkerMinRadius float64  `yaml:"marker_min_radius" mapstructure:"marker_min_radius"`
	MarkerMaxRadius float64  `yaml:"marker_max_radius" mapstructure:"marker_max_radius"`
	MobilityColors  []string `yaml:"mobility_colors" mapstructure:"mobility_colors"`
}

// OutputConfig configures run outputs.
type OutputConfig struct {
	Dir          string `yaml:"dir" mapstructure:"dir"`
	ArtifactName string `yaml:"artifact_name" mapstructure:"artifact_name"`
	EnrichedCSV  string `yaml:"enriched_csv" mapstructure:"enriched_csv"`
}

// CacheConfig configures the local SQLite cache and run log.
type CacheConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the local preview server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultVariables is the ACS variable set the pipeline was built around:
// year-structure-built (B25034), units-in-structure (B25024), home value,
// tenure, and demographics.
func DefaultVariables() map[string]string {
	return map[string]string{
		"B25034_001E": "total_housing_units",
		"B25034_002E": "built_2020_plus",
		"B25034_003E": "built_2010_2019",
		"B25034_004E": "built_2000_2009",
		"B25024_001E": "total_units_in_structure",
		"B25024_008E": "units_10_19",
		"B25024_009E": "units_20_49",
		"B25024_010E": "units_50_plus",
		"B25077_001E": "median_home_value",
		"B25003_002E": "owner_occupied",
		"B25003_003E": "renter_occupied",
		"B01003_001E": "total_pop",
		"B19013_001E": "median_hh_income",
		"B15003_022E": "bachelors",
		"B15003_023E": "masters",
		"B15003_024E": "professional_degree",
		"B15003_025E": "doctorate",
	}
}

// DefaultTiers returns the growth tiers over percent of housing stock built
// in the recent window.
func DefaultTiers() []model.Tier {
	return []model.Tier{
		{Label: "Minimal new construction", Min: 0, Max: 1, Color: "#D9D9D9"},
		{Label: "Some new construction", Min: 1, Max: 3, Color: "#A6BDDB"},
		{Label: "Moderate growth", Min: 3, Max: 7, Color: "#3690C0"},
		{Label: "High growth", Min: 7, Max: 15, Color: "#0570B0"},
		{Label: "Construction hotspot", Min: 15, Max: 100, Color: "#034E7B"},
	}
}

func defaultMetricVars() MetricVarsConfig {
	return MetricVarsConfig{
		TotalUnits:  "B25034_001E",
		BuiltRecent: "B25034_002E",
		OwnerOcc:    "B25003_002E",
		RenterOcc:   "B25003_003E",
		Population:  "B01003_001E",
		College:     []string{"B15003_022E", "B15003_023E", "B15003_024E", "B15003_025E"},
		Units10_19:  "B25024_008E",
		Units20_49:  "B25024_009E",
		Units50Plus: "B25024_010E",
	}
}

// Load reads configuration from file and environment, applies defaults, and
// validates the tier thresholds.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BUILDTRENDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; defaults cover a stock Utah build.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if len(cfg.Pipeline.Tiers) == 0 {
		cfg.Pipeline.Tiers = DefaultTiers()
	}
	if len(cfg.Census.Variables) == 0 {
		cfg.Census.Variables = DefaultVariables()
	}
	if err := model.ValidateTiers(cfg.Pipeline.Tiers); err != nil {
		return nil, eris.Wrap(err, "config: tier thresholds")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("census.base_url", "https://api.census.gov/data")
	v.SetDefault("census.vintage", 2023)
	v.SetDefault("census.state_fips", "49")

	v.SetDefault("reference.gazetteer_path", "data/reference/gazetteer_ut.csv")
	v.SetDefault("reference.mobility_path", "data/reference/opportunity_atlas.csv")
	v.SetDefault("reference.county_geojson_path", "data/reference/utah_counties.geojson")
	v.SetDefault("reference.county_lookup_path", "data/reference/county_fips_lookup.csv")
	v.SetDefault("reference.tract_shapefile_path", "data/reference/cb_2020_49_tract_500k.shp")

	v.SetDefault("pipeline.mismatch_escalation", 0.05)
	v.SetDefault("pipeline.metrics.total_units", "B25034_001E")
	v.SetDefault("pipeline.metrics.built_recent", "B25034_002E")
	v.SetDefault("pipeline.metrics.owner_occupied", "B25003_002E")
	v.SetDefault("pipeline.metrics.renter_occupied", "B25003_003E")
	v.SetDefault("pipeline.metrics.population", "B01003_001E")
	v.SetDefault("pipeline.metrics.college",
		[]string{"B15003_022E", "B15003_023E", "B15003_024E", "B15003_025E"})
	v.SetDefault("pipeline.metrics.units_10_19", "B25024_008E")
	v.SetDefault("pipeline.metrics.units_20_49", "B25024_009E")
	v.SetDefault("pipeline.metrics.units_50_plus", "B25024_010E")

	// Wasatch Front.
	v.SetDefault("map.center_lat", 40.65)
	v.SetDefault("map.center_lon", -111.9)
	v.SetDefault("map.zoom", 10)
	v.SetDefault("map.tile_url", "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png")
	v.SetDefault("map.tile_attribution", "&copy; OpenStreetMap contributors &copy; CARTO")
	v.SetDefault("map.marker_min_radius", 3)
	v.SetDefault("map.marker_max_radius", 15)
	v.SetDefault("map.mobility_colors",
		[]string{"#F7FBFF", "#C6DBEF", "#6BAED6", "#2171B5", "#08306B"})

	v.SetDefault("output.dir", "output")
	v.SetDefault("output.artifact_name", "utah_building_trends.html")
	v.SetDefault("output.enriched_csv", "block_groups_enriched.csv")

	v.SetDefault("cache.path", "data/cache/buildtrends.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
