package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// NeuralConfig locates the TFLite models. Empty paths leave the neural
// provider unavailable, which the pipeline degrades around.
type NeuralConfig struct {
	EncoderPath    string `toml:"encoder_path"`
	ClassifierPath string `toml:"classifier_path"`
	LabelsPath     string `toml:"labels_path"`
}

// MatcherConfig carries the cascade thresholds. All values replicate tuned
// defaults and may be recalibrated per deployment.
type MatcherConfig struct {
	// Stage1MaxCandidates caps the broad-filter output.
	Stage1MaxCandidates int `toml:"stage1_max_candidates"`
	// Stage1MaxScan bounds how many corpus records the broad scan visits
	// before short-circuiting to "no matches".
	Stage1MaxScan int `toml:"stage1_max_scan"`
	// Stage1HashMaxDistance is the lenient Hamming distance (of 64 bits)
	// within which a hash pair contributes a broad signal.
	Stage1HashMaxDistance int `toml:"stage1_hash_max_distance"`
	// Stage2MaxCandidates caps the feature-match output.
	Stage2MaxCandidates int `toml:"stage2_max_candidates"`
	// Stage2MinSimilarity filters candidates below this blended feature
	// similarity percentage.
	Stage2MinSimilarity float64 `toml:"stage2_min_similarity"`
	// MinMatchScore is the final confidence floor below which no match
	// record is produced.
	MinMatchScore float64 `toml:"min_match_score"`
	// TopN truncates the ranked result list to bound persisted matches per
	// photo.
	TopN int `toml:"top_n"`
	// LocationBoostMax is the additive cap of the exponential-decay
	// location boost.
	LocationBoostMax float64 `toml:"location_boost_max"`
	// DefaultSearchRadiusKM applies when a case has no radius configured.
	DefaultSearchRadiusKM float64 `toml:"default_search_radius_km"`
	// Workers bounds intra-stage per-candidate parallelism.
	Workers int `toml:"workers"`
}

// WeightsConfig controls the weight-table cache.
type WeightsConfig struct {
	CacheTTL time.Duration `toml:"cache_ttl"`
}

// Config is the process-wide configuration, loadable from TOML over
// compiled defaults.
type Config struct {
	DBPath  string        `toml:"db_path"`
	LogFile string        `toml:"log_file"`
	Debug   bool          `toml:"debug"`
	Neural  NeuralConfig  `toml:"neural"`
	Matcher MatcherConfig `toml:"matcher"`
	Weights WeightsConfig `toml:"weights"`
}

// Default returns the compiled-in configuration.
func Default() *Config {
	return &Config{
		DBPath: "dnamatcher.db",
		Matcher: MatcherConfig{
			Stage1MaxCandidates:   100,
			Stage1MaxScan:         5000,
			Stage1HashMaxDistance: 20,
			Stage2MaxCandidates:   20,
			Stage2MinSimilarity:   35,
			MinMatchScore:         30,
			TopN:                  10,
			LocationBoostMax:      15,
			DefaultSearchRadiusKM: 10,
			Workers:               8,
		},
		Weights: WeightsConfig{
			CacheTTL: 5 * time.Minute,
		},
	}
}

// Load reads a TOML file over the defaults. A missing path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
