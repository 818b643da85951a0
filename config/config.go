// Package config provides configuration loading and access for the simulator and trainer.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation and training parameters.
type Config struct {
	World          WorldConfig              `yaml:"world"`
	Screen         ScreenConfig             `yaml:"screen"`
	Episode        EpisodeConfig            `yaml:"episode"`
	Enemy          EnemyConfig              `yaml:"enemy"`
	Training       TrainingConfig           `yaml:"training"`
	Experiment     ExperimentConfig         `yaml:"experiment"`
	RewardProfiles map[string]RewardProfile `yaml:"reward_profiles"`
	Neural         NeuralConfig             `yaml:"neural"`
	Output         OutputConfig             `yaml:"output"`
	Storage        StorageConfig            `yaml:"storage"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds the arena dimensions used by the simulation.
type WorldConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// ScreenConfig holds replay window settings. Purely cosmetic.
type ScreenConfig struct {
	Title     string `yaml:"title"`
	TargetFPS int    `yaml:"target_fps"`
	HUDHeight int    `yaml:"hud_height"` // Extra strip below the arena for replay controls
}

// EpisodeConfig controls how a single episode starts and how long it may run.
type EpisodeConfig struct {
	Lives             int `yaml:"lives"`
	InitialWaveLength int `yaml:"initial_wave_length"`
	MaxFrames         int `yaml:"max_frames"`
	EpisodesPerGenome int `yaml:"episodes_per_genome"`
}

// EnemyConfig holds the spawn palette. Color draws index into this list in order.
type EnemyConfig struct {
	Colors []string `yaml:"colors"`
}

// TrainingConfig holds generational loop parameters.
type TrainingConfig struct {
	Generations       int     `yaml:"generations"`
	PopulationSize    int     `yaml:"population_size"`
	Profile           string  `yaml:"profile"`
	Observation       string  `yaml:"observation"` // nearest (11 inputs) or top3 (19 inputs)
	Seed              int64   `yaml:"seed"`
	Workers           int     `yaml:"workers"` // 0 = GOMAXPROCS
	EliteCount        int     `yaml:"elite_count"`
	SurvivalThreshold float64 `yaml:"survival_threshold"` // Fraction of each species allowed to breed
	ConnectionProb    float64 `yaml:"connection_prob"`
	StagnationLimit   int     `yaml:"stagnation_limit"` // Generations without improvement before a species stops breeding
}

// ExperimentConfig holds parameters for the reward-profile comparison.
type ExperimentConfig struct {
	Episodes            int      `yaml:"episodes"`
	MaxFrames           int      `yaml:"max_frames"`
	BaseSeed            int64    `yaml:"base_seed"`
	Profiles            []string `yaml:"profiles"`
	EpisodeSeedStride   int64    `yaml:"episode_seed_stride"`
	BenchmarkSeedStride int64    `yaml:"benchmark_seed_stride"`
}

// NeuralConfig holds the NEAT parameters used by reproduction and speciation.
type NeuralConfig struct {
	CompatThreshold        float64 `yaml:"compat_threshold"`
	DisjointCoeff          float64 `yaml:"disjoint_coeff"`
	ExcessCoeff            float64 `yaml:"excess_coeff"`
	MutdiffCoeff           float64 `yaml:"mutdiff_coeff"`
	WeightMutPower         float64 `yaml:"weight_mut_power"`
	MutateLinkWeightsProb  float64 `yaml:"mutate_link_weights_prob"`
	MutateAddNodeProb      float64 `yaml:"mutate_add_node_prob"`
	MutateAddLinkProb      float64 `yaml:"mutate_add_link_prob"`
	MutateToggleEnableProb float64 `yaml:"mutate_toggle_enable_prob"`
	MutateOnlyProb         float64 `yaml:"mutate_only_prob"`
}

// OutputConfig holds file locations for metrics and genomes.
// Patterns take the profile name as their only %s verb.
type OutputConfig struct {
	Dir             string `yaml:"dir"`
	MetricsPattern  string `yaml:"metrics_pattern"`
	GenomePattern   string `yaml:"genome_pattern"`
	SummaryFile     string `yaml:"summary_file"`
	WriteConfigCopy bool   `yaml:"write_config_copy"`
}

// StorageConfig selects the run archive backend.
type StorageConfig struct {
	Backend    string `yaml:"backend"` // memory or sqlite
	SQLitePath string `yaml:"sqlite_path"`
}

// DerivedConfig holds values computed after loading.
type DerivedConfig struct {
	ProfileNames []string // Sorted names of all reward profiles
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.ProfileNames = make([]string, 0, len(c.RewardProfiles))
	for name := range c.RewardProfiles {
		c.Derived.ProfileNames = append(c.Derived.ProfileNames, name)
	}
	sort.Strings(c.Derived.ProfileNames)

	if len(c.Experiment.Profiles) == 0 {
		c.Experiment.Profiles = append([]string(nil), c.Derived.ProfileNames...)
	}
}

// Validate reports configuration errors that would otherwise surface mid-run.
func (c *Config) Validate() error {
	var errs []error
	if c.World.Width <= 0 || c.World.Height <= 0 {
		errs = append(errs, fmt.Errorf("world dimensions must be positive, got %dx%d", c.World.Width, c.World.Height))
	}
	if c.World.Width <= minWorldWidth {
		errs = append(errs, fmt.Errorf("world.width must exceed %d to leave a spawn lane, got %d", minWorldWidth, c.World.Width))
	}
	if c.Episode.MaxFrames <= 0 {
		errs = append(errs, fmt.Errorf("episode.max_frames must be positive, got %d", c.Episode.MaxFrames))
	}
	if c.Episode.Lives <= 0 {
		errs = append(errs, fmt.Errorf("episode.lives must be positive, got %d", c.Episode.Lives))
	}
	if c.Episode.EpisodesPerGenome <= 0 {
		errs = append(errs, fmt.Errorf("episode.episodes_per_genome must be positive, got %d", c.Episode.EpisodesPerGenome))
	}
	if len(c.Enemy.Colors) == 0 {
		errs = append(errs, errors.New("enemy.colors must not be empty"))
	}
	if c.Training.PopulationSize <= 0 {
		errs = append(errs, fmt.Errorf("training.population_size must be positive, got %d", c.Training.PopulationSize))
	}
	if _, ok := c.RewardProfiles[c.Training.Profile]; !ok {
		errs = append(errs, fmt.Errorf("training.profile %q is not a defined reward profile", c.Training.Profile))
	}
	switch c.Training.Observation {
	case ObservationNearest, ObservationTop3:
	default:
		errs = append(errs, fmt.Errorf("training.observation must be %q or %q, got %q",
			ObservationNearest, ObservationTop3, c.Training.Observation))
	}
	switch c.Storage.Backend {
	case "", "memory":
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlite_path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be memory or sqlite, got %q", c.Storage.Backend))
	}
	for _, name := range c.Experiment.Profiles {
		if _, ok := c.RewardProfiles[name]; !ok {
			errs = append(errs, fmt.Errorf("experiment profile %q is not a defined reward profile", name))
		}
	}
	return errors.Join(errs...)
}

// minWorldWidth keeps the wave spawn range [50, width-100) non-empty.
const minWorldWidth = 150

// Observation variants accepted by training.observation.
const (
	ObservationNearest = "nearest"
	ObservationTop3    = "top3"
)

// Profile returns the named reward profile.
func (c *Config) Profile(name string) (RewardProfile, error) {
	p, ok := c.RewardProfiles[name]
	if !ok {
		return RewardProfile{}, fmt.Errorf("unknown reward profile: %s", name)
	}
	return p, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
