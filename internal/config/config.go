package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Policy defaults. These thresholds track observed behavior and are not
// derived from first principles; callers override them via config.yaml or
// environment variables.
const (
	DefaultGateThreshold       = 3
	DefaultCheckTimeoutSeconds = 300
	DefaultEscalationThreshold = 20
	DefaultDirectCycleMaxLen   = 3
	DefaultImpactMaxDepth      = 0 // 0 = unbounded (full transitive closure)
	DefaultProfileBudget       = 2400
	DefaultMaxModuleMaps       = 3
	DefaultMaxFileSize         = 1_000_000
)

type ScanConfig struct {
	Root        string            `yaml:"root"`
	ExcludeDirs []string          `yaml:"exclude_dirs"`
	IncludeExts []string          `yaml:"include_exts"`
	Aliases     map[string]string `yaml:"aliases"` // import prefix -> root-relative dir
	MaxFileSize int64             `yaml:"max_file_size"`
}

type ImpactConfig struct {
	MaxDepth            int `yaml:"max_depth"`
	EscalationThreshold int `yaml:"escalation_threshold"`
	DirectCycleMaxLen   int `yaml:"direct_cycle_max_len"`
}

type GateConfig struct {
	Threshold           int `yaml:"threshold"`
	CheckTimeoutSeconds int `yaml:"check_timeout_seconds"`
}

type ProfileConfig struct {
	Budget        int `yaml:"budget"`
	MaxModuleMaps int `yaml:"max_module_maps"`
}

type Config struct {
	Scan    ScanConfig    `yaml:"scan"`
	Impact  ImpactConfig  `yaml:"impact"`
	Gate    GateConfig    `yaml:"gate"`
	Profile ProfileConfig `yaml:"profile"`
}

// Default returns the built-in configuration used when no config.yaml exists.
func Default() *Config {
	cfg := &Config{}
	cfg.Scan.Root = "."
	cfg.Scan.ExcludeDirs = []string{
		".git", "node_modules", "vendor", "dist", "build", "__pycache__",
		".next", ".venv", "venv", ".idea", ".vscode", ".yarn", "coverage",
		".cache", "target", ".codegenome", "testdata",
	}
	cfg.Scan.IncludeExts = []string{
		".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".py", ".go", ".rb",
		".php", ".java", ".kt", ".rs", ".c", ".cpp", ".h", ".cs", ".vue",
		".css", ".scss", ".html", ".json", ".yaml", ".yml", ".toml", ".md",
	}
	cfg.Scan.Aliases = map[string]string{
		"@/": "src/",
		"~/": "src/",
	}
	cfg.Scan.MaxFileSize = DefaultMaxFileSize
	cfg.Impact.MaxDepth = DefaultImpactMaxDepth
	cfg.Impact.EscalationThreshold = DefaultEscalationThreshold
	cfg.Impact.DirectCycleMaxLen = DefaultDirectCycleMaxLen
	cfg.Gate.Threshold = DefaultGateThreshold
	cfg.Gate.CheckTimeoutSeconds = DefaultCheckTimeoutSeconds
	cfg.Profile.Budget = DefaultProfileBudget
	cfg.Profile.MaxModuleMaps = DefaultMaxModuleMaps
	return cfg
}

// Load reads the YAML config at path (if present) over the defaults, then
// applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	applyEnvOverrides(cfg)
	cfg.normalize()
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CODEGENOME_ROOT"); v != "" {
		cfg.Scan.Root = v
	}
	if v, ok := envInt("CODEGENOME_GATE_THRESHOLD"); ok {
		cfg.Gate.Threshold = v
	}
	if v, ok := envInt("CODEGENOME_ESCALATION_THRESHOLD"); ok {
		cfg.Impact.EscalationThreshold = v
	}
	if v, ok := envInt("CODEGENOME_PROFILE_BUDGET"); ok {
		cfg.Profile.Budget = v
	}
}

func envInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// normalize backfills zero values a partial config.yaml may leave behind.
func (c *Config) normalize() {
	d := Default()
	if c.Scan.Root == "" {
		c.Scan.Root = d.Scan.Root
	}
	if len(c.Scan.ExcludeDirs) == 0 {
		c.Scan.ExcludeDirs = d.Scan.ExcludeDirs
	}
	if len(c.Scan.IncludeExts) == 0 {
		c.Scan.IncludeExts = d.Scan.IncludeExts
	}
	if c.Scan.Aliases == nil {
		c.Scan.Aliases = d.Scan.Aliases
	}
	if c.Scan.MaxFileSize <= 0 {
		c.Scan.MaxFileSize = d.Scan.MaxFileSize
	}
	if c.Impact.EscalationThreshold <= 0 {
		c.Impact.EscalationThreshold = d.Impact.EscalationThreshold
	}
	if c.Impact.DirectCycleMaxLen <= 0 {
		c.Impact.DirectCycleMaxLen = d.Impact.DirectCycleMaxLen
	}
	if c.Impact.MaxDepth < 0 {
		c.Impact.MaxDepth = 0
	}
	if c.Gate.Threshold <= 0 {
		c.Gate.Threshold = d.Gate.Threshold
	}
	if c.Gate.CheckTimeoutSeconds <= 0 {
		c.Gate.CheckTimeoutSeconds = d.Gate.CheckTimeoutSeconds
	}
	if c.Profile.Budget <= 0 {
		c.Profile.Budget = d.Profile.Budget
	}
	if c.Profile.MaxModuleMaps <= 0 {
		c.Profile.MaxModuleMaps = d.Profile.MaxModuleMaps
	}
}
