// Package config loads codeloop settings from built-in defaults, an optional
// YAML file and CODELOOP_ environment variables, in that order.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/danielpatrickdp/codeloop/internal/agent"
	"github.com/danielpatrickdp/codeloop/internal/discovery"
	"github.com/danielpatrickdp/codeloop/internal/evaluate"
	"github.com/danielpatrickdp/codeloop/internal/llm"
	"github.com/danielpatrickdp/codeloop/internal/logging"
	"github.com/danielpatrickdp/codeloop/internal/reward"
	"github.com/danielpatrickdp/codeloop/internal/runner"
)

const (
	envPrefix         = "CODELOOP_"
	apiKeyEnv         = "OPENAI_API_KEY"
	maxConfigFileSize = 1 << 20
)

// Snapshot backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

//go:embed defaults.yaml
var defaults []byte

var validate = validator.New(validator.WithRequiredStructEnabled())

// #region types
type Config struct {
	Database  DatabaseConfig   `koanf:"database"`
	Snapshot  SnapshotConfig   `koanf:"snapshot"`
	Agent     AgentConfig      `koanf:"agent"`
	Reward    RewardConfig     `koanf:"reward"`
	LLM       LLMConfig        `koanf:"llm"`
	Runner    runner.Config    `koanf:"runner"`
	Discovery discovery.Config `koanf:"discovery"`
	Evaluate  EvaluateConfig   `koanf:"evaluate"`
	Logging   logging.Config   `koanf:"logging"`
	Metrics   MetricsConfig    `koanf:"metrics"`
}

type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// SnapshotConfig picks where the value table is persisted. Path is used by the file backend.
type SnapshotConfig struct {
	Backend string `koanf:"backend" validate:"oneof=file sqlite"`
	Path    string `koanf:"path" validate:"required_if=Backend file"`
}

type AgentConfig struct {
	Actions       []string `koanf:"actions" validate:"required,min=1,unique,dive,required"`
	Alpha         float64  `koanf:"alpha" validate:"gt=0,lte=1"`
	Gamma         float64  `koanf:"gamma" validate:"gte=0,lte=1"`
	Epsilon       float64  `koanf:"epsilon" validate:"gte=0,lte=1"`
	MaxIterations int      `koanf:"max_iterations" validate:"gte=1"`
	Schema        []string `koanf:"schema" validate:"required,min=1,unique,dive,required"`
}

type RewardConfig struct {
	Preset string `koanf:"preset" validate:"oneof=standard light"`
}

// LLMConfig adds loop-level switches to the client settings.
type LLMConfig struct {
	llm.Config `koanf:",squash"`
	Plan       bool `koanf:"plan"`
}

type EvaluateConfig struct {
	MinSuccessRate float64 `koanf:"min_success_rate" validate:"gte=0,lte=100"`
	MinAvgReward   float64 `koanf:"min_avg_reward"`
}

type MetricsConfig struct {
	TextfilePath string `koanf:"textfile_path"`
}
// #endregion types

// #region load
// Load reads defaults, then path (when non-empty), then the environment.
// A missing file at an explicit path is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaults), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		content, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// CODELOOP_AGENT_MAX_ITERATIONS -> agent.max_iterations
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.LLM.APIKey = os.Getenv(apiKeyEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	section, field, ok := strings.Cut(key, "_")
	if !ok {
		return key
	}
	return section + "." + field
}

func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config file %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return content, nil
}
// #endregion load

// #region validate
// Validate checks struct tags, then the combinations tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("%w: %s", agent.ErrInvalidConfiguration, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", agent.ErrInvalidConfiguration, err)
	}
	if _, err := reward.WeightsFor(c.Reward.Preset); err != nil {
		return fmt.Errorf("%w: %w", agent.ErrInvalidConfiguration, err)
	}
	return nil
}
// #endregion validate

// #region conversions
func (c *Config) AgentConfig() agent.Config {
	actions := make([]agent.Action, len(c.Agent.Actions))
	for i, a := range c.Agent.Actions {
		actions[i] = agent.Action(a)
	}
	return agent.Config{Actions: actions, Alpha: c.Agent.Alpha, Gamma: c.Agent.Gamma}
}

func (c *Config) Schema() agent.Schema {
	return agent.Schema{Fields: append([]string(nil), c.Agent.Schema...)}
}

// Weights resolves the reward preset. Validate has already accepted the name.
func (c *Config) Weights() reward.Weights {
	w, err := reward.WeightsFor(c.Reward.Preset)
	if err != nil {
		return reward.StandardWeights()
	}
	return w
}

func (c *Config) EvaluateConfig() evaluate.Config {
	return evaluate.Config{MinSuccessRate: c.Evaluate.MinSuccessRate, MinAvgReward: c.Evaluate.MinAvgReward}
}
// #endregion conversions
