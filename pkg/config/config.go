// Package config loads the CLI configuration: API key sourcing, audio
// parameters, per-mode conversation presets, and the role-play scenario
// catalog. Built-in defaults cover every field, so a config file is
// optional and may override any subset.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fluentloop/fluentloop/pkg/core"
	"github.com/fluentloop/fluentloop/pkg/core/live"
)

// Mode names accepted by the CLI.
const (
	ModePractice   = "practice"
	ModeEndless    = "endless"
	ModeScenario   = "scenario"
	ModeCorrection = "correction"
	ModeConverter  = "converter"
)

// AudioConfig holds capture and playback parameters shared by all modes.
type AudioConfig struct {
	InputSampleRate  int `yaml:"input_sample_rate"`
	OutputSampleRate int `yaml:"output_sample_rate"`
	BlockSize        int `yaml:"block_size"`
}

// DataConfig locates the local history database.
type DataConfig struct {
	Path string `yaml:"path"`
}

// ModeConfig is one conversation preset. SystemInstruction may contain a
// %s placeholder that the endless mode fills with the current topic.
type ModeConfig struct {
	Voice             string `yaml:"voice"`
	SystemInstruction string `yaml:"system_instruction"`
	ScorePolicy       string `yaml:"score_policy"`
}

// Scenario is one role-play setup for scenario mode.
type Scenario struct {
	ID                string `yaml:"id"`
	Title             string `yaml:"title"`
	Description       string `yaml:"description"`
	Difficulty        string `yaml:"difficulty"`
	SystemInstruction string `yaml:"system_instruction"`
}

// Config is the root of the YAML file.
type Config struct {
	APIKeyEnv  string                `yaml:"api_key_env"`
	Model      string                `yaml:"model"`
	CoachModel string                `yaml:"coach_model"`
	LogLevel   string                `yaml:"log_level"`
	Audio      AudioConfig           `yaml:"audio"`
	Data       DataConfig            `yaml:"data"`
	Modes      map[string]ModeConfig `yaml:"modes"`
	Scenarios  []Scenario            `yaml:"scenarios"`
}

// Default returns the built-in presets for all four modes.
func Default() Config {
	return Config{
		APIKeyEnv:  "GEMINI_API_KEY",
		Model:      "gemini-2.5-flash-native-audio-preview-09-2025",
		CoachModel: "gemini-2.5-flash",
		LogLevel:   "info",
		Audio: AudioConfig{
			InputSampleRate:  16000,
			OutputSampleRate: 24000,
			BlockSize:        2048,
		},
		Data: DataConfig{
			Path: "./fluentloop.db",
		},
		Modes: map[string]ModeConfig{
			ModePractice: {
				Voice:             "Puck",
				SystemInstruction: "You are a helpful, friendly English language tutor. Engage in a casual conversation. Keep responses concise and natural.",
				ScorePolicy:       "per_turn",
			},
			ModeEndless: {
				Voice:             "Fenrir",
				SystemInstruction: "You are an engaging conversational partner. We are discussing the topic: \"%s\". Start the conversation by asking me an interesting question about this topic. Keep the conversation flowing naturally. Correct me gently if I make big mistakes.",
				ScorePolicy:       "per_turn",
			},
			ModeScenario: {
				Voice:       "Kore",
				ScorePolicy: "per_turn",
			},
			ModeCorrection: {
				Voice:             "Puck",
				SystemInstruction: "You are a transcriber. Listen to the user and do nothing else.",
				ScorePolicy:       "off",
			},
			ModeConverter: {
				Voice:             "Puck",
				SystemInstruction: "You are a transcriber. Accurately transcribe mixed Hindi-English or broken English exactly as spoken.",
				ScorePolicy:       "off",
			},
		},
		Scenarios: []Scenario{
			{
				ID:                "job-interview",
				Title:             "Job Interview",
				Description:       "Practice answering common questions for a software engineering role.",
				Difficulty:        "Advanced",
				SystemInstruction: "You are a hiring manager at a top tech company. Conduct a formal job interview. Start by asking the candidate to introduce themselves. Then ask about their experience, strengths, weaknesses, and a technical challenge they solved. Be professional but challenging.",
			},
			{
				ID:                "visa-interview",
				Title:             "Visa Interview",
				Description:       "Prepare for a consular interview for travel or work.",
				Difficulty:        "Intermediate",
				SystemInstruction: "You are a strict visa consular officer. The user is applying for a visa. Ask short, direct questions about the purpose of their trip, how long they will stay, their funding source, and their ties to their home country. Be skeptical and formal.",
			},
			{
				ID:                "customer-support",
				Title:             "Customer Support",
				Description:       "Handle a frustrated customer complaining about a broken product.",
				Difficulty:        "Intermediate",
				SystemInstruction: "You are a frustrated customer named Alex. You bought a coffee machine last week and it stopped working today. You are annoyed and want a refund or immediate replacement. The user is the support agent. React based on how empathetic and helpful they are.",
			},
			{
				ID:                "restaurant",
				Title:             "Restaurant Order",
				Description:       "Order a meal and ask about recommendations and allergies.",
				Difficulty:        "Beginner",
				SystemInstruction: "You are a friendly waiter at a busy bistro. Welcome the guest (the user), hand them the menu, and ask for their drink order. Later, take their food order. If they ask for recommendations, suggest the pasta or the salmon. Be polite and patient.",
			},
			{
				ID:                "tech-meeting",
				Title:             "Tech Standup",
				Description:       "Give your status update in a daily team meeting.",
				Difficulty:        "Intermediate",
				SystemInstruction: "You are a Product Manager running a daily standup meeting. Ask the user (a developer) what they worked on yesterday, what they are doing today, and if they have any blockers. Ask follow-up questions if their updates are vague.",
			},
			{
				ID:                "sales-pitch",
				Title:             "Sales Pitch",
				Description:       "Persuade a potential client to buy your new software.",
				Difficulty:        "Advanced",
				SystemInstruction: "You are a skeptical business owner potentially interested in buying new software to manage inventory. The user is a salesperson pitching their product. Ask tough questions about price, implementation time, and why it's better than Excel. Make them work for the sale.",
			},
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path means
// defaults only. User-supplied modes and scenarios merge with, rather than
// replace, the built-in sets.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, core.NewInvalidRequestError(fmt.Sprintf("config file not found: %s", path))
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		var file Config
		if err := yaml.Unmarshal(data, &file); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
		merge(&cfg, file)
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func merge(cfg *Config, file Config) {
	if file.APIKeyEnv != "" {
		cfg.APIKeyEnv = file.APIKeyEnv
	}
	if file.Model != "" {
		cfg.Model = file.Model
	}
	if file.CoachModel != "" {
		cfg.CoachModel = file.CoachModel
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if file.Audio.InputSampleRate != 0 {
		cfg.Audio.InputSampleRate = file.Audio.InputSampleRate
	}
	if file.Audio.OutputSampleRate != 0 {
		cfg.Audio.OutputSampleRate = file.Audio.OutputSampleRate
	}
	if file.Audio.BlockSize != 0 {
		cfg.Audio.BlockSize = file.Audio.BlockSize
	}
	if file.Data.Path != "" {
		cfg.Data.Path = file.Data.Path
	}
	for name, mode := range file.Modes {
		base := cfg.Modes[name]
		if mode.Voice != "" {
			base.Voice = mode.Voice
		}
		if mode.SystemInstruction != "" {
			base.SystemInstruction = mode.SystemInstruction
		}
		if mode.ScorePolicy != "" {
			base.ScorePolicy = mode.ScorePolicy
		}
		cfg.Modes[name] = base
	}
	for _, sc := range file.Scenarios {
		replaced := false
		for i := range cfg.Scenarios {
			if cfg.Scenarios[i].ID == sc.ID {
				cfg.Scenarios[i] = sc
				replaced = true
				break
			}
		}
		if !replaced {
			cfg.Scenarios = append(cfg.Scenarios, sc)
		}
	}
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.APIKeyEnv, "FLUENTLOOP_API_KEY_ENV")
	overrideString(&cfg.Model, "FLUENTLOOP_MODEL")
	overrideString(&cfg.CoachModel, "FLUENTLOOP_COACH_MODEL")
	overrideString(&cfg.LogLevel, "FLUENTLOOP_LOG_LEVEL")
	overrideString(&cfg.Data.Path, "FLUENTLOOP_DATA_PATH")
	overrideInt(&cfg.Audio.InputSampleRate, "FLUENTLOOP_INPUT_SAMPLE_RATE")
	overrideInt(&cfg.Audio.OutputSampleRate, "FLUENTLOOP_OUTPUT_SAMPLE_RATE")
	overrideInt(&cfg.Audio.BlockSize, "FLUENTLOOP_BLOCK_SIZE")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.Model == "" {
		return core.NewInvalidRequestErrorWithParam("model must not be empty", "model")
	}
	if cfg.Audio.InputSampleRate <= 0 || cfg.Audio.OutputSampleRate <= 0 {
		return core.NewInvalidRequestErrorWithParam("sample rates must be positive", "audio")
	}
	for name, mode := range cfg.Modes {
		if _, err := ParseScorePolicy(mode.ScorePolicy); err != nil {
			return core.NewInvalidRequestErrorWithParam(
				fmt.Sprintf("mode %q: %s", name, err.Error()), "modes")
		}
	}
	return nil
}

// Mode returns the preset for one of the known mode names.
func (c Config) Mode(name string) (ModeConfig, error) {
	mode, ok := c.Modes[name]
	if !ok {
		return ModeConfig{}, core.NewInvalidRequestErrorWithParam(
			fmt.Sprintf("unknown mode %q", name), "mode")
	}
	return mode, nil
}

// ScenarioByID returns the scenario with the given ID.
func (c Config) ScenarioByID(id string) (Scenario, error) {
	for _, sc := range c.Scenarios {
		if sc.ID == id {
			return sc, nil
		}
	}
	return Scenario{}, core.NewInvalidRequestErrorWithParam(
		fmt.Sprintf("unknown scenario %q", id), "scenario")
}

// APIKey resolves the key from the configured environment variable.
func (c Config) APIKey() (string, error) {
	key := strings.TrimSpace(os.Getenv(c.APIKeyEnv))
	if key == "" {
		return "", core.NewInvalidRequestError(
			fmt.Sprintf("environment variable %s is not set", c.APIKeyEnv))
	}
	return key, nil
}

// ParseScorePolicy maps the YAML string form onto the session policy.
func ParseScorePolicy(s string) (live.ScorePolicy, error) {
	switch s {
	case "", "per_turn":
		return live.ScorePerTurn, nil
	case "session_end":
		return live.ScoreSessionEnd, nil
	case "off":
		return live.ScoreOff, nil
	default:
		return live.ScorePerTurn, fmt.Errorf("invalid score_policy %q", s)
	}
}

// LiveConfig builds a session configuration from a mode preset. The
// instruction argument, when non-empty, replaces the preset's instruction;
// endless and scenario modes supply it at start time.
func (c Config) LiveConfig(mode ModeConfig, instruction string) live.Config {
	sc := live.DefaultConfig()
	sc.Model = c.Model
	sc.Voice = mode.Voice
	sc.SystemInstruction = mode.SystemInstruction
	if instruction != "" {
		sc.SystemInstruction = instruction
	}
	sc.InputSampleRate = c.Audio.InputSampleRate
	sc.OutputSampleRate = c.Audio.OutputSampleRate
	sc.BlockSize = c.Audio.BlockSize
	policy, err := ParseScorePolicy(mode.ScorePolicy)
	if err == nil {
		sc.ScorePolicy = policy
	}
	return sc
}
