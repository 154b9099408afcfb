package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fwojciec/ponder/fs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	configDirName  = ".ponder"
	configFileName = "config.toml"
	logFileName    = "ponder.log"
	envPrefix      = "PONDER"
)

// Config is the resolved configuration.
type Config struct {
	Backend BackendConfig `toml:"backend"`
	Gemini  GeminiConfig  `toml:"gemini"`
	Render  RenderConfig  `toml:"render"`
	Chat    ChatConfig    `toml:"chat"`
	Log     LogConfig     `toml:"log"`
	Upload  UploadConfig  `toml:"upload"`
}

type BackendConfig struct {
	Kind string `toml:"kind"`
	URL  string `toml:"url"`
}

type GeminiConfig struct {
	APIKey         string `toml:"api_key,omitempty"`
	Model          string `toml:"model"`
	ReasoningModel string `toml:"reasoning_model"`
}

type RenderConfig struct {
	Engine    string `toml:"engine"`
	Style     string `toml:"style"`
	CodeStyle string `toml:"code_style"`
}

type ChatConfig struct {
	Reasoning bool `toml:"reasoning"`
}

type LogConfig struct {
	File  string `toml:"file,omitempty"`
	JSON  bool   `toml:"json"`
	Debug bool   `toml:"debug"`
}

type UploadConfig struct {
	MaxBytes int64 `toml:"max_bytes"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		Backend: BackendConfig{Kind: "http", URL: "http://localhost:5000"},
		Gemini: GeminiConfig{
			Model:          "gemini-2.5-flash",
			ReasoningModel: "gemini-2.5-pro",
		},
		Render: RenderConfig{Engine: "goldmark", Style: "auto", CodeStyle: "monokai"},
		Upload: UploadConfig{MaxBytes: fs.DefaultMaxBytes},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("backend.kind", d.Backend.Kind)
	v.SetDefault("backend.url", d.Backend.URL)

	v.SetDefault("gemini.api_key", d.Gemini.APIKey)
	v.SetDefault("gemini.model", d.Gemini.Model)
	v.SetDefault("gemini.reasoning_model", d.Gemini.ReasoningModel)

	v.SetDefault("render.engine", d.Render.Engine)
	v.SetDefault("render.style", d.Render.Style)
	v.SetDefault("render.code_style", d.Render.CodeStyle)

	v.SetDefault("chat.reasoning", d.Chat.Reasoning)

	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("log.debug", d.Log.Debug)

	v.SetDefault("upload.max_bytes", d.Upload.MaxBytes)
}

// initViper layers defaults, config.toml in dir and PONDER_ environment
// variables. Flags are bound on top by bindFlags.
func initViper(dir string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		// A missing file leaves the defaults in place.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v, nil
}

// flagKeys maps persistent flag names to config keys.
var flagKeys = map[string]string{
	"backend":   "backend.kind",
	"url":       "backend.url",
	"renderer":  "render.engine",
	"reasoning": "chat.reasoning",
	"debug":     "log.debug",
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func loadConfig(v *viper.Viper) Config {
	return Config{
		Backend: BackendConfig{
			Kind: v.GetString("backend.kind"),
			URL:  v.GetString("backend.url"),
		},
		Gemini: GeminiConfig{
			APIKey:         v.GetString("gemini.api_key"),
			Model:          v.GetString("gemini.model"),
			ReasoningModel: v.GetString("gemini.reasoning_model"),
		},
		Render: RenderConfig{
			Engine:    v.GetString("render.engine"),
			Style:     v.GetString("render.style"),
			CodeStyle: v.GetString("render.code_style"),
		},
		Chat: ChatConfig{Reasoning: v.GetBool("chat.reasoning")},
		Log: LogConfig{
			File:  v.GetString("log.file"),
			JSON:  v.GetBool("log.json"),
			Debug: v.GetBool("log.debug"),
		},
		Upload: UploadConfig{MaxBytes: v.GetInt64("upload.max_bytes")},
	}
}

// resolveConfigDir returns override, or ~/.ponder when it is empty.
func resolveConfigDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving config dir: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

// writeConfig encodes cfg as config.toml in dir. An existing file is only
// replaced when force is set.
func writeConfig(dir string, cfg Config, force bool) (string, error) {
	path := filepath.Join(dir, configFileName)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	var buf bytes.Buffer
	if err := encodeConfig(&buf, cfg); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return "", fmt.Errorf("writing config: %w", err)
	}
	return path, nil
}

func encodeConfig(w io.Writer, cfg Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}
