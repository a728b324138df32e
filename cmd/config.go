package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/nightfallstudio/bugboard/internal/logging"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "bugboard"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage bugboard configuration.

Running bare 'bugboard config' is the same as 'bugboard config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# bugboard configuration
# See: bugboard config show (for effective values and sources)

upstream:
  # Upstream tracker repository in owner/repo form (required)
  repo: "{{ .UpstreamRepo }}"
  # API token (better set via BUGBOARD_UPSTREAM_TOKEN)
  # token: ""

server:
  # Gateway listen port
  port: {{ .ServerPort }}
  # CORS origin allow-list; the first entry is the fallback origin
  allowed_origins:
    - "http://localhost:3000"

rate_limit:
  # Writes admitted per client address per window
  ceiling: {{ .RateCeiling }}
  window: "1h"

store:
  # SQLite path for persistent cache/tokens/counters; empty = in-memory
  # path: ~/.config/bugboard/bugboard.db

# Release notes YAML file, overrides upstream releases when set
# patch_notes_file: ""
`

type configTemplateData struct {
	UpstreamRepo string
	ServerPort   int
	RateCeiling  int
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	data := configTemplateData{
		UpstreamRepo: viper.GetString("upstream.repo"),
		ServerPort:   viper.GetInt("server.port"),
		RateCeiling:  viper.GetInt("rate_limit.ceiling"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
	Secret bool
}

var configKeys = []configKeyInfo{
	{Key: "upstream.repo", EnvVar: "BUGBOARD_UPSTREAM_REPO"},
	{Key: "upstream.token", EnvVar: "BUGBOARD_UPSTREAM_TOKEN", Secret: true},
	{Key: "upstream.domain", EnvVar: "BUGBOARD_UPSTREAM_DOMAIN"},
	{Key: "server.port", EnvVar: "BUGBOARD_SERVER_PORT"},
	{Key: "server.allowed_origins", EnvVar: "BUGBOARD_SERVER_ALLOWED_ORIGINS"},
	{Key: "rate_limit.ceiling", EnvVar: "BUGBOARD_RATE_LIMIT_CEILING"},
	{Key: "rate_limit.window", EnvVar: "BUGBOARD_RATE_LIMIT_WINDOW"},
	{Key: "store.path", EnvVar: "BUGBOARD_STORE_PATH"},
	{Key: "tokens.prefix", EnvVar: "BUGBOARD_TOKENS_PREFIX"},
	{Key: "triage.api_key", EnvVar: "BUGBOARD_TRIAGE_API_KEY", Secret: true},
	{Key: "patch_notes_file", EnvVar: "BUGBOARD_PATCH_NOTES_FILE"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		if k.Secret {
			val = logging.MaskSensitive(viper.GetString(k.Key))
		}
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-24s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}
