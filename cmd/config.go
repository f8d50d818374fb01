package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "conflux"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage conflux configuration.

Running bare 'conflux config' is the same as 'conflux config show'.`,
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

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# conflux configuration
# See: conflux config show (for effective values and sources)

# SQLite database path (default: ~/.config/conflux/conflux.db)
# db_path: {{ .DBPath }}

gate:
  # Confidence required before a resolution is applied automatically
  threshold: {{ .Threshold }}

  # Threshold used when a manual trigger passes --force
  force_threshold: {{ .ForceThreshold }}

validation:
  # How often check runs are polled on the resolution branch
  poll_interval: "{{ .PollInterval }}"

  # How long to wait for checks before giving up
  timeout: "{{ .Timeout }}"

anthropic:
  # API key; prefer the CONFLUX_ANTHROPIC_API_KEY env var
  api_key: ""
  model: "{{ .Model }}"

# Issue tracker (optional; leave base_url empty to disable)
tracker:
  base_url: "{{ .TrackerBaseURL }}"
  email: ""
  token: ""
  cache_ttl: "{{ .TrackerCacheTTL }}"

notify:
  # Slack-compatible incoming webhook URL (optional)
  chat_webhook: ""

  # Resend email delivery (optional)
  email:
    api_key: ""
    from: ""
    to: []

serve:
  addr: "{{ .ServeAddr }}"
`

type configTemplateData struct {
	DBPath          string
	Threshold       int
	ForceThreshold  int
	PollInterval    string
	Timeout         string
	Model           string
	TrackerBaseURL  string
	TrackerCacheTTL string
	ServeAddr       string
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

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		DBPath:          viper.GetString("db_path"),
		Threshold:       viper.GetInt("gate.threshold"),
		ForceThreshold:  viper.GetInt("gate.force_threshold"),
		PollInterval:    viper.GetString("validation.poll_interval"),
		Timeout:         viper.GetString("validation.timeout"),
		Model:           viper.GetString("anthropic.model"),
		TrackerBaseURL:  viper.GetString("tracker.base_url"),
		TrackerCacheTTL: viper.GetString("tracker.cache_ttl"),
		ServeAddr:       viper.GetString("serve.addr"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	// Create config directory
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
}

var configKeys = []configKeyInfo{
	{Key: "db_path", EnvVar: "CONFLUX_DB_PATH"},
	{Key: "gate.threshold", EnvVar: "CONFLUX_GATE_THRESHOLD"},
	{Key: "gate.force_threshold", EnvVar: "CONFLUX_GATE_FORCE_THRESHOLD"},
	{Key: "validation.poll_interval", EnvVar: "CONFLUX_VALIDATION_POLL_INTERVAL"},
	{Key: "validation.timeout", EnvVar: "CONFLUX_VALIDATION_TIMEOUT"},
	{Key: "anthropic.model", EnvVar: "CONFLUX_ANTHROPIC_MODEL"},
	{Key: "tracker.base_url", EnvVar: "CONFLUX_TRACKER_BASE_URL"},
	{Key: "tracker.cache_ttl", EnvVar: "CONFLUX_TRACKER_CACHE_TTL"},
	{Key: "notify.chat_webhook", EnvVar: "CONFLUX_NOTIFY_CHAT_WEBHOOK"},
	{Key: "serve.addr", EnvVar: "CONFLUX_SERVE_ADDR"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-26s %v  %s\n", k.Key, val, source)
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

	// Flatten nested keys with dot notation
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

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set — set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'conflux config init' first)", cfgPath)
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
