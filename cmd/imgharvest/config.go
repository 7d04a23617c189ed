package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"imgharvest/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage imgharvest configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (IMGHARVEST_*, also read from .env)
  - Configuration file
  - Default values (lowest priority)`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created in the current directory as '.imgharvest.yaml'
unless a different path is specified with the --config flag.`,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging every source.

The vault passphrase is never printed.`,
	RunE: runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Value types and ranges
  - Cookie source accessibility
  - Log file path`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# imgharvest configuration file
#
# Every option can also be set through IMGHARVEST_* environment variables,
# for example IMGHARVEST_MIN_DIM or IMGHARVEST_COOKIES_FILE.

# Static HTML/JSON extraction (MercadoLibre style pages)
static:
  max_retries: 3
  base_delay: 1s
  request_timeout: 30s
  # Class carried by listing photos
  photo_class: ui-pdp-image
  lazy_attribute: data-src
  zoom_attribute: data-zoom

# Interactive gallery crawling (Facebook Marketplace style pages)
interactive:
  # Only images with a width or height inside this band are kept
  min_dim: 860
  max_dim: 980
  # Consecutive steps without new images before the crawl stops
  max_attempts: 10
  # Hard cap on gallery steps
  max_steps: 50
  cdn_marker: scontent
  gallery_selector: img
  next_selector: 'div[aria-label="Siguiente"], div[aria-label="Next"]'
  navigate_timeout: 20s
  wait_timeout: 10s
  settle_delay: 3s
  step_delay: 1s

browser:
  headless: true
  no_sandbox: true
  viewport_width: 1920
  viewport_height: 1080
  user_agent: ""
  # Leave empty to let chromedp find Chrome
  exec_path: ""

filter:
  pool_size: 100
  request_timeout: 5s
  # 0 disables rate limiting
  requests_per_second: 0
  # 0 disables the dimension cache
  cache_ttl: 0s

# Session cookies for interactive pages. The first configured source wins:
# keyring_account, then vault (unlocked by IMGHARVEST_PASSPHRASE), then file.
cookies:
  file: ""
  keyring_account: ""
  vault: ""

logging:
  # debug, info, warn, error or disabled
  level: info
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".imgharvest.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	ui.PrintHighlight("Next steps:")
	ui.PrintList([]string{
		"Point cookies.file or cookies.keyring_account at your session cookies",
		"Run 'imgharvest config validate' to check the configuration",
		"Run 'imgharvest extract <url>'",
	})
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))

	ui.PrintHighlight("Configuration sources (in order of priority):")
	source := "(none found)"
	if configFile != "" {
		source = configFile
	}
	ui.PrintList([]string{
		"Command line flags",
		"Environment variables (IMGHARVEST_*)",
		"Configuration file: " + source,
		"Default values",
	})
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		ui.PrintInfo("Validating configuration", configFile)
	}

	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	var warnings, problems []string

	if cfg.Cookies.File == "" && cfg.Cookies.KeyringAccount == "" && cfg.Cookies.Vault == "" {
		warnings = append(warnings, "no cookie source configured, interactive listings may hide their gallery")
	}
	if cfg.Cookies.File != "" {
		if _, err := os.Stat(cfg.Cookies.File); err != nil {
			problems = append(problems, fmt.Sprintf("cookie file not readable: %v", err))
		}
	}
	if cfg.Browser.ExecPath != "" {
		if _, err := os.Stat(cfg.Browser.ExecPath); err != nil {
			problems = append(problems, fmt.Sprintf("browser executable not found: %v", err))
		}
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}

	if len(problems) > 0 {
		ui.PrintError("Configuration has errors")
		ui.PrintList(problems)
		return fmt.Errorf("%d configuration problems", len(problems))
	}
	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings")
		ui.PrintList(warnings)
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintInfo("Static retries", fmt.Sprintf("%d (base delay %s)", cfg.Static.MaxRetries, cfg.Static.BaseDelay))
	ui.PrintInfo("Dimension band", fmt.Sprintf("%d-%d px", cfg.Interactive.MinDim, cfg.Interactive.MaxDim))
	ui.PrintInfo("Filter pool", fmt.Sprintf("%d workers", cfg.Filter.PoolSize))
	ui.PrintInfo("Log level", cfg.Logging.Level)
	return nil
}
