// Package config provides CLI commands for managing quorum configuration.
package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	appconfig "github.com/Iron-Ham/quorum/internal/config"
)

// Wrapper functions for exec and the file system to allow testing
var (
	execLookPath = exec.LookPath
	execCommand  = exec.Command
	fs           = afero.NewOsFs()
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify quorum configuration",
	Long: `View or modify quorum configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  quorum config set dispatch.max_parallel 4
  quorum config set vote.mode arbiter
  quorum config set debate.rounds 5

Valid keys:
  dispatch.max_parallel        - Max concurrent backend calls (0 = all)
  dispatch.call_timeout_seconds - Per-call timeout in seconds
  dispatch.system_prompt       - Default system prompt
  vote.mode                    - tally or arbiter
  vote.arbiter                 - Backend id that settles ambiguous votes
  debate.a / debate.b          - Backend ids of the two oracles
  debate.rounds                - Rounds per debate (2 turns each)
  debate.on_turn_failure       - placeholder or terminate
  committee.arbiter            - Backend id of the committee arbiter
  synthesis.arbiter            - Backend id that writes the final answer
  logging.enabled              - Write a debug log (true/false)
  logging.level                - debug, info, warn or error
  logging.dir                  - Log directory
  logging.max_size_mb          - Rotate the log at this size
  logging.max_backups          - Rotated logs to keep
  output.format                - html, terminal, text or json
  output.open_browser          - Open the HTML page (true/false)
  output.dir                   - Where HTML pages are written`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/quorum/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in your editor",
	Long: `Open the config file in your preferred editor.

Uses $EDITOR environment variable, or falls back to common editors (vim, nano, vi).
If no config file exists, creates one with default values first.`,
	RunE: runConfigEdit,
}

var forceInit bool

func init() {
	configInitCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configEditCmd)
}

// Register adds all config-related commands to the given parent command.
func Register(parent *cobra.Command) {
	parent.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := appconfig.Load()
	if err != nil {
		fmt.Fprintf(out, "Warning: %v\nShowing defaults.\n\n", err)
		cfg = appconfig.Default()
	}

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "# Config file: (none - using defaults)\n")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	_, err = out.Write(data)
	return err
}

// keyKinds maps each settable key to how its value is parsed.
var keyKinds = map[string]string{
	"dispatch.max_parallel":         "int",
	"dispatch.call_timeout_seconds": "int",
	"dispatch.system_prompt":        "string",
	"vote.mode":                     "vote_mode",
	"vote.arbiter":                  "backend",
	"debate.a":                      "backend",
	"debate.b":                      "backend",
	"debate.rounds":                 "int",
	"debate.on_turn_failure":        "turn_failure",
	"committee.arbiter":             "backend",
	"synthesis.arbiter":             "backend",
	"logging.enabled":               "bool",
	"logging.level":                 "log_level",
	"logging.dir":                   "string",
	"logging.max_size_mb":           "int",
	"logging.max_backups":           "int",
	"output.format":                 "format",
	"output.open_browser":           "bool",
	"output.dir":                    "string",
}

func oneOf(key, value string, valid []string) (any, error) {
	if !slices.Contains(valid, value) {
		return nil, fmt.Errorf("invalid value for %s: %s\nValid options: %s",
			key, value, strings.Join(valid, ", "))
	}
	return value, nil
}

// parseValue validates value for key and converts it to its typed form.
func parseValue(key, value string) (any, error) {
	kind, ok := keyKinds[key]
	if !ok {
		return nil, fmt.Errorf("unknown configuration key: %s\nRun 'quorum config set --help' to see valid keys", key)
	}

	switch kind {
	case "vote_mode":
		return oneOf(key, value, appconfig.ValidVoteModes())
	case "turn_failure":
		return oneOf(key, value, appconfig.ValidTurnFailurePolicies())
	case "log_level":
		return oneOf(key, strings.ToLower(value), appconfig.ValidLogLevels())
	case "format":
		return oneOf(key, value, appconfig.ValidOutputFormats())
	case "backend":
		if _, ok := appconfig.Get().Backend(value); !ok {
			return nil, fmt.Errorf("invalid value for %s: no backend with id %q\nRun 'quorum backends' to list them", key, value)
		}
		return value, nil
	case "bool":
		if value != "true" && value != "false" {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return value == "true", nil
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if intVal < 0 {
			return nil, fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		return intVal, nil
	default:
		return value, nil
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	typedValue, err := parseValue(key, args[1])
	if err != nil {
		return err
	}

	// Ensure config directory exists
	if err := fs.MkdirAll(appconfig.ConfigDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	viper.Set(key, typedValue)

	configFile := appconfig.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", configFile)
	return nil
}

const configHeader = `# quorum configuration
#
# backends: every entry is an advisor; standby entries only serve as
#   arbiters or debaters. api_key_env names the variable holding the key
#   (read from the environment or a .env file).
# vote.mode: tally counts ballots and asks the arbiter only when the
#   vote is ambiguous; arbiter always lets vote.arbiter decide.
# debate.on_turn_failure: placeholder records the failed turn and goes
#   on; terminate stops the debate.
# output.format: html, terminal, text or json.

`

// DefaultFileContent returns the commented default config file.
func DefaultFileContent() ([]byte, error) {
	data, err := yaml.Marshal(appconfig.Default())
	if err != nil {
		return nil, err
	}
	return append([]byte(configHeader), data...), nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configFile := appconfig.ConfigFile()

	exists, err := afero.Exists(fs, configFile)
	if err != nil {
		return fmt.Errorf("failed to check config file: %w", err)
	}
	if exists && !forceInit {
		return fmt.Errorf("config file already exists at %s\nUse 'quorum config set' to modify values or --force to overwrite", configFile)
	}

	if err := fs.MkdirAll(appconfig.ConfigDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := DefaultFileContent()
	if err != nil {
		return fmt.Errorf("failed to encode default config: %w", err)
	}
	if err := afero.WriteFile(fs, configFile, content, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	fmt.Fprintln(cmd.OutOrStdout(), "Edit this file to declare backends and choose arbiters.")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := appconfig.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(appconfig.ConfigDir(), "config.yaml"))
	fmt.Fprintf(out, "  2. ./config.yaml (current directory)\n")
	fmt.Fprintln(out, "\nEnvironment variables: QUORUM_* (e.g., QUORUM_DISPATCH_MAX_PARALLEL)")
	return nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	configFile := appconfig.ConfigFile()

	exists, err := afero.Exists(fs, configFile)
	if err != nil {
		return fmt.Errorf("failed to check config file: %w", err)
	}
	if !exists {
		fmt.Fprintln(cmd.OutOrStdout(), "Config file doesn't exist, creating with defaults...")
		if err := runConfigInit(cmd, args); err != nil {
			return err
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		for _, e := range []string{"vim", "nano", "vi"} {
			if _, err := execLookPath(e); err == nil {
				editor = e
				break
			}
		}
	}
	if editor == "" {
		return fmt.Errorf("no editor found. Set $EDITOR environment variable")
	}

	editorCmd := execCommand(editor, configFile)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor exited with error: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Config file saved: %s\n", configFile)
	return nil
}
