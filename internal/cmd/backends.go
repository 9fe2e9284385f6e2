package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	appconfig "github.com/Iron-Ham/quorum/internal/config"
	"github.com/Iron-Ham/quorum/internal/credentials"
	"github.com/Iron-Ham/quorum/internal/tui/styles"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List configured backends and their roles",
	Long: `List every configured backend with its provider, model, API key
status and the roles it plays (advisor, arbiter, debater).`,
	RunE: runBackends,
}

var backendsOnly []string

func init() {
	backendsCmd.Flags().StringSliceVar(&backendsOnly, "only", nil, "Show only backends whose id matches these globs")
	backendsCmd.Flags().StringSliceVar(&envFiles, "env-file", nil, "Load API keys from these dotenv files (default: .env)")
	rootCmd.AddCommand(backendsCmd)
}

// roles lists what cfg uses backend id for.
func roles(cfg *appconfig.Config, bc appconfig.BackendConfig) string {
	var r []string
	if !bc.Standby {
		r = append(r, "advisor")
	}
	named := []struct{ role, id string }{
		{"vote arbiter", cfg.Vote.Arbiter},
		{"oracle A", cfg.Debate.A},
		{"oracle B", cfg.Debate.B},
		{"committee arbiter", cfg.Committee.Arbiter},
		{"synthesis arbiter", cfg.Synthesis.Arbiter},
	}
	for _, n := range named {
		if n.id == bc.ID {
			r = append(r, n.role)
		}
	}
	if len(r) == 0 {
		return "standby"
	}
	return strings.Join(r, ", ")
}

func keyStatus(bc appconfig.BackendConfig) string {
	if bc.APIKeyEnv == "" {
		return "-"
	}
	if credentials.Lookup(bc.APIKeyEnv) == "" {
		return "missing (" + bc.APIKeyEnv + ")"
	}
	return "set"
}

func runBackends(cmd *cobra.Command, args []string) error {
	if _, err := credentials.Load(nil, envFiles...); err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	cfg, err := appconfig.Load()
	if err != nil {
		return err
	}
	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}
	if reg.Len() == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No backends configured. Run 'quorum config init' to create a config file.")
		return nil
	}
	reg, err = reg.Filter(backendsOnly)
	if err != nil {
		return err
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.BorderColor)).
		Headers("ID", "NAME", "PROVIDER", "MODEL", "API KEY", "ROLES")
	for _, id := range reg.IDs() {
		bc, ok := cfg.Backend(id)
		if !ok {
			continue
		}
		t.Row(bc.ID, bc.DisplayName(), bc.Provider, bc.Model, keyStatus(bc), roles(cfg, bc))
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	return nil
}
