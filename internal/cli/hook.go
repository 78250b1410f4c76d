package cli

import (
	"github.com/spf13/cobra"

	"github.com/lazypower/instinct/internal/config"
	"github.com/lazypower/instinct/internal/hooks"
	"github.com/lazypower/instinct/internal/instincts"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Handle Claude Code hook events",
	// Hooks must never fail the caller, so a bad config falls back to defaults.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setup(cmd, args); err != nil {
			cfg = config.Default()
			if home, herr := config.DefaultHome(); herr == nil {
				cfg.Home = home
			}
			if flagHome != "" {
				cfg.Home = flagHome
			}
		}
		return nil
	},
}

var hookStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Handle SessionStart hook",
	Run: func(cmd *cobra.Command, args []string) {
		runHook(cmd, "start")
	},
}

var hookObserveCmd = &cobra.Command{
	Use:   "observe",
	Short: "Handle PostToolUse hook",
	Run: func(cmd *cobra.Command, args []string) {
		runHook(cmd, "observe")
	},
}

func init() {
	hookCmd.AddCommand(hookStartCmd)
	hookCmd.AddCommand(hookObserveCmd)
}

func runHook(cmd *cobra.Command, event string) {
	h := &hooks.Handler{
		Log:           observationLog(),
		Dir:           instinctsDir(),
		MinConfidence: instincts.DefaultContextConfidence,
	}
	if err := h.Handle(event, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
		hooks.ExitError(err)
	}
}
