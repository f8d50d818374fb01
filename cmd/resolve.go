package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mattsre/conflux/internal/orchestrator"
	"github.com/mattsre/conflux/internal/output"
)

var resolveForce bool

var resolveCmd = &cobra.Command{
	Use:   "resolve <owner>/<repo> <pr-number>",
	Short: "Trigger conflict resolution for a pull request",
	Long: `Runs the full resolution pipeline against one pull request, the same
path a webhook trigger takes. Does nothing when the host does not
report the pull request as conflicted.

With --force the confidence threshold is lowered for this run, letting
the pipeline apply resolutions it would otherwise escalate.`,
	Args: cobra.ExactArgs(2),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveForce, "force", false, "Lower the confidence threshold for this run")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	owner, repo, ok := strings.Cut(args[0], "/")
	if !ok || owner == "" || repo == "" {
		return fmt.Errorf("repository must be <owner>/<repo>, got %q", args[0])
	}
	number, err := strconv.Atoi(args[1])
	if err != nil || number <= 0 {
		return fmt.Errorf("invalid pull request number %q", args[1])
	}

	orch, err := buildOrchestrator()
	if err != nil {
		return err
	}
	defer func() {
		if dataStore != nil {
			_ = dataStore.Close()
		}
	}()

	command := orchestrator.ResolveCommand
	if resolveForce {
		command += " --force"
	}

	ui.Info("resolving conflicts on %s/%s#%d", owner, repo, number)
	session, err := orch.HandleManualCommand(cmd.Context(), owner, repo, number, command)
	if err != nil {
		return err
	}
	if session == nil {
		ui.Info("pull request is not conflicted; nothing to do")
		return nil
	}

	ui.Success("session %s finished: %s", session.ID, output.OutcomeColor(session.Outcome))
	if session.Branch != "" {
		ui.Info("resolution branch: %s", session.Branch)
	}
	if session.LastError != "" {
		ui.Warning("last error: %s", session.LastError)
	}
	return nil
}
