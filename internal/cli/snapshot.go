package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"quiz-session-service/internal/config"

	"github.com/spf13/cobra"
)

var errMemorySnapshots = errors.New("snapshot show needs a shared store: the memory driver only lives inside the server process; configure snapshot.driver as redis, postgres or sqlite")

// NewSnapshotCmd groups snapshot inspection commands.
func NewSnapshotCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect persisted session snapshots",
	}
	cmd.AddCommand(newSnapshotShowCmd(configPath))
	return cmd
}

func newSnapshotShowCmd(configPath *string) *cobra.Command {
	var quizID, user string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored snapshot for a quiz and participant",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.SnapshotDriver() == config.DriverMemory {
				return errMemorySnapshots
			}
			b, err := openBackends(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			snap, ok, err := newService(b, cfg).Snapshot(cmd.Context(), quizID, user)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "no snapshot for quiz %s and %s\n", quizID, user)
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
	cmd.Flags().StringVar(&quizID, "quiz", "", "quiz id")
	cmd.Flags().StringVar(&user, "user", "local", "participant identity")
	_ = cmd.MarkFlagRequired("quiz")
	return cmd
}
