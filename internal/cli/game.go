package cli

import (
	"github.com/spf13/cobra"

	"github.com/truenumber/truenumber-cli/internal/guard"
	"github.com/truenumber/truenumber-cli/internal/model"
)

func newPlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Generate a number and find out if you won",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireCapability(guard.CapabilityAuthenticated); err != nil {
				return err
			}

			outcome, err := app.Game.Play(cmd.Context())
			if err != nil {
				return err
			}

			out.Print(*outcome)
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show game history (yours, or everyone's with --all)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				if err := requireCapability(guard.CapabilityAdmin); err != nil {
					return err
				}
				records, err := app.Admin.FetchAllHistory(cmd.Context())
				if err != nil {
					return err
				}
				out.Print(HistoryView{Scope: model.AllScope(), Records: records})
				return nil
			}

			if err := requireCapability(guard.CapabilityAuthenticated); err != nil {
				return err
			}
			records, err := app.Game.LoadHistory(cmd.Context(), model.SelfScope())
			if err != nil {
				return err
			}
			out.Print(HistoryView{Scope: model.SelfScope(), Records: records})
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Global history across all users (admin)")

	return cmd
}
