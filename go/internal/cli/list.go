package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcdev12/scrumdinger/go/internal/models"
	"github.com/mcdev12/scrumdinger/go/internal/output"
)

func NewListCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured scrums",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())

			scrums := append([]models.DailyScrum(nil), deps.Scrums...)
			models.SortByTitle(scrums)

			formatter.ScrumListHeader()
			for _, s := range scrums {
				formatter.ScrumListItem(s)
			}
			return nil
		},
	}
}

func NewThemesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "themes",
		Short: "List available themes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())
			for _, t := range models.AllThemes {
				formatter.ThemeListItem(t)
			}
			return nil
		},
	}
}
