package cli

import (
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/mcdev12/scrumdinger/go/internal/config"
	"github.com/mcdev12/scrumdinger/go/internal/models"
)

type Dependencies struct {
	Config *config.Config
	Scrums []models.DailyScrum
	Clock  clockwork.Clock // nil means the real clock
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "scrumdinger",
		Short:         "Run timed daily scrum meetings",
		Long:          "Keeps a daily scrum on schedule: the meeting length is split evenly between attendees and the timer moves the floor along when a speaker's time is up.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewListCmd(deps))
	rootCmd.AddCommand(NewThemesCmd())
	rootCmd.AddCommand(NewRunCmd(deps))

	return rootCmd
}
