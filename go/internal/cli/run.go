package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mcdev12/scrumdinger/go/internal/config"
	"github.com/mcdev12/scrumdinger/go/internal/models"
	"github.com/mcdev12/scrumdinger/go/internal/output"
	"github.com/mcdev12/scrumdinger/go/internal/scrum/display"
	"github.com/mcdev12/scrumdinger/go/internal/scrum/timer"
)

const defaultAdHocMinutes = 5

func NewRunCmd(deps *Dependencies) *cobra.Command {
	var minutes int
	var attendees []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "run [title]",
		Short: "Run a meeting timer",
		Long:  "Run the turn timer for a configured scrum, or for an ad-hoc meeting built from --minutes and --attendee.\nPress Enter (or 's') to skip to the next speaker and 'q' to end the meeting.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scrum, err := resolveScrum(deps, args, minutes, cmd.Flags().Changed("minutes"), attendees)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runMeeting(ctx, deps, scrum, jsonOut, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&minutes, "minutes", "m", defaultAdHocMinutes, "Meeting length in minutes")
	cmd.Flags().StringArrayVarP(&attendees, "attendee", "a", nil, "Attendee name (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print timer events as JSON lines")

	return cmd
}

func resolveScrum(deps *Dependencies, args []string, minutes int, minutesSet bool, attendees []string) (models.DailyScrum, error) {
	if minutes < 0 {
		return models.DailyScrum{}, fmt.Errorf("--minutes must not be negative, got %d", minutes)
	}

	var scrum models.DailyScrum
	if len(args) == 1 {
		found, err := config.FindScrum(deps.Scrums, args[0])
		if err != nil {
			return models.DailyScrum{}, err
		}
		scrum = found
		if minutesSet {
			scrum.LengthInMinutes = minutes
		}
	} else {
		scrum = models.NewDailyScrum("Daily Scrum", nil, minutes, models.ThemeSeafoam)
	}

	if len(attendees) > 0 {
		data := scrum.Data()
		data.Attendees = nil
		for _, name := range attendees {
			if _, err := data.AddAttendee(name); err != nil {
				return models.DailyScrum{}, fmt.Errorf("invalid --attendee: %w", err)
			}
		}
		scrum.Attendees = data.Attendees
	}
	return scrum, nil
}

func runMeeting(ctx context.Context, deps *Dependencies, scrum models.DailyScrum, jsonOut bool, in io.Reader, out io.Writer) error {
	formatter := output.NewFormatter(out)
	metrics := &timer.CountingMetrics{}

	// The action runs off the render loop; hand it over so only the loop writes.
	bells := make(chan struct{}, 1)
	opts := []timer.Option{
		timer.WithMetrics(metrics),
		timer.WithSpeakerChangedAction(func() {
			select {
			case bells <- struct{}{}:
			default:
			}
		}),
	}
	if deps.Config != nil {
		opts = append(opts, timer.WithFrequency(deps.Config.TickFrequency()))
	}
	if deps.Clock != nil {
		opts = append(opts, timer.WithClock(deps.Clock))
	}

	tm := timer.New(scrum.LengthInMinutes, scrum.AttendeeNames(), opts...)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := tm.Run(runCtx); err != nil {
			log.Error().Err(err).Str("timer_id", tm.ID()).Msg("turn timer loop failed")
		}
	}()

	updates, unsubscribe, err := tm.Subscribe(runCtx, 64)
	if err != nil {
		return fmt.Errorf("failed to subscribe to timer: %w", err)
	}
	defer unsubscribe()

	snap, err := tm.Snapshot(runCtx)
	if err != nil {
		return fmt.Errorf("failed to read timer: %w", err)
	}
	if !jsonOut {
		formatter.MeetingStarting(scrum, len(snap.Speakers))
	}

	log.Debug().
		Str("timer_id", tm.ID()).
		Str("scrum", scrum.Title).
		Int("length_minutes", scrum.LengthInMinutes).
		Msg("starting meeting")

	if err := tm.Start(runCtx); err != nil {
		return fmt.Errorf("failed to start timer: %w", err)
	}

	state := display.NewStateManager(scrum.Title, scrum.Theme)
	keys := readLines(runCtx, in)
	interrupted := ctx.Done()

	for {
		select {
		case <-interrupted:
			interrupted = nil
			if err := tm.Stop(runCtx); err != nil {
				return fmt.Errorf("failed to stop timer: %w", err)
			}

		case line, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			if err := handleKey(runCtx, tm, line); err != nil {
				return err
			}

		case <-bells:
			if !jsonOut {
				formatter.Bell()
			}

		case u, ok := <-updates:
			if !ok {
				return timer.ErrClosed
			}
			if err := state.ProcessUpdate(u); err != nil {
				log.Warn().Err(err).Str("event_type", string(u.Event.Type)).Msg("could not apply timer update")
			}

			if jsonOut {
				if err := formatter.JSON(u); err != nil {
					return fmt.Errorf("failed to write event: %w", err)
				}
			} else {
				formatter.Status(state.State())
			}

			if state.Done() {
				if !jsonOut {
					formatter.MeetingSummary(state.State())
				}
				log.Debug().
					Str("timer_id", tm.ID()).
					Int64("ticks", metrics.Ticks.Load()).
					Dur("avg_tick", metrics.AverageTick()).
					Int64("skips", metrics.Skips.Load()).
					Int64("dropped_updates", metrics.DroppedUpdates.Load()).
					Msg("meeting finished")
				return nil
			}
		}
	}
}

func handleKey(ctx context.Context, tm *timer.TurnTimer, line string) error {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "s", "skip":
		if err := tm.SkipSpeaker(ctx); err != nil {
			return fmt.Errorf("failed to skip speaker: %w", err)
		}
	case "q", "quit", "stop":
		if err := tm.Stop(ctx); err != nil {
			return fmt.Errorf("failed to stop timer: %w", err)
		}
	default:
		log.Debug().Str("input", line).Msg("ignoring unknown key")
	}
	return nil
}

// readLines forwards input lines until EOF or ctx is done.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
