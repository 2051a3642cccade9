package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourusername/banker-pool/internal/leaderboard"
	"github.com/yourusername/banker-pool/internal/models"
)

var (
	racesFile    string
	fromCatalog  bool
	scopeFlag    string
	dateFlag     string
	jsonOutput   bool
	repairTotals bool
)

func init() {
	openCmd.Flags().StringVarP(&racesFile, "races", "r", "", "JSON file with the race card")
	openCmd.Flags().BoolVar(&fromCatalog, "catalog", false, "Fetch the race card from the configured catalog")

	leaderboardCmd.Flags().StringVarP(&scopeFlag, "scope", "s", "all_time", "all_time, single_day or current")
	leaderboardCmd.Flags().StringVarP(&dateFlag, "date", "d", "", "Date for the single_day scope")
	leaderboardCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of a table")

	reconcileCmd.Flags().BoolVar(&repairTotals, "repair", false, "Rewrite mismatched participant totals from the archive")

	bankerCmd.AddCommand(bankerSetCmd, bankerClearCmd)
	participantCmd.AddCommand(participantAddCmd, participantShowCmd)
}

var openCmd = &cobra.Command{
	Use:   "open <date>",
	Short: "Open a race day and make it current",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		var (
			day *models.RaceDay
			err error
		)
		switch {
		case fromCatalog:
			if pool.Catalog == nil {
				return fmt.Errorf("catalog is not enabled in %s", configFile)
			}
			day, err = pool.Days.OpenFromCatalog(ctx, args[0], pool.Catalog)
		case racesFile != "":
			races, readErr := readRaces(racesFile)
			if readErr != nil {
				return readErr
			}
			day, err = pool.Days.OpenNewDay(ctx, args[0], races)
		default:
			return fmt.Errorf("either --races or --catalog is required")
		}
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), day)
	},
}

var wagerCmd = &cobra.Command{
	Use:   "wager <date> <participant> <race> <horse>",
	Short: "Place or replace a wager",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		horse, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("horse must be a number: %w", err)
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		day, err := pool.Days.PlaceWager(ctx, args[0], args[1], args[2], horse)
		if err != nil {
			return err
		}
		return printScore(cmd.OutOrStdout(), day, args[1])
	},
}

var bankerCmd = &cobra.Command{
	Use:   "banker",
	Short: "Manage banker selections",
}

var bankerSetCmd = &cobra.Command{
	Use:   "set <date> <participant> <race>",
	Short: "Double a participant's points on one race",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		day, err := pool.Days.SetBanker(ctx, args[0], args[1], args[2])
		if err != nil {
			return err
		}
		return printScore(cmd.OutOrStdout(), day, args[1])
	},
}

var bankerClearCmd = &cobra.Command{
	Use:   "clear <date> <participant>",
	Short: "Remove a participant's banker selection",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		day, err := pool.Days.ClearBanker(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return printScore(cmd.OutOrStdout(), day, args[1])
	},
}

var winnerCmd = &cobra.Command{
	Use:   "winner <date> <race> <horse>",
	Short: "Post or correct a race result",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		horse, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("horse must be a number: %w", err)
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		day, err := pool.Days.SetRaceWinner(ctx, args[0], args[1], horse)
		if err != nil {
			return err
		}
		return printScores(cmd.OutOrStdout(), day.Scores)
	},
}

var recomputeCmd = &cobra.Command{
	Use:   "recompute <date>",
	Short: "Rebuild a day's scores from its wagers and results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		day, err := pool.Days.RecomputeDay(ctx, args[0])
		if err != nil {
			return err
		}
		return printScores(cmd.OutOrStdout(), day.Scores)
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete <date>",
	Short: "Archive a race day and credit participant totals",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		result, err := pool.Days.CompleteDay(ctx, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if result.AlreadyCompleted {
			fmt.Fprintf(out, "%s was already completed (archive %s)\n", result.Date, result.ArchiveID)
		} else {
			fmt.Fprintf(out, "%s completed (archive %s)\n", result.Date, result.ArchiveID)
		}
		return printScores(out, result.Scores)
	},
}

var showCmd = &cobra.Command{
	Use:   "show <date>",
	Short: "Print a race day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		day, err := pool.Days.GetDay(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), day)
	},
}

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Print the race day currently accepting wagers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		day, err := pool.Days.CurrentDay(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), day)
	},
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "List completed race days",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		idx, err := pool.Days.Index(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tTOP\tLEADER\tPLAYERS\tRACES")
		for _, d := range idx.Days {
			fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%d/%d\n", d.Date, d.TopScore, d.TopParticipant, d.TotalParticipants, d.CompletedRaces, d.TotalRaces)
		}
		return w.Flush()
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Rank participants",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := leaderboard.ParseScope(scopeFlag, dateFlag)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		board, err := pool.Leaderboard.Leaderboard(ctx, scope)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), board)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RANK\tPARTICIPANT\tNAME\tSCORE")
		for _, e := range board.Entries {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", e.Rank, e.ParticipantID, e.Name, e.Score)
		}
		return w.Flush()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <participant>",
	Short: "Print a participant's archived results and statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		history, err := pool.Leaderboard.ParticipantHistory(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), history)
	},
}

var participantCmd = &cobra.Command{
	Use:   "participant",
	Short: "Manage participants",
}

var participantAddCmd = &cobra.Command{
	Use:   "add <id> [name]",
	Short: "Register a participant, or rename an existing one",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 2 {
			name = args[1]
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		p, err := pool.Days.RegisterParticipant(ctx, args[0], name)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), p)
	},
}

var participantShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a participant record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		p, err := pool.Days.GetParticipant(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), p)
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare participant totals with the archive",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		report, err := pool.Reconciler.Reconcile(ctx, repairTotals)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "checked %d participants, %d discrepancies\n", report.Checked, len(report.Discrepancies))
		for _, d := range report.Discrepancies {
			fmt.Fprintf(out, "  %s: recorded %d, archive %d (missing %v, extra %v, changed %v)\n",
				d.ParticipantID, d.RecordedTotal, d.ExpectedTotal, d.MissingDates, d.ExtraDates, d.ChangedDates)
		}
		if report.Repaired {
			fmt.Fprintln(out, "participant totals rewritten from the archive")
		}
		return nil
	},
}

func readRaces(path string) ([]models.Race, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read race card: %w", err)
	}
	var races []models.Race
	if err := json.Unmarshal(data, &races); err != nil {
		return nil, fmt.Errorf("failed to parse race card: %w", err)
	}
	return races, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printScores(out io.Writer, scores []models.DailyScore) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PARTICIPANT\tBASE\tBANKER\tFINAL\tWINS")
	for _, s := range scores {
		banker := "-"
		if s.BankerRaceID != "" {
			banker = s.BankerRaceID
			if s.BankerWon {
				banker += " (won)"
			}
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%d/%d\n", s.ParticipantID, s.BasePoints, banker, s.FinalScore, s.Wins, s.TotalWagers)
	}
	return w.Flush()
}

func printScore(out io.Writer, day *models.RaceDay, participantID string) error {
	score, ok := day.ScoreFor(participantID)
	if !ok {
		fmt.Fprintf(out, "%s has no wagers on %s\n", participantID, day.Date)
		return nil
	}
	return printScores(out, []models.DailyScore{score})
}
