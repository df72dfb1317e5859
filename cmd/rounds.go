package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"raffle/config"
	"raffle/domain/entities"
	"raffle/infrastructure"

	"github.com/spf13/cobra"
)

func newRoundsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rounds",
		Short: "Inspect raffle rounds",
	}

	var (
		limit  int
		before int64
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List rounds, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openLedger(cmd.Context(), config.Get(), infrastructure.NewNoopEventPublisher())
			if err != nil {
				return err
			}
			defer l.Close()

			var beforeID *int64
			if before > 0 {
				beforeID = &before
			}
			rounds, err := l.engine.Queries.ListRounds(cmd.Context(), limit, beforeID)
			if err != nil {
				return err
			}
			return printRounds(cmd.OutOrStdout(), rounds)
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rounds to show (at most 100)")
	list.Flags().Int64Var(&before, "before", 0, "Only rounds with an id below this one")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "show <round-id|current>",
		Short: "Show one round as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openLedger(cmd.Context(), config.Get(), infrastructure.NewNoopEventPublisher())
			if err != nil {
				return err
			}
			defer l.Close()

			var round *entities.Round
			if args[0] == "current" {
				round, err = l.engine.Queries.CurrentRound(cmd.Context())
			} else {
				id, perr := strconv.ParseInt(args[0], 10, 64)
				if perr != nil {
					return fmt.Errorf("invalid round id %q", args[0])
				}
				round, err = l.engine.Queries.GetRound(cmd.Context(), id)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(round)
		},
	})

	return cmd
}

func newWinningsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "winnings <account>",
		Short: "List the rounds an account has won",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := entities.ParseAccount(args[0])
			if err != nil {
				return err
			}
			l, err := openLedger(cmd.Context(), config.Get(), infrastructure.NewNoopEventPublisher())
			if err != nil {
				return err
			}
			defer l.Close()

			winnings, err := l.engine.Queries.GetUserWinnings(cmd.Context(), account)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(winnings) == 0 {
				fmt.Fprintf(out, "%s has not won any rounds\n", account)
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ROUND\tAMOUNT\tCLAIMED")
			for _, win := range winnings {
				fmt.Fprintf(w, "%d\t%d\t%t\n", win.RoundID, win.Amount, win.Claimed)
			}
			return w.Flush()
		},
	}
}

func printRounds(out io.Writer, rounds []*entities.Round) error {
	if len(rounds) == 0 {
		fmt.Fprintln(out, "No rounds")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATE\tTICKETS\tPLAYERS\tPOOL\tENDS\tWINNER")
	for _, r := range rounds {
		winner := "-"
		if r.Winner != nil {
			winner = r.Winner.String()
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.ID, r.State, r.TotalTickets, r.UniqueParticipants(), r.PrizePool,
			r.EndTime.UTC().Format(time.RFC3339), winner)
	}
	return w.Flush()
}
