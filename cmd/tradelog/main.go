package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/gw/pm-maker/internal/journal"
)

const dbPath = "data/journal.db"

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]

	switch cmd {
	case "sessions":
		runSessions()
	case "trades":
		limit := 50
		if len(os.Args) > 2 {
			if n, err := strconv.Atoi(os.Args[2]); err == nil {
				limit = n
			}
		}
		runTrades(limit)
	case "summary":
		runSummary()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: tradelog <command>

Commands:
  sessions      Show all market-making sessions
  trades [N]    Show last N fills (default 50)
  summary       Show lifetime totals`)
}

func openStore() *journal.Store {
	store, err := journal.Open(dbPath)
	if err != nil {
		slog.Error("opening db", "err", err)
		os.Exit(1)
	}
	return store
}

func runSessions() {
	store := openStore()
	defer store.Close()

	sessions, err := store.Sessions(context.Background())
	if err != nil {
		slog.Error("query failed", "err", err)
		os.Exit(1)
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions recorded yet.")
		return
	}

	fmt.Printf("%-4s %-20s %-12s %-30s %4s %7s %9s %5s\n",
		"ID", "Started", "Platform", "Market", "Dry", "Trades", "Profit", "Inv")
	fmt.Println("--------------------------------------------------------------------------------------------------")
	for _, s := range sessions {
		dry := " "
		if s.DryRun {
			dry = "Y"
		}
		title := s.Market
		if len(title) > 30 {
			title = title[:27] + "..."
		}
		fmt.Printf("%-4d %-20s %-12s %-30s %4s %7d %9s %5d\n",
			s.ID,
			s.StartedAt.Format("2006-01-02 15:04:05"),
			s.Platform,
			title,
			dry,
			s.Trades,
			dollars(s.Profit),
			s.EndingInventory,
		)
	}
}

func runTrades(limit int) {
	store := openStore()
	defer store.Close()

	fills, err := store.RecentFills(context.Background(), limit)
	if err != nil {
		slog.Error("query failed", "err", err)
		os.Exit(1)
	}

	if len(fills) == 0 {
		fmt.Println("No fills recorded yet.")
		return
	}

	fmt.Printf("%-20s %-8s %-5s %7s %5s %s\n", "Time", "Session", "Side", "Price", "Size", "Order")
	fmt.Println("--------------------------------------------------------------------------------------------------")
	for _, f := range fills {
		fmt.Printf("%-20s %-8d %-5s %7.2f %5d %s\n",
			f.Time.Format("2006-01-02 15:04:05"),
			f.SessionID,
			f.Side,
			f.Price,
			f.Size,
			f.OrderID,
		)
	}
}

func runSummary() {
	store := openStore()
	defer store.Close()

	totals, err := store.GetTotals(context.Background())
	if err != nil {
		slog.Error("query failed", "err", err)
		os.Exit(1)
	}

	fmt.Printf("Sessions: %d\n", totals.Sessions)
	fmt.Printf("Trades:   %d\n", totals.Trades)
	fmt.Printf("Profit:   %s\n", dollars(totals.Profit))
	if totals.Trades > 0 {
		fmt.Printf("Avg/trade: %s\n", dollars(totals.Profit/float64(totals.Trades)))
	}
}

func dollars(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
