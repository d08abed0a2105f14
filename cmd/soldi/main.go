package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"soldi/internal/cli"
	"soldi/internal/core"
	"soldi/internal/export"
	"soldi/internal/recurrence"
	"soldi/internal/services"
)

const usage = `soldi - personal budgeting

Usage:
  soldi add -type income|expense -category C -desc D -amount A [-mood M] [-date YYYY-MM-DD]
  soldi del ID
  soldi budget -month YYYY-MM -category C -limit A
  soldi saved add -name N -amount A -category C [-mood M] [-repeat none|daily|weekly|monthly]
  soldi saved list
  soldi quickadd SAVED_ID
  soldi category add NAME
  soldi category list
  soldi month YYYY-MM
  soldi report [-month YYYY-MM]
  soldi list [-month YYYY-MM]
  soldi export [-o FILE]
`

func main() {
	cli.LoadEnvFile()

	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	logger := cli.SetupLogger(slog.LevelInfo)
	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.LogLevel != slog.LevelInfo {
		logger = cli.SetupLogger(cfg.LogLevel)
	}
	store := cli.InitStore(logger, cfg)

	engine := recurrence.New(recurrence.WithMaxOccurrences(cfg.MaxOccurrences))

	ctx := context.Background()
	ledger, anomalies, err := services.Open(ctx, store, engine)
	if err != nil {
		logger.Error("Failed to open ledger", "error", err)
		os.Exit(1)
	}
	defer ledger.Close()
	for _, a := range anomalies {
		fmt.Fprintf(os.Stderr, "warning: %s\n", a.Error())
	}

	if err := run(ctx, ledger, args); err != nil {
		fmt.Fprintf(os.Stderr, "soldi: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, ledger *services.Ledger, args []string) error {
	switch args[0] {
	case "add":
		return cmdAdd(ctx, ledger, args[1:])
	case "del":
		return cmdDel(ctx, ledger, args[1:])
	case "budget":
		return cmdBudget(ctx, ledger, args[1:])
	case "saved":
		return cmdSaved(ctx, ledger, args[1:])
	case "quickadd":
		return cmdQuickAdd(ctx, ledger, args[1:])
	case "category":
		return cmdCategory(ctx, ledger, args[1:])
	case "month":
		return cmdMonth(ctx, ledger, args[1:])
	case "report":
		return cmdReport(ledger, args[1:])
	case "list":
		return cmdList(ledger, args[1:])
	case "export":
		return cmdExport(ledger, args[1:])
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func cmdAdd(ctx context.Context, ledger *services.Ledger, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	typ := fs.String("type", "expense", "income or expense")
	date := fs.String("date", "", "transaction date, defaults to today")
	category := fs.String("category", "", "category name")
	desc := fs.String("desc", "", "description")
	amount := fs.String("amount", "", "decimal amount, e.g. 12.34")
	mood := fs.String("mood", "", "mood tag")
	if err := fs.Parse(args); err != nil {
		return err
	}

	day := core.DateOf(time.Now())
	if *date != "" {
		var err error
		if day, err = core.ParseDate(*date); err != nil {
			return err
		}
	}
	money, err := core.ParseAmount(*amount)
	if err != nil {
		return fmt.Errorf("amount %q: %w", *amount, err)
	}

	tx, err := ledger.CreateTransaction(ctx, core.Transaction{
		Date:        day,
		Type:        core.TransactionType(*typ),
		Category:    *category,
		Description: *desc,
		Amount:      money,
		Mood:        *mood,
	})
	if err != nil {
		return err
	}
	fmt.Printf("recorded %s %s %s on %s (id %s)\n", tx.Type, tx.Amount, tx.Category, tx.Date, tx.ID)
	return nil
}

func cmdDel(ctx context.Context, ledger *services.Ledger, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("del needs exactly one transaction id")
	}
	if err := ledger.DeleteTransaction(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", args[0])
	return nil
}

func cmdBudget(ctx context.Context, ledger *services.Ledger, args []string) error {
	fs := flag.NewFlagSet("budget", flag.ExitOnError)
	month := fs.String("month", "", "month key YYYY-MM, defaults to the selected month")
	category := fs.String("category", "", "category name")
	limit := fs.String("limit", "", "monthly limit, e.g. 300")
	if err := fs.Parse(args); err != nil {
		return err
	}

	key := ledger.Snapshot().SelectedMonth
	if *month != "" {
		var err error
		if key, err = core.ParseMonthKey(*month); err != nil {
			return err
		}
	}
	money, err := core.ParseAmount(*limit)
	if err != nil {
		return fmt.Errorf("limit %q: %w", *limit, err)
	}
	if err := ledger.SetBudget(ctx, key, *category, money); err != nil {
		return err
	}
	fmt.Printf("budget for %s in %s set to %s\n", *category, key, money)
	return nil
}

func cmdSaved(ctx context.Context, ledger *services.Ledger, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("saved needs a subcommand: add or list")
	}
	switch args[0] {
	case "add":
		fs := flag.NewFlagSet("saved add", flag.ExitOnError)
		name := fs.String("name", "", "item name, used as the transaction description")
		amount := fs.String("amount", "", "decimal amount")
		category := fs.String("category", "", "category name")
		mood := fs.String("mood", "", "mood tag")
		repeat := fs.String("repeat", "none", "none, daily, weekly or monthly")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		money, err := core.ParseAmount(*amount)
		if err != nil {
			return fmt.Errorf("amount %q: %w", *amount, err)
		}
		item, err := ledger.CreateSavedItem(ctx, core.SavedItem{
			Name:     *name,
			Amount:   money,
			Category: *category,
			Mood:     *mood,
			Repeat:   core.Repeat(*repeat),
		})
		if err != nil {
			return err
		}
		fmt.Printf("saved item %q created (id %s, repeat %s)\n", item.Name, item.ID, item.Repeat)
		return nil
	case "list":
		for _, item := range ledger.Snapshot().SavedItems {
			due := "-"
			if !item.NextDue.IsZero() {
				due = item.NextDue.String()
			}
			fmt.Printf("%s  %-20s %8s  %-12s repeat=%-8s next=%s\n",
				item.ID, item.Name, item.Amount, item.Category, item.Repeat, due)
		}
		return nil
	default:
		return fmt.Errorf("unknown saved subcommand %q", args[0])
	}
}

func cmdQuickAdd(ctx context.Context, ledger *services.Ledger, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("quickadd needs exactly one saved item id")
	}
	tx, err := ledger.QuickAdd(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("recorded %s %s on %s (id %s)\n", tx.Amount, tx.Category, tx.Date, tx.ID)
	return nil
}

func cmdCategory(ctx context.Context, ledger *services.Ledger, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("category needs a subcommand: add or list")
	}
	switch args[0] {
	case "add":
		if len(args) != 2 {
			return fmt.Errorf("category add needs exactly one name")
		}
		if err := ledger.AddCategory(ctx, args[1]); err != nil {
			return err
		}
		fmt.Printf("category %q added\n", args[1])
		return nil
	case "list":
		for _, c := range ledger.Snapshot().Categories {
			fmt.Println(c)
		}
		return nil
	default:
		return fmt.Errorf("unknown category subcommand %q", args[0])
	}
}

func cmdMonth(ctx context.Context, ledger *services.Ledger, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("month needs exactly one YYYY-MM key")
	}
	key, err := core.ParseMonthKey(args[0])
	if err != nil {
		return err
	}
	if err := ledger.SelectMonth(ctx, key); err != nil {
		return err
	}
	fmt.Printf("selected month %s\n", key)
	return nil
}

func monthArg(ledger *services.Ledger, flagValue string) (core.MonthKey, error) {
	if flagValue == "" {
		return ledger.Snapshot().SelectedMonth, nil
	}
	return core.ParseMonthKey(flagValue)
}

func cmdReport(ledger *services.Ledger, args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	month := fs.String("month", "", "month key YYYY-MM, defaults to the selected month")
	if err := fs.Parse(args); err != nil {
		return err
	}
	key, err := monthArg(ledger, *month)
	if err != nil {
		return err
	}

	s := ledger.Summary(key)
	fmt.Printf("%s\n  income   %10s\n  expenses %10s\n  net      %10s\n", s.Month, s.Income, s.Expenses, netString(s.Net))
	if len(s.ByCategory) > 0 {
		fmt.Println("by category:")
		for _, c := range s.ByCategory {
			if c.Limit.Cents > 0 {
				fmt.Printf("  %-16s %10s of %s (%s left)\n", c.Category, c.Spent, c.Limit, netString(c.Remaining))
			} else {
				fmt.Printf("  %-16s %10s\n", c.Category, c.Spent)
			}
		}
	}
	if len(s.ByMood) > 0 {
		fmt.Println("by mood:")
		for _, m := range s.ByMood {
			mood := m.Mood
			if mood == "" {
				mood = "(untagged)"
			}
			fmt.Printf("  %-16s %10s\n", mood, m.Spent)
		}
	}
	return nil
}

func cmdList(ledger *services.Ledger, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	month := fs.String("month", "", "month key YYYY-MM, defaults to the selected month")
	if err := fs.Parse(args); err != nil {
		return err
	}
	key, err := monthArg(ledger, *month)
	if err != nil {
		return err
	}

	for _, tx := range ledger.Snapshot().Transactions {
		if !key.Contains(tx.Date) {
			continue
		}
		fmt.Printf("%s  %s  %-7s %-12s %8s  %s\n", tx.ID, tx.Date, tx.Type, tx.Category, tx.Amount, tx.Description)
	}
	return nil
}

func cmdExport(ledger *services.Ledger, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("o", "", "output file, defaults to stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	txs := ledger.Snapshot().Transactions
	if *out == "" {
		return export.WriteCSV(os.Stdout, txs)
	}
	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()
	if err := export.WriteCSV(f, txs); err != nil {
		return err
	}
	fmt.Printf("exported %d transactions to %s\n", len(txs), *out)
	return nil
}

func netString(m core.Money) string {
	if m.Cents < 0 {
		return "-" + m.String()
	}
	return m.String()
}
