package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/LovationAdmin/budget-ledger/migration"
	"github.com/LovationAdmin/budget-ledger/models"
	"github.com/LovationAdmin/budget-ledger/services"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newAutoPostCommand() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "autopost",
		Short: "Post due recurring charges once",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			asOf := models.Today(e.cfg.Location)
			if date != "" {
				if asOf, err = models.ParseDate(date); err != nil {
					return err
				}
			}
			result, err := e.stack.Engine.Run(cmd.Context(), asOf)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "as-of date (YYYY-MM-DD), defaults to today")
	return cmd
}

func newOccurrencesCommand() *cobra.Command {
	var nextDue, interval, start, end string
	var every int

	cmd := &cobra.Command{
		Use:   "occurrences",
		Short: "List the occurrence dates of a schedule inside [start, end)",
		RunE: func(cmd *cobra.Command, args []string) error {
			dates, err := occurrences(nextDue, interval, every, start, end)
			if err != nil {
				return err
			}
			for _, d := range dates {
				fmt.Fprintln(cmd.OutOrStdout(), d)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&nextDue, "next-due", "", "next due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&interval, "interval", "month", "day, week, month or year")
	cmd.Flags().IntVar(&every, "every", 1, "interval multiplier")
	cmd.Flags().StringVar(&start, "start", "", "window start, inclusive")
	cmd.Flags().StringVar(&end, "end", "", "window end, exclusive")
	_ = cmd.MarkFlagRequired("next-due")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func occurrences(nextDue, interval string, every int, start, end string) ([]models.Date, error) {
	if every < 1 {
		return nil, errors.New("--every must be at least 1")
	}
	iv, err := models.ParseInterval(interval)
	if err != nil {
		return nil, err
	}
	nd, err := models.ParseDate(nextDue)
	if err != nil {
		return nil, err
	}
	s, err := models.ParseDate(start)
	if err != nil {
		return nil, err
	}
	e, err := models.ParseDate(end)
	if err != nil {
		return nil, err
	}
	return services.Occurrences(nd, iv, every, models.Window{Start: s, End: e})
}

func newRatesCommand() *cobra.Command {
	ratesCmd := &cobra.Command{
		Use:   "rates",
		Short: "Exchange rate history",
	}
	ratesCmd.AddCommand(&cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import rate observations from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			obs, err := loadRatesFile(args[0])
			if err != nil {
				return err
			}
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			n, err := e.stack.Rates.UpsertMany(cmd.Context(), obs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d observations\n", n)
			return nil
		},
	})
	return ratesCmd
}

// ratesFile is the import format:
//
//	rates:
//	  - {date: 2024-01-01, from: EUR, to: USD, rate: "1.10"}
type ratesFile struct {
	Rates []models.ExchangeRateObservation `yaml:"rates"`
}

func loadRatesFile(path string) ([]models.ExchangeRateObservation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var f ratesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(f.Rates) == 0 {
		return nil, fmt.Errorf("%s contains no rates", path)
	}
	return f.Rates, nil
}

func newConvertCommand() *cobra.Command {
	var amount, from, to, date string

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert an amount with the stored rate history",
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q", amount)
			}
			on, err := models.ParseDate(date)
			if err != nil {
				return err
			}
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			if to == "" {
				to = e.cfg.ReportingCurrency
			}
			idx, err := e.stack.Rates.Index(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), idx.Conversion(value, from, to, on))
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "amount to convert")
	cmd.Flags().StringVar(&from, "from", "", "source currency")
	cmd.Flags().StringVar(&to, "to", "", "target currency, defaults to REPORTING_CURRENCY")
	cmd.Flags().StringVar(&date, "date", "", "conversion date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newMigrateLegacyCommand() *cobra.Command {
	var fromTable, toTable string

	cmd := &cobra.Command{
		Use:   "migrate-legacy",
		Short: "Copy charges from a legacy-shaped table into the current table",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			report, err := migration.MigrateLegacyCharges(cmd.Context(), e.db, e.cfg.Driver, fromTable, toTable)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&fromTable, "from", "subscriptions", "legacy table")
	cmd.Flags().StringVar(&toTable, "to", "recurring_charges", "current table")
	return cmd
}
