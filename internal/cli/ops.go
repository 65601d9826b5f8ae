package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"finsheet/internal/core"
	"finsheet/internal/ledger"
)

func newPartitionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "partitions",
		Short: "List ledger partitions; the last one is active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			labels, err := a.ledger.Partitions(cmd.Context())
			if err != nil {
				return err
			}
			for i, l := range labels {
				marker := ""
				if i == len(labels)-1 {
					marker = " (active)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", l, marker)
			}
			return nil
		},
	}
}

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init <usd> <eur> <rub>",
		Short: "Seed the current month's partition with opening balances",
		Long: `Seed the current month's partition with opening balances.

An already initialized partition is left untouched.

Example:
  finsheet init 1200 350.50 0`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			opening, err := core.ParseBalances(strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("opening balances %q: %w", strings.Join(args, " "), err)
			}

			a, err := newApp(cmd.Context(), appOptions{events: true})
			if err != nil {
				return err
			}
			defer a.Close()

			label, written, err := a.ledger.Seed(cmd.Context(), opening)
			if err != nil {
				return err
			}
			if !written {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already initialized, balances unchanged\n", label)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s initialized\n", label)
			return nil
		},
	}
}

type balanceView struct {
	Expenses string `json:"expenses" yaml:"expenses"`
	Income   string `json:"income" yaml:"income"`
	Balance  string `json:"balance" yaml:"balance"`
}

type categoryView struct {
	Name    string            `json:"name" yaml:"name"`
	Color   string            `json:"color" yaml:"color"`
	Amounts map[string]string `json:"amounts" yaml:"amounts"`
}

type transactionView struct {
	Date        string            `json:"date" yaml:"date"`
	Type        string            `json:"type" yaml:"type"`
	Category    string            `json:"category" yaml:"category"`
	Description string            `json:"description" yaml:"description"`
	Amounts     map[string]string `json:"amounts" yaml:"amounts"`
}

type snapshotView struct {
	Partition    string                 `json:"partition" yaml:"partition"`
	Balances     map[string]balanceView `json:"balances" yaml:"balances"`
	Categories   []categoryView         `json:"categories" yaml:"categories"`
	Transactions []transactionView      `json:"transactions" yaml:"transactions"`
	TotalSize    int                    `json:"total_size" yaml:"total_size"`
}

func newSnapshotCommand() *cobra.Command {
	var (
		sheet  string
		format string
		take   int
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print balances, categories and recent transactions of a partition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "yaml" && format != "json" {
				return fmt.Errorf("unknown format %q: use yaml or json", format)
			}
			a, err := newApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.ledger.Snapshot(cmd.Context(), sheet)
			if err != nil {
				return err
			}
			return writeSnapshot(cmd.OutOrStdout(), format, toSnapshotView(snap, take))
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "Partition label (default: active partition)")
	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml or json")
	cmd.Flags().IntVar(&take, "take", ledger.DefaultPageSize, "Number of recent transactions to include")
	return cmd
}

func toSnapshotView(snap core.Snapshot, take int) snapshotView {
	v := snapshotView{Partition: snap.Partition, Balances: map[string]balanceView{}}
	for cur, b := range ledger.Balances(snap, "") {
		v.Balances[string(cur)] = balanceView{
			Expenses: b.Expenses.String(),
			Income:   b.Income.String(),
			Balance:  b.Balance.String(),
		}
	}
	for _, c := range ledger.Categories(snap, "") {
		v.Categories = append(v.Categories, categoryView{Name: c.Name, Color: c.Color, Amounts: amounts(c.Amounts)})
	}
	page := ledger.History(snap, "", 0, take)
	v.TotalSize = page.TotalSize
	for _, tx := range page.Transactions {
		v.Transactions = append(v.Transactions, transactionView{
			Date:        tx.Date,
			Type:        string(tx.Type),
			Category:    tx.Category,
			Description: tx.Description,
			Amounts:     amounts(tx.Amounts),
		})
	}
	return v
}

func amounts(m map[core.Currency]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(m))
	for cur, d := range m {
		out[string(cur)] = d.String()
	}
	return out
}

func writeSnapshot(w io.Writer, format string, v snapshotView) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
