package commands

import (
	"encoding/json"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"shipquote/internal/currency"
	"shipquote/internal/rate"
	"shipquote/internal/tables"
)

type engine struct {
	calc      *rate.Calculator
	converter *currency.Converter
}

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var (
		tablesPath string
		eng        engine
	)
	root := &cobra.Command{
		Use:          "quotectl",
		Short:        "Shipping cost and quote totals calculator",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := tables.LoadOrSample(tablesPath)
			if err != nil {
				return err
			}
			eng.calc = rate.NewCalculator(tbl.Rates)
			eng.converter = currency.NewConverter(tbl.Exchange)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&tablesPath, "tables", "", "tariff tables YAML file (default embedded sample)")

	root.AddCommand(shipCmd(&eng), multiLegCmd(&eng), convertCmd(&eng), totalsCmd(&eng))
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(currency.Precision))
}
