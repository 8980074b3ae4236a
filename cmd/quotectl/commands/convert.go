package commands

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"shipquote/internal/currency"
)

func convertCmd(eng *engine) *cobra.Command {
	var amount, from, to string
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert an amount between currencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := decimal.NewFromString(amount)
			if err != nil {
				return err
			}
			converted, err := eng.converter.Convert(value, from, to)
			if err != nil {
				return err
			}
			code, err := currency.Normalize(to)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"amount": money(converted), "currency": code})
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "amount to convert")
	cmd.Flags().StringVar(&from, "from", "", "source currency (ISO 4217)")
	cmd.Flags().StringVar(&to, "to", "", "target currency (ISO 4217)")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
