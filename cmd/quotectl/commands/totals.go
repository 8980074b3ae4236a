package commands

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"shipquote/internal/currency"
	"shipquote/internal/quote"
)

func totalsCmd(eng *engine) *cobra.Command {
	var (
		items            []string
		discount         string
		vat              string
		code             string
		shippingCost     string
		shippingCurrency string
		policyName       string
	)
	cmd := &cobra.Command{
		Use:     "totals",
		Short:   "Compute quote totals",
		Example: `  quotectl totals --item "crate:2:500" --item "pallet:1:250" --discount 10 --tva 20 --shipping 100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := quote.ParsePolicy(policyName)
			if err != nil {
				return err
			}
			if code == "" {
				code = eng.converter.Reference()
			}
			if code, err = currency.Normalize(code); err != nil {
				return err
			}
			q := quote.Quote{Currency: code, Shipping: quote.NoShipping()}
			for _, raw := range items {
				item, err := parseItem(raw)
				if err != nil {
					return err
				}
				q.Items = append(q.Items, item)
			}
			if q.DiscountRatePct, err = parseDecimal("discount", discount); err != nil {
				return err
			}
			if q.VATRatePct, err = parseDecimal("tva", vat); err != nil {
				return err
			}
			if shippingCost != "" {
				amount, err := parseDecimal("shipping", shippingCost)
				if err != nil {
					return err
				}
				if shippingCurrency == "" {
					shippingCurrency = eng.converter.Reference()
				}
				q.Shipping = quote.Manual(amount, shippingCurrency)
			}

			totals, err := quote.NewEngine(eng.converter).Totals(q, policy)
			if err != nil {
				return err
			}
			t := totals.Rounded()
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"policy":          t.Policy,
				"currency":        q.Currency,
				"subtotal":        money(t.Subtotal),
				"discount_amount": money(t.DiscountAmount),
				"vat_base":        money(t.VATBase),
				"vat_amount":      money(t.VATAmount),
				"shipping_cost":   money(t.ShippingCost),
				"handling_cost":   money(t.HandlingCost),
				"grand_total":     money(t.GrandTotal),
			})
		},
	}
	cmd.Flags().StringArrayVar(&items, "item", nil, "item as DESCRIPTION:QUANTITY:UNIT_PRICE, repeatable")
	cmd.Flags().StringVar(&discount, "discount", "0", "discount rate in percent")
	cmd.Flags().StringVar(&vat, "tva", "0", "VAT rate in percent")
	cmd.Flags().StringVar(&code, "currency", "", "quote currency (default reference currency)")
	cmd.Flags().StringVar(&shippingCost, "shipping", "", "shipping cost")
	cmd.Flags().StringVar(&shippingCurrency, "shipping-currency", "", "shipping cost currency (default reference currency)")
	cmd.Flags().StringVar(&policyName, "policy", string(quote.VATOnSubtotal), "VAT policy: document or form")
	return cmd
}

func parseItem(raw string) (quote.Item, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return quote.Item{}, fmt.Errorf("%w: item %q, want DESCRIPTION:QUANTITY:UNIT_PRICE", quote.ErrInvalidItem, raw)
	}
	qty, err := parseDecimal("quantity", parts[1])
	if err != nil {
		return quote.Item{}, err
	}
	price, err := parseDecimal("unit price", parts[2])
	if err != nil {
		return quote.Item{}, err
	}
	return quote.Item{Description: strings.TrimSpace(parts[0]), Quantity: qty, UnitPrice: price}, nil
}

func parseDecimal(name, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	return d, nil
}
