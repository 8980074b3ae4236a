package commands

import (
	"github.com/spf13/cobra"

	"shipquote/internal/rate"
)

func shipCmd(eng *engine) *cobra.Command {
	var (
		weight    float64
		dims      string
		country   string
		direction string
		premium   string
	)
	cmd := &cobra.Command{
		Use:   "ship",
		Short: "Price a single-leg shipment",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := rate.ParseDirection(direction)
			if err != nil {
				return err
			}
			req := rate.ShippingRequest{
				ActualWeightKg: weight,
				Dimensions:     dims,
				Direction:      dir,
				PremiumService: premium,
			}
			if dir == rate.Import {
				req.OriginCountry = country
			} else {
				req.DestinationCountry = country
			}
			res, err := eng.calc.ComputeLegCost(req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"shipping_cost":       money(res.TotalCost),
				"base_cost":           money(res.BaseCost),
				"surcharge":           money(res.Surcharge),
				"zone":                res.Zone,
				"effective_weight_kg": res.EffectiveWeightKg,
				"country":             rate.NormalizeCountry(country),
				"direction":           res.Leg.Direction,
				"currency":            res.Currency,
				"dimensions_ignored":  res.DimensionsIgnored,
			})
		},
	}
	cmd.Flags().Float64Var(&weight, "weight", 0, "actual weight in kg")
	cmd.Flags().StringVar(&dims, "dims", "", "dimensions LxWxH in cm")
	cmd.Flags().StringVar(&country, "country", "", "counterpart country (ISO code)")
	cmd.Flags().StringVar(&direction, "direction", "export", "export or import")
	cmd.Flags().StringVar(&premium, "premium", "", "premium service key")
	_ = cmd.MarkFlagRequired("weight")
	_ = cmd.MarkFlagRequired("country")
	return cmd
}
