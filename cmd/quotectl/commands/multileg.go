package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shipquote/internal/rate"
)

func multiLegCmd(eng *engine) *cobra.Command {
	var (
		weight  float64
		dims    string
		legs    []string
		premium string
	)
	cmd := &cobra.Command{
		Use:     "multileg",
		Short:   "Price the same parcel over several legs",
		Example: "  quotectl multileg --weight 4 --leg MA:FR --leg FR:MA:import",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed := make([]rate.Leg, 0, len(legs))
			for _, raw := range legs {
				leg, err := parseLeg(raw)
				if err != nil {
					return err
				}
				parsed = append(parsed, leg)
			}
			res, err := eng.calc.ComputeMultiLeg(rate.MultiLegRequest{
				ActualWeightKg: weight,
				Dimensions:     dims,
				Legs:           parsed,
				PremiumService: premium,
			})
			if err != nil {
				return err
			}
			out := make([]map[string]any, 0, len(res.Legs))
			for _, leg := range res.Legs {
				out = append(out, map[string]any{
					"origin":      leg.Leg.Origin,
					"destination": leg.Leg.Destination,
					"direction":   leg.Leg.Direction,
					"zone":        leg.Zone,
					"cost":        money(leg.TotalCost),
				})
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"total_cost":          money(res.TotalCost),
				"currency":            res.Currency,
				"effective_weight_kg": res.EffectiveWeightKg,
				"legs":                out,
			})
		},
	}
	cmd.Flags().Float64Var(&weight, "weight", 0, "actual weight in kg")
	cmd.Flags().StringVar(&dims, "dims", "", "dimensions LxWxH in cm")
	cmd.Flags().StringArrayVar(&legs, "leg", nil, "leg as ORIGIN:DESTINATION[:DIRECTION], repeatable")
	cmd.Flags().StringVar(&premium, "premium", "", "premium service key")
	_ = cmd.MarkFlagRequired("weight")
	return cmd
}

func parseLeg(raw string) (rate.Leg, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return rate.Leg{}, fmt.Errorf("%w: leg %q, want ORIGIN:DESTINATION[:DIRECTION]", rate.ErrInvalidInput, raw)
	}
	leg := rate.Leg{Origin: parts[0], Destination: parts[1]}
	if len(parts) == 3 {
		leg.Direction = rate.Direction(strings.ToLower(strings.TrimSpace(parts[2])))
	}
	return leg, nil
}
