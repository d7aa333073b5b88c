package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/shipping"
)

func validateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that a rate file loads and passes engine validation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := loadEngine(v)
			if err != nil {
				return fmt.Errorf("validate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s: %d zones, %d weight brackets, policy %s, currency %s\n",
				rateSource(v), len(engine.Zones()), engine.Tariffs().Brackets(), engine.DefaultPolicy(), engine.Currency())
			return nil
		},
	}
}

func zonesCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "zones",
		Short: "List delivery zones and their postal ranges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := loadEngine(v)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tRATE AREA\tRANGES\tBASE\tPER KG\tWINDOW")
			for _, z := range engine.Zones() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					z.ID, z.Name, z.RateArea, formatRanges(z.Ranges),
					z.BaseCost.StringFixed(2), z.CostPerKg.StringFixed(2), z.DeliveryWindow)
			}
			return w.Flush()
		},
	}
}

func formatRanges(ranges []shipping.PostalRange) string {
	if len(ranges) == 0 {
		return "(default)"
	}
	parts := make([]string, 0, len(ranges))
	for _, r := range ranges {
		parts = append(parts, fmt.Sprintf("%04d-%04d", r.From, r.To))
	}
	return strings.Join(parts, ",")
}

func quoteCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a cart against the loaded rates",
		Long: `Price a cart against the loaded rates.

Items are given as id:quantity:unitPrice[:massGrams[:LxWxH]], for example:
  ratecheck quote --postal 2000 --item mate:2:4500:350 --item termo:1:38000:900:30x10x10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := loadEngine(v)
			if err != nil {
				return err
			}
			formatter, err := loadFormatter(v, engine)
			if err != nil {
				return err
			}

			postal, _ := cmd.Flags().GetString("postal")
			specs, _ := cmd.Flags().GetStringArray("item")
			lines := make([]shipping.CartLine, 0, len(specs))
			for _, spec := range specs {
				line, err := parseItemSpec(spec)
				if err != nil {
					return err
				}
				lines = append(lines, line)
			}

			subtotal := shipping.Subtotal(lines)
			if raw, _ := cmd.Flags().GetString("subtotal"); strings.TrimSpace(raw) != "" {
				subtotal, err = parseAmount(raw)
				if err != nil {
					return fmt.Errorf("invalid --subtotal %q: %w", raw, err)
				}
			}

			quote, err := engine.Quote(shipping.QuoteRequest{Lines: lines, PostalCode: postal, Subtotal: subtotal})
			if err != nil {
				return err
			}
			printQuote(cmd, formatter, quote, engine.Progress(subtotal))
			return nil
		},
	}

	cmd.Flags().String("postal", "", "destination postal code")
	cmd.Flags().StringArray("item", nil, "cart item as id:quantity:unitPrice[:massGrams[:LxWxH]] (repeatable)")
	cmd.Flags().String("subtotal", "", "cart subtotal (default: sum of item prices)")
	_ = cmd.MarkFlagRequired("postal")
	return cmd
}

func parseItemSpec(spec string) (shipping.CartLine, error) {
	parts := strings.Split(strings.TrimSpace(spec), ":")
	if len(parts) < 3 || len(parts) > 5 {
		return shipping.CartLine{}, fmt.Errorf("invalid --item %q: want id:quantity:unitPrice[:massGrams[:LxWxH]]", spec)
	}

	qty, err := strconv.Atoi(parts[1])
	if err != nil {
		return shipping.CartLine{}, fmt.Errorf("invalid quantity in --item %q: %w", spec, err)
	}
	price, err := parseAmount(parts[2])
	if err != nil {
		return shipping.CartLine{}, fmt.Errorf("invalid unit price in --item %q: %w", spec, err)
	}

	line := shipping.CartLine{ID: parts[0], Quantity: qty, UnitPrice: price}
	if len(parts) >= 4 && parts[3] != "" {
		mass, err := parseAmount(parts[3])
		if err != nil {
			return shipping.CartLine{}, fmt.Errorf("invalid mass in --item %q: %w", spec, err)
		}
		line.MassGrams = decimal.NewNullDecimal(mass)
	}
	if len(parts) == 5 {
		dims := strings.Split(strings.ToLower(parts[4]), "x")
		if len(dims) != 3 {
			return shipping.CartLine{}, fmt.Errorf("invalid dimensions in --item %q: want LxWxH", spec)
		}
		values := make([]decimal.NullDecimal, 3)
		for i, raw := range dims {
			d, err := parseAmount(raw)
			if err != nil {
				return shipping.CartLine{}, fmt.Errorf("invalid dimensions in --item %q: %w", spec, err)
			}
			values[i] = decimal.NewNullDecimal(d)
		}
		line.Dimensions = shipping.Dimensions{Length: values[0], Width: values[1], Height: values[2]}
	}
	return line, nil
}

var errOutOfRange = errors.New("value out of range")

func parseAmount(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, err
	}
	if !shipping.InRange(d) {
		return decimal.Zero, errOutOfRange
	}
	return d, nil
}

func printQuote(cmd *cobra.Command, f *shipping.Formatter, q shipping.Quote, progress shipping.FreeShippingProgress) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "zone:     %s (%s)\n", q.Zone.ID, q.Zone.Name)
	fmt.Fprintf(out, "policy:   %s\n", q.Policy)
	fmt.Fprintf(out, "weight:   %s\n", f.Weight(q.Weight))
	fmt.Fprintf(out, "service:  %s, %s\n", q.Service, q.DeliveryEstimate)
	if q.Free {
		fmt.Fprintln(out, "total:    free shipping")
	} else {
		fmt.Fprintf(out, "total:    %s\n", f.Money(q.Total))
	}

	if b := q.Breakdown; b != nil {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "  base\t%s\n", f.Money(b.Base))
		fmt.Fprintf(w, "  weight\t%s\n", f.Money(b.Weight))
		fmt.Fprintf(w, "  insurance\t%s\n", f.Money(b.Insurance))
		fmt.Fprintf(w, "  packaging\t%s\n", f.Money(b.Packaging))
		fmt.Fprintf(w, "  handling\t%s\n", f.Money(b.Handling))
		_ = w.Flush()
	}
	if len(q.Options) > 0 {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, opt := range q.Options {
			marker := " "
			if opt.Recommended {
				marker = "*"
			}
			fmt.Fprintf(w, "  %s %s\t%s\t%s\t%s\n", marker, opt.CarrierName, opt.ServiceLabel, f.Money(opt.Price), opt.DeliveryEstimate)
		}
		_ = w.Flush()
	}
	if !progress.Qualifies {
		fmt.Fprintf(out, "free shipping in %s (%s%%)\n", f.Money(progress.Remaining), progress.Percentage.StringFixed(0))
	}
}
