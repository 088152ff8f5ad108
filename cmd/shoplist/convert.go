package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alchemorsel/mealplan/internal/domain/units"
	"github.com/spf13/cobra"
)

func newConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "convert <quantity> [unit]",
		Short:   "Show how a quantity is classified, stored and displayed",
		Example: "  shoplist convert 16 oz\n  shoplist convert 3 tbsp\n  shoplist convert 2 clove",
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantity, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid quantity %q: %w", args[0], err)
			}
			if quantity < 0 {
				return fmt.Errorf("quantity must not be negative")
			}
			unit := ""
			if len(args) == 2 {
				unit = args[1]
			}
			return runConvert(cmd.OutOrStdout(), quantity, unit)
		},
	}
}

func runConvert(out io.Writer, quantity float64, unit string) error {
	dimension := units.Classify(unit)
	base, baseUnit := units.ToBase(quantity, unit)
	display, displayUnit := units.ToDisplay(base, dimension, unit)

	fmt.Fprintf(out, "dimension: %s\n", dimension)
	fmt.Fprintf(out, "base:      %s\n", strings.TrimSpace(formatQuantity(base)+" "+baseUnit))
	fmt.Fprintf(out, "display:   %s\n", strings.TrimSpace(formatQuantity(display)+" "+displayUnit))
	return nil
}
