package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/alchemorsel/mealplan/internal/application/shopping"
	"github.com/alchemorsel/mealplan/internal/infrastructure/messaging"
	"github.com/alchemorsel/mealplan/internal/infrastructure/monitoring"
	"github.com/alchemorsel/mealplan/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

type aggregateOptions struct {
	removeEntries []string
	breakdown     bool
	output        string
}

// aggregateResult is the JSON shape printed with --output json
type aggregateResult struct {
	List      *inbound.ShoppingListDTO         `json:"list"`
	Breakdown []inbound.IngredientBreakdownDTO `json:"breakdown,omitempty"`
}

func newAggregateCmd() *cobra.Command {
	opts := &aggregateOptions{}
	cmd := &cobra.Command{
		Use:   "aggregate <plan.yaml>",
		Short: "Build the shopping list for a meal plan file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			p, err := loadPlan(args[0])
			if err != nil {
				return err
			}
			return runAggregate(cmd.Context(), cmd.OutOrStdout(), p, opts, log)
		},
	}

	cmd.Flags().StringSliceVar(&opts.removeEntries, "remove-entry", nil, "entry id to remove after aggregating (repeatable)")
	cmd.Flags().BoolVar(&opts.breakdown, "breakdown", false, "show which recipes contribute to each line")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "output format (table, json)")
	return cmd
}

func runAggregate(ctx context.Context, out io.Writer, p *plan, opts *aggregateOptions, log *zap.Logger) error {
	if opts.output != "table" && opts.output != "json" {
		return fmt.Errorf("unknown output format %q", opts.output)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cache := memory.NewCacheRepository()
	defer cache.Close()
	bus := messaging.NewMemoryBus(log)
	defer bus.Close()

	service := shopping.NewService(
		memory.NewShoppingListRepository(),
		memory.NewRecipeRepository(p.Recipes...),
		cache,
		bus,
		monitoring.NewMetricsCollector(log),
		noop.NewTracerProvider().Tracer("shoplist"),
		shopping.Config{CacheTTL: time.Minute},
		log,
	)

	if _, err := service.RebuildList(ctx, inbound.RebuildListCommand{UserID: p.UserID, Entries: p.Entries}); err != nil {
		return err
	}
	for _, item := range p.Items {
		if _, err := service.AddManualItem(ctx, inbound.AddManualItemCommand{
			UserID:   p.UserID,
			Name:     item.Name,
			Quantity: item.Quantity,
			Unit:     item.Unit,
		}); err != nil {
			return fmt.Errorf("manual item %q: %w", item.Name, err)
		}
	}
	for _, raw := range opts.removeEntries {
		entryID, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid entry id %q: %w", raw, err)
		}
		change, err := service.RemoveEntry(ctx, p.UserID, entryID)
		if err != nil {
			return err
		}
		log.Info("Removed entry", zap.String("entry_id", raw), zap.Int("affected", len(change.Affected)))
	}

	list, err := service.GetList(ctx, p.UserID)
	if err != nil {
		return err
	}

	result := aggregateResult{List: list}
	if opts.breakdown {
		result.Breakdown, err = service.GetBreakdown(ctx, p.UserID, nil)
		if err != nil {
			return err
		}
	}

	if opts.output == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printList(out, result)
}

func printList(out io.Writer, result aggregateResult) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tQUANTITY\tUNIT\tSOURCE\tHAVE")
	for _, item := range result.List.Items {
		source := "recipes"
		if item.Manual {
			source = "manual"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", item.Name, formatQuantity(item.Quantity), item.Unit, source, item.Have)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, b := range result.Breakdown {
		fmt.Fprintf(out, "\n%s (%s %s)\n", b.Name, formatQuantity(b.TotalBaseQuantity), b.BaseUnit)
		for _, r := range b.Recipes {
			fmt.Fprintf(out, "  %s: %s %s", r.RecipeTitle, formatQuantity(r.Quantity), r.Unit)
			if r.EntryCount > 1 {
				fmt.Fprintf(out, " x%d", r.EntryCount)
			}
			fmt.Fprintln(out)
		}
	}
	return nil
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}
