// Package main provides the shoplist command line tool: offline plan
// aggregation, unit conversion and schema migrations
package main

import (
	"fmt"
	"os"

	"github.com/alchemorsel/mealplan/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "shoplist",
		Short:         "Meal plan shopping list tools",
		Long:          "shoplist aggregates meal plans into shopping lists, converts cooking units and manages the database schema.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "console", "log format (console, json)")

	root.AddCommand(newAggregateCmd(), newConvertCmd(), newMigrateCmd())
	return root
}

// newLogger builds the command's logger from the persistent flags. Logs go to
// stderr so command output stays machine readable.
func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	return logger.New(logger.Config{
		Level:       level,
		Format:      format,
		OutputPaths: []string{"stderr"},
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
