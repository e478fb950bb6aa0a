package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"golang-ar-aging-service/cmd/araging/config"
	"golang-ar-aging-service/internal/sample"
	"golang-ar-aging-service/pkg/errors"
)

var (
	sampleCount     int
	sampleSeed      int64
	sampleAsOf      string
	sampleCanonical bool
)

// sampleCmd represents the sample command
var sampleCmd = &cobra.Command{
	Use:   "sample <output>",
	Short: "Write a deterministic sample AR ledger",
	Long: `Sample writes a synthetic AR ledger (.xlsx or .csv) to try the analyzer on.
The ledger spans every aging bucket and includes tax withholding documents,
wire fees and invoices without a due date. The same seed and as-of date
always produce the same file.

Examples:
  araging sample demo.xlsx
  araging sample demo.csv --count 1000 --seed 7 --as-of 2025-06-30
  araging sample canonical.xlsx --canonical-headers`,
	Args: cobra.ExactArgs(1),
	RunE: runSample,
}

func init() {
	rootCmd.AddCommand(sampleCmd)

	sampleCmd.Flags().IntVarP(&sampleCount, "count", "n", 200, "number of invoices")
	sampleCmd.Flags().Int64Var(&sampleSeed, "seed", 42, "random seed")
	sampleCmd.Flags().StringVar(&sampleAsOf, "as-of", "", "date the ledger is generated relative to (YYYY-MM-DD, default today)")
	sampleCmd.Flags().BoolVar(&sampleCanonical, "canonical-headers", false, "write canonical column names instead of pivot-table headers")
}

func runSample(cmd *cobra.Command, args []string) error {
	output := args[0]
	switch strings.ToLower(filepath.Ext(output)) {
	case ".xlsx", ".csv":
	default:
		return errors.FileError(errors.CodeWriteFailed, output, fmt.Errorf("sample output must be .xlsx or .csv")).
			WithSuggestion("name the output with an .xlsx or .csv extension")
	}

	v := viper.GetViper()
	rawAsOf := v.GetString(config.KeyAsOf)
	if cmd.Flags().Changed("as-of") {
		rawAsOf = sampleAsOf
	}
	asOf, err := config.ParseAsOf(rawAsOf, now())
	if err != nil {
		return err
	}

	sampleConfig, err := config.CreateSampleConfig(v, sampleCount, sampleSeed, sampleCanonical, asOf)
	if err != nil {
		return err
	}

	generator, err := sample.NewGenerator(sampleConfig)
	if err != nil {
		return err
	}
	invoices := generator.Generate()
	if err := generator.Write(output, invoices); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d sample invoices to %s\n", len(invoices), output)
	return nil
}
