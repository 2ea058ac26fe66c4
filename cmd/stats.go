package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/recordlink/internal/derive"
	"github.com/sells-group/recordlink/internal/report"
	"github.com/sells-group/recordlink/internal/table"
)

var (
	statsIn    string
	statsSheet string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print per-column missing-value statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		t, err := loadTable(cmd.Context(), statsIn, statsSheet)
		if err != nil {
			return err
		}
		report.PrintMissingStats(os.Stdout, t)
		return nil
	},
}

var (
	testStatistic float64
	testPValue    float64
	testName      string
	testNull      string
)

var statsTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Print the verdict for a hypothesis test result",
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := cfg.Validate("stats"); err != nil {
			return err
		}
		report.PrintTestResult(os.Stdout, report.TestResult{
			Statistic:      testStatistic,
			PValue:         testPValue,
			StatisticName:  testName,
			NullHypothesis: testNull,
			Alpha:          cfg.Report.Alpha,
		})
		return nil
	},
}

var (
	eqLeftIn   string
	eqLeftCol  string
	eqRightIn  string
	eqRightCol string
	eqOut      string
)

var statsEqualizeCmd = &cobra.Command{
	Use:   "equalize",
	Short: "Bootstrap two samples to the same length",
	Long:  "Reads one column from each of two tables, drops missing values, pads the shorter sample by resampling with replacement and writes both as a two-column CSV.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		left, err := sampleColumn(ctx, eqLeftIn, eqLeftCol)
		if err != nil {
			return err
		}
		right, err := sampleColumn(ctx, eqRightIn, eqRightCol)
		if err != nil {
			return err
		}

		a, b, err := derive.BootstrapEqualize(left, right, cfg.Derive.Seed)
		if err != nil {
			return err
		}

		out, err := table.New(eqLeftCol, uniqueName(eqRightCol, eqLeftCol))
		if err != nil {
			return err
		}
		for i := range a {
			if err := out.Append(a[i], b[i]); err != nil {
				return err
			}
		}
		return writeTable(eqOut, out)
	},
}

func sampleColumn(ctx context.Context, path, col string) ([]table.Value, error) {
	t, err := loadTable(ctx, path, "")
	if err != nil {
		return nil, err
	}
	present, err := t.DropMissing(col)
	if err != nil {
		return nil, err
	}
	return present.Col(col)
}

// uniqueName suffixes name with "_y" when it collides with other.
func uniqueName(name, other string) string {
	if name == other {
		return name + "_y"
	}
	return name
}

func init() {
	statsCmd.Flags().StringVar(&statsIn, "in", "", "input table path (required)")
	statsCmd.Flags().StringVar(&statsSheet, "sheet", "", "sheet name for XLSX input")
	_ = statsCmd.MarkFlagRequired("in")

	statsTestCmd.Flags().Float64Var(&testStatistic, "statistic", 0, "test statistic value")
	statsTestCmd.Flags().Float64Var(&testPValue, "p-value", 1, "p-value of the test")
	statsTestCmd.Flags().StringVar(&testName, "name", "U", "name of the test statistic")
	statsTestCmd.Flags().StringVar(&testNull, "null", "", "null hypothesis, quoted in the verdict (required)")
	_ = statsTestCmd.MarkFlagRequired("null")

	statsEqualizeCmd.Flags().StringVar(&eqLeftIn, "left", "", "first table path (required)")
	statsEqualizeCmd.Flags().StringVar(&eqLeftCol, "left-col", "", "column of the first table (required)")
	statsEqualizeCmd.Flags().StringVar(&eqRightIn, "right", "", "second table path (required)")
	statsEqualizeCmd.Flags().StringVar(&eqRightCol, "right-col", "", "column of the second table (required)")
	statsEqualizeCmd.Flags().StringVar(&eqOut, "out", "", "output CSV path (stdout when empty)")
	for _, f := range []string{"left", "left-col", "right", "right-col"} {
		_ = statsEqualizeCmd.MarkFlagRequired(f)
	}

	statsCmd.AddCommand(statsTestCmd, statsEqualizeCmd)
	rootCmd.AddCommand(statsCmd)
}
