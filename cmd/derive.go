package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/recordlink/internal/derive"
	"github.com/sells-group/recordlink/internal/table"
)

var (
	deriveIn    string
	deriveOut   string
	deriveSheet string
)

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Compute derived metrics on a table",
	Long:  "Reads a CSV, TSV or XLSX table, adds a derived column and writes the result as CSV (stdout when --out is empty).",
}

// deriveStep wraps a table transform as a RunE that reads --in and writes --out.
func deriveStep(fn func(t *table.Table) (*table.Table, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("derive"); err != nil {
			return err
		}
		t, err := loadTable(cmd.Context(), deriveIn, deriveSheet)
		if err != nil {
			return err
		}
		out, err := fn(t)
		if err != nil {
			return err
		}
		return writeTable(deriveOut, out)
	}
}

var (
	ageBirth   string
	ageRelease string
	ageOutCol  string
)

var deriveAgeCmd = &cobra.Command{
	Use:   "age",
	Short: "Age at release from birth and release years",
	RunE: deriveStep(func(t *table.Table) (*table.Table, error) {
		return derive.ComputeAge(t, ageBirth, ageRelease, ageOutCol, derive.AgeBounds{
			Min: cfg.Derive.AgeMin,
			Max: cfg.Derive.AgeMax,
		})
	}),
}

var (
	roiRevenue string
	roiBudget  string
)

var deriveROICmd = &cobra.Command{
	Use:   "roi",
	Short: "Return on investment percentage from revenue and budget",
	RunE: deriveStep(func(t *table.Table) (*table.Table, error) {
		return derive.ComputeROI(t, roiRevenue, roiBudget)
	}),
}

var (
	quantileCol    string
	quantileCutoff []float64
)

var deriveQuantileCmd = &cobra.Command{
	Use:   "quantile",
	Short: "Bucket a numeric column by quantile",
	RunE: deriveStep(func(t *table.Table) (*table.Table, error) {
		qs := quantileCutoff
		if len(qs) == 0 {
			qs = cfg.Derive.Quantiles
		}
		return derive.QuantileBucket(t, quantileCol, qs)
	}),
}

var (
	companyCol     string
	companyColumns []string
	companyTopN    string
	companyCount   bool
	companySplit   bool
)

var deriveCompaniesCmd = &cobra.Command{
	Use:   "companies",
	Short: "Rank rows by primary production company",
	RunE: deriveStep(func(t *table.Table) (*table.Table, error) {
		if companySplit {
			return derive.SplitCompany(t, companyCol)
		}
		n, err := derive.ParseTopN(companyTopN)
		if err != nil {
			return nil, err
		}
		return derive.TopNByCompany(t, companyCol, companyColumns, n, companyCount)
	}),
}

func init() {
	deriveCmd.PersistentFlags().StringVar(&deriveIn, "in", "", "input table path (required)")
	deriveCmd.PersistentFlags().StringVar(&deriveOut, "out", "", "output CSV path (stdout when empty)")
	deriveCmd.PersistentFlags().StringVar(&deriveSheet, "sheet", "", "sheet name for XLSX input")
	_ = deriveCmd.MarkPersistentFlagRequired("in")

	deriveAgeCmd.Flags().StringVar(&ageBirth, "birth", "birth_year", "birth year column")
	deriveAgeCmd.Flags().StringVar(&ageRelease, "release", "year", "release year column")
	deriveAgeCmd.Flags().StringVar(&ageOutCol, "out-col", "age", "output column")

	deriveROICmd.Flags().StringVar(&roiRevenue, "revenue", "revenue", "revenue column")
	deriveROICmd.Flags().StringVar(&roiBudget, "budget", "budget", "budget column")

	deriveQuantileCmd.Flags().StringVar(&quantileCol, "col", "", "numeric column to bucket (required)")
	deriveQuantileCmd.Flags().Float64SliceVar(&quantileCutoff, "quantiles", nil, "quantiles in [0, 1] (default from config)")
	_ = deriveQuantileCmd.MarkFlagRequired("col")

	deriveCompaniesCmd.Flags().StringVar(&companyCol, "col", "production_companies", "comma-separated company list column")
	deriveCompaniesCmd.Flags().StringSliceVar(&companyColumns, "columns", nil, "columns to keep in the ranking")
	deriveCompaniesCmd.Flags().StringVar(&companyTopN, "n", "0", "number of top companies to keep (0 keeps all)")
	deriveCompaniesCmd.Flags().BoolVar(&companyCount, "count", false, "attach the per-company count column when --n is 0")
	deriveCompaniesCmd.Flags().BoolVar(&companySplit, "split-only", false, "only add the primary and secondary company columns")

	deriveCmd.AddCommand(deriveAgeCmd, deriveROICmd, deriveQuantileCmd, deriveCompaniesCmd)
	rootCmd.AddCommand(deriveCmd)
}
