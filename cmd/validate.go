package main

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/hoopsight/hoopsync/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check store consistency",
	Long: `Run the validation checks against the store.

Fixes are only applied under --fix, and only for checks whose fix is
conservative (clearing a stale flag, deleting orphaned or duplicated
rows). Exits 1 when critical findings remain after any fixes.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		season, _ := cmd.Flags().GetString("season")
		categoriesStr, _ := cmd.Flags().GetString("categories")
		checkID, _ := cmd.Flags().GetString("check-id")
		fix, _ := cmd.Flags().GetBool("fix")
		output, _ := cmd.Flags().GetString("output")

		var categories []string
		if categoriesStr != "" {
			categories = strings.Split(categoriesStr, ",")
			for i := range categories {
				categories[i] = strings.TrimSpace(categories[i])
			}
		}

		report, err := validate.NewEngine(st).Run(ctx, validate.RunOpts{
			Season:     season,
			Categories: categories,
			CheckID:    checkID,
			Fix:        fix,
		})
		if err != nil {
			return eris.Wrap(err, "validate")
		}

		if err := report.Render(os.Stdout, validate.Format(output)); err != nil {
			return err
		}

		if report.HasCritical() {
			cmd.SilenceUsage = true
			return eris.Errorf("%d critical finding(s) remain", report.Criticals)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().String("season", "", "restrict checks to one season")
	validateCmd.Flags().String("categories", "", "comma-separated categories: flags,xref,integrity,domain,volume,temporal")
	validateCmd.Flags().String("check-id", "", "run a single check, e.g. flags-001")
	validateCmd.Flags().Bool("fix", false, "apply conservative fixes")
	validateCmd.Flags().String("output", "human", "output format: human, json, yaml")
	rootCmd.AddCommand(validateCmd)
}
