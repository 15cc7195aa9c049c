package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadline/crm-cli/internal/importer"
)

var (
	importFile   string
	importCommit bool
	importFormat string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import clients in bulk from a CSV or XLSX file",
	Long: `Parses a lead spreadsheet, validates and deduplicates every row, and
prints a per-row preview. Nothing is written unless --commit is given, in
which case the rows the preview classified as valid are persisted one by one.

Examples:
  # Preview only — classify rows, write nothing
  crm-cli import --file leads.csv

  # Preview, then persist the valid rows
  crm-cli import --file leads.xlsx --commit

  # Machine-readable preview
  crm-cli import --file leads.csv --format json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(importFile)
		if err != nil {
			return eris.Wrapf(err, "import: read %s", importFile)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		imp, err := importer.New(st, cfg.Import)
		if err != nil {
			return err
		}

		preview, err := imp.Preview(ctx, data, importFile)
		if err != nil {
			return eris.Wrap(err, "import: preview")
		}

		if err := printPreview(preview, importFormat); err != nil {
			return err
		}

		if !importCommit {
			return nil
		}

		var approved []importer.Candidate
		for _, outcome := range preview.Outcomes {
			if outcome.Kind == importer.OutcomeValid {
				approved = append(approved, *outcome.Candidate)
			}
		}
		if len(approved) == 0 {
			zap.L().Info("no valid rows to commit")
			return nil
		}

		report, err := imp.Commit(ctx, approved)
		if err != nil {
			return eris.Wrap(err, "import: commit")
		}

		fmt.Printf("committed: %d created, %d failed\n", report.Success, report.Failed)
		for _, f := range report.Failures {
			fmt.Printf("  row %d (%s): %s\n", f.Row, f.Phone, f.Error)
		}
		if report.Failed > 0 && report.Success == 0 {
			return eris.New("import: all rows failed to commit")
		}
		return nil
	},
}

// printPreview renders the preview as a table or JSON.
func printPreview(preview *importer.PreviewResult, format string) error {
	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(preview), "import: encode preview")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ROW\tOUTCOME\tNAME\tPHONE\tDETAIL")
	for _, o := range preview.Outcomes {
		name, phone, detail := "", "", ""
		if o.Candidate != nil {
			name, phone = o.Candidate.Name, o.Candidate.Phone
		}
		if len(o.Errors) > 0 {
			detail = strings.Join(o.Errors, "; ")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", o.Row, o.Kind, name, phone, detail)
	}
	if err := w.Flush(); err != nil {
		return eris.Wrap(err, "import: flush table")
	}

	fmt.Printf("total %d: %d valid, %d duplicates, %d errors\n",
		preview.Total, preview.Valid, preview.Duplicates, preview.Errors)
	return nil
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "path to CSV or XLSX file (required)")
	importCmd.Flags().BoolVar(&importCommit, "commit", false, "persist rows classified as valid")
	importCmd.Flags().StringVar(&importFormat, "format", "table", "preview output format: table|json")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
