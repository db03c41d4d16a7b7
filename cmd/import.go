package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/leads"
	"github.com/sells-group/leadscout/internal/model"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-import leads from a CSV or XLSX file into an owner's saved leads",
	RunE:  runImport,
}

func init() {
	importCmd.Flags().String("file", "", "path to a .csv or .xlsx file (required)")
	importCmd.Flags().String("owner", "", "owner id to import into (required)")
	importCmd.Flags().String("policy", string(model.ImportSkipDuplicates), "duplicate policy: skip or replace")
	_ = importCmd.MarkFlagRequired("file")
	_ = importCmd.MarkFlagRequired("owner")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	path, _ := cmd.Flags().GetString("file")
	owner, _ := cmd.Flags().GetString("owner")
	policyFlag, _ := cmd.Flags().GetString("policy")

	policy, err := model.ParseImportPolicy(policyFlag)
	if err != nil {
		return err
	}

	records, err := readImportFile(path)
	if err != nil {
		return err
	}

	if err := cfg.Validate("import"); err != nil {
		return err
	}
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	svc := leads.NewService(st, nil)
	result, err := svc.ImportBulk(ctx, owner, records, policy)
	if err != nil {
		return eris.Wrap(err, "import")
	}

	zap.L().Info("import complete",
		zap.String("file", path),
		zap.Int("rows", len(records)),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d, replaced %d, skipped %d\n",
		result.Imported, result.Replaced, result.Skipped)
	return nil
}

func readImportFile(path string) ([]model.BusinessRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return leads.ReadXLSX(path)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return leads.ReadCSV(f)
	default:
		return nil, eris.Wrapf(model.ErrInvalidRequest, "unsupported import file type %q", filepath.Ext(path))
	}
}
