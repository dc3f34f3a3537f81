package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/etl/internal/apierror"
	"github.com/JonMunkholm/etl/internal/application"
	"github.com/JonMunkholm/etl/internal/core"
	"github.com/JonMunkholm/etl/internal/host"
	"github.com/JonMunkholm/etl/internal/hostapi"
	"github.com/JonMunkholm/etl/internal/importer"
)

type importOptions struct {
	plan      string
	file      string
	delimiter string
	encoding  string
	profile   string
	entity    int64
	dryRun    bool
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import --plan <itemtype> --file <file.csv>",
		Short: "Import every row of a CSV file as an item",
		Long: `Import every row of a CSV file as an item of the plan's type.
Rows with an "id" value update that item, other rows create one.
The command fails when the file cannot be read or when any row fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.dryRun {
				// validation must not ask for a database
				if err := os.Setenv("HOST_STORE", "memory"); err != nil {
					return err
				}
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("profile") {
				opts.profile = cfg.Host.DefaultProfile
			}
			if !cmd.Flags().Changed("entity") {
				opts.entity = cfg.Host.DefaultEntity
			}
			if opts.encoding == "" {
				opts.encoding = cfg.Upload.Encoding
			}

			app, err := application.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Upload.Timeout)
			defer cancel()
			return runImport(ctx, cmd.OutOrStdout(), app, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.plan, "plan", "p", "", "item type to import into")
	f.StringVarP(&opts.file, "file", "f", "", "CSV file to import")
	f.StringVarP(&opts.delimiter, "delimiter", "d", "", "field delimiter (default from UPLOAD_DEFAULT_DELIMITER)")
	f.StringVar(&opts.encoding, "encoding", "", "file charset (default from UPLOAD_ENCODING)")
	f.StringVar(&opts.profile, "profile", "", "profile whose rights apply (default from HOST_DEFAULT_PROFILE)")
	f.Int64Var(&opts.entity, "entity", 0, "entity new items belong to (default from HOST_DEFAULT_ENTITY)")
	f.BoolVar(&opts.dryRun, "dry-run", false, "import into a throwaway in-memory store")
	_ = cmd.MarkFlagRequired("plan")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runImport(ctx context.Context, out io.Writer, app *application.App, opts importOptions) error {
	allowed, err := app.Authz.CanUsePlugin(opts.profile)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("permission denied: profile %s cannot use the CSV import", opts.profile)
	}

	file, err := os.Open(opts.file)
	if err != nil {
		return err
	}
	defer file.Close()

	api := hostapi.New(app.Catalog, app.Config.Host.DocBaseURL)
	imp := core.NewCSVImport(
		importer.NewByAPI(api),
		importer.NewExtractorByAPI(api, app.Store),
		core.Options{
			DefaultDelimiter: app.Config.Upload.DefaultDelimiter,
			Encoding:         opts.encoding,
		},
	)

	delimiter := opts.delimiter
	if delimiter == "" {
		delimiter = imp.Options().DefaultDelimiter
	}

	sess := host.NewSession("etlctl", opts.profile, opts.entity, app.Config.Host.Entities...)
	if err := imp.ImportCSV(ctx, sess, opts.plan, file, delimiter); err != nil {
		if fb, ok := apierror.AsFeedback(err); ok {
			return errors.New(fb.Message)
		}
		return fmt.Errorf("%s: %w", core.FormatUserError(err), err)
	}

	errs := imp.Errors()
	printReport(out, filepath.Base(opts.file), errs, opts.dryRun)
	if len(errs) > 0 {
		return fmt.Errorf("%d row(s) failed", len(errs))
	}
	return nil
}

// printReport writes the rows that failed, in row order, or the success line.
func printReport(w io.Writer, fileName string, errs map[int][]apierror.Error, dryRun bool) {
	fmt.Fprintf(w, "File: %s\n", fileName)
	if dryRun {
		fmt.Fprintln(w, "Dry run: nothing was stored.")
	}
	if len(errs) == 0 {
		fmt.Fprintln(w, core.SuccessMessage)
		return
	}

	rows := make([]int, 0, len(errs))
	for row := range errs {
		rows = append(rows, row)
	}
	sort.Ints(rows)

	for _, row := range rows {
		fmt.Fprintf(w, "Row %d:\n", row)
		for _, e := range errs[row] {
			for _, line := range strings.Split(strings.TrimRight(e.String(), " "), "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}
}
