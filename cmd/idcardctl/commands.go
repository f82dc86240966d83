package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/idcards/internal/config"
	"github.com/JonMunkholm/idcards/internal/core"
	"github.com/JonMunkholm/idcards/internal/core/records"
	"github.com/JonMunkholm/idcards/internal/logging"
	"github.com/JonMunkholm/idcards/internal/store"
)

// errImportFailed is returned when nothing in the file could be accepted.
// The report has already been printed, so main only sets the exit code.
var errImportFailed = errors.New("import failed")

// errorText renders a command error for the terminal. Errors with a support
// code lead with the user message; the technical detail follows.
func errorText(err error) string {
	if !core.IsUserFacing(err) {
		return err.Error()
	}
	return core.FormatUserError(err) + "\n  " + err.Error()
}

type globalOptions struct {
	logLevel string
}

func newRootCmd() *cobra.Command {
	var g globalOptions

	root := &cobra.Command{
		Use:           "idcardctl",
		Short:         "Validate, template and import ID card CSV files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), g.logLevel, "text"))
		},
	}
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	root.AddCommand(newValidateCmd(), newTemplateCmd(), newImportCmd())
	return root
}

// report is what validate prints.
type report struct {
	File       string                 `json:"file" yaml:"file"`
	RecordType core.RecordType        `json:"recordType" yaml:"recordType"`
	Summary    core.ImportSummary     `json:"summary" yaml:"summary"`
	Errors     []core.ValidationError `json:"errors" yaml:"errors"`
	Records    []any                  `json:"records,omitempty" yaml:"records,omitempty"` // Student or Employee
}

type validateOptions struct {
	recordType string
	quoted     bool
	output     string
	records    bool
	maxSize    int64
}

func newValidateCmd() *cobra.Command {
	var opts validateOptions

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Parse a CSV file and report every problem without saving anything",
		Long: `Parse a CSV file with the same rules as the web import and print the result.

Exits with status 1 when no record in the file is acceptable.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.recordType, "type", "t", "", "Record type: student or employee (required)")
	cmd.Flags().BoolVar(&opts.quoted, "quoted", false, "Honor double-quoted cells containing commas")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "Output format: text, json or yaml")
	cmd.Flags().BoolVar(&opts.records, "records", false, "Include accepted records in json/yaml output")
	cmd.Flags().Int64Var(&opts.maxSize, "max-size", core.DefaultMaxFileSize, "Maximum file size in bytes")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func runValidate(out io.Writer, path string, opts validateOptions) error {
	schema, err := core.LookupSchema(opts.recordType)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	text, err := core.ReadImportText(f, opts.maxSize)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	result := core.ParseSchema(text, schema, core.ParseOptions{QuotedFields: opts.quoted})
	rep := report{
		File:       filepath.Base(path),
		RecordType: schema.Type,
		Summary:    result.Summary(),
		Errors:     result.Errors,
	}
	if opts.records {
		views, err := records.Views(schema.Type, result.Records)
		if err != nil {
			return err
		}
		rep.Records = views
	}

	if err := writeReport(out, opts.output, rep); err != nil {
		return err
	}
	if rep.Summary.Outcome == core.OutcomeFailed {
		return errImportFailed
	}
	return nil
}

func writeReport(out io.Writer, format string, rep report) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "yaml", "yml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		fmt.Fprintf(out, "%s (%s): %s [%s]\n", rep.File, rep.RecordType, rep.Summary, rep.Summary.Outcome)
		for _, e := range rep.Errors {
			fmt.Fprintf(out, "  %-10s %s\n", e.Kind, e.Error())
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q (use text, json or yaml)", format)
	}
}

func newTemplateCmd() *cobra.Command {
	var (
		recordType string
		xlsxPath   string
	)

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write a sample import file with the expected header and example rows",
		Long: `Write the import template for a record type.

CSV goes to stdout unless --xlsx names a workbook to create.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := core.LookupSchema(recordType)
			if err != nil {
				return err
			}
			if xlsxPath == "" {
				return core.WriteTemplateCSV(cmd.OutOrStdout(), schema)
			}

			f, err := os.Create(xlsxPath)
			if err != nil {
				return err
			}
			if err := core.WriteTemplateXLSX(f, schema); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", xlsxPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&recordType, "type", "t", "", "Record type: student or employee (required)")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Write an Excel workbook to this path instead of CSV to stdout")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func newImportCmd() *cobra.Command {
	var (
		recordType string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Parse a CSV file and register the accepted records in the configured store",
		Long: `Parse a CSV file and register every accepted record.

Store, size and batch settings come from the same environment variables as
the server (STORE_DRIVER, DATABASE_URL, UPLOAD_*). A .env file in the working
directory is loaded first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.UsesPostgres() {
				slog.Warn("STORE_DRIVER is memory; records will not outlive this command")
			}

			rt, err := core.ParseRecordType(recordType)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			recordStore, closeStore, err := store.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			svc := core.NewService(recordStore, core.Options{
				MaxFileSize:  cfg.Upload.MaxFileSize,
				BatchSize:    cfg.Upload.BatchSize,
				SessionTTL:   cfg.Upload.SessionTTL,
				QuotedFields: cfg.Upload.QuotedFields,
			})

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			preview, err := svc.Preview(ctx, rt, filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			if !preview.Committable() {
				_ = writeReport(cmd.OutOrStdout(), output, report{
					File:       preview.FileName,
					RecordType: rt,
					Summary:    preview.Summary,
					Errors:     preview.Result.Errors,
				})
				return errImportFailed
			}

			res, commitErr := svc.Commit(ctx, preview.ImportID)
			if res == nil {
				return commitErr
			}

			summary := core.ImportResult{Errors: res.Errors}.Summary()
			summary.Ready = res.Inserted
			summary.Outcome = res.Outcome()
			if err := writeReport(cmd.OutOrStdout(), output, report{
				File:       res.FileName,
				RecordType: rt,
				Summary:    summary,
				Errors:     res.Errors,
			}); err != nil {
				return err
			}
			if commitErr != nil {
				return fmt.Errorf("%d records registered before the failure: %w", res.Inserted, commitErr)
			}
			if res.Outcome() == core.OutcomeFailed {
				return errImportFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&recordType, "type", "t", "", "Record type: student or employee (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json or yaml")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}
