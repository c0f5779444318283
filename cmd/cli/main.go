package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"statlab/app"
	"statlab/domain/analysis"
	"statlab/domain/core"
	"statlab/internal"
	"statlab/internal/config"
	"statlab/internal/container"
	"statlab/internal/report"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cliOptions are the persistent flags shared by every command
type cliOptions struct {
	advanced bool
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}
	rootCmd := &cobra.Command{
		Use:           "statlab",
		Short:         "Run statistical analyses on CSV and Excel files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVar(&opts.advanced, "advanced", false, "Enable advanced tests (overrides PLAN_ADVANCED)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: error|warn|info|debug|trace")

	rootCmd.AddCommand(
		newTestsCmd(opts),
		newRunCmd(opts),
		newAssumptionsCmd(opts),
		newDescribeCmd(opts),
	)
	return rootCmd
}

// setup builds the dependency container without a database
func setup(cmd *cobra.Command, opts *cliOptions) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.advanced {
		cfg.Plan.Advanced = true
	}
	logger := internal.NewLoggerTo(cmd.ErrOrStderr(), internal.ParseLogLevel(opts.logLevel))
	return container.New(cfg, logger)
}

func newTestsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tests",
		Short: "List the available tests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TEST\tNAME\tFAMILY\tAVAILABLE")
			for _, item := range c.Service.Catalog() {
				available := "yes"
				if !item.Available {
					available = "advanced plan"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", item.TestType, item.Name, item.Family, available)
			}
			return w.Flush()
		},
	}
}

func newRunCmd(opts *cliOptions) *cobra.Command {
	var (
		flags    requestFlags
		narrate  bool
		asJSON   bool
		htmlPath string
	)
	cmd := &cobra.Command{
		Use:   "run [dataset-file]",
		Short: "Run one analysis on a CSV or XLSX file",
		Long: `Run one analysis on a CSV or XLSX file and print the result tables.

The request comes from flags, a YAML/JSON request file, or both (flags win).

Examples:
  statlab run scores.csv --test independent-t --dv score --group class
  statlab run survey.xlsx --request reliability.yaml --narrate
  statlab run items.csv -t factor-analysis --dv q1,q2,q3,q4 --factors 2 --advanced --html report.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			upload, err := c.Reader.ReadFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			req, err := flags.build(cmd, upload)
			if err != nil {
				return err
			}

			outcome, err := c.Service.Run(cmd.Context(), req, app.RunOptions{DatasetName: upload.Name, Narrate: narrate})
			if err != nil {
				return describeError(err)
			}
			if htmlPath != "" {
				if err := os.WriteFile(htmlPath, report.HTML(document(c, upload.Name, req, outcome)), 0o644); err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), outcome)
			}
			fmt.Fprint(cmd.OutOrStdout(), report.Markdown(document(c, upload.Name, req, outcome)))
			for _, w := range outcome.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&narrate, "narrate", false, "Add a plain-language interpretation")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().StringVar(&htmlPath, "html", "", "Also write a standalone HTML report to this path")
	return cmd
}

func newAssumptionsCmd(opts *cliOptions) *cobra.Command {
	var (
		flags  requestFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "assumptions [dataset-file]",
		Short: "Check the assumptions of a test before running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			upload, err := c.Reader.ReadFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			req, err := flags.build(cmd, upload)
			if err != nil {
				return err
			}
			checks, err := c.Service.CheckAssumptions(cmd.Context(), req)
			if err != nil {
				return describeError(err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), checks)
			}
			if len(checks) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s has no checkable assumptions.\n", req.TestType)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), report.AssumptionsMarkdown(checks))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the checks as JSON")
	return cmd
}

func newDescribeCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe [dataset-file]",
		Short: "Show the columns of a dataset and their inferred measures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			upload, err := c.Reader.ReadFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			ds := upload.Dataset()

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows, %d columns\n\n", upload.Name, ds.RowCount(), len(upload.Columns))
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "COLUMN\tMEASURE\tMISSING")
			for _, v := range upload.Variables {
				missing := 0
				for i := 0; i < ds.RowCount(); i++ {
					if ds.Value(i, v.Name) == nil {
						missing++
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%d\n", v.Name, v.Measure, missing)
			}
			return w.Flush()
		},
	}
}

func document(c *container.Container, datasetName string, req *analysis.Request, outcome *app.RunOutcome) report.Document {
	doc := report.Document{
		Title:    string(req.TestType),
		Dataset:  datasetName,
		RowCount: len(req.Data),
		Result:   outcome.Result,
	}
	for _, item := range c.Service.Catalog() {
		if item.TestType == req.TestType {
			doc.Title = item.Name
		}
	}
	if outcome.Narrative != nil {
		doc.Narrative = outcome.Narrative.Text
	}
	return doc
}

// describeError prefixes engine failures with their kind
func describeError(err error) error {
	if kind := core.ErrorKind(err); kind != core.KindInternal {
		return fmt.Errorf("%s: %w", kind, err)
	}
	return err
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
