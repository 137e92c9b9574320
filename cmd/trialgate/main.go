package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trialgate/adapters/api"
	"trialgate/adapters/record"
	"trialgate/domain/patient"
	"trialgate/internal/config"
	"trialgate/internal/container"
	"trialgate/internal/logging"
	"trialgate/internal/rules"
	"trialgate/internal/sequence"
)

func main() {
	// .env is optional; the environment wins.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "trialgate",
		Short:         "Evaluate trial eligibility criteria against patient records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newEvaluateCmd(),
		newLinesCmd(),
		newRulesCmd(),
		newServeCmd(),
	)
	return rootCmd
}

// bootstrap loads configuration and wires the container.
func bootstrap() (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return container.New(cfg, logger, time.Now())
}

func newEvaluateCmd() *cobra.Command {
	var patientPath, criteriaPath, treatmentsPath string
	var asText bool

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a criteria set against one patient",
		Long: `Evaluate every criterion of a criteria file against a patient record and
print the per-criterion verdicts plus the overall (worst) verdict.

Without --criteria the file named by TRIALGATE_CRITERIA_FILE is used.

Example: trialgate evaluate --patient p.json --criteria cohort.yaml --treatments history.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bootstrap()
			if err != nil {
				return err
			}
			defer c.Logger.Sync() //nolint:errcheck

			rec, err := loadRecord(c.Logger, patientPath, treatmentsPath)
			if err != nil {
				return err
			}

			var evaluator *rules.Evaluator
			if criteriaPath != "" {
				set, err := rules.LoadCriteria(criteriaPath)
				if err != nil {
					return err
				}
				evaluator, err = c.NewEvaluator(set)
				if err != nil {
					return err
				}
			} else if evaluator, err = c.DefaultEvaluator(); err != nil {
				return err
			}

			report, err := evaluator.Evaluate(cmd.Context(), rec)
			if err != nil {
				return err
			}
			if asText {
				return printReport(cmd.OutOrStdout(), report)
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&patientPath, "patient", "", "Patient record JSON file")
	cmd.Flags().StringVar(&criteriaPath, "criteria", "", "Criteria YAML file")
	cmd.Flags().StringVar(&treatmentsPath, "treatments", "", "Treatment history (.xlsx or .csv) replacing the record's treatments")
	cmd.Flags().BoolVar(&asText, "text", false, "Print a table instead of JSON")
	_ = cmd.MarkFlagRequired("patient")

	return cmd
}

func newLinesCmd() *cobra.Command {
	var patientPath, treatmentsPath string

	cmd := &cobra.Command{
		Use:   "lines",
		Short: "Report systemic line bounds and the latest systemic course",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if patientPath == "" && treatmentsPath == "" {
				return fmt.Errorf("one of --patient or --treatments is required")
			}
			c, err := bootstrap()
			if err != nil {
				return err
			}
			defer c.Logger.Sync() //nolint:errcheck

			var courses []patient.TreatmentCourse
			if patientPath != "" {
				rec, err := loadRecord(c.Logger, patientPath, treatmentsPath)
				if err != nil {
					return err
				}
				courses = rec.Treatments
			} else {
				courses, err = record.NewTreatmentReader(treatmentsPath, c.Logger).ReadTreatments()
				if err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), sequence.Summarize(courses))
		},
	}

	cmd.Flags().StringVar(&patientPath, "patient", "", "Patient record JSON file")
	cmd.Flags().StringVar(&treatmentsPath, "treatments", "", "Treatment history (.xlsx or .csv)")

	return cmd
}

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the rules criteria files may use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RULE\tPARAMETERS\tDESCRIPTION")
			for _, rc := range rules.GetRuleConfigs() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", rc.Rule, rc.Parameters, rc.Description)
			}
			return w.Flush()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the evaluation API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bootstrap()
			if err != nil {
				return err
			}
			defer c.Logger.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return api.NewServer(c).Start(ctx)
		},
	}
}

func loadRecord(logger *zap.Logger, patientPath, treatmentsPath string) (patient.Record, error) {
	rec, err := record.LoadPatient(patientPath)
	if err != nil {
		return patient.Record{}, err
	}
	if treatmentsPath == "" {
		return rec, nil
	}
	courses, err := record.NewTreatmentReader(treatmentsPath, logger).ReadTreatments()
	if err != nil {
		return patient.Record{}, err
	}
	return rec.WithTreatments(courses), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReport(w io.Writer, report *rules.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Evaluation %s for patient %s (%s)\n\n", report.EvaluationID, report.PatientID, report.Criteria)
	fmt.Fprintln(tw, "ID\tRULE\tOUTCOME\tDETAILS")
	for _, r := range report.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Rule, r.Verdict.Outcome(), firstMessage(r.Verdict.Messages().Specific))
	}
	fmt.Fprintf(tw, "\nOverall\t%s\t%s\n", report.Overall.Outcome(), report.Overall.DisplayName())
	return tw.Flush()
}

func firstMessage(msgs []string) string {
	if len(msgs) == 0 {
		return ""
	}
	return msgs[0]
}
