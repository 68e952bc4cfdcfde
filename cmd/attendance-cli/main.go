// Command attendance-cli analyzes an exported attendance table offline.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-analyzer/internal/importer"
	"github.com/noah-isme/attendance-analyzer/internal/models"
	"github.com/noah-isme/attendance-analyzer/internal/service"
	"github.com/noah-isme/attendance-analyzer/pkg/logger"
)

type analyzeFlags struct {
	input      string
	thresholds string
	output     string
	logLevel   string
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "attendance-cli",
		Short:         "Attendance percentages and threshold projections from a portal export",
		SilenceUsage: true,
	}
	root.AddCommand(newAnalyzeCmd(out))
	return root
}

func newAnalyzeCmd(out io.Writer) *cobra.Command {
	flags := analyzeFlags{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Aggregate a CSV or JSON attendance table",
		Long: `analyze groups rows by subject (the label before the first hyphen),
computes attendance percentages and projects how many classes are needed or
may be missed for each threshold.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.NewCLI(flags.logLevel)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck
			return runAnalyze(flags, out, log)
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "attendance table (.csv or .json), - for stdin CSV")
	cmd.Flags().StringVarP(&flags.thresholds, "thresholds", "t", "0.60,0.75", "comma separated attendance ratios")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "json", "output format: json or csv")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "warn", "log level")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runAnalyze(flags analyzeFlags, out io.Writer, log *zap.Logger) error {
	thresholds, err := models.ParseThresholds(flags.thresholds)
	if err != nil {
		return fmt.Errorf("--thresholds: %w", err)
	}
	format := strings.ToLower(flags.output)
	if format != "json" && format != "csv" {
		return fmt.Errorf("--output must be json or csv, got %q", flags.output)
	}

	rows, err := readRows(flags.input)
	if err != nil {
		return err
	}
	log.Debug("rows loaded", zap.String("input", flags.input), zap.Int("rows", len(rows)))

	result := service.Aggregate(rows, thresholds)
	if !result.Succeeded() {
		log.Error("aggregation failed", zap.String("kind", string(result.Kind)), zap.Error(result.Err))
		if err := writeJSON(out, result); err != nil {
			return err
		}
		return fmt.Errorf("%s", result.Message)
	}

	if format == "csv" {
		return writeCSV(out, result)
	}
	return writeJSON(out, result)
}

func readRows(path string) ([]models.RawAttendanceRow, error) {
	if path == "-" {
		return importer.ParseCSV(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return importer.ParseJSON(f)
	case ".csv":
		return importer.ParseCSV(f)
	default:
		return nil, fmt.Errorf("unsupported input extension %q (want .csv or .json)", filepath.Ext(path))
	}
}
