package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bizcomply/compliance-backend/config"
	"github.com/bizcomply/compliance-backend/internal/app"
	"github.com/bizcomply/compliance-backend/internal/app/service"
	"github.com/bizcomply/compliance-backend/internal/db"
	"github.com/bizcomply/compliance-backend/pkg/logger"
	"github.com/bizcomply/compliance-backend/pkg/redis"
)

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

type scanFlags struct {
	days   int
	dryRun bool
}

type reportFlags struct {
	companyID uint
	from      string
	to        string
	category  string
	status    string
	format    string
	out       string
}

func main() {
	root := &cobra.Command{
		Use:          "compliancectl",
		Short:        "Operate the compliance backend from the command line",
		SilenceUsage: true,
	}

	var scan scanFlags
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan for expiring documents and due compliance checks",
		Long:  "Scan finds documents and compliance records falling due within the lookahead window and notifies each company's active users. With --dry-run the candidates are printed and nothing is sent.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(c *app.Container) error {
				if !cmd.Flags().Changed("days") {
					scan.days = c.Scanner.DefaultLookahead()
				}
				return runScan(cmd.Context(), c, scan, cmd.OutOrStdout())
			})
		},
	}
	scanCmd.Flags().IntVar(&scan.days, "days", 0, "Lookahead window in days (defaults to COMPLIANCE_LOOKAHEAD_DAYS)")
	scanCmd.Flags().BoolVar(&scan.dryRun, "dry-run", false, "List candidates without notifying")

	var report reportFlags
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a compliance report for one company",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(c *app.Container) error {
				return runReport(c, report, cmd.OutOrStdout())
			})
		},
	}
	rf := reportCmd.Flags()
	rf.UintVar(&report.companyID, "company", 0, "Company ID")
	rf.StringVar(&report.from, "from", "", "First check date, YYYY-MM-DD")
	rf.StringVar(&report.to, "to", "", "Last check date, YYYY-MM-DD")
	rf.StringVar(&report.category, "category", "", "Only this rule category")
	rf.StringVar(&report.status, "status", "", "Only this compliance status")
	rf.StringVar(&report.format, "format", "json", "Output format: json or xlsx")
	rf.StringVar(&report.out, "out", "", "Write output to file instead of stdout")
	_ = reportCmd.MarkFlagRequired("company")

	purgeCmd := &cobra.Command{
		Use:   "purge-resets",
		Short: "Delete used and expired password reset grants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(c *app.Container) error {
				removed, err := c.PasswordReset.PurgeExpired()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d password reset grants\n", removed)
				return nil
			})
		},
	}

	root.AddCommand(scanCmd, reportCmd, purgeCmd)

	if err := root.ExecuteContext(context.Background()); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

// withContainer connects to the database and Redis, wires the application
// and runs fn against it.
func withContainer(ctx context.Context, fn func(*app.Container) error) error {
	cfg, err := config.Load()
	if err != nil {
		return codeError(3, "loading config: %s", err)
	}
	logger.Initialize(logger.Config{Level: "warn", Format: cfg.Server.LogFormat, Output: os.Stderr})

	if err := db.Initialize(&cfg.Database); err != nil {
		return codeError(3, "connecting to database: %s", err)
	}
	defer db.Close()

	if cfg.Redis.Enabled {
		if err := redis.Init(&cfg.Redis); err != nil {
			return codeError(3, "connecting to redis: %s", err)
		}
		defer redis.Close()
	}

	container, err := app.New(ctx, cfg, db.GetDB(), app.Options{})
	if err != nil {
		return codeError(3, "wiring application: %s", err)
	}
	return fn(container)
}

func runScan(ctx context.Context, c *app.Container, flags scanFlags, w io.Writer) error {
	if flags.dryRun {
		candidates, err := c.Scanner.Scan(flags.days)
		if err != nil {
			return err
		}
		return writeJSON(w, candidates)
	}

	report, err := c.Scanner.Run(ctx, flags.days)
	if report != nil {
		if werr := writeJSON(w, report); werr != nil {
			return werr
		}
	}
	if err != nil {
		if report != nil {
			return codeError(2, "%d notification(s) failed: %s", report.Failed, err)
		}
		return err
	}
	return nil
}

func runReport(c *app.Container, flags reportFlags, stdout io.Writer) error {
	if flags.format != "json" && flags.format != "xlsx" {
		return codeError(3, "unknown format %q", flags.format)
	}

	report, err := c.Reports.Generate(service.RequestContext{CompanyID: flags.companyID}, service.ReportCriteriaInput{
		FromDate: flags.from,
		ToDate:   flags.to,
		Category: flags.category,
		Status:   flags.status,
	})
	if err != nil {
		return err
	}

	w := stdout
	if flags.out != "" {
		f, err := os.Create(flags.out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if flags.format == "json" {
		return writeJSON(w, report)
	}
	data, err := c.Reports.ExportXLSX(report)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
