package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"onthesis/internal/config"
	"onthesis/internal/container"
	apperrors "onthesis/internal/errors"
	"onthesis/internal/stats"
)

// session carries the resolved identity and the wired container to every
// command.
type session struct {
	userID      string
	projectID   string
	metricsFile string
	container   *container.Container
}

func main() {
	// Load environment variables from .env file when present
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "%s: %v\n", apperrors.GetCode(err), err)
		os.Exit(1)
	}
}

// execute runs one command and then closes the session, so metrics are
// written for failed commands too.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	rootCmd, s := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if closeErr := s.close(); err == nil {
		err = closeErr
	}
	return err
}

func newRootCmd() (*cobra.Command, *session) {
	s := &session{}

	rootCmd := &cobra.Command{
		Use:           "onthesis",
		Short:         "Tabular dataset workspace with statistical analyses",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.init(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&s.userID, "user", "", "User ID (default DEFAULT_USER_ID)")
	rootCmd.PersistentFlags().StringVar(&s.projectID, "project", "", "Project ID (default DEFAULT_PROJECT_ID)")
	rootCmd.PersistentFlags().StringVar(&s.metricsFile, "metrics-file", "", "Write prometheus metrics to this file on exit (default METRICS_FILE)")

	rootCmd.AddCommand(
		newPreviewCmd(s),
		newImportCmd(s),
		newAnalyzeCmd(s),
		newPrepareCmd(s),
		newSearchCmd(s),
		newScanCmd(s),
		newHistoryCmd(s),
		newDataCmd(s),
		newVariablesCmd(s),
		newSetVariableCmd(s),
		newSetCellCmd(s),
		newAddColumnCmd(s),
		newRemoveColumnCmd(s),
		newExportCmd(s),
		newResetCmd(s),
		newMigrateCmd(s),
	)
	return rootCmd, s
}

func (s *session) init(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if s.userID == "" {
		s.userID = cfg.Session.DefaultUserID
	}
	if s.projectID == "" {
		s.projectID = cfg.Session.DefaultProjectID
	}
	if s.metricsFile == "" {
		s.metricsFile = cfg.Metrics.File
	}

	c, err := container.New(cfg)
	if err != nil {
		return err
	}
	if err := c.Init(ctx); err != nil {
		return err
	}
	s.container = c
	return nil
}

// close writes the metrics file, when one is configured, and releases the
// container.
func (s *session) close() error {
	if s.container == nil {
		return nil
	}
	var metricsErr error
	if s.metricsFile != "" {
		metricsErr = s.container.WriteMetrics(s.metricsFile)
	}
	if err := s.container.Shutdown(context.Background()); err != nil {
		return err
	}
	return metricsErr
}

// parseParams decodes a JSON object of named parameters. An empty string
// is no parameters.
func parseParams(raw string) (stats.Params, error) {
	params := stats.Params{}
	if raw == "" {
		return params, nil
	}
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, apperrors.Validationf("--params must be a JSON object: %v", err)
	}
	return params, nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
