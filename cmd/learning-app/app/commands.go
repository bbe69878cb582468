// Package app holds the learning-app command tree.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	internalapp "learning-app-go/internal/app"
	syncdomain "learning-app-go/internal/domain/sync"
	"learning-app-go/pkg/logger"
)

type factory func(log logger.Logger) (*internalapp.App, error)

// NewRootCmd builds the command tree. Every command opens the local store,
// initializes the coordinator and prints JSON to stdout.
func NewRootCmd(log logger.Logger) *cobra.Command {
	return newRootCmd(log, internalapp.New)
}

func newRootCmd(log logger.Logger, open factory) *cobra.Command {
	root := &cobra.Command{
		Use:           "learning-app",
		Short:         "Offline-first lesson, note and progress sync client",
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().Bool("offline", false, "Force offline mode (requires CONNECTIVITY_MODE=online or offline)")

	root.AddCommand(
		newInitCmd(log, open),
		newLessonsCmd(log, open),
		newSelectCmd(log, open),
		newProgressCmd(log, open),
		newNoteCmd(log, open),
		newFlushCmd(log, open),
		newResetCmd(log, open),
		newStatusCmd(log, open),
		newWatchCmd(log, open),
	)
	return root
}

// session opens the app, applies --offline and runs Initialize.
type session struct {
	app    *internalapp.App
	coord  *syncdomain.Coordinator
	result syncdomain.Result
}

func openSession(cmd *cobra.Command, log logger.Logger, open factory) (*session, error) {
	application, err := open(log)
	if err != nil {
		return nil, fmt.Errorf("open app: %w", err)
	}

	offline, _ := cmd.Flags().GetBool("offline")
	if offline && !application.SetOnline(false) {
		_ = application.Close()
		return nil, errors.New("--offline needs a fixed connectivity mode")
	}

	coord := application.Coordinator()
	return &session{
		app:    application,
		coord:  coord,
		result: coord.Initialize(cmd.Context()),
	}, nil
}

func (s *session) Close() error {
	return s.app.Close()
}

func withSession(log logger.Logger, open factory, fn func(cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, log, open)
		if err != nil {
			return err
		}
		defer func() {
			if err := s.Close(); err != nil {
				log.Error("app: close failed", "err", err)
			}
		}()
		return fn(cmd, s, args)
	}
}

func newInitCmd(log logger.Logger, open factory) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Load lessons from the local store and sync with the server",
		Args:  cobra.NoArgs,
		RunE: withSession(log, open, func(cmd *cobra.Command, s *session, _ []string) error {
			return printResult(cmd, s.result, s.coord.Snapshot())
		}),
	}
}

func newLessonsCmd(log logger.Logger, open factory) *cobra.Command {
	return &cobra.Command{
		Use:   "lessons",
		Short: "List lessons",
		Args:  cobra.NoArgs,
		RunE: withSession(log, open, func(cmd *cobra.Command, s *session, _ []string) error {
			if err := s.result.Err; err != nil {
				return err
			}
			return printJSON(cmd, s.coord.Snapshot().Lessons)
		}),
	}
}

func newSelectCmd(log logger.Logger, open factory) *cobra.Command {
	return &cobra.Command{
		Use:   "select <lesson-id>",
		Short: "Show a lesson with its notes",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(log, open, func(cmd *cobra.Command, s *session, args []string) error {
			id, err := parseLessonID(args[0])
			if err != nil {
				return err
			}
			return printResult(cmd, s.coord.SelectLesson(cmd.Context(), id), s.coord.Snapshot())
		}),
	}
}

func newProgressCmd(log logger.Logger, open factory) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <lesson-id> <percent>",
		Short: "Record lesson progress",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(log, open, func(cmd *cobra.Command, s *session, args []string) error {
			id, err := parseLessonID(args[0])
			if err != nil {
				return err
			}
			progress, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid progress %q", args[1])
			}
			return printResult(cmd, s.coord.UpdateProgress(cmd.Context(), id, progress), s.coord.Snapshot())
		}),
	}
}

func newNoteCmd(log logger.Logger, open factory) *cobra.Command {
	return &cobra.Command{
		Use:   "note <lesson-id> <text>...",
		Short: "Add a note to a lesson",
		Args:  cobra.MinimumNArgs(2),
		RunE: withSession(log, open, func(cmd *cobra.Command, s *session, args []string) error {
			id, err := parseLessonID(args[0])
			if err != nil {
				return err
			}
			if result := s.coord.SelectLesson(cmd.Context(), id); result.Err != nil && result.Outcome != syncdomain.OutcomeNotFound {
				return result.Err
			}
			text := strings.Join(args[1:], " ")
			return printResult(cmd, s.coord.AddNote(cmd.Context(), id, text), s.coord.Snapshot())
		}),
	}
}

func newFlushCmd(log logger.Logger, open factory) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Deliver queued changes to the server",
		Args:  cobra.NoArgs,
		RunE: withSession(log, open, func(cmd *cobra.Command, s *session, _ []string) error {
			report := s.coord.Flush(cmd.Context())
			return printJSON(cmd, flushOutput{
				resultOutput: newResultOutput(report.Result),
				Synced:       report.Synced,
				Rejected:     report.Rejected,
				Remaining:    report.Remaining,
			})
		}),
	}
}

func newResetCmd(log logger.Logger, open factory) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete all local data and initialize again",
		Args:  cobra.NoArgs,
		RunE: withSession(log, open, func(cmd *cobra.Command, s *session, _ []string) error {
			return printResult(cmd, s.coord.ResetAll(cmd.Context()), s.coord.Snapshot())
		}),
	}
}

func newStatusCmd(log logger.Logger, open factory) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync phase and queued changes",
		Args:  cobra.NoArgs,
		RunE: withSession(log, open, func(cmd *cobra.Command, s *session, _ []string) error {
			view := s.coord.Snapshot()
			return printJSON(cmd, statusOutput{
				Phase:        view.Phase,
				IsOffline:    view.IsOffline,
				Lessons:      len(view.Lessons),
				PendingCount: view.PendingCount,
				LastError:    view.LastError,
			})
		}),
	}
}

func newWatchCmd(log logger.Logger, open factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep syncing in the background and print every view change",
		Args:  cobra.NoArgs,
		RunE: withSession(log, open, func(cmd *cobra.Command, s *session, _ []string) error {
			ctx := cmd.Context()

			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
			if metricsAddr != "" {
				stopMetrics, err := serveMetrics(ctx, s.app, metricsAddr, log)
				if err != nil {
					return err
				}
				defer stopMetrics()
			}

			views, unsubscribe := s.coord.Subscribe()
			defer unsubscribe()

			go func() {
				for view := range views {
					if err := printJSON(cmd, view); err != nil {
						log.Error("watch: print view failed", "err", err)
					}
				}
			}()

			log.Info("watch: running, press Ctrl+C to stop")
			return s.app.Run(ctx)
		}),
	}
	cmd.Flags().String("metrics-addr", "", "Serve prometheus metrics on this address, e.g. :9090")
	return cmd
}

func serveMetrics(ctx context.Context, application *internalapp.App, addr string, log logger.Logger) (func(), error) {
	registry := application.Registry()
	if registry == nil {
		return nil, errors.New("metrics are disabled (METRICS_ENABLED=false)")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("metrics: listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics: server failed", "addr", addr, "err", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}

func parseLessonID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid lesson id %q", value)
	}
	return id, nil
}
