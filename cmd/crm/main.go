package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"crm/internal/config"
	"crm/internal/gql"
	"crm/internal/joblog"
	"crm/internal/jobs"
	"crm/internal/notify"
	"crm/internal/report"
	"crm/internal/sched"
	"crm/internal/seed"
	"crm/internal/service"
	"crm/internal/storage"
)

var cfgPath string

func main() {
	godotenv.Load()

	root := &cobra.Command{
		Use:           "crm",
		Short:         "CRM GraphQL service with scheduled maintenance jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file")
	root.AddCommand(serveCmd(), seedCmd(), reportCmd(), cleanupCmd(), heartbeatCmd(), restockCmd(), remindCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "crm:", err)
		os.Exit(1)
	}
}

type app struct {
	cfg    config.Config
	store  storage.Store
	svc    *service.Service
	logger *slog.Logger
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	store, err := storage.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if sqlStore, ok := store.(*storage.SQLStore); ok {
		if err := sqlStore.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
	}

	svc := service.New(store, cfg.Limits.LowStockThreshold, cfg.Limits.RestockAmount)
	return &app{cfg: cfg, store: store, svc: svc, logger: logger}, nil
}

func (a *app) reportGenerator() (*report.Generator, func(), error) {
	gen := report.New(a.cfg.GraphQLURL, a.store,
		joblog.New(a.cfg.Logs.Report, ""), a.logger)
	cleanup := func() {}
	if a.cfg.BrokerURL != "" {
		pub, err := notify.Dial(a.cfg.BrokerURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect broker: %w", err)
		}
		gen.WithNotifier(pub, a.cfg.ReportQueue)
		cleanup = func() { pub.Close() }
	}
	return gen, cleanup, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the GraphQL endpoint and the job scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.store.Close()

			schema, err := gql.NewSchema(a.svc)
			if err != nil {
				return err
			}

			gen, closeNotifier, err := a.reportGenerator()
			if err != nil {
				return err
			}
			defer closeNotifier()

			cleanup := jobs.NewCleanup(a.store, joblog.New(a.cfg.Logs.Cleanup, ""), a.logger, a.cfg.Limits.InactiveDays)
			heartbeat := jobs.NewHeartbeat(joblog.New(a.cfg.Logs.Heartbeat, ""))
			restock := jobs.NewRestock(a.cfg.GraphQLURL, a.svc, joblog.New(a.cfg.Logs.LowStock, ""), a.logger)
			reminders := jobs.NewReminders(a.cfg.GraphQLURL, a.store, joblog.New(a.cfg.Logs.Reminders, ""), a.logger, a.cfg.Limits.ReminderDays)

			scheduler := sched.New(a.logger)
			err = scheduler.Register([]sched.Job{
				{Name: "report", Spec: a.cfg.Schedules.Report, Run: func(ctx context.Context) error {
					_, err := gen.Run(ctx)
					return err
				}},
				{Name: "cleanup", Spec: a.cfg.Schedules.Cleanup, Run: func(ctx context.Context) error {
					_, err := cleanup.Run(ctx)
					return err
				}},
				{Name: "heartbeat", Spec: a.cfg.Schedules.Heartbeat, Run: heartbeat.Run},
				{Name: "low_stock", Spec: a.cfg.Schedules.LowStock, Run: restock.Run},
				{Name: "reminders", Spec: a.cfg.Schedules.Reminders, Run: reminders.Run},
			})
			if err != nil {
				return err
			}
			scheduler.Start()
			defer scheduler.Stop()

			mux := http.NewServeMux()
			mux.Handle("/graphql", gql.NewHandler(schema))
			server := &http.Server{Addr: a.cfg.ListenAddr, Handler: mux}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("http server listening", "addr", a.cfg.ListenAddr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case sig := <-quit:
				a.logger.Info("shutting down", "signal", sig.String())
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert sample customers and products",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.store.Close()
			if err := seed.Run(cmd.Context(), a.store); err != nil {
				return err
			}
			fmt.Println("seeded sample data")
			return nil
		},
	}
}

func reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Generate the CRM report once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.store.Close()

			gen, closeNotifier, err := a.reportGenerator()
			if err != nil {
				return err
			}
			defer closeNotifier()

			res, err := gen.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("report (%s): %d customers, %d orders, $%s revenue\n",
				res.Source, res.Customers, res.Orders, res.Revenue.StringFixed(2))
			return nil
		},
	}
}

func cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete inactive customers once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.store.Close()

			job := jobs.NewCleanup(a.store, joblog.New(a.cfg.Logs.Cleanup, ""), a.logger, a.cfg.Limits.InactiveDays)
			deleted, err := job.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d inactive customers\n", deleted)
			return nil
		},
	}
}

func heartbeatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "heartbeat",
		Short: "Write one heartbeat line",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.store.Close()
			return jobs.NewHeartbeat(joblog.New(a.cfg.Logs.Heartbeat, "")).Run(cmd.Context())
		},
	}
}

func restockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restock",
		Short: "Restock low-stock products once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.store.Close()
			job := jobs.NewRestock(a.cfg.GraphQLURL, a.svc, joblog.New(a.cfg.Logs.LowStock, ""), a.logger)
			return job.Run(cmd.Context())
		},
	}
}

func remindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Send order reminders once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.store.Close()
			job := jobs.NewReminders(a.cfg.GraphQLURL, a.store, joblog.New(a.cfg.Logs.Reminders, ""), a.logger, a.cfg.Limits.ReminderDays)
			return job.Run(cmd.Context())
		},
	}
}
