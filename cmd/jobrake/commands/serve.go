package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jobrake/jobrake/engine"
	"github.com/jobrake/jobrake/logger"
	"github.com/jobrake/jobrake/schedule"
	"github.com/jobrake/jobrake/scrape"
	"github.com/jobrake/jobrake/server"
	"github.com/jobrake/jobrake/task"
)

// ServeCmd runs the pipeline daemon
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline daemon",
	Long: `Run the jobrake daemon: task queue workers, the schedule ticker,
the engine heartbeat, and the HTTP API.

Examples:
  jobrake serve                 # Use jobrake.toml / JOBRAKE_* env settings
  jobrake serve --port 8710     # Override the HTTP port
  jobrake serve --workers 4     # Override worker concurrency`,
	RunE: runServe,
}

var (
	servePortFlag    int
	serveWorkersFlag int
)

func init() {
	ServeCmd.Flags().IntVar(&servePortFlag, "port", 0, "HTTP port (overrides config)")
	ServeCmd.Flags().IntVar(&serveWorkersFlag, "workers", 0, "Worker concurrency (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	database, cfg, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	if servePortFlag > 0 {
		cfg.Server.Port = servePortFlag
	}
	if serveWorkersFlag > 0 {
		cfg.Engine.Workers = serveWorkersFlag
	}

	log := logger.ComponentLogger("daemon")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue := task.NewQueue(database)
	orch := scrape.NewOrchestrator(database, queue)
	tracker := engine.NewTracker(database)
	orch.SetHeartbeat(tracker.Heartbeat)

	pool := task.NewWorkerPool(ctx, database, task.WorkerPoolConfig{
		Workers:      cfg.Engine.Workers,
		PollInterval: cfg.Engine.PollInterval(),
	}, logger.ComponentLogger("worker"))
	orch.RegisterHandlers(pool.Registry())
	pool.Start()
	defer pool.Stop()

	ticker := schedule.NewTicker(database, orch, cfg.Engine.TickerInterval())
	ticker.Start(ctx)
	defer ticker.Stop()

	tracker.Start(ctx, cfg.Engine.HeartbeatInterval())
	defer tracker.Stop()

	startTaskCleanup(ctx, queue, cfg.Engine.TaskRetentionHours)
	startMetricsLog(ctx, pool, cfg.Engine.HeartbeatInterval())

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := server.NewServer(database, orch, tracker, queue, addr)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	log.Infow("jobrake daemon started",
		"addr", addr,
		"workers", pool.Workers(),
		"poll_interval", cfg.Engine.PollInterval(),
	)

	select {
	case <-ctx.Done():
		log.Infow("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// startMetricsLog periodically logs worker pool and memory usage
func startMetricsLog(ctx context.Context, pool *task.WorkerPool, interval time.Duration) {
	log := logger.ComponentLogger("metrics")

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m := pool.GetSystemMetrics()
				log.Debugw("System metrics",
					"workers_active", m.WorkersActive,
					"workers_total", m.WorkersTotal,
					"tasks_queued", m.TasksQueued,
					"tasks_running", m.TasksRunning,
					"memory_used_gb", m.MemoryUsedGB,
					"memory_percent", m.MemoryPercent,
				)
			}
		}
	}()
}

// startTaskCleanup prunes old finished tasks once a day
func startTaskCleanup(ctx context.Context, queue *task.Queue, retentionHours int) {
	if retentionHours <= 0 {
		return
	}
	retention := time.Duration(retentionHours) * time.Hour
	log := logger.ComponentLogger("task-cleanup")

	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := queue.Cleanup(retention)
				if err != nil {
					log.Warnw("Task cleanup failed", "error", err)
					continue
				}
				if removed > 0 {
					log.Infow("Pruned old tasks", "removed", removed, "retention", retention)
				}
			}
		}
	}()
}
