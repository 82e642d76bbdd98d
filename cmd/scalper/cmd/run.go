package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/scalper/backend"
	"github.com/rustyeddy/scalper/feed"
	"github.com/rustyeddy/scalper/runner"
	"github.com/rustyeddy/scalper/sim"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the engine against the backend and serve the live feed",
	Long: `Run loads the candle window from the backend, starts the slow (candle) and
fast (price) ticks and serves engine snapshots to dashboards:

  GET  /ws        WebSocket stream of snapshots
  GET  /snapshot  latest snapshot
  GET  /status    engine status in the backend's status shape
  GET  /events    recent event log entries
  POST /start, /stop, /reset

Example:
  scalper run --config scalper.yaml`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var runNoStart bool

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runNoStart, "no-start", false, "wait for POST /start instead of starting immediately")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	j, err := cfg.Journal.Open()
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	if j != nil {
		defer j.Close()
	}

	events := sim.NewEventLog(sim.DefaultEventLogSize, log.Named("events"))
	engine, err := sim.NewEngine(cfg.EngineConfig(), j, events)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	client := backend.NewClient(cfg.Backend.URL, cfg.BackendTimeout())
	r := runner.New(cfg.RunnerConfig(), engine, client, events, log)
	defer r.Close()

	hub := feed.NewHub(log)
	engine.Subscribe(hub.Publish)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var srv *http.Server
	if cfg.Feed.Addr != "" {
		mux := hub.Handler(nil)
		mountControl(mux, r, events)
		srv = &http.Server{
			Addr:              cfg.Feed.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("feed listening", zap.String("addr", cfg.Feed.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("feed server", zap.Error(err))
				stop()
			}
		}()
	}

	log.Info("scalper ready",
		zap.String("symbol", cfg.Market.Symbol),
		zap.String("strategy", engine.Name()),
		zap.String("backend", client.BaseURL()),
	)

	if !runNoStart {
		if err := r.Start(ctx); err != nil {
			// keep serving; the operator can retry with POST /start
			log.Warn("start failed", zap.Error(err))
			r.Refresh(ctx)
		}
	} else {
		r.Refresh(ctx)
	}

	<-ctx.Done()
	log.Info("shutting down")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}

	s := engine.Snapshot()
	fmt.Printf("Equity: %.2f  Wins: %d  Losses: %d  Signals: %d\n",
		s.Account.Equity, s.Account.Wins, s.Account.Losses, s.TotalSignals)
	return nil
}

func mountControl(mux *http.ServeMux, r *runner.Runner, events *sim.EventLog) {
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		data, err := sonic.Marshal(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(data)
	}

	command := func(fn func(context.Context) error) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			if err := fn(req.Context()); err != nil {
				writeJSON(w, http.StatusBadGateway, map[string]string{"status": "error", "message": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
		}
	}

	mux.HandleFunc("GET /status", func(w http.ResponseWriter, req *http.Request) {
		st := r.Status()
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "scalper": st.Scalper, "stream": st.Stream})
	})
	mux.HandleFunc("GET /events", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, events.Entries())
	})
	mux.HandleFunc("POST /start", command(r.Start))
	mux.HandleFunc("POST /stop", command(r.Stop))
	mux.HandleFunc("POST /reset", command(r.Reset))
}
