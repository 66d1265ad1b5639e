package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/FrontGate/FrontGate/pkg/common"
	"github.com/FrontGate/FrontGate/pkg/config"
	"github.com/FrontGate/FrontGate/pkg/db"
	"github.com/FrontGate/FrontGate/pkg/email"
	"github.com/FrontGate/FrontGate/pkg/gate"
	"github.com/FrontGate/FrontGate/pkg/maintenance"
	"github.com/FrontGate/FrontGate/pkg/monitoring"
	"github.com/FrontGate/FrontGate/pkg/pipeline"
	"github.com/FrontGate/FrontGate/pkg/ratelimit"
	"github.com/FrontGate/FrontGate/pkg/storage"
	"github.com/FrontGate/FrontGate/pkg/vision"
	"github.com/coreos/go-systemd/v22/daemon"
)

var (
	GitCommit string
	flagMode  = flag.String("mode", "", "migrate | run")
	flagEnv   = flag.String("env", "", "path to an env file ('stdin' to read from stdin)")
)

func run(ctx context.Context, getenv func(string) string, stderr io.Writer) error {
	cfg := config.New(getenv)
	common.SetupLogs(cfg.Verbose())

	cache, cerr := db.NewVisitorCache(5*time.Minute, 10_000)
	if cerr != nil {
		return cerr
	}

	ratelimiter, err := ratelimit.NewIPAddrRateLimiter(cfg.RateLimitHeader())
	if err != nil {
		return err
	}

	pool, clickhouse, dberr := db.Connect(ctx, cfg)
	if dberr != nil {
		return dberr
	}

	defer pool.Close()
	defer clickhouse.Close()

	store := db.NewStore(pool, cache)
	timeSeries := db.NewTimeSeries(clickhouse)

	objects, oerr := storage.NewFileStore(cfg.PhotoDir(), cfg.PhotoBucket())
	if oerr != nil {
		return oerr
	}

	visionClient := vision.NewClient(cfg.VisionBaseURL(), cfg.FaceCollection())
	mailer := email.NewVisitorMailer(cfg)
	metrics := monitoring.NewService()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	consumer := pipeline.NewConsumer(&pipeline.Pipeline{
		Visitors:       store,
		Passcodes:      store,
		Dedup:          store,
		Capturer:       visionClient,
		Indexer:        visionClient,
		Objects:        objects,
		Mailer:         mailer,
		DedupWindow:    cfg.DedupWindow(),
		Cooldown:       cfg.NotifyCooldown(),
		PasscodeLength: cfg.PasscodeLength(),
	}, timeSeries, metrics, cfg.EventQueueSize(), 5*time.Second)

	watchdog, _ := daemon.SdWatchdogEnabled(false)
	healthJob := maintenance.NewHealthCheckJob(cfg.HealthCheckInterval(), watchdog > 0,
		map[string]maintenance.Pinger{
			"postgres":   store,
			"clickhouse": timeSeries,
		})
	go common.RunPeriodicJob(ctx, healthJob)

	gateServer := &gate.Server{
		Visitors:          store,
		Passcodes:         store,
		Consumer:          consumer,
		Metrics:           metrics,
		PasscodeTTL:       cfg.PasscodeTTL(),
		PasscodeSingleUse: cfg.PasscodeSingleUse(),
		ReviewOrigins:     cfg.ReviewOrigins(),
		Healthy:           healthJob.Healthy,
	}

	router := http.NewServeMux()
	gateServer.Setup(router, "gate", ratelimiter)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress(),
		Handler:           router,
		ReadHeaderTimeout: 4 * time.Second,
		ReadTimeout:       10 * time.Second,
		MaxHeaderBytes:    256 * 1024,
		WriteTimeout:      10 * time.Second,
	}

	go func() {
		slog.Info("Listening", "address", httpServer.Addr, "version", GitCommit)
		_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Error listening and serving", common.ErrAttr(err))
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		slog.Debug("Shutting down gracefully...")
		consumer.Shutdown()
		ratelimiter.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(stderr, "error shutting down http server: %s\n", err)
		}
		slog.Debug("Shutdown finished")
	}()

	wg.Wait()
	return nil
}

func migrate(ctx context.Context, getenv func(string) string) error {
	cfg := config.New(getenv)
	common.SetupLogs(cfg.Verbose())

	ctx = context.WithValue(ctx, common.TraceIDContextKey, "migration")
	return db.Migrate(ctx, cfg)
}

func main() {
	flag.Parse()

	env, err := common.NewEnvMap(*flagEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	switch *flagMode {
	case "run":
		err = run(context.Background(), env.Get, os.Stderr)
	case "migrate":
		err = migrate(context.Background(), env.Get)
	default:
		err = fmt.Errorf("unknown mode: '%s'", *flagMode)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}
