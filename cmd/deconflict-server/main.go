package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/uav-deconfliction/core"
	"github.com/signalsfoundry/uav-deconfliction/internal/api"
	"github.com/signalsfoundry/uav-deconfliction/internal/config"
	"github.com/signalsfoundry/uav-deconfliction/internal/logging"
	"github.com/signalsfoundry/uav-deconfliction/internal/observability"
	"github.com/signalsfoundry/uav-deconfliction/kb"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	grpcAddr := flag.String("grpc-addr", "", "TCP address the gRPC server listens on (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics (overrides config)")
	safetyBuffer := flag.Float64("safety-buffer", 0, "Minimum separation in metres (overrides config when > 0)")
	timeResolution := flag.Float64("time-resolution", 0, "Sampling interval in seconds (overrides config when > 0)")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Error(ctx, "failed to load config", logging.Err(err))
		os.Exit(1)
	}
	if *grpcAddr != "" {
		cfg.GRPCAddr = *grpcAddr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *safetyBuffer > 0 {
		cfg.SafetyBuffer = *safetyBuffer
	}
	if *timeResolution > 0 {
		cfg.TimeResolution = *timeResolution
	}
	if err := cfg.Validate(); err != nil {
		log.Error(ctx, "invalid config", logging.Err(err))
		os.Exit(1)
	}

	shutdownTracing, err := observability.InitTracing(ctx, cfg.TracingConfig(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.GRPCAddr), logging.Err(err))
		os.Exit(1)
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(stopCtx, cfg, log, lis); err != nil {
		log.Error(ctx, "server exited", logging.Err(err))
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.LoadFile(config.Default(), path)
	if err != nil {
		return cfg, err
	}
	return config.FromEnv(cfg)
}

// run serves the deconfliction API on lis until ctx is cancelled, then stops
// gracefully. Metrics are served on cfg.MetricsAddr unless it is empty.
func run(ctx context.Context, cfg config.Config, log logging.Logger, lis net.Listener) error {
	if log == nil {
		log = logging.Noop()
	}

	collector, err := observability.NewCollector(prometheus.NewRegistry())
	if err != nil {
		return err
	}

	registry := kb.NewMissionRegistry()
	stopWatch := collector.WatchRegistry(registry)
	defer stopWatch()

	opts := append(cfg.ServiceOptions(), core.WithLogger(log), core.WithMetrics(collector))
	svc := core.NewDeconflictionService(registry, opts...)

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			api.RequestIDUnaryServerInterceptor(log),
			api.TracingUnaryServerInterceptor(),
			collector.UnaryServerInterceptor(),
		),
	)
	api.RegisterDeconflictionServer(server, api.NewService(svc, log))

	metricsSrv := serveMetrics(cfg.MetricsAddr, collector, log)

	log.Info(ctx, "starting deconfliction gRPC server",
		logging.String("addr", lis.Addr().String()),
		logging.Float64("safety_buffer", svc.SafetyBuffer()),
		logging.Float64("time_resolution", svc.TimeResolution()),
	)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(lis)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
	}

	log.Info(context.Background(), "shutting down deconfliction server")
	server.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return nil
}

func serveMetrics(addr string, collector *observability.Collector, log logging.Logger) *http.Server {
	if collector == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
