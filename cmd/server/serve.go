package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"github.com/dasmlab/vakya/pkg/server"
	"github.com/dasmlab/vakya/pkg/service"
)

const (
	shutdownTimeout = 30 * time.Second
	cleanupInterval = time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	RunE:  runServe,
}

func init() {
	flags := serveCmd.Flags()
	flags.String("host", "0.0.0.0", "Host to run the HTTP server on")
	flags.Int("port", 8000, "HTTP server port")
	flags.Int("grpc-port", 50051, "gRPC server port, 0 disables gRPC")
	flags.String("environment", "dev", "Environment: dev, test or prod")
	flags.String("python", "python", "Python interpreter used for local models")

	viper.BindPFlag("host", flags.Lookup("host"))
	viper.BindPFlag("port", flags.Lookup("port"))
	viper.BindPFlag("grpc_port", flags.Lookup("grpc-port"))
	viper.BindPFlag("environment", flags.Lookup("environment"))
	viper.BindPFlag("python", flags.Lookup("python"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	logger.WithFields(logrus.Fields{
		"host":        cfg.Host,
		"port":        cfg.Port,
		"grpc_port":   cfg.GRPCPort,
		"environment": cfg.Environment,
		"local_dir":   cfg.Models.LocalDir,
		"modelv3_dir": cfg.Models.ModelV3Dir,
		"log_level":   logger.GetLevel().String(),
	}).Info("Starting Vakya server")

	translator, generator, err := newTranslationService(ctx)
	if err != nil {
		return fmt.Errorf("failed to create translator: %w", err)
	}

	for _, m := range translator.Methods() {
		logger.WithFields(logrus.Fields{
			"method":    m.Value,
			"available": m.Available,
		}).Info("Translation method")
	}

	processor := service.NewJobProcessor(translator, service.JobProcessorConfig{
		Workers:     cfg.Jobs.Workers,
		ChunkTokens: cfg.Jobs.ChunkTokens,
		Timeout:     cfg.Jobs.Timeout,
		Logger:      logger,
	})
	defer processor.Stop()
	jobs := service.NewJobQueue(processor, logger)

	httpServer := server.NewHTTPServer(server.Config{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Environment:    cfg.Environment,
		AllowOrigins:   cfg.CORS.AllowOrigins,
		MaxUploadBytes: cfg.Uploads.MaxBytes,
		Translator:     translator,
		Generator:      generator,
		Jobs:           jobs,
		Logger:         logger,
	})

	errChan := make(chan error, 2)
	go func() {
		errChan <- httpServer.Start()
	}()

	var (
		grpcServer   *grpc.Server
		healthServer *health.Server
	)
	if cfg.GRPCPort > 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.GRPCPort))
		if err != nil {
			return fmt.Errorf("failed to listen on grpc port %d: %w", cfg.GRPCPort, err)
		}

		grpcServer, healthServer = newGRPCServer(service.NewTranslationService(translator, logger))
		go func() {
			logger.WithFields(logrus.Fields{
				"port": cfg.GRPCPort,
			}).Info("gRPC server listening")
			if err := grpcServer.Serve(lis); err != nil {
				errChan <- fmt.Errorf("failed to serve: %w", err)
			}
		}()
	}

	// Start periodic cleanup goroutine for finished jobs
	cleanupCtx, cleanupCancel := context.WithCancel(ctx)
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				jobs.CleanupOldJobs(cfg.Jobs.MaxAge)
			case <-cleanupCtx.Done():
				return
			}
		}
	}()
	logger.WithFields(logrus.Fields{
		"cleanup_interval": cleanupInterval.String(),
		"max_age":          cfg.Jobs.MaxAge.String(),
	}).Info("Started job cleanup goroutine")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		if err != nil {
			return err
		}
	case sig := <-sigChan:
		logger.WithFields(logrus.Fields{
			"signal": sig.String(),
		}).Info("Received signal, shutting down gracefully...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if healthServer != nil {
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP server shutdown incomplete")
	}
	if grpcServer != nil {
		stopGRPC(shutdownCtx, grpcServer)
	}

	logger.Info("Server stopped")
	return nil
}

func newGRPCServer(translationService *service.TranslationService) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             15 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     5 * time.Minute,
			MaxConnectionAge:      30 * time.Minute,
			MaxConnectionAgeGrace: 5 * time.Second,
			Time:                  30 * time.Second,
			Timeout:               10 * time.Second,
		}),
	)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(service.TranslatorServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	service.RegisterTranslatorServer(s, translationService)

	// Enable reflection for grpcurl/debugging
	reflection.Register(s)

	return s, healthServer
}

func stopGRPC(ctx context.Context, s *grpc.Server) {
	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		logger.Info("gRPC server stopped gracefully")
	case <-ctx.Done():
		logger.Warn("Graceful shutdown timeout, forcing stop...")
		s.Stop()
	}
}
