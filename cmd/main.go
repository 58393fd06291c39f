package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"ai-interview-session-service/internal/app"
	"ai-interview-session-service/internal/config"
	apihttp "ai-interview-session-service/internal/http"
	"ai-interview-session-service/internal/observability"
	"ai-interview-session-service/internal/observability/logging"
	"ai-interview-session-service/internal/observability/metrics"
	"ai-interview-session-service/internal/service/turn"
)

const healthService = "ai.interview.session.InterviewSession"

type flags struct {
	jobID         string
	candidateID   string
	jobTitle      string
	provider      string
	audioFile     string
	stdinControls bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:          "interview-session",
		Short:        "Run one live AI interview session",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f)
		},
	}

	cmd.Flags().StringVar(&f.jobID, "job-id", "", "job the candidate is interviewing for")
	cmd.Flags().StringVar(&f.candidateID, "candidate-id", "", "candidate being interviewed")
	cmd.Flags().StringVar(&f.jobTitle, "job-title", "", "job title shown to the candidate")
	cmd.Flags().StringVar(&f.provider, "provider", "", "speech recognizer: mock or google (default STT_PROVIDER)")
	cmd.Flags().StringVar(&f.audioFile, "audio-file", "", "16-bit PCM WAV file fed to the google recognizer")
	cmd.Flags().BoolVar(&f.stdinControls, "stdin-controls", true, "read controls from stdin: enter submits, k skips, q quits")
	return cmd
}

func run(parent context.Context, f flags) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	application, err := app.New(ctx, cfg, app.Options{
		Provider:  f.provider,
		AudioFile: f.audioFile,
		Navigate: func() {
			log.Info().Msg("Returning to applications")
		},
	})
	if err != nil {
		return err
	}
	defer application.Shutdown()

	params := turn.Params{JobID: f.jobID, CandidateID: f.candidateID, JobTitle: f.jobTitle}
	ctrl := application.Controller

	hub := apihttp.NewHub(ctrl.Snapshot, logging.WithComponent("stream"))
	unsubscribe := ctrl.Subscribe(hub.Publish)
	defer unsubscribe()

	lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(observability.UnaryServerInterceptor(metrics.DefaultMetrics)),
		grpc.StreamInterceptor(observability.StreamServerInterceptor(metrics.DefaultMetrics)),
	)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(healthService, grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	apiServer := &http.Server{
		Addr:              cfg.Service.HTTPAddr,
		Handler:           apihttp.NewRouter(ctrl, hub),
		ReadHeaderTimeout: 5 * time.Second,
	}
	obsServer := observability.NewServer(cfg.Observability.MetricsAddr, func() bool {
		return ctrl.Err() == nil
	})

	// Session finishing ends the process; servers stop with it.
	sessionCtx, endSession := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(sessionCtx)

	g.Go(func() error {
		defer endSession()
		err := application.Run(gctx, params)
		healthServer.SetServingStatus(healthService, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		return err
	})
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info().Str("port", cfg.Service.GRPCPort).Msg("gRPC health server started")
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		grpcServer.GracefulStop()
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", apiServer.Addr).Msg("Session HTTP server started")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return apiServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return obsServer.Run(gctx)
	})
	if f.stdinControls {
		go readControls(gctx, os.Stdin, ctrl, endSession)
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Interview session failed")
		return err
	}
	log.Info().Msg("Interview session finished")
	return nil
}

type controls interface {
	SubmitAnswer() error
	SkipPlayback() error
}

// readControls maps stdin lines to session actions: an empty line or "s"
// submits, "k" skips the question, "q" quits.
func readControls(ctx context.Context, in io.Reader, c controls, quit func()) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		var err error
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "", "s":
			err = c.SubmitAnswer()
		case "k":
			err = c.SkipPlayback()
		case "q":
			quit()
			return
		default:
			fmt.Fprintln(os.Stderr, "controls: enter or s = submit, k = skip question, q = quit")
			continue
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
	}
}
