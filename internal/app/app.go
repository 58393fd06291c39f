package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-session-service/internal/backend"
	"ai-interview-session-service/internal/config"
	"ai-interview-session-service/internal/events"
	"ai-interview-session-service/internal/observability/logging"
	"ai-interview-session-service/internal/service/camera"
	cameramock "ai-interview-session-service/internal/service/camera/mock"
	"ai-interview-session-service/internal/service/capture"
	"ai-interview-session-service/internal/service/dialogue"
	"ai-interview-session-service/internal/service/media"
	"ai-interview-session-service/internal/service/playback"
	"ai-interview-session-service/internal/service/stt"
	"ai-interview-session-service/internal/service/stt/google"
	sttmock "ai-interview-session-service/internal/service/stt/mock"
	"ai-interview-session-service/internal/service/stt/wav"
	ttsmock "ai-interview-session-service/internal/service/tts/mock"
	"ai-interview-session-service/internal/service/turn"
)

// STT providers.
const (
	ProviderMock   = "mock"
	ProviderGoogle = "google"
)

// Options override configuration at startup.
type Options struct {
	// Provider replaces STT_PROVIDER when set.
	Provider string
	// AudioFile replaces STT_AUDIO_FILE when set.
	AudioFile string
	// Out receives the spoken questions. Defaults to stdout.
	Out io.Writer
	// Navigate runs when the interview has ended and the closing delay passed.
	Navigate func()
}

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration

	Controller *turn.Controller
	Publisher  *events.Publisher

	closers []io.Closer
}

// New builds every component of one interview session from cfg.
func New(ctx context.Context, cfg *config.Configuration, opts Options) (*Application, error) {
	a := &Application{Cfg: cfg}
	a.setupLogger()

	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Provider != "" {
		cfg.STT.Provider = opts.Provider
	}
	if opts.AudioFile != "" {
		cfg.STT.AudioFile = opts.AudioFile
	}

	client, err := backend.New(cfg.Dialogue.BaseURL, cfg.Dialogue.CSRFPath, logging.WithComponent("backend"))
	if err != nil {
		return nil, err
	}

	rec, err := a.newRecognizer(ctx)
	if err != nil {
		return nil, err
	}

	speech := capture.New(rec, capture.Options{
		RestartDelay:   cfg.STT.RestartDelay,
		RestartRetries: cfg.STT.RestartRetries,
	}, logging.WithComponent("capture"))

	voice := playback.New(ttsmock.New(opts.Out), speech, playback.Options{
		Lang:         cfg.TTS.Language,
		Rate:         cfg.TTS.Rate,
		BaseDelay:    cfg.TTS.BaseDelay,
		PerCharDelay: cfg.TTS.PerCharDelay,
	}, logging.WithComponent("playback"))
	speech.SetPlaybackMonitor(voice)

	frames := media.NewPipeline(
		cameramock.New(),
		camera.NopPreview{},
		media.NewFrameUploader(client, cfg.Frames.UploadPath),
		media.Options{
			Interval:      cfg.Frames.Interval,
			JPEGQuality:   cfg.Frames.JPEGQuality,
			QueueSize:     cfg.Frames.QueueSize,
			UploadTimeout: cfg.Frames.UploadTimeout,
		},
		logging.WithComponent("media"),
	)

	chat := dialogue.New(client, cfg.Dialogue.ChatPath, cfg.Dialogue.Timeout, logging.WithComponent("dialogue"))

	a.Publisher = events.New(&events.Config{
		Enabled:       cfg.Kafka.Enabled,
		Brokers:       cfg.Kafka.Brokers,
		TopicTurns:    cfg.Kafka.TopicTurns,
		TopicSessions: cfg.Kafka.TopicSessions,
		Principal:     cfg.Kafka.Principal,
	})
	a.closers = append(a.closers, a.Publisher)

	a.Controller = turn.NewController(chat, speech, voice, frames, a.Publisher, turn.Options{
		MaxQuestions: cfg.Interview.MaxQuestions,
		EndDelay:     cfg.Interview.EndDelay,
		Countdown:    cfg.Interview.Countdown,
		Navigate:     opts.Navigate,
	}, logging.WithComponent("turn"))

	a.Logger.Info().
		Str("sttProvider", cfg.STT.Provider).
		Str("dialogue", cfg.Dialogue.BaseURL).
		Bool("kafka", cfg.Kafka.Enabled).
		Msg("Interview session service application created")
	return a, nil
}

// setupLogger configures zerolog for the service.
func (a *Application) setupLogger() {
	format := a.Cfg.Observability.LogFormat
	if a.Cfg.Service.Environment == "dev" {
		format = "console"
	}
	logging.Init(logging.Config{
		Level:      a.Cfg.Observability.LogLevel,
		Format:     format,
		TimeFormat: time.RFC3339,
		Service:    a.Cfg.Service.Name,
	})
	a.Logger = logging.WithComponent("application")

	a.Logger.Debug().
		Str("logLevel", zerolog.GlobalLevel().String()).
		Str("environment", a.Cfg.Service.Environment).
		Msg("Logger setup completed")
}

func (a *Application) newRecognizer(ctx context.Context) (stt.Recognizer, error) {
	cfg := a.Cfg.STT
	switch cfg.Provider {
	case ProviderMock, "":
		return sttmock.New(), nil

	case ProviderGoogle:
		if cfg.AudioFile == "" {
			return nil, fmt.Errorf("stt provider %q needs an audio file", cfg.Provider)
		}
		source := wav.New(cfg.AudioFile, logging.WithComponent("wav"))
		rec, err := google.New(ctx, google.Config{
			LanguageCode:    cfg.LanguageCode,
			SampleRateHz:    cfg.SampleRateHz,
			InterimResults:  cfg.InterimResults,
			AudioEncoding:   "LINEAR16",
			NoSpeechTimeout: cfg.NoSpeechTimeout,
			CredentialsFile: cfg.CredentialsFile,
		}, source, logging.WithComponent("stt-google"))
		if err != nil {
			return nil, fmt.Errorf("create google recognizer: %w", err)
		}
		a.closers = append(a.closers, rec)
		return rec, nil

	default:
		return nil, fmt.Errorf("unknown stt provider %q", cfg.Provider)
	}
}

// Run starts the interview and blocks until it finishes or ctx is cancelled.
// The session is torn down before Run returns.
func (a *Application) Run(ctx context.Context, p turn.Params) error {
	a.StartupTime = time.Now().UTC()
	a.Logger.Info().
		Time("startupTime", a.StartupTime).
		Str("jobId", p.JobID).
		Str("candidateId", p.CandidateID).
		Msg("Interview session service starting")

	if err := a.Controller.Start(ctx, p); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-a.Controller.Done():
	}
	a.Controller.Close()
	return a.Controller.Err()
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	a.Logger.Info().Msg("Interview session service shutting down")
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Cleanup failed")
		}
	}
}
