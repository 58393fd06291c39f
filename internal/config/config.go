// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Configuration is the full service configuration.
type Configuration struct {
	Service       ServiceConfig
	Dialogue      DialogueConfig
	Frames        FramesConfig
	Interview     InterviewConfig
	STT           STTConfig
	TTS           TTSConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds process-level settings.
type ServiceConfig struct {
	Name        string
	Principal   string
	GRPCPort    string
	HTTPAddr    string
	Environment string
}

// DialogueConfig points at the remote dialogue-management service.
type DialogueConfig struct {
	BaseURL  string
	ChatPath string
	CSRFPath string
	// Timeout bounds a single reset/turn call. Zero means no bound.
	Timeout time.Duration
}

// FramesConfig controls proctoring frame sampling and upload.
type FramesConfig struct {
	UploadPath    string
	Interval      time.Duration
	JPEGQuality   int
	QueueSize     int
	UploadTimeout time.Duration
}

// InterviewConfig holds turn-loop limits.
type InterviewConfig struct {
	MaxQuestions int
	EndDelay     time.Duration
	Countdown    time.Duration
}

// STTConfig configures the speech recognizer and capture restarts.
type STTConfig struct {
	Provider        string
	LanguageCode    string
	SampleRateHz    int
	AudioFile       string
	CredentialsFile string
	RestartDelay    time.Duration
	RestartRetries  int
	NoSpeechTimeout time.Duration
	InterimResults  bool
}

// TTSConfig configures question playback.
type TTSConfig struct {
	Language     string
	Rate         float64
	BaseDelay    time.Duration
	PerCharDelay time.Duration
}

// KafkaConfig configures event publishing.
type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	TopicTurns    string
	TopicSessions string
	Principal     string
}

// ObservabilityConfig configures logging and the metrics endpoint.
type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

// Load reads the environment (and a .env file when present) into a Configuration.
func Load() *Configuration {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-interview-session")

	return &Configuration{
		Service: ServiceConfig{
			Name:        envOrDefault("SERVICE_NAME", "ai-interview-session-service"),
			Principal:   principal,
			GRPCPort:    envOrDefault("GRPC_PORT", "50051"),
			HTTPAddr:    envOrDefault("HTTP_ADDR", ":8081"),
			Environment: envOrDefault("ENV", "prod"),
		},
		Dialogue: DialogueConfig{
			BaseURL:  envOrDefault("DIALOGUE_BASE_URL", "http://localhost:8000"),
			ChatPath: envOrDefault("DIALOGUE_CHAT_PATH", "/api/chat/chat/"),
			CSRFPath: envOrDefault("DIALOGUE_CSRF_PATH", "/api/chat/get-csrf-token/"),
			Timeout:  envOrDefaultDuration("DIALOGUE_TIMEOUT", 60*time.Second),
		},
		Frames: FramesConfig{
			UploadPath:    envOrDefault("FRAME_UPLOAD_PATH", "/api/chat/save-frame/"),
			Interval:      envOrDefaultDuration("FRAME_INTERVAL", 5*time.Second),
			JPEGQuality:   envOrDefaultInt("FRAME_JPEG_QUALITY", 80),
			QueueSize:     envOrDefaultInt("FRAME_QUEUE_SIZE", 4),
			UploadTimeout: envOrDefaultDuration("FRAME_UPLOAD_TIMEOUT", 15*time.Second),
		},
		Interview: InterviewConfig{
			MaxQuestions: envOrDefaultInt("INTERVIEW_MAX_QUESTIONS", 10),
			EndDelay:     envOrDefaultDuration("INTERVIEW_END_DELAY", 10*time.Second),
			Countdown:    envOrDefaultDuration("INTERVIEW_COUNTDOWN", 10*time.Minute),
		},
		STT: STTConfig{
			Provider:        envOrDefault("STT_PROVIDER", "mock"),
			LanguageCode:    envOrDefault("STT_LANGUAGE_CODE", "en-US"),
			SampleRateHz:    envOrDefaultInt("STT_SAMPLE_RATE_HZ", 16000),
			AudioFile:       envOrDefault("STT_AUDIO_FILE", ""),
			CredentialsFile: envOrDefault("GOOGLE_APPLICATION_CREDENTIALS", ""),
			RestartDelay:    envOrDefaultDuration("STT_RESTART_DELAY", 500*time.Millisecond),
			RestartRetries:  envOrDefaultInt("STT_RESTART_RETRIES", 1),
			NoSpeechTimeout: envOrDefaultDuration("STT_NO_SPEECH_TIMEOUT", 8*time.Second),
			InterimResults:  envOrDefaultBool("STT_INTERIM_RESULTS", true),
		},
		TTS: TTSConfig{
			Language:     envOrDefault("TTS_LANGUAGE", "en-GB"),
			Rate:         envOrDefaultFloat("TTS_RATE", 1.1),
			BaseDelay:    envOrDefaultDuration("TTS_BASE_DELAY", 2*time.Second),
			PerCharDelay: envOrDefaultDuration("TTS_PER_CHAR_DELAY", 100*time.Millisecond),
		},
		Kafka: KafkaConfig{
			Enabled:       envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:       envOrDefaultList("KAFKA_BROKERS", nil),
			TopicTurns:    envOrDefault("KAFKA_TOPIC_TURNS", "interview.turns"),
			TopicSessions: envOrDefault("KAFKA_TOPIC_SESSIONS", "interview.sessions"),
			Principal:     envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
