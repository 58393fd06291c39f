// Package google provides a Google Cloud Speech-to-Text streaming recognizer.
package google

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"ai-interview-session-service/internal/service/stt"
)

// Config holds recognition settings.
type Config struct {
	LanguageCode    string
	SampleRateHz    int
	InterimResults  bool
	AudioEncoding   string
	NoSpeechTimeout time.Duration
	CredentialsFile string
}

// DefaultConfig returns continuous en-US recognition with interim results.
func DefaultConfig() Config {
	return Config{
		LanguageCode:    "en-US",
		SampleRateHz:    16000,
		InterimResults:  true,
		AudioEncoding:   "LINEAR16",
		NoSpeechTimeout: 8 * time.Second,
	}
}

// Recognizer implements stt.Recognizer on top of StreamingRecognize. Audio is
// pulled from an AudioSource for the lifetime of each session.
type Recognizer struct {
	client *speech.Client
	source stt.AudioSource
	cfg    Config
	logger zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// New creates a recognizer. Credentials come from cfg.CredentialsFile when set,
// otherwise from GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, cfg Config, source stt.AudioSource, logger zerolog.Logger) (*Recognizer, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Recognizer{
		client: c,
		source: source,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Start opens a stream, sends the streaming config and starts pumping audio.
func (r *Recognizer) Start(ctx context.Context, cb stt.Callback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return stt.ErrBusy
	}

	sctx, cancel := context.WithCancel(ctx)
	stream, err := r.client.StreamingRecognize(sctx)
	if err != nil {
		cancel()
		return err
	}
	if err := stream.Send(configRequest(r.cfg)); err != nil {
		cancel()
		return err
	}
	audio, err := r.source.Open(sctx)
	if err != nil {
		cancel()
		return err
	}

	r.running = true
	r.cancel = cancel

	go r.pump(stream, audio)
	go r.listen(sctx, stream, cb)
	return nil
}

// Stop cancels the current stream. OnEnd fires from the listen loop.
func (r *Recognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}

// Close releases the underlying client.
func (r *Recognizer) Close() error {
	_ = r.Stop()
	return r.client.Close()
}

func (r *Recognizer) pump(stream speechpb.Speech_StreamingRecognizeClient, audio <-chan []byte) {
	for chunk := range audio {
		err := stream.Send(&speechpb.StreamingRecognizeRequest{
			StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
				AudioContent: chunk,
			},
		})
		if err != nil {
			// Recv reports the cause.
			return
		}
	}
	_ = stream.CloseSend()
}

func (r *Recognizer) listen(ctx context.Context, stream speechpb.Speech_StreamingRecognizeClient, cb stt.Callback) {
	defer func() {
		r.mu.Lock()
		r.running = false
		if r.cancel != nil {
			r.cancel()
			r.cancel = nil
		}
		r.mu.Unlock()
		cb.OnEnd()
	}()

	for {
		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return
			}
			r.logger.Warn().Err(err).Msg("Streaming recognition failed")
			cb.OnError(err)
			return
		}
		dispatch(resp, cb)
	}
}

// dispatch forwards one streaming response to the callback.
func dispatch(resp *speechpb.StreamingRecognizeResponse, cb stt.Callback) {
	if resp.GetSpeechEventType() == speechpb.StreamingRecognizeResponse_SPEECH_ACTIVITY_TIMEOUT {
		cb.OnError(stt.ErrNoSpeech)
		return
	}
	for _, res := range resp.GetResults() {
		if len(res.GetAlternatives()) == 0 {
			continue
		}
		alt := res.GetAlternatives()[0]
		if res.GetIsFinal() {
			cb.OnFinal(alt.GetTranscript(), float64(alt.GetConfidence()))
		} else {
			cb.OnPartial(alt.GetTranscript())
		}
	}
}

func configRequest(cfg Config) *speechpb.StreamingRecognizeRequest {
	sc := &speechpb.StreamingRecognitionConfig{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   parseAudioEncoding(cfg.AudioEncoding),
			SampleRateHertz:            int32(cfg.SampleRateHz),
			LanguageCode:               cfg.LanguageCode,
			EnableAutomaticPunctuation: true,
		},
		InterimResults: cfg.InterimResults,
	}
	if cfg.NoSpeechTimeout > 0 {
		sc.EnableVoiceActivityEvents = true
		sc.VoiceActivityTimeout = &speechpb.StreamingRecognitionConfig_VoiceActivityTimeout{
			SpeechStartTimeout: durationpb.New(cfg.NoSpeechTimeout),
		}
	}
	return &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: sc,
		},
	}
}

// parseAudioEncoding maps an encoding name to the proto enum, LINEAR16 otherwise.
func parseAudioEncoding(encoding string) speechpb.RecognitionConfig_AudioEncoding {
	switch encoding {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "AMR":
		return speechpb.RecognitionConfig_AMR
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_LINEAR16
	}
}
