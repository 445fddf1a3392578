package stt

import (
	"context"
	"fmt"
	"io"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/satriahrh/voxlate/domain/repositories"
)

// maxStreamChunk keeps each streaming request under the API's per-message limit
const maxStreamChunk = 25 * 1024

var googleLanguageCodes = map[string]string{
	"en": "en-US",
	"ko": "ko-KR",
	"ja": "ja-JP",
	"zh": "cmn-Hans-CN",
}

// GoogleSpeechToText implements SpeechToText for Google Cloud
type GoogleSpeechToText struct {
	client *speech.Client
	logger *zap.Logger
}

// NewGoogleSpeechToText creates a client using application default credentials
func NewGoogleSpeechToText(ctx context.Context, logger *zap.Logger) (*GoogleSpeechToText, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	return &GoogleSpeechToText{
		client: client,
		logger: logger,
	}, nil
}

// TranscribeAudio streams the samples as LINEAR16 and joins the final results
func (g *GoogleSpeechToText) TranscribeAudio(ctx context.Context, samples []float32, config repositories.AudioConfig) (string, error) {
	if len(samples) == 0 {
		return "", fmt.Errorf("no audio data received")
	}

	stream, err := g.client.StreamingRecognize(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create streaming recognize: %w", err)
	}

	// Send initial configuration
	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:          speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz:   int32(config.SampleRate),
					LanguageCode:      googleLanguageCode(config.Language),
					AudioChannelCount: 1,
				},
				InterimResults:  false,
				SingleUtterance: false,
			},
		},
	}); err != nil {
		stream.CloseSend()
		return "", fmt.Errorf("failed to send streaming config: %w", err)
	}

	data := toLinear16(samples)
	for start := 0; start < len(data); start += maxStreamChunk {
		end := min(start+maxStreamChunk, len(data))
		if err := stream.Send(&speechpb.StreamingRecognizeRequest{
			StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
				AudioContent: data[start:end],
			},
		}); err != nil {
			stream.CloseSend()
			return "", fmt.Errorf("failed to send audio data: %w", err)
		}
	}

	// Close the send stream to signal end of audio
	if err := stream.CloseSend(); err != nil {
		return "", fmt.Errorf("failed to close send stream: %w", err)
	}

	var parts []string
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to receive response: %w", err)
		}

		// Only final results carry settled text
		for _, result := range resp.Results {
			if result.IsFinal && len(result.Alternatives) > 0 {
				parts = append(parts, result.Alternatives[0].Transcript)
			}
		}
	}

	text := strings.TrimSpace(strings.Join(parts, " "))
	g.logger.Debug("Google transcription completed",
		zap.String("language", config.Language),
		zap.Int("results", len(parts)))

	return text, nil
}

// Close releases the underlying gRPC connection
func (g *GoogleSpeechToText) Close() error {
	return g.client.Close()
}

func googleLanguageCode(language string) string {
	if code, ok := googleLanguageCodes[language]; ok {
		return code
	}
	if language == "" {
		return googleLanguageCodes["en"]
	}
	return language
}
