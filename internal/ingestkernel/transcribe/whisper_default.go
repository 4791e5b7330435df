package transcribe

import "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

// realWhisperModel adapts whisper.cpp's Model to the narrow whisperModel
// interface this package tests against.
type realWhisperModel struct{ model whisper.Model }

func (r realWhisperModel) NewContext() (whisperContext, error) {
	ctx, err := r.model.NewContext()
	if err != nil {
		return nil, err
	}
	return realWhisperContext{ctx}, nil
}

func (r realWhisperModel) Close() error { return r.model.Close() }

// realWhisperContext adapts whisper.cpp's Context, whose Process takes three
// optional progress/segment callbacks and whose NextSegment returns a
// Segment struct plus an end-of-stream error, to whisperContext's simpler
// shape.
type realWhisperContext struct{ ctx whisper.Context }

func (r realWhisperContext) Process(samples []float32) error {
	return r.ctx.Process(samples, nil, nil, nil)
}

func (r realWhisperContext) NextSegment() (string, bool) {
	segment, err := r.ctx.NextSegment()
	if err != nil {
		return "", false
	}
	return segment.Text, true
}

// NewWhisperProviderDefault constructs a WhisperProvider backed by the real
// whisper.cpp bindings, the production wiring cmd/ingestd uses.
func NewWhisperProviderDefault(modelPath string) *WhisperProvider {
	return NewWhisperProvider(modelPath, func(path string) (whisperModel, error) {
		m, err := whisper.New(path)
		if err != nil {
			return nil, err
		}
		return realWhisperModel{m}, nil
	})
}
