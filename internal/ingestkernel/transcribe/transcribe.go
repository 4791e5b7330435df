// Package transcribe implements the TranscriptionProvider contract: turn a
// local audio file into text, adapted from the teacher's whisper.cpp
// bindings driver (cmd/whisper-go) into a reusable provider rather than a
// one-shot CLI.
package transcribe

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"unsafe"
)

// Provider turns a local audio file into text.
type Provider interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
	Name() string
}

// wavHeader mirrors the canonical RIFF/WAVE header, unchanged from the
// teacher's loader.
type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// LoadWAV decodes a 16- or 32-bit PCM WAV file into mono float32 samples in
// [-1, 1], downmixing stereo by averaging channels. It does not resample:
// callers passing non-16kHz audio to a whisper model get degraded accuracy,
// matching the teacher driver's behavior (a warning, not a resample).
func LoadWAV(path string) ([]float32, uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	var header wavHeader
	if err := binary.Read(f, binary.LittleEndian, &header); err != nil {
		return nil, 0, fmt.Errorf("read wav header: %w", err)
	}
	if string(header.ChunkID[:]) != "RIFF" || string(header.Format[:]) != "WAVE" {
		return nil, 0, fmt.Errorf("invalid wav file: %s", path)
	}

	audioData := make([]byte, header.Subchunk2Size)
	if _, err := io.ReadFull(f, audioData); err != nil {
		return nil, 0, fmt.Errorf("read audio data: %w", err)
	}

	var samples []float32
	switch header.BitsPerSample {
	case 16:
		for i := 0; i+1 < len(audioData); i += 2 {
			sample := int16(binary.LittleEndian.Uint16(audioData[i : i+2]))
			samples = append(samples, float32(sample)/32768.0)
		}
	case 32:
		for i := 0; i+3 < len(audioData); i += 4 {
			bits := binary.LittleEndian.Uint32(audioData[i : i+4])
			samples = append(samples, *(*float32)(unsafe.Pointer(&bits)))
		}
	default:
		return nil, 0, fmt.Errorf("unsupported bits per sample: %d", header.BitsPerSample)
	}

	if header.NumChannels == 2 {
		mono := make([]float32, len(samples)/2)
		for i := range mono {
			mono[i] = (samples[i*2] + samples[i*2+1]) / 2.0
		}
		samples = mono
	}

	return samples, header.SampleRate, nil
}

// whisperModel narrows github.com/ggerganov/whisper.cpp/bindings/go's
// whisper.Model to what this package needs, so tests can substitute a fake
// without linking the cgo-backed library.
type whisperModel interface {
	NewContext() (whisperContext, error)
	Close() error
}

type whisperContext interface {
	Process(samples []float32) error
	NextSegment() (text string, ok bool)
}

// WhisperProvider transcribes audio through a loaded whisper.cpp model.
type WhisperProvider struct {
	modelPath string
	load      func(path string) (whisperModel, error)
}

// NewWhisperProvider constructs a provider bound to modelPath. load is
// injected so tests never need to load a real ggml model file; production
// wiring in cmd/ingestd supplies whisper.New adapted to whisperModel.
func NewWhisperProvider(modelPath string, load func(path string) (whisperModel, error)) *WhisperProvider {
	return &WhisperProvider{modelPath: modelPath, load: load}
}

func (p *WhisperProvider) Name() string { return "whisper:" + p.modelPath }

func (p *WhisperProvider) Transcribe(ctx context.Context, audioPath string) (string, error) {
	samples, sampleRate, err := LoadWAV(audioPath)
	if err != nil {
		return "", err
	}
	if sampleRate != 16000 {
		// Accuracy degrades below whisper's expected 16kHz input; this
		// provider does not resample, matching the reference CLI driver.
		_ = sampleRate
	}

	model, err := p.load(p.modelPath)
	if err != nil {
		return "", fmt.Errorf("load whisper model: %w", err)
	}
	defer model.Close()

	wctx, err := model.NewContext()
	if err != nil {
		return "", fmt.Errorf("create whisper context: %w", err)
	}

	if err := wctx.Process(samples); err != nil {
		return "", fmt.Errorf("process audio: %w", err)
	}

	var out string
	for {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		default:
		}
		text, ok := wctx.NextSegment()
		if !ok {
			break
		}
		if out != "" {
			out += " "
		}
		out += text
	}
	return out, nil
}

// MockProvider returns a fixed transcript, used in tests and offline
// development in place of a real whisper model.
type MockProvider struct {
	Transcript string
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Transcribe(ctx context.Context, audioPath string) (string, error) {
	return m.Transcript, nil
}
