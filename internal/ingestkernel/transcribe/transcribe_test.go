package transcribe

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestWAV(t *testing.T, samples []int16, sampleRate uint32) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")

	var data bytes.Buffer
	for _, s := range samples {
		require.NoError(t, binary.Write(&data, binary.LittleEndian, s))
	}

	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(36 + data.Len()),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   1,
		SampleRate:    sampleRate,
		ByteRate:      sampleRate * 2,
		BlockAlign:    2,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(data.Len()),
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, binary.Write(f, binary.LittleEndian, header))
	_, err = f.Write(data.Bytes())
	require.NoError(t, err)
	return path
}

func TestLoadWAV_Decodes16BitMono(t *testing.T) {
	path := writeTestWAV(t, []int16{0, 16384, -16384, 32767}, 16000)
	samples, rate, err := LoadWAV(path)
	require.NoError(t, err)
	require.Equal(t, uint32(16000), rate)
	require.Len(t, samples, 4)
	require.InDelta(t, 0.5, samples[1], 0.01)
	require.InDelta(t, -0.5, samples[2], 0.01)
}

func TestLoadWAV_RejectsNonRIFF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a wav file"), 0o644))
	_, _, err := LoadWAV(path)
	require.Error(t, err)
}

type fakeWhisperModel struct {
	transcript []string
}

func (f *fakeWhisperModel) NewContext() (whisperContext, error) {
	return &fakeWhisperContext{segments: f.transcript}, nil
}
func (f *fakeWhisperModel) Close() error { return nil }

type fakeWhisperContext struct {
	segments []string
	idx      int
}

func (c *fakeWhisperContext) Process(samples []float32) error { return nil }
func (c *fakeWhisperContext) NextSegment() (string, bool) {
	if c.idx >= len(c.segments) {
		return "", false
	}
	s := c.segments[c.idx]
	c.idx++
	return s, true
}

func TestWhisperProvider_Transcribe_JoinsSegments(t *testing.T) {
	path := writeTestWAV(t, []int16{0, 100, -100}, 16000)
	p := NewWhisperProvider("model.bin", func(modelPath string) (whisperModel, error) {
		require.Equal(t, "model.bin", modelPath)
		return &fakeWhisperModel{transcript: []string{"hello", "world"}}, nil
	})

	text, err := p.Transcribe(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, "hello world", text)
}

func TestMockProvider_ReturnsFixedTranscript(t *testing.T) {
	p := &MockProvider{Transcript: "canned transcript"}
	text, err := p.Transcribe(context.Background(), "anything.wav")
	require.NoError(t, err)
	require.Equal(t, "canned transcript", text)
}
