package ytdl

import "testing"

func TestValidYouTubeURL(t *testing.T) {
	cases := map[string]bool{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ": true,
		"https://youtu.be/dQw4w9WgXcQ":                true,
		"http://m.youtube.com/watch?v=dQw4w9WgXcQ":     true,
		"https://music.youtube.com/watch?v=dQw4w9WgXcQ": true,
		"ftp://youtube.com/watch?v=dQw4w9WgXcQ":        false,
		"https://example.com/video":                    false,
		"not-a-url":                                     false,
	}
	for raw, want := range cases {
		if got := ValidYouTubeURL(raw); got != want {
			t.Errorf("ValidYouTubeURL(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestExtractVideoID(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
	}
	for _, c := range cases {
		got, err := ExtractVideoID(c.url)
		if err != nil {
			t.Fatalf("ExtractVideoID(%q) returned error: %v", c.url, err)
		}
		if got != c.want {
			t.Errorf("ExtractVideoID(%q) = %q, want %q", c.url, got, c.want)
		}
	}
}

func TestExtractVideoID_NoMatch(t *testing.T) {
	if _, err := ExtractVideoID("https://example.com/nope"); err == nil {
		t.Fatal("expected error for URL with no video id")
	}
}

func TestBestAudioFormat_PicksAudioOnlyStream(t *testing.T) {
	pr := &playerResponse{}
	pr.StreamingData.AdaptiveFormats = []struct {
		URL          string `json:"url"`
		MimeType     string `json:"mimeType"`
		AudioQuality string `json:"audioQuality"`
	}{
		{URL: "https://example.com/video.mp4", MimeType: "video/mp4"},
		{URL: "https://example.com/audio.m4a", MimeType: "audio/mp4", AudioQuality: "AUDIO_QUALITY_MEDIUM"},
	}

	got, err := bestAudioFormat(pr)
	if err != nil {
		t.Fatalf("bestAudioFormat returned error: %v", err)
	}
	if got != "https://example.com/audio.m4a" {
		t.Errorf("bestAudioFormat = %q, want audio.m4a stream", got)
	}
}

func TestBestAudioFormat_NoneAvailable(t *testing.T) {
	pr := &playerResponse{}
	if _, err := bestAudioFormat(pr); err == nil {
		t.Fatal("expected error when no audio-only format is present")
	}
}
