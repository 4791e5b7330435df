// Package ytdl implements the YouTube audio downloader collaborator used by
// the download worker: URL validation and best-effort direct audio stream
// resolution, using a hardened HTTP client built the way the teacher's web
// fetch tool builds one (internal/tools/web/fetch.go) since no dedicated
// YouTube-download library appears anywhere in the example corpus.
package ytdl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DownloadOutput mirrors the reference implementation's download_output:
// the downloaded audio file plus the metadata the transcription task
// carries forward.
type DownloadOutput struct {
	FileID          string
	AudioFilePath   string
	AudioFolderPath string
	Title           string
	VideoID         string
	Duration        int
	Uploader        string
}

// ValidYouTubeURL reports whether rawURL is an http(s) URL on a recognized
// YouTube host, mirroring DownloadManager._is_valid_youtube_url.
func ValidYouTubeURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	switch host {
	case "youtube.com", "www.youtube.com", "youtu.be", "m.youtube.com":
		return true
	}
	return strings.Contains(host, "youtube")
}

// Downloader resolves a YouTube URL to a local audio file.
type Downloader struct {
	client    *http.Client
	tempDir   string
	userAgent string
}

// NewDownloader builds a Downloader with a hardened http.Client: capped
// redirects, dial/TLS/response-header timeouts, and a browser User-Agent,
// adapted from the teacher's web.NewFetcher.
func NewDownloader(tempDir string) *Downloader {
	dialer := &net.Dialer{Timeout: 7 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   7 * time.Second,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	client := &http.Client{
		Transport: transport,
		Timeout:   120 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > 10 {
				return fmt.Errorf("stopped after 10 redirects")
			}
			return nil
		},
	}
	return &Downloader{
		client:    client,
		tempDir:   tempDir,
		userAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Safari/537.36",
	}
}

var videoIDRe = regexp.MustCompile(`(?:v=|youtu\.be/|embed/)([A-Za-z0-9_-]{11})`)

// ExtractVideoID pulls the 11-character video id out of any of YouTube's
// URL shapes (watch?v=, youtu.be/, /embed/).
func ExtractVideoID(rawURL string) (string, error) {
	if m := videoIDRe.FindStringSubmatch(rawURL); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("ytdl: could not extract video id from %q", rawURL)
}

type playerResponse struct {
	VideoDetails struct {
		VideoID       string `json:"videoId"`
		Title         string `json:"title"`
		LengthSeconds string `json:"lengthSeconds"`
		Author        string `json:"author"`
	} `json:"videoDetails"`
	StreamingData struct {
		AdaptiveFormats []struct {
			URL         string `json:"url"`
			MimeType    string `json:"mimeType"`
			AudioQuality string `json:"audioQuality"`
		} `json:"adaptiveFormats"`
	} `json:"streamingData"`
}

var playerResponseRe = regexp.MustCompile(`ytInitialPlayerResponse\s*=\s*(\{.*?\});`)

func (d *Downloader) fetchPlayerResponse(ctx context.Context, videoID string) (*playerResponse, error) {
	watchURL := "https://www.youtube.com/watch?v=" + videoID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch watch page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8*1000*1000))
	if err != nil {
		return nil, fmt.Errorf("read watch page: %w", err)
	}

	m := playerResponseRe.FindSubmatch(body)
	if m == nil {
		return nil, fmt.Errorf("ytdl: could not locate player response for %s", videoID)
	}
	var pr playerResponse
	if err := json.Unmarshal(m[1], &pr); err != nil {
		return nil, fmt.Errorf("parse player response: %w", err)
	}
	return &pr, nil
}

// bestAudioFormat returns the URL of the first adaptive format that has an
// audio-only mime type and a URL; audioQuality and bitrate are not consulted.
func bestAudioFormat(pr *playerResponse) (string, error) {
	for _, f := range pr.StreamingData.AdaptiveFormats {
		if strings.HasPrefix(f.MimeType, "audio/") && f.URL != "" {
			return f.URL, nil
		}
	}
	return "", fmt.Errorf("ytdl: no audio-only adaptive format found")
}

// DownloadAudio resolves rawURL to a direct audio stream and downloads it
// into a per-download temp folder under d.tempDir, mirroring
// YouTubeDownloader.download_audio's file layout (one folder per download,
// named by a generated file id).
func (d *Downloader) DownloadAudio(ctx context.Context, rawURL string) (*DownloadOutput, error) {
	videoID, err := ExtractVideoID(rawURL)
	if err != nil {
		return nil, err
	}

	pr, err := d.fetchPlayerResponse(ctx, videoID)
	if err != nil {
		return nil, err
	}
	audioURL, err := bestAudioFormat(pr)
	if err != nil {
		return nil, err
	}

	fileID := uuid.NewString()
	folder := filepath.Join(d.tempDir, fileID)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("create temp audio folder: %w", err)
	}
	audioPath := filepath.Join(folder, "audio.m4a")

	if err := d.downloadTo(ctx, audioURL, audioPath); err != nil {
		return nil, err
	}

	duration, _ := strconv.Atoi(pr.VideoDetails.LengthSeconds)
	return &DownloadOutput{
		FileID:          fileID,
		AudioFilePath:   audioPath,
		AudioFolderPath: folder,
		Title:           pr.VideoDetails.Title,
		VideoID:         videoID,
		Duration:        duration,
		Uploader:        pr.VideoDetails.Author,
	}, nil
}

func (d *Downloader) downloadTo(ctx context.Context, streamURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("download audio stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download audio stream: unexpected status %d", resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}
	defer out.Close()

	// Cap the download at 500MB to bound memory/disk use from a single
	// misbehaving or oversized stream.
	if _, err := io.Copy(out, io.LimitReader(resp.Body, 500*1000*1000)); err != nil {
		return fmt.Errorf("write audio file: %w", err)
	}
	return nil
}
