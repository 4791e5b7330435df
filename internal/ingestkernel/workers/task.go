// Package workers implements the four pipeline stages as self-terminating
// queue consumers: download, transcription, embedding, storage. Each stage
// reads from one queue.Queue and (except storage) writes to the next,
// mirroring the reference implementation's thread_managers package.
package workers

import "brag/internal/ingestkernel"

// TranscriptionTask hands an audio file from the download or file-ingestion
// stage to the transcription worker, mirroring the reference
// implementation's TranscriptionTask dataclass.
type TranscriptionTask struct {
	ID                string
	AudioPath         string
	AudioFolderPath   string
	Source            string
	SourceType        ingestkernel.SourceType
	TaskID            string
	Metadata          map[string]any
	DeleteAudioFolder bool
}
