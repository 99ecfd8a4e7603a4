package jobs

import (
	"sync"

	"github.com/google/uuid"

	"github.com/rezonia/einvoice-engine/internal/model"
)

// Job is one conversion request: a source document plus the target format.
// Progress is reported through checkpoints and only ever moves forward.
type Job struct {
	ID            string
	SourceFile    string
	FileData      []byte
	MimeType      string
	ExtractedText string
	Format        model.OutputFormat

	// OnProgress, when set, is invoked for every accepted checkpoint.
	OnProgress func(percent int)

	mu       sync.Mutex
	progress int
}

// NewJob creates a job with a fresh ID.
func NewJob(sourceFile string, fileData []byte, mimeType string, format model.OutputFormat) *Job {
	return &Job{
		ID:         uuid.NewString(),
		SourceFile: sourceFile,
		FileData:   fileData,
		MimeType:   mimeType,
		Format:     format,
	}
}

// UpdateProgress records a progress checkpoint. Stale or out-of-order
// reports are dropped so observers never see progress move backwards.
func (j *Job) UpdateProgress(percent int) {
	j.mu.Lock()
	if percent <= j.progress {
		j.mu.Unlock()
		return
	}
	if percent > 100 {
		percent = 100
	}
	j.progress = percent
	callback := j.OnProgress
	j.mu.Unlock()

	if callback != nil {
		callback(percent)
	}
}

// Progress returns the last accepted checkpoint.
func (j *Job) Progress() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}
