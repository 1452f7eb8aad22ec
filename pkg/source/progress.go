package source

import (
	"fmt"
	"time"

	"github.com/promptvision/promptcam/internal/log"
	"github.com/promptvision/promptcam/pkg/frame"
)

// progressEvery is the read interval between progress log lines.
const progressEvery = 30

// Progress wraps a Source and periodically logs how far the run has come:
// frames done out of total, elapsed time, effective rate, and the remaining
// estimate. Meant for the headless path, where there is no window to watch.
type Progress struct {
	Source

	total int
	every int
	start time.Time
	reads int
}

// NewProgress wraps src. total is the expected frame count; 0 means unknown
// and drops the remaining estimate from the log line.
func NewProgress(src Source, total int) *Progress {
	return &Progress{
		Source: src,
		total:  total,
		every:  progressEvery,
		start:  time.Now(),
	}
}

// Read forwards to the wrapped source, counting successful reads.
func (p *Progress) Read() (*frame.RawFrame, error) {
	f, err := p.Source.Read()
	if err != nil {
		return nil, err
	}
	p.reads++
	if p.reads%p.every == 0 {
		p.report()
	}
	return f, nil
}

// Frames returns the number of frames read so far.
func (p *Progress) Frames() int { return p.reads }

func (p *Progress) report() {
	elapsed := time.Since(p.start)
	rate := float64(p.reads) / elapsed.Seconds()

	if p.total > 0 && rate > 0 {
		remaining := time.Duration(float64(p.total-p.reads) / rate * float64(time.Second))
		log.Info("progress",
			"frame", p.reads, "total", p.total,
			"elapsed", elapsed.Round(time.Second),
			"fps", fmt.Sprintf("%.1f", rate),
			"eta", remaining.Round(time.Second))
		return
	}
	log.Info("progress",
		"frame", p.reads,
		"elapsed", elapsed.Round(time.Second),
		"fps", fmt.Sprintf("%.1f", rate))
}
