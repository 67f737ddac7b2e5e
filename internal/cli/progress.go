package cli

import (
	"context"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"stressvision/internal/models"
)

// Progress shows how far the reader got through the input. It implements
// pipeline.Observer.
type Progress struct {
	bar *progressbar.ProgressBar

	mu   sync.Mutex
	done int
}

// NewProgress creates a bar for total frames; total <= 0 shows a spinner.
func NewProgress(w io.Writer, description string, total int) *Progress {
	if total <= 0 {
		total = -1
	}
	return &Progress{
		bar: progressbar.NewOptions(total,
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWriter(w),
			progressbar.OptionShowCount(),
		),
	}
}

func (p *Progress) OnFrame(ctx context.Context, frame models.OutputFrame) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// przy pomijaniu klatek indeksy mają luki
	if frame.Frame.Index+1 > p.done {
		p.done = frame.Frame.Index + 1
		p.bar.Set(p.done)
	}
}

// Done returns the number of input frames covered so far.
func (p *Progress) Done() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Finish completes the bar and moves to a new line.
func (p *Progress) Finish() {
	p.bar.Finish()
}
