package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math/rand"
	"sync"
	"time"

	"stressvision/internal/models"
)

// newImage returns a w x h image whose top-left pixel encodes index, so that
// tests can tell frames apart after they went through the pipeline.
func newImage(index, w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: uint8(index), G: uint8(index >> 8), A: 255})
	return img
}

func imageIndex(img image.Image) int {
	r, g, _, _ := img.At(0, 0).RGBA()
	return int(r>>8) | int(g>>8)<<8
}

// sliceSource yields n frames and then io.EOF, or ErrTruncated when it
// announced more than n.
type sliceSource struct {
	mu      sync.Mutex
	n       int
	total   int // announced frame count, 0 = unknown
	next    int
	failAt  int // -1 = never
	readCnt int
	onRead  func(index int)
}

func newSliceSource(n int) *sliceSource {
	return &sliceSource{n: n, failAt: -1}
}

func (s *sliceSource) Read(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next == s.failAt {
		return nil, errors.New("corrupt frame")
	}
	if s.next >= s.n {
		return nil, EndOfStream(s.next, s.total)
	}
	idx := s.next
	s.next++
	s.readCnt++
	if s.onRead != nil {
		s.onRead(idx)
	}
	return newImage(idx, 64, 48), nil
}

// memorySink keeps written frames in memory.
type memorySink struct {
	mu        sync.Mutex
	frames    []models.OutputFrame
	failAt    int // -1 = never
	committed bool
	aborted   bool
	onWrite   func(index int)
}

func newMemorySink() *memorySink {
	return &memorySink{failAt: -1}
}

func (s *memorySink) Write(ctx context.Context, frame models.OutputFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if frame.Frame.Index == s.failAt {
		return errors.New("disk full")
	}
	if s.onWrite != nil {
		s.onWrite(frame.Frame.Index)
	}
	s.frames = append(s.frames, frame)
	return nil
}

func (s *memorySink) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = true
	return nil
}

func (s *memorySink) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborted = true
	return nil
}

func (s *memorySink) indices() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.frames))
	for i, f := range s.frames {
		out[i] = f.Frame.Index
	}
	return out
}

// scriptedDetector returns one box for frame indices listed in hits and
// nothing otherwise. It can sleep randomly, fail or panic on given frames.
type scriptedDetector struct {
	hits    map[int]bool
	fail    map[int]bool
	panicAt map[int]bool
	block   map[int]bool
	jitter  time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func newScriptedDetector(hits ...int) *scriptedDetector {
	d := &scriptedDetector{
		hits:    make(map[int]bool),
		fail:    make(map[int]bool),
		panicAt: make(map[int]bool),
		block:   make(map[int]bool),
		rng:     rand.New(rand.NewSource(1)),
	}
	for _, h := range hits {
		d.hits[h] = true
	}
	return d
}

func (d *scriptedDetector) hitAll(n int) *scriptedDetector {
	for i := 0; i < n; i++ {
		d.hits[i] = true
	}
	return d
}

func (d *scriptedDetector) Detect(ctx context.Context, img image.Image) ([]models.Region, error) {
	idx := imageIndex(img)

	if d.jitter > 0 {
		d.mu.Lock()
		sleep := time.Duration(d.rng.Int63n(int64(d.jitter)))
		d.mu.Unlock()
		time.Sleep(sleep)
	}
	if d.panicAt[idx] {
		panic("model crashed")
	}
	if d.fail[idx] {
		return nil, errors.New("inference failed")
	}
	if d.block[idx] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if !d.hits[idx] {
		return nil, nil
	}
	return []models.Region{{Box: models.BoundingBox{X: 10 + idx%10, Y: 8, Width: 20, Height: 20}, Confidence: 0.9}}, nil
}

// fixedClassifier answers the same label for every face.
type fixedClassifier struct {
	label string
	err   error
}

func (c fixedClassifier) Classify(ctx context.Context, face image.Image) (string, error) {
	return c.label, c.err
}
