package render

import (
	"context"
	"sync"
	"time"
)

// Slideshow tracks the visible hero image and advances it on a timer.
type Slideshow struct {
	mu       sync.Mutex
	count    int
	current  int
	onChange func(int)

	interval  time.Duration
	newTicker func(time.Duration) (<-chan time.Time, func())
}

// NewSlideshow starts at image 0 of count. onChange, if set, is called with every new index.
func NewSlideshow(count int, onChange func(int)) *Slideshow {
	return &Slideshow{
		count:    count,
		onChange: onChange,
		interval: SlideInterval,
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

func (s *Slideshow) Len() int { return s.count }

func (s *Slideshow) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Slideshow) Next() int {
	return s.step(1)
}

func (s *Slideshow) Prev() int {
	return s.step(-1)
}

// Go shows image i, wrapped into range.
func (s *Slideshow) Go(i int) int {
	return s.move(func(int) int { return i })
}

func (s *Slideshow) step(delta int) int {
	return s.move(func(cur int) int { return cur + delta })
}

func (s *Slideshow) move(target func(cur int) int) int {
	s.mu.Lock()
	if s.count == 0 {
		s.mu.Unlock()
		return 0
	}
	s.current = wrap(target(s.current), s.count)
	cur := s.current
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(cur)
	}
	return cur
}

// Run advances every interval until ctx is done. With fewer than two images it returns
// immediately.
func (s *Slideshow) Run(ctx context.Context) {
	if s.count < 2 {
		return
	}

	tick, stop := s.newTicker(s.interval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			s.Next()
		}
	}
}
