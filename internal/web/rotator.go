package web

import "time"

// HeroInterval is the auto-advance period of the hero slides.
const HeroInterval = 6 * time.Second

// Rotator tracks the visible slide among n. All moves wrap around.
type Rotator struct {
	n   int
	idx int
}

func NewRotator(n int) *Rotator {
	return &Rotator{n: n}
}

func (r *Rotator) Show(i int) int {
	if r.n == 0 {
		return 0
	}
	r.idx = ((i % r.n) + r.n) % r.n
	return r.idx
}

func (r *Rotator) Next() int { return r.Show(r.idx + 1) }

func (r *Rotator) Prev() int { return r.Show(r.idx - 1) }

func (r *Rotator) Current() int { return r.idx }

func (r *Rotator) Len() int { return r.n }
