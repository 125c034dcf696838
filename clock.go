package httpcache

import "time"

// clock abstracts wall-clock reads so tests can substitute a fixed time,
// the same pattern the teacher package uses for its realClock/timer pair
// (there used to compute response ages; here used throughout the
// freshness engine and garbage collector).
type clock interface {
	now() int64
}

type realClock struct{}

func (realClock) now() int64 { return time.Now().Unix() }

var defaultClock clock = realClock{}
