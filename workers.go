package slic

import (
	"golang.org/x/sync/errgroup"
)

// span is a half-open index range [start, end) handed to one worker.
type span struct {
	start, end int
}

// partition tiles [0, n) into at most parts contiguous spans. Every span but
// the last has length n/parts; the last one absorbs the remainder.
func partition(n, parts int) []span {
	parts = max(1, min(parts, n))
	if n <= 0 {
		return []span{{0, 0}}
	}
	delta := n / parts
	spans := make([]span, parts)
	for i := range parts {
		spans[i] = span{i * delta, (i + 1) * delta}
	}
	spans[parts-1].end = n
	return spans
}

// forkJoin runs fn once per span and waits for all of them. A panic inside a
// worker is returned as a *WorkerError instead of crashing the process.
func forkJoin(phase string, spans []span, fn func(s span)) error {
	var g errgroup.Group
	for _, s := range spans {
		g.Go(func() (err error) {
			defer func() {
				if v := recover(); v != nil {
					err = &WorkerError{Phase: phase, Start: s.start, End: s.end, Value: v}
				}
			}()
			fn(s)
			return nil
		})
	}
	return g.Wait()
}
