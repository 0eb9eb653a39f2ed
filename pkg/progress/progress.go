// Package progress implements per-stage buffered progress reporting.
//
// Detail lines accumulate in a buffer while a pipeline stage runs.
// If the stage fails, the buffer replays so the operator sees every
// step that led up to the error.  If the stage succeeds, the buffer is
// discarded and a single summary line goes out.
//
// Thread safety comes from a dedicated goroutine and a command channel,
// no mutexes.
package progress

import (
	"time"

	"github.com/rs/zerolog"
)

type action int

const (
	actBegin action = iota
	actStep
	actDone
	actFail
	actClose
)

type cmd struct {
	act     action
	stage   string
	message string // for Step
	summary string // for Done
	err     error  // for Fail
	count   int    // for Done
	when    time.Time
}

type entry struct {
	when time.Time
	line string
}

// Reporter serializes stage reports through its command loop.  Create
// one with New and Close it when the pipeline finishes.
type Reporter struct {
	ch   chan cmd
	done chan struct{}
}

// New starts the reporting loop writing to log.
func New(log zerolog.Logger) *Reporter {
	r := &Reporter{
		ch:   make(chan cmd, 128), // headroom for bursts
		done: make(chan struct{}),
	}
	go r.runloop(log)
	return r
}

// Begin starts buffering detail lines for stage.
func (r *Reporter) Begin(stage string) {
	r.ch <- cmd{act: actBegin, stage: stage, when: time.Now()}
}

// Step records one detail line.  The line stays in the buffer unless
// the stage ends in Fail, or no Begin preceded it, in which case it is
// logged immediately at debug level.
func (r *Reporter) Step(stage, msg string) {
	r.ch <- cmd{act: actStep, stage: stage, message: msg, when: time.Now()}
}

// Done drops the stage's buffer and logs one summary line.
func (r *Reporter) Done(stage, summary string, count int) {
	r.ch <- cmd{act: actDone, stage: stage, summary: summary, count: count, when: time.Now()}
}

// Fail replays the stage's buffered lines and logs the final error.
func (r *Reporter) Fail(stage string, err error) {
	r.ch <- cmd{act: actFail, stage: stage, err: err, when: time.Now()}
}

// Close drains the loop.  Reports sent before Close are delivered
// before it returns.
func (r *Reporter) Close() {
	r.ch <- cmd{act: actClose}
	<-r.done
}

func (r *Reporter) runloop(log zerolog.Logger) {
	defer close(r.done)
	buffers := make(map[string][]entry)

	for c := range r.ch {
		switch c.act {
		case actBegin:
			buffers[c.stage] = nil
			log.Debug().Str("stage", c.stage).Msg("stage started")

		case actStep:
			if _, ok := buffers[c.stage]; ok {
				buffers[c.stage] = append(buffers[c.stage], entry{when: c.when, line: c.message})
			} else {
				// no buffer yet, log straight through
				log.Debug().Str("stage", c.stage).Msg(c.message)
			}

		case actDone:
			ev := log.Info().Str("stage", c.stage)
			if c.count >= 0 {
				ev = ev.Int("count", c.count)
			}
			ev.Msg(c.summary)
			delete(buffers, c.stage)

		case actFail:
			for _, e := range buffers[c.stage] {
				log.Warn().Str("stage", c.stage).Time("at", e.when).Msg(e.line)
			}
			delete(buffers, c.stage)
			log.Error().Str("stage", c.stage).Err(c.err).Msg("stage failed")

		case actClose:
			return
		}
	}
}
