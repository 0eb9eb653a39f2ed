package progress

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newCaptured() (*Reporter, *bytes.Buffer) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	return New(log), &buf
}

// TestSuccessDiscardsDetail: a stage that ends in Done emits only its
// summary line, none of the buffered steps.
func TestSuccessDiscardsDetail(t *testing.T) {
	r, buf := newCaptured()
	r.Begin("rasterize")
	r.Step("rasterize", "track a drawn")
	r.Step("rasterize", "track b drawn")
	r.Done("rasterize", "grid populated", 2)
	r.Close()

	out := buf.String()
	if strings.Contains(out, "track a drawn") {
		t.Errorf("buffered detail leaked on success:\n%s", out)
	}
	if !strings.Contains(out, "grid populated") || !strings.Contains(out, `"count":2`) {
		t.Errorf("missing summary line:\n%s", out)
	}
}

// TestFailureReplaysDetail: a failing stage replays every buffered step
// before the error, in order.
func TestFailureReplaysDetail(t *testing.T) {
	r, buf := newCaptured()
	r.Begin("boundaries")
	r.Step("boundaries", "fetched world")
	r.Step("boundaries", "fetching us_states")
	r.Fail("boundaries", errors.New("connection refused"))
	r.Close()

	out := buf.String()
	first := strings.Index(out, "fetched world")
	second := strings.Index(out, "fetching us_states")
	errAt := strings.Index(out, "connection refused")
	if first < 0 || second < 0 || errAt < 0 {
		t.Fatalf("missing replayed lines or error:\n%s", out)
	}
	if !(first < second && second < errAt) {
		t.Errorf("replay out of order:\n%s", out)
	}
}

// TestStepWithoutBegin logs straight through instead of vanishing.
func TestStepWithoutBegin(t *testing.T) {
	r, buf := newCaptured()
	r.Step("orphan", "no stage open")
	r.Close()
	if !strings.Contains(buf.String(), "no stage open") {
		t.Errorf("orphan step was dropped:\n%s", buf.String())
	}
}

// TestStagesIndependent: failing one stage must not disturb another
// stage's buffer.
func TestStagesIndependent(t *testing.T) {
	r, buf := newCaptured()
	r.Begin("load")
	r.Begin("filter")
	r.Step("load", "reading file")
	r.Step("filter", "checking region")
	r.Fail("filter", errors.New("bad region"))
	r.Done("load", "loaded", 10)
	r.Close()

	out := buf.String()
	if strings.Contains(out, "reading file") {
		t.Errorf("load stage detail leaked via filter failure:\n%s", out)
	}
	if !strings.Contains(out, "checking region") {
		t.Errorf("filter detail not replayed:\n%s", out)
	}
}
