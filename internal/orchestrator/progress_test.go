package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReporterEmitsMonotonicPercentage(t *testing.T) {
	var events []LoadProgress
	r := newReporter(time.Now(), func(p LoadProgress) { events = append(events, p) })

	r.emit(PhaseVertices, "Person", 50, 100, nil)
	r.emit(PhaseVertices, "Person", 100, 100, nil)

	require.Len(t, events, 2)
	require.Equal(t, uint8(50), events[0].Percentage)
	require.Equal(t, uint8(100), events[1].Percentage)
}

func TestReporterSkipsCallbackWhenNil(t *testing.T) {
	r := newReporter(time.Now(), nil)
	require.NotPanics(t, func() { r.emit(PhaseVertices, "Person", 1, 10, nil) })
}

func TestReporterAttachesProgressError(t *testing.T) {
	var got *ProgressError
	r := newReporter(time.Now(), func(p LoadProgress) { got = p.Error })
	perr := &ProgressError{Message: "boom"}
	r.emit(PhaseCleanup, "", 0, 0, perr)
	require.Equal(t, perr, got)
}
