package orchestrator

import (
	"math"
	"time"
)

type sampleState struct {
	firstProcessed uint64
	firstAt        time.Time
}

// reporter tracks the running elapsed time and a first-sample anchor per
// (phase, type) pair, so estimatedRemainingMs can be derived from an
// observed rate once a phase has partial progress, as the progress
// contract requires.
type reporter struct {
	start      time.Time
	onProgress func(LoadProgress)
	samples    map[string]sampleState
}

func newReporter(start time.Time, cb func(LoadProgress)) *reporter {
	return &reporter{start: start, onProgress: cb, samples: make(map[string]sampleState)}
}

func (r *reporter) emit(phase Phase, typ string, processed, total uint64, perr *ProgressError) {
	if r.onProgress == nil {
		return
	}

	var pct uint8
	if total > 0 {
		pct = uint8(math.Round(100 * float64(processed) / float64(total)))
	}
	elapsed := uint64(time.Since(r.start).Milliseconds())

	var eta *uint64
	key := string(phase) + "|" + typ
	if total > 0 && processed < total {
		st, ok := r.samples[key]
		if !ok {
			r.samples[key] = sampleState{firstProcessed: processed, firstAt: time.Now()}
		} else if elapsedSince := time.Since(st.firstAt).Seconds(); elapsedSince > 0 && processed > st.firstProcessed {
			rate := float64(processed-st.firstProcessed) / elapsedSince
			if rate > 0 {
				remaining := uint64(float64(total-processed) / rate * 1000)
				eta = &remaining
			}
		}
	}

	r.onProgress(LoadProgress{
		Phase:                phase,
		Type:                 typ,
		Processed:            processed,
		Total:                total,
		Percentage:           pct,
		ElapsedMs:            elapsed,
		EstimatedRemainingMs: eta,
		Error:                perr,
	})
}
