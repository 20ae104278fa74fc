package sttrealtime

import (
	"strings"
	"time"
)

// FinalizeConfig controls the three timers armed by a Finalize call.
type FinalizeConfig struct {
	Deadline time.Duration
	FastPath time.Duration
	Settle   time.Duration
}

const (
	defaultDeadline = 5 * time.Second
	defaultFastPath = 450 * time.Millisecond
	defaultSettle   = 250 * time.Millisecond

	settleClampMin = 150 * time.Millisecond
	settleClampMax = 350 * time.Millisecond
)

// DefaultFinalizeConfig derives the finalize timers from the session's
// opening Options: the settle timer shrinks to track the VAD's own
// min_silence_duration_ms when VAD commit is in use, clamped to
// [150ms, 350ms].
func DefaultFinalizeConfig(opts Options) FinalizeConfig {
	fastPath := defaultFastPath
	if fastPath > defaultDeadline {
		fastPath = defaultDeadline
	}

	settle := defaultSettle
	if opts.CommitStrategy == CommitVAD {
		settle = time.Duration(opts.VAD.MinSilenceDurationMs)*time.Millisecond + 100*time.Millisecond
		if settle < settleClampMin {
			settle = settleClampMin
		}
		if settle > settleClampMax {
			settle = settleClampMax
		}
	}

	return FinalizeConfig{Deadline: defaultDeadline, FastPath: fastPath, Settle: settle}
}

// join combines committed and partial text: trim both, return whichever is
// non-empty, or join with a single space when both are present.
func join(committed, partial string) string {
	c := strings.TrimSpace(committed)
	p := strings.TrimSpace(partial)
	switch {
	case c == "":
		return p
	case p == "":
		return c
	default:
		return c + " " + p
	}
}

// pendingFinalize tracks one in-flight Finalize call's timers and the
// updates observed since it was posted.
type pendingFinalize struct {
	respondTo chan finalizeResult
	cfg       FinalizeConfig

	hadPartialAtOpen   bool
	sawUpdateSincePost bool
	sawCommittedSincePost bool

	deadline *time.Timer
	fastPath *time.Timer
	settle   *time.Timer
}

func newPendingFinalize(respondTo chan finalizeResult, cfg FinalizeConfig, hadPartial bool) *pendingFinalize {
	return &pendingFinalize{
		respondTo:        respondTo,
		cfg:              cfg,
		hadPartialAtOpen: hadPartial,
		deadline:         time.NewTimer(cfg.Deadline),
		fastPath:         time.NewTimer(cfg.FastPath),
	}
}

// onUpdate records a partial or committed transcript update arriving after
// Finalize was posted. The settle timer is armed (or re-armed) only once a
// committed update has been seen post-Finalize.
func (pf *pendingFinalize) onUpdate(committedJustArrived bool) {
	pf.sawUpdateSincePost = true
	if committedJustArrived {
		pf.sawCommittedSincePost = true
	}
	if !pf.sawCommittedSincePost {
		return
	}

	if pf.settle == nil {
		pf.settle = time.NewTimer(pf.cfg.Settle)
		return
	}
	if !pf.settle.Stop() {
		select {
		case <-pf.settle.C:
		default:
		}
	}
	pf.settle.Reset(pf.cfg.Settle)
}

// stopTimers releases every armed timer. Safe to call more than once.
func (pf *pendingFinalize) stopTimers() {
	pf.deadline.Stop()
	if pf.fastPath != nil {
		pf.fastPath.Stop()
	}
	if pf.settle != nil {
		pf.settle.Stop()
	}
}
