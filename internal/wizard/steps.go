package wizard

import (
	"fmt"
	"time"
)

// Step is one stage of the setup wizard. Steps run in declaration order.
type Step int

const (
	StepDockerCheck Step = iota
	StepPullImages
	StepStartServices
	StepDownloadModel
	StepCreateCollection
	StepComplete
)

// StepCount is the number of wizard steps.
const StepCount = int(StepComplete) + 1

var stepTitles = [StepCount]string{
	"Check Docker",
	"Pull Images",
	"Start Services",
	"Download Model",
	"Create Collection",
	"Complete",
}

func (s Step) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Step(%d)", int(s))
	}
	return stepTitles[s]
}

// Valid reports whether s names a real step.
func (s Step) Valid() bool {
	return s >= StepDockerCheck && s <= StepComplete
}

// Steps returns every step in order.
func Steps() []Step {
	out := make([]Step, StepCount)
	for i := range out {
		out[i] = Step(i)
	}
	return out
}

func clampStep(index int) Step {
	if index < 0 {
		return StepDockerCheck
	}
	if index > int(StepComplete) {
		return StepComplete
	}
	return Step(index)
}

// Phase is the state of the current step.
type Phase int

const (
	// PhaseChecking means the read-only satisfied-check is in flight.
	PhaseChecking Phase = iota
	// PhaseSatisfied means the step is done and auto-advance is pending.
	PhaseSatisfied
	// PhaseNeedsAction means the step waits for the user to run it.
	PhaseNeedsAction
	// PhaseRunning means the provisioning action is in flight.
	PhaseRunning
	// PhaseFailed means the check or action failed; Retry is offered.
	PhaseFailed
	// PhaseDone means the wizard has been completed.
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseChecking:
		return "checking"
	case PhaseSatisfied:
		return "satisfied"
	case PhaseNeedsAction:
		return "needs action"
	case PhaseRunning:
		return "running"
	case PhaseFailed:
		return "failed"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Timings holds every delay, poll interval and timeout the machine uses.
type Timings struct {
	DockerAdvance          time.Duration
	StepAdvance            time.Duration
	ServicePollInterval    time.Duration
	ServiceTimeout         time.Duration
	CollectionPollInterval time.Duration
	CollectionTimeout      time.Duration
	ResetSettle            time.Duration
}

// DefaultTimings returns the production timings.
func DefaultTimings() Timings {
	return Timings{
		DockerAdvance:          1000 * time.Millisecond,
		StepAdvance:            1500 * time.Millisecond,
		ServicePollInterval:    2 * time.Second,
		ServiceTimeout:         120 * time.Second,
		CollectionPollInterval: 1500 * time.Millisecond,
		CollectionTimeout:      60 * time.Second,
		ResetSettle:            3 * time.Second,
	}
}

func (t Timings) withDefaults() Timings {
	d := DefaultTimings()
	if t.DockerAdvance <= 0 {
		t.DockerAdvance = d.DockerAdvance
	}
	if t.StepAdvance <= 0 {
		t.StepAdvance = d.StepAdvance
	}
	if t.ServicePollInterval <= 0 {
		t.ServicePollInterval = d.ServicePollInterval
	}
	if t.ServiceTimeout <= 0 {
		t.ServiceTimeout = d.ServiceTimeout
	}
	if t.CollectionPollInterval <= 0 {
		t.CollectionPollInterval = d.CollectionPollInterval
	}
	if t.CollectionTimeout <= 0 {
		t.CollectionTimeout = d.CollectionTimeout
	}
	if t.ResetSettle <= 0 {
		t.ResetSettle = d.ResetSettle
	}
	return t
}

// advanceDelay is how long a satisfied step stays on screen.
func (t Timings) advanceDelay(step Step) time.Duration {
	if step == StepDockerCheck {
		return t.DockerAdvance
	}
	return t.StepAdvance
}
