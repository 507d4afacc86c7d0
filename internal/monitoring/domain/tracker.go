package monitoring

import "time"

// Phase is the externally visible state of a tracker.
type Phase string

const (
	PhaseBaseline  Phase = "baseline"
	PhaseTracking  Phase = "tracking"
	PhaseAlertOpen Phase = "alert_open"
)

// trackerState is implemented only by baseline, tracking and alertOpen.
type trackerState[T comparable] interface {
	phase() Phase
}

type baseline[T comparable] struct{}

type tracking[T comparable] struct {
	value T
	since time.Time
	count int
}

type alertOpen[T comparable] struct {
	value T
	since time.Time
	count int
}

func (baseline[T]) phase() Phase  { return PhaseBaseline }
func (tracking[T]) phase() Phase  { return PhaseTracking }
func (alertOpen[T]) phase() Phase { return PhaseAlertOpen }

// TransitionKind describes what a single observation did to a tracker.
type TransitionKind string

const (
	TransitionBaseline  TransitionKind = "baseline"
	TransitionUnchanged TransitionKind = "unchanged"
	TransitionChanged   TransitionKind = "changed"
	TransitionAlert     TransitionKind = "alert"
	TransitionRecovery  TransitionKind = "recovery"
)

// Transition is the outcome of Tracker.Observe.
type Transition[T comparable] struct {
	Kind     TransitionKind
	Value    T
	Previous T
	Since    time.Time
	Elapsed  time.Duration
	Count    int
}

// TrackerSnapshot is a read-only view of tracker state.
type TrackerSnapshot[T comparable] struct {
	Phase       Phase
	Value       T
	HasValue    bool
	Since       time.Time
	Count       int
	AlertActive bool
}

// TrackerOption configures a tracker.
type TrackerOption[T comparable] func(*Tracker[T])

// WithAlertWhen limits alerts to stagnant values accepted by fn.
func WithAlertWhen[T comparable](fn func(T) bool) TrackerOption[T] {
	return func(t *Tracker[T]) {
		if fn != nil {
			t.alertWhen = fn
		}
	}
}

// Tracker detects a value that stops changing across consecutive polls.
// Values are compared with ==, without tolerance.
type Tracker[T comparable] struct {
	required  int
	alertWhen func(T) bool
	state     trackerState[T]
}

// NewTracker constructs a tracker that alerts after required unchanged readings.
func NewTracker[T comparable](required int, opts ...TrackerOption[T]) (*Tracker[T], error) {
	if required < 1 {
		return nil, ErrInvalidRequiredReadings
	}
	t := &Tracker[T]{
		required: required,
		state:    baseline[T]{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Observe feeds one reading into the tracker.
func (t *Tracker[T]) Observe(v T, now time.Time) Transition[T] {
	switch s := t.state.(type) {
	case tracking[T]:
		if v != s.value {
			t.state = tracking[T]{value: v, since: now}
			return Transition[T]{Kind: TransitionChanged, Value: v, Previous: s.value, Since: now}
		}
		s.count++
		if s.count >= t.required && t.alertable(v) {
			t.state = alertOpen[T]{value: s.value, since: s.since, count: s.count}
			return Transition[T]{
				Kind:     TransitionAlert,
				Value:    v,
				Previous: s.value,
				Since:    s.since,
				Elapsed:  now.Sub(s.since),
				Count:    s.count,
			}
		}
		t.state = s
		return Transition[T]{Kind: TransitionUnchanged, Value: v, Previous: s.value, Since: s.since, Elapsed: now.Sub(s.since), Count: s.count}
	case alertOpen[T]:
		if v != s.value {
			t.state = tracking[T]{value: v, since: now}
			return Transition[T]{
				Kind:     TransitionRecovery,
				Value:    v,
				Previous: s.value,
				Since:    s.since,
				Elapsed:  now.Sub(s.since),
				Count:    s.count,
			}
		}
		s.count++
		t.state = s
		return Transition[T]{Kind: TransitionUnchanged, Value: v, Previous: s.value, Since: s.since, Elapsed: now.Sub(s.since), Count: s.count}
	default:
		t.state = tracking[T]{value: v, since: now}
		return Transition[T]{Kind: TransitionBaseline, Value: v, Since: now}
	}
}

// Reset returns the tracker to baseline without emitting anything.
func (t *Tracker[T]) Reset() {
	t.state = baseline[T]{}
}

// Snapshot returns the current state.
func (t *Tracker[T]) Snapshot() TrackerSnapshot[T] {
	switch s := t.state.(type) {
	case tracking[T]:
		return TrackerSnapshot[T]{Phase: PhaseTracking, Value: s.value, HasValue: true, Since: s.since, Count: s.count}
	case alertOpen[T]:
		return TrackerSnapshot[T]{Phase: PhaseAlertOpen, Value: s.value, HasValue: true, Since: s.since, Count: s.count, AlertActive: true}
	default:
		return TrackerSnapshot[T]{Phase: PhaseBaseline}
	}
}

func (t *Tracker[T]) alertable(v T) bool {
	if t.alertWhen == nil {
		return true
	}
	return t.alertWhen(v)
}
