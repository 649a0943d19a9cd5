package agent

import (
	"context"
	"errors"

	"github.com/looplab/fsm"

	"optix.io/optix/internal/agent/metrics"
	fsmutil "optix.io/optix/internal/pkg/util/fsm"
	"optix.io/optix/pkg/log"
)

// Subsystem phases.
const (
	PhaseDown     = "down"
	PhaseStarting = "starting"
	PhaseUp       = "up"
)

const (
	// EventStart (Down -> Starting) begins bringing the subsystem up.
	EventStart = "start"
	// EventReady (Starting -> Up)
	EventReady = "ready"
	// EventFail (Starting -> Down) records a failed start; the next cycle retries.
	EventFail = "fail"
	// EventStop (Up|Starting -> Down)
	EventStop = "stop"
)

// Lifecycle tracks one supervised subsystem.
type Lifecycle struct {
	*fsm.FSM

	name    string
	metrics *metrics.Metrics
	logger  log.Logger
}

func NewLifecycle(name string, m *metrics.Metrics) *Lifecycle {
	l := &Lifecycle{
		name:    name,
		metrics: m,
		logger:  log.WithName("lifecycle").WithValues("subsystem", name),
	}

	events := fsm.Events{
		{Name: EventStart, Src: []string{PhaseDown}, Dst: PhaseStarting},
		{Name: EventReady, Src: []string{PhaseStarting}, Dst: PhaseUp},
		{Name: EventFail, Src: []string{PhaseStarting}, Dst: PhaseDown},
		{Name: EventStop, Src: []string{PhaseUp, PhaseStarting}, Dst: PhaseDown},
	}

	callbacks := fsm.Callbacks{
		"enter_state": fsmutil.WrapEvent(l.ActionEnterState),
	}

	l.FSM = fsm.NewFSM(PhaseDown, events, callbacks)
	l.metrics.SetUp(name, false)
	return l
}

// ActionEnterState logs the transition and mirrors Up into the metrics.
func (l *Lifecycle) ActionEnterState(_ context.Context, e *fsm.Event) error {
	l.logger.Info("Subsystem transition", "event", e.Event, "from", e.Src, "to", e.Dst)
	l.metrics.SetUp(l.name, e.Dst == PhaseUp)
	return nil
}

func (l *Lifecycle) Up() bool { return l.Is(PhaseUp) }

// Fire triggers event. Events not valid in the current phase are ignored.
func (l *Lifecycle) Fire(ctx context.Context, event string) error {
	err := l.Event(ctx, event)
	if isFsmRealError(err) {
		return err
	}
	return nil
}

func isFsmRealError(err error) bool {
	if err == nil {
		return false
	}

	var noTransition fsm.NoTransitionError
	var invalid fsm.InvalidEventError
	var canceled fsm.CanceledError

	return !errors.As(err, &noTransition) && !errors.As(err, &invalid) && !errors.As(err, &canceled)
}
