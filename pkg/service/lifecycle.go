package service

import (
	"context"
	"fmt"

	"github.com/qmuntal/stateless"
	"github.com/sirupsen/logrus"

	"github.com/equipviz/equipviz/pkg/contract"
)

type uploadState string

const (
	stateReceived   uploadState = "Received"
	stateValidated  uploadState = "Validated"
	stateAggregated uploadState = "Aggregated"
	statePersisted  uploadState = "Persisted"
	stateRejected   uploadState = "Rejected"
)

type uploadTrigger string

const (
	triggerValidate  uploadTrigger = "validate"
	triggerAggregate uploadTrigger = "aggregate"
	triggerPersist   uploadTrigger = "persist"
	triggerReject    uploadTrigger = "reject"
)

// uploadLifecycle tracks one upload: Received -> Validated -> Aggregated -> Persisted,
// or Rejected from any non-terminal step.
type uploadLifecycle struct {
	machine *stateless.StateMachine
	entry   *logrus.Entry
}

func newUploadLifecycle(entry *logrus.Entry) *uploadLifecycle {
	machine := stateless.NewStateMachine(stateReceived)

	machine.Configure(stateReceived).
		Permit(triggerValidate, stateValidated).
		Permit(triggerReject, stateRejected)
	machine.Configure(stateValidated).
		Permit(triggerAggregate, stateAggregated).
		Permit(triggerReject, stateRejected)
	machine.Configure(stateAggregated).
		Permit(triggerPersist, statePersisted).
		Permit(triggerReject, stateRejected)

	machine.OnTransitioned(func(_ context.Context, transition stateless.Transition) {
		entry.Debugf("upload %v -> %v", transition.Source, transition.Destination)
	})

	return &uploadLifecycle{machine: machine, entry: entry}
}

func (l *uploadLifecycle) advance(ctx context.Context, trigger uploadTrigger) *contract.Error {
	if err := l.machine.FireCtx(ctx, trigger); err != nil {
		return contract.NewErrorWith(
			contract.ErrorCode_INTERNAL_ERROR,
			fmt.Sprintf("upload cannot %s from state %v", trigger, l.state()),
			err,
		)
	}

	return nil
}

// reject moves the upload to Rejected and hands back the error that caused it.
func (l *uploadLifecycle) reject(ctx context.Context, cause *contract.Error) *contract.Error {
	if err := l.machine.FireCtx(ctx, triggerReject); err != nil {
		l.entry.WithError(err).Warn("upload could not be marked as rejected")
	}

	var fn func(args ...interface{})
	if cause.IsInternal() {
		fn = l.entry.WithError(cause).Error
	} else {
		fn = l.entry.WithError(cause).Info
	}
	fn("upload rejected")

	return cause
}

func (l *uploadLifecycle) state() uploadState {
	state, ok := l.machine.MustState().(uploadState)
	if !ok {
		return stateRejected
	}

	return state
}
