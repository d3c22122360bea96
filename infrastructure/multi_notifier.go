package infrastructure

import (
	"context"
	"errors"

	"squares/domain/entities"
	"squares/domain/interfaces"
)

// MultiNotifier sends each alert to every configured channel. One failing
// channel does not keep the alert from the others.
type MultiNotifier struct {
	notifiers []interfaces.Notifier
}

// NewMultiNotifier creates a fan-out notifier; nil entries are skipped
func NewMultiNotifier(notifiers ...interfaces.Notifier) *MultiNotifier {
	m := &MultiNotifier{}
	for _, notifier := range notifiers {
		if notifier != nil {
			m.notifiers = append(m.notifiers, notifier)
		}
	}
	return m
}

// Len returns the number of channels alerts go to
func (m *MultiNotifier) Len() int {
	return len(m.notifiers)
}

// NotifyOperator returns the joined errors of every channel that failed
func (m *MultiNotifier) NotifyOperator(ctx context.Context, alert entities.OperatorAlert) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.NotifyOperator(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
