package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"hrm-attendance/internal/model"
)

// Notifier receives attendance events after a successful write.
type Notifier interface {
	Notify(ctx context.Context, ev model.AttendanceEvent) error
}

// Publisher fans events out to notifiers. Delivery is best effort: a failing
// notifier is logged and never fails the request that produced the event.
type Publisher struct {
	notifiers []Notifier
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewPublisher(log logrus.FieldLogger, notifiers ...Notifier) *Publisher {
	return &Publisher{notifiers: notifiers, log: log, now: time.Now}
}

func (p *Publisher) Publish(ctx context.Context, typ model.AttendanceEventType, record *model.AttendanceRecord) {
	if p == nil || record == nil {
		return
	}
	ev := model.AttendanceEvent{Type: typ, Record: record, At: p.now()}
	for _, n := range p.notifiers {
		if err := n.Notify(ctx, ev); err != nil {
			p.log.WithError(err).WithFields(logrus.Fields{
				"event":       typ,
				"employee_id": record.EmployeeID,
			}).Warn("Failed to deliver attendance event")
		}
	}
}
