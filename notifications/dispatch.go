package notifications

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openrport/dashnotify/share/logger"
)

// Channel is one presentation surface. Deliver returns delivered=false with a
// nil error when the channel is disabled or otherwise chose not to act.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, n Notification, settings Settings) (delivered bool, err error)
}

type DeliveryState string

const (
	DeliveryStateDone    DeliveryState = "done"
	DeliveryStateSkipped DeliveryState = "skipped"
	DeliveryStateError   DeliveryState = "error"
)

type Delivery struct {
	NotificationID string        `db:"notification_id" json:"notificationId"`
	Channel        string        `db:"channel" json:"channel"`
	State          DeliveryState `db:"state" json:"state"`
	Out            string        `db:"out" json:"out,omitempty"`
	Timestamp      time.Time     `db:"timestamp" json:"timestamp"`
}

// DeliveryRecorder keeps a log of channel outcomes.
type DeliveryRecorder interface {
	Record(ctx context.Context, d Delivery) error
}

// Dispatcher fans a newly accepted notification out to every channel.
// Channels run concurrently and are isolated from each other: an error or a
// panic in one of them is logged and recorded, the others still run.
type Dispatcher struct {
	channels []Channel
	recorder DeliveryRecorder
	logger   *logger.Logger
	now      func() time.Time
}

func NewDispatcher(l *logger.Logger, recorder DeliveryRecorder, channels ...Channel) *Dispatcher {
	return &Dispatcher{
		channels: channels,
		recorder: recorder,
		logger:   l,
		now:      time.Now,
	}
}

func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.channels))
	for _, c := range d.channels {
		names = append(names, c.Name())
	}
	return names
}

// Dispatch blocks until every channel finished with n. Results are returned
// in channel registration order.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification, settings Settings) []Delivery {
	results := make([]Delivery, len(d.channels))

	var g errgroup.Group
	for i, c := range d.channels {
		i, c := i, c
		g.Go(func() error {
			results[i] = d.deliver(ctx, c, n, settings)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if d.recorder == nil {
			break
		}
		if err := d.recorder.Record(ctx, r); err != nil {
			d.logger.Errorf("failed recording delivery of %s via %s: %v", r.NotificationID, r.Channel, err)
		}
	}
	return results
}

func (d *Dispatcher) deliver(ctx context.Context, c Channel, n Notification, settings Settings) (res Delivery) {
	res = Delivery{NotificationID: n.ID, Channel: c.Name()}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Errorf("channel %s panicked on %s: %v\n%s", c.Name(), n.ID, r, debug.Stack())
			res.State = DeliveryStateError
			res.Out = fmt.Sprintf("panic: %v", r)
		}
		res.Timestamp = d.now()
	}()

	delivered, err := c.Deliver(ctx, n, settings)
	switch {
	case err != nil:
		d.logger.Errorf("channel %s failed on %s: %v", c.Name(), n.ID, err)
		res.State = DeliveryStateError
		res.Out = err.Error()
	case delivered:
		d.logger.Debugf("channel %s delivered %s", c.Name(), n.ID)
		res.State = DeliveryStateDone
	default:
		res.State = DeliveryStateSkipped
	}
	return res
}
