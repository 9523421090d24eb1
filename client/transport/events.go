package transport

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/openrport/dashnotify/client/orders"
	"github.com/openrport/dashnotify/notifications"
)

const (
	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
)

// Event is one inbound frame. It is one of OrderCreated, OrderUpdated or UnknownEvent.
type Event interface {
	EventName() string
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type createdPayload struct {
	DomainID     orders.ID `json:"domainId"`
	Customer     string    `json:"customer"`
	CustomerName string    `json:"customerName"`
	TotalAmount  float64   `json:"totalAmount"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

type updatedPayload struct {
	DomainID     orders.ID `json:"domainId"`
	Customer     string    `json:"customer"`
	CustomerName string    `json:"customerName"`
	TotalAmount  float64   `json:"totalAmount"`
	Status       string    `json:"status"`
}

type OrderCreated struct {
	Order orders.Order
}

func (OrderCreated) EventName() string { return EventOrderCreated }

type OrderUpdated struct {
	Order orders.Order
}

func (OrderUpdated) EventName() string { return EventOrderUpdated }

// UnknownEvent is any frame with an event name this client doesn't handle.
type UnknownEvent struct {
	Name string
	Data json.RawMessage
}

func (e UnknownEvent) EventName() string { return e.Name }

func DecodeEvent(data []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "invalid frame")
	}

	switch f.Event {
	case EventOrderCreated:
		var p createdPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			return nil, errors.Wrapf(err, "invalid %s payload", f.Event)
		}
		if p.DomainID == "" {
			return nil, errors.Errorf("%s without domainId", f.Event)
		}
		return OrderCreated{Order: orders.Order{
			ID:           p.DomainID,
			Customer:     p.Customer,
			CustomerName: p.CustomerName,
			Amount:       p.TotalAmount,
			Status:       p.Status,
			CreatedAt:    p.CreatedAt,
		}}, nil
	case EventOrderUpdated:
		var p updatedPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			return nil, errors.Wrapf(err, "invalid %s payload", f.Event)
		}
		if p.DomainID == "" {
			return nil, errors.Errorf("%s without domainId", f.Event)
		}
		return OrderUpdated{Order: orders.Order{
			ID:           p.DomainID,
			Customer:     p.Customer,
			CustomerName: p.CustomerName,
			Amount:       p.TotalAmount,
			Status:       p.Status,
		}}, nil
	default:
		return UnknownEvent{Name: f.Event, Data: f.Data}, nil
	}
}

// ToNotification adapts an event into its notification. Unknown events yield false.
func ToNotification(ev Event, receivedAt time.Time) (notifications.Notification, bool) {
	switch e := ev.(type) {
	case OrderCreated:
		return orders.CreatedNotification(e.Order, receivedAt), true
	case OrderUpdated:
		return orders.UpdatedNotification(e.Order, receivedAt), true
	case UnknownEvent:
		return notifications.Notification{}, false
	default:
		return notifications.Notification{}, false
	}
}
