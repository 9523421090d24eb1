// Package orders maps merchant orders onto notifications and fetches recent
// orders from the dashboard API.
package orders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/openrport/dashnotify/notifications"
)

// ID is an order id as sent by the backend, either a JSON string or number.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("order id must be a string or a number: %s", data)
	}
	*id = ID(n.String())
	return nil
}

type Order struct {
	ID           ID
	Customer     string
	CustomerName string
	Amount       float64
	Status       string
	CreatedAt    time.Time
}

var printer = message.NewPrinter(language.English)

// FormatAmount renders amount with thousands separators, 50000 as "50,000".
// Fractions are kept with two decimals.
func FormatAmount(amount float64) string {
	if amount == math.Trunc(amount) {
		return printer.Sprintf("%d", int64(amount))
	}
	return printer.Sprintf("%.2f", amount)
}

// CreatedID is the notification id of an order creation. Polled orders map
// onto the same id, so an order seen by both sources collapses into one entry.
func CreatedID(id ID) string {
	return "order-" + string(id)
}

// UpdatedID is distinct for every update so successive status changes of one
// order each surface as their own entry.
func UpdatedID(id ID, at time.Time) string {
	return "order-update-" + string(id) + "-" + strconv.FormatInt(at.UnixMilli(), 10)
}

func (o Order) customerLabel() string {
	switch {
	case o.CustomerName != "":
		return o.CustomerName
	case o.Customer != "":
		return o.Customer
	default:
		return "A customer"
	}
}

func (o Order) data() map[string]any {
	data := map[string]any{
		"amount": o.Amount,
	}
	if o.Status != "" {
		data["status"] = o.Status
	}
	if o.CustomerName != "" {
		data["customerName"] = o.CustomerName
	}
	if o.Customer != "" {
		data["customer"] = o.Customer
	}
	return data
}

// CreatedNotification builds the notification for a new order. receivedAt is
// used when the order carries no creation time.
func CreatedNotification(o Order, receivedAt time.Time) notifications.Notification {
	createdAt := o.CreatedAt
	if createdAt.IsZero() {
		createdAt = receivedAt
	}
	return notifications.Notification{
		ID:        CreatedID(o.ID),
		Type:      notifications.TypeOrder,
		Title:     fmt.Sprintf("New order #%s", o.ID),
		Message:   fmt.Sprintf("%s placed an order of %s", o.customerLabel(), FormatAmount(o.Amount)),
		CreatedAt: createdAt,
		Unread:    true,
		Priority:  notifications.PriorityHigh,
		OrderID:   string(o.ID),
		Data:      o.data(),
	}
}

func UpdatedNotification(o Order, receivedAt time.Time) notifications.Notification {
	msg := fmt.Sprintf("Order #%s was updated", o.ID)
	if o.Status != "" {
		msg = fmt.Sprintf("Order #%s is now %s", o.ID, o.Status)
	}
	return notifications.Notification{
		ID:        UpdatedID(o.ID, receivedAt),
		Type:      notifications.TypeOrder,
		Title:     "Order updated",
		Message:   msg,
		CreatedAt: receivedAt,
		Unread:    true,
		Priority:  notifications.PriorityMedium,
		OrderID:   string(o.ID),
		Data:      o.data(),
	}
}
