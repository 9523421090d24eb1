// Package toast shows transient in-app messages for delivered notifications.
package toast

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/openrport/dashnotify/notifications"
)

const Name = "toast"

const DefaultTTL = 5 * time.Second

type Variant string

const (
	VariantDefault Variant = "default"
	VariantInfo    Variant = "info"
	VariantSuccess Variant = "success"
	VariantWarning Variant = "warning"
	VariantError   Variant = "error"
)

var orderStatusVariants = map[string]Variant{
	"pending":    VariantWarning,
	"new":        VariantWarning,
	"accepted":   VariantInfo,
	"confirmed":  VariantInfo,
	"preparing":  VariantInfo,
	"processing": VariantInfo,
	"ready":      VariantSuccess,
	"shipped":    VariantSuccess,
	"delivered":  VariantSuccess,
	"completed":  VariantSuccess,
	"cancelled":  VariantError,
	"canceled":   VariantError,
	"rejected":   VariantError,
	"failed":     VariantError,
}

// VariantFor picks the visual style of a toast. Orders are styled by status,
// complaints are warnings, any other high priority notification is an error.
func VariantFor(n notifications.Notification) Variant {
	switch {
	case n.Type == notifications.TypeOrder:
		if v, ok := orderStatusVariants[strings.ToLower(n.DataString("status"))]; ok {
			return v
		}
		return VariantInfo
	case n.Type == notifications.TypeComplaint:
		return VariantWarning
	case n.Priority == notifications.PriorityHigh:
		return VariantError
	default:
		return VariantDefault
	}
}

type Toast struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Variant   Variant   `json:"variant"`
	ShownAt   time.Time `json:"shownAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Surface holds the toasts currently on screen. Toasts vanish after their TTL.
type Surface struct {
	cache *cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewSurface(ttl time.Duration) *Surface {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Surface{
		cache: cache.New(ttl, 2*ttl),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (s *Surface) Push(t Toast) {
	t.ShownAt = s.now()
	t.ExpiresAt = t.ShownAt.Add(s.ttl)
	s.cache.Set(t.ID, t, s.ttl)
}

func (s *Surface) Dismiss(id string) {
	s.cache.Delete(id)
}

// Active returns the visible toasts, newest first.
func (s *Surface) Active() []Toast {
	items := s.cache.Items()
	out := make([]Toast, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(Toast))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ShownAt.Equal(out[j].ShownAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ShownAt.After(out[j].ShownAt)
	})
	return out
}

type Channel struct {
	surface *Surface
}

func New(surface *Surface) *Channel {
	return &Channel{surface: surface}
}

func (c *Channel) Name() string {
	return Name
}

func (c *Channel) Deliver(_ context.Context, n notifications.Notification, settings notifications.Settings) (bool, error) {
	if !settings.ToastEnabled {
		return false, nil
	}
	c.surface.Push(Toast{
		ID:      n.ID,
		Title:   n.Title,
		Message: n.Message,
		Variant: VariantFor(n),
	})
	return true, nil
}
