// Package sound plays an audible cue for every delivered notification.
package sound

import (
	"context"
	"errors"
	"sync"

	"github.com/openrport/dashnotify/notifications"
	"github.com/openrport/dashnotify/share/logger"
)

const Name = "sound"

// Channel plays one fixed cue. A new notification cancels the cue that is
// still playing and starts it again from the beginning. Playback failures are
// logged and never reported to the dispatcher.
type Channel struct {
	player Player
	cue    string
	logger *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	playing chan struct{}
}

func New(player Player, cue string, l *logger.Logger) *Channel {
	return &Channel{player: player, cue: cue, logger: l}
}

func (c *Channel) Name() string {
	return Name
}

func (c *Channel) Deliver(_ context.Context, n notifications.Notification, settings notifications.Settings) (bool, error) {
	if !settings.SoundEnabled || c.cue == "" {
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	playing := make(chan struct{})
	c.cancel = cancel
	c.playing = playing

	volume := settings.SoundVolume
	go func() {
		defer close(playing)
		err := c.player.Play(ctx, c.cue, volume)
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Debugf("cue for %s not played: %v", n.ID, err)
		}
	}()
	return true, nil
}

// Close stops the running cue, if any.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	return nil
}

func (c *Channel) stopLocked() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.playing
	c.cancel = nil
	c.playing = nil
}
