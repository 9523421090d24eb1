package sqlite

import (
	"context"
	"sync"
	"time"

	"github.com/openrport/dashnotify/share/logger"
)

type Cleaner struct {
	closer    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	logger    *logger.Logger
	keepFor   time.Duration
	repo      *Repository
}

// StartCleaner removes log entries older than keepFor, once right away and
// then every checkEvery, until closed.
func StartCleaner(l *logger.Logger, r *Repository, keepFor time.Duration, checkEvery time.Duration) *Cleaner {
	c := &Cleaner{
		closer:  make(chan struct{}),
		done:    make(chan struct{}),
		logger:  l,
		keepFor: keepFor,
		repo:    r,
	}
	l.Debugf("started delivery log cleaner, keeping %s", keepFor)
	go func() {
		defer close(c.done)
		c.cleanOld()
		for {
			select {
			case <-time.After(checkEvery):
				c.cleanOld()
			case <-c.closer:
				l.Debugf("closed delivery log cleaner")
				return
			}
		}
	}()

	return c
}

// Close stops the cleaner and waits for a running sweep to finish.
func (c *Cleaner) Close() error {
	c.closeOnce.Do(func() {
		close(c.closer)
	})
	<-c.done
	return nil
}

func (c *Cleaner) cleanOld() {
	before := time.Now().Add(-c.keepFor)
	n, err := c.repo.deleteBefore(context.Background(), before)
	if err != nil {
		c.logger.Errorf("cleaning delivery log failed: %v", err)
		return
	}
	if n > 0 {
		c.logger.Debugf("removed %d delivery log entries older than %s", n, before.UTC().Format(timestampFormat))
	}
}
