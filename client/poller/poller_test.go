package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/openrport/dashnotify/client/orders"
	"github.com/openrport/dashnotify/notifications"
	"github.com/openrport/dashnotify/notifications/persistence"
	"github.com/openrport/dashnotify/share/logger"
	"github.com/openrport/dashnotify/share/simplestore/kvs/inmemory"
)

type connectionMock struct {
	connected atomic.Bool
}

func (c *connectionMock) IsConnected() bool {
	return c.connected.Load()
}

type sourceMock struct {
	mu     sync.Mutex
	calls  int
	limits []int
	orders []orders.Order
	err    error
	during func()
}

func (s *sourceMock) RecentOrders(_ context.Context, limit int) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.limits = append(s.limits, limit)
	if s.during != nil {
		s.during()
	}
	return s.orders, s.err
}

func (s *sourceMock) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type PollerTestSuite struct {
	suite.Suite
	connection *connectionMock
	source     *sourceMock
	store      *persistence.Adapter
	now        time.Time

	mu      sync.Mutex
	batches [][]notifications.Notification

	poller *Poller
}

func (suite *PollerTestSuite) SetupTest() {
	suite.connection = &connectionMock{}
	suite.source = &sourceMock{}
	suite.store = persistence.NewAdapter(inmemory.NewInMemory(), logger.NewDiscardLogger())
	suite.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	suite.batches = nil

	suite.poller = New(Config{MaxAuthFailures: 3, Interval: func() time.Duration { return time.Hour }},
		suite.connection, suite.source, suite.store, suite.sink, logger.NewDiscardLogger())
	suite.poller.now = func() time.Time { return suite.now }
}

func (suite *PollerTestSuite) TearDownTest() {
	suite.poller.Stop()
}

func (suite *PollerTestSuite) sink(batch []notifications.Notification) {
	suite.mu.Lock()
	defer suite.mu.Unlock()
	suite.batches = append(suite.batches, batch)
}

func (suite *PollerTestSuite) emitted() [][]notifications.Notification {
	suite.mu.Lock()
	defer suite.mu.Unlock()
	return suite.batches
}

func (suite *PollerTestSuite) TestConnectedCycleMakesNoCalls() {
	suite.poller.Start(context.Background())
	suite.connection.connected.Store(true)

	n, err := suite.poller.Poll(context.Background())
	suite.NoError(err)
	suite.Equal(0, n)
	suite.Equal(0, suite.source.callCount())
}

func (suite *PollerTestSuite) TestFirstActivationStartsAtNow() {
	suite.source.orders = []orders.Order{{ID: "1", CreatedAt: suite.now.Add(-time.Minute)}}

	suite.poller.Start(context.Background())

	wm, found := suite.store.LoadWatermark(context.Background())
	suite.True(found)
	suite.True(suite.now.Equal(wm))

	n, err := suite.poller.Poll(context.Background())
	suite.NoError(err)
	suite.Equal(0, n, "orders from before the first activation are history")
	suite.Empty(suite.emitted())
}

func (suite *PollerTestSuite) TestEmitsOrdersAfterWatermark() {
	ctx := context.Background()
	suite.Require().NoError(suite.store.SaveWatermark(ctx, suite.now.Add(-10*time.Minute)))
	suite.poller.Start(ctx)

	suite.source.orders = []orders.Order{
		{ID: "3", CustomerName: "Ali", Amount: 50000, CreatedAt: suite.now.Add(-time.Minute)},
		{ID: "2", CreatedAt: suite.now.Add(-5 * time.Minute)},
		{ID: "1", CreatedAt: suite.now.Add(-10 * time.Minute)},
	}
	suite.now = suite.now.Add(time.Second)

	n, err := suite.poller.Poll(ctx)
	suite.NoError(err)
	suite.Equal(2, n)
	suite.Equal([]int{DefaultPageSize}, suite.source.limits)

	batches := suite.emitted()
	suite.Require().Len(batches, 1)
	suite.Equal("order-3", batches[0][0].ID)
	suite.Equal("Ali placed an order of 50,000", batches[0][0].Message)
	suite.Equal("order-2", batches[0][1].ID)

	wm, _ := suite.store.LoadWatermark(ctx)
	suite.True(suite.now.Equal(wm))
	suite.True(suite.now.Equal(suite.poller.Watermark()))

	n, err = suite.poller.Poll(ctx)
	suite.NoError(err)
	suite.Equal(0, n, "a second cycle doesn't replay the window")
}

func (suite *PollerTestSuite) TestWatermarkIsMonotonic() {
	ctx := context.Background()
	suite.poller.Start(ctx)

	prev := suite.poller.Watermark()
	for _, step := range []time.Duration{time.Second, -time.Minute, time.Hour, 0} {
		suite.now = suite.now.Add(step)
		_, err := suite.poller.Poll(ctx)
		suite.NoError(err)

		wm := suite.poller.Watermark()
		suite.False(wm.Before(prev), "watermark went back from %s to %s", prev, wm)
		suite.False(wm.After(suite.now) && wm.After(prev), "watermark ahead of the clock")
		prev = wm
	}
}

func (suite *PollerTestSuite) TestOrderCreatedDuringFetchIsFoundNextCycle() {
	ctx := context.Background()
	suite.poller.Start(ctx)
	start := suite.now

	// the order lands while the first request is in flight and is not on its page
	suite.source.during = func() { suite.now = suite.now.Add(2 * time.Second) }
	n, err := suite.poller.Poll(ctx)
	suite.NoError(err)
	suite.Equal(0, n)
	suite.True(start.Equal(suite.poller.Watermark()))

	suite.source.during = nil
	suite.source.orders = []orders.Order{{ID: "9", CreatedAt: start.Add(time.Second)}}
	n, err = suite.poller.Poll(ctx)
	suite.NoError(err)
	suite.Equal(1, n)
}

func (suite *PollerTestSuite) TestFutureWatermarkIsPulledBack() {
	ctx := context.Background()
	suite.Require().NoError(suite.store.SaveWatermark(ctx, suite.now.Add(24*time.Hour)))

	suite.poller.Start(ctx)

	suite.True(suite.now.Equal(suite.poller.Watermark()))
	wm, found := suite.store.LoadWatermark(ctx)
	suite.True(found)
	suite.True(suite.now.Equal(wm))
}

func (suite *PollerTestSuite) TestFetchErrorKeepsWatermark() {
	ctx := context.Background()
	suite.poller.Start(ctx)
	before := suite.poller.Watermark()

	suite.source.err = errors.New("connection refused")
	suite.now = suite.now.Add(time.Minute)

	_, err := suite.poller.Poll(ctx)
	suite.EqualError(err, "connection refused")
	suite.True(before.Equal(suite.poller.Watermark()))
	suite.False(suite.poller.Suspended())
}

func (suite *PollerTestSuite) TestAuthFailuresSuspendPolling() {
	ctx := context.Background()
	suite.poller.Start(ctx)
	suite.source.err = &orders.AuthError{StatusCode: 401}

	for i := 0; i < 3; i++ {
		_, err := suite.poller.Poll(ctx)
		suite.Error(err)
	}
	suite.True(suite.poller.Suspended())

	_, err := suite.poller.Poll(ctx)
	suite.NoError(err)
	suite.Equal(3, suite.source.callCount())

	suite.poller.ResumeAuth()
	suite.False(suite.poller.Suspended())
	suite.source.err = nil
	_, err = suite.poller.Poll(ctx)
	suite.NoError(err)
	suite.Equal(4, suite.source.callCount())
}

func (suite *PollerTestSuite) TestSuccessResetsAuthFailures() {
	ctx := context.Background()
	suite.poller.Start(ctx)

	for _, err := range []error{&orders.AuthError{StatusCode: 401}, &orders.AuthError{StatusCode: 401}, nil, &orders.AuthError{StatusCode: 403}} {
		suite.source.err = err
		_, _ = suite.poller.Poll(ctx)
	}
	suite.False(suite.poller.Suspended())
}

func (suite *PollerTestSuite) TestLoopRunsOnInterval() {
	p := New(Config{Interval: func() time.Duration { return 5 * time.Millisecond }},
		suite.connection, suite.source, suite.store, suite.sink, logger.NewDiscardLogger())
	p.Start(context.Background())

	suite.Eventually(func() bool { return suite.source.callCount() >= 2 }, time.Second, time.Millisecond)

	p.Stop()
	calls := suite.source.callCount()
	time.Sleep(30 * time.Millisecond)
	suite.Equal(calls, suite.source.callCount(), "no cycle after Stop")

	p.Stop()
}

func (suite *PollerTestSuite) TestStartAfterStopIsNoop() {
	p := New(Config{Interval: func() time.Duration { return time.Millisecond }},
		suite.connection, suite.source, suite.store, suite.sink, logger.NewDiscardLogger())
	p.Stop()
	p.Start(context.Background())

	time.Sleep(20 * time.Millisecond)
	suite.Equal(0, suite.source.callCount())
}

func TestPollerTestSuite(t *testing.T) {
	suite.Run(t, new(PollerTestSuite))
}
