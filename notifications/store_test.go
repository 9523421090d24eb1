package notifications_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/openrport/dashnotify/notifications"
	"github.com/openrport/dashnotify/share/logger"
)

type MockPersister struct {
	mu            sync.Mutex
	listWrites    [][]notifications.Notification
	settingWrites []notifications.Settings
	fail          bool
}

func (p *MockPersister) SaveNotifications(_ context.Context, list []notifications.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listWrites = append(p.listWrites, list)
	if p.fail {
		return errors.New("disk full")
	}
	return nil
}

func (p *MockPersister) SaveSettings(_ context.Context, settings notifications.Settings) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settingWrites = append(p.settingWrites, settings)
	if p.fail {
		return errors.New("disk full")
	}
	return nil
}

type StoreTestSuite struct {
	suite.Suite
	persister *MockPersister
	store     *notifications.Store
}

func (suite *StoreTestSuite) SetupTest() {
	suite.persister = &MockPersister{}
	suite.store = notifications.NewStore(
		notifications.NewState(nil, notifications.DefaultSettings()),
		suite.persister,
		logger.NewDiscardLogger(),
	)
}

func (suite *StoreTestSuite) TestAddPersistsOnlyOnChange() {
	ctx := context.Background()
	suite.True(suite.store.Add(ctx, order("order-1")))
	suite.False(suite.store.Add(ctx, order("order-1")))

	suite.Len(suite.persister.listWrites, 1)
	suite.Equal([]string{"order-1"}, ids(suite.persister.listWrites[0]))
}

func (suite *StoreTestSuite) TestAddBatchReturnsFresh() {
	ctx := context.Background()
	suite.store.Add(ctx, order("b"))

	fresh := suite.store.AddBatch(ctx, []notifications.Notification{order("a"), order("b")})

	suite.Equal([]string{"a"}, ids(fresh))
	suite.Equal([]string{"a", "b"}, ids(suite.store.Snapshot().Notifications))
	suite.Len(suite.persister.listWrites, 2)

	suite.Empty(suite.store.AddBatch(ctx, []notifications.Notification{order("a")}))
	suite.Len(suite.persister.listWrites, 2)
}

func (suite *StoreTestSuite) TestUserActions() {
	ctx := context.Background()
	suite.store.AddBatch(ctx, []notifications.Notification{order("a"), order("b"), order("c")})

	suite.True(suite.store.MarkRead(ctx, "a"))
	suite.False(suite.store.MarkRead(ctx, "a"))
	suite.True(suite.store.MarkAllRead(ctx))
	suite.False(suite.store.MarkAllRead(ctx))
	suite.True(suite.store.Remove(ctx, "b"))
	suite.False(suite.store.Remove(ctx, "b"))
	suite.True(suite.store.Clear(ctx))
	suite.False(suite.store.Clear(ctx))

	suite.Len(suite.persister.listWrites, 5)
	suite.Empty(suite.store.Snapshot().Notifications)
}

func (suite *StoreTestSuite) TestSettingsPersisted() {
	ctx := context.Background()
	off := false

	settings, changed := suite.store.UpdateSettings(ctx, notifications.SettingsPatch{ToastEnabled: &off})
	suite.True(changed)
	suite.False(settings.ToastEnabled)

	_, changed = suite.store.UpdateSettings(ctx, notifications.SettingsPatch{ToastEnabled: &off})
	suite.False(changed)

	suite.Len(suite.persister.settingWrites, 1)
	suite.Empty(suite.persister.listWrites)
}

func (suite *StoreTestSuite) TestSetConnectedNotPersisted() {
	suite.True(suite.store.SetConnected(true))
	suite.False(suite.store.SetConnected(true))
	suite.True(suite.store.IsConnected())
	suite.Empty(suite.persister.listWrites)
	suite.Empty(suite.persister.settingWrites)
}

func (suite *StoreTestSuite) TestPersistenceFailureKeepsState() {
	ctx := context.Background()
	suite.persister.fail = true
	suite.True(suite.store.Add(ctx, order("a")))
	suite.Equal([]string{"a"}, ids(suite.store.Snapshot().Notifications))

	suite.True(suite.store.WasEvicted("b"))
	suite.False(suite.store.Add(ctx, order("b")))
	suite.Empty(suite.store.AddBatch(ctx, []notifications.Notification{order("c")}))
	suite.Equal([]string{"a"}, ids(suite.store.Snapshot().Notifications))
}

func (suite *StoreTestSuite) TestPrune() {
	ctx := context.Background()
	suite.store.AddBatch(ctx, []notifications.Notification{order("a"), order("b"), order("c")})

	suite.True(suite.store.Prune(ctx, t0, notifications.RetentionPolicy{MaxCount: 1}))
	suite.False(suite.store.Prune(ctx, t0, notifications.RetentionPolicy{MaxCount: 1, MaxAge: time.Hour}))
	suite.Equal([]string{"a"}, ids(suite.store.Snapshot().Notifications))
}

func (suite *StoreTestSuite) TestConcurrentAddsCollapse() {
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			suite.store.Add(ctx, order("order-42"))
		}()
	}
	wg.Wait()

	suite.Equal([]string{"order-42"}, ids(suite.store.Snapshot().Notifications))
	suite.Len(suite.persister.listWrites, 1)
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
