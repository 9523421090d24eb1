package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/openrport/dashnotify/notifications"
	"github.com/openrport/dashnotify/notifications/repository/sqlite"
)

type CleanerTestSuite struct {
	suite.Suite
	repository *sqlite.Repository
}

func (suite *CleanerTestSuite) SetupTest() {
	var err error
	suite.repository, err = sqlite.Open(":memory:", testLog)
	suite.Require().NoError(err)
}

func (suite *CleanerTestSuite) TearDownTest() {
	suite.NoError(suite.repository.Close())
}

func (suite *CleanerTestSuite) record(id string, at time.Time) {
	suite.Require().NoError(suite.repository.Record(context.Background(), notifications.Delivery{
		NotificationID: id,
		Channel:        "toast",
		State:          notifications.DeliveryStateDone,
		Timestamp:      at,
	}))
}

func (suite *CleanerTestSuite) expectDeliveries(id string, count int) {
	all, err := suite.repository.List(context.Background(), id)
	suite.NoError(err)
	suite.Len(all, count)
}

func (suite *CleanerTestSuite) TestCleansNothingWhenEverythingIsFresh() {
	suite.record("order-1", time.Now())

	c := sqlite.StartCleaner(testLog, suite.repository, time.Hour, time.Hour)
	suite.NoError(c.Close())

	suite.expectDeliveries("order-1", 1)
}

func (suite *CleanerTestSuite) TestCleansOldEntriesOnStart() {
	suite.record("order-old", time.Now().Add(-2*time.Hour))
	suite.record("order-new", time.Now())

	c := sqlite.StartCleaner(testLog, suite.repository, time.Hour, time.Hour)
	defer c.Close()

	suite.Eventually(func() bool {
		all, err := suite.repository.List(context.Background(), "order-old")
		return err == nil && len(all) == 0
	}, time.Second, 10*time.Millisecond)
	suite.expectDeliveries("order-new", 1)
}

func (suite *CleanerTestSuite) TestCloseIsIdempotent() {
	c := sqlite.StartCleaner(testLog, suite.repository, time.Hour, time.Millisecond)
	suite.NoError(c.Close())
	suite.NoError(c.Close())

	suite.record("order-old", time.Now().Add(-2*time.Hour))
	time.Sleep(20 * time.Millisecond)
	suite.expectDeliveries("order-old", 1)
}

func TestCleanerTestSuite(t *testing.T) {
	suite.Run(t, new(CleanerTestSuite))
}
