package chclient

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/openrport/dashnotify/client/credential"
	"github.com/openrport/dashnotify/client/orders"
	"github.com/openrport/dashnotify/client/poller"
	"github.com/openrport/dashnotify/client/transport"
	"github.com/openrport/dashnotify/notifications"
	"github.com/openrport/dashnotify/notifications/channels/desktop"
	logchannel "github.com/openrport/dashnotify/notifications/channels/logger"
	"github.com/openrport/dashnotify/notifications/channels/sound"
	"github.com/openrport/dashnotify/notifications/channels/toast"
	"github.com/openrport/dashnotify/notifications/persistence"
	"github.com/openrport/dashnotify/notifications/repository/sqlite"
	"github.com/openrport/dashnotify/share/logger"
	"github.com/openrport/dashnotify/share/simplestore"
)

// Status is a point in time view of the session.
type Status struct {
	SessionID        string    `json:"session_id"`
	Connected        bool      `json:"connected"`
	GaveUp           bool      `json:"gave_up"`
	PollingSuspended bool      `json:"polling_suspended"`
	Watermark        time.Time `json:"watermark,omitempty"`
	StartedAt        time.Time `json:"started_at"`
	Unread           int       `json:"unread"`
	Channels         []string  `json:"channels"`
}

type Option func(s *Session)

// WithKVStore replaces the configured storage backend.
func WithKVStore(kv simplestore.KVStore) Option {
	return func(s *Session) { s.kv = kv }
}

func WithCredential(p credential.Provider) Option {
	return func(s *Session) { s.credential = p }
}

// WithChannels replaces the channels built from the config.
func WithChannels(channels ...notifications.Channel) Option {
	return func(s *Session) { s.channels = channels }
}

func WithOrderSource(src poller.Source) Option {
	return func(s *Session) { s.source = src }
}

// Session wires the push transport and the poller into one acceptance
// pipeline: type filter, dedup, store, persist, dispatch. It owns every
// background resource and releases all of them in Close.
type Session struct {
	id     string
	config *Config
	logger *logger.Logger
	now    func() time.Time

	kv         simplestore.KVStore
	credential credential.Provider
	channels   []notifications.Channel
	source     poller.Source

	adapter    *persistence.Adapter
	store      *notifications.Store
	dispatcher *notifications.Dispatcher
	transport  *transport.Transport
	poller     *poller.Poller
	cron       *cron.Cron
	toasts     *toast.Surface
	deliveries *sqlite.Repository
	closers    []io.Closer
	startedAt  time.Time

	ctx    context.Context
	cancel context.CancelFunc

	// acceptMu serializes the pipeline so dispatch follows acceptance order.
	acceptMu sync.Mutex
	closed   bool

	startOnce sync.Once
	closeOnce sync.Once
}

func NewSession(config *Config, l *logger.Logger, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:     uuid.New().String(),
		config: config,
		logger: l,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() string {
	return s.id
}

// Start reads the credential, restores the persisted state and launches the
// transport, the poller and the retention sweep. It does not block.
func (s *Session) Start(ctx context.Context) error {
	err := errors.New("session already started")
	s.startOnce.Do(func() {
		err = s.start(ctx)
	})
	return err
}

func (s *Session) start(ctx context.Context) error {
	s.startedAt = s.now()
	s.logger.Infof("Starting session %s", s.id)

	token, err := s.readCredential(ctx)
	if err != nil {
		return err
	}

	if s.kv == nil {
		s.kv, err = persistence.OpenKV(s.config.Storage.Driver, s.config.Client.DataDir)
		if err != nil {
			return err
		}
	}
	s.adapter = persistence.NewAdapter(s.kv, s.logger.Fork("persistence"))
	s.closers = append(s.closers, s.adapter)

	s.store = notifications.NewStore(s.adapter.Load(ctx), s.adapter, s.logger.Fork("store"))
	s.prune()

	if err := s.buildDispatcher(); err != nil {
		_ = s.closeResources()
		return err
	}

	s.transport = transport.New(transport.Config{
		URL:              s.config.Client.Server,
		Token:            token,
		Headers:          s.config.Connection.Headers(),
		RetryDelay:       s.config.Connection.RetryDelay,
		MaxRetryCount:    s.config.Connection.MaxRetryCount,
		KeepAlive:        s.config.Connection.KeepAlive,
		HandshakeTimeout: s.config.Connection.HandshakeTimeout,
	}, s.logger.Fork("transport"), s.accept, s.onConnectionState)

	if s.config.Polling.Enabled {
		if s.source == nil {
			s.source = orders.NewClient(s.config.Client.APIURL, token, s.config.Polling.Timeout)
		}
		s.poller = poller.New(poller.Config{
			PageSize:        s.config.Polling.PageSize,
			MaxAuthFailures: s.config.Polling.MaxAuthFailures,
			Interval:        s.pollingInterval,
		}, s, s.source, s.adapter, s.acceptBatch, s.logger.Fork("poller"))
	}

	if schedule := s.config.Retention.SweepSchedule; schedule != "" {
		s.cron = cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
		if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
			_ = s.closeResources()
			return errors.Wrapf(err, "invalid retention sweep schedule %q", schedule)
		}
		s.cron.Start()
	}

	s.transport.Start()
	if s.poller != nil {
		s.poller.Start(s.ctx)
	}
	return nil
}

func (s *Session) readCredential(ctx context.Context) (string, error) {
	if s.credential == nil {
		p, err := s.config.CredentialProvider()
		if err != nil {
			return "", err
		}
		s.credential = p
	}
	token, err := credential.Validate(ctx, s.credential, s.now())
	if errors.Is(err, credential.ErrExpired) {
		// the backend has the final word, the poller suspends itself on rejection
		s.logger.Errorf("Using an expired credential: %v", err)
		return s.credential.Token(ctx)
	}
	return token, err
}

func (s *Session) buildDispatcher() error {
	if s.channels == nil {
		s.channels = s.defaultChannels()
	}

	var recorder notifications.DeliveryRecorder
	if s.config.DeliveryLog.Enabled {
		repo, err := sqlite.Open(deliveryLogDSN(s.config), s.logger.Fork("delivery-log"))
		if err != nil {
			return err
		}
		s.deliveries = repo
		recorder = repo
		cleaner := sqlite.StartCleaner(s.logger.Fork("delivery-log"), repo, s.config.DeliveryLog.KeepFor, s.config.DeliveryLog.CheckEvery)
		s.closers = append(s.closers, cleaner, repo)
	}

	s.dispatcher = notifications.NewDispatcher(s.logger.Fork("dispatcher"), recorder, s.channels...)
	s.logger.Debugf("Dispatching to %v", s.dispatcher.Channels())
	return nil
}

func (s *Session) defaultChannels() []notifications.Channel {
	var channels []notifications.Channel
	if s.config.Sound.Enabled {
		c := sound.New(sound.NewExecPlayer(s.config.Sound.Player, s.config.Sound.PlayerArgs), s.config.Sound.Cue, s.logger.Fork("sound"))
		channels = append(channels, c)
		s.closers = append(s.closers, c)
	}
	if s.config.Desktop.Enabled {
		notifier := desktop.NewDBusNotifier()
		channels = append(channels, desktop.New(notifier, desktop.Options{
			AppName: s.config.Desktop.AppName,
			Icon:    s.config.Desktop.Icon,
			Timeout: desktopTimeout(s.config.Desktop.Timeout),
		}, s.logger.Fork("desktop")))
		s.closers = append(s.closers, notifier)
	}
	if s.config.Toast.Enabled {
		s.toasts = toast.NewSurface(s.config.Toast.TTL)
		channels = append(channels, toast.New(s.toasts))
	}
	if s.config.DeliveryLog.LogChannel {
		channels = append(channels, logchannel.NewLogChannel(s.logger.Fork("notifications")))
	}
	return channels
}

func desktopTimeout(d time.Duration) int32 {
	if d <= 0 {
		return -1
	}
	return int32(d.Milliseconds())
}

func deliveryLogDSN(c *Config) string {
	if c.Client.DataDir == "" {
		return ":memory:"
	}
	return c.Client.DataDir + "/deliveries.db"
}

func (s *Session) pollingInterval() time.Duration {
	ms := s.store.Settings().PollingIntervalMs
	if ms < notifications.MinPollingIntervalMs {
		ms = notifications.MinPollingIntervalMs
	}
	return time.Duration(ms) * time.Millisecond
}

func (s *Session) onConnectionState(connected bool) {
	if s.store.SetConnected(connected) {
		s.logger.Infof("Connection state: %s", logger.FormatConnectionState(connected, nil))
	}
	if connected && s.poller != nil {
		s.poller.ResumeAuth()
	}
}

func (s *Session) accept(n notifications.Notification) {
	s.acceptBatch([]notifications.Notification{n})
}

// acceptBatch is the single entry point for inbound notifications of both
// sources. Disabled types are dropped, known ids are ignored, and only the
// newly stored entries reach the channels.
func (s *Session) acceptBatch(batch []notifications.Notification) {
	s.acceptMu.Lock()
	defer s.acceptMu.Unlock()
	if s.closed {
		return
	}

	settings := s.store.Settings()
	policy := s.config.Retention.Policy()
	now := s.now()
	filtered := make([]notifications.Notification, 0, len(batch))
	for _, n := range batch {
		if !settings.TypeEnabled(n.Type) {
			s.logger.Debugf("Dropping %s, type %s is disabled", n.ID, n.Type)
			continue
		}
		if policy.Expired(now, n) {
			s.logger.Debugf("Dropping %s, created %s is past retention", n.ID, n.CreatedAt.Format(time.RFC3339))
			continue
		}
		filtered = append(filtered, n)
	}

	fresh := s.store.AddBatch(s.ctx, filtered)
	if len(fresh) == 0 {
		return
	}
	s.prune()

	for _, n := range fresh {
		s.dispatcher.Dispatch(s.ctx, n, settings)
	}
}

func (s *Session) prune() {
	if s.store.Prune(s.ctx, s.now(), s.config.Retention.Policy()) {
		s.logger.Debugf("Retention policy removed old notifications")
	}
}

func (s *Session) sweep() {
	s.acceptMu.Lock()
	defer s.acceptMu.Unlock()
	if s.closed {
		return
	}
	s.prune()
}

// IsConnected reports the push connection state, the poller only runs while it is false.
func (s *Session) IsConnected() bool {
	return s.store != nil && s.store.IsConnected()
}

func (s *Session) Status() Status {
	st := Status{
		SessionID: s.id,
		StartedAt: s.startedAt,
		Connected: s.IsConnected(),
	}
	if s.transport != nil {
		st.GaveUp = s.transport.GaveUp()
	}
	if s.poller != nil {
		st.PollingSuspended = s.poller.Suspended()
		st.Watermark = s.poller.Watermark()
	}
	if s.store != nil {
		st.Unread = s.store.Snapshot().UnreadCount()
	}
	if s.dispatcher != nil {
		st.Channels = s.dispatcher.Channels()
	}
	return st
}

func (s *Session) Notifications() []notifications.Notification {
	return s.store.Snapshot().Notifications
}

func (s *Session) UnreadCount() int {
	return s.store.Snapshot().UnreadCount()
}

func (s *Session) Settings() notifications.Settings {
	return s.store.Settings()
}

func (s *Session) MarkRead(ctx context.Context, id string) bool {
	return s.store.MarkRead(ctx, id)
}

func (s *Session) MarkAllRead(ctx context.Context) bool {
	return s.store.MarkAllRead(ctx)
}

func (s *Session) Remove(ctx context.Context, id string) bool {
	return s.store.Remove(ctx, id)
}

func (s *Session) Clear(ctx context.Context) bool {
	return s.store.Clear(ctx)
}

func (s *Session) UpdateSettings(ctx context.Context, patch notifications.SettingsPatch) notifications.Settings {
	settings, _ := s.store.UpdateSettings(ctx, patch)
	return settings
}

// Toasts returns the toasts on screen, nil when the toast channel is off.
func (s *Session) Toasts() []toast.Toast {
	if s.toasts == nil {
		return nil
	}
	return s.toasts.Active()
}

// DismissToast hides a toast before it expires.
func (s *Session) DismissToast(id string) {
	if s.toasts != nil {
		s.toasts.Dismiss(id)
	}
}

// Deliveries returns the recorded channel outcomes of one notification.
func (s *Session) Deliveries(ctx context.Context, id string) ([]notifications.Delivery, error) {
	if s.deliveries == nil {
		return nil, nil
	}
	return s.deliveries.List(ctx, id)
}

// Close stops the poller and the transport first, so no timer fires and no
// connection callback runs once it returns. Then every other resource is
// released. Safe to call more than once.
func (s *Session) Close() error {
	var result error
	s.closeOnce.Do(func() {
		if s.poller != nil {
			s.poller.Stop()
		}
		if s.transport != nil {
			if err := s.transport.Close(); err != nil {
				result = multierror.Append(result, errors.Wrap(err, "closing transport"))
			}
		}
		if s.cron != nil {
			<-s.cron.Stop().Done()
		}

		s.acceptMu.Lock()
		s.closed = true
		s.acceptMu.Unlock()
		s.cancel()

		if err := s.closeResources(); err != nil {
			result = multierror.Append(result, err)
		}
		s.logger.Infof("Session %s closed", s.id)
	})
	return result
}

func (s *Session) closeResources() error {
	var result error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	s.closers = nil
	return result
}
