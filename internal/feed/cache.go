package feed

import (
	"context"
	"sync"

	"github.com/gofrs/uuid/v5"
	"github.com/sirupsen/logrus"
)

// Producer runs one feed pipeline until ctx is done, handing every Feed State to publish.
type Producer interface {
	Run(ctx context.Context, publish func(FeedState))
}

// SharedFeedCache multicasts one producer to any number of subscribers. The
// producer runs while at least one subscription is open; new subscribers get the
// latest state straight away.
type SharedFeedCache struct {
	producer Producer
	logger   *logrus.Logger

	mu          sync.Mutex
	subscribers map[uuid.UUID]*Subscription
	latest      *FeedState
	epoch       uint64
	cancel      context.CancelFunc
}

func NewSharedFeedCache(producer Producer, logger *logrus.Logger) *SharedFeedCache {
	return &SharedFeedCache{
		producer:    producer,
		logger:      logger,
		subscribers: make(map[uuid.UUID]*Subscription),
	}
}

// Subscription is one observer of the feed. Updates holds at most the newest
// undelivered state; it is closed by Close.
type Subscription struct {
	ID uuid.UUID

	cache     *SharedFeedCache
	updates   chan FeedState
	closeOnce sync.Once
}

func (s *Subscription) Updates() <-chan FeedState {
	return s.updates
}

// Close ends the subscription. Closing the last one tears the pipeline down.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.cache.unsubscribe(s)
	})
}

// offer replaces any undelivered state with state. Callers hold the cache lock,
// so the send never blocks.
func (s *Subscription) offer(state FeedState) {
	select {
	case <-s.updates:
	default:
	}
	s.updates <- state
}

// Subscribe registers a new observer, starting the pipeline if it is the first.
func (c *SharedFeedCache) Subscribe() *Subscription {
	sub := &Subscription{
		ID:      uuid.Must(uuid.NewV4()),
		cache:   c,
		updates: make(chan FeedState, 1),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.subscribers[sub.ID] = sub
	if c.latest != nil {
		sub.offer(*c.latest)
	}
	if len(c.subscribers) == 1 {
		c.activate()
	}

	c.logger.WithFields(logrus.Fields{
		"subscription": sub.ID.String(),
		"observers":    len(c.subscribers),
	}).Debug("SharedFeedCache.Subscribe")
	return sub
}

// Observers returns the number of open subscriptions.
func (c *SharedFeedCache) Observers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subscribers)
}

// Latest returns the most recent state of the active pipeline, if any.
func (c *SharedFeedCache) Latest() (FeedState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == nil {
		return FeedState{}, false
	}
	return *c.latest, true
}

func (c *SharedFeedCache) activate() {
	ctx, cancel := context.WithCancel(context.Background())
	c.epoch++
	c.cancel = cancel

	epoch := c.epoch
	go c.producer.Run(ctx, func(state FeedState) {
		c.publish(epoch, state)
	})
	c.logger.WithField("epoch", epoch).Info("SharedFeedCache.Pipeline.Started")
}

func (c *SharedFeedCache) publish(epoch uint64, state FeedState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Late states from a torn-down pipeline are dropped.
	if epoch != c.epoch || c.cancel == nil {
		return
	}

	c.latest = &state
	for _, sub := range c.subscribers {
		sub.offer(state)
	}
}

func (c *SharedFeedCache) unsubscribe(sub *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.subscribers[sub.ID]; !ok {
		return
	}
	delete(c.subscribers, sub.ID)
	close(sub.updates)

	c.logger.WithFields(logrus.Fields{
		"subscription": sub.ID.String(),
		"observers":    len(c.subscribers),
	}).Debug("SharedFeedCache.Unsubscribe")

	if len(c.subscribers) == 0 && c.cancel != nil {
		c.cancel()
		c.cancel = nil
		c.latest = nil
		c.logger.WithField("epoch", c.epoch).Info("SharedFeedCache.Pipeline.Stopped")
	}
}
