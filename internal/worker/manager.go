package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"socialmedia_api/internal/logging"
	"socialmedia_api/internal/queue"
)

const (
	DefaultWorkerCount = 2

	// DefaultBatchSize is the number of messages to read per batch
	DefaultBatchSize = 10

	// DefaultBlockTimeout is how long to block waiting for new messages
	DefaultBlockTimeout = 5 * time.Second

	// DefaultCleanupInterval is how often expired refresh tokens are purged
	DefaultCleanupInterval = time.Hour

	// expiredTokenRetention keeps expired tokens around briefly for reuse detection
	expiredTokenRetention = 24 * time.Hour
)

// TokenCleaner purges expired refresh tokens.
type TokenCleaner interface {
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Manager orchestrates worker goroutines that consume from the activity
// stream, plus a periodic cleanup loop.
type Manager struct {
	consumer    queue.Consumer
	handler     *Handler
	cleaner     TokenCleaner
	workerCount int
	batchSize   int64
	blockTime   time.Duration
	cleanupTick time.Duration

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

type ManagerConfig struct {
	WorkerCount     int
	BatchSize       int64
	BlockTimeout    time.Duration
	CleanupInterval time.Duration
}

func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		WorkerCount:     DefaultWorkerCount,
		BatchSize:       DefaultBatchSize,
		BlockTimeout:    DefaultBlockTimeout,
		CleanupInterval: DefaultCleanupInterval,
	}
}

// NewManager creates a worker manager. cleaner may be nil.
func NewManager(consumer queue.Consumer, handler *Handler, cleaner TokenCleaner, cfg ManagerConfig) *Manager {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultWorkerCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = DefaultBlockTimeout
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}

	return &Manager{
		consumer:    consumer,
		handler:     handler,
		cleaner:     cleaner,
		workerCount: cfg.WorkerCount,
		batchSize:   cfg.BatchSize,
		blockTime:   cfg.BlockTimeout,
		cleanupTick: cfg.CleanupInterval,
	}
}

// Start launches the workers. Call Stop to shut them down.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	if err := m.consumer.EnsureGroup(m.ctx, queue.StreamActivity, queue.ConsumerGroupActivity); err != nil {
		return err
	}

	for i := 0; i < m.workerCount; i++ {
		workerID := i + 1
		m.wg.Add(1)
		go m.runWorker(workerID, consumerNameForWorker(workerID))
	}

	if m.cleaner != nil {
		m.wg.Add(1)
		go m.runCleanup()
	}

	logging.Component("manager").Info().
		Int("workers", m.workerCount).
		Str("stream", queue.StreamActivity).
		Str("group", queue.ConsumerGroupActivity).
		Msg("workers started")
	return nil
}

// Stop cancels the workers and waits for them to exit.
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.wg.Wait()
	logging.Component("manager").Info().Msg("all workers stopped")
}

func (m *Manager) runWorker(workerID int, consumerName string) {
	defer m.wg.Done()

	log := logging.Component("worker").With().Int("worker_id", workerID).Logger()
	log.Debug().Str("consumer", consumerName).Msg("worker started")

	// Crash recovery: finish anything delivered to this consumer but never acked.
	m.processPending(consumerName)

	for {
		select {
		case <-m.ctx.Done():
			log.Debug().Msg("worker shutting down")
			return
		default:
			m.processMessages(consumerName)
		}
	}
}

func (m *Manager) processPending(consumerName string) {
	for {
		messages, err := m.consumer.ReadPending(m.ctx, queue.StreamActivity, queue.ConsumerGroupActivity, consumerName, m.batchSize)
		if err != nil {
			if m.ctx.Err() == nil {
				logging.Component("worker").Error().Err(err).Str("consumer", consumerName).Msg("read pending failed")
			}
			return
		}
		if len(messages) == 0 {
			return
		}
		m.handleMessages(messages)
	}
}

func (m *Manager) processMessages(consumerName string) {
	messages, err := m.consumer.Read(
		m.ctx,
		queue.StreamActivity,
		queue.ConsumerGroupActivity,
		consumerName,
		m.batchSize,
		m.blockTime,
	)
	if err != nil {
		if m.ctx.Err() != nil {
			return
		}
		logging.Component("worker").Error().Err(err).Str("consumer", consumerName).Msg("read failed")
		select {
		case <-m.ctx.Done():
		case <-time.After(time.Second):
		}
		return
	}

	m.handleMessages(messages)
}

// handleMessages acks every message, including ones whose handler failed.
// Events are hints; redelivering a failed one would not change the outcome.
func (m *Manager) handleMessages(messages []queue.Message) {
	for _, msg := range messages {
		if err := m.handler.HandleEvent(m.ctx, msg.Event); err != nil {
			logging.Component("worker").Warn().Err(err).Str("msg_id", msg.ID).Msg("handler error")
		}

		if err := m.consumer.Ack(m.ctx, queue.StreamActivity, queue.ConsumerGroupActivity, msg.ID); err != nil {
			logging.Component("worker").Error().Err(err).Str("msg_id", msg.ID).Msg("ack failed")
		}
	}
}

func (m *Manager) runCleanup() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cleanupTick)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			n, err := m.cleaner.DeleteExpired(m.ctx, expiredTokenRetention)
			if err != nil {
				logging.Component("cleanup").Error().Err(err).Msg("delete expired refresh tokens failed")
				continue
			}
			if n > 0 {
				logging.Component("cleanup").Info().Int64("deleted", n).Msg("purged expired refresh tokens")
			}
		}
	}
}

func consumerNameForWorker(workerID int) string {
	return fmt.Sprintf("worker-%d", workerID)
}
