package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler returns nil only when the message was processed and its offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	commit  func(ctx context.Context, msgs ...kafka.Message) error
	workers int
	backoff time.Duration
	logger  *zap.Logger
}

func NewConsumer(brokers []string, group string, topics []string, workers int, logger *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		GroupTopics:    topics,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{r: r, commit: r.CommitMessages, workers: workers, backoff: 200 * time.Millisecond, logger: logger}
}

func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make(chan kafka.Message, 1024)
	wg := c.runWorkers(ctx, jobs, h)
	stop := func() {
		close(jobs)
		wg.Wait()
	}

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			stop()
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			stop()
			return nil
		}
	}
}

// runWorkers drains jobs until it is closed. Workers never block on anything
// but the handler and the commit, so closing jobs always lets them exit.
func (c *Consumer) runWorkers(ctx context.Context, jobs <-chan kafka.Message, h Handler) *sync.WaitGroup {
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				c.process(ctx, m, h)
			}
		}()
	}
	return &wg
}

func (c *Consumer) process(ctx context.Context, m kafka.Message, h Handler) {
	err := h(ctx, m)
	if err == nil {
		if err = c.commit(ctx, m); err == nil {
			return
		}
	}
	if ctx.Err() != nil {
		c.logger.Debug("message left uncommitted on shutdown",
			zap.String("topic", m.Topic), zap.Int64("offset", m.Offset), zap.Error(err))
		return
	}
	c.logger.Warn("consumer worker error",
		zap.String("topic", m.Topic), zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset), zap.Error(err))
	if c.backoff > 0 {
		time.Sleep(c.backoff)
	}
}
