package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/FrontGate/FrontGate/pkg/common"
	"github.com/rs/xid"
)

const (
	decisionBatchSize = 100
)

var (
	ErrQueueFull = errors.New("event queue is full")
)

// DecisionWriter persists batches of decision records.
type DecisionWriter interface {
	WriteDecisionBatch(ctx context.Context, records []*common.DecisionRecord) error
}

// Metrics receives one observation per processed event.
type Metrics interface {
	ObserveDecision(branch common.DecisionBranch, outcome common.DecisionOutcome)
}

// Consumer serializes event processing: events from all inbound deliveries
// are queued and run through the pipeline one at a time, which is what the
// dedup and cooldown logic assume. Decision records are batch-flushed to
// the decision log on the side.
type Consumer struct {
	pipeline  *Pipeline
	sink      DecisionWriter
	metrics   Metrics
	events    chan *common.MatchEvent
	decisions chan *common.DecisionRecord
	cancel    context.CancelFunc
	finished  chan struct{}
	flushed   chan struct{}
}

func NewConsumer(p *Pipeline, sink DecisionWriter, metrics Metrics, queueSize int, flushInterval time.Duration) *Consumer {
	c := &Consumer{
		pipeline:  p,
		sink:      sink,
		metrics:   metrics,
		events:    make(chan *common.MatchEvent, queueSize),
		decisions: make(chan *common.DecisionRecord, 3*decisionBatchSize/2),
		finished:  make(chan struct{}),
		flushed:   make(chan struct{}),
	}

	var ctx context.Context
	ctx, c.cancel = context.WithCancel(
		context.WithValue(context.Background(), common.TraceIDContextKey, "event_consumer"))

	go c.processEvents(ctx)
	go c.flushDecisions(ctx, flushInterval)

	return c
}

// Enqueue hands an event to the consumer. A full queue rejects the event;
// the upstream stream redelivers it later.
func (c *Consumer) Enqueue(ctx context.Context, event *common.MatchEvent) error {
	select {
	case c.events <- event:
		return nil
	default:
		slog.WarnContext(ctx, "Dropping event, queue is full", "stream", event.StreamHandle)
		return ErrQueueFull
	}
}

// Shutdown stops the worker and waits until the pending decision records
// have been flushed to the sink.
func (c *Consumer) Shutdown() {
	slog.Debug("Shutting down event consumer")
	c.cancel()
	<-c.finished
	<-c.flushed
}

func (c *Consumer) processEvents(ctx context.Context) {
	defer close(c.finished)

	for running := true; running; {
		select {
		case <-ctx.Done():
			running = false

		case event := <-c.events:
			evCtx := common.TraceContext(context.WithoutCancel(ctx), xid.New().String())
			decision := c.pipeline.Process(evCtx, event)

			if c.metrics != nil {
				c.metrics.ObserveDecision(decision.Branch, decision.Outcome)
			}

			select {
			case c.decisions <- decision:
			default:
				slog.WarnContext(evCtx, "Decision log channel is full, dropping record")
			}
		}
	}

	slog.InfoContext(ctx, "Finished processing events")
}

func (c *Consumer) flushDecisions(ctx context.Context, delay time.Duration) {
	defer close(c.flushed)

	var batch []*common.DecisionRecord
	slog.DebugContext(ctx, "Processing decision log", "interval", delay.String())

	flush := func() {
		if len(batch) == 0 {
			return
		}

		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()

		if err := c.sink.WriteDecisionBatch(flushCtx, batch); err == nil {
			batch = batch[:0]
		}
	}

	for running := true; running; {
		select {
		case <-ctx.Done():
			running = false

		case decision := <-c.decisions:
			batch = append(batch, decision)

			if len(batch) >= decisionBatchSize {
				flush()
			}
		case <-time.After(delay):
			flush()
		}
	}

	// wait for the worker to stop so its last hand-off is in the channel,
	// then drain it into the final batch
	<-c.finished
	for draining := true; draining; {
		select {
		case decision := <-c.decisions:
			batch = append(batch, decision)
		default:
			draining = false
		}
	}

	flush()

	slog.InfoContext(ctx, "Finished processing decision log")
}
