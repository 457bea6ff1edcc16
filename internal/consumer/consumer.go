// Package consumer drives the inbound change pipeline: it tails the sync
// topics, runs each message through decode, policy, conflict resolution and
// privacy filtering, and materializes accepted changes through the sink.
package consumer

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/nkapur/syncbridge/internal/config"
	"github.com/nkapur/syncbridge/internal/metrics"
	"github.com/nkapur/syncbridge/internal/policy"
	"github.com/nkapur/syncbridge/internal/region"
	"github.com/nkapur/syncbridge/internal/resolver"
)

// Topics are the sync topics tailed at startup. Consumption starts at the
// end of each partition: the consumer is a live tail, not a backfill.
var Topics = []string{"sync.users", "sync.products", "sync.sales"}

// Mutator executes sink mutations. Satisfied by *sink.Writer.
type Mutator interface {
	Upsert(ctx context.Context, table string, cols []string, vals []any) error
	Delete(ctx context.Context, table string, id any) error
}

// Consumer is one region's inbound change processor.
type Consumer struct {
	client  *kgo.Client
	gate    policy.Gate
	reader  resolver.StateReader
	writer  Mutator
	metrics *metrics.Store
	local   region.Region

	now func() time.Time
}

// New wires a consumer around an established bus client.
func New(client *kgo.Client, gate policy.Gate, reader resolver.StateReader, writer Mutator, m *metrics.Store, local region.Region) *Consumer {
	return &Consumer{
		client:  client,
		gate:    gate,
		reader:  reader,
		writer:  writer,
		metrics: m,
		local:   local,
		now:     time.Now,
	}
}

// Dial connects the bus client and verifies broker reachability with
// exponential backoff: 300 ms initial, doubling, capped at 30 s, 15 attempts.
// Callers decide whether an exhausted budget is fatal; per the service
// contract it is not, and syncd keeps serving the stats API without sync.
func Dial(ctx context.Context, cfg *config.Config) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.KafkaBroker),
		kgo.ClientID(cfg.ClientID),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(Topics...),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 300 * time.Millisecond
	bo.Multiplier = 2
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0

	attempt := 0
	ping := func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Str("broker", cfg.KafkaBroker).Msg("bus not reachable yet")
			return err
		}
		return nil
	}

	if err := backoff.Retry(ping, backoff.WithContext(backoff.WithMaxRetries(bo, 15), ctx)); err != nil {
		client.Close()
		return nil, err
	}

	log.Info().Str("broker", cfg.KafkaBroker).Str("group", cfg.GroupID).Strs("topics", Topics).Msg("bus client connected")
	return client, nil
}

// Run polls until ctx is canceled or the client is closed. Messages within a
// partition are handled strictly in order; offsets are committed only after
// every record in the batch has been handled (applied or deliberately
// skipped), so a poison message never wedges the group.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			log.Error().Err(err).Str("topic", topic).Int32("partition", partition).Msg("fetch error")
		})

		var handled []*kgo.Record
		fetches.EachRecord(func(rec *kgo.Record) {
			c.Handle(ctx, rec.Topic, rec.Key, rec.Value, rec.Timestamp)
			handled = append(handled, rec)
		})

		if len(handled) > 0 {
			if err := c.client.CommitRecords(ctx, handled...); err != nil {
				log.Error().Err(err).Int("records", len(handled)).Msg("offset commit failed")
			}
		}
	}
}

// Close commits nothing further and releases the bus client.
func (c *Consumer) Close() {
	c.client.Close()
}
