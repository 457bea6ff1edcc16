package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nkapur/syncbridge/internal/envelope"
	"github.com/nkapur/syncbridge/internal/privacy"
	"github.com/nkapur/syncbridge/internal/resolver"
	"github.com/nkapur/syncbridge/internal/sink"
)

// resolverDecide extracts the incoming version (0 when absent) and runs the
// LWW decision procedure.
func resolverDecide(ch *envelope.Change, row *resolver.LocalRow) resolver.Decision {
	var version int64
	if v, ok := ch.After["version"]; ok {
		if f, ok := v.(float64); ok {
			version = int64(f)
		}
	}
	return resolver.Decide(ch.Op, row, ch.SourceMs, version)
}

// Handle runs one message through the full pipeline. It never returns an
// error: every failure mode is logged and the message is treated as handled
// so the offset can advance.
func (c *Consumer) Handle(ctx context.Context, topic string, key, value []byte, receivedAt time.Time) {
	ch, err := envelope.Decode(topic, key, value)
	if err != nil {
		if errors.Is(err, envelope.ErrTombstone) {
			log.Debug().Str("topic", topic).Msg("skipping tombstone")
			return
		}
		log.Warn().Err(err).Str("topic", topic).Msg("skipping undecodable message")
		return
	}

	logger := log.With().
		Str("table", ch.Table).
		Interface("id", ch.Key).
		Str("op", string(ch.Op)).
		Str("origin", string(ch.Origin)).
		Logger()

	verdict := c.gate.Evaluate(ch.Table, ch.Origin, ch.Op)
	if !verdict.Accepted {
		logger.Info().Str("reason", verdict.Reason).Msg("change rejected by policy")
		return
	}

	row, err := c.reader.ReadRow(ctx, ch.Table, ch.Key)
	if err != nil {
		// Transient sink errors are not retried here; CDC redelivers on the
		// next change and LWW converges.
		logger.Error().Err(err).Msg("failed to read local row state")
		return
	}

	decision := resolverDecide(ch, row)
	if !decision.Apply {
		logger.Info().Str("reason", decision.Reason).Msg("change skipped by resolver")
		return
	}

	if ch.Op == envelope.OpDelete {
		if err := c.writer.Delete(ctx, ch.Table, ch.Key); err != nil {
			logger.Error().Err(err).Msg("sink delete failed")
			return
		}
	} else {
		filtered := privacy.Apply(ch.After)
		if err := c.writer.Upsert(ctx, ch.Table, filtered.Columns, filtered.Values); err != nil {
			var se *sink.SchemaError
			if errors.As(err, &se) {
				logger.Warn().Str("column", se.Column).Strs("payload_columns", filtered.Columns).Msg("payload does not match local schema, skipping")
			} else {
				logger.Error().Err(err).Msg("sink upsert failed")
			}
			return
		}
	}

	latency := c.latencyMs(ch, receivedAt)
	c.metrics.Record(string(ch.Origin), string(c.local), ch.Table, fmt.Sprint(ch.Key), latency)
	logger.Info().Str("reason", decision.Reason).Int64("latency_ms", latency).Msg("change applied")
}

// latencyMs measures source-to-sink lag, falling back to broker receipt time
// when the payload carries no usable timestamp.
func (c *Consumer) latencyMs(ch *envelope.Change, receivedAt time.Time) int64 {
	now := c.now()
	if ch.SourceMs > 0 {
		return now.UnixMilli() - ch.SourceMs
	}
	return now.Sub(receivedAt).Milliseconds()
}
