// Package telemetry publishes per-component snapshots to Redis for
// observability, following the reference service's
// internal/messaging/redis.go pattern: a pipelined HSet+Publish per
// snapshot, and a capped Redis Stream for safe-state transitions. This is
// presentational only — nothing in the safety core reads anything back
// from Redis; see SPEC_FULL.md's domain-stack section for why this stays
// a one-way sink rather than a new control input.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"flm-ecu/internal/logger"
	"flm-ecu/internal/types"
)

const faultsStreamMaxLen = 1000

// Publisher owns the Redis client and publishes component snapshots.
type Publisher struct {
	client *redis.Client
	log    *logger.Logger
	ctx    context.Context
}

// NewPublisher connects to a Redis instance at addr ("host:port").
func NewPublisher(addr string, log *logger.Logger) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("telemetry: connect to redis at %s: %w", addr, err)
	}
	return &Publisher{client: client, log: log, ctx: ctx}, nil
}

// Close releases the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}

// PublishSwitch publishes SwitchReceiver's latest snapshot.
func (p *Publisher) PublishSwitch(r types.SwitchReport) {
	p.publishHash("flm:switch", map[string]interface{}{
		"command":  r.Command.String(),
		"valid":    r.Valid,
		"status":   r.LastStatus.String(),
		"e2e":      r.SupervisorState.String(),
		"timed_out": r.TimedOut,
	})
}

// PublishAmbient publishes AmbientSensor's latest snapshot.
func (p *Publisher) PublishAmbient(a types.AmbientReading) {
	p.publishHash("flm:ambient", map[string]interface{}{
		"filtered": a.Filtered,
		"lux":      a.Lux,
		"valid":    a.Valid,
		"status":   a.Status.String(),
	})
}

// PublishFLM publishes FlmController's latest snapshot.
func (p *Publisher) PublishFLM(f types.FLMSnapshot) {
	p.publishHash("flm:flm", map[string]interface{}{
		"state":   f.State.String(),
		"command": f.Command.String(),
	})
}

// PublishOutput publishes OutputMonitor's latest snapshot.
func (p *Publisher) PublishOutput(o types.OutputSnapshot) {
	p.publishHash("flm:output", map[string]interface{}{
		"command":     o.Command.String(),
		"actually_on": o.ActuallyOn,
		"current_ma":  o.CurrentMA,
		"fault":       o.Fault.String(),
	})
}

// PublishSafety publishes SafetyAggregator's latest snapshot, and when it
// reports a freshly latched safe state, pushes a fault event onto the
// capped events:faults stream.
func (p *Publisher) PublishSafety(s types.SafetySnapshot, justLatched bool) {
	p.publishHash("flm:safety", map[string]interface{}{
		"status":      s.Status.String(),
		"reason":      s.Reason.String(),
		"safe_latched": s.SafeLatched,
		"fault_count": s.FaultCount,
	})

	if justLatched {
		pipe := p.client.Pipeline()
		pipe.XAdd(p.ctx, &redis.XAddArgs{
			Stream: "events:faults",
			MaxLen: faultsStreamMaxLen,
			Values: map[string]interface{}{
				"reason":    s.Reason.String(),
				"timestamp": time.Now().Unix(),
			},
		})
		pipe.Publish(p.ctx, "flm:safety", "latched")
		if _, err := pipe.Exec(p.ctx); err != nil {
			p.log.Warnf("telemetry: publish fault event: %v", err)
		}
	}
}

func (p *Publisher) publishHash(key string, fields map[string]interface{}) {
	pipe := p.client.Pipeline()
	pipe.HSet(p.ctx, key, fields)
	pipe.Publish(p.ctx, key, "update")
	if _, err := pipe.Exec(p.ctx); err != nil {
		p.log.Warnf("telemetry: publish %s: %v", key, err)
	}
}
