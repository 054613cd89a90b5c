package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/rs/zerolog"
)

// op is one serialized mutating operation. seq orders operations by the time
// they were requested; a logout raises the fence to its own seq so anything
// requested earlier can no longer commit.
type op struct {
	m       *Manager
	name    string
	seq     uint64
	ctx     context.Context
	cancel  context.CancelFunc
	started time.Time
	logger  zerolog.Logger
}

// current reports whether no later logout has superseded this operation.
func (o *op) current() bool {
	return o.seq >= o.m.fence.Load()
}

// commit runs fn only while the operation is current.
func (o *op) commit(fn func()) error {
	if !o.current() {
		return fmt.Errorf("[%s] %w", o.name, autherrors.ErrSuperseded)
	}
	fn()
	return nil
}

// begin queues for the single operation slot. A superseding operation (logout)
// first fences off and cancels everything requested before it, then waits
// for the slot regardless of ctx so it always runs.
func (m *Manager) begin(ctx context.Context, name string, supersede bool) (*op, error) {
	seq := m.seq.Add(1)

	if supersede {
		m.raiseFence(seq)
		m.cancelInflight(seq)
		m.sem <- struct{}{}
	} else {
		select {
		case m.sem <- struct{}{}:
		case <-ctx.Done():
			return nil, fmt.Errorf("[%s] %w: %w", name, errBusy, ctx.Err())
		}
	}

	if seq < m.fence.Load() {
		<-m.sem
		return nil, fmt.Errorf("[%s] %w", name, autherrors.ErrSuperseded)
	}

	opCtx, cancel := context.WithCancel(ctx)
	o := &op{
		m:       m,
		name:    name,
		seq:     seq,
		ctx:     opCtx,
		cancel:  cancel,
		started: time.Now(),
		logger:  m.logger.With().Str("op", name).Str("op_id", uuid.NewString()).Logger(),
	}

	m.inflight.Lock()
	m.inflight.seq = seq
	m.inflight.cancel = cancel
	m.inflight.Unlock()

	// A logout may have raised the fence between the check above and
	// registering the cancel func.
	if !o.current() {
		cancel()
	}

	m.setLoading(true)
	o.logger.Debug().Msg("operation started")
	return o, nil
}

func (m *Manager) end(o *op, outcome string) {
	m.inflight.Lock()
	if m.inflight.seq == o.seq {
		m.inflight.cancel = nil
	}
	m.inflight.Unlock()

	o.cancel()
	m.setLoading(false)
	m.metrics.Observe(o.name, outcome, time.Since(o.started))
	o.logger.Debug().Str("outcome", outcome).Dur("elapsed", time.Since(o.started)).Msg("operation finished")

	<-m.sem
}

func (m *Manager) raiseFence(seq uint64) {
	for {
		cur := m.fence.Load()
		if cur >= seq || m.fence.CompareAndSwap(cur, seq) {
			return
		}
	}
}

func (m *Manager) cancelInflight(before uint64) {
	m.inflight.Lock()
	defer m.inflight.Unlock()
	if m.inflight.cancel != nil && m.inflight.seq < before {
		m.inflight.cancel()
	}
}

// run executes fn as a serialized operation and converts every failure,
// including a panic, into a Result.
func (m *Manager) run(ctx context.Context, name string, supersede bool, fn func(o *op) (Result, error)) (res Result) {
	o, err := m.begin(ctx, name, supersede)
	if err != nil {
		m.logger.Info().Str("op", name).Err(err).Msg("operation not started")
		m.metrics.Observe(name, string(kindOf(err)), 0)
		return failure(err)
	}

	outcome := "success"
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().Interface("panic", r).Msg("operation panicked")
			res = failure(fmt.Errorf("panic: %v", r))
			outcome = string(res.Kind)
		}
		m.end(o, outcome)
	}()

	res, err = fn(o)
	if err != nil {
		res = failure(err)
		if !o.current() {
			res = failure(fmt.Errorf("[%s] %w: %w", name, autherrors.ErrSuperseded, err))
		}
		outcome = string(res.Kind)
		evt := o.logger.Warn()
		if res.Kind == KindCancelled {
			evt = o.logger.Info()
		}
		evt.Err(err).Str("kind", string(res.Kind)).Msg("operation failed")
	}
	return res
}
