// Package worker provides the bounded goroutine pools background work runs on.
//
// Two pools exist: general for fan-out work such as fixture seeding, and
// audit for best-effort audit writes taken off the request path.
//
// Import Path: travelguide.io/guestbook/internal/pkg/worker
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"travelguide.io/guestbook/internal/pkg/logger"
)

// ErrPoolClosed is returned when submitting to a closed pool.
var ErrPoolClosed = errors.New("worker pool is closed")

// Pool names.
const (
	PoolGeneral = "general"
	PoolAudit   = "audit"
)

const releaseTimeout = 30 * time.Second

// Task is a context-aware task function.
type Task func(ctx context.Context)

// Pool is a named ants pool.
type Pool struct {
	name string
	ants *ants.Pool
}

// Stats is a point-in-time view of one pool.
type Stats struct {
	Running int
	Free    int
	Cap     int
}

// Stats reports the pool's occupancy.
func (p *Pool) Stats() Stats {
	return Stats{Running: p.ants.Running(), Free: p.ants.Free(), Cap: p.ants.Cap()}
}

// Submit runs task with ctx. A task whose ctx is cancelled before it starts is skipped.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.submit(func() {
		if ctx.Err() != nil {
			logger.Debug("Task skipped: context cancelled",
				zap.String("pool", p.name),
				zap.Error(ctx.Err()),
			)
			return
		}
		task(ctx)
	})
}

func (p *Pool) submit(fn func()) error {
	err := p.ants.Submit(fn)
	if errors.Is(err, ants.ErrPoolClosed) {
		return ErrPoolClosed
	}
	return err
}

// Pools holds the service's pools and the lifecycle context detached tasks run under.
type Pools struct {
	General *Pool
	Audit   *Pool

	serviceCtx    context.Context
	serviceCancel context.CancelFunc
}

// PoolConfig sizes the pools.
type PoolConfig struct {
	GeneralPoolSize int
	AuditPoolSize   int
}

// DefaultPoolConfig matches the config defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{GeneralPoolSize: 50, AuditPoolSize: 20}
}

func newPool(name string, size int, expiry time.Duration) (*Pool, error) {
	p, err := ants.NewPool(size,
		ants.WithExpiryDuration(expiry),
		ants.WithPanicHandler(func(v any) {
			logger.Error("Worker panic recovered",
				zap.String("pool", name),
				zap.Any("panic", v),
				zap.Stack("stack"),
			)
		}),
	)
	if err != nil {
		return nil, err
	}
	return &Pool{name: name, ants: p}, nil
}

// NewPools creates both pools. Detached tasks observe ctx cancellation.
func NewPools(ctx context.Context, cfg PoolConfig) (*Pools, error) {
	general, err := newPool(PoolGeneral, cfg.GeneralPoolSize, 10*time.Second)
	if err != nil {
		return nil, err
	}
	audit, err := newPool(PoolAudit, cfg.AuditPoolSize, 30*time.Second)
	if err != nil {
		general.ants.Release()
		return nil, err
	}

	serviceCtx, serviceCancel := context.WithCancel(ctx)
	return &Pools{
		General:       general,
		Audit:         audit,
		serviceCtx:    serviceCtx,
		serviceCancel: serviceCancel,
	}, nil
}

func (p *Pools) byName(name string) *Pool {
	if name == PoolAudit {
		return p.Audit
	}
	return p.General
}

// SubmitDetached runs task under the service lifecycle context rather than a
// request context: it outlives the request but is skipped once shutdown starts.
func (p *Pools) SubmitDetached(poolName string, task Task) error {
	pool := p.byName(poolName)
	return pool.submit(func() {
		if p.serviceCtx.Err() != nil {
			logger.Debug("Detached task skipped: service shutting down",
				zap.String("pool", pool.name),
			)
			return
		}
		task(p.serviceCtx)
	})
}

// Shutdown cancels the service context, then waits for running tasks.
func (p *Pools) Shutdown() {
	p.serviceCancel()
	for _, pool := range []*Pool{p.General, p.Audit} {
		if err := pool.ants.ReleaseTimeout(releaseTimeout); err != nil {
			logger.Warn("Worker pool shutdown timeout", zap.String("pool", pool.name), zap.Error(err))
		}
	}
}

// Stats returns occupancy keyed by pool name.
func (p *Pools) Stats() map[string]Stats {
	return map[string]Stats{
		PoolGeneral: p.General.Stats(),
		PoolAudit:   p.Audit.Stats(),
	}
}

var (
	runningDesc = prometheus.NewDesc("guestbook_worker_pool_running",
		"Goroutines currently running tasks.", []string{"pool"}, nil)
	capacityDesc = prometheus.NewDesc("guestbook_worker_pool_capacity",
		"Configured pool size.", []string{"pool"}, nil)
)

// Describe implements prometheus.Collector.
func (p *Pools) Describe(ch chan<- *prometheus.Desc) {
	ch <- runningDesc
	ch <- capacityDesc
}

// Collect implements prometheus.Collector.
func (p *Pools) Collect(ch chan<- prometheus.Metric) {
	for name, s := range p.Stats() {
		ch <- prometheus.MustNewConstMetric(runningDesc, prometheus.GaugeValue, float64(s.Running), name)
		ch <- prometheus.MustNewConstMetric(capacityDesc, prometheus.GaugeValue, float64(s.Cap), name)
	}
}
