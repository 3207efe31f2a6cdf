package collector

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hed1ad/goflowprep/pkg/flow"
	csvio "github.com/hed1ad/goflowprep/pkg/io/csv"
)

// Source acquires flow records for a requested duration. Implementations
// must honor context cancellation: when the caller abandons a collection
// request the source should return promptly.
type Source interface {
	Collect(ctx context.Context, duration time.Duration) (flow.Batch, error)
}

// Collector routes collection requests to the configured sources and saves
// each successful batch to `{savePath}/{type}_data.csv`, overwritten per
// run. One collector handles one save at a time; concurrent collections
// serialize on the save step so file writes cannot collide.
type Collector struct {
	savePath string
	log      *logrus.Logger
	metrics  *Metrics

	normal    Source
	attack    Source
	synthetic Source

	saveMu sync.Mutex
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the collector's logger.
func WithLogger(log *logrus.Logger) Option {
	return func(c *Collector) {
		c.log = log
	}
}

// WithMetrics enables collection metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Collector) {
		c.metrics = m
	}
}

// WithNormalSource sets the source for benign traffic.
func WithNormalSource(s Source) Option {
	return func(c *Collector) {
		c.normal = s
	}
}

// WithAttackSource sets the source for attack traffic.
func WithAttackSource(s Source) Option {
	return func(c *Collector) {
		c.attack = s
	}
}

// WithSyntheticSource sets the source for generated traffic.
func WithSyntheticSource(s Source) Option {
	return func(c *Collector) {
		c.synthetic = s
	}
}

// New creates a collector saving into savePath.
func New(savePath string, opts ...Option) *Collector {
	c := &Collector{
		savePath: savePath,
		log:      logrus.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect acquires one batch of the given type and saves it. On acquisition
// failure nothing is saved and the wrapped failure is returned. On
// persistence failure the collected batch is still returned alongside the
// error so the caller can decide whether the loss is fatal.
func (c *Collector) Collect(ctx context.Context, typ Type, duration time.Duration) (flow.Batch, error) {
	var src Source
	switch typ {
	case TypeNormal:
		src = c.normal
	case TypeAttack:
		src = c.attack
	case TypeSynthetic:
		src = c.synthetic
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidType, typ)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: no %s source configured", ErrCollectionFailed, typ)
	}

	// Bound the acquisition: the source gets the requested duration plus a
	// short grace period to flush, then the context cancels it.
	collectCtx, cancel := context.WithTimeout(ctx, duration+5*time.Second)
	defer cancel()

	c.log.WithFields(logrus.Fields{
		"type":     typ.String(),
		"duration": duration,
	}).Info("starting collection")

	batch, err := src.Collect(collectCtx, duration)
	if err != nil {
		c.log.WithError(err).WithField("type", typ.String()).Error("collection failed")
		if c.metrics != nil {
			c.metrics.failures.WithLabelValues(typ.String()).Inc()
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrCollectionFailed, typ, err)
	}
	if len(batch) == 0 {
		c.log.WithField("type", typ.String()).Error("collection returned no flows")
		if c.metrics != nil {
			c.metrics.failures.WithLabelValues(typ.String()).Inc()
		}
		return nil, fmt.Errorf("%w: %s collection returned no flows", ErrCollectionFailed, typ)
	}

	path := filepath.Join(c.savePath, typ.String()+"_data.csv")
	if err := c.save(batch, path); err != nil {
		c.log.WithError(err).WithField("path", path).Error("failed to save collected data")
		return batch, fmt.Errorf("%w: %s: %v", ErrPersistence, path, err)
	}

	if c.metrics != nil {
		c.metrics.collections.WithLabelValues(typ.String()).Inc()
		c.metrics.flows.Add(float64(len(batch)))
	}
	c.log.WithFields(logrus.Fields{
		"type":  typ.String(),
		"flows": len(batch),
		"path":  path,
	}).Info("collection saved")

	return batch, nil
}

func (c *Collector) save(batch flow.Batch, path string) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	return csvio.NewWriter(path).WriteBatch(batch)
}
