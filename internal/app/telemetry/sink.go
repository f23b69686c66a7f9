package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"arenacore/internal/app/ports"
	"arenacore/internal/platform/logger"

	"github.com/sirupsen/logrus"
)

type Config struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

// AsyncSink buffers decision records and writes them to a repository in
// batches from a single goroutine. Record never blocks: a full buffer drops
// the record and counts it.
type AsyncSink struct {
	repo    ports.DecisionLogRepository
	cfg     Config
	log     logrus.FieldLogger
	records chan ports.DecisionRecord
	stop    chan struct{}
	done    chan struct{}

	closeOnce sync.Once
	closed    atomic.Bool
	dropped   atomic.Uint64
	written   atomic.Uint64
	failed    atomic.Uint64
}

func NewAsyncSink(repo ports.DecisionLogRepository, cfg Config, log logrus.FieldLogger) *AsyncSink {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if log == nil {
		log = logger.Discard()
	}
	s := &AsyncSink{
		repo:    repo,
		cfg:     cfg,
		log:     log.WithField("component", "telemetry"),
		records: make(chan ports.DecisionRecord, cfg.BufferSize),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *AsyncSink) Record(rec ports.DecisionRecord) {
	if s.closed.Load() {
		s.dropped.Add(1)
		return
	}
	select {
	case s.records <- rec:
	default:
		s.dropped.Add(1)
	}
}

func (s *AsyncSink) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]ports.DecisionRecord, 0, s.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.Append(ctx, batch); err != nil {
			s.failed.Add(uint64(len(batch)))
			s.log.WithError(err).WithField("records", len(batch)).Warn("append decision log failed")
		} else {
			s.written.Add(uint64(len(batch)))
		}
		batch = make([]ports.DecisionRecord, 0, s.cfg.BatchSize)
	}

	for {
		select {
		case rec := <-s.records:
			batch = append(batch, rec)
			if len(batch) >= s.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.stop:
			for {
				select {
				case rec := <-s.records:
					batch = append(batch, rec)
					if len(batch) >= s.cfg.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close stops accepting records and waits for the buffered ones to be
// written, or for ctx to end.
func (s *AsyncSink) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.stop)
	})
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type Counters struct {
	Written uint64 `json:"written"`
	Dropped uint64 `json:"dropped"`
	Failed  uint64 `json:"failed"`
}

func (s *AsyncSink) Counters() Counters {
	return Counters{Written: s.written.Load(), Dropped: s.dropped.Load(), Failed: s.failed.Load()}
}

// Discard is a sink that ignores every record.
type Discard struct{}

func (Discard) Record(ports.DecisionRecord) {}
