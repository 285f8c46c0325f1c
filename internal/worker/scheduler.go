package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Worker.Start blocks until Stop is called.
type Worker interface {
	Name() string
	Start()
	Stop()
}

type Scheduler struct {
	workers []Worker
	wg      sync.WaitGroup
	stopped bool
	mu      sync.RWMutex
	logger  *zap.Logger
	timeout time.Duration
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		workers: make([]Worker, 0),
		logger:  logger.Named("scheduler"),
		timeout: 10 * time.Second,
	}
}

func (s *Scheduler) AddWorker(worker Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = append(s.workers, worker)
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	s.logger.Info("starting scheduler", zap.Int("workers", len(s.workers)))

	for _, worker := range s.workers {
		s.wg.Add(1)
		go func(w Worker) {
			defer s.wg.Done()
			w.Start()
		}(worker)
	}
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	workers := append([]Worker(nil), s.workers...)
	s.mu.Unlock()

	s.logger.Info("stopping scheduler")

	// Останавливаем всех воркеров
	for _, worker := range workers {
		worker.Stop()
	}

	// Ждем завершения
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	// Таймаут на остановку
	select {
	case <-done:
		s.logger.Info("scheduler stopped gracefully")
	case <-time.After(s.timeout):
		s.logger.Warn("scheduler stop timeout")
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.stopped
}

// periodic запускает task сразу и затем раз в interval, пока не вызван Stop
type periodic struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	task     func(ctx context.Context) error
	logger   *zap.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc
}

func newPeriodic(name string, interval, timeout time.Duration, task func(ctx context.Context) error, logger *zap.Logger) *periodic {
	if interval <= 0 {
		interval = time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &periodic{
		name:     name,
		interval: interval,
		timeout:  timeout,
		task:     task,
		logger:   logger.Named(name),
		stopChan: make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (p *periodic) Name() string { return p.name }

func (p *periodic) Start() {
	p.logger.Info("worker started", zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Первый запуск сразу
	p.runOnce()

	for {
		select {
		case <-ticker.C:
			p.runOnce()
		case <-p.stopChan:
			p.logger.Info("worker stopped")
			return
		}
	}
}

func (p *periodic) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
		p.cancel()
	})
}

func (p *periodic) runOnce() {
	select {
	case <-p.stopChan:
		return
	default:
	}

	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	start := time.Now()
	if err := p.task(ctx); err != nil {
		p.logger.Warn("worker run failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		return
	}
	p.logger.Debug("worker run completed", zap.Duration("took", time.Since(start)))
}
