package renditions

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rafabene/avantpro-avatars/internal/domain/ports"
)

type job struct {
	uploadID string
	size     int
}

func (j job) key() string {
	return fmt.Sprintf("%s:%d", j.uploadID, j.size)
}

// Warmer implementa ports.RenditionScheduler: um pool fixo de workers
// consome uma fila limitada. Com a fila cheia o pedido é descartado; a
// próxima leitura do avatar agenda de novo.
type Warmer struct {
	deriver ports.RenditionDeriver
	workers int
	jobs    chan job
	logger  ports.Logger

	mu      sync.Mutex
	pending map[string]struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWarmer cria um Warmer parado; chame Start para iniciar os workers
func NewWarmer(deriver ports.RenditionDeriver, workers, queueSize int, logger ports.Logger) *Warmer {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Warmer{
		deriver: deriver,
		workers: workers,
		jobs:    make(chan job, queueSize),
		pending: make(map[string]struct{}),
		logger:  logger,
	}
}

// Start inicia os workers; eles param quando ctx é cancelado ou em Stop
func (w *Warmer) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.run(ctx)
		}()
	}
}

// Stop cancela os workers e espera terminarem
func (w *Warmer) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

// Schedule enfileira a derivação sem bloquear
func (w *Warmer) Schedule(uploadID string, size int) {
	j := job{uploadID: uploadID, size: size}

	w.mu.Lock()
	if _, ok := w.pending[j.key()]; ok {
		w.mu.Unlock()
		return
	}
	w.pending[j.key()] = struct{}{}
	w.mu.Unlock()

	select {
	case w.jobs <- j:
	default:
		w.done(j)
		w.logger.Debug("rendition queue full, dropping", "upload_id", uploadID, "size", size)
	}
}

func (w *Warmer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-w.jobs:
			w.process(ctx, j)
		}
	}
}

func (w *Warmer) process(ctx context.Context, j job) {
	defer w.done(j)
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("rendition worker panic", "upload_id", j.uploadID, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	if _, err := w.deriver.DeriveOrFetch(ctx, j.uploadID, j.size, j.size); err != nil {
		w.logger.Warn("failed to derive rendition", "upload_id", j.uploadID, "size", j.size, "error", err)
	}
}

func (w *Warmer) done(j job) {
	w.mu.Lock()
	delete(w.pending, j.key())
	w.mu.Unlock()
}
