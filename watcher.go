// Package gopointer shares animated pointers between peers. A Holder
// broadcasts its pose and cursor assets; a Watcher keeps one session per
// holder and positions an overlay for each.
package gopointer

import (
	"context"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/edaniels/gopointer/transport"
)

// A WatcherConfig describes how a Watcher renders remote pointers.
type WatcherConfig struct {
	// QueueSize bounds the hand-off channel between ingestion and presentation.
	QueueSize int
	// TickInterval is how often Run advances animations.
	TickInterval time.Duration
	// PeerIdleTimeout hides shown peers that went quiet. Zero disables it.
	PeerIdleTimeout time.Duration
	// CursorScale resizes every cursor image.
	CursorScale float32
	// MaxMessagesPerStep bounds how long a single Step can take under a flood.
	MaxMessagesPerStep int
	Logger             golog.Logger
}

// ErrStopped happens when stepping a watcher whose transport is gone.
var ErrStopped = errors.New("watcher stopped")

// A Watcher renders the pointers of every connected holder. The ingestor
// runs in the background; everything else happens inside Step, which the
// presentation loop calls.
type Watcher struct {
	config     WatcherConfig
	ingestor   *Ingestor
	reconciler *Reconciler
	presenter  Presenter

	startOnce               sync.Once
	cancel                  func()
	activeBackgroundWorkers sync.WaitGroup
	logger                  golog.Logger
}

// NewWatcher returns a watcher reading tr and drawing with presenter.
func NewWatcher(tr transport.Transport, presenter Presenter, config WatcherConfig) (*Watcher, error) {
	if tr == nil {
		return nil, errors.New("watcher needs a transport")
	}
	if presenter == nil {
		return nil, errors.New("watcher needs a presenter")
	}
	defaults := DefaultWatcherConfig()
	if config.TickInterval <= 0 {
		config.TickInterval = defaults.TickInterval
	}
	if config.MaxMessagesPerStep <= 0 {
		config.MaxMessagesPerStep = defaults.MaxMessagesPerStep
	}
	if config.CursorScale <= 0 {
		config.CursorScale = defaults.CursorScale
	}
	logger := config.Logger
	if logger == nil {
		logger = golog.Global().Named("watcher")
	}
	return &Watcher{
		config:     config,
		ingestor:   NewIngestor(tr, config.QueueSize, logger.Named("ingestor")),
		reconciler: NewReconciler(presenter, time.Now(), config.CursorScale, logger.Named("reconciler")),
		presenter:  presenter,
		cancel:     func() {},
		logger:     logger,
	}, nil
}

// Start starts ingesting packets. It is safe to call more than once.
func (w *Watcher) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		w.cancel = cancel
		w.activeBackgroundWorkers.Add(1)
		utils.PanicCapturingGo(func() {
			defer w.activeBackgroundWorkers.Done()
			if err := w.ingestor.Run(ctx); err != nil {
				w.logger.Errorw("ingestor failed", "error", err)
			}
		})
	})
}

// Reconciler exposes the session state, for inspection only.
func (w *Watcher) Reconciler() *Reconciler {
	return w.reconciler
}

func (w *Watcher) apply(msg PeerMessage, now time.Time) {
	intent, ok, err := w.reconciler.Apply(msg, now)
	if err != nil {
		w.logger.Warnw("ignoring update", "peer", msg.Sender, "update", msg.String(), "error", err)
		return
	}
	if ok {
		Render(w.presenter, intent)
	}
}

// Step applies pending messages, hides quiet peers and advances
// animations, all as of now. It returns ErrStopped once the ingestor has
// stopped and every message it forwarded has been applied.
func (w *Watcher) Step(now time.Time) error {
	messages := w.ingestor.Messages()
	var stopped bool
drain:
	for i := 0; i < w.config.MaxMessagesPerStep; i++ {
		select {
		case msg, ok := <-messages:
			if !ok {
				stopped = true
				break drain
			}
			w.apply(msg, now)
		default:
			break drain
		}
	}
	for _, intent := range w.reconciler.Expire(now, w.config.PeerIdleTimeout) {
		Render(w.presenter, intent)
	}
	for _, intent := range w.reconciler.Tick(now) {
		Render(w.presenter, intent)
	}
	if stopped {
		return ErrStopped
	}
	return nil
}

// Run starts the watcher and steps it every TickInterval until ctx is done
// or the transport closes.
func (w *Watcher) Run(ctx context.Context) error {
	w.Start(ctx)
	ticker := time.NewTicker(w.config.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if err := w.Step(now); err != nil {
				if errors.Is(err, ErrStopped) {
					return nil
				}
				return err
			}
		}
	}
}

// Stop stops ingesting and waits for the ingestor to return.
func (w *Watcher) Stop() {
	w.cancel()
	w.activeBackgroundWorkers.Wait()
}
