package gopointer

import (
	"context"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"golang.org/x/time/rate"

	"github.com/edaniels/gopointer/transport"
)

// A HolderConfig describes what a Holder broadcasts and how often.
type HolderConfig struct {
	// ID names the holder to watchers. A random one is used when empty.
	ID string
	// PoseRate caps pose datagrams per second.
	PoseRate float64
	// KeepAlive is how often a shown pose is repeated without changes, so
	// watchers do not time it out.
	KeepAlive time.Duration
	// CursorImage is an encoded cursor strip sent to every watcher that
	// connects. Watchers use their default cursor when it is empty.
	CursorImage []byte
	// AnimationSet is sent to every watcher that connects when set.
	AnimationSet *AnimationSet
	Logger       golog.Logger
}

// A Holder broadcasts its pointer to every connected watcher.
type Holder struct {
	id        string
	transport transport.Transport
	config    HolderConfig
	limiter   *rate.Limiter
	assets    [][]byte

	mu    sync.Mutex
	pose  Pose
	dirty chan struct{}

	startOnce               sync.Once
	cancel                  func()
	activeBackgroundWorkers sync.WaitGroup
	logger                  golog.Logger
}

// NewHolder returns a holder sending over tr. The cursor image and
// animation set are validated up front.
func NewHolder(tr transport.Transport, config HolderConfig) (*Holder, error) {
	if tr == nil {
		return nil, errors.New("holder needs a transport")
	}
	defaults := DefaultHolderConfig()
	if config.PoseRate <= 0 {
		config.PoseRate = defaults.PoseRate
	}
	if config.KeepAlive <= 0 {
		config.KeepAlive = defaults.KeepAlive
	}
	id := config.ID
	if id == "" {
		id = uuid.NewString()
	}
	logger := config.Logger
	if logger == nil {
		logger = golog.Global().Named("holder")
	}

	var assets [][]byte
	if len(config.CursorImage) != 0 {
		if err := ValidateCursorFileSize(len(config.CursorImage)); err != nil {
			return nil, err
		}
		img, err := DecodeCursorImage(config.CursorImage)
		if err != nil {
			return nil, err
		}
		logger.Debugw("using cursor image", "frames", img.NumFrames())
		assets = append(assets, EncodeImage(config.CursorImage))
	}
	if config.AnimationSet != nil {
		as := config.AnimationSet.withDefaults()
		if err := as.Validate(); err != nil {
			return nil, errors.Wrap(err, "invalid animation set")
		}
		encoded, err := EncodeAnimationSet(as)
		if err != nil {
			return nil, err
		}
		assets = append(assets, encoded)
	}

	return &Holder{
		id:        id,
		transport: tr,
		config:    config,
		limiter:   rate.NewLimiter(rate.Limit(config.PoseRate), 1),
		assets:    assets,
		dirty:     make(chan struct{}, 1),
		cancel:    func() {},
		logger:    logger,
	}, nil
}

// ID returns the name the holder goes by.
func (h *Holder) ID() string {
	return h.id
}

// Start starts sending. It is safe to call more than once.
func (h *Holder) Start(ctx context.Context) {
	h.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		h.cancel = cancel
		h.activeBackgroundWorkers.Add(2)
		utils.ManagedGo(func() { h.sendPoses(ctx) }, h.activeBackgroundWorkers.Done)
		utils.ManagedGo(func() { h.greetWatchers(ctx) }, h.activeBackgroundWorkers.Done)
	})
}

// SetPose sets the current pose. It never blocks; only the latest pose is
// sent.
func (h *Holder) SetPose(p Pose) {
	if !p.Shown() {
		p = Pose{}
	}
	h.mu.Lock()
	if h.pose == p {
		h.mu.Unlock()
		return
	}
	h.pose = p
	h.mu.Unlock()
	select {
	case h.dirty <- struct{}{}:
	default:
	}
}

// Pose returns the current pose.
func (h *Holder) Pose() Pose {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pose
}

func (h *Holder) sendPoses(ctx context.Context) {
	keepAlive := time.NewTicker(h.config.KeepAlive)
	defer keepAlive.Stop()
	var last Pose
	var sentAny bool
	for {
		force := false
		select {
		case <-ctx.Done():
			return
		case <-h.dirty:
		case <-keepAlive.C:
			force = h.Pose().Shown()
			if !force {
				continue
			}
		}
		if err := h.limiter.Wait(ctx); err != nil {
			return
		}
		p := h.Pose()
		if sentAny && p == last && !force {
			continue
		}
		encoded, err := EncodePose(p)
		if err != nil {
			h.logger.Errorw("error encoding pose", "error", err)
			continue
		}
		if err := h.transport.Broadcast(encoded, transport.Unreliable); err != nil {
			h.logger.Debugw("error broadcasting pose", "error", err)
		}
		last, sentAny = p, true
	}
}

// greetWatchers sends the assets and the current pose to each watcher as
// it connects.
func (h *Holder) greetWatchers(ctx context.Context) {
	packets := h.transport.Packets()
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-packets:
			if !ok {
				return
			}
			switch p.Event {
			case transport.EventConnect:
				h.greet(p.Sender)
			case transport.EventDisconnect, transport.EventTimeout:
				h.logger.Infow("watcher left", "watcher", p.Sender, "reason", p.Event)
			case transport.EventData:
			}
		}
	}
}

func (h *Holder) greet(watcher transport.PeerID) {
	h.logger.Infow("watcher connected", "watcher", watcher)
	for _, asset := range h.assets {
		if err := h.transport.Send(watcher, asset, transport.Reliable); err != nil {
			h.logger.Warnw("error sending assets", "watcher", watcher, "error", err)
			return
		}
	}
	encoded, err := EncodePose(h.Pose())
	if err != nil {
		h.logger.Errorw("error encoding pose", "error", err)
		return
	}
	if err := h.transport.Send(watcher, encoded, transport.Unreliable); err != nil {
		h.logger.Debugw("error sending pose", "watcher", watcher, "error", err)
	}
}

// Stop stops sending and waits for the background workers.
func (h *Holder) Stop() {
	h.cancel()
	h.activeBackgroundWorkers.Wait()
}
