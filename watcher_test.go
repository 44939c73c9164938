package gopointer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/edaniels/gopointer/transport"
)

// stepUntil steps w until cond holds or a second passes.
func stepUntil(t *testing.T, w *Watcher, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		test.That(t, w.Step(time.Now()), test.ShouldBeNil)
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWatcherWithHolder(t *testing.T) {
	logger := golog.NewTestLogger(t)
	holderSide, watcherSide := transport.Pipe("holder", "watcher", logger)

	presenter := NewLogPresenter(1000, 1000, logger)
	w, err := NewWatcher(watcherSide, presenter, WatcherConfig{Logger: logger})
	test.That(t, err, test.ShouldBeNil)
	w.Start(context.Background())
	defer w.Stop()

	set := DefaultAnimationSet()
	set.Visible = NewTrack(Frame{Index: 0, Duration: 0.05}, Frame{Index: 1, Duration: 0.05})
	h, err := NewHolder(holderSide, HolderConfig{
		CursorImage:  encodePNG(t, stripImage(2, CursorSize)),
		AnimationSet: &set,
		Logger:       logger,
	})
	test.That(t, err, test.ShouldBeNil)
	h.SetPose(Pose{State: PoseVisible, X: 0.25, Y: 0.75})
	h.Start(context.Background())

	session := func() *PeerSession {
		s, _ := w.Reconciler().Session("holder")
		return s
	}
	stepUntil(t, w, func() bool {
		s := session()
		return s != nil && s.Image.NumFrames() == 2 && s.Pose == Pose{State: PoseVisible, X: 0.25, Y: 0.75}
	})
	test.That(t, session().Animations, test.ShouldResemble, set)

	handle := session().Handle
	stepUntil(t, w, func() bool {
		x, y, _ := presenter.Position(handle)
		return x == 250 && y == 750
	})

	// the animation keeps cycling while the pointer sits still
	blits := presenter.Blits(handle)
	stepUntil(t, w, func() bool {
		return presenter.Blits(handle) >= blits+2
	})

	h.Stop()
	test.That(t, holderSide.Close(), test.ShouldBeNil)
	stepUntil(t, w, func() bool {
		return !session().Pose.Shown()
	})
	x, y, _ := presenter.Position(handle)
	test.That(t, x, test.ShouldEqual, OffscreenX)
	test.That(t, y, test.ShouldEqual, OffscreenY)
	test.That(t, w.Reconciler().NumSessions(), test.ShouldEqual, 1)

	test.That(t, watcherSide.Close(), test.ShouldBeNil)
	deadline := time.Now().Add(time.Second)
	for {
		err := w.Step(time.Now())
		if errors.Is(err, ErrStopped) {
			break
		}
		test.That(t, err, test.ShouldBeNil)
		if time.Now().After(deadline) {
			t.Fatal("watcher did not stop")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWatcherRun(t *testing.T) {
	logger := golog.NewTestLogger(t)
	holderSide, watcherSide := transport.Pipe("holder", "watcher", logger)
	defer holderSide.Close()

	presenter := NewLogPresenter(100, 100, logger)
	w, err := NewWatcher(watcherSide, presenter, WatcherConfig{TickInterval: time.Millisecond, Logger: logger})
	test.That(t, err, test.ShouldBeNil)

	data, err := EncodePose(Pose{State: PoseVisible, X: 0.5, Y: 0.5})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, holderSide.Send("watcher", data, transport.Unreliable), test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx)
	}()
	for presenter.NumOverlays() == 0 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	test.That(t, <-done, test.ShouldBeNil)
	w.Stop()

	// a closed transport ends Run too
	w, err = NewWatcher(watcherSide, presenter, WatcherConfig{TickInterval: time.Millisecond, Logger: logger})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, watcherSide.Close(), test.ShouldBeNil)
	test.That(t, w.Run(context.Background()), test.ShouldBeNil)
	w.Stop()
}

func TestNewWatcherValidates(t *testing.T) {
	logger := golog.NewTestLogger(t)
	_, err := NewWatcher(nil, NewLogPresenter(1, 1, logger), WatcherConfig{})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewWatcher(newFakeTransport(1), nil, WatcherConfig{})
	test.That(t, err, test.ShouldNotBeNil)
}
