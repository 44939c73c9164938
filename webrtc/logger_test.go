package webrtc

import (
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"
)

func TestLoggerFactory(t *testing.T) {
	factory := LoggerFactory{Logger: golog.NewTestLogger(t)}
	l := factory.NewLogger("sctp")
	test.That(t, l, test.ShouldNotBeNil)

	l.Trace("trace")
	l.Tracef("trace %d", 1)
	l.Debug("debug")
	l.Debugf("debug %d", 1)
	l.Info("info")
	l.Infof("info %d", 1)
	l.Warn("warn")
	l.Warnf("warn %d", 1)
	l.Error("error")
	l.Errorf("error %d", 1)
}
