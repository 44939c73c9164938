// Package main runs a pointercast watcher or holder.
package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"goji.io/pat"

	"github.com/edaniels/gopointer"
	"github.com/edaniels/gopointer/discovery"
	"github.com/edaniels/gopointer/overlay"
	"github.com/edaniels/gopointer/transport"
	"github.com/edaniels/gopointer/webrtc"
	"github.com/edaniels/gopointer/ws"
)

func main() {
	goutils.ContextualMain(mainWithArgs, logger)
}

var logger = golog.Global().Named("pointercast")

// Arguments for the command.
type Arguments struct {
	Mode      string              `flag:"0,required,usage=watch or hold"`
	Config    string              `flag:"config,usage=config file (toml, json or yaml)"`
	Host      string              `flag:"host,usage=host to listen on when watching"`
	Port      goutils.NetPortFlag `flag:"port,usage=port to listen on instead of the default candidates"`
	Watchers  string              `flag:"watchers,usage=comma separated host:port watchers to hold for"`
	Discover  bool                `flag:"discover,usage=find a watcher on the local network"`
	Cursor    string              `flag:"cursor,usage=cursor image strip to send"`
	Animation string              `flag:"animation,usage=animation set file to send (toml or json)"`
	Transport string              `flag:"transport,usage=webrtc or websocket"`
	Headless  bool                `flag:"headless,usage=log pointers instead of drawing them"`
	Debug     bool                `flag:"debug"`
}

// apply overrides file settings with any flags that were given.
func (args Arguments) apply(config *gopointer.Config) {
	if args.Host != "" {
		config.Host = args.Host
	}
	if args.Port != 0 {
		config.Ports = []int{int(args.Port)}
	}
	if args.Watchers != "" {
		config.Holder.Watchers = nil
		for _, addr := range strings.Split(args.Watchers, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				config.Holder.Watchers = append(config.Holder.Watchers, addr)
			}
		}
	}
	if args.Discover {
		config.Holder.Discover = true
	}
	if args.Cursor != "" {
		config.Holder.Cursor = args.Cursor
	}
	if args.Animation != "" {
		config.Holder.Animation = args.Animation
	}
	if args.Transport != "" {
		config.Transport = strings.ToLower(args.Transport)
	}
	if args.Headless {
		config.Watcher.Headless = true
	}
	if args.Debug {
		config.Debug = true
	}
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := goutils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	config, err := gopointer.LoadConfig(argsParsed.Config)
	if err != nil {
		return err
	}
	argsParsed.apply(&config)
	if err := config.Validate(); err != nil {
		return err
	}
	if config.Debug {
		logger = golog.NewDebugLogger("pointercast")
	}

	switch argsParsed.Mode {
	case "watch":
		return runWatcher(ctx, config, logger)
	case "hold":
		return runHolder(ctx, config, logger)
	default:
		return errors.Errorf("unknown mode %q; expected watch or hold", argsParsed.Mode)
	}
}

func runWatcher(ctx context.Context, config gopointer.Config, logger golog.Logger) (err error) {
	watcherConfig := config.WatcherConfig()
	watcherConfig.Logger = logger.Named("watcher")

	server := transport.NewServer(transport.ServerConfig{
		Host:      config.Host,
		Ports:     config.Ports,
		QueueSize: watcherConfig.QueueSize,
		Logger:    logger.Named("server"),
	})
	server.Handle(pat.Post(webrtc.OfferPath), webrtc.NewOfferHandler(server.Hub, webrtc.Config{
		WebRTCConfig: webrtc.DefaultConfig.WebRTCConfig,
		Debug:        config.Debug,
		Logger:       logger.Named("webrtc"),
	}))
	server.Handle(pat.Get(ws.Path), ws.NewHandler(server.Hub, logger.Named("ws")))
	if err := server.Start(); err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, server.Close())
	}()

	if config.Watcher.Advertise {
		adv, advErr := discovery.Advertise("", server.Port(), []string{
			"transport=" + config.Transport,
			"offer=" + webrtc.OfferPath,
			"ws=" + ws.Path,
		}, logger.Named("discovery"))
		if advErr != nil {
			// holders can still connect by address
			logger.Warnw("cannot advertise", "error", advErr)
		} else {
			defer func() {
				err = multierr.Combine(err, adv.Close())
			}()
		}
	}

	if config.Watcher.Headless {
		presenter := gopointer.NewLogPresenter(1920, 1080, logger.Named("presenter"))
		watcher, err := gopointer.NewWatcher(server, presenter, watcherConfig)
		if err != nil {
			return err
		}
		defer watcher.Stop()
		return watcher.Run(ctx)
	}

	ov := overlay.New(logger.Named("overlay"))
	watcher, err := gopointer.NewWatcher(server, ov, watcherConfig)
	if err != nil {
		return err
	}
	watcher.Start(ctx)
	defer watcher.Stop()
	return ov.Run(ctx, watcher, watcherConfig.TickInterval)
}

func dial(ctx context.Context, kind, addr string, self transport.PeerID, debug bool, logger golog.Logger) (transport.Transport, error) {
	switch kind {
	case gopointer.TransportWebsocket:
		return ws.Dial(ctx, fmt.Sprintf("ws://%s%s", addr, ws.Path), self, logger.Named("ws"))
	default:
		return webrtc.Dial(ctx, fmt.Sprintf("http://%s%s", addr, webrtc.OfferPath), self, webrtc.Config{
			WebRTCConfig: webrtc.DefaultConfig.WebRTCConfig,
			Debug:        debug,
			Logger:       logger.Named("webrtc"),
		})
	}
}

func runHolder(ctx context.Context, config gopointer.Config, logger golog.Logger) (err error) {
	holderConfig, err := config.HolderConfig()
	if err != nil {
		return err
	}
	holderConfig.ID = uuid.NewString()
	holderConfig.Logger = logger.Named("holder")

	addrs := config.Holder.Watchers
	if config.Holder.Discover {
		found, err := discovery.Browse(ctx, discovery.DefaultBrowseTimeout)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			logger.Warn("no watchers found on the local network")
		} else {
			logger.Infow("found watcher", "instance", found[0].Instance, "addr", found[0].Addr())
			addrs = append(addrs, found[0].Addr())
		}
	}
	if len(addrs) == 0 {
		return errors.New("no watchers to hold for; pass --watchers or --discover")
	}

	var transports []transport.Transport
	for _, addr := range addrs {
		tr, err := dial(ctx, config.Transport, addr, transport.PeerID(holderConfig.ID), config.Debug, logger)
		if err != nil {
			logger.Warnw("cannot reach watcher", "addr", addr, "error", err)
			continue
		}
		transports = append(transports, tr)
	}
	if len(transports) == 0 {
		return errors.Errorf("could not reach any of %v", addrs)
	}
	tr := transport.Fanout(transports...)
	defer func() {
		err = multierr.Combine(err, tr.Close())
	}()

	holder, err := gopointer.NewHolder(tr, holderConfig)
	if err != nil {
		return err
	}
	holder.Start(ctx)
	defer holder.Stop()
	logger.Infow("holding", "id", holder.ID(), "watchers", len(transports))
	return overlay.NewPad(holder).Run(ctx)
}
