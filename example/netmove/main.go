package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/chewxy/math32"
	"github.com/elliotchance/orderedmap/v2"
	"github.com/getsentry/sentry-go"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/netmove/authority"
	"github.com/oomph-ac/netmove/move"
	"github.com/oomph-ac/netmove/movement"
	"github.com/oomph-ac/netmove/prediction"
	"github.com/oomph-ac/netmove/settings"
	"github.com/oomph-ac/netmove/simulation"
	"github.com/oomph-ac/netmove/transport"
	"github.com/oomph-ac/netmove/utils"
	"github.com/oomph-ac/netmove/worker"
	"github.com/sirupsen/logrus"
)

var CLI struct {
	Config string `help:"Path of the settings file. It is created with defaults if missing." default:"netmove.toml" type:"path"`

	Simulate struct {
		Ticks     int           `help:"Amount of ticks to simulate." default:"1000"`
		Latency   int           `help:"One way latency of the link, in ticks." default:"3"`
		Jitter    int           `help:"Maximum additional latency, in ticks." default:"2"`
		Loss      float64       `help:"Fraction of packets dropped." default:"0.05"`
		Duplicate float64       `help:"Fraction of packets duplicated." default:"0.02"`
		Seed      uint64        `help:"Seed of the link." default:"1"`
		Rate      time.Duration `help:"Wall clock time per tick. Zero runs as fast as possible." default:"0"`
	} `cmd:"" help:"Run a predicting client and an authoritative hub over a simulated lossy link."`

	Serve struct {
		Address string `arg:"" optional:"" help:"Address to listen on." default:":19132"`
	} `cmd:"" help:"Run an authoritative hub accepting RakNet connections."`

	Dial struct {
		Address string `arg:"" help:"Address of the hub."`
		Ticks   int    `help:"Amount of ticks to run. Zero runs until interrupted." default:"0"`
	} `cmd:"" help:"Run a scripted predicting client against a remote hub."`
}

const (
	tickRate = 64
	tickDt   = float32(1) / tickRate
)

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("netmove"),
		kong.Description("client-side movement prediction with server reconciliation"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true, Summary: true}))

	s, err := loadSettings(CLI.Config)
	if err != nil {
		writeError(err)
	}
	log, err := s.Logger()
	if err != nil {
		writeError(err)
	}

	if s.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: s.Sentry.DSN}); err != nil {
			writeError(fmt.Errorf("sentry init: %v", err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	if os.Getenv("PPROF_ENABLED") != "" {
		// set configurations before calling `statsview.New()` method
		viewer.SetConfiguration(viewer.WithTheme(viewer.ThemeWesteros), viewer.WithAddr("localhost:8080"))

		mgr := statsview.New()
		go mgr.Start()
	}

	switch ctx.Command() {
	case "simulate":
		err = simulate(s, log)
	case "serve", "serve <address>":
		err = serve(s, log, CLI.Serve.Address)
	case "dial <address>":
		err = dial(s, log, CLI.Dial.Address, CLI.Dial.Ticks)
	default:
		err = fmt.Errorf("unknown command %q", ctx.Command())
	}
	if err != nil {
		writeError(err)
	}
}

func writeError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

func loadSettings(path string) (settings.Settings, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := settings.SaveDefault(path); err != nil {
			return settings.Settings{}, err
		}
	}
	return settings.Load(path)
}

func newClient(s settings.Settings, log *logrus.Logger, entity string) *prediction.Context {
	exec := movement.NewExecutor(simulation.NewSimulator(s.SimulationOptions()), s.ExecutorOptions())
	return prediction.NewContext(entity, exec, spawnState(), s.PredictionConfig(), log)
}

func newHub(s settings.Settings, log *logrus.Logger) *authority.Hub {
	return authority.NewHub(simulation.NewSimulator(s.SimulationOptions()), s.ExecutorOptions(), worker.NewPool(0, log), log)
}

func spawnState() movement.State {
	return movement.NewState(mgl32.Vec3{0, 0, 0}, movement.ModeGrounded)
}

// scriptedIntent walks in a circle, jumps every two seconds, grapples towards a moving target and flies
// for a while, covering every built in mode.
func scriptedIntent(tick int) move.Intent {
	phase := tick % 1024
	angle := float32(tick) * tickDt
	intent := move.Intent{
		Acceleration: mgl32.Vec3{math32.Cos(angle), math32.Sin(angle), 0}.Mul(1200),
	}
	if phase%128 == 0 {
		intent.WantsToLaunch = true
		intent.LaunchVelocity = mgl32.Vec3{0, 0, 420}
	}
	if phase >= 300 && phase < 420 {
		intent.WantsToPull = true
		intent.PullTarget = mgl32.Vec3{800 + float32(phase)*2, 400, 600}
	}
	if phase >= 600 && phase < 800 {
		intent.WantsToFly = true
		intent.Acceleration[2] = 300
	}
	if phase == 900 {
		intent.WantsToLaunch = true
		intent.LaunchVelocity = mgl32.Vec3{0, 0, 900}
		intent.LaunchOverrideZ = true
	}
	return intent
}

// drain hands every pending packet of the connection to the predicting side.
func drain(conn transport.Conn, ctx *prediction.Context, log *logrus.Logger) error {
	for {
		b, ok, err := conn.ReadPacket()
		if err != nil {
			return err
		} else if !ok {
			return nil
		}
		if err := ctx.HandlePacket(b); err != nil {
			log.Debugf("dropped update: %v", err)
		}
	}
}

func simulate(s settings.Settings, log *logrus.Logger) error {
	conf := CLI.Simulate
	link := transport.NewLink(transport.LinkOptions{
		Latency:   conf.Latency,
		Jitter:    conf.Jitter,
		Loss:      conf.Loss,
		Duplicate: conf.Duplicate,
		Seed:      conf.Seed,
	})
	clientConn, serverConn := link.Ends()

	hub := newHub(s, log)
	defer hub.Close()
	session, err := hub.Spawn("simulated", serverConn, spawnState())
	if err != nil {
		return err
	}

	ctx := newClient(s, log, "simulated")
	defer ctx.Close()
	ctx.Handle(&logHandler{log: log})

	for tick := range conf.Ticks {
		if _, err := ctx.Tick(scriptedIntent(tick), tickDt); err != nil {
			log.Debugf("tick %d: %v", tick, err)
		}
		if err := ctx.Flush(clientConn); err != nil {
			return err
		}
		link.Tick()
		hub.Tick()
		if err := drain(clientConn, ctx, log); err != nil {
			return err
		}
		if conf.Rate > 0 {
			time.Sleep(conf.Rate)
		}
	}

	cs, ss := ctx.Stats(), session.Stats()
	report := orderedmap.NewOrderedMap[string, any]()
	report.Set("ticks", conf.Ticks)
	report.Set("sent", cs.Sent)
	report.Set("combined", cs.Combined)
	report.Set("acknowledged", cs.Acknowledged)
	report.Set("corrections", cs.Corrections)
	report.Set("resyncs", cs.Resyncs)
	report.Set("stale", cs.Stale)
	report.Set("applied", ss.Applied)
	report.Set("duplicates", ss.Duplicates)
	report.Set("out_of_order", ss.OutOfOrder)
	report.Set("clamped", ss.Clamped)
	report.Set("pending", ctx.Buffer().Len())
	log.Infof("simulation finished %s", utils.OrderedMapToString(report))
	log.Infof("predicted %v, authoritative %v", ctx.State().Pos, session.State().Pos)
	return nil
}

func serve(s settings.Settings, log *logrus.Logger, address string) error {
	listener, err := transport.ListenRakNet(address, log)
	if err != nil {
		return err
	}
	defer listener.Close()
	log.Infof("listening on %v", listener.Addr())

	hub := newHub(s, log)
	defer hub.Close()

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				log.Debugf("accept: %v", err)
				return
			}
			entity := conn.RemoteAddr().String()
			if _, err := hub.Spawn(entity, conn, spawnState()); err != nil {
				log.Warnf("spawn %s: %v", entity, err)
				_ = conn.Close()
				continue
			}
			log.Infof("%s connected", entity)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	ticker := time.NewTicker(time.Second / tickRate)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			hub.Tick()
		case <-interrupt:
			log.Info("shutting down")
			return nil
		}
	}
}

func dial(s settings.Settings, log *logrus.Logger, address string, ticks int) error {
	conn, err := transport.DialRakNet(address, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx := newClient(s, log, conn.RemoteAddr().String())
	defer ctx.Close()
	ctx.Handle(&logHandler{log: log})

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	ticker := time.NewTicker(time.Second / tickRate)
	defer ticker.Stop()
	for tick := 0; ticks == 0 || tick < ticks; tick++ {
		select {
		case <-ticker.C:
		case <-interrupt:
			return nil
		}
		if err := drain(conn, ctx, log); err != nil {
			return err
		}
		if _, err := ctx.Tick(scriptedIntent(tick), tickDt); err != nil {
			log.Debugf("tick %d: %v", tick, err)
		}
		if err := ctx.Flush(conn); err != nil {
			return err
		}
	}
	log.Infof("finished at %v after %d corrections", ctx.State().Pos, ctx.Stats().Corrections)
	return nil
}

type logHandler struct {
	prediction.NopHandler
	log *logrus.Logger
}

func (h *logHandler) HandleCorrection(c prediction.Correction) {
	h.log.Debugf("correction at %d: replayed %d moves", c.Sequence, c.Replayed)
}

func (h *logHandler) HandleResync(u transport.Update) {
	h.log.Infof("resynced at %d", u.Sequence)
}
