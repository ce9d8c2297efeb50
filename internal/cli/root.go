package cli

import (
	stdcontext "context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Paintersrp/protonctl/internal/config"
	"github.com/Paintersrp/protonctl/internal/engine"
	"github.com/Paintersrp/protonctl/internal/probe"
	"github.com/Paintersrp/protonctl/internal/runtime"
	"github.com/Paintersrp/protonctl/internal/runtime/process"
)

const (
	envPrefix       = "PROTONCTL"
	defaultAPIAddr  = "127.0.0.1:7663"
	eventBuffer     = 256
	eventBacklogLen = 200
)

func NewRootCmd() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *context) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "protonctl",
		Short: "Launch and supervise games running under Proton",
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Path to the launcher configuration (default $XDG_CONFIG_HOME/protonctl/config.yaml)")
	flags.String("addr", defaultAPIAddr, "Address of the HTTP control API")
	flags.Duration("poll-interval", engine.DefaultPollInterval, "How often running games are checked for exit")
	_ = v.BindPFlags(flags)

	ctx := &context{settings: v}
	root.AddCommand(newServeCmd(ctx))
	root.AddCommand(newLaunchCmd(ctx))
	root.AddCommand(newKillCmd(ctx))
	root.AddCommand(newStatusCmd(ctx))
	root.AddCommand(newHealthCmd(ctx))
	root.AddCommand(newScanCmd(ctx))
	root.AddCommand(newWinetricksCmd(ctx))
	root.AddCommand(newTuiCmd(ctx))
	root.AddCommand(newConfigCmd(ctx))

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root, ctx
}

// Execute runs the CLI entrypoint.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, cliCtx := newRootCommand()
	defer cliCtx.shutdown()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		cliCtx.shutdown()
		os.Exit(1)
	}
}

// context holds the state shared by commands of one invocation. The
// supervisor is created on first use so read-only commands never spawn its
// background goroutines.
type context struct {
	settings *viper.Viper

	// Overridable for tests.
	runtime    runtime.Runtime
	engineOpts []engine.Option
	prober     *probe.Prober

	mu         sync.Mutex
	supervisor *engine.Supervisor
	stream     *eventStream
	stop       chan struct{}
	pumpDone   chan struct{}
}

func (c *context) configPaths() config.Paths {
	return config.PathsFor(c.settings.GetString("config"))
}

func (c *context) configPath() string {
	return c.configPaths().Current
}

func (c *context) apiAddr() string {
	if addr := strings.TrimSpace(c.settings.GetString("addr")); addr != "" {
		return addr
	}
	return defaultAPIAddr
}

func (c *context) pollInterval() time.Duration {
	if d := c.settings.GetDuration("poll-interval"); d > 0 {
		return d
	}
	return engine.DefaultPollInterval
}

func (c *context) loadConfig() (*config.Record, error) {
	return config.Load(c.configPaths())
}

func (c *context) saveConfig(rec *config.Record) error {
	return config.Save(c.configPath(), rec)
}

func (c *context) lookupGame(name string) (*config.Record, int, error) {
	rec, err := c.loadConfig()
	if err != nil {
		return nil, -1, err
	}
	for i := range rec.Launches {
		if rec.Launches[i].Name == name {
			return rec, i, nil
		}
	}
	return rec, -1, nil
}

func (c *context) getProber() *probe.Prober {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.prober == nil {
		c.prober = probe.New()
	}
	return c.prober
}

// getSupervisor returns the shared supervisor, starting it and the event pump
// on first use.
func (c *context) getSupervisor() *engine.Supervisor {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.supervisor != nil {
		return c.supervisor
	}

	rt := c.runtime
	if rt == nil {
		rt = process.New()
	}
	events := make(chan engine.Event, eventBuffer)
	opts := append([]engine.Option{engine.WithPollInterval(c.pollInterval())}, c.engineOpts...)

	c.stream = newEventStream(eventBacklogLen)
	c.stop = make(chan struct{})
	c.pumpDone = make(chan struct{})
	c.supervisor = engine.New(rt, events, opts...)

	go c.pump(events, c.stream, c.stop, c.pumpDone)
	return c.supervisor
}

func (c *context) pump(events <-chan engine.Event, stream *eventStream, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer stream.Close()
	for {
		select {
		case <-stop:
			return
		case evt := <-events:
			stream.Publish(evt)
		}
	}
}

// subscribe attaches to the supervisor event stream. The supervisor is
// started if needed.
func (c *context) subscribe(buffer int) (<-chan engine.Event, func()) {
	c.getSupervisor()
	c.mu.Lock()
	stream := c.stream
	c.mu.Unlock()
	ch, release, _ := stream.Subscribe(buffer)
	return ch, release
}

// shutdown stops monitor loops and the event pump. Running games are left
// alone.
func (c *context) shutdown() {
	c.mu.Lock()
	sup := c.supervisor
	stop := c.stop
	done := c.pumpDone
	stream := c.stream
	c.supervisor = nil
	c.stop = nil
	c.mu.Unlock()

	if sup == nil {
		return
	}
	sup.Close()
	stream.Close()
	close(stop)
	<-done
}
