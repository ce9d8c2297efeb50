package metrics

import (
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry = prometheus.NewRegistry()

	gameRunning = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "protonctl",
		Name:      "game_running",
		Help:      "Whether a game is currently supervised (1=running, 0=not running).",
	}, []string{"game"})

	launches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protonctl",
		Name:      "launches_total",
		Help:      "Launch attempts partitioned by outcome.",
	}, []string{"result"})

	terminations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protonctl",
		Name:      "terminal_notifications_total",
		Help:      "Terminal notifications emitted, partitioned by reason.",
	}, []string{"reason"})

	sweeps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protonctl",
		Name:      "prefix_sweeps_total",
		Help:      "Background prefix session sweeps partitioned by outcome.",
	}, []string{"result"})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "protonctl",
		Name:      "build_info",
		Help:      "Build metadata for the running protonctl binary.",
	}, []string{"go_version", "vcs", "vcs_revision", "vcs_time", "vcs_modified"})

	buildInfoOnce sync.Once
)

// Launch outcomes.
const (
	LaunchStarted  = "started"
	LaunchRejected = "rejected"
	LaunchInvalid  = "invalid"
	LaunchFailed   = "spawn_failed"
)

func init() {
	registry.MustRegister(gameRunning, launches, terminations, sweeps, buildInfo)
}

// Registry returns the Prometheus registry containing all protonctl metrics.
func Registry() *prometheus.Registry {
	return registry
}

// SetGameRunning records whether the named game is supervised.
func SetGameRunning(game string, running bool) {
	if game == "" {
		return
	}
	value := 0.0
	if running {
		value = 1.0
	}
	gameRunning.WithLabelValues(game).Set(value)
}

// ObserveLaunch increments the launch counter for an outcome.
func ObserveLaunch(result string) {
	if result == "" {
		return
	}
	launches.WithLabelValues(result).Inc()
}

// ObserveTermination increments the terminal notification counter.
func ObserveTermination(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	terminations.WithLabelValues(reason).Inc()
}

// ObserveSweep records the outcome of a prefix session sweep.
func ObserveSweep(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	sweeps.WithLabelValues(result).Inc()
}

// EmitBuildInfo publishes build metadata about the running binary.
func EmitBuildInfo() {
	buildInfoOnce.Do(func() {
		labels := prometheus.Labels{
			"go_version":   runtime.Version(),
			"vcs":          "",
			"vcs_revision": "",
			"vcs_time":     "",
			"vcs_modified": "",
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.GoVersion != "" {
				labels["go_version"] = info.GoVersion
			}
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs":
					labels["vcs"] = setting.Value
				case "vcs.revision":
					labels["vcs_revision"] = setting.Value
				case "vcs.time":
					labels["vcs_time"] = setting.Value
				case "vcs.modified":
					labels["vcs_modified"] = setting.Value
				}
			}
		}
		buildInfo.With(labels).Set(1)
	})
}

// ResetGame clears the per-game gauge.
func ResetGame(game string) {
	if game == "" {
		return
	}
	gameRunning.DeleteLabelValues(game)
}
