package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Watchdog keys
const (
	CheckSecondsKey       = "watchdog.check_seconds"
	SuccessivePassesKey   = "watchdog.check_successive_passes"
	SuccessiveSecondsKey  = "watchdog.check_successive_seconds"
	HistorySecondsKey     = "watchdog.health_check_history"
	HealthyPercKey        = "watchdog.health_check_healthy_perc"
	RecoveryPercKey       = "watchdog.health_check_recovery_perc"
	StateDirKey           = "watchdog.state_dir"
	OKFileKey             = "watchdog.ok_file"
	ActionTimeoutKey      = "watchdog.action_timeout"
	ProbeTimeoutKey       = "watchdog.probe_timeout"
	StateBackupsKey       = "watchdog.state_backups"
	BootSuccessCommandKey = "watchdog.boot_success_command"

	TunnelHostKey = "reverse_tunnel.host"
	TunnelPortKey = "reverse_tunnel.port"

	ActionsKey = "actions"
)

// Action kinds understood by the host action builder.
const (
	KindRestartServices = "restart-services"
	KindReboot          = "reboot"
	KindPoweroff        = "poweroff"
	KindKernelReboot    = "kernel-reboot"
	KindCommand         = "command"
)

// Unlimited is the max_resets value for an action without an invocation budget.
const Unlimited = -1

// Settings is the typed view of the whole configuration file.
type Settings struct {
	LogLevel  string
	LogFormat string
	Watchdog  WatchdogSettings
	Tunnel    TunnelSettings
	Actions   []ActionSettings
}

// WatchdogSettings holds the global [watchdog] section.
type WatchdogSettings struct {
	CheckSeconds       float64
	SuccessivePasses   int
	SuccessiveSeconds  float64
	HistorySeconds     float64
	HealthyPerc        float64
	RecoveryPerc       float64
	StateDir           string
	OKFile             string
	ActionTimeout      time.Duration
	ProbeTimeout       time.Duration
	StateBackups       int
	BootSuccessCommand []string
}

// TunnelSettings identifies the remote end of the reverse tunnel.
type TunnelSettings struct {
	Host string
	Port int
}

// ActionSettings is one recovery action section.
type ActionSettings struct {
	Name             string    `mapstructure:"name"`
	Kind             string    `mapstructure:"kind"`
	ResetStart       float64   `mapstructure:"reset_start"`
	Resets           []float64 `mapstructure:"resets"`
	ResetInterval    float64   `mapstructure:"reset_interval"`
	MaxResets        *int      `mapstructure:"max_resets"`
	ResetOnHealthy   *bool     `mapstructure:"reset_on_healthy"`
	CurrentResetFile string    `mapstructure:"current_reset_file"`
	Services         []string  `mapstructure:"services"`
	DeviceGlobs      []string  `mapstructure:"device_globs"`
	Command          []string  `mapstructure:"command"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(LogLevelKey, "INFO")
	v.SetDefault(LogFormatKey, "json")
	v.SetDefault(CheckSecondsKey, 15.0)
	v.SetDefault(SuccessivePassesKey, 3)
	v.SetDefault(SuccessiveSecondsKey, 5.0)
	v.SetDefault(HistorySecondsKey, 0.0)
	v.SetDefault(HealthyPercKey, 0.9)
	v.SetDefault(RecoveryPercKey, 0.5)
	v.SetDefault(StateDirKey, "/var/lib/nwwatchdog")
	v.SetDefault(ActionTimeoutKey, 2*time.Minute)
	v.SetDefault(ProbeTimeoutKey, 10*time.Second)
	v.SetDefault(StateBackupsKey, 0)
}

// Load assembles Settings from the initialized configuration and normalizes it.
// It does not validate; call Validate on the result.
func Load() (*Settings, error) {
	cfg := getInstance()
	if err := cfg.ensureInitialized(); err != nil {
		return nil, err
	}
	if cfg.loadErr != nil {
		return nil, cfg.loadErr
	}

	s := &Settings{
		LogLevel:  GetString(LogLevelKey),
		LogFormat: GetString(LogFormatKey),
		Watchdog: WatchdogSettings{
			CheckSeconds:       GetFloat64(CheckSecondsKey),
			SuccessivePasses:   GetInt(SuccessivePassesKey),
			SuccessiveSeconds:  GetFloat64(SuccessiveSecondsKey),
			HistorySeconds:     GetFloat64(HistorySecondsKey),
			HealthyPerc:        GetFloat64(HealthyPercKey),
			RecoveryPerc:       GetFloat64(RecoveryPercKey),
			StateDir:           GetString(StateDirKey),
			OKFile:             GetString(OKFileKey),
			ActionTimeout:      GetDuration(ActionTimeoutKey),
			ProbeTimeout:       GetDuration(ProbeTimeoutKey),
			StateBackups:       GetInt(StateBackupsKey),
			BootSuccessCommand: GetStringSlice(BootSuccessCommandKey),
		},
		Tunnel: TunnelSettings{
			Host: GetString(TunnelHostKey),
			Port: GetInt(TunnelPortKey),
		},
	}

	if err := UnmarshalKey(ActionsKey, &s.Actions); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", ActionsKey, err)
	}

	Normalize(s)
	return s, nil
}

// CheckInterval is the sleep between ticks.
func (w WatchdogSettings) CheckInterval() time.Duration {
	return seconds(w.CheckSeconds)
}

// SuccessiveSpacing is the wait between hysteresis passes.
func (w WatchdogSettings) SuccessiveSpacing() time.Duration {
	return seconds(w.SuccessiveSeconds)
}

// HistoryWindow is the rolling-window length; zero disables window mode.
func (w WatchdogSettings) HistoryWindow() time.Duration {
	return seconds(w.HistorySeconds)
}

// WindowMode reports whether the rolling-window verdict is selected.
func (w WatchdogSettings) WindowMode() bool {
	return w.HistorySeconds > 0
}

// WorstCaseTick bounds the time one tick spends before consulting the ladder.
func (w WatchdogSettings) WorstCaseTick() time.Duration {
	if w.WindowMode() {
		return w.CheckInterval() + w.ProbeTimeout
	}
	perPass := w.SuccessiveSpacing() + w.ProbeTimeout
	return w.CheckInterval() + time.Duration(w.SuccessivePasses)*perPass
}

// HeartbeatGap is the longest stretch between two heartbeats: beats are sent at
// the start of a tick, before every probe pass and before firing an action.
func (w WatchdogSettings) HeartbeatGap() time.Duration {
	probeGap := w.ProbeTimeout + w.CheckInterval()
	if !w.WindowMode() {
		probeGap += w.SuccessiveSpacing()
	}
	actionGap := w.ActionTimeout + w.CheckInterval()
	if actionGap > probeGap {
		return actionGap
	}
	return probeGap
}

// Thresholds returns the configured firing thresholds in declaration order.
func (a ActionSettings) Thresholds() []time.Duration {
	if len(a.Resets) > 0 {
		out := make([]time.Duration, 0, len(a.Resets))
		for _, r := range a.Resets {
			out = append(out, seconds(r))
		}
		return out
	}
	return []time.Duration{seconds(a.ResetStart)}
}

// Interval is the re-fire period of a periodic action; zero for one-shot actions.
func (a ActionSettings) Interval() time.Duration {
	return seconds(a.ResetInterval)
}

// Budget returns max_resets, or 0 when unset.
func (a ActionSettings) Budget() int {
	if a.MaxResets == nil {
		return 0
	}
	return *a.MaxResets
}

// ResetsOnHealthy reports whether the persisted counter is forgiven on health.
func (a ActionSettings) ResetsOnHealthy() bool {
	return a.ResetOnHealthy == nil || *a.ResetOnHealthy
}

// CounterPath resolves current_reset_file against the state directory.
func (a ActionSettings) CounterPath(stateDir string) string {
	if filepath.IsAbs(a.CurrentResetFile) {
		return a.CurrentResetFile
	}
	return filepath.Join(stateDir, a.CurrentResetFile)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
