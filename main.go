package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/spf13/cobra"

	"kandru/beep"
	"kandru/config"
	"kandru/log"
)

var version = "dev"

type globalFlags struct {
	configPath string
	logPath    string
	noBeep     bool
}

type app struct {
	flags globalFlags
	cfg   *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "kandru",
		Short:         "Voice memos and account onboarding for the kandru XMPP client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Name())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			log.Close()
		},
	}
	root.Version = version
	root.SetVersionTemplate("kandru {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/kandru/config.toml)")
	pf.StringVar(&a.flags.logPath, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	pf.BoolVar(&a.flags.noBeep, "no-beep", false, "disable cue tones")

	root.AddCommand(
		newRecordCmd(a),
		newWelcomeCmd(a),
		newAccountsCmd(a),
		newDevicesCmd(a),
		newDoctorCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup resolves the log directory, installs the crash log, loads the
// config and opens the diagnostics log.
func (a *app) setup(command string) error {
	logPath, err := log.ResolveDir(a.flags.logPath)
	if err != nil {
		return fmt.Errorf("failed to resolve log directory: %w", err)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()

	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	if a.flags.noBeep || !cfg.Beep {
		beep.Disable()
	}
	if beep.Enabled() && command == "record" {
		beep.Init()
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	} else {
		log.SessionStart(command, version)
		if cfg.Path != "" {
			log.Infof("config loaded from %s", cfg.Path)
		}
	}
	return nil
}

func initCrashLog() {
	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kandru %s\n", version)
		},
	}
}
