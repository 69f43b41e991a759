package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"kandru/audio"
	"kandru/beep"
	"kandru/clipboard"
	"kandru/encoder"
	"kandru/log"
	"kandru/memo"
	"kandru/recorder"
	"kandru/shutdown"
)

type recordFlags struct {
	device    string
	setup     bool
	quality   float64
	container string
	storage   string
	autoStart bool
	headless  bool
	fakeWAV   string
	tone      time.Duration
	realtime  bool
	copyURI   bool
}

func newRecordCmd(a *app) *cobra.Command {
	var f recordFlags
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a voice memo",
		Long: "Open the recorder screen. The first Enter starts recording, the second " +
			"saves the memo and prints its file:// reference. Esc discards it.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runRecord(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.device, "device", "", "use named microphone device")
	fl.BoolVar(&f.setup, "setup", false, "select microphone device interactively")
	fl.Float64Var(&f.quality, "quality", 0, "quality rating 1-3 (default from config)")
	fl.StringVar(&f.container, "container", "", "file container: flac or wav (default from config)")
	fl.StringVar(&f.storage, "storage", "", "storage root; memos go to <root>/Voice Recorder")
	fl.BoolVar(&f.autoStart, "auto-start", false, "start recording as soon as the screen opens")
	fl.BoolVar(&f.headless, "headless", false, "no terminal UI; read commands from stdin")
	fl.StringVar(&f.fakeWAV, "fake", "", "replay a 16-bit mono WAV file instead of the microphone")
	fl.DurationVar(&f.tone, "tone", 0, "replay a synthetic tone of this length instead of the microphone")
	fl.BoolVar(&f.realtime, "realtime", true, "pace --fake/--tone audio in real time")
	fl.BoolVar(&f.copyURI, "copy", false, "copy the saved memo's file:// reference to the clipboard")
	return cmd
}

func (a *app) runRecord(cmd *cobra.Command, f recordFlags) error {
	cfg := *a.cfg
	if cmd.Flags().Changed("quality") {
		cfg.Quality = f.quality
	}
	if f.container != "" {
		c, err := encoder.ParseContainer(f.container)
		if err != nil {
			return err
		}
		cfg.Container = c
	}
	if f.storage != "" {
		cfg.StorageDir = f.storage
	}
	if f.device != "" {
		cfg.Device = f.device
	}
	cfg.AutoStart = cfg.AutoStart || f.autoStart
	cfg.CopyURI = cfg.CopyURI || f.copyURI

	ctx, err := openAudio(f)
	if err != nil {
		return err
	}
	defer ctx.Close()

	var device *audio.DeviceInfo
	if f.setup {
		if device, err = audio.SelectDevice(ctx); err != nil {
			return err
		}
	} else if cfg.Device != "" {
		if device, err = audio.FindDevice(ctx, cfg.Device); err != nil {
			return err
		}
		if device == nil {
			log.Warnf("device %q not found, using system default", cfg.Device)
			fmt.Fprintf(os.Stderr, "Warning: device %q not found, using system default\n", cfg.Device)
		}
	}

	tap := &captureTap{Context: ctx}
	perm := audio.NewDevicePermission(ctx, func() {
		log.Warn("no capture source visible")
		fmt.Fprintln(os.Stderr, "Microphone access is needed to record memos. "+
			"Check that a capture source is connected and not blocked for this user.")
	})

	opts := memo.Options{
		Permission: perm,
		NewResource: func(rc recorder.Config) memo.Resource {
			return recorder.New(tap, rc)
		},
		StorageDir: cfg.StorageDir,
		Container:  cfg.Container,
		Device:     device,
		Rating:     cfg.Quality,
		AutoStart:  cfg.AutoStart,
	}

	var result memo.Result
	if f.headless {
		ctrl := memo.New(opts)
		stop := shutdown.OnSignal(ctrl.Close)
		defer stop()
		result = runHeadless(ctrl, tap, os.Stdin, cmd.OutOrStdout())
	} else {
		result, err = runRecordTUI(opts, deviceLabel(device))
		if err != nil {
			return err
		}
	}
	return reportResult(cmd.OutOrStdout(), result, cfg.CopyURI)
}

func openAudio(f recordFlags) (audio.Context, error) {
	switch {
	case f.fakeWAV != "":
		ctx, err := audio.NewFakeContext(f.fakeWAV, f.realtime)
		if err != nil {
			return nil, fmt.Errorf("loading WAV: %w", err)
		}
		return ctx, nil
	case f.tone > 0:
		return audio.NewToneContext(440, 8000, f.tone, encoder.SampleRate, f.realtime), nil
	}
	ctx, err := audio.NewContext()
	if err != nil {
		return nil, fmt.Errorf("initializing audio: %w", err)
	}
	return ctx, nil
}

func deviceLabel(dev *audio.DeviceInfo) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			suffix = " (BT!)"
		}
	}
	return "mic: " + name + suffix
}

// accept runs the primary action and plays the matching cue.
func accept(ctrl *memo.Controller) memo.StartStatus {
	wasRecording := ctrl.Snapshot().State == memo.Recording
	st := ctrl.Accept()
	switch {
	case st == memo.Started:
		beep.PlayStart()
	case st == memo.StartFailed && !ctrl.Finished():
		beep.PlayError()
	case wasRecording && ctrl.Finished():
		beep.PlaySaved()
	}
	return st
}

func reportResult(w io.Writer, r memo.Result, copyURI bool) error {
	if !r.OK {
		fmt.Fprintln(w, "recording canceled")
		return nil
	}
	fmt.Fprintln(w, r.URI)
	if copyURI {
		if err := clipboard.Copy(r.URI); err != nil {
			log.Warnf("clipboard copy failed: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: could not copy to clipboard: %v\n", err)
		}
	}
	return nil
}

var errNoCapture = errors.New("no capture opened yet")
