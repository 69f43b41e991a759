package doctor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"kandru/accounts"
	"kandru/audio"
	"kandru/clipboard"
	"kandru/encoder"
	"kandru/memo"
	"kandru/recorder"
)

type Options struct {
	Audio      audio.Context
	Device     *audio.DeviceInfo
	StorageDir string
	AccountsDB string
	Container  encoder.Container
	CaptureFor time.Duration
	Clipboard  bool
	Out        io.Writer
}

type check struct {
	name string
	run  func(o *Options) error
}

var checks = []check{
	{"Audio server and capture devices", checkDevices},
	{"Microphone capture", checkCapture},
	{"Memo storage", checkStorage},
	{"Account store", checkAccounts},
	{"Clipboard", checkClipboard},
}

// Run executes the diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(o Options) int {
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.CaptureFor == 0 {
		o.CaptureFor = 2 * time.Second
	}
	resetTerminal()

	fmt.Fprintln(o.Out, "kandru doctor - system diagnostics")
	fmt.Fprintln(o.Out, "==================================")

	allPass := true
	for i, c := range checks {
		fmt.Fprintln(o.Out)
		fmt.Fprintf(o.Out, "[%d/%d] %s\n", i+1, len(checks), c.name)
		if err := c.run(&o); err != nil {
			fmt.Fprintf(o.Out, "  FAIL: %v\n", err)
			allPass = false
		}
	}

	fmt.Fprintln(o.Out)
	if allPass {
		fmt.Fprintln(o.Out, "All checks passed!")
		return 0
	}
	fmt.Fprintln(o.Out, "Some checks failed. See details above.")
	return 1
}

func pass(o *Options, format string, args ...any) {
	fmt.Fprintf(o.Out, "  PASS: "+format+"\n", args...)
}

func checkDevices(o *Options) error {
	if o.Audio == nil {
		return fmt.Errorf("cannot connect to audio")
	}
	devices, err := o.Audio.Devices()
	if err != nil {
		return fmt.Errorf("cannot list devices: %w", err)
	}
	if len(devices) == 0 {
		return fmt.Errorf("no capture devices found (microphone permission missing?)")
	}
	for _, d := range devices {
		tag := ""
		if audio.IsBluetooth(d.Name) {
			tag = " [bluetooth, lower quality]"
		}
		fmt.Fprintf(o.Out, "  - %s%s\n", d.Name, tag)
	}
	pass(o, "%d capture device(s)", len(devices))
	return nil
}

// checkCapture records a short throwaway memo through the same recorder the
// record command uses.
func checkCapture(o *Options) error {
	if o.Audio == nil {
		return fmt.Errorf("no audio context")
	}
	dir, err := os.MkdirTemp("", "kandru-doctor-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "doctor."+o.Container.Ext())
	rec := recorder.New(o.Audio, recorder.Config{
		Source:     recorder.SourceMic,
		Container:  o.Container,
		Bitrate:    memo.QualityBitrate(2),
		OutputPath: path,
		Device:     o.Device,
	})
	defer rec.Release()

	if err := rec.Prepare(); err != nil {
		return err
	}
	if err := rec.Start(); err != nil {
		return err
	}

	fmt.Fprintf(o.Out, "  Recording %.1fs, speak now", o.CaptureFor.Seconds())
	peak := 0
	deadline := time.Now().Add(o.CaptureFor)
	for time.Now().Before(deadline) {
		time.Sleep(memo.TickInterval)
		peak = max(peak, rec.MaxAmplitude())
	}
	fmt.Fprintln(o.Out, " done")

	if err := rec.Stop(); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if rec.Frames() == 0 {
		return fmt.Errorf("no audio captured")
	}
	pass(o, "%d frames, %.1f KB, peak level %d", rec.Frames(), float64(info.Size())/1024, peak)
	if peak < memo.InputFloor {
		fmt.Fprintln(o.Out, "  Warning: input is nearly silent, check the microphone")
	}
	return nil
}

func checkStorage(o *Options) error {
	dir := filepath.Join(o.StorageDir, memo.DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}
	probe := filepath.Join(dir, ".kandru-doctor-"+uuid.NewString())
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("%s is not writable: %w", dir, err)
	}
	os.Remove(probe)
	pass(o, "memos are saved to %s", dir)
	return nil
}

func checkAccounts(o *Options) error {
	store, err := accounts.Open(o.AccountsDB)
	if err != nil {
		return err
	}
	defer store.Close()
	list, err := store.List()
	if err != nil {
		return err
	}
	pass(o, "%d account(s) in %s", len(list), store.Path())
	return nil
}

func checkClipboard(o *Options) error {
	if !o.Clipboard {
		fmt.Fprintln(o.Out, "  SKIP: copy_uri is off")
		return nil
	}
	if !clipboard.Supported() {
		return clipboard.ErrUnsupported
	}
	want := "kandru-doctor-" + uuid.NewString()
	if err := clipboard.Copy(want); err != nil {
		return fmt.Errorf("clipboard write failed: %w", err)
	}
	got, err := clipboard.Read()
	if err != nil {
		return fmt.Errorf("clipboard read failed: %w", err)
	}
	if got != want {
		return fmt.Errorf("clipboard mismatch: wrote %q, got %q", want, got)
	}
	pass(o, "clipboard write/read verified")
	return nil
}
