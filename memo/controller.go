// Package memo drives a single voice-memo recording: it owns the capture
// resource from Start to Stop, samples it on a periodic tick, and decides at
// stop time whether the file is kept.
package memo

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"kandru/audio"
	"kandru/encoder"
	"kandru/log"
	"kandru/recorder"
)

const (
	TickInterval = 100 * time.Millisecond
	RingCapacity = 100

	NoticeStartFailed = "Unable to start recording"
)

// Resource is the capture handle the controller owns while recording.
type Resource interface {
	Prepare() error
	Start() error
	Stop() error
	Release()
	MaxAmplitude() int
}

type ResourceFactory func(cfg recorder.Config) Resource

type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

type StartStatus int

const (
	Started StartStatus = iota
	StartCanceled
	StartFailed
	AlreadyStarted
)

// Result is what the screen hands back to whoever opened it.
type Result struct {
	OK   bool
	Path string
	URI  string
}

type Options struct {
	Permission  audio.Permission
	NewResource ResourceFactory
	Scheduler   Scheduler

	// StorageDir is the root the "Voice Recorder" directory lives in.
	StorageDir string
	Container  encoder.Container
	Device     *audio.DeviceInfo
	Rating     float64
	AutoStart  bool

	Now func() time.Time
}

type Snapshot struct {
	State         State
	Elapsed       string
	Amplitudes    []int
	Level         int
	Rating        float64
	AcceptEnabled bool
	Notice        string
	NoInput       bool
	OutputPath    string
	Finished      bool
}

type Controller struct {
	opts Options
	now  func() time.Time

	mu             sync.Mutex
	id             string
	started        bool
	res            Resource
	startedAt      time.Time
	lastElapsed    time.Duration
	outputPath     string
	cancelTick     func()
	ring           *AmplitudeRing
	silence        *silenceMonitor
	rating         float64
	acceptDisabled bool
	notice         string

	finishOnce sync.Once
	finished   bool
	result     Result
	done       chan Result
}

func New(opts Options) *Controller {
	if opts.Scheduler == nil {
		opts.Scheduler = TickerScheduler{}
	}
	if opts.Container == "" {
		opts.Container = encoder.ContainerFLAC
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		opts:    opts,
		now:     now,
		ring:    NewAmplitudeRing(RingCapacity),
		silence: newSilenceMonitor(TickInterval, InputFloor),
		rating:  opts.Rating,
		done:    make(chan Result, 1),
	}
}

// Open is called when the hosting screen becomes visible.
func (c *Controller) Open() {
	log.Infof("recorder screen open, next output: %s",
		OutputPath(c.opts.StorageDir, c.now(), c.opts.Container.Ext()))
	if c.opts.AutoStart {
		c.Start()
	}
}

// Close is called on teardown. An active recording is discarded.
func (c *Controller) Close() {
	c.Stop(false)
	c.finish(Result{})
}

// SetRating changes the quality rating; ignored once recording started.
func (c *Controller) SetRating(r float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		c.rating = r
	}
}

func (c *Controller) Start() StartStatus {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if started {
		return AlreadyStarted
	}

	if c.opts.Permission == nil || !c.opts.Permission.Granted() {
		if c.opts.Permission != nil {
			c.opts.Permission.Request()
		}
		log.Warn("record permission missing, canceling")
		c.finish(Result{})
		return StartCanceled
	}

	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return AlreadyStarted
	}
	c.started = true
	c.id = uuid.NewString()
	path := OutputPath(c.opts.StorageDir, c.now(), c.opts.Container.Ext())
	cfg := recorder.Config{
		Source:     recorder.SourceMic,
		Container:  c.opts.Container,
		Bitrate:    QualityBitrate(c.rating),
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
		OutputPath: path,
		Device:     c.opts.Device,
	}

	res := c.opts.NewResource(cfg)
	err := res.Prepare()
	if err == nil {
		err = res.Start()
	}
	if err != nil {
		res.Release()
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			log.Warnf("removing %s: %v", path, rmErr)
		}
		c.acceptDisabled = true
		c.notice = NoticeStartFailed
		c.mu.Unlock()
		log.Errorf("prepare() failed: %v", err)
		return StartFailed
	}

	c.res = res
	c.outputPath = path
	c.startedAt = c.now()
	c.lastElapsed = 0
	c.ring.Reset()
	c.mu.Unlock()

	deviceName := "system default"
	if cfg.Device != nil {
		deviceName = cfg.Device.Name
	}
	log.RecordingStarted(log.Recording{
		ID:         c.id,
		Path:       path,
		Container:  string(cfg.Container),
		Bitrate:    cfg.Bitrate,
		SampleRate: cfg.SampleRate,
		Device:     deviceName,
	})

	cancel := c.opts.Scheduler.Every(TickInterval, c.Tick)
	c.mu.Lock()
	if c.res == res {
		c.cancelTick = cancel
		cancel = nil
	}
	c.mu.Unlock()
	if cancel != nil {
		// stopped before the tick was registered
		cancel()
	}
	return Started
}

// Tick samples elapsed time and input level. It never changes the recording.
func (c *Controller) Tick() {
	if c.opts.Permission == nil || !c.opts.Permission.Granted() {
		return
	}

	c.mu.Lock()
	if c.res == nil || c.startedAt.IsZero() {
		c.mu.Unlock()
		return
	}
	elapsed := c.now().Sub(c.startedAt)
	if elapsed > c.lastElapsed {
		c.lastElapsed = elapsed
	}
	amp := c.res.MaxAmplitude()
	c.ring.Push(amp)
	switch c.silence.Tick(amp) {
	case SilenceWarn:
		log.Info("no_input_warning")
	case SilenceWarnClear:
		log.Info("input_resumed")
	}
	c.mu.Unlock()
}

// Stop ends the recording. Without an active resource it does nothing.
// Unless save is set, the output file is deleted.
func (c *Controller) Stop(save bool) {
	c.mu.Lock()
	res := c.res
	if res == nil {
		c.mu.Unlock()
		return
	}
	c.res = nil
	cancel := c.cancelTick
	c.cancelTick = nil
	duration := c.lastElapsed
	if !c.startedAt.IsZero() {
		duration = max(duration, c.now().Sub(c.startedAt))
	}
	c.startedAt = time.Time{}
	path := c.outputPath
	id := c.id
	peak := c.ring.Peak()
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if err := res.Stop(); err != nil {
		log.Errorf("stop recording: %v", err)
	}
	res.Release()

	if !save && path != "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warnf("discarding %s: %v", path, err)
		}
	}

	end := log.RecordingEnd{ID: id, Saved: save, DurationS: duration.Seconds(), PeakLevel: peak}
	if r, ok := res.(*recorder.Recorder); ok {
		end.Frames = r.Frames()
		end.EncodeMs = r.EncodeTimeMs()
	}
	log.RecordingStopped(end)
	if save {
		log.SavedMemo(path)
	}
}

// Accept is the primary action: the first press starts recording, the next
// one keeps the file and finishes the screen.
func (c *Controller) Accept() StartStatus {
	c.mu.Lock()
	disabled := c.acceptDisabled
	started := c.started
	recording := c.res != nil
	path := c.outputPath
	c.mu.Unlock()

	if disabled || c.Finished() {
		return StartFailed
	}
	if !started {
		return c.Start()
	}
	if recording {
		c.Stop(true)
		c.finish(Result{OK: true, Path: path, URI: FileURI(path)})
	}
	return AlreadyStarted
}

// Cancel discards any recording and finishes the screen.
func (c *Controller) Cancel() {
	c.Stop(false)
	c.finish(Result{})
}

func (c *Controller) finish(r Result) {
	c.finishOnce.Do(func() {
		c.mu.Lock()
		c.finished = true
		c.result = r
		c.mu.Unlock()
		c.done <- r
	})
}

// Done delivers the result once the screen finishes.
func (c *Controller) Done() <-chan Result { return c.done }

func (c *Controller) Finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finished
}

// Result returns the final result and whether the screen has finished.
func (c *Controller) Result() (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.finished
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	state := Idle
	if c.res != nil {
		state = Recording
	}
	return Snapshot{
		State:         state,
		Elapsed:       FormatElapsed(c.lastElapsed),
		Amplitudes:    c.ring.Samples(),
		Level:         c.ring.Last(),
		Rating:        c.rating,
		AcceptEnabled: !c.acceptDisabled && !c.finished,
		Notice:        c.notice,
		NoInput:       c.silence.Warned(),
		OutputPath:    c.outputPath,
		Finished:      c.finished,
	}
}

// RingIndex exposes the next amplitude slot, mainly for diagnostics.
func (c *Controller) RingIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ring.Index()
}
