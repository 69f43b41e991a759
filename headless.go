package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"kandru/audio"
	"kandru/log"
	"kandru/memo"
)

// captureTap remembers the most recent capture so headless scripts can wait
// for replayed audio to drain.
type captureTap struct {
	audio.Context

	mu   sync.Mutex
	last audio.CaptureDevice
}

func (t *captureTap) NewCapture(device *audio.DeviceInfo, config audio.CaptureConfig) (audio.CaptureDevice, error) {
	c, err := t.Context.NewCapture(device, config)
	if err == nil {
		t.mu.Lock()
		t.last = c
		t.mu.Unlock()
	}
	return c, err
}

func (t *captureTap) waitAudioDone() error {
	t.mu.Lock()
	c := t.last
	t.mu.Unlock()
	if c == nil {
		return errNoCapture
	}
	if fc, ok := c.(*audio.FakeCapture); ok {
		<-fc.AudioDone()
	}
	return nil
}

// runHeadless drives the controller from line commands:
//
//	ACCEPT, CANCEL, RATING <n>, STATUS, WAIT_AUDIO_DONE, SLEEP <ms>, QUIT
//
// End of input behaves like QUIT. It returns as soon as the controller
// finishes, even while a read from in is still pending.
func runHeadless(ctrl *memo.Controller, tap *captureTap, in io.Reader, out io.Writer) memo.Result {
	ctrl.Open()

	lines := make(chan string)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-quit:
				return
			}
		}
	}()

loop:
	for !ctrl.Finished() {
		select {
		case <-ctrl.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			runHeadlessCommand(ctrl, tap, strings.TrimSpace(line), out)
		}
	}
	ctrl.Close()

	r, _ := ctrl.Result()
	return r
}

func runHeadlessCommand(ctrl *memo.Controller, tap *captureTap, cmd string, out io.Writer) {
	if cmd == "" {
		return
	}
	verb, arg, _ := strings.Cut(cmd, " ")
	switch strings.ToUpper(verb) {
	case "ACCEPT":
		switch accept(ctrl) {
		case memo.Started:
			fmt.Fprintf(out, "recording %s\n", ctrl.Snapshot().OutputPath)
		case memo.StartFailed:
			if n := ctrl.Snapshot().Notice; n != "" {
				fmt.Fprintln(out, n)
			}
		}
	case "CANCEL":
		ctrl.Cancel()
	case "RATING":
		if r, err := strconv.ParseFloat(arg, 64); err == nil {
			ctrl.SetRating(r)
		}
	case "STATUS":
		s := ctrl.Snapshot()
		fmt.Fprintf(out, "%s %s level=%d\n", s.State, s.Elapsed, s.Level)
	case "WAIT_AUDIO_DONE":
		if err := tap.waitAudioDone(); err != nil {
			log.Warnf("WAIT_AUDIO_DONE: %v", err)
		}
	case "SLEEP":
		if ms, err := strconv.Atoi(arg); err == nil {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		}
	case "QUIT":
		ctrl.Close()
	default:
		log.Warnf("unknown headless command %q", cmd)
	}
}
