//go:build !linux

package beep

import (
	"encoding/binary"
	"sync"

	"github.com/gen2brain/malgo"
)

var playMu sync.Mutex

// playSamples opens a short-lived playback device per cue.
func playSamples(samples []int16) {
	playMu.Lock()
	defer playMu.Unlock()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return
	}
	defer func() {
		ctx.Uninit()
		ctx.Free()
	}()

	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	done := make(chan struct{})
	var once sync.Once
	pos := 0
	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, frameCount uint32) {
			n := copy(out[:frameCount*2], pcm[pos:])
			pos += n
			clear(out[n : frameCount*2])
			if pos >= len(pcm) {
				once.Do(func() { close(done) })
			}
		},
	}

	device, err := malgo.InitDevice(ctx.Context, config, callbacks)
	if err != nil {
		return
	}
	defer device.Uninit()
	if err := device.Start(); err != nil {
		return
	}
	<-done
	device.Stop()
}
