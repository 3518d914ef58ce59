// Package frontend defines the capability-set sinks a host program uses to
// present a Machine's output and forward its input (§6). Every role (video,
// input) has a minimal interface and a Null implementation so a headless
// host can run the core with zero presentation layer wired in.
package frontend

import "github.com/tessellate/dmgcore/video"

// Kind selects which concrete frontend a host should construct (§6).
type Kind int

const (
	KindNull Kind = iota
	KindTerminal
)

func (k Kind) String() string {
	switch k {
	case KindTerminal:
		return "terminal"
	default:
		return "null"
	}
}

// VideoSink receives completed frames to present.
type VideoSink interface {
	// Init prepares the sink (opening a window, a terminal screen, etc.)
	// and reports whether it succeeded.
	Init() bool
	// Present displays one completed frame.
	Present(fb *video.FrameBuffer, bgp uint8)
	// Finish releases any resources Init acquired.
	Finish()
}

// KeyEvent identifies a joypad button transition delivered by an InputSink.
type KeyEvent struct {
	Key     int // memory.JoypadKey, as an int to avoid importing memory here
	Pressed bool
}

// InputSink delivers guest input events and reports whether the host
// requested the emulator quit.
type InputSink interface {
	Init() bool
	// Poll returns any pending key events since the last call and whether
	// the host has requested shutdown.
	Poll() (events []KeyEvent, quit bool)
	Finish()
}

// AudioSink receives PCM samples the APU would produce. Audio synthesis
// itself is out of scope (§1 Non-goals); this interface exists so the three
// frontend roles keep an identical shape and a host compiled with only the
// Null role never special-cases "no audio" (§6).
type AudioSink interface {
	Init() bool
	// OutputSample delivers one stereo sample pair ([-1,1] range).
	OutputSample(left, right float32)
	Finish()
}

// NullVideoSink discards every frame; used for headless runs and tests.
type NullVideoSink struct{}

func (NullVideoSink) Init() bool                            { return true }
func (NullVideoSink) Present(_ *video.FrameBuffer, _ uint8)  {}
func (NullVideoSink) Finish()                               {}

// NullInputSink never produces events and never requests shutdown.
type NullInputSink struct{}

func (NullInputSink) Init() bool              { return true }
func (NullInputSink) Poll() ([]KeyEvent, bool) { return nil, false }
func (NullInputSink) Finish()                  {}

// NullAudioSink discards every sample.
type NullAudioSink struct{}

func (NullAudioSink) Init() bool                     { return true }
func (NullAudioSink) OutputSample(_, _ float32)      {}
func (NullAudioSink) Finish()                        {}
