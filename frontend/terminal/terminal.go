// Package terminal implements a pure-Go (no cgo) video+input frontend on
// top of tcell, the terminal library the rest of this module's dependency
// set already carries. It renders two vertical pixels per character cell
// using the half-block glyph, and maps a handful of keys to joypad buttons.
package terminal

import (
	"log/slog"

	"github.com/gdamore/tcell/v2"

	"github.com/tessellate/dmgcore/frontend"
	"github.com/tessellate/dmgcore/video"
)

const halfBlock = '▀' // ▀: foreground paints the top pixel, background the bottom

// Sink implements both frontend.VideoSink and frontend.InputSink against a
// single tcell.Screen, since a terminal only has one handle to share.
type Sink struct {
	screen tcell.Screen
	quit   bool
}

// New constructs a terminal sink. Init must still be called before use.
func New() *Sink { return &Sink{} }

func (s *Sink) Init() bool {
	screen, err := tcell.NewScreen()
	if err != nil {
		slog.Error("terminal: failed to open screen", "err", err)
		return false
	}
	if err := screen.Init(); err != nil {
		slog.Error("terminal: failed to initialize screen", "err", err)
		return false
	}
	screen.SetStyle(tcell.StyleDefault)
	screen.Clear()
	s.screen = screen
	return true
}

func (s *Sink) Finish() {
	if s.screen != nil {
		s.screen.Fini()
	}
}

// Present draws one frame, two guest scanlines per terminal row.
func (s *Sink) Present(fb *video.FrameBuffer, bgp uint8) {
	if s.screen == nil {
		return
	}
	for row := 0; row < video.ScreenHeight/2; row++ {
		for col := 0; col < video.ScreenWidth; col++ {
			top := shadeColor(fb.Pixel(col, row*2), bgp)
			bottom := shadeColor(fb.Pixel(col, row*2+1), bgp)
			style := tcell.StyleDefault.Foreground(top).Background(bottom)
			s.screen.SetContent(col, row, halfBlock, nil, style)
		}
	}
	s.screen.Show()
}

func shadeColor(shade uint8, bgp uint8) tcell.Color {
	mapped := (bgp >> (shade * 2)) & 0x03
	switch mapped {
	case 0:
		return tcell.NewRGBColor(0x9C, 0xBD, 0x0F)
	case 1:
		return tcell.NewRGBColor(0x8C, 0xAD, 0x0F)
	case 2:
		return tcell.NewRGBColor(0x30, 0x62, 0x30)
	default:
		return tcell.NewRGBColor(0x0F, 0x38, 0x0F)
	}
}

// Poll drains pending tcell events, translating arrow keys/Z/X/Enter/Space
// into joypad key events and Ctrl+C/Escape into a quit request.
func (s *Sink) Poll() ([]frontend.KeyEvent, bool) {
	if s.screen == nil {
		return nil, s.quit
	}

	var events []frontend.KeyEvent
	for s.screen.HasPendingEvent() {
		ev := s.screen.PollEvent()
		keyEv, ok := ev.(*tcell.EventKey)
		if !ok {
			continue
		}
		if isQuit := translateQuit(keyEv); isQuit {
			s.quit = true
			continue
		} else if key, pressed, handled := translateKey(keyEv); handled {
			events = append(events, frontend.KeyEvent{Key: key, Pressed: pressed})
		}
	}
	return events, s.quit
}

func translateQuit(ev *tcell.EventKey) bool {
	return ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC
}

// translateKey maps one key-down event to a joypad button. tcell reports
// only key-down for terminal input, so every mapped key yields a press
// event; this sink never reports a release, and nothing else synthesizes
// one, so a reported button stays pressed in the joypad.
func translateKey(ev *tcell.EventKey) (key int, pressed bool, handled bool) {
	const (
		joypadRight = iota
		joypadLeft
		joypadUp
		joypadDown
		joypadA
		joypadB
		joypadSelect
		joypadStart
	)

	switch ev.Key() {
	case tcell.KeyRight:
		return joypadRight, true, true
	case tcell.KeyLeft:
		return joypadLeft, true, true
	case tcell.KeyUp:
		return joypadUp, true, true
	case tcell.KeyDown:
		return joypadDown, true, true
	case tcell.KeyEnter:
		return joypadStart, true, true
	}

	switch ev.Rune() {
	case 'z', 'Z':
		return joypadA, true, true
	case 'x', 'X':
		return joypadB, true, true
	case ' ':
		return joypadSelect, true, true
	}

	return 0, false, false
}
