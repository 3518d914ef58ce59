package memory

import "github.com/tessellate/dmgcore/bit"

// JoypadKey identifies one of the eight Game Boy buttons.
type JoypadKey uint8

const (
	JoypadRight JoypadKey = iota
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

// Joypad tracks button/d-pad state and renders the P1 (0xFF00) register
// according to which line(s) the guest has selected (§6).
//
// In hardware, P1 is a selector: bits 4-5 choose which button group is
// mapped onto bits 0-3. A 0 bit means "pressed"; an unselected or released
// line reads as 1 (high impedance).
type Joypad struct {
	buttons uint8 // low nibble: A,B,Select,Start
	dpad    uint8 // low nibble: Right,Left,Up,Down
	selectBits uint8
}

func NewJoypad() *Joypad {
	return &Joypad{buttons: 0x0F, dpad: 0x0F}
}

// Read renders the current P1 value. Bits 6-7 always read high.
func (j *Joypad) Read() uint8 {
	result := uint8(0b1100_0000) | j.selectBits

	selectDpad := !bit.IsSet(4, j.selectBits)
	selectButtons := !bit.IsSet(5, j.selectBits)

	switch {
	case selectButtons && !selectDpad:
		result |= j.buttons
	case selectDpad && !selectButtons:
		result |= j.dpad
	case selectButtons && selectDpad:
		result |= j.buttons & j.dpad
	default:
		result |= 0x0F
	}

	return result
}

// Write accepts only the two selection bits; the rest of P1 is read-only.
func (j *Joypad) Write(value uint8) {
	j.selectBits = value & 0b0011_0000
}

// Press returns true if this transitioned a previously-released button to
// pressed (the condition that raises the JOYPAD interrupt, §4.2).
func (j *Joypad) Press(key JoypadKey) bool {
	before := j.lineFor(key)
	switch key {
	case JoypadRight:
		j.dpad = bit.Reset(0, j.dpad)
	case JoypadLeft:
		j.dpad = bit.Reset(1, j.dpad)
	case JoypadUp:
		j.dpad = bit.Reset(2, j.dpad)
	case JoypadDown:
		j.dpad = bit.Reset(3, j.dpad)
	case JoypadA:
		j.buttons = bit.Reset(0, j.buttons)
	case JoypadB:
		j.buttons = bit.Reset(1, j.buttons)
	case JoypadSelect:
		j.buttons = bit.Reset(2, j.buttons)
	case JoypadStart:
		j.buttons = bit.Reset(3, j.buttons)
	}
	return before
}

// Release marks key as no longer pressed.
func (j *Joypad) Release(key JoypadKey) {
	switch key {
	case JoypadRight:
		j.dpad = bit.Set(0, j.dpad)
	case JoypadLeft:
		j.dpad = bit.Set(1, j.dpad)
	case JoypadUp:
		j.dpad = bit.Set(2, j.dpad)
	case JoypadDown:
		j.dpad = bit.Set(3, j.dpad)
	case JoypadA:
		j.buttons = bit.Set(0, j.buttons)
	case JoypadB:
		j.buttons = bit.Set(1, j.buttons)
	case JoypadSelect:
		j.buttons = bit.Set(2, j.buttons)
	case JoypadStart:
		j.buttons = bit.Set(3, j.buttons)
	}
}

// lineFor reports whether key is currently released (true) or pressed
// (false), used to detect the 1->0 transition that fires an interrupt.
func (j *Joypad) lineFor(key JoypadKey) bool {
	switch key {
	case JoypadRight:
		return bit.IsSet(0, j.dpad)
	case JoypadLeft:
		return bit.IsSet(1, j.dpad)
	case JoypadUp:
		return bit.IsSet(2, j.dpad)
	case JoypadDown:
		return bit.IsSet(3, j.dpad)
	case JoypadA:
		return bit.IsSet(0, j.buttons)
	case JoypadB:
		return bit.IsSet(1, j.buttons)
	case JoypadSelect:
		return bit.IsSet(2, j.buttons)
	case JoypadStart:
		return bit.IsSet(3, j.buttons)
	default:
		return true
	}
}
