package cpu

import "github.com/tessellate/dmgcore/bit"

// Flag bit positions within the F register (§4.2).
const (
	flagZ uint8 = 7 // Zero
	flagN uint8 = 6 // Subtract
	flagH uint8 = 5 // Half-carry
	flagC uint8 = 4 // Carry
)

// af returns the combined AF register pair. The low nibble of F is always 0.
func (c *CPU) af() uint16 { return bit.Combine(c.a, c.f&0xF0) }

func (c *CPU) setAF(v uint16) {
	c.a = bit.High(v)
	c.f = bit.Low(v) & 0xF0
}

func (c *CPU) bc() uint16 { return bit.Combine(c.b, c.c) }

func (c *CPU) setBC(v uint16) {
	c.b = bit.High(v)
	c.c = bit.Low(v)
}

func (c *CPU) de() uint16 { return bit.Combine(c.d, c.e) }

func (c *CPU) setDE(v uint16) {
	c.d = bit.High(v)
	c.e = bit.Low(v)
}

func (c *CPU) hl() uint16 { return bit.Combine(c.h, c.l) }

func (c *CPU) setHL(v uint16) {
	c.h = bit.High(v)
	c.l = bit.Low(v)
}

func (c *CPU) flag(pos uint8) bool { return bit.IsSet(pos, c.f) }

func (c *CPU) setFlag(pos uint8, set bool) {
	if set {
		c.f = bit.Set(pos, c.f)
	} else {
		c.f = bit.Reset(pos, c.f)
	}
	c.f &= 0xF0
}

func (c *CPU) zero() bool      { return c.flag(flagZ) }
func (c *CPU) subtract() bool  { return c.flag(flagN) }
func (c *CPU) halfCarry() bool { return c.flag(flagH) }
func (c *CPU) carry() bool     { return c.flag(flagC) }

func (c *CPU) setZero(v bool)      { c.setFlag(flagZ, v) }
func (c *CPU) setSubtract(v bool)  { c.setFlag(flagN, v) }
func (c *CPU) setHalfCarry(v bool) { c.setFlag(flagH, v) }
func (c *CPU) setCarry(v bool)     { c.setFlag(flagC, v) }

// Exported register/flag snapshots, used by debug tooling and tests that
// need to inspect CPU state without reaching into unexported fields.

func (c *CPU) A() uint8   { return c.a }
func (c *CPU) F() uint8   { return c.f }
func (c *CPU) B() uint8   { return c.b }
func (c *CPU) C() uint8   { return c.c }
func (c *CPU) D() uint8   { return c.d }
func (c *CPU) E() uint8   { return c.e }
func (c *CPU) H() uint8   { return c.h }
func (c *CPU) L() uint8   { return c.l }
func (c *CPU) SP() uint16 { return c.sp }
func (c *CPU) PC() uint16 { return c.pc }

func (c *CPU) AF() uint16 { return c.af() }
func (c *CPU) BC() uint16 { return c.bc() }
func (c *CPU) DE() uint16 { return c.de() }
func (c *CPU) HL() uint16 { return c.hl() }

func (c *CPU) SetBC(v uint16) { c.setBC(v) }
func (c *CPU) SetDE(v uint16) { c.setDE(v) }
func (c *CPU) SetHL(v uint16) { c.setHL(v) }

func (c *CPU) ZeroFlag() bool      { return c.zero() }
func (c *CPU) SubtractFlag() bool  { return c.subtract() }
func (c *CPU) HalfCarryFlag() bool { return c.halfCarry() }
func (c *CPU) CarryFlag() bool     { return c.carry() }
