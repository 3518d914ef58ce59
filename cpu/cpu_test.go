package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tessellate/dmgcore/addr"
)

// fakeBus is a flat 64 KiB array standing in for the MMU in unit tests.
type fakeBus struct {
	mem [0x10000]uint8
}

func (b *fakeBus) Read(address uint16) uint8    { return b.mem[address] }
func (b *fakeBus) Write(address uint16, v uint8) { b.mem[address] = v }

func newTestCPU() (*CPU, *fakeBus) {
	bus := &fakeBus{}
	return New(bus), bus
}

func TestRegisterPairs(t *testing.T) {
	c, _ := newTestCPU()

	c.setBC(0xBEEF)
	assert.Equal(t, uint8(0xBE), c.b)
	assert.Equal(t, uint8(0xEF), c.c)
	assert.Equal(t, uint16(0xBEEF), c.bc())

	c.setAF(0x1234)
	assert.Equal(t, uint8(0x12), c.a)
	assert.Equal(t, uint8(0x30), c.f, "low nibble of F is always zero")
}

func TestIncDecFlags(t *testing.T) {
	c, _ := newTestCPU()

	c.b = 0xFF
	c.inc(&c.b)
	assert.Equal(t, uint8(0x00), c.b)
	assert.True(t, c.zero())
	assert.True(t, c.halfCarry())
	assert.False(t, c.subtract())

	c.b = 0x01
	c.dec(&c.b)
	assert.Equal(t, uint8(0x00), c.b)
	assert.True(t, c.zero())
	assert.True(t, c.subtract())
}

func TestAddToACarryAndHalfCarry(t *testing.T) {
	c, _ := newTestCPU()

	c.a = 0x0F
	c.addToA(0x01, false)
	assert.Equal(t, uint8(0x10), c.a)
	assert.True(t, c.halfCarry())
	assert.False(t, c.carry())

	c.a = 0xFF
	c.addToA(0x01, false)
	assert.Equal(t, uint8(0x00), c.a)
	assert.True(t, c.zero())
	assert.True(t, c.carry())
}

func TestNOPAdvancesPCByOne(t *testing.T) {
	c, bus := newTestCPU()
	c.pc = 0x0100
	bus.mem[0x0100] = 0x00

	cost := c.Step()

	assert.Equal(t, 4, cost)
	assert.Equal(t, uint16(0x0101), c.pc)
}

func TestLDBCImmediate(t *testing.T) {
	c, bus := newTestCPU()
	c.pc = 0x0100
	bus.mem[0x0100] = 0x01
	bus.mem[0x0101] = 0xEF
	bus.mem[0x0102] = 0xBE

	cost := c.Step()

	assert.Equal(t, 12, cost)
	assert.Equal(t, uint16(0xBEEF), c.bc())
	assert.Equal(t, uint16(0x0103), c.pc)
}

func TestJRNZTakenAndNotTaken(t *testing.T) {
	c, bus := newTestCPU()
	c.pc = 0x0100
	bus.mem[0x0100] = 0x20 // JR NZ,r8
	bus.mem[0x0101] = 0x05
	c.setZero(true)

	cost := c.Step()
	assert.Equal(t, 8, cost, "branch not taken costs 8")
	assert.Equal(t, uint16(0x0102), c.pc)

	c.pc = 0x0100
	c.setZero(false)
	cost = c.Step()
	assert.Equal(t, 12, cost, "branch taken costs 12")
	assert.Equal(t, uint16(0x0107), c.pc)
}

func TestEIDelayTakesEffectAfterNextInstruction(t *testing.T) {
	c, bus := newTestCPU()
	c.pc = 0x0100
	bus.mem[0x0100] = 0xFB // EI
	bus.mem[0x0101] = 0x00 // NOP
	bus.mem[0x0102] = 0x00 // NOP

	c.Step() // EI
	assert.False(t, c.interruptsEnabled, "IME not yet active immediately after EI")

	c.Step() // first NOP after EI
	assert.False(t, c.interruptsEnabled, "IME still not active until the instruction after that")

	c.Step() // second NOP
	assert.True(t, c.interruptsEnabled)
}

func TestInterruptDispatchPushesPCAndJumpsToVector(t *testing.T) {
	c, bus := newTestCPU()
	c.pc = 0x0150
	c.sp = 0xFFFE
	c.interruptsEnabled = true
	bus.mem[addr.IE] = uint8(addr.VBlankInterrupt)
	bus.mem[addr.IF] = uint8(addr.VBlankInterrupt)

	cost := c.Step()

	assert.Equal(t, 20, cost)
	assert.Equal(t, addr.VBlankInterrupt.Vector(), c.pc)
	assert.False(t, c.interruptsEnabled, "IME cleared on dispatch")
	assert.Equal(t, uint8(0), bus.mem[addr.IF]&uint8(addr.VBlankInterrupt), "IF bit cleared")
	assert.Equal(t, uint16(0x0150), c.popStack())
}

func TestInterruptPriorityPicksLowestBit(t *testing.T) {
	c, bus := newTestCPU()
	c.interruptsEnabled = true
	bus.mem[addr.IE] = 0xFF
	bus.mem[addr.IF] = uint8(addr.TimerInterrupt) | uint8(addr.LCDSTATInterrupt)

	c.Step()

	assert.Equal(t, addr.LCDSTATInterrupt.Vector(), c.pc, "LCDSTAT outranks Timer")
}

func TestHaltWakesOnPendingInterruptEvenWithIMEOff(t *testing.T) {
	c, bus := newTestCPU()
	c.halted = true
	c.interruptsEnabled = false
	bus.mem[addr.IE] = uint8(addr.TimerInterrupt)
	bus.mem[addr.IF] = uint8(addr.TimerInterrupt)

	c.Step()

	assert.False(t, c.halted, "HALT exits once a pending+enabled interrupt exists, IME notwithstanding")
}

func TestHaltBugRepeatsNextInstructionByte(t *testing.T) {
	c, bus := newTestCPU()
	c.pc = 0x0100
	c.interruptsEnabled = false
	bus.mem[addr.IE] = uint8(addr.TimerInterrupt)
	bus.mem[addr.IF] = uint8(addr.TimerInterrupt)
	bus.mem[0x0100] = 0x76 // HALT
	bus.mem[0x0101] = 0x3C // INC A

	c.Step() // HALT observes the pending interrupt with IME off: sets haltBug, does not halt.
	assert.False(t, c.halted)
	assert.True(t, c.haltBug)
	assert.Equal(t, uint16(0x0101), c.pc)

	c.Step() // INC A executes once...
	assert.Equal(t, uint8(1), c.a)
	assert.Equal(t, uint16(0x0101), c.pc, "PC rewound so the same byte is fetched again")

	c.Step() // ...and a second time, the hallmark of the bug.
	assert.Equal(t, uint8(2), c.a)
}

func TestRETccTiming(t *testing.T) {
	c, bus := newTestCPU()
	c.sp = 0xFFFC
	bus.mem[0xFFFC] = 0x00
	bus.mem[0xFFFD] = 0x01
	c.pc = 0x0100
	bus.mem[0x0100] = 0xC0 // RET NZ
	c.setZero(true)

	cost := c.Step()
	assert.Equal(t, 8, cost, "RET cc not taken costs 8")
	assert.Equal(t, uint16(0x0101), c.pc)

	c.pc = 0x0100
	c.setZero(false)
	cost = c.Step()
	assert.Equal(t, 20, cost, "RET cc taken costs 20")
	assert.Equal(t, uint16(0x0100), c.pc)
}

func TestStopWakesAndDispatchesInterruptWithIMEOn(t *testing.T) {
	c, bus := newTestCPU()
	c.stopped = true
	c.interruptsEnabled = true
	c.pc = 0x0150
	c.sp = 0xFFFE
	bus.mem[addr.IE] = uint8(addr.JoypadInterrupt)
	bus.mem[addr.IF] = uint8(addr.JoypadInterrupt)

	cost := c.Step()

	assert.Equal(t, 20, cost, "the dispatch itself runs rather than the 4-cycle stopped no-op")
	assert.False(t, c.stopped, "STOP must clear even though wake came via the IME-on dispatch path, not the IME-off branch")
	assert.Equal(t, addr.JoypadInterrupt.Vector(), c.pc)

	bus.mem[addr.IF] = 0
	bus.mem[c.pc] = 0x00 // NOP, so the next Step proves the CPU is actually running again
	cost = c.Step()
	assert.Equal(t, 4, cost)
	assert.False(t, c.stopped, "must not re-freeze once the IF bit that woke it is gone")
}

func TestIllegalOpcodePanics(t *testing.T) {
	c, bus := newTestCPU()
	c.pc = 0x0100
	bus.mem[0x0100] = 0xD3

	assert.Panics(t, func() { c.Step() })
}
