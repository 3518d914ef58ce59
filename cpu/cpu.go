// Package cpu implements the Sharp LR35902 instruction decoder and
// executor (§4.2): registers, flags, the interrupt dispatch sequence, the
// HALT bug, and the full 256+256 primary/CB-prefixed opcode tables.
package cpu

import (
	"fmt"
	"log/slog"

	"github.com/tessellate/dmgcore/addr"
)

// Bus is the memory-mapped view the CPU executes against. *memory.MMU
// satisfies it; tests substitute small fakes.
type Bus interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// CPU holds the Sharp LR35902 register file and execution-control state.
type CPU struct {
	a, b, c, d, e, h, l, f uint8
	sp, pc                 uint16

	bus Bus

	interruptsEnabled bool // IME
	eiPending         int  // instructions remaining until IME takes effect; 0 = inactive
	halted            bool
	haltBug           bool
	stopped           bool

	cycles uint64

	currentOpcode uint8
}

// New constructs a CPU wired to bus. Registers start zeroed; callers that
// need post-boot values call InitPostBoot (§3).
func New(bus Bus) *CPU {
	return &CPU{bus: bus}
}

// InitPostBoot synthesizes the register state a real DMG/CGB boot ROM
// would have produced by the time it hands off to cartridge code (§3).
// cgb selects the CGB value of A; DMG and SGB share the same preset. It is
// a plain bool to avoid an import cycle back into the memory package.
func (c *CPU) InitPostBoot(cgb bool) {
	c.setAF(0x01B0)
	c.setBC(0x0013)
	c.setDE(0x00D8)
	c.setHL(0x014D)
	if cgb {
		c.a = 0x11
	}
	c.sp = 0xFFFE
	c.pc = 0x0100
	c.interruptsEnabled = false
}

// Cycles returns the running total of CPU cycles executed since reset,
// used by callers that need to correlate CPU, timer and PPU progress.
func (c *CPU) Cycles() uint64 { return c.cycles }

// Halted reports whether the CPU is parked in HALT awaiting an interrupt.
func (c *CPU) Halted() bool { return c.halted }

// Stopped reports whether the CPU is parked in STOP awaiting an unmasked
// interrupt (typically JOYPAD). The PPU freezes while this holds (§4.4).
func (c *CPU) Stopped() bool { return c.stopped }

// Step executes exactly one instruction (or one halted/stopped no-op tick)
// and returns the number of cycles it consumed. The interrupt dispatch
// sequence, when triggered, is itself treated as a pseudo-instruction that
// returns its own cost (§4.2).
func (c *CPU) Step() int {
	if dispatched, cost := c.serviceInterrupts(); dispatched {
		return cost
	}

	if c.stopped {
		c.cycles += 4
		return 4
	}

	if c.halted {
		c.cycles += 4
		return 4
	}

	c.advanceEI()

	opcode := c.fetch()

	if c.haltBug {
		c.pc--
		c.haltBug = false
	}

	cost := c.execute(opcode)
	c.cycles += uint64(cost)
	return cost
}

// fetch reads the byte at PC and advances PC, charging no cycles itself
// (cycle cost is attributed to the opcode function that consumes the byte).
func (c *CPU) fetch() uint8 {
	v := c.bus.Read(c.pc)
	c.pc++
	return v
}

func (c *CPU) readImmediateByte() uint8 {
	return c.fetch()
}

func (c *CPU) readImmediateWord() uint16 {
	lo := c.fetch()
	hi := c.fetch()
	return uint16(hi)<<8 | uint16(lo)
}

// advanceEI ticks the delayed-EI counter: EI takes effect after the
// instruction *following* it has executed, not immediately (§4.2).
func (c *CPU) advanceEI() {
	if c.eiPending == 0 {
		return
	}
	c.eiPending--
	if c.eiPending == 0 {
		c.interruptsEnabled = true
	}
}

// pendingInterrupts returns the bits set in both IE and IF (masked to the
// five real interrupt bits), recomputed on every call so it can never go
// stale relative to either register (§4.2 invariant).
func (c *CPU) pendingInterrupts() uint8 {
	return c.bus.Read(addr.IE) & c.bus.Read(addr.IF) & 0x1F
}

// serviceInterrupts implements the interrupt dispatch sequence and the
// HALT/STOP wake-up (§4.2, §8); the HALT bug itself is handled by HALT's
// opcode and Step. It returns (true, cost) if an interrupt was dispatched
// this Step.
func (c *CPU) serviceInterrupts() (bool, int) {
	pending := c.pendingInterrupts()

	// signal_interrupt wakes HALT/STOP unconditionally, independent of IME
	// (§4.2): a pending+unmasked interrupt clears both regardless of
	// whether it goes on to be dispatched this step.
	if pending != 0 {
		c.halted = false
		c.stopped = false
	}

	if !c.interruptsEnabled || pending == 0 {
		return false, 0
	}

	source := lowestPriority(pending)

	c.interruptsEnabled = false
	c.bus.Write(addr.IF, c.bus.Read(addr.IF)&^uint8(source))

	c.pushStack(c.pc)
	c.pc = source.Vector()
	c.cycles += 20
	return true, 20
}

// lowestPriority returns the lowest-numbered set bit, matching the fixed
// VBlank > LCDSTAT > Timer > Serial > Joypad priority order (§4.2).
func lowestPriority(pending uint8) addr.Interrupt {
	for bitPos := uint(0); bitPos < 5; bitPos++ {
		if pending&(1<<bitPos) != 0 {
			return addr.Interrupt(1 << bitPos)
		}
	}
	panic("cpu: lowestPriority called with no bits set")
}

func (c *CPU) pushStack(v uint16) {
	c.sp -= 2
	c.bus.Write(c.sp, uint8(v))
	c.bus.Write(c.sp+1, uint8(v>>8))
}

func (c *CPU) popStack() uint16 {
	lo := c.bus.Read(c.sp)
	hi := c.bus.Read(c.sp + 1)
	c.sp += 2
	return uint16(hi)<<8 | uint16(lo)
}

// fatal reports an unrecoverable decode condition (an illegal opcode) and
// panics, matching the Fatal severity class of §7: the guest program has
// reached a state this core makes no attempt to emulate.
func (c *CPU) fatal(format string, args ...any) {
	slog.Error(fmt.Sprintf(format, args...), "pc", fmt.Sprintf("0x%04X", c.pc))
	panic(fmt.Sprintf(format, args...))
}
