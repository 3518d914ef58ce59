// Package dmgcore composes the CPU, MMU and PPU into a runnable machine
// and drives the deterministic per-cycle tick sequence described in §5:
// PPU and timer advance by the cycle cost of the instruction the CPU just
// retired, then the CPU fetches its next instruction. Everything here is
// single-threaded and synchronous; there are no goroutines in the core.
package dmgcore

import (
	"fmt"
	"log/slog"

	"github.com/tessellate/dmgcore/cpu"
	"github.com/tessellate/dmgcore/memory"
	"github.com/tessellate/dmgcore/video"
)

// CyclesPerFrame is the fixed CPU-cycle length of one frame at the DMG's
// native 59.7 Hz refresh rate (154 scanlines x 456 cycles).
const CyclesPerFrame = 154 * 456

// Machine owns one emulated console: cartridge, CPU, MMU and PPU, wired
// together exactly once at construction (§3).
type Machine struct {
	mmu *memory.MMU
	cpu *cpu.CPU
	gpu *video.GPU

	system memory.SystemKind
}

// New constructs a Machine with no cartridge inserted.
func New() *Machine {
	return newMachine(memory.NewCartridge())
}

// NewWithROM loads data as a cartridge image and constructs a Machine for
// it. A malformed image too small to contain a header is an Error per §7:
// the caller decides whether to retry, substitute a different ROM, or exit.
func NewWithROM(data []byte) (*Machine, error) {
	cart, err := memory.LoadCartridge(data)
	if err != nil {
		return nil, fmt.Errorf("dmgcore: loading ROM: %w", err)
	}
	return newMachine(cart), nil
}

// NewWithROMForSystem behaves like NewWithROM but overrides the system kind
// that would otherwise be auto-detected from the cartridge header's CGB/SGB
// flag bytes, so a host can force a specific DMG/SGB/CGB post-boot register
// preset (§3, §11) regardless of what the ROM declares.
func NewWithROMForSystem(data []byte, sys memory.SystemKind) (*Machine, error) {
	cart, err := memory.LoadCartridge(data)
	if err != nil {
		return nil, fmt.Errorf("dmgcore: loading ROM: %w", err)
	}
	cart.OverrideSystem(sys)
	return newMachine(cart), nil
}

func newMachine(cart *memory.Cartridge) *Machine {
	mmu := memory.NewWithCartridge(cart)
	m := &Machine{
		mmu:    mmu,
		cpu:    cpu.New(mmu),
		gpu:    video.NewGPU(mmu),
		system: cart.System(),
	}
	m.cpu.InitPostBoot(cart.System() == memory.SystemCGB)
	mmu.Write(0xFF40, 0x91) // LCDC as the boot ROM leaves it: LCD on, BG on
	mmu.SetTimerSeed(seedForSystem(cart.System()))
	slog.Info("dmgcore: machine initialized", "title", cart.Title(), "system", cart.System().String())
	return m
}

// seedForSystem returns the system-counter value a real boot ROM would
// have left behind by the time control passes to cartridge code; this
// varies by hardware revision and is approximated here per cartridge kind
// rather than simulated instruction-by-instruction (§3, §9).
func seedForSystem(sys memory.SystemKind) uint16 {
	switch sys {
	case memory.SystemCGB:
		return 0x1EA0
	default:
		return 0xABCC
	}
}

// Step executes exactly one CPU instruction (or interrupt dispatch, or
// halted/stopped no-op) and advances the PPU and timer by its cycle cost.
// The PPU does not advance while the CPU is stopped: LY and STAT stay
// frozen until STOP is woken by an unmasked interrupt (§4.4). It returns
// that cycle cost.
func (m *Machine) Step() int {
	cycles := m.cpu.Step()
	if !m.cpu.Stopped() {
		m.gpu.Tick(cycles)
	}
	m.mmu.Tick(cycles)
	return cycles
}

// RunUntilFrame steps the machine through one full frame of scanlines
// (about CyclesPerFrame cycles), returning the FrameBuffer. The PPU's LY,
// not a cycle count, determines frame completion: RunUntilFrame stops the
// first time LY comes back to the line it started on, which for a start at
// line 0 is the instant LY wraps from 153 back to 0.
func (m *Machine) RunUntilFrame() *video.FrameBuffer {
	startLine := m.gpu.LY()
	sawOtherLine := false
	for {
		m.Step()
		line := m.gpu.LY()
		if line != startLine {
			sawOtherLine = true
		}
		if sawOtherLine && line == startLine {
			return m.gpu.FrameBuffer()
		}
	}
}

// PressKey and ReleaseKey forward input events to the joypad (§6).
func (m *Machine) PressKey(key memory.JoypadKey)   { m.mmu.HandleKeyPress(key) }
func (m *Machine) ReleaseKey(key memory.JoypadKey) { m.mmu.HandleKeyRelease(key) }

// FrameBuffer returns the PPU's current (possibly in-progress) frame.
func (m *Machine) FrameBuffer() *video.FrameBuffer { return m.gpu.FrameBuffer() }

// BGP returns the current background palette register, needed alongside
// FrameBuffer to render actual colors (§4.4).
func (m *Machine) BGP() uint8 { return m.mmu.Read(0xFF47) }

// Title returns the loaded cartridge's header title.
func (m *Machine) Title() string { return m.mmu.Cartridge().Title() }

// System returns the hardware variant this machine was constructed for.
func (m *Machine) System() memory.SystemKind { return m.system }
