// Package memory implements the guest address space dispatcher (§4.1): a
// single MMU type that routes every 8-bit read/write from the CPU to ROM,
// VRAM, work RAM, OAM, high I/O registers or HRAM, enforcing the access
// restrictions each region carries (PPU-mode gating on VRAM/OAM, MBC
// indirection on ROM/external RAM, and so on).
package memory

import (
	"fmt"
	"log/slog"

	"github.com/tessellate/dmgcore/addr"
	"github.com/tessellate/dmgcore/bit"
)

type region uint8

const (
	regionROM region = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionUnused
	regionIO
	regionHRAM
)

// ppuView is the narrow slice of PPU state the MMU needs to gate VRAM/OAM
// accesses (§4.1) without importing the video package (which itself depends
// on memory). GPU registers itself via SetPPUView once constructed.
type ppuView interface {
	Mode() int // 0=HBlank 1=VBlank 2=OAMScan 3=PixelTransfer

	// RecomputeLYC re-runs the LY==LYC comparison and the shared STAT
	// interrupt line check against the registers' current values, without
	// waiting for the next natural LY transition. The MMU calls this after
	// a guest write to LYC or STAT so invariant 6 (§8) holds immediately.
	RecomputeLYC()
}

// MMU is the guest's 64 KiB address space view plus the owned buffers that
// back it (§3). The CPU never touches a raw array: every access goes
// through Read/Write.
type MMU struct {
	cart *Cartridge
	mbc  MBC
	wram []byte // 8 KiB work RAM (0xC000-0xDFFF, echoed to 0xE000-0xFDFF)
	vram []byte // 8 KiB VRAM (single bank; CGB's second bank is not
	// modeled)
	oam   [160]byte // 40 sprite entries * 4 bytes
	hram  [127]byte // 0xFF80-0xFFFE
	io    [128]byte // 0xFF00-0xFF7F, catch-all backing store for unlisted regs
	ie    byte      // 0xFFFF

	ppu   ppuView
	timer Timer
	joy   *Joypad

	regionOf [256]region
}

// New creates an MMU with no cartridge loaded: reads from the ROM/external
// RAM regions return open-bus 0xFF.
func New() *MMU {
	m := &MMU{
		wram: make([]byte, 0x2000),
		vram: make([]byte, 0x2000),
		joy:  NewJoypad(),
	}
	m.timer.InterruptHandler = func() { m.RequestInterrupt(addr.TimerInterrupt) }
	m.buildRegionTable()
	return m
}

// NewWithCartridge creates an MMU with cart loaded and its MBC wired up.
func NewWithCartridge(cart *Cartridge) *MMU {
	m := New()
	m.cart = cart
	m.mbc = newMBCFor(cart)
	return m
}

func newMBCFor(cart *Cartridge) MBC {
	switch cart.cartType {
	case ROMOnly:
		return NewNoMBC(cart.data)
	case MBC1, MBC1RAM, MBC1RAMBattery:
		return memNewMBC1(cart)
	case MBC2, MBC2Battery:
		return NewMBC2(cart.data)
	case MBC3, MBC3RAM, MBC3RAMBattery, MBC3TimerBattery, MBC3TimerRAMBattery:
		return NewMBC3(cart.data, cart.ramBankCount, cart.cartType.HasRTC())
	case MBC5, MBC5RAM, MBC5RAMBattery, MBC5Rumble, MBC5RumbleRAM, MBC5RumbleRAMBattery:
		return NewMBC5(cart.data, cart.cartType.HasRumble(), cart.ramBankCount)
	default:
		slog.Warn("memory: cart type has no dedicated mapper, falling back to ROM_ONLY behavior",
			"type", fmt.Sprintf("0x%02X", uint8(cart.cartType)))
		return NewNoMBC(cart.data)
	}
}

func memNewMBC1(cart *Cartridge) *MBC1 {
	return NewMBC1(cart.data, cart.cartType.HasBattery(), cart.ramBankCount)
}

func (m *MMU) buildRegionTable() {
	for i := 0x00; i <= 0x7F; i++ {
		m.regionOf[i] = regionROM
	}
	for i := 0x80; i <= 0x9F; i++ {
		m.regionOf[i] = regionVRAM
	}
	for i := 0xA0; i <= 0xBF; i++ {
		m.regionOf[i] = regionExtRAM
	}
	for i := 0xC0; i <= 0xDF; i++ {
		m.regionOf[i] = regionWRAM
	}
	for i := 0xE0; i <= 0xFD; i++ {
		m.regionOf[i] = regionEcho
	}
	m.regionOf[0xFE] = regionOAM // further split between OAM/unused in Read/Write
	m.regionOf[0xFF] = regionIO  // further split between IO/HRAM/IE
}

// SetPPUView wires the GPU's mode so VRAM/OAM reads can be gated by it.
// Called once by video.NewGPU.
func (m *MMU) SetPPUView(p ppuView) { m.ppu = p }

// RawVRAM and RawOAM give the PPU direct, ungated access to the buffers it
// renders from; the CPU-facing gating in Read/Write models the real bus
// contention that only applies to the external bus, not the PPU's own
// internal fetches (§4.4).
func (m *MMU) RawVRAM() []byte { return m.vram }
func (m *MMU) RawOAM() []byte  { return m.oam[:] }

// WriteRegister lets internal components (the PPU, for LY/STAT) update a
// high-I/O register directly, bypassing the guest-facing read-only/dispatch
// rules writeIO enforces for CPU-originated writes.
func (m *MMU) WriteRegister(address uint16, value byte) {
	m.io[address-0xFF00] = value
}

// SetTimerSeed initializes the divider seed and DIV register (§3 lifecycle).
func (m *MMU) SetTimerSeed(seed uint16) { m.timer.SetSeed(seed) }

// Tick advances sub-components that have their own per-cycle state (today,
// only the timer; the PPU and CPU are driven independently by the Machine
// tick loop per §5).
func (m *MMU) Tick(cycles int) {
	m.timer.Tick(cycles)
}

// RequestInterrupt sets the corresponding bit in IF (§4.2).
func (m *MMU) RequestInterrupt(i addr.Interrupt) {
	m.io[addr.IF-0xFF00] = m.io[addr.IF-0xFF00] | byte(i)
}

// ReadBit reads a single bit of a register through the normal dispatch path.
func (m *MMU) ReadBit(index uint8, address uint16) bool {
	return bit.IsSet(index, m.Read(address))
}

// SetBit sets or clears a single bit of a register through Write, so side
// effects (e.g. DIV reset) still apply.
func (m *MMU) SetBit(index uint8, address uint16, set bool) {
	v := m.Read(address)
	if set {
		v = bit.Set(index, v)
	} else {
		v = bit.Reset(index, v)
	}
	m.Write(address, v)
}

func (m *MMU) vramAccessible() bool {
	return m.ppu == nil || m.ppu.Mode() != 3
}

func (m *MMU) oamAccessible() bool {
	return m.ppu == nil || (m.ppu.Mode() != 2 && m.ppu.Mode() != 3)
}

// Read performs one 8-bit guest memory read (§4.1).
func (m *MMU) Read(address uint16) byte {
	switch m.regionOf[address>>8] {
	case regionROM:
		if m.mbc == nil {
			return 0xFF
		}
		return m.mbc.Read(address)
	case regionVRAM:
		if !m.vramAccessible() {
			return 0xFF
		}
		return m.vram[address-0x8000]
	case regionExtRAM:
		if m.mbc == nil {
			return 0xFF
		}
		return m.mbc.Read(address)
	case regionWRAM:
		return m.wram[address-0xC000]
	case regionEcho:
		return m.wram[address-0xE000]
	case regionOAM:
		if address <= addr.OAMEnd {
			if !m.oamAccessible() {
				return 0xFF
			}
			return m.oam[address-addr.OAMStart]
		}
		return 0xFF // 0xFEA0-0xFEFF unusable
	case regionIO:
		return m.readIO(address)
	default:
		panic(fmt.Sprintf("memory: read at unmapped address 0x%04X", address))
	}
}

// Write performs one 8-bit guest memory write (§4.1).
func (m *MMU) Write(address uint16, value byte) {
	switch m.regionOf[address>>8] {
	case regionROM:
		if m.mbc == nil {
			return
		}
		m.mbc.Write(address, value)
	case regionVRAM:
		if !m.vramAccessible() {
			slog.Warn("memory: VRAM write dropped during mode 3", "addr", fmt.Sprintf("0x%04X", address))
			return
		}
		m.vram[address-0x8000] = value
	case regionExtRAM:
		if m.mbc == nil {
			return
		}
		m.mbc.Write(address, value)
	case regionWRAM:
		m.wram[address-0xC000] = value
	case regionEcho:
		m.wram[address-0xE000] = value
	case regionOAM:
		if address <= addr.OAMEnd {
			if !m.oamAccessible() {
				return
			}
			m.oam[address-addr.OAMStart] = value
		}
		// 0xFEA0-0xFEFF: writes dropped, no diagnostic needed.
	case regionIO:
		m.writeIO(address, value)
	default:
		panic(fmt.Sprintf("memory: write at unmapped address 0x%04X", address))
	}
}

// readIO dispatches the 0xFF00-0xFFFF range to per-register handlers (§6).
func (m *MMU) readIO(address uint16) byte {
	switch {
	case address == addr.P1:
		return m.joy.Read()
	case address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC:
		return m.timer.Read(address)
	case address == addr.IF:
		return m.io[address-0xFF00] | 0xE0 // top 3 bits always read as 1
	case address == addr.IE:
		return m.ie
	case address == addr.LY || address == addr.DMA:
		return m.io[address-0xFF00]
	case address >= 0xFF80 && address <= 0xFFFE:
		return m.hram[address-0xFF80]
	case isRecognizedHighIO(address):
		return m.io[address-0xFF00]
	default:
		slog.Warn("memory: read of unrecognized I/O register", "addr", fmt.Sprintf("0x%04X", address))
		return 0xFF
	}
}

func (m *MMU) writeIO(address uint16, value byte) {
	switch {
	case address == addr.P1:
		m.joy.Write(value)
	case address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC:
		m.timer.Write(address, value)
	case address == addr.IF:
		m.io[address-0xFF00] = value | 0xE0
	case address == addr.IE:
		m.ie = value
	case address == addr.LY:
		slog.Warn("memory: write to read-only LY ignored", "value", value)
	case address == addr.LYC || address == addr.STAT:
		// A guest write to LYC (retargeting the comparison) or STAT (toggling
		// which sources feed the shared interrupt line) can change whether
		// LY==LYC holds or whether that match is unmasked right now, without
		// LY itself changing - recompute immediately rather than waiting for
		// the next scanline's advanceLine (§8 invariant 6).
		m.io[address-0xFF00] = value
		if m.ppu != nil {
			m.ppu.RecomputeLYC()
		}
	case address == addr.DMA:
		m.runDMA(value)
		m.io[address-0xFF00] = value
	case address >= 0xFF80 && address <= 0xFFFE:
		m.hram[address-0xFF80] = value
	case isRecognizedHighIO(address):
		m.io[address-0xFF00] = value
	default:
		slog.Warn("memory: write to unrecognized I/O register dropped",
			"addr", fmt.Sprintf("0x%04X", address), "value", fmt.Sprintf("0x%02X", value))
	}
}

// runDMA performs the OAM DMA transfer: 160 bytes copied from
// value*0x100 into OAM, instantly (§4.6 Non-goals exclude sub-M-cycle
// precision, so this core does not model the 160-cycle CPU lockout).
func (m *MMU) runDMA(value byte) {
	source := uint16(value) << 8
	for i := uint16(0); i < 160; i++ {
		m.oam[i] = m.Read(source + i)
	}
}

// isRecognizedHighIO lists the registers §6 names, beyond the ones already
// special-cased above (joypad/timer/IF/IE/LY/DMA/HRAM). Everything else in
// 0xFF00-0xFF7F is an unrecognized register per §6/§7.
func isRecognizedHighIO(address uint16) bool {
	switch address {
	case addr.SB, addr.SC,
		addr.LCDC, addr.STAT, addr.SCY, addr.SCX, addr.LYC,
		addr.BGP, addr.OBP0, addr.OBP1, addr.WY, addr.WX,
		addr.KEY1, addr.VBK, addr.HDMA1, addr.HDMA2, addr.HDMA3, addr.HDMA4, addr.HDMA5,
		addr.BCPS, addr.BCPD, addr.OCPS, addr.OCPD, addr.SVBK:
		return true
	default:
		return false
	}
}

// HandleKeyPress marks key pressed and raises the JOYPAD interrupt if this
// was a released-to-pressed transition (§4.2, §6).
func (m *MMU) HandleKeyPress(key JoypadKey) {
	if m.joy.Press(key) {
		m.RequestInterrupt(addr.JoypadInterrupt)
	}
}

// HandleKeyRelease marks key released.
func (m *MMU) HandleKeyRelease(key JoypadKey) {
	m.joy.Release(key)
}

// Cartridge exposes the loaded cartridge, if any.
func (m *MMU) Cartridge() *Cartridge { return m.cart }
