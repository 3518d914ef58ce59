package video

import (
	"github.com/tessellate/dmgcore/addr"
	"github.com/tessellate/dmgcore/memory"
)

// GPUMode is one of the four PPU modes the STAT register exposes in its
// low 2 bits (§4.4).
type GPUMode int

const (
	HBlankMode GPUMode = iota
	VBlankMode
	OAMScanMode
	PixelTransferMode
)

// Per-mode dot budgets, in CPU cycles (§4.4). OAMScanMode + PixelTransferMode
// + HBlankMode always sum to one scanline's 456 cycles; sprite-induced
// stalls that would shrink HBlank/grow PixelTransfer are out of scope
// (Non-goals).
const (
	oamScanCycles        = 80
	pixelTransferCycles  = 172
	hBlankCycles         = 204
	cyclesPerScanline    = oamScanCycles + pixelTransferCycles + hBlankCycles
	visibleScanlines     = 144
	totalScanlinesPerFrame = 154
)

// bus is the narrow MMU surface the PPU needs: register read/write plus
// the raw (ungated) VRAM/OAM buffers it renders from.
type bus interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
	WriteRegister(address uint16, value uint8)
	RequestInterrupt(i addr.Interrupt)
	RawVRAM() []byte
	RawOAM() []byte
}

// GPU is the PPU mode state machine and background renderer.
//
// REDESIGN NOTE: a scanline's pixels are produced in full the instant the
// PPU leaves PixelTransferMode and enters HBlankMode, rather than at
// PixelTransferMode's own entry. Either choice is externally indistinguishable
// to guest code, since VRAM/OAM are already locked for the entirety of
// PixelTransferMode either way; mode-0 entry was chosen so a frontend polling
// FrameBuffer from a STAT HBlank interrupt handler always observes the
// current line already drawn.
type GPU struct {
	bus bus

	mode         GPUMode
	cyclesInMode int
	line         int // LY, 0-153

	windowLine int // internal window-line counter, resets each VBlank

	frame *FrameBuffer

	lastStatSignal bool

	// VBlankCallback, if set, is invoked exactly once per frame when VBlank
	// begins (LY reaches 144), after FrameBuffer holds the complete frame.
	VBlankCallback func(*FrameBuffer)
}

// NewGPU constructs a GPU reading/writing through m and registers itself
// with the MMU so VRAM/OAM CPU accesses can be mode-gated.
func NewGPU(m *memory.MMU) *GPU {
	g := &GPU{bus: m, frame: NewFrameBuffer(), mode: OAMScanMode}
	m.SetPPUView(modeView{g})
	return g
}

// modeView adapts GPU to the unexported ppuView interface memory.MMU wants,
// without memory importing video.
type modeView struct{ g *GPU }

func (m modeView) Mode() int { return int(m.g.mode) }

func (m modeView) RecomputeLYC() { m.g.RecomputeLYC() }

// RecomputeLYC re-runs the LY==LYC comparison and the shared STAT interrupt
// check immediately, for callers (the MMU, on a guest write to LYC/STAT)
// that can't wait for the next natural advanceLine (§8 invariant 6).
func (g *GPU) RecomputeLYC() {
	g.compareLYToLYC()
	g.updateStatInterrupt()
}

// Mode reports the current PPU mode as an int (used directly by memory.MMU
// gating and indirectly through modeView).
func (g *GPU) Mode() int { return int(g.mode) }

// LY returns the current scanline.
func (g *GPU) LY() int { return g.line }

// FrameBuffer returns the most recently completed (or in-progress) frame.
func (g *GPU) FrameBuffer() *FrameBuffer { return g.frame }

// Tick advances the PPU state machine by cycles CPU cycles. It is a no-op
// when the LCD is off (LCDC bit 7 clear): LY, the mode and the cycle count
// stay where they were until the LCD is switched back on (§4.4).
func (g *GPU) Tick(cycles int) {
	if g.bus.Read(addr.LCDC)&0x80 == 0 {
		return
	}

	g.cyclesInMode += cycles

	// Loop rather than check once: a single Tick call may carry enough
	// cycles to cross more than one mode boundary (e.g. a CALL instruction
	// spanning an OAMScan->PixelTransfer transition).
	for g.stepMode() {
	}

	g.updateStatInterrupt()
}

// stepMode performs at most one mode/line transition if cyclesInMode has
// reached the current mode's budget, and reports whether it did so (so
// Tick can keep draining multi-boundary cycle counts).
func (g *GPU) stepMode() bool {
	switch g.mode {
	case OAMScanMode:
		if g.cyclesInMode < oamScanCycles {
			return false
		}
		g.cyclesInMode -= oamScanCycles
		g.setMode(PixelTransferMode)
	case PixelTransferMode:
		if g.cyclesInMode < pixelTransferCycles {
			return false
		}
		g.cyclesInMode -= pixelTransferCycles
		g.renderScanline()
		g.setMode(HBlankMode)
	case HBlankMode:
		if g.cyclesInMode < hBlankCycles {
			return false
		}
		g.cyclesInMode -= hBlankCycles
		g.advanceLine()
	case VBlankMode:
		if g.cyclesInMode < cyclesPerScanline {
			return false
		}
		g.cyclesInMode -= cyclesPerScanline
		g.advanceLine()
	}
	return true
}

// advanceLine increments LY and picks the next mode/line transition.
func (g *GPU) advanceLine() {
	g.line++

	if g.line == visibleScanlines {
		g.setMode(VBlankMode)
		g.bus.RequestInterrupt(addr.VBlankInterrupt)
		if g.VBlankCallback != nil {
			g.VBlankCallback(g.frame)
		}
	} else if g.line >= totalScanlinesPerFrame {
		g.line = 0
		g.windowLine = 0
		g.setMode(OAMScanMode)
	} else if g.mode == HBlankMode {
		g.setMode(OAMScanMode)
	}

	g.bus.WriteRegister(addr.LY, byte(g.line))
	g.compareLYToLYC()
}

func (g *GPU) setMode(mode GPUMode) {
	g.mode = mode
	stat := g.bus.Read(addr.STAT)
	stat = (stat &^ 0x03) | byte(mode)
	g.bus.WriteRegister(addr.STAT, stat)
}

func (g *GPU) compareLYToLYC() {
	lyc := g.bus.Read(addr.LYC)
	stat := g.bus.Read(addr.STAT)
	if byte(g.line) == lyc {
		stat = stat | 0x04
	} else {
		stat = stat &^ 0x04
	}
	g.bus.WriteRegister(addr.STAT, stat)
}

// updateStatInterrupt fires LCDSTAT on the rising edge of the OR of every
// STAT source currently enabled (§4.4): this mirrors real hardware's single
// shared "STAT line" rather than firing once per enabled source.
func (g *GPU) updateStatInterrupt() {
	stat := g.bus.Read(addr.STAT)
	signal := false
	if stat&0x40 != 0 && stat&0x04 != 0 { // LYC=LY
		signal = true
	}
	if stat&0x20 != 0 && g.mode == OAMScanMode {
		signal = true
	}
	if stat&0x10 != 0 && g.mode == VBlankMode {
		signal = true
	}
	if stat&0x08 != 0 && g.mode == HBlankMode {
		signal = true
	}

	if signal && !g.lastStatSignal {
		g.bus.RequestInterrupt(addr.LCDSTATInterrupt)
	}
	g.lastStatSignal = signal
}

// renderScanline draws the background (and window, where enabled) pixels
// for the current line into FrameBuffer. Sprite compositing is a documented
// non-goal (§4.4) handled by drawSprites as a no-op stub.
func (g *GPU) renderScanline() {
	if g.line >= ScreenHeight {
		return
	}
	g.drawBackground()
	g.drawWindow()
	g.drawSprites()
}

func (g *GPU) drawBackground() {
	lcdc := g.bus.Read(addr.LCDC)
	if lcdc&0x01 == 0 {
		for x := 0; x < ScreenWidth; x++ {
			g.frame.SetPixel(x, g.line, 0)
		}
		return
	}

	scy := g.bus.Read(addr.SCY)
	scx := g.bus.Read(addr.SCX)
	vram := g.bus.RawVRAM()

	mapBase := addr.TileMap0
	if lcdc&0x08 != 0 {
		mapBase = addr.TileMap1
	}

	y := (int(scy) + g.line) & 0xFF
	tileRowIdx := y / 8
	pixelRowInTile := y % 8

	for x := 0; x < ScreenWidth; x++ {
		scrolledX := (x + int(scx)) & 0xFF
		tileColIdx := scrolledX / 8
		pixelColInTile := scrolledX % 8

		mapOffset := mapBase - 0x8000 + uint16(tileRowIdx*32+tileColIdx)
		tileIndex := vram[mapOffset]

		tileBase := tileDataAddress(lcdc, tileIndex)
		row := tileRow(vram[tileBase+uint16(pixelRowInTile*2)], vram[tileBase+uint16(pixelRowInTile*2)+1])

		g.frame.SetPixel(x, g.line, row[pixelColInTile])
	}
}

func (g *GPU) drawWindow() {
	lcdc := g.bus.Read(addr.LCDC)
	if lcdc&0x20 == 0 {
		return
	}

	wy := int(g.bus.Read(addr.WY))
	wx := int(g.bus.Read(addr.WX)) - 7
	if g.line < wy {
		return
	}

	vram := g.bus.RawVRAM()
	mapBase := addr.TileMap0
	if lcdc&0x40 != 0 {
		mapBase = addr.TileMap1
	}

	tileRowIdx := g.windowLine / 8
	pixelRowInTile := g.windowLine % 8
	drewAny := false

	for x := 0; x < ScreenWidth; x++ {
		screenX := x - wx
		if screenX < 0 || screenX >= ScreenWidth {
			continue
		}
		drewAny = true

		tileColIdx := screenX / 8
		pixelColInTile := screenX % 8

		mapOffset := mapBase - 0x8000 + uint16(tileRowIdx*32+tileColIdx)
		tileIndex := vram[mapOffset]

		tileBase := tileDataAddress(lcdc, tileIndex)
		row := tileRow(vram[tileBase+uint16(pixelRowInTile*2)], vram[tileBase+uint16(pixelRowInTile*2)+1])

		g.frame.SetPixel(x, g.line, row[pixelColInTile])
	}

	if drewAny {
		g.windowLine++
	}
}

// drawSprites is an intentional no-op: OAM-based sprite compositing is out
// of scope (Non-goals). The OAM buffer is still readable/writable
// (including via DMA) so guest code that depends on OAM state for other
// purposes is unaffected.
func (g *GPU) drawSprites() {}
