package memory

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tessellate/dmgcore/bit"
)

// Header field offsets, all relative to the start of the ROM image.
const (
	entryPointAddress    = 0x100
	logoAddress          = 0x104
	titleAddress         = 0x134
	titleLength          = 11 // overlaps CGB flag/manufacturer code on later carts
	cgbFlagAddress       = 0x143
	newLicenseeAddress   = 0x144
	sgbFlagAddress       = 0x146
	cartridgeTypeAddress = 0x147
	romSizeAddress       = 0x148
	ramSizeAddress       = 0x149
	destinationAddress   = 0x14A
	oldLicenseeAddress   = 0x14B
	versionAddress       = 0x14C
	headerChecksumAddress = 0x14D
	globalChecksumAddress = 0x14E

	minROMSize = 0x8000 // 32 KiB, the smallest valid cartridge image
)

// nintendoLogo is the fixed 48-byte bitmap every official cartridge carries
// at 0x104-0x133. The boot ROM compares against this; we do the same check
// at load time since this core synthesizes post-boot state directly (§1).
var nintendoLogo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B, 0x03, 0x73, 0x00, 0x83,
	0x00, 0x0C, 0x00, 0x0D, 0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E,
	0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99, 0xBB, 0xBB, 0x67, 0x63,
	0x6E, 0x0E, 0xEC, 0xCC, 0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// SystemKind selects the hardware variant the cartridge targets, which
// modulates CPU frequency and post-boot register values (§3).
type SystemKind uint8

const (
	SystemDMG SystemKind = iota
	SystemSGB
	SystemCGB
)

// CPUFrequency returns the clock rate, in Hz, for the system kind.
func (s SystemKind) CPUFrequency() int {
	switch s {
	case SystemCGB:
		return 8388608
	case SystemSGB:
		return 4295454
	default:
		return 4194304
	}
}

func (s SystemKind) String() string {
	switch s {
	case SystemCGB:
		return "CGB"
	case SystemSGB:
		return "SGB"
	default:
		return "DMG"
	}
}

// ParseSystemKind maps a case-insensitive "dmg"/"sgb"/"cgb" string (as taken
// from a host CLI flag) to a SystemKind. An unrecognized value is an error
// rather than a silent fallback to SystemDMG, so a typo'd flag doesn't boot
// the wrong register preset without warning (§7).
func ParseSystemKind(s string) (SystemKind, error) {
	switch strings.ToLower(s) {
	case "dmg":
		return SystemDMG, nil
	case "sgb":
		return SystemSGB, nil
	case "cgb":
		return SystemCGB, nil
	default:
		return 0, fmt.Errorf("memory: unrecognized system kind %q (want dmg, sgb, or cgb)", s)
	}
}

// CartType enumerates the MBC taxonomy a header's byte 0x147 can select.
// Only ROMOnly is wired to be cycle-accurate end to end (§4.6, §9); the rest
// are recognized so the dispatcher never panics on an unexpected cart.
type CartType uint8

const (
	ROMOnly                   CartType = 0x00
	MBC1                      CartType = 0x01
	MBC1RAM                   CartType = 0x02
	MBC1RAMBattery            CartType = 0x03
	MBC2                      CartType = 0x05
	MBC2Battery               CartType = 0x06
	ROMRAM                    CartType = 0x08
	ROMRAMBattery             CartType = 0x09
	MMM01                     CartType = 0x0B
	MMM01RAM                  CartType = 0x0C
	MMM01RAMBattery           CartType = 0x0D
	MBC3TimerBattery          CartType = 0x0F
	MBC3TimerRAMBattery       CartType = 0x10
	MBC3                      CartType = 0x11
	MBC3RAM                   CartType = 0x12
	MBC3RAMBattery            CartType = 0x13
	MBC5                      CartType = 0x19
	MBC5RAM                   CartType = 0x1A
	MBC5RAMBattery            CartType = 0x1B
	MBC5Rumble                CartType = 0x1C
	MBC5RumbleRAM             CartType = 0x1D
	MBC5RumbleRAMBattery      CartType = 0x1E
	MBC6                      CartType = 0x20
	MBC7SensorRumbleRAMBatt   CartType = 0x22
	PocketCamera              CartType = 0xFC
	BandaiTAMA5               CartType = 0xFD
	HuC3                      CartType = 0xFE
	HuC1RAMBattery            CartType = 0xFF
)

// HasBattery reports whether this cart type persists RAM across power-off.
func (c CartType) HasBattery() bool {
	switch c {
	case MBC1RAMBattery, MBC2Battery, ROMRAMBattery, MMM01RAMBattery,
		MBC3TimerBattery, MBC3TimerRAMBattery, MBC3RAMBattery,
		MBC5RAMBattery, MBC5RumbleRAMBattery, MBC7SensorRumbleRAMBatt,
		HuC1RAMBattery:
		return true
	default:
		return false
	}
}

// HasRTC reports whether this cart type carries an MBC3-style real-time clock.
func (c CartType) HasRTC() bool {
	return c == MBC3TimerBattery || c == MBC3TimerRAMBattery
}

// HasRumble reports whether this cart type drives a rumble motor.
func (c CartType) HasRumble() bool {
	switch c {
	case MBC5Rumble, MBC5RumbleRAM, MBC5RumbleRAMBattery, MBC7SensorRumbleRAMBatt:
		return true
	default:
		return false
	}
}

// Cartridge holds the parsed header and owned ROM bytes for a loaded game.
// Per §3, the Cartridge exclusively owns this buffer.
type Cartridge struct {
	data           []byte
	title          string
	system         SystemKind
	cartType       CartType
	romSize        uint8
	ramSize        uint8
	ramBankCount   uint8
	headerChecksum uint8
	globalChecksum uint16
	logoValid      bool
	checksumValid  bool
}

// NewCartridge returns an empty cartridge, useful for booting with no ROM
// inserted: 32 KiB of zero bytes typed ROM_ONLY, so ROM-region reads
// through it return 0x00.
func NewCartridge() *Cartridge {
	return &Cartridge{
		data:   make([]byte, minROMSize),
		system: SystemDMG,
	}
}

// ErrROMTooSmall is returned by LoadCartridge when the image is below the
// minimum 32 KiB a valid header requires (§4.6, §7 — Error severity).
var ErrROMTooSmall = errors.New("memory: ROM image smaller than 32 KiB")

// LoadCartridge validates and parses a ROM image into a Cartridge. Logo and
// header-checksum mismatches are warnings in a release build: the cartridge
// still loads, on the theory that a handful of bootleg/homebrew carts trip
// these checks but are otherwise playable (§7).
func LoadCartridge(data []byte) (*Cartridge, error) {
	if len(data) < minROMSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrROMTooSmall, len(data))
	}

	c := &Cartridge{
		data:     make([]byte, len(data)),
		cartType: CartType(data[cartridgeTypeAddress]),
		romSize:  data[romSizeAddress],
		ramSize:  data[ramSizeAddress],
	}
	copy(c.data, data)

	c.title = cleanGameboyTitle(data[titleAddress : titleAddress+titleLength])
	c.system = detectSystemKind(data)
	c.ramBankCount = ramBankCountFor(c.ramSize)

	c.logoValid = bytesEqual(data[logoAddress:logoAddress+48], nintendoLogo[:])
	if !c.logoValid {
		slog.Warn("cartridge: Nintendo logo mismatch, loading anyway", "title", c.title)
	}

	computed := headerChecksum(data)
	c.headerChecksum = data[headerChecksumAddress]
	c.checksumValid = computed == c.headerChecksum
	if !c.checksumValid {
		slog.Warn("cartridge: header checksum mismatch, loading anyway",
			"title", c.title, "computed", computed, "stored", c.headerChecksum)
	}

	c.globalChecksum = bit.Combine(data[globalChecksumAddress], data[globalChecksumAddress+1])

	slog.Debug("cartridge loaded", "title", c.title, "system", c.system.String(),
		"type", fmt.Sprintf("0x%02X", uint8(c.cartType)), "romSize", len(data))

	return c, nil
}

// detectSystemKind inspects the CGB/SGB flag bytes to choose a hardware
// variant. CGB takes priority over SGB when both flags are set, matching
// real boot ROM behavior.
func detectSystemKind(data []byte) SystemKind {
	cgbFlag := data[cgbFlagAddress]
	if cgbFlag == 0x80 || cgbFlag == 0xC0 {
		return SystemCGB
	}
	if data[sgbFlagAddress] == 0x03 {
		return SystemSGB
	}
	return SystemDMG
}

// headerChecksum computes the 0x134-0x14C checksum the hardware expects to
// equal byte 0x14D, modulo 256.
func headerChecksum(data []byte) uint8 {
	var sum uint8
	for i := 0x134; i <= 0x14C; i++ {
		sum = sum - data[i] - 1
	}
	return sum
}

func ramBankCountFor(ramSizeCode uint8) uint8 {
	switch ramSizeCode {
	case 0x00:
		return 0
	case 0x02:
		return 1
	case 0x03:
		return 4
	case 0x04:
		return 16
	case 0x05:
		return 8
	default:
		return 0
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ROMBankCount returns the number of 16 KiB banks this cartridge declares.
func (c *Cartridge) ROMBankCount() int {
	return (minROMSize << c.romSize) / 0x4000
}

// Title returns the cleaned cartridge title from the header.
func (c *Cartridge) Title() string { return c.title }

// System returns the hardware variant selected at load time.
func (c *Cartridge) System() SystemKind { return c.system }

// OverrideSystem replaces the auto-detected hardware variant, for hosts that
// want to force a specific DMG/SGB/CGB post-boot register preset rather than
// trust the header's CGB/SGB flag bytes (§3, §11).
func (c *Cartridge) OverrideSystem(sys SystemKind) { c.system = sys }

// Data returns the raw owned ROM bytes. Callers must not retain slices past
// the cartridge's lifetime expectations (§3 — exclusive ownership).
func (c *Cartridge) Data() []byte { return c.data }
