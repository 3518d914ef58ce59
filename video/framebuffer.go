// Package video implements the PPU: its mode state machine, tile decoding,
// and the background and window scanline renderer this core supports
// (sprites are not drawn) (§4.4).
package video

const (
	ScreenWidth  = 160
	ScreenHeight = 144
)

// DMG palette, lightest to darkest shade (§4.4). These are the classic
// green-tinted LCD shades rather than a neutral grayscale ramp.
var dmgPalette = [4]uint32{
	0x9CBD0F,
	0x8CAD0F,
	0x306230,
	0x0F380F,
}

// FrameBuffer holds one rendered frame as 2-bit shade indices, one per
// pixel. ToRGBA builds an RGBA rendering from them on each call; none is
// cached.
type FrameBuffer struct {
	shades [ScreenHeight][ScreenWidth]uint8
}

// NewFrameBuffer returns a frame buffer with every pixel at shade 0.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{}
}

// SetPixel stores a 2-bit shade index at (x, y).
func (f *FrameBuffer) SetPixel(x, y int, shade uint8) {
	f.shades[y][x] = shade & 0x03
}

// Pixel returns the shade index at (x, y).
func (f *FrameBuffer) Pixel(x, y int) uint8 { return f.shades[y][x] }

// ToRGBA renders the buffer to a flat RGBA8888 slice using the DMG
// palette, applying the supplied BGP palette-index remap (bits 0-1 for
// shade 0, 2-3 for shade 1, and so on, per the standard BGP encoding).
func (f *FrameBuffer) ToRGBA(bgp uint8) []byte {
	out := make([]byte, ScreenWidth*ScreenHeight*4)
	for y := 0; y < ScreenHeight; y++ {
		for x := 0; x < ScreenWidth; x++ {
			shade := f.shades[y][x]
			mapped := (bgp >> (shade * 2)) & 0x03
			color := dmgPalette[mapped]
			i := (y*ScreenWidth + x) * 4
			out[i] = byte(color >> 16)
			out[i+1] = byte(color >> 8)
			out[i+2] = byte(color)
			out[i+3] = 0xFF
		}
	}
	return out
}
