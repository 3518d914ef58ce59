package video

// A tile is 8x8 pixels, 2 bits per pixel, stored as 16 bytes: each row is
// two bytes whose corresponding bit positions form the pixel's 2-bit shade
// index (low byte = bit 0 of each pixel, high byte = bit 1), most
// significant bit first (§4.4).

// tileRow unpacks one 8-pixel row into shade indices 0-3.
func tileRow(low, high byte) [8]uint8 {
	var row [8]uint8
	for i := 0; i < 8; i++ {
		bitPos := uint(7 - i)
		lo := (low >> bitPos) & 0x01
		hi := (high >> bitPos) & 0x01
		row[i] = (hi << 1) | lo
	}
	return row
}

// tileData reads one full 8x8 tile starting at base within vram.
func tileData(vram []byte, base uint16) [8][8]uint8 {
	var tile [8][8]uint8
	for y := 0; y < 8; y++ {
		low := vram[base+uint16(y*2)]
		high := vram[base+uint16(y*2)+1]
		tile[y] = tileRow(low, high)
	}
	return tile
}

// tileDataAddress resolves a tile index to its VRAM byte offset, honoring
// LCDC bit 4's choice between the unsigned (0x8000-based) and signed
// (0x9000-based, index used as a signed offset) addressing modes (§4.4).
func tileDataAddress(lcdc uint8, index uint8) uint16 {
	const tileSize = 16
	if lcdc&0x10 != 0 {
		return uint16(index) * tileSize
	}
	return uint16(0x1000 + int16(int8(index))*tileSize)
}
