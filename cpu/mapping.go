package cpu

// opcodeFunc executes one decoded instruction and returns its cycle cost.
type opcodeFunc func(*CPU) int

// opcodeMap and opcodeCBMap are built once at init time: the primary
// opcodes are set up in opcodes.go (named functions plus the generated
// LD r,r' and ALU A,r blocks; illegal opcodes stay nil), the 256 CB-prefixed
// opcodes are generated (opcodes_cb.go) since their encoding is fully
// regular (8 registers x 32 row operations).
var opcodeMap [256]opcodeFunc
var opcodeCBMap [256]opcodeFunc

// execute decodes and runs one instruction starting at the already-fetched
// opcode byte, following into the CB table when opcode is the 0xCB prefix.
func (c *CPU) execute(opcode uint8) int {
	c.currentOpcode = opcode

	if opcode == 0xCB {
		sub := c.fetch()
		fn := opcodeCBMap[sub]
		if fn == nil {
			c.fatal("cpu: unimplemented CB opcode 0x%02X", sub)
		}
		return fn(c)
	}

	fn := opcodeMap[opcode]
	if fn == nil {
		c.fatal("cpu: illegal opcode 0x%02X", opcode)
	}
	return fn(c)
}
