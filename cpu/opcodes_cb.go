package cpu

// CB-prefixed opcode table (§4.2). The encoding is fully regular: bits 3-7
// select one of 32 row operations (8 rotate/shift/swap ops, then BIT/RES/SET
// each repeated for every bit 0-7), bits 0-2 select the operand register in
// the same B,C,D,E,H,L,(HL),A order as the primary LD/ALU blocks. Because
// every one of the 256 entries is a mechanical instantiation of one of 11
// row kinds against 8 operands, the table is built by this loop rather than
// hand-written as 256 near-identical functions.
func init() {
	for opcode := 0; opcode <= 0xFF; opcode++ {
		row := uint8(opcode>>3) & 0x1F
		reg := uint8(opcode) & 0x07
		opcodeCBMap[uint8(opcode)] = cbRowFunc(row, reg)
	}
}

func cbRowFunc(row, reg uint8) opcodeFunc {
	switch {
	case row < 8:
		return cbShiftRotate(row, reg)
	case row < 16:
		return cbBit(row-8, reg)
	case row < 24:
		return cbRes(row-16, reg)
	default:
		return cbSet(row-24, reg)
	}
}

func cbShiftRotate(row, reg uint8) opcodeFunc {
	op := func(c *CPU, v *uint8) {
		switch row {
		case 0:
			c.rlc(v)
		case 1:
			c.rrc(v)
		case 2:
			c.rl(v)
		case 3:
			c.rr(v)
		case 4:
			c.sla(v)
		case 5:
			c.sra(v)
		case 6:
			c.swap(v)
		case 7:
			c.srl(v)
		}
	}
	if reg == 6 {
		return func(c *CPU) int {
			v := c.bus.Read(c.hl())
			op(c, &v)
			c.bus.Write(c.hl(), v)
			return 16
		}
	}
	return func(c *CPU) int {
		op(c, regFieldPtr(c, reg))
		return 8
	}
}

func cbBit(index, reg uint8) opcodeFunc {
	if reg == 6 {
		return func(c *CPU) int {
			c.bitTest(index, c.bus.Read(c.hl()))
			return 12
		}
	}
	return func(c *CPU) int {
		c.bitTest(index, *regFieldPtr(c, reg))
		return 8
	}
}

func cbRes(index, reg uint8) opcodeFunc {
	if reg == 6 {
		return func(c *CPU) int {
			c.bus.Write(c.hl(), resetBit(index, c.bus.Read(c.hl())))
			return 16
		}
	}
	return func(c *CPU) int {
		p := regFieldPtr(c, reg)
		*p = resetBit(index, *p)
		return 8
	}
}

func cbSet(index, reg uint8) opcodeFunc {
	if reg == 6 {
		return func(c *CPU) int {
			c.bus.Write(c.hl(), setBit(index, c.bus.Read(c.hl())))
			return 16
		}
	}
	return func(c *CPU) int {
		p := regFieldPtr(c, reg)
		*p = setBit(index, *p)
		return 8
	}
}

// regFieldPtr returns the addressable register field for CB operand index
// reg (never 6, the (HL) indirect case, which callers special-case above).
func regFieldPtr(c *CPU, reg uint8) *uint8 {
	switch reg {
	case 0:
		return &c.b
	case 1:
		return &c.c
	case 2:
		return &c.d
	case 3:
		return &c.e
	case 4:
		return &c.h
	case 5:
		return &c.l
	default:
		return &c.a
	}
}
