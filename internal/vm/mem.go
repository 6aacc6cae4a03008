package vm

import (
	"encoding/binary"

	"github.com/sunjay/wolf-asm/internal/diag"
)

// MMIO addresses reserved by the memory map; loads and stores to them
// never touch the backing buffer.
const (
	mmioStdinAddr  = 0xffff_0004
	mmioStdoutAddr = 0xffff_000c
)

func leBytes(v uint64, width int) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return buf[:width]
}

func fromLE(b []byte) uint64 {
	var buf [8]byte
	copy(buf[:], b)
	return binary.LittleEndian.Uint64(buf[:])
}

func signExtendWidth(v uint64, width int) uint64 {
	bits := width * 8
	if bits >= 64 {
		return v
	}
	signBit := uint64(1) << uint(bits-1)
	if v&signBit != 0 {
		v |= ^uint64(0) << uint(bits)
	}
	return v
}

// loadValue reads width bytes at addr, zero- or sign-extending to 64 bits,
// short-circuiting into the Host I/O Adapter for the MMIO stdin address.
func (m *Machine) loadValue(addr uint64, width int, signExtend bool) (uint64, error) {
	if addr == mmioStdinAddr {
		v := fromLE(m.IO.ReadBytes(width))
		if signExtend {
			return signExtendWidth(v, width), nil
		}
		return v, nil
	}
	if addr+uint64(width) > uint64(len(m.Mem)) {
		return 0, m.fault(diag.RuntimeBadAddress, "load of %d byte(s) at 0x%x out of bounds", width, addr)
	}
	v := fromLE(m.Mem[addr : addr+uint64(width)])
	if signExtend {
		return signExtendWidth(v, width), nil
	}
	return v, nil
}

// storeValue writes the low width bytes of value at addr, short-circuiting
// into the Host I/O Adapter for the MMIO stdout address (which always uses
// the low 32 bits of value as a Unicode scalar, regardless of width).
func (m *Machine) storeValue(addr uint64, width int, value uint64) error {
	if addr == mmioStdoutAddr {
		return m.IO.WriteScalar(uint32(value))
	}
	if addr+uint64(width) > uint64(len(m.Mem)) {
		return m.fault(diag.RuntimeBadAddress, "store of %d byte(s) at 0x%x out of bounds", width, addr)
	}
	copy(m.Mem[addr:addr+uint64(width)], leBytes(value, width))
	return nil
}
