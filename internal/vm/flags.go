package vm

// Flag bit positions within the 16-bit flags register: CF bit 0, ZF bit 6,
// SF bit 7, OF bit 11. The remaining bits are reserved and never set by
// this implementation.
const (
	flagCF uint16 = 1 << 0
	flagZF uint16 = 1 << 6
	flagSF uint16 = 1 << 7
	flagOF uint16 = 1 << 11
)

func (m *Machine) setFlag(bit uint16, on bool) {
	if on {
		m.Flags |= bit
	} else {
		m.Flags &^= bit
	}
}

// CF reports the carry flag.
func (m *Machine) CF() bool { return m.Flags&flagCF != 0 }

// ZF reports the zero flag.
func (m *Machine) ZF() bool { return m.Flags&flagZF != 0 }

// SF reports the sign flag.
func (m *Machine) SF() bool { return m.Flags&flagSF != 0 }

// OF reports the overflow flag.
func (m *Machine) OF() bool { return m.Flags&flagOF != 0 }

func (m *Machine) setZSFromResult(result uint64) {
	m.setFlag(flagZF, result == 0)
	m.setFlag(flagSF, int64(result) < 0)
}
