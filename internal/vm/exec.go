package vm

import (
	"math/big"
	"math/bits"

	"github.com/sunjay/wolf-asm/internal/decoder"
	"github.com/sunjay/wolf-asm/internal/diag"
	"github.com/sunjay/wolf-asm/internal/isa"
)

var (
	minInt64 = big.NewInt(-1 << 63)
	maxInt64 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 63), big.NewInt(1))
	twoTo64  = new(big.Int).Lsh(big.NewInt(1), 64)
	twoTo128 = new(big.Int).Lsh(big.NewInt(1), 128)
	mask64   = new(big.Int).Sub(twoTo64, big.NewInt(1))
)

// execute dispatches a decoded instruction by its operand-shape family,
// the same grouping the encoder used to pick a layout. Returns halted=true
// only for a ret executed while $sp is still at its initial value.
func (m *Machine) execute(instr decoder.Instruction) (bool, error) {
	switch instr.Family {
	case isa.FamNone:
		return m.execNone(instr.Mnemonic)
	case isa.FamDestSource:
		return false, m.execDestSource(instr)
	case isa.FamDestHiDestSrc:
		return false, m.execDestHiDestSrc(instr)
	case isa.FamSourceSource:
		return false, m.execSourceSource(instr)
	case isa.FamDestLoc:
		return false, m.execLoad(instr)
	case isa.FamLocSource:
		return false, m.execStore(instr)
	case isa.FamLoc:
		return m.execControl(instr)
	case isa.FamSource:
		return false, m.execPush(instr)
	case isa.FamDestOnly:
		return false, m.execPop(instr)
	}
	return false, m.fault(diag.RuntimeUnknownOpcode, "unhandled instruction family")
}

func (m *Machine) execNone(mnemonic string) (bool, error) {
	switch mnemonic {
	case "nop":
		return false, nil
	case "ret":
		// A ret with nothing pushed since the program started (the stack
		// pointer is still at its initial, topmost value) is the program's
		// exit: there is no valid return address below it to pop, so
		// execution halts here rather than reading past the stack top.
		if m.Regs[RegSP] == m.initialSP {
			return true, nil
		}
		target, err := m.popValue()
		if err != nil {
			return false, err
		}
		m.PC = target
		return false, nil
	case "syscall":
		return false, m.fault(diag.RuntimeUnknownOpcode, "syscall has no binding in this core")
	}
	return false, m.fault(diag.RuntimeUnknownOpcode, "unknown opcode %s", mnemonic)
}

func (m *Machine) popValue() (uint64, error) {
	sp := m.Regs[RegSP]
	v, err := m.loadValue(sp, 8, false)
	if err != nil {
		return 0, err
	}
	m.Regs[RegSP] = sp + 8
	return v, nil
}

func (m *Machine) pushValue(v uint64) error {
	sp := m.Regs[RegSP] - 8
	if sp > m.Regs[RegSP] {
		return m.fault(diag.RuntimeStackUnderflow, "stack pointer underflowed on push")
	}
	if err := m.storeValue(sp, 8, v); err != nil {
		return err
	}
	m.Regs[RegSP] = sp
	return nil
}

func addOverflow(a, b, result uint64) bool {
	sa, sb, sr := int64(a) < 0, int64(b) < 0, int64(result) < 0
	return sa == sb && sa != sr
}

func subOverflow(a, b, result uint64) bool {
	sa, sb, sr := int64(a) < 0, int64(b) < 0, int64(result) < 0
	return sa != sb && sr != sa
}

// mulSigned computes the signed 64x64 product, truncated to the low 64
// bits, and reports whether the true (wide) result didn't fit back into a
// signed 64-bit value.
func mulSigned(a, b uint64) (result uint64, overflow bool) {
	prod := new(big.Int).Mul(big.NewInt(int64(a)), big.NewInt(int64(b)))
	fits := prod.Cmp(minInt64) >= 0 && prod.Cmp(maxInt64) <= 0
	low := new(big.Int).Mod(prod, twoTo64)
	return low.Uint64(), !fits
}

// mulSignedWide computes the full 128-bit signed product and splits it
// into low/high 64-bit halves (mull/mullu's two-destination form).
func mulSignedWide(a, b uint64) (lo, hi uint64, overflow bool) {
	prod := new(big.Int).Mul(big.NewInt(int64(a)), big.NewInt(int64(b)))
	fits := prod.Cmp(minInt64) >= 0 && prod.Cmp(maxInt64) <= 0
	u := new(big.Int).Mod(prod, twoTo128)
	lo = new(big.Int).And(u, mask64).Uint64()
	hi = new(big.Int).Rsh(u, 64).Uint64()
	return lo, hi, !fits
}

func (m *Machine) execDestSource(instr decoder.Instruction) error {
	dest := instr.Operands[0]
	src := m.resolveSource(instr.Operands[1])
	destVal := m.Regs[dest.Reg]

	switch instr.Mnemonic {
	case "add":
		result, carry := bits.Add64(destVal, src, 0)
		m.setFlag(flagCF, carry != 0)
		m.setFlag(flagOF, addOverflow(destVal, src, result))
		m.setZSFromResult(result)
		m.Regs[dest.Reg] = result

	case "sub":
		result, borrow := bits.Sub64(destVal, src, 0)
		m.setFlag(flagCF, borrow != 0)
		m.setFlag(flagOF, subOverflow(destVal, src, result))
		m.setZSFromResult(result)
		m.Regs[dest.Reg] = result

	case "mul":
		result, overflow := mulSigned(destVal, src)
		m.setFlag(flagCF, overflow)
		m.setFlag(flagOF, overflow)
		m.Regs[dest.Reg] = result

	case "mulu":
		hi, lo := bits.Mul64(destVal, src)
		m.setFlag(flagCF, hi != 0)
		m.setFlag(flagOF, hi != 0)
		m.Regs[dest.Reg] = lo

	case "div":
		if src == 0 {
			return m.fault(diag.RuntimeDivByZero, "div by zero")
		}
		m.Regs[dest.Reg] = uint64(int64(destVal) / int64(src))

	case "divu":
		if src == 0 {
			return m.fault(diag.RuntimeDivByZero, "divu by zero")
		}
		m.Regs[dest.Reg] = destVal / src

	case "rem":
		if src == 0 {
			return m.fault(diag.RuntimeDivByZero, "rem by zero")
		}
		m.Regs[dest.Reg] = uint64(int64(destVal) % int64(src))

	case "remu":
		if src == 0 {
			return m.fault(diag.RuntimeDivByZero, "remu by zero")
		}
		m.Regs[dest.Reg] = destVal % src

	case "mov":
		m.Regs[dest.Reg] = src
	}
	return nil
}

func (m *Machine) execDestHiDestSrc(instr decoder.Instruction) error {
	hi := instr.Operands[0]
	dest := instr.Operands[1]
	src := m.resolveSource(instr.Operands[2])
	destVal := m.Regs[dest.Reg]

	switch instr.Mnemonic {
	case "mull":
		lo, h, overflow := mulSignedWide(destVal, src)
		m.setFlag(flagCF, overflow)
		m.setFlag(flagOF, overflow)
		m.Regs[dest.Reg] = lo
		m.Regs[hi.Reg] = h

	case "mullu":
		h, lo := bits.Mul64(destVal, src)
		m.setFlag(flagCF, h != 0)
		m.setFlag(flagOF, h != 0)
		m.Regs[dest.Reg] = lo
		m.Regs[hi.Reg] = h

	case "divr":
		if src == 0 {
			return m.fault(diag.RuntimeDivByZero, "divr by zero")
		}
		m.Regs[dest.Reg] = uint64(int64(destVal) / int64(src))
		m.Regs[hi.Reg] = uint64(int64(destVal) % int64(src))

	case "divru":
		if src == 0 {
			return m.fault(diag.RuntimeDivByZero, "divru by zero")
		}
		m.Regs[dest.Reg] = destVal / src
		m.Regs[hi.Reg] = destVal % src
	}
	return nil
}

func (m *Machine) execSourceSource(instr decoder.Instruction) error {
	a := m.resolveSource(instr.Operands[0])
	b := m.resolveSource(instr.Operands[1])

	switch instr.Mnemonic {
	case "cmp":
		result, borrow := bits.Sub64(a, b, 0)
		m.setFlag(flagCF, borrow != 0)
		m.setFlag(flagOF, subOverflow(a, b, result))
		m.setZSFromResult(result)

	case "test":
		result := a & b
		m.setFlag(flagCF, false)
		m.setFlag(flagOF, false)
		m.setZSFromResult(result)
	}
	return nil
}

func (m *Machine) execLoad(instr decoder.Instruction) error {
	dest := instr.Operands[0]
	addr := m.resolveAddress(instr.Operands[1])
	op, ok := isa.LoadOp(instr.Mnemonic)
	if !ok {
		return m.fault(diag.RuntimeUnknownOpcode, "unknown load opcode %s", instr.Mnemonic)
	}
	v, err := m.loadValue(addr, op.Width, op.SignExtend)
	if err != nil {
		return err
	}
	m.Regs[dest.Reg] = v
	return nil
}

func (m *Machine) execStore(instr decoder.Instruction) error {
	addr := m.resolveAddress(instr.Operands[0])
	v := m.resolveSource(instr.Operands[1])
	width, ok := isa.StoreWidth(instr.Mnemonic)
	if !ok {
		return m.fault(diag.RuntimeUnknownOpcode, "unknown store opcode %s", instr.Mnemonic)
	}
	return m.storeValue(addr, width, v)
}

func (m *Machine) execControl(instr decoder.Instruction) (bool, error) {
	target := m.resolveAddress(instr.Operands[0])

	if instr.Mnemonic == "call" {
		if err := m.pushValue(m.PC); err != nil {
			return false, err
		}
		m.PC = target
		return false, nil
	}

	cond, ok := isa.ConditionFor(instr.Mnemonic)
	if !ok {
		return false, m.fault(diag.RuntimeUnknownOpcode, "unknown control opcode %s", instr.Mnemonic)
	}
	if m.evalCondition(cond) {
		m.PC = target
	}
	return false, nil
}

func (m *Machine) evalCondition(c isa.Condition) bool {
	switch c {
	case isa.CondAlways:
		return true
	case isa.CondEQ:
		return m.ZF()
	case isa.CondNE:
		return !m.ZF()
	case isa.CondG:
		return !m.ZF() && m.SF() == m.OF()
	case isa.CondGE:
		return m.SF() == m.OF()
	case isa.CondL:
		return m.SF() != m.OF()
	case isa.CondLE:
		return m.ZF() || m.SF() != m.OF()
	case isa.CondA:
		return !m.CF() && !m.ZF()
	case isa.CondAE:
		return !m.CF()
	case isa.CondB:
		return m.CF()
	case isa.CondBE:
		return m.CF() || m.ZF()
	case isa.CondO:
		return m.OF()
	case isa.CondNO:
		return !m.OF()
	case isa.CondS:
		return m.SF()
	case isa.CondNS:
		return !m.SF()
	}
	return false
}

func (m *Machine) execPush(instr decoder.Instruction) error {
	return m.pushValue(m.resolveSource(instr.Operands[0]))
}

func (m *Machine) execPop(instr decoder.Instruction) error {
	v, err := m.popValue()
	if err != nil {
		return err
	}
	m.Regs[instr.Operands[0].Reg] = v
	return nil
}
