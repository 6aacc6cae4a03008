// Package vm is the execution engine. It loads an assembled image into a
// flat memory buffer, then runs a sequential fetch-decode-execute loop
// over it, mutating register/flag/memory state and routing MMIO through
// the host I/O adapter. The machine has 64 general-purpose registers, a
// flags register, and layout-driven instruction decode.
package vm

import (
	"fmt"

	"github.com/sunjay/wolf-asm/internal/ast"
	"github.com/sunjay/wolf-asm/internal/decoder"
	"github.com/sunjay/wolf-asm/internal/diag"
	"github.com/sunjay/wolf-asm/internal/hostio"
	"github.com/sunjay/wolf-asm/internal/image"
)

// DefaultStackBytes is suggested when the embedder has no size preference.
const DefaultStackBytes = 64 * 1024

// Fault is a fatal runtime error: it carries the failing PC and a
// diag.Kind from the RuntimeError sub-taxonomy.
type Fault struct {
	Kind diag.Kind
	PC   uint64
	Msg  string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s at PC=0x%x: %s", f.Kind, f.PC, f.Msg)
}

func (m *Machine) fault(kind diag.Kind, format string, args ...any) error {
	return &Fault{Kind: kind, PC: m.PC, Msg: fmt.Sprintf(format, args...)}
}

// Machine is the full CPU state: registers, flags, program counter, and the
// memory buffer the image was loaded into.
type Machine struct {
	Regs  [64]uint64
	Flags uint16
	PC    uint64
	Mem   []byte
	IO    *hostio.Adapter

	initialSP uint64
	codeStart uint64
	codeEnd   uint64

	// Disassemble, when set, receives one line of text per executed
	// instruction before it runs — the debug trace mode cmd/wavm exposes
	// with --disassemble.
	Disassemble func(pc uint64, text string)
}

// $fp and $sp are lexical aliases for register indices 62/63; they are
// not separate architectural registers.
const (
	RegFP = 62
	RegSP = 63
)

// New loads img into a fresh Machine with stackBytes of additional space
// below the image for the runtime stack, which grows downward from the top
// of the buffer.
func New(img image.Image, stackBytes int, io *hostio.Adapter) *Machine {
	base := img.Bytes()
	mem := make([]byte, len(base)+stackBytes)
	copy(mem, base)

	top := uint64(len(mem))
	m := &Machine{
		Mem:       mem,
		IO:        io,
		PC:        img.CodeStart(),
		initialSP: top,
		codeStart: img.CodeStart(),
		codeEnd:   img.CodeStart() + uint64(len(img.Code)),
	}
	m.Regs[RegSP] = top
	m.Regs[RegFP] = top
	return m
}

// Run executes instructions until the program exits normally (a ret
// executed while $sp is still at its initial value) or a Fault occurs.
func (m *Machine) Run() error {
	for {
		halted, err := m.Step()
		if err != nil {
			return err
		}
		if halted {
			return nil
		}
	}
}

// Step fetches, decodes and executes exactly one instruction.
func (m *Machine) Step() (halted bool, err error) {
	if m.PC < m.codeStart || m.PC+8 > m.codeEnd {
		return false, m.fault(diag.RuntimeBadAddress, "program counter outside code segment")
	}

	word := fromLE(m.Mem[m.PC : m.PC+8])
	instr, derr := decoder.Decode(word)
	if derr != nil {
		return false, m.fault(diag.RuntimeUnknownOpcode, "%s", derr)
	}

	if m.Disassemble != nil {
		m.Disassemble(m.PC, formatInstruction(instr))
	}

	m.PC += 8
	return m.execute(instr)
}

func formatInstruction(instr decoder.Instruction) string {
	s := instr.Mnemonic
	for i, o := range instr.Operands {
		if i == 0 {
			s += " "
		} else {
			s += ", "
		}
		s += formatOperand(o)
	}
	return s
}

func formatOperand(o ast.Operand) string {
	switch o.Kind {
	case ast.OperandRegister:
		return fmt.Sprintf("$%d", o.Reg)
	case ast.OperandRegOffset:
		return fmt.Sprintf("%d($%d)", o.Imm, o.Reg)
	default:
		return fmt.Sprintf("%d", o.Imm)
	}
}

// resolveSource reads a Source operand's runtime value: a register's
// content, or an immediate value as-is.
func (m *Machine) resolveSource(o ast.Operand) uint64 {
	if o.Kind == ast.OperandRegister {
		return m.Regs[o.Reg]
	}
	return uint64(o.Imm)
}

// resolveAddress computes the effective address for a Location operand:
// a register's content, a register's content plus a signed offset, or a
// literal address.
func (m *Machine) resolveAddress(o ast.Operand) uint64 {
	switch o.Kind {
	case ast.OperandRegister:
		return m.Regs[o.Reg]
	case ast.OperandRegOffset:
		return uint64(int64(m.Regs[o.Reg]) + o.Imm)
	default:
		return uint64(o.Imm)
	}
}
