// Package isa is the single source of truth for the Wolf instruction
// encoding: the opcode table, the twelve operand layouts (eleven documented
// plus the zero-operand layout needed for nop/ret/syscall), and the bit
// packing/unpacking shared by the encoder and the decoder. Keeping this in
// one package is how the two passes stay bit-for-bit consistent with each
// other without duplicating the table.
package isa

import "fmt"

// Layout is one of the documented operand-area encodings. The word's upper
// 12 bits are always the opcode; a Layout describes how the low 52 bits are
// divided into register, offset and immediate fields.
type Layout int

const (
	// LayoutNone is a Wolf addition for opcodes with no operands at all
	// (nop, ret, syscall). All 52 operand bits are reserved and ignored on
	// read, same as any other reserved bit pattern.
	LayoutNone Layout = iota
	Layout1           // reg,reg
	Layout2           // reg,imm46
	Layout3           // imm46,reg
	Layout4           // reg,reg,off16  ([reg+off],reg)
	Layout5           // reg,off16,imm30  ([reg+off],imm)
	Layout6           // imm26,imm26
	Layout7           // reg,reg,reg
	Layout8           // reg,reg,imm40
	Layout9           // reg
	Layout10          // imm52
	Layout11          // reg,off16  ([reg+off])
)

func (l Layout) String() string {
	names := [...]string{
		"L0", "L1", "L2", "L3", "L4", "L5", "L6", "L7", "L8", "L9", "L10", "L11",
	}
	if int(l) < len(names) {
		return names[l]
	}
	return fmt.Sprintf("Layout(%d)", int(l))
}

// FieldKind tags one slot within a Layout.
type FieldKind int

const (
	FReg FieldKind = iota // unsigned 6-bit register index
	FOff                  // signed offset, width varies by slot
	FImm                  // signed immediate, width varies by slot
)

// Field describes one bit-packed slot: its kind and width in bits.
type Field struct {
	Kind FieldKind
	Bits int
}

// OpWidth is the full instruction word width; OpcodeBits is how much of it
// the opcode consumes. The remaining OperandBits (52) hold a Layout's fields.
const (
	OpWidth     = 64
	OpcodeBits  = 12
	OperandBits = OpWidth - OpcodeBits
)

// layoutFields gives the ordered field list for each Layout. Fields are
// packed MSB-first starting at bit 51 of the word; any bits left over
// after the last field are reserved and always zero on encode.
var layoutFields = map[Layout][]Field{
	LayoutNone: {},
	Layout1:    {{FReg, 6}, {FReg, 6}},
	Layout2:    {{FReg, 6}, {FImm, 46}},
	Layout3:    {{FImm, 46}, {FReg, 6}},
	Layout4:    {{FReg, 6}, {FReg, 6}, {FOff, 16}},
	Layout5:    {{FReg, 6}, {FOff, 16}, {FImm, 30}},
	Layout6:    {{FImm, 26}, {FImm, 26}},
	Layout7:    {{FReg, 6}, {FReg, 6}, {FReg, 6}},
	Layout8:    {{FReg, 6}, {FReg, 6}, {FImm, 40}},
	Layout9:    {{FReg, 6}},
	Layout10:   {{FImm, 52}},
	Layout11:   {{FReg, 6}, {FOff, 16}},
}

// Fields returns the ordered field list for a layout.
func Fields(l Layout) []Field { return layoutFields[l] }

// FitsSigned reports whether v fits in a two's-complement field of the
// given width.
func FitsSigned(v int64, bits int) bool {
	if bits >= 64 {
		return true
	}
	lo := int64(-1) << (bits - 1)
	hi := -lo - 1
	return v >= lo && v <= hi
}

// FitsUnsigned reports whether v fits in an unsigned field of the given
// width (used for register indices, always 6 bits / 0-63).
func FitsUnsigned(v int64, bits int) bool {
	if v < 0 {
		return false
	}
	return uint64(v) < uint64(1)<<uint(bits)
}

func mask(bits int) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(bits)) - 1
}

// PackFields packs values into a layout's operand area (the low 52 bits of
// the returned word; the opcode is OR'd in by the caller). Each value must
// already have been range-checked by the caller with FitsSigned/FitsUnsigned
// against the corresponding field's width.
func PackFields(l Layout, values []int64) (uint64, error) {
	fields := layoutFields[l]
	if len(values) != len(fields) {
		return 0, fmt.Errorf("isa: %s wants %d fields, got %d", l, len(fields), len(values))
	}
	var word uint64
	pos := OperandBits
	for i, f := range fields {
		pos -= f.Bits
		word |= (uint64(values[i]) & mask(f.Bits)) << uint(pos)
	}
	return word, nil
}

// UnpackFields extracts a layout's field values out of a word's low 52
// bits. FReg/FOff/FImm fields all come back as int64; FReg values are
// always non-negative, FOff/FImm are sign-extended from their field width.
func UnpackFields(l Layout, word uint64) []int64 {
	fields := layoutFields[l]
	out := make([]int64, len(fields))
	pos := OperandBits
	for i, f := range fields {
		pos -= f.Bits
		raw := (word >> uint(pos)) & mask(f.Bits)
		if f.Kind == FReg {
			out[i] = int64(raw)
			continue
		}
		out[i] = signExtend(raw, f.Bits)
	}
	return out
}

func signExtend(raw uint64, bits int) int64 {
	if bits >= 64 {
		return int64(raw)
	}
	signBit := uint64(1) << uint(bits-1)
	if raw&signBit != 0 {
		raw |= ^mask(bits)
	}
	return int64(raw)
}

// Family groups mnemonics that share an operand shape and therefore a
// layout-selection rule. The encoder and decoder both switch on Family
// exactly once; every mnemonic in a Family is handled identically.
type Family int

const (
	FamNone         Family = iota // nop, ret, syscall: no operands
	FamDestSource                 // add, sub, mul, mulu, div, divu, rem, remu, mov: dest(reg), source(reg|imm)
	FamDestHiDestSrc              // mull, mullu, divr, divru: dest_hi(reg), dest(reg), source(reg|imm)
	FamSourceSource               // cmp, test: a(reg|imm), b(reg|imm)
	FamDestLoc                    // load*, loadu*: dest(reg), loc(reg|imm|reg+off)
	FamLocSource                  // store*: loc(reg|imm|reg+off), source(reg|imm)
	FamLoc                        // jmp/j**/call: loc(reg|imm|reg+off)
	FamSource                     // push: source(reg|imm)
	FamDestOnly                   // pop: dest(reg)
)

// OpDef is one (mnemonic, operand-shape) opcode assignment.
type OpDef struct {
	Mnemonic string
	Family   Family
	Layout   Layout
	Opcode   uint16
}

// byMnemonic groups every OpDef variant sharing a mnemonic (a mnemonic may
// admit more than one Layout depending on which operand kinds are used,
// e.g. add $1, 5 picks Layout2 while add $1, $2 picks Layout1).
var (
	ops        []OpDef
	byMnemonic = map[string][]OpDef{}
	byOpcode   = map[uint16]OpDef{}
)

func define(mnemonic string, fam Family, layouts ...Layout) {
	for _, l := range layouts {
		op := OpDef{Mnemonic: mnemonic, Family: fam, Layout: l, Opcode: uint16(len(ops))}
		ops = append(ops, op)
		byMnemonic[mnemonic] = append(byMnemonic[mnemonic], op)
		byOpcode[op.Opcode] = op
	}
}

func init() {
	define("nop", FamNone, LayoutNone)
	define("ret", FamNone, LayoutNone)
	define("syscall", FamNone, LayoutNone)

	for _, m := range []string{"add", "sub", "mul", "mulu", "div", "divu", "rem", "remu", "mov"} {
		define(m, FamDestSource, Layout1, Layout2)
	}

	for _, m := range []string{"mull", "mullu", "divr", "divru"} {
		define(m, FamDestHiDestSrc, Layout7, Layout8)
	}

	for _, m := range []string{"cmp", "test"} {
		define(m, FamSourceSource, Layout1, Layout2, Layout3, Layout6)
	}

	for _, m := range []string{"load1", "load2", "load4", "load8", "loadu1", "loadu2", "loadu4", "loadu8"} {
		define(m, FamDestLoc, Layout1, Layout2, Layout4)
	}

	for _, m := range []string{"store1", "store2", "store4", "store8"} {
		define(m, FamLocSource, Layout1, Layout2, Layout3, Layout4, Layout5, Layout6)
	}

	// je/jz and jne/jnz are mnemonic aliases sharing one opcode each, the
	// same way $sp/$fp are lexical aliases for one register rather than two.
	for _, m := range []string{
		"jmp", "je", "jne", "jg", "jge", "jl", "jle",
		"ja", "jae", "jb", "jbe", "jo", "jno", "js", "jns", "call",
	} {
		define(m, FamLoc, Layout9, Layout10, Layout11)
	}
	aliasOpcode("jz", "je")
	aliasOpcode("jnz", "jne")

	define("push", FamSource, Layout9, Layout10)
	define("pop", FamDestOnly, Layout9)
}

// aliasOpcode makes every variant of mnemonic "to" additionally answer to
// "from", reusing the same opcodes rather than minting new ones.
func aliasOpcode(from, to string) {
	toDefs := byMnemonic[to]
	merged := make([]OpDef, len(toDefs))
	for i, d := range toDefs {
		d.Mnemonic = from
		merged[i] = d
	}
	byMnemonic[from] = merged
}

// Variants returns every (layout, opcode) a mnemonic admits, or nil if the
// mnemonic is unknown. Mnemonic lookup is case-insensitive at the call site
// (the parser already lowercases opcode names).
func Variants(mnemonic string) []OpDef {
	return byMnemonic[mnemonic]
}

// Lookup returns the OpDef for an opcode number, as extracted from a
// decoded word's upper 12 bits.
func Lookup(opcode uint16) (OpDef, bool) {
	op, ok := byOpcode[opcode]
	return op, ok
}

// Mnemonics returns every known mnemonic, for diagnostics like "did you
// mean" or for generating an opcode listing.
func Mnemonics() []string {
	names := make([]string, 0, len(byMnemonic))
	for name := range byMnemonic {
		names = append(names, name)
	}
	return names
}

// Condition is a jump/branch predicate evaluated against the flags
// register.
type Condition int

const (
	CondAlways Condition = iota
	CondEQ               // ZF=1 (je/jz)
	CondNE               // ZF=0 (jne/jnz)
	CondG                // ZF=0 && SF=OF
	CondGE               // SF=OF
	CondL                // SF!=OF
	CondLE               // ZF=1 || SF!=OF
	CondA                // CF=0 && ZF=0
	CondAE               // CF=0
	CondB                // CF=1
	CondBE               // CF=1 || ZF=1
	CondO                // OF=1
	CondNO               // OF=0
	CondS                // SF=1
	CondNS               // SF=0
)

var conditions = map[string]Condition{
	"jmp":  CondAlways,
	"call": CondAlways,
	"je":   CondEQ,
	"jz":   CondEQ,
	"jne":  CondNE,
	"jnz":  CondNE,
	"jg":   CondG,
	"jge":  CondGE,
	"jl":   CondL,
	"jle":  CondLE,
	"ja":   CondA,
	"jae":  CondAE,
	"jb":   CondB,
	"jbe":  CondBE,
	"jo":   CondO,
	"jno":  CondNO,
	"js":   CondS,
	"jns":  CondNS,
}

// ConditionFor returns the branch predicate for a control-flow mnemonic.
func ConditionFor(mnemonic string) (Condition, bool) {
	c, ok := conditions[mnemonic]
	return c, ok
}

// Width-tagged memory ops: load/store mnemonics encode both an access
// width in bytes and, for load, whether the result sign- or zero-extends.
type MemOp struct {
	Width     int
	SignExtend bool
}

var loadWidths = map[string]MemOp{
	"load1": {1, true}, "load2": {2, true}, "load4": {4, true}, "load8": {8, true},
	"loadu1": {1, false}, "loadu2": {2, false}, "loadu4": {4, false}, "loadu8": {8, false},
}

var storeWidths = map[string]int{
	"store1": 1, "store2": 2, "store4": 4, "store8": 8,
}

// LoadOp returns the width/sign-extension info for a load*/loadu* mnemonic.
func LoadOp(mnemonic string) (MemOp, bool) {
	m, ok := loadWidths[mnemonic]
	return m, ok
}

// StoreWidth returns the byte width for a store* mnemonic.
func StoreWidth(mnemonic string) (int, bool) {
	w, ok := storeWidths[mnemonic]
	return w, ok
}
