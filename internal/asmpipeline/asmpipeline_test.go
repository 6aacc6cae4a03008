package asmpipeline_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunjay/wolf-asm/internal/asmpipeline"
	"github.com/sunjay/wolf-asm/internal/decoder"
	"github.com/sunjay/wolf-asm/internal/diag"
	"github.com/sunjay/wolf-asm/internal/include"
)

func memReader(files map[string]string) include.Reader {
	return func(path string) (string, error) {
		data, ok := files[path]
		if !ok {
			return "", fmt.Errorf("no such file: %s", path)
		}
		return data, nil
	}
}

func TestAssembleSimpleProgram(t *testing.T) {
	files := map[string]string{
		"main.wa": "section .code\nmov $1, 5\nadd $1, 2\nret\n",
	}
	res := asmpipeline.Assemble("main.wa", memReader(files))
	require.False(t, res.Sink.Failed())
	require.Len(t, res.Image.Code, 24)

	insn, err := decoder.DecodeBytes(res.Image.Code[8:16])
	require.NoError(t, err)
	assert.Equal(t, "add", insn.Mnemonic)
}

func TestAssembleWithStaticData(t *testing.T) {
	files := map[string]string{
		"main.wa": "section .code\nret\nsection .static\n.bytes \"hi\"\n",
	}
	res := asmpipeline.Assemble("main.wa", memReader(files))
	require.False(t, res.Sink.Failed())
	assert.Equal(t, []byte("hi"), res.Image.Static)
	assert.Equal(t, uint64(2), res.Image.CodeStart())
}

func TestAssembleWithConstAndLabel(t *testing.T) {
	files := map[string]string{
		"main.wa": "section .code\n.const STEP 3\nloop:\nadd $1, STEP\njmp loop\n",
	}
	res := asmpipeline.Assemble("main.wa", memReader(files))
	require.False(t, res.Sink.Failed())

	insn, err := decoder.DecodeBytes(res.Image.Code[:8])
	require.NoError(t, err)
	require.Len(t, insn.Operands, 2)
	assert.Equal(t, int64(3), insn.Operands[1].Imm)

	jmp, err := decoder.DecodeBytes(res.Image.Code[8:16])
	require.NoError(t, err)
	require.Len(t, jmp.Operands, 1)
	assert.Equal(t, int64(0), jmp.Operands[0].Imm)
}

func TestAssembleWithInclude(t *testing.T) {
	files := map[string]string{
		"main.wa":  "section .code\n.include \"helper.wa\"\nret\n",
		"helper.wa": "nop\n",
	}
	res := asmpipeline.Assemble("main.wa", memReader(files))
	require.False(t, res.Sink.Failed())
	require.Len(t, res.Image.Code, 16)

	insn, err := decoder.DecodeBytes(res.Image.Code[:8])
	require.NoError(t, err)
	assert.Equal(t, "nop", insn.Mnemonic)
}

func TestAssembleUnknownLabelFails(t *testing.T) {
	files := map[string]string{
		"main.wa": "section .code\njmp nowhere\n",
	}
	res := asmpipeline.Assemble("main.wa", memReader(files))
	require.True(t, res.Sink.Failed())

	var sawResolve bool
	for _, d := range res.Sink.Diagnostics() {
		if d.Kind == diag.ResolveUnknownLabel {
			sawResolve = true
		}
	}
	assert.True(t, sawResolve)
}

func TestAssembleParseErrorStopsBeforeEncoding(t *testing.T) {
	files := map[string]string{
		"main.wa": "section .code\nadd $1 $2\n",
	}
	res := asmpipeline.Assemble("main.wa", memReader(files))
	require.True(t, res.Sink.Failed())
	assert.Equal(t, diag.ParseBadRegOffset, res.Sink.Diagnostics()[0].Kind)
}
