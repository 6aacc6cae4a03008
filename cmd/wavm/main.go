/*
wavm loads a Wolf executable image and runs it against the host's
standard input and output.
*/
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sunjay/wolf-asm/internal/hostio"
	"github.com/sunjay/wolf-asm/internal/image"
	"github.com/sunjay/wolf-asm/internal/logx"
	"github.com/sunjay/wolf-asm/internal/vm"
)

var (
	debugFlag    bool
	disasmFlag   bool
	stackKiBFlag int
)

func main() {
	root := &cobra.Command{
		Use:   "wavm IMAGE",
		Short: "Run a Wolf executable image",
		Args:  cobra.ExactArgs(1),
		RunE:  runVM,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&debugFlag, "debug", "d", false, "print debug tracing to stderr")
	root.Flags().BoolVar(&disasmFlag, "disassemble", false, "trace each executed instruction to stderr")
	root.Flags().IntVar(&stackKiBFlag, "stack-kib", vm.DefaultStackBytes/1024, "runtime stack size, in KiB")

	root.SilenceUsage = true
	root.SilenceErrors = true
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var fault *vm.Fault
		if errors.As(err, &fault) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func runVM(cmd *cobra.Command, args []string) error {
	log := logx.New("wavm", os.Stderr)
	log.SetDebug(debugFlag)

	img, err := image.LoadFile(args[0])
	if err != nil {
		return err
	}
	log.Debug("loaded image: %d static byte(s), %d code byte(s)", len(img.Static), len(img.Code))

	restore := enterRawMode()
	defer restore()

	io := hostio.New(os.Stdin, os.Stdout)
	m := vm.New(img, stackKiBFlag*1024, io)
	if disasmFlag {
		m.Disassemble = func(pc uint64, text string) {
			fmt.Fprintf(os.Stderr, "%08x: %s\n", pc, text)
		}
	}

	if err := m.Run(); err != nil {
		return err
	}
	log.Debug("halted normally")
	return nil
}

// enterRawMode puts a real terminal stdin into raw mode so the VM's MMIO
// reads see bytes as the guest program types them rather than buffered by
// the line discipline, and returns a func restoring the prior state. When
// stdin isn't a terminal (pipes, redirected files, tests) it's a no-op.
func enterRawMode() func() {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return func() {}
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return func() {}
	}
	return func() {
		_ = term.Restore(fd, old)
	}
}
