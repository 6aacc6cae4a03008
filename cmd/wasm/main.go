/*
wasm assembles a .wa source file into a Wolf executable image.
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sunjay/wolf-asm/internal/asmpipeline"
	"github.com/sunjay/wolf-asm/internal/image"
	"github.com/sunjay/wolf-asm/internal/logx"
)

var (
	debugFlag  bool
	outputFlag string
)

func main() {
	root := &cobra.Command{
		Use:   "wasm FILE.wa",
		Short: "Assemble a Wolf Assembly Language source file into an executable image",
		Args:  cobra.ExactArgs(1),
		RunE:  runAssemble,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&debugFlag, "debug", "d", false, "print debug tracing to stderr")
	root.Flags().StringVarP(&outputFlag, "output", "o", "", "output image path (default: input with .wa replaced by .img)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAssemble(cmd *cobra.Command, args []string) error {
	log := logx.New("wasm", os.Stderr)
	log.SetDebug(debugFlag)

	srcPath := args[0]
	out := outputFlag
	if out == "" {
		out = defaultOutputPath(srcPath)
	}
	log.Debug("assembling %s -> %s", srcPath, out)

	res := asmpipeline.AssembleFile(srcPath)
	for _, d := range res.Sink.Diagnostics() {
		fmt.Fprintln(os.Stderr, d.Error())
	}
	if res.Sink.Failed() {
		return res.Sink.Err()
	}

	if err := image.WriteFile(out, res.Image); err != nil {
		return err
	}
	log.Debug("wrote %d bytes (%d static, %d code)", len(res.Image.Bytes()), len(res.Image.Static), len(res.Image.Code))
	return nil
}

func defaultOutputPath(srcPath string) string {
	if len(srcPath) > 3 && srcPath[len(srcPath)-3:] == ".wa" {
		return srcPath[:len(srcPath)-3] + ".img"
	}
	return srcPath + ".img"
}
