package compiler

import (
	"bufio"
	"fmt"
	"io"
)

// WriteGoSource writes data as a Go byte slice named Data in package pkg,
// the Go counterpart of a model compiled into a C array.
func WriteGoSource(w io.Writer, pkg string, opts CompileOptions, data []byte) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "// Code generated by sinec -variant %s -hidden %d; DO NOT EDIT.\n\n", opts.Variant, opts.Hidden)
	fmt.Fprintf(bw, "package %s\n\n", pkg)
	fmt.Fprintf(bw, "// Data is the serialized %s sine model artifact, schema version %d.\n", opts.Variant, opts.Version)
	fmt.Fprintf(bw, "var Data = []byte{")
	for i, b := range data {
		if i%12 == 0 {
			fmt.Fprint(bw, "\n\t")
		} else {
			fmt.Fprint(bw, " ")
		}
		fmt.Fprintf(bw, "0x%02x,", b)
	}
	fmt.Fprint(bw, "\n}\n\n")
	fmt.Fprintf(bw, "// DataLen is len(Data).\nconst DataLen = %d\n", len(data))

	return bw.Flush()
}
