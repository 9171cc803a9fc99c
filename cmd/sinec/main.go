package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/sbl8/tinysine/compiler"
	"github.com/sbl8/tinysine/model"
)

func main() {
	var (
		variant = flag.String("variant", "int8", "Model variant: int8, hybrid, float32")
		hidden  = flag.Int("hidden", 16, "Hidden units (knots of the interpolant)")
		schema  = flag.Uint("schema", model.SchemaVersion, "Schema version written to the artifact header")
		out     = flag.String("o", "", "Output file; a .go suffix emits Go source")
		verbose = flag.Bool("v", false, "Verbose output")
		version = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *version {
		fmt.Printf("sinec - sine model compiler, schema %d\n", model.SchemaVersion)
		fmt.Println("Built with Go", runtime.Version())
		return
	}

	if *out == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] -o <model.subm|model_data.go>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	v, err := compiler.ParseVariant(*variant)
	if err != nil {
		log.Fatal(err)
	}
	opts := compiler.CompileOptions{
		Variant: v,
		Hidden:  *hidden,
		Version: uint32(*schema),
		Verbose: *verbose,
	}

	if err := compiler.Compile(*out, opts); err != nil {
		log.Fatalf("compilation failed: %v", err)
	}

	fmt.Printf("Successfully compiled %s sine model -> %s\n", v, *out)
}
