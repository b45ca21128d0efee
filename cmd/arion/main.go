// Command arion is the batch image-processing CLI of spec.md §1: a
// single invocation accepts one input image and an ordered sequence of
// operations expressed as a JSON request, executes them, and emits a
// structured result document on standard output.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/snapwire-media/arion-go/internal/arionlog"
	"github.com/snapwire-media/arion-go/internal/imagesource"
	"github.com/snapwire-media/arion-go/internal/pipeline"
	"github.com/snapwire-media/arion-go/internal/request"
	"github.com/snapwire-media/arion-go/internal/resultdoc"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run is the testable entry point: it never calls os.Exit itself and
// returns the process exit code, per spec.md §6 ("exit code 0 when the
// top-level result is true ... nonzero otherwise").
func run(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("arion", flag.ContinueOnError)
	input := fs.String("input", "", "JSON request document")
	if err := fs.Parse(args); err != nil {
		arionlog.Log.Printf("argument parsing failed: %s\n", err.Error())
		return 2
	}
	if *input == "" {
		arionlog.Log.Printf("missing required --input flag\n")
		return 2
	}

	doc := process(*input)

	out, err := resultdoc.Encode(doc)
	if err != nil {
		// Encoding the result document itself should never fail for a
		// well-formed TopResult; this is the one failure mode with no
		// structured representation left to carry it.
		arionlog.Log.Printf("encoding result document failed: %s\n", err.Error())
		return 1
	}
	fmt.Fprintln(stdout, string(out))

	if doc.Result {
		return 0
	}
	return 1
}

// process runs the full pipeline for one --input document, spec.md §2:
// parse, load, dispatch, aggregate. Request and source-load failures are
// terminal (spec.md §7) and surfaced as a TopResult failure with no
// operations executed.
func process(raw string) resultdoc.TopResult {
	req, err := request.Parse(raw)
	if err != nil {
		arionlog.Log.Printf("request parse failed: %s\n", err.Error())
		return resultdoc.NewFailure()
	}

	src, err := imagesource.Load(req.InputURL, req.CorrectRotation)
	if err != nil {
		arionlog.Log.Printf("source load failed: %s\n", err.Error())
		return resultdoc.NewFailure()
	}

	return pipeline.Run(src, req)
}
