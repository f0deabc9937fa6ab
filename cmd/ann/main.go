// Package main provides the ann CLI.
package main

import (
	"fmt"
	"os"

	"github.com/born-ml/ann/nn"
)

const version = "v0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("ann %s\n", version)
	case "check":
		if len(os.Args) != 3 {
			fmt.Fprintln(os.Stderr, "usage: ann check <file.yaml>")
			os.Exit(2)
		}
		if err := check(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "ann: %v\n", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Printf("ann %s - dense neural network layers\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version            Show version")
	fmt.Println("  check <file.yaml>  Validate a network description and print a summary")
}

// check builds the loss and every layer described by the file, so unknown
// types and invalid hyperparameters are reported the same way training
// would report them.
func check(path string) error {
	cfg, err := nn.LoadConfig(path)
	if err != nil {
		return err
	}
	model, loss, err := nn.FromFile(cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	fmt.Printf("%s: ok\n", path)
	fmt.Printf("  loss    %T\n", loss)
	for i := range model.Len() {
		fmt.Printf("  layer %d %v\n", i, model.Layer(i))
	}
	return nil
}
