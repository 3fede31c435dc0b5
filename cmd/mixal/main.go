// Command mixal assembles a MIXAL source file into a textual listing
// consumable by the machine's load command.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mixvm/mix/internal/asm"
)

const usage = "mixal <input.mixal> [output.mix]"

func init() {
	log.SetFlags(0)
	log.SetPrefix("mixal: ")
	log.SetOutput(os.Stderr)
}

func run() int {
	flag.Parse()
	args := flag.Args()
	if len(args) < 1 || len(args) > 2 {
		log.Println(usage)
		return 2
	}

	in, err := os.Open(args[0])
	if err != nil {
		log.Println(err)
		return 2
	}
	defer in.Close()

	a := asm.New()
	if err := a.AssembleAll(in); err != nil {
		log.Println(err)
		return 1
	}

	out := os.Stdout
	if len(args) == 2 {
		f, err := os.Create(args[1])
		if err != nil {
			log.Println(err)
			return 1
		}
		defer f.Close()
		out = f
	}

	if err := a.Emit(out); err != nil {
		log.Println(err)
		return 1
	}
	fmt.Fprintf(os.Stderr, "mixal: entry point %04d\n", a.Entry())
	return 0
}

func main() {
	os.Exit(run())
}
