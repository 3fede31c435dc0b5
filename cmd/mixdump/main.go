// Command mixdump pretty-prints a textual listing file: the register and
// memory lines produced by mixal's Emit or mix's dump command.
package main

import (
	"bytes"
	"io"
	"log"
	"os"

	"github.com/k0kubun/pp/v3"

	"github.com/mixvm/mix/internal/listing"
)

func main() {
	var r io.Reader = os.Stdin

	if len(os.Args) == 2 {
		input, err := os.ReadFile(os.Args[1])
		if err != nil {
			log.Println(err)
			os.Exit(1)
		}
		r = bytes.NewReader(input)
	}

	lines, err := listing.ReadAll(r)
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
	pp.Println(lines)
}
