// Command mix runs a MIX core image under an interactive REPL, or headless
// to completion, following a loaded program until it halts or faults.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/mixvm/mix/internal/clock"
	"github.com/mixvm/mix/internal/core"
	"github.com/mixvm/mix/internal/cpu"
	"github.com/mixvm/mix/internal/device"
	"github.com/mixvm/mix/internal/ioc"
	"github.com/mixvm/mix/internal/listing"
	"github.com/mixvm/mix/internal/word"
)

var (
	imagevar  string
	prefixvar string
	batchvar  bool
)

const usage = "mix [-image core.img] [-prefix devdir] [-run] [program.mix]"

func init() {
	log.SetFlags(0)
	log.SetPrefix("mix: ")
	log.SetOutput(os.Stderr)
}

func init() {
	flag.StringVar(&imagevar, "image", "", "core image file to map (created if absent); in-memory only if omitted")
	flag.StringVar(&prefixvar, "prefix", ".", "directory holding device files (t0..t7, d0..d7, cr0, cp0, lp0, term0, pt0)")
	flag.BoolVar(&batchvar, "run", false, "run to completion instead of entering the REPL")
	flag.Parse()
}

type machine struct {
	mem     *core.Core
	devices [device.NumDevices]*device.Device
	io      *ioc.Coprocessor
	cpu     *cpu.CPU
	clock   *clock.Clock
}

func deviceFileName(k device.Kind, idx int) string {
	switch k {
	case device.KindTape:
		return fmt.Sprintf("t%d", idx-0)
	case device.KindDisk:
		return fmt.Sprintf("d%d", idx-8)
	case device.KindCardReader:
		return "cr0"
	case device.KindCardPunch:
		return "cp0"
	case device.KindLinePrinter:
		return "lp0"
	case device.KindTerminal:
		return "term0"
	case device.KindPaperTape:
		return "pt0"
	default:
		return fmt.Sprintf("dev%d", idx)
	}
}

func newMachine(prefix, imagePath string) (*machine, error) {
	var mem *core.Core
	var err error
	if imagePath == "" {
		mem = core.New()
	} else {
		mem, err = core.Open(imagePath)
		if err != nil {
			return nil, err
		}
	}

	specs := device.StandardSpecs()
	var devs [device.NumDevices]*device.Device
	for i, spec := range specs {
		path := filepath.Join(prefix, deviceFileName(spec.Kind, i))
		d, err := device.Open(spec, path)
		if err != nil {
			return nil, fmt.Errorf("opening device %d (%s): %w", i, path, err)
		}
		devs[i] = d
	}

	co := ioc.New(devs)
	p := cpu.New(mem, co)
	cl := clock.New(p, co, mem)
	return &machine{mem: mem, devices: devs, io: co, cpu: p, clock: cl}, nil
}

func (m *machine) close() {
	for _, d := range m.devices {
		if d != nil {
			d.Close()
		}
	}
	if m.mem != nil {
		m.mem.Close()
	}
}

func run() int {
	args := flag.Args()
	if len(args) > 1 {
		log.Println(usage)
		return 2
	}

	m, err := newMachine(prefixvar, imagevar)
	if err != nil {
		log.Println(err)
		return 1
	}
	defer m.close()

	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			log.Println(err)
			return 1
		}
		err = listing.LoadInto(f, m.mem)
		f.Close()
		if err != nil {
			log.Println(err)
			return 1
		}
	}

	if batchvar {
		code, err := m.clock.Run()
		if err != nil {
			log.Println(err)
			return 1
		}
		if code == cpu.TickErr {
			return 1
		}
		return 0
	}

	repl(m)
	return 0
}

func main() {
	os.Exit(run())
}

var stdout = colorable.NewColorableStdout()
var colorize = isatty.IsTerminal(os.Stdout.Fd())

func bold(s string) string {
	if !colorize {
		return s
	}
	return "\033[1m" + s + "\033[0m"
}

func repl(m *machine) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(stdout, bold("mix> "))
		if !scanner.Scan() {
			fmt.Fprintln(stdout)
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]
		switch cmd {
		case "run":
			cmdRun(m)
		case "step":
			cmdStep(m, args)
		case "timestep":
			cmdTimestep(m, args)
		case "load":
			cmdLoad(m, args)
		case "dump":
			cmdDump(m, args)
		case "registers":
			cmdRegisters(m)
		case "memory":
			cmdMemory(m, args)
		case "memory_zero":
			cmdMemoryZero(m)
		case "ts":
			fmt.Fprintln(stdout, m.clock.TS())
		case "pc":
			fmt.Fprintln(stdout, m.cpu.PC)
		case "clean":
			fmt.Fprint(stdout, "\033[H\033[2J")
		case "help":
			cmdHelp()
		case "quit", "exit":
			return
		default:
			fmt.Fprintf(stdout, "unknown command %q, try 'help'\n", cmd)
		}
	}
}

func cmdRun(m *machine) {
	code, err := m.clock.Run()
	if err != nil {
		fmt.Fprintln(stdout, "error:", err)
		return
	}
	fmt.Fprintf(stdout, "halted: %v at ts=%d pc=%d\n", code, m.clock.TS(), m.cpu.PC)
}

func cmdStep(m *machine, args []string) {
	n := parseCount(args, 1)
	for i := 0; i < n; i++ {
		code, err := m.clock.Step()
		if err != nil {
			fmt.Fprintln(stdout, "error:", err)
			return
		}
		if code != cpu.TickContinue {
			fmt.Fprintf(stdout, "stopped: %v at ts=%d pc=%d\n", code, m.clock.TS(), m.cpu.PC)
			return
		}
	}
}

func cmdTimestep(m *machine, args []string) {
	n := parseCount(args, 1)
	for i := 0; i < n; i++ {
		code, err := m.clock.Tick()
		if err != nil {
			fmt.Fprintln(stdout, "error:", err)
			return
		}
		if code != cpu.TickContinue {
			fmt.Fprintf(stdout, "stopped: %v at ts=%d pc=%d\n", code, m.clock.TS(), m.cpu.PC)
			return
		}
	}
}

func parseCount(args []string, def int) int {
	if len(args) == 0 {
		return def
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return def
	}
	return n
}

func cmdLoad(m *machine, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(stdout, "usage: load <path>")
		return
	}
	f, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintln(stdout, err)
		return
	}
	defer f.Close()
	if err := listing.LoadInto(f, m.mem); err != nil {
		fmt.Fprintln(stdout, err)
	}
}

func cmdDump(m *machine, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(stdout, "usage: dump <path>")
		return
	}
	f, err := os.Create(args[0])
	if err != nil {
		fmt.Fprintln(stdout, err)
		return
	}
	defer f.Close()
	if err := listing.DumpCore(f, m.mem); err != nil {
		fmt.Fprintln(stdout, err)
	}
}

func cmdRegisters(m *machine) {
	fmt.Fprintln(stdout, listing.Format(listing.Line{Label: "A", Word: m.mem.A}))
	fmt.Fprintln(stdout, listing.Format(listing.Line{Label: "X", Word: m.mem.X}))
	for n := 1; n <= 6; n++ {
		fmt.Fprintln(stdout, listing.Format(listing.Line{Label: fmt.Sprintf("I%d", n), Word: *m.mem.Index(n)}))
	}
	fmt.Fprintln(stdout, listing.Format(listing.Line{Label: "J", Word: m.mem.J}))
	fmt.Fprintf(stdout, "overflow: %v  comparison: %v\n", m.mem.Overflow, m.mem.Comparison)
}

func cmdMemory(m *machine, args []string) {
	start, count := m.cpu.PC, 1
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			start = n
		}
	}
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[1]); err == nil {
			count = n
		}
	}
	if err := core.CheckAddress(start); err != nil {
		fmt.Fprintln(stdout, err)
		return
	}
	for addr := start; addr < start+count && addr < core.MemSize; addr++ {
		fmt.Fprintln(stdout, listing.Format(listing.Line{Addr: addr, Word: m.mem.Memory[addr]}))
	}
}

func cmdMemoryZero(m *machine) {
	zero := word.New(0)
	for i := range m.mem.Memory {
		m.mem.Memory[i] = zero
	}
	m.mem.A = zero
	m.mem.X = zero
	m.mem.J = zero
	for n := 1; n <= 6; n++ {
		*m.mem.Index(n) = zero
	}
	m.mem.Overflow = false
	fmt.Fprintln(stdout, "memory zeroed")
}

func cmdHelp() {
	fmt.Fprintln(stdout, `commands:
  run              run to halt or fault
  step [n]         advance to the next n scheduled CPU or device events (default 1)
  timestep [n]     advance the logical clock by n raw ticks (default 1)
  load <path>      load a textual listing into memory
  dump <path>      dump registers and memory as a textual listing
  registers        print A, X, I1..I6, J, overflow, comparison
  memory [a] [n]   print n words starting at address a (default: PC, 1)
  memory_zero      zero all memory and registers
  ts               print the current logical timestamp
  pc               print the program counter
  clean            clear the screen
  help             print this message
  quit             exit`)
}
