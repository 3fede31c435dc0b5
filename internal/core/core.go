// Package core implements the MIX core image: the register file, flags,
// and 4000-word memory, laid out as a single file that can be mapped
// directly into the process's address space.
package core

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/mixvm/mix/internal/word"
)

// MemSize is the number of addressable memory words.
const MemSize = 4000

// HeaderWords is the number of words preceding memory in the image: A, X,
// I1..I6, J (9 registers), overflow and comparison flags (2 words), and 5
// padding words for alignment, matching the 16-word header the original
// core dump format uses.
const HeaderWords = 16

// ImageWords is the total word count of a core image file.
const ImageWords = HeaderWords + MemSize

// BytesPerWord is the on-disk encoding size of one Word: a sign byte
// followed by five magnitude bytes.
const BytesPerWord = 6

// ImageBytes is the total byte size of a core image file.
const ImageBytes = ImageWords * BytesPerWord

// Register index offsets within the header.
const (
	RegA = iota
	RegX
	RegI1
	RegI2
	RegI3
	RegI4
	RegI5
	RegI6
	RegJ
	regOverflow
	regComparison
)

// Comparison mirrors word.Comparison but is stored as the machine's
// "comp indicator" flag. Its zero value is word.Less, so a new Core (or a
// freshly created image file) starts with the indicator at Less until a
// compare instruction runs.
type Comparison = word.Comparison

// Core is the live, in-memory form of a MIX machine's register file,
// flags, and memory, optionally backed by a memory-mapped file.
type Core struct {
	A, X                 word.Word
	I                    [6]word.Word
	J                    word.Word
	Overflow             bool
	Comparison           Comparison
	Memory               [MemSize]word.Word
	mapped               []byte
	file                 *os.File
	log                  *logrus.Entry
}

// New returns a zeroed Core not backed by any file (Overflow off,
// Comparison Less, J = +0, all registers and memory +0).
func New() *Core {
	return &Core{log: logrus.WithField("component", "core")}
}

// Open memory-maps filename as this Core's backing store, creating and
// zero-filling it if it does not already exist. The returned Core must be
// closed with Close to flush it back to disk.
func Open(filename string) (*Core, error) {
	log := logrus.WithFields(logrus.Fields{"component": "core"})
	f, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("core: open %s: %w", filename, err)
	}
	if err := f.Truncate(ImageBytes); err != nil {
		f.Close()
		return nil, fmt.Errorf("core: resize %s: %w", filename, err)
	}
	m, err := unix.Mmap(int(f.Fd()), 0, ImageBytes, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("core: mmap %s: %w", filename, err)
	}
	c := &Core{mapped: m, file: f, log: log.WithField("file", filename)}
	c.load()
	c.log.Debug("core image mapped")
	return c, nil
}

// Close flushes the Core back to its mapped file (if any) and releases the
// mapping, matching unmap_and_close's msync-then-munmap ordering.
func (c *Core) Close() error {
	if c.mapped == nil {
		return nil
	}
	c.store()
	if err := unix.Msync(c.mapped, unix.MS_SYNC); err != nil {
		return fmt.Errorf("core: msync: %w", err)
	}
	if err := unix.Munmap(c.mapped); err != nil {
		return fmt.Errorf("core: munmap: %w", err)
	}
	c.mapped = nil
	return c.file.Close()
}

// Sync flushes in-memory register/memory state out to the mapped file
// without unmapping, for callers that want a durable snapshot mid-run.
func (c *Core) Sync() error {
	if c.mapped == nil {
		return nil
	}
	c.store()
	return unix.Msync(c.mapped, unix.MS_SYNC)
}

func (c *Core) reg(i int) *word.Word {
	switch i {
	case RegA:
		return &c.A
	case RegX:
		return &c.X
	case RegI1, RegI2, RegI3, RegI4, RegI5, RegI6:
		return &c.I[i-RegI1]
	case RegJ:
		return &c.J
	default:
		panic(fmt.Sprintf("core: bad register index %d", i))
	}
}

// Index returns a pointer to index register n (1..6).
func (c *Core) Index(n int) *word.Word {
	if n < 1 || n > 6 {
		panic(fmt.Sprintf("core: bad index register I%d", n))
	}
	return &c.I[n-1]
}

func (c *Core) load() {
	for i := 0; i < HeaderWords; i++ {
		w := decodeWord(c.mapped[i*BytesPerWord : (i+1)*BytesPerWord])
		switch i {
		case regOverflow:
			c.Overflow = !w.IsZero()
		case regComparison:
			c.Comparison = Comparison(w.Int())
		case regComparison + 1, regComparison + 2, regComparison + 3, regComparison + 4, regComparison + 5:
			// padding, discarded
		default:
			*c.reg(i) = w
		}
	}
	base := HeaderWords * BytesPerWord
	for i := 0; i < MemSize; i++ {
		off := base + i*BytesPerWord
		c.Memory[i] = decodeWord(c.mapped[off : off+BytesPerWord])
	}
}

func (c *Core) store() {
	for i := 0; i < HeaderWords; i++ {
		var w word.Word
		switch i {
		case regOverflow:
			w = boolWord(c.Overflow)
		case regComparison:
			w = word.New(int(c.Comparison))
		case regComparison + 1, regComparison + 2, regComparison + 3, regComparison + 4, regComparison + 5:
			w = word.New(0)
		default:
			w = *c.reg(i)
		}
		encodeWord(c.mapped[i*BytesPerWord:(i+1)*BytesPerWord], w)
	}
	base := HeaderWords * BytesPerWord
	for i := 0; i < MemSize; i++ {
		off := base + i*BytesPerWord
		encodeWord(c.mapped[off:off+BytesPerWord], c.Memory[i])
	}
}

func boolWord(b bool) word.Word {
	if b {
		return word.New(1)
	}
	return word.New(0)
}

func decodeWord(b []byte) word.Word {
	sign := word.Pos
	if b[0] != 0 {
		sign = word.Neg
	}
	return word.NewFromBytes(sign, [5]byte{b[1], b[2], b[3], b[4], b[5]})
}

func encodeWord(dst []byte, w word.Word) {
	if w.Sign() == word.Neg {
		dst[0] = 1
	} else {
		dst[0] = 0
	}
	bs := w.Bytes()
	copy(dst[1:], bs[:])
}

// CheckAddress validates a memory address against MemSize, returning an
// error a caller can surface as a fatal "memory address out of range"
// condition.
func CheckAddress(addr int) error {
	if addr < 0 || addr >= MemSize {
		return fmt.Errorf("core: address %d out of range [0,%d)", addr, MemSize)
	}
	return nil
}
