// Package device implements the MIX peripheral device layer: each device
// opens its own backing file on construction and exposes block-oriented
// read/write primitives the I/O coprocessor drives.
package device

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/mixvm/mix/internal/charset"
	"github.com/mixvm/mix/internal/word"
)

// Kind identifies the physical category of a device.
type Kind int

const (
	KindTape Kind = iota
	KindDisk
	KindCardReader
	KindCardPunch
	KindLinePrinter
	KindTerminal
	KindPaperTape
)

func (k Kind) String() string {
	switch k {
	case KindTape:
		return "tape"
	case KindDisk:
		return "disk"
	case KindCardReader:
		return "card reader"
	case KindCardPunch:
		return "card punch"
	case KindLinePrinter:
		return "line printer"
	case KindTerminal:
		return "terminal"
	case KindPaperTape:
		return "paper tape"
	default:
		return "unknown"
	}
}

// Format describes how a device's bytes are represented in memory.
type Format int

const (
	FormatBinary Format = iota
	FormatChar
	FormatCard
)

// Mode describes the device's positioning discipline.
type Mode int

const (
	// ModeFixed devices are random-access, truncated up front to their
	// full capacity (block_size * num_blocks * sizeof(Word)).
	ModeFixed Mode = iota
	// ModeStream devices are append-only; writes always go to the
	// current end of file and reads advance sequentially.
	ModeStream
)

// NumDevices is the size of the standard MIX device table (tape 0-7,
// disk 8-15, card reader 16, card punch 17, line printer 18, terminal 19,
// paper tape 20).
const NumDevices = 21

// Spec describes one device's static configuration.
type Spec struct {
	Index        int
	Kind         Kind
	Format       Format
	Mode         Mode
	BlockWords   int
	NumBlocks    int // only meaningful for ModeFixed
	CanInput     bool
	CanOutput    bool
	TimeToDoIO   int
	TimeToFinish int
}

// Device is a live, file-backed peripheral.
type Device struct {
	Spec
	Pos  int // block position for tape/disk; unused by streams
	file *os.File
	log  *logrus.Entry
}

// Open opens filename as the backing store for spec, creating it if
// necessary. Fixed devices are truncated to their full capacity; stream
// devices are opened append-only. Any failure here is a fatal host I/O
// error, matching the original emulator's "errno-carrying diagnostic"
// contract.
func Open(spec Spec, filename string) (*Device, error) {
	log := logrus.WithFields(logrus.Fields{"component": "device", "index": spec.Index, "kind": spec.Kind.String()})
	var f *os.File
	var err error
	switch spec.Mode {
	case ModeFixed:
		f, err = os.OpenFile(filename, os.O_RDWR|os.O_CREATE, 0o644)
		if err == nil {
			size := int64(spec.BlockWords) * int64(spec.NumBlocks) * int64(wordBytes)
			err = f.Truncate(size)
		}
	case ModeStream:
		f, err = os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	default:
		return nil, fmt.Errorf("device: bad mode %v", spec.Mode)
	}
	if err != nil {
		log.WithError(err).Fatal("device: failed to open backing file")
		return nil, err
	}
	return &Device{Spec: spec, file: f, log: log}, nil
}

const wordBytes = 6

// ReadBlock reads size words from the device's backing file into dest,
// starting at word offset off. If off is -1 the seek is skipped and the
// read continues from the file's current position (used by streams).
func (d *Device) ReadBlock(dest []word.Word, off, size int) error {
	buf := make([]byte, size*wordBytes)
	if off >= 0 {
		if _, err := d.file.Seek(int64(off)*wordBytes, io.SeekStart); err != nil {
			return d.fatal("seek", err)
		}
	}
	n, err := io.ReadFull(d.file, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return d.fatal("read", err)
	}
	for i := 0; i < len(dest) && i < size; i++ {
		start := i * wordBytes
		if start+wordBytes > n {
			dest[i] = word.New(0)
			continue
		}
		dest[i] = decodeWord(buf[start : start+wordBytes])
	}
	return nil
}

// WriteBlock writes size words from src to the device's backing file,
// starting at word offset off (or the current position if off is -1).
func (d *Device) WriteBlock(src []word.Word, off, size int) error {
	buf := make([]byte, size*wordBytes)
	for i := 0; i < size; i++ {
		var w word.Word
		if i < len(src) {
			w = src[i]
		}
		encodeWord(buf[i*wordBytes:(i+1)*wordBytes], w)
	}
	if off >= 0 {
		if _, err := d.file.Seek(int64(off)*wordBytes, io.SeekStart); err != nil {
			return d.fatal("seek", err)
		}
	}
	if _, err := d.file.Write(buf); err != nil {
		return d.fatal("write", err)
	}
	return nil
}

// ReadText reads up to n raw bytes from the device's backing file into a
// string, seeking to byte offset off first unless off is -1. Used by
// character and card devices, whose files hold translated text rather
// than packed binary words. Short reads at EOF are padded with spaces by
// the caller via DecodeChars.
func (d *Device) ReadText(off, n int) (string, error) {
	if off >= 0 {
		if _, err := d.file.Seek(int64(off), io.SeekStart); err != nil {
			return "", d.fatal("seek", err)
		}
	}
	buf := make([]byte, n)
	r, err := io.ReadFull(d.file, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", d.fatal("read", err)
	}
	return string(buf[:r]), nil
}

// WriteText writes s to the device's backing file as raw bytes, seeking
// to byte offset off first unless off is -1 (the convention append-only
// stream devices use). Used by character and card devices in place of
// WriteBlock's packed binary encoding.
func (d *Device) WriteText(off int, s string) error {
	if off >= 0 {
		if _, err := d.file.Seek(int64(off), io.SeekStart); err != nil {
			return d.fatal("seek", err)
		}
	}
	if _, err := d.file.Write([]byte(s)); err != nil {
		return d.fatal("write", err)
	}
	return nil
}

// WriteFormFeed writes a page-eject to a line printer: a fixed run of
// blank lines, used by the IOC operation on device 18.
func (d *Device) WriteFormFeed() error {
	const pageEjectLines = 42
	_, err := d.file.Write([]byte{'\n'})
	if err != nil {
		return d.fatal("form feed", err)
	}
	for i := 1; i < pageEjectLines; i++ {
		if _, err := d.file.Write([]byte{'\n'}); err != nil {
			return d.fatal("form feed", err)
		}
	}
	return nil
}

func (d *Device) fatal(op string, err error) error {
	d.log.WithError(err).Errorf("device: %s failed", op)
	return fmt.Errorf("device %d (%s): %s: %w", d.Index, d.Kind, op, err)
}

// Close releases the device's backing file.
func (d *Device) Close() error {
	return d.file.Close()
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

// EncodeChars translates every byte of src's words, five per word, into
// printable characters, used when a character or card device transfers through the
// 56-entry table instead of raw binary.
func EncodeChars(src []word.Word) (string, error) {
	var out []rune
	for _, w := range src {
		b := w.Bytes()
		for _, bb := range b {
			r, err := charset.ToChar(bb)
			if err != nil {
				return "", err
			}
			out = append(out, r)
		}
	}
	return string(out), nil
}

// DecodeChars translates a string of printable characters back into MIX
// words, five bytes per word, padding the final word with spaces (code 0).
func DecodeChars(s string) []word.Word {
	runes := []rune(s)
	n := (len(runes) + 4) / 5
	out := make([]word.Word, n)
	for i := 0; i < n; i++ {
		var b [5]byte
		for j := 0; j < 5; j++ {
			idx := i*5 + j
			if idx < len(runes) {
				if code, ok := charset.ToByte(runes[idx]); ok {
					b[j] = code
				}
			}
		}
		out[i] = word.NewFromBytes(word.Pos, b)
	}
	return out
}

// StandardSpecs returns the 21-device configuration table matching the
// classic MIX device catalogue: 8 tapes, 8 disks, a card reader, a card
// punch, a line printer, a terminal, and a paper tape.
func StandardSpecs() [NumDevices]Spec {
	var specs [NumDevices]Spec
	for i := 0; i < 8; i++ {
		specs[i] = Spec{
			Index: i, Kind: KindTape, Format: FormatBinary, Mode: ModeFixed,
			BlockWords: 100, NumBlocks: 4096, CanInput: true, CanOutput: true,
			TimeToDoIO: 1, TimeToFinish: 100,
		}
	}
	for i := 0; i < 8; i++ {
		specs[8+i] = Spec{
			Index: 8 + i, Kind: KindDisk, Format: FormatBinary, Mode: ModeFixed,
			BlockWords: 100, NumBlocks: 4096, CanInput: true, CanOutput: true,
			TimeToDoIO: 1, TimeToFinish: 30,
		}
	}
	specs[16] = Spec{
		Index: 16, Kind: KindCardReader, Format: FormatCard, Mode: ModeStream,
		BlockWords: 16, CanInput: true, TimeToDoIO: 1, TimeToFinish: 160,
	}
	specs[17] = Spec{
		Index: 17, Kind: KindCardPunch, Format: FormatCard, Mode: ModeStream,
		BlockWords: 16, CanOutput: true, TimeToDoIO: 1, TimeToFinish: 200,
	}
	specs[18] = Spec{
		Index: 18, Kind: KindLinePrinter, Format: FormatChar, Mode: ModeStream,
		BlockWords: 24, CanOutput: true, TimeToDoIO: 1, TimeToFinish: 240,
	}
	specs[19] = Spec{
		Index: 19, Kind: KindTerminal, Format: FormatChar, Mode: ModeStream,
		BlockWords: 14, CanInput: true, CanOutput: true, TimeToDoIO: 1, TimeToFinish: 10,
	}
	specs[20] = Spec{
		Index: 20, Kind: KindPaperTape, Format: FormatChar, Mode: ModeStream,
		BlockWords: 14, CanInput: true, CanOutput: true, TimeToDoIO: 1, TimeToFinish: 10,
	}
	return specs
}
