package device

import (
	"path/filepath"
	"testing"

	"github.com/mixvm/mix/internal/word"
)

func TestFixedDeviceRoundTrip(t *testing.T) {
	spec := Spec{Kind: KindDisk, Format: FormatBinary, Mode: ModeFixed, BlockWords: 4, NumBlocks: 10, CanInput: true, CanOutput: true}
	d, err := Open(spec, filepath.Join(t.TempDir(), "d0"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	block := []word.Word{word.New(1), word.New(-2), word.New(3), word.New(-4)}
	if err := d.WriteBlock(block, 2*4, 4); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}

	got := make([]word.Word, 4)
	if err := d.ReadBlock(got, 2*4, 4); err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	for i := range block {
		if !got[i].Equal(block[i]) {
			t.Errorf("word %d = %v, want %v", i, got[i], block[i])
		}
	}
}

func TestStreamDeviceAppends(t *testing.T) {
	spec := Spec{Kind: KindCardPunch, Format: FormatCard, Mode: ModeStream, BlockWords: 2, CanOutput: true}
	d, err := Open(spec, filepath.Join(t.TempDir(), "cp0"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	if err := d.WriteBlock([]word.Word{word.New(1), word.New(2)}, -1, 2); err != nil {
		t.Fatalf("WriteBlock 1: %v", err)
	}
	if err := d.WriteBlock([]word.Word{word.New(3), word.New(4)}, -1, 2); err != nil {
		t.Fatalf("WriteBlock 2: %v", err)
	}

	got := make([]word.Word, 4)
	if err := d.ReadBlock(got, 0, 4); err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	want := []int{1, 2, 3, 4}
	for i, w := range want {
		if got[i].Int() != w {
			t.Errorf("word %d = %d, want %d", i, got[i].Int(), w)
		}
	}
}

func TestReadWriteText(t *testing.T) {
	spec := Spec{Kind: KindTerminal, Format: FormatChar, Mode: ModeStream, BlockWords: 2, CanInput: true, CanOutput: true}
	d, err := Open(spec, filepath.Join(t.TempDir(), "term0"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	if err := d.WriteText(-1, "ABCDEFGHIJ"); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	got, err := d.ReadText(0, 10)
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if got != "ABCDEFGHIJ" {
		t.Errorf("ReadText = %q, want %q", got, "ABCDEFGHIJ")
	}
}

func TestEncodeDecodeChars(t *testing.T) {
	s, err := EncodeChars([]word.Word{word.New(0)})
	if err != nil {
		t.Fatalf("EncodeChars: %v", err)
	}
	if len(s) != 5 {
		t.Errorf("EncodeChars produced %d chars, want 5", len(s))
	}

	words := DecodeChars("HELLO")
	if len(words) != 1 {
		t.Fatalf("DecodeChars produced %d words, want 1", len(words))
	}
	back, err := EncodeChars(words)
	if err != nil {
		t.Fatalf("EncodeChars: %v", err)
	}
	if back != "HELLO" {
		t.Errorf("round trip = %q, want %q", back, "HELLO")
	}
}

func TestStandardSpecsShape(t *testing.T) {
	specs := StandardSpecs()
	if specs[0].Kind != KindTape {
		t.Errorf("device 0 should be a tape")
	}
	if specs[8].Kind != KindDisk {
		t.Errorf("device 8 should be a disk")
	}
	if specs[16].Kind != KindCardReader || specs[16].CanOutput {
		t.Errorf("device 16 should be an input-only card reader")
	}
	if specs[20].Kind != KindPaperTape {
		t.Errorf("device 20 should be a paper tape")
	}
}
