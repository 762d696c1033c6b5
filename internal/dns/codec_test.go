package dns

import "testing"

func TestEncodeName(t *testing.T) {
	b, err := EncodeName("google.com")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	exp := []byte{6, 'g', 'o', 'o', 'g', 'l', 'e', 3, 'c', 'o', 'm', 0}
	if string(b) != string(exp) {
		t.Fatalf("got %v want %v", b, exp)
	}
}

func TestDecodeName_Uncompressed(t *testing.T) {
	msg := []byte{3, 'w', 'w', 'w', 7, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 3, 'c', 'o', 'm', 0}
	off := 0
	n, err := DecodeName(msg, &off)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if n != "www.example.com" {
		t.Fatalf("got %q", n)
	}
	if off != len(msg) {
		t.Fatalf("off=%d", off)
	}
}

func TestEncodeName_Escapes(t *testing.T) {
	b, err := EncodeName(`a\.b.com`)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	exp := []byte{3, 'a', '.', 'b', 3, 'c', 'o', 'm', 0}
	if string(b) != string(exp) {
		t.Fatalf("got %v want %v", b, exp)
	}

	b, err = EncodeName(`\065bc.com`)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	exp = []byte{3, 'A', 'b', 'c', 3, 'c', 'o', 'm', 0}
	if string(b) != string(exp) {
		t.Fatalf("got %v want %v", b, exp)
	}
}

func TestEncodeName_EmptyLabelRejected(t *testing.T) {
	if _, err := EncodeName("a..b.com"); err == nil {
		t.Fatalf("expected error for empty label")
	}
}

func TestDecodeName_EscapesNonPrintable(t *testing.T) {
	msg := []byte{1, 0x01, 0}
	off := 0
	n, err := DecodeName(msg, &off)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if n != `\001` {
		t.Fatalf("got %q", n)
	}
}

func TestDecodeName_CompressionPointer(t *testing.T) {
	// "example.com" at offset 0, then "www" pointing back at offset 0.
	msg := []byte{
		7, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 3, 'c', 'o', 'm', 0,
		3, 'w', 'w', 'w', 0xC0, 0x00,
	}
	off := 13
	n, err := DecodeName(msg, &off)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if n != "www.example.com" {
		t.Fatalf("got %q", n)
	}
	if off != len(msg) {
		t.Fatalf("off=%d", off)
	}
}

func TestDecodeName_CompressionLoopRejected(t *testing.T) {
	// Pointer at offset 0 points to itself.
	msg := []byte{0xC0, 0x00}
	off := 0
	if _, err := DecodeName(msg, &off); err == nil {
		t.Fatalf("expected error for compression pointer loop")
	}
}
