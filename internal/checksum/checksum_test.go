package checksum

import (
	"bytes"
	"strings"
	"testing"
)

func TestSumKnownVectors(t *testing.T) {
	cases := []struct {
		method Method
		input  string
		want   string
	}{
		{SHA256, "", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{SHA256, "abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}
	for _, c := range cases {
		got, err := Sum(c.method, strings.NewReader(c.input))
		if err != nil {
			t.Fatalf("Sum(%q): %v", c.input, err)
		}
		if got != c.want {
			t.Errorf("Sum(%q) = %s, want %s", c.input, got, c.want)
		}
	}
}

func TestUnknownMethod(t *testing.T) {
	_, err := Sum(Method("SHA1"), strings.NewReader("x"))
	if err == nil {
		t.Fatal("expected error for unknown method")
	}
}

func TestVerify(t *testing.T) {
	sum, err := Sum(SHA512, strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	ok, err := Verify(SHA512, strings.NewReader("hello"), sum)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Error("Verify returned false for a matching digest")
	}
	ok, err = Verify(SHA512, strings.NewReader("goodbye"), sum)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Error("Verify returned true for a mismatched digest")
	}
}

func TestTeeHasherForwardsAndHashes(t *testing.T) {
	var buf bytes.Buffer
	tee, err := NewTeeHasher(&buf, SHA256)
	if err != nil {
		t.Fatalf("NewTeeHasher: %v", err)
	}
	if _, err := tee.Write([]byte("hello ")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := tee.Write([]byte("world")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.String() != "hello world" {
		t.Errorf("forwarded = %q, want %q", buf.String(), "hello world")
	}
	want, err := Sum(SHA256, strings.NewReader("hello world"))
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	if tee.Sum() != want {
		t.Errorf("tee.Sum() = %s, want %s", tee.Sum(), want)
	}
}
