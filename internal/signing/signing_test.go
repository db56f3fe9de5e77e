package signing

import (
	"crypto/ed25519"
	"crypto/x509"
	"testing"
)

func TestCanonicalBytesNoSeparatorsOrMethod(t *testing.T) {
	got := CanonicalBytes([]FileDigest{
		{Name: "hello", Checksum: "aa"},
		{Name: "world", Checksum: "bb"},
	})
	want := "helloaaworldbb"
	if string(got) != want {
		t.Errorf("CanonicalBytes = %q, want %q", got, want)
	}
}

func TestHMACRoundTrip(t *testing.T) {
	key := []byte("super-secret")
	signer, err := NewHMACSigner("k1", HMACSHA256, key)
	if err != nil {
		t.Fatalf("NewHMACSigner: %v", err)
	}
	msg := CanonicalBytes([]FileDigest{{Name: "a", Checksum: "deadbeef"}})
	sig, err := signer.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	verifier, err := NewHMACVerifier(HMACSHA256, key)
	if err != nil {
		t.Fatalf("NewHMACVerifier: %v", err)
	}
	if err := verifier.Verify(msg, sig); err != nil {
		t.Errorf("Verify failed for a genuine signature: %v", err)
	}
}

func TestHMACBitFlipRejected(t *testing.T) {
	key := []byte("k")
	signer, _ := NewHMACSigner("k1", HMACSHA512, key)
	msg := []byte("manifest bytes")
	sig, err := signer.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	tampered := append([]byte(nil), msg...)
	tampered[0] ^= 0x01

	verifier, _ := NewHMACVerifier(HMACSHA512, key)
	if err := verifier.Verify(tampered, sig); err == nil {
		t.Error("Verify accepted a signature over tampered bytes")
	}
}

func TestEd25519RoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	pkcs8, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		t.Fatalf("MarshalPKCS8PrivateKey: %v", err)
	}
	signer, err := NewEd25519Signer("k2", pkcs8)
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}
	msg := []byte("hello signature")
	sig, err := signer.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	verifier, err := NewEd25519Verifier(pub)
	if err != nil {
		t.Fatalf("NewEd25519Verifier: %v", err)
	}
	if err := verifier.Verify(msg, sig); err != nil {
		t.Errorf("Verify failed for a genuine signature: %v", err)
	}
	tampered := append([]byte(nil), sig...)
	tampered[0] ^= 0xFF
	if err := verifier.Verify(msg, tampered); err == nil {
		t.Error("Verify accepted a tampered ed25519 signature")
	}
}

func TestUnknownMethodRejected(t *testing.T) {
	if _, err := NewHMACSigner("k", Method("HMAC_MD5"), []byte("k")); err == nil {
		t.Error("expected error for unknown HMAC method")
	}
}

func TestEncodeDecodeSignature(t *testing.T) {
	raw := []byte{0x01, 0x02, 0xFF}
	enc := EncodeSignature(raw)
	dec, err := DecodeSignature(enc)
	if err != nil {
		t.Fatalf("DecodeSignature: %v", err)
	}
	if string(dec) != string(raw) {
		t.Errorf("round trip = %v, want %v", dec, raw)
	}
}
