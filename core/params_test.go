package core

import (
	"errors"
	"testing"

	latticevault "github.com/latticevault/latticevault-go"
)

func TestKEMParamsContract(t *testing.T) {
	cases := []struct {
		variant      string
		pk, sk, ct   int
		category     int
	}{
		{latticevault.LV512, 800, 1632, 768, 1},
		{latticevault.LV768, 1184, 2400, 1088, 3},
		{latticevault.LV1024, 1568, 3168, 1568, 5},
	}
	for _, c := range cases {
		p, err := GetKEMParams(c.variant)
		if err != nil {
			t.Fatalf("%s: %v", c.variant, err)
		}
		if err := ValidateKEMParams(p); err != nil {
			t.Fatalf("%s: validation failed: %v", c.variant, err)
		}
		if p.PublicKeySize != c.pk || p.PrivateKeySize != c.sk || p.CiphertextSize != c.ct {
			t.Fatalf("%s: sizes %d/%d/%d, want %d/%d/%d", c.variant,
				p.PublicKeySize, p.PrivateKeySize, p.CiphertextSize, c.pk, c.sk, c.ct)
		}
		if p.SecurityCategory != c.category {
			t.Fatalf("%s: category %d, want %d", c.variant, p.SecurityCategory, c.category)
		}
		if p.SharedSecretSize != latticevault.SharedSecretSize {
			t.Fatalf("%s: shared secret size %d", c.variant, p.SharedSecretSize)
		}
	}
}

func TestSignParamsContract(t *testing.T) {
	cases := []struct {
		variant      string
		pk, sk, sig  int
	}{
		{latticevault.LVS44, 3104, 2144, 3104},
		{latticevault.LVS65, 4640, 2912, 3872},
		{latticevault.LVS87, 6176, 3936, 5408},
	}
	for _, c := range cases {
		p, err := GetSignParams(c.variant)
		if err != nil {
			t.Fatalf("%s: %v", c.variant, err)
		}
		if err := ValidateSignParams(p); err != nil {
			t.Fatalf("%s: validation failed: %v", c.variant, err)
		}
		if p.PublicKeySize != c.pk || p.PrivateKeySize != c.sk || p.SignatureSize != c.sig {
			t.Fatalf("%s: sizes %d/%d/%d, want %d/%d/%d", c.variant,
				p.PublicKeySize, p.PrivateKeySize, p.SignatureSize, c.pk, c.sk, c.sig)
		}
	}
}

func TestUnknownVariant(t *testing.T) {
	if _, err := GetKEMParams("LV-9000"); !errors.Is(err, latticevault.ErrUnknownVariant) {
		t.Fatalf("got %v, want ErrUnknownVariant", err)
	}
	if _, err := GetSignParams(""); !errors.Is(err, latticevault.ErrUnknownVariant) {
		t.Fatalf("got %v, want ErrUnknownVariant", err)
	}
	// variant names are namespaced per algorithm
	if _, err := GetKEMParams(latticevault.LVS65); !errors.Is(err, latticevault.ErrUnknownVariant) {
		t.Fatalf("signature variant accepted as kem variant: %v", err)
	}
}

func TestValidateRejectsInconsistentParams(t *testing.T) {
	p := LV768Params
	p.PublicKeySize++
	if err := ValidateKEMParams(p); err == nil {
		t.Fatal("wrong public key size accepted")
	}

	p = LV768Params
	p.Q = 3330 // not prime
	if err := ValidateKEMParams(p); err == nil {
		t.Fatal("composite modulus accepted")
	}

	s := LVS65Params
	s.Beta++
	if err := ValidateSignParams(s); err == nil {
		t.Fatal("beta != tau*eta accepted")
	}

	s = LVS65Params
	s.Gamma1 = s.Gamma1 + 1
	if err := ValidateSignParams(s); err == nil {
		t.Fatal("non-power-of-two gamma1 accepted")
	}
}
