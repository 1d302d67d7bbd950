package test

import (
	"testing"

	latticevault "github.com/latticevault/latticevault-go"
	"github.com/latticevault/latticevault-go/core"
	"github.com/latticevault/latticevault-go/envelope"
	"github.com/latticevault/latticevault-go/kem"
	"github.com/latticevault/latticevault-go/sign"
)

func BenchmarkKEMKeyGen(b *testing.B) {
	for _, variant := range []string{latticevault.LV512, latticevault.LV768, latticevault.LV1024} {
		b.Run(variant, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := kem.GenerateKeyPair(variant); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkEncapsulate(b *testing.B) {
	params, _ := core.GetKEMParams(latticevault.LV768)
	kp, err := kem.GenerateKeyPair(latticevault.LV768)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := kem.Encapsulate(kp.PublicKey, params); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecapsulate(b *testing.B) {
	params, _ := core.GetKEMParams(latticevault.LV768)
	kp, err := kem.GenerateKeyPair(latticevault.LV768)
	if err != nil {
		b.Fatal(err)
	}
	result, err := kem.Encapsulate(kp.PublicKey, params)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := kem.Decapsulate(result.Ciphertext, kp.PrivateKey, params); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSign(b *testing.B) {
	params, _ := core.GetSignParams(latticevault.LVS65)
	kp, err := sign.GenerateKeyPair(latticevault.LVS65)
	if err != nil {
		b.Fatal(err)
	}
	message := []byte("benchmark message for signature timing")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := sign.Sign(message, kp.PrivateKey, params); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkVerify(b *testing.B) {
	params, _ := core.GetSignParams(latticevault.LVS65)
	kp, err := sign.GenerateKeyPair(latticevault.LVS65)
	if err != nil {
		b.Fatal(err)
	}
	message := []byte("benchmark message for signature timing")
	result, err := sign.Sign(message, kp.PrivateKey, params)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !sign.Verify(message, result.Signature, kp.PublicKey, params) {
			b.Fatal("verify failed")
		}
	}
}

func BenchmarkSealOpen(b *testing.B) {
	params, _ := core.GetKEMParams(latticevault.LV768)
	kp, err := kem.GenerateKeyPair(latticevault.LV768)
	if err != nil {
		b.Fatal(err)
	}
	payload := make([]byte, 4096)

	b.Run("Seal", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := envelope.Seal(payload, kp.PublicKey, params); err != nil {
				b.Fatal(err)
			}
		}
	})

	env, err := envelope.Seal(payload, kp.PublicKey, params)
	if err != nil {
		b.Fatal(err)
	}
	b.Run("Open", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := envelope.Open(env, kp.PrivateKey, params); err != nil {
				b.Fatal(err)
			}
		}
	})
}
