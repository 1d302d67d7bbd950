package envelope

import (
	"encoding/binary"
	"fmt"

	latticevault "github.com/latticevault/latticevault-go"
	"github.com/latticevault/latticevault-go/utils"
)

// Encode serializes an envelope into its wire format:
//
//	[1 byte: has_signature]
//	[4 bytes BE: kem_ciphertext_len][kem_ciphertext]
//	[4 bytes BE: payload_len][payload]
//	[if has_signature: 4 bytes BE: sig_len][signature]
//
// The format is bit-exact: Decode(Encode(e)) reproduces e, and
// Encode(Decode(b)) reproduces b for every valid b.
func Encode(env *latticevault.HybridEnvelope) ([]byte, error) {
	if env == nil {
		return nil, utils.ErrInvalidLength
	}
	for _, field := range [][]byte{env.KEMCiphertext, env.Payload, env.Signature} {
		if err := utils.CheckLength(len(field), utils.MaxFieldLength); err != nil {
			return nil, err
		}
	}

	size := 1 + 4 + len(env.KEMCiphertext) + 4 + len(env.Payload)
	if env.HasSignature() {
		size += 4 + len(env.Signature)
	}

	out := make([]byte, 0, size)
	if env.HasSignature() {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	out = appendField(out, env.KEMCiphertext)
	out = appendField(out, env.Payload)
	if env.HasSignature() {
		out = appendField(out, env.Signature)
	}
	return out, nil
}

// Decode parses a wire-format envelope. Truncated input, oversized length
// fields and trailing garbage are all rejected.
func Decode(data []byte) (*latticevault.HybridEnvelope, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("envelope: %w", utils.ErrInvalidLength)
	}
	hasSig := data[0]
	if hasSig > 1 {
		return nil, fmt.Errorf("envelope: invalid signature flag %d", hasSig)
	}
	offset := 1

	kemCt, offset, err := readField(data, offset)
	if err != nil {
		return nil, fmt.Errorf("envelope kem ciphertext: %w", err)
	}
	payload, offset, err := readField(data, offset)
	if err != nil {
		return nil, fmt.Errorf("envelope payload: %w", err)
	}

	env := &latticevault.HybridEnvelope{KEMCiphertext: kemCt, Payload: payload}
	if hasSig == 1 {
		var sig []byte
		sig, offset, err = readField(data, offset)
		if err != nil {
			return nil, fmt.Errorf("envelope signature: %w", err)
		}
		if len(sig) == 0 {
			return nil, fmt.Errorf("envelope: signature flag set but signature empty")
		}
		env.Signature = sig
	}
	if offset != len(data) {
		return nil, fmt.Errorf("envelope: %d trailing bytes", len(data)-offset)
	}
	return env, nil
}

func appendField(out, field []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(field)))
	out = append(out, lenBuf[:]...)
	return append(out, field...)
}

func readField(data []byte, offset int) ([]byte, int, error) {
	length, offset, err := utils.ReadLengthBE(data, offset, utils.MaxFieldLength)
	if err != nil {
		return nil, offset, err
	}
	if err := utils.ValidateSliceAccess(data, offset, length); err != nil {
		return nil, offset, err
	}
	field := make([]byte, length)
	copy(field, data[offset:offset+length])
	return field, offset + length, nil
}
