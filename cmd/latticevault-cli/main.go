// Package main provides the latticevault-cli command line interface for key
// generation, envelope encryption and signature operations.
package main

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	latticevault "github.com/latticevault/latticevault-go"
	"github.com/latticevault/latticevault-go/core"
	"github.com/latticevault/latticevault-go/envelope"
	"github.com/latticevault/latticevault-go/kem"
	"github.com/latticevault/latticevault-go/sign"
)

const appName = "latticevault-cli"

// OutputFormat selects how binary fields are encoded in exports.
type OutputFormat string

const (
	FormatHex    OutputFormat = "hex"
	FormatBase64 OutputFormat = "base64"
)

// CLIConfig holds the flags shared by every subcommand.
type CLIConfig struct {
	Variant      string
	OutputFormat OutputFormat
	OutputFile   string
	Verbose      bool
	Timing       bool
}

// KeyPairExport is the on-disk form of a generated key pair.
type KeyPairExport struct {
	Algorithm  string `json:"algorithm"`
	Variant    string `json:"variant"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
	CreatedAt  string `json:"created_at"`
}

// EncapsulationExport is the on-disk form of an encapsulation result.
type EncapsulationExport struct {
	Ciphertext   string `json:"ciphertext"`
	SharedSecret string `json:"shared_secret"`
}

// SignatureExport is the on-disk form of a detached signature.
type SignatureExport struct {
	Signature     string `json:"signature"`
	MessageDigest string `json:"message_digest"`
}

// EnvelopeExport is the on-disk form of a sealed envelope.
type EnvelopeExport struct {
	Envelope string `json:"envelope"`
	Signed   bool   `json:"signed"`
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "help", "--help", "-h":
		printUsage()
	case "version", "--version", "-v":
		fmt.Printf("%s version %s\n", appName, latticevault.Version)
	case "kem":
		handleKEM(os.Args[2:])
	case "sign":
		handleSign(os.Args[2:])
	case "envelope":
		handleEnvelope(os.Args[2:])
	case "benchmark":
		handleBenchmark(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - module-lattice cryptography CLI

USAGE:
    %s <COMMAND> [OPTIONS]

COMMANDS:
    kem         Key encapsulation operations (keygen, encapsulate, decapsulate)
    sign        Digital signature operations (keygen, sign, verify)
    envelope    Hybrid envelope operations (seal, open)
    benchmark   Run performance measurements
    version     Show version information
    help        Show this help message

OPTIONS:
    --variant <name>        Parameter variant (LV-512/LV-768/LV-1024 for kem,
                            LVS-44/LVS-65/LVS-87 for sign; category-3 default)
    --output <file>         Output file (default: stdout)
    --format <hex|base64>   Binary field encoding (default: base64)
    --timing                Show timing information
    --verbose               Verbose output

EXAMPLES:
    %s kem keygen --variant LV-768 --output kem.json
    %s kem encapsulate --public-key kem.json
    %s kem decapsulate --key kem.json --ciphertext ct.json
    %s sign keygen --variant LVS-65 --output sig.json
    %s sign sign --key sig.json --message "Document to sign"
    %s sign verify --public-key sig.json --message "Document to sign" --signature s.json
    %s envelope seal --public-key kem.json --message "secret"
    %s envelope open --key kem.json --input env.json
`, appName, appName, appName, appName, appName, appName, appName, appName, appName, appName)
}

func handleKEM(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "kem requires a subcommand: keygen, encapsulate, decapsulate")
		os.Exit(1)
	}
	switch args[0] {
	case "keygen":
		kemKeygen(args[1:])
	case "encapsulate", "encap":
		kemEncapsulate(args[1:])
	case "decapsulate", "decap":
		kemDecapsulate(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown kem subcommand: %s\n", args[0])
		os.Exit(1)
	}
}

func kemKeygen(args []string) {
	config := parseConfig(args, latticevault.LV768)

	start := time.Now()
	kp, err := kem.GenerateKeyPair(config.Variant)
	elapsed := time.Since(start)
	fatalIf(err, "generating key pair")

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Key generation took: %v\n", elapsed)
	}

	writeJSON(KeyPairExport{
		Algorithm:  string(latticevault.AlgorithmKEM),
		Variant:    config.Variant,
		PublicKey:  encodeBytes(kp.PublicKey, config.OutputFormat),
		PrivateKey: encodeBytes(kp.PrivateKey, config.OutputFormat),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}, config.OutputFile)

	if config.Verbose {
		fmt.Fprintf(os.Stderr, "Generated %s key pair: pk %d bytes, sk %d bytes\n",
			config.Variant, len(kp.PublicKey), len(kp.PrivateKey))
	}
}

func kemEncapsulate(args []string) {
	config := parseConfig(args, "")
	export := loadKeyPair(getArg(args, "--public-key", "-pk"))
	params := mustKEMParams(pickVariant(config.Variant, export.Variant))
	publicKey := decodeField(export.PublicKey, "public_key")

	start := time.Now()
	result, err := kem.Encapsulate(publicKey, params)
	elapsed := time.Since(start)
	fatalIf(err, "encapsulating")

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Encapsulation took: %v\n", elapsed)
	}

	writeJSON(EncapsulationExport{
		Ciphertext:   encodeBytes(result.Ciphertext, config.OutputFormat),
		SharedSecret: encodeBytes(result.SharedSecret, config.OutputFormat),
	}, config.OutputFile)
}

func kemDecapsulate(args []string) {
	config := parseConfig(args, "")
	export := loadKeyPair(getArg(args, "--key", "-k"))
	params := mustKEMParams(pickVariant(config.Variant, export.Variant))
	privateKey := decodeField(export.PrivateKey, "private_key")

	ctFile := getArg(args, "--ciphertext", "-ct")
	if ctFile == "" {
		fmt.Fprintln(os.Stderr, "Error: --ciphertext is required")
		os.Exit(1)
	}
	var encap EncapsulationExport
	loadJSON(ctFile, &encap)
	ciphertext := decodeField(encap.Ciphertext, "ciphertext")

	start := time.Now()
	secret, err := kem.Decapsulate(ciphertext, privateKey, params)
	elapsed := time.Since(start)
	fatalIf(err, "decapsulating")

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Decapsulation took: %v\n", elapsed)
	}

	writeJSON(map[string]string{
		"shared_secret": encodeBytes(secret, config.OutputFormat),
	}, config.OutputFile)
}

func handleSign(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "sign requires a subcommand: keygen, sign, verify")
		os.Exit(1)
	}
	switch args[0] {
	case "keygen":
		signKeygen(args[1:])
	case "sign":
		signSign(args[1:])
	case "verify":
		signVerify(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown sign subcommand: %s\n", args[0])
		os.Exit(1)
	}
}

func signKeygen(args []string) {
	config := parseConfig(args, latticevault.LVS65)

	start := time.Now()
	kp, err := sign.GenerateKeyPair(config.Variant)
	elapsed := time.Since(start)
	fatalIf(err, "generating key pair")

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Key generation took: %v\n", elapsed)
	}

	writeJSON(KeyPairExport{
		Algorithm:  string(latticevault.AlgorithmSign),
		Variant:    config.Variant,
		PublicKey:  encodeBytes(kp.PublicKey, config.OutputFormat),
		PrivateKey: encodeBytes(kp.PrivateKey, config.OutputFormat),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}, config.OutputFile)
}

func signSign(args []string) {
	config := parseConfig(args, "")
	export := loadKeyPair(getArg(args, "--key", "-k"))
	params := mustSignParams(pickVariant(config.Variant, export.Variant))
	privateKey := decodeField(export.PrivateKey, "private_key")
	message := readMessage(args)

	start := time.Now()
	result, err := sign.Sign(message, privateKey, params)
	elapsed := time.Since(start)
	fatalIf(err, "signing")

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Signing took: %v\n", elapsed)
	}

	writeJSON(SignatureExport{
		Signature:     encodeBytes(result.Signature, config.OutputFormat),
		MessageDigest: hex.EncodeToString(result.MessageDigest),
	}, config.OutputFile)
}

func signVerify(args []string) {
	config := parseConfig(args, "")
	export := loadKeyPair(getArg(args, "--public-key", "-pk"))
	params := mustSignParams(pickVariant(config.Variant, export.Variant))
	publicKey := decodeField(export.PublicKey, "public_key")
	message := readMessage(args)

	sigFile := getArg(args, "--signature", "-sig")
	if sigFile == "" {
		fmt.Fprintln(os.Stderr, "Error: --signature is required")
		os.Exit(1)
	}
	var sigExport SignatureExport
	loadJSON(sigFile, &sigExport)
	signature := decodeField(sigExport.Signature, "signature")

	start := time.Now()
	valid := sign.Verify(message, signature, publicKey, params)
	elapsed := time.Since(start)

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Verification took: %v\n", elapsed)
	}

	writeJSON(map[string]bool{"valid": valid}, config.OutputFile)
	if !valid {
		os.Exit(1)
	}
}

func handleEnvelope(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "envelope requires a subcommand: seal, open")
		os.Exit(1)
	}
	switch args[0] {
	case "seal":
		envelopeSeal(args[1:])
	case "open":
		envelopeOpen(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown envelope subcommand: %s\n", args[0])
		os.Exit(1)
	}
}

func envelopeSeal(args []string) {
	config := parseConfig(args, "")
	export := loadKeyPair(getArg(args, "--public-key", "-pk"))
	params := mustKEMParams(pickVariant(config.Variant, export.Variant))
	publicKey := decodeField(export.PublicKey, "public_key")
	message := readMessage(args)

	var env *latticevault.HybridEnvelope
	var err error

	signerFile := getArg(args, "--signer-key", "-sk")
	start := time.Now()
	if signerFile != "" {
		signer := loadKeyPair(signerFile)
		signParams := mustSignParams(signer.Variant)
		env, err = envelope.SealSigned(message, publicKey, params,
			decodeField(signer.PrivateKey, "private_key"), signParams)
	} else {
		env, err = envelope.Seal(message, publicKey, params)
	}
	elapsed := time.Since(start)
	fatalIf(err, "sealing envelope")

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Seal took: %v\n", elapsed)
	}

	wire, err := envelope.Encode(env)
	fatalIf(err, "encoding envelope")

	writeJSON(EnvelopeExport{
		Envelope: encodeBytes(wire, config.OutputFormat),
		Signed:   env.HasSignature(),
	}, config.OutputFile)
}

func envelopeOpen(args []string) {
	config := parseConfig(args, "")
	export := loadKeyPair(getArg(args, "--key", "-k"))
	params := mustKEMParams(pickVariant(config.Variant, export.Variant))
	privateKey := decodeField(export.PrivateKey, "private_key")

	inputFile := getArg(args, "--input", "-i")
	if inputFile == "" {
		fmt.Fprintln(os.Stderr, "Error: --input is required")
		os.Exit(1)
	}
	var envExport EnvelopeExport
	loadJSON(inputFile, &envExport)
	wire := decodeField(envExport.Envelope, "envelope")

	env, err := envelope.Decode(wire)
	fatalIf(err, "decoding envelope")

	start := time.Now()
	plaintext, err := envelope.Open(env, privateKey, params)
	elapsed := time.Since(start)
	fatalIf(err, "opening envelope")

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Open took: %v\n", elapsed)
	}

	verifierFile := getArg(args, "--signer-public-key", "-spk")
	if verifierFile != "" {
		verifier := loadKeyPair(verifierFile)
		signParams := mustSignParams(verifier.Variant)
		if !envelope.Verify(env, decodeField(verifier.PublicKey, "public_key"), signParams) {
			fmt.Fprintln(os.Stderr, "Warning: envelope signature did NOT verify")
		} else if config.Verbose {
			fmt.Fprintln(os.Stderr, "Envelope signature verified")
		}
	}

	if config.OutputFile != "" {
		fatalIf(os.WriteFile(config.OutputFile, plaintext, 0600), "writing output file")
	} else {
		fmt.Print(string(plaintext))
	}
}

func handleBenchmark(args []string) {
	iterations := 10
	if s := getArg(args, "--iterations", "-n"); s != "" {
		_, _ = fmt.Sscanf(s, "%d", &iterations)
	}
	if iterations < 1 {
		iterations = 1
	}

	config := parseConfig(args, latticevault.LV768)
	kemParams := mustKEMParams(config.Variant)
	signVariant := latticevault.LVS65
	signParams := mustSignParams(signVariant)

	fmt.Printf("latticevault benchmark: %s / %s, %d iterations\n\n", config.Variant, signVariant, iterations)

	measure := func(name string, fn func()) {
		var total time.Duration
		for i := 0; i < iterations; i++ {
			start := time.Now()
			fn()
			total += time.Since(start)
		}
		fmt.Printf("  %-14s %v (avg)\n", name+":", total/time.Duration(iterations))
	}

	kp, err := kem.GenerateKeyPair(config.Variant)
	fatalIf(err, "kem keygen")
	measure("KeyGen", func() {
		_, err := kem.GenerateKeyPair(config.Variant)
		fatalIf(err, "kem keygen")
	})

	result, err := kem.Encapsulate(kp.PublicKey, kemParams)
	fatalIf(err, "encapsulate")
	measure("Encapsulate", func() {
		_, err := kem.Encapsulate(kp.PublicKey, kemParams)
		fatalIf(err, "encapsulate")
	})
	measure("Decapsulate", func() {
		_, err := kem.Decapsulate(result.Ciphertext, kp.PrivateKey, kemParams)
		fatalIf(err, "decapsulate")
	})

	message := []byte("benchmark payload for latticevault operations")
	measure("Seal", func() {
		_, err := envelope.Seal(message, kp.PublicKey, kemParams)
		fatalIf(err, "seal")
	})

	skp, err := sign.GenerateKeyPair(signVariant)
	fatalIf(err, "sign keygen")
	sig, err := sign.Sign(message, skp.PrivateKey, signParams)
	fatalIf(err, "sign")
	measure("Sign", func() {
		_, err := sign.Sign(message, skp.PrivateKey, signParams)
		fatalIf(err, "sign")
	})
	measure("Verify", func() {
		if !sign.Verify(message, sig.Signature, skp.PublicKey, signParams) {
			fmt.Fprintln(os.Stderr, "verify failed")
			os.Exit(1)
		}
	})
}

func parseConfig(args []string, defaultVariant string) CLIConfig {
	config := CLIConfig{
		Variant:      defaultVariant,
		OutputFormat: FormatBase64,
	}
	if v := getArg(args, "--variant", "-V"); v != "" {
		config.Variant = v
	}
	switch f := getArg(args, "--format", "-f"); f {
	case "hex":
		config.OutputFormat = FormatHex
	case "base64", "":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid format %q. Must be hex or base64\n", f)
		os.Exit(1)
	}
	config.OutputFile = getArg(args, "--output", "-o")
	config.Verbose = hasFlag(args, "--verbose", "-v")
	config.Timing = hasFlag(args, "--timing", "-t")
	return config
}

func pickVariant(flag, fromFile string) string {
	if flag != "" {
		return flag
	}
	return fromFile
}

func mustKEMParams(variant string) core.KEMParams {
	params, err := core.GetKEMParams(variant)
	fatalIf(err, "resolving variant")
	return params
}

func mustSignParams(variant string) core.SignParams {
	params, err := core.GetSignParams(variant)
	fatalIf(err, "resolving variant")
	return params
}

func readMessage(args []string) []byte {
	if m := getArg(args, "--message", "-m"); m != "" {
		return []byte(m)
	}
	if f := getArg(args, "--message-file", "-mf"); f != "" {
		data, err := os.ReadFile(f)
		fatalIf(err, "reading message file")
		return data
	}
	data, err := io.ReadAll(os.Stdin)
	fatalIf(err, "reading from stdin")
	return data
}

func loadKeyPair(path string) *KeyPairExport {
	if path == "" {
		fmt.Fprintln(os.Stderr, "Error: a key file is required")
		os.Exit(1)
	}
	var export KeyPairExport
	loadJSON(path, &export)
	return &export
}

func loadJSON(path string, v interface{}) {
	data, err := os.ReadFile(path)
	fatalIf(err, "reading "+path)
	fatalIf(json.Unmarshal(data, v), "parsing "+path)
}

func writeJSON(v interface{}, outputFile string) {
	output, err := json.MarshalIndent(v, "", "  ")
	fatalIf(err, "marshaling output")
	if outputFile != "" {
		fatalIf(os.WriteFile(outputFile, output, 0600), "writing output file")
		return
	}
	fmt.Println(string(output))
}

func encodeBytes(data []byte, format OutputFormat) string {
	if format == FormatHex {
		return hex.EncodeToString(data)
	}
	return base64.StdEncoding.EncodeToString(data)
}

// decodeField accepts both encodings so exports from either format load.
func decodeField(s, name string) []byte {
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s is neither base64 nor hex\n", name)
		os.Exit(1)
	}
	return data
}

func getArg(args []string, long, short string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == long || args[i] == short {
			return args[i+1]
		}
	}
	return ""
}

func hasFlag(args []string, long, short string) bool {
	for _, arg := range args {
		if arg == long || arg == short {
			return true
		}
	}
	return false
}

func fatalIf(err error, context string) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error %s: %v\n", context, err)
		os.Exit(1)
	}
}
