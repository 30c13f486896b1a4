package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func main() {
	var (
		outDir = flag.String("out", "./secrets", "directory for jwt_private.pem and jwt_public.pem")
		bits   = flag.Int("bits", 2048, "RSA key size")
		env    = flag.Bool("env", false, "also print single-line JWT_PRIVATE_KEY_PEM / JWT_PUBLIC_KEY_PEM lines for .env")
	)
	flag.Parse()

	if err := os.MkdirAll(*outDir, 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "mkdir failed: %v\n", err)
		os.Exit(1)
	}

	priv, err := rsa.GenerateKey(rand.Reader, *bits)
	if err != nil {
		fmt.Fprintf(os.Stderr, "keygen failed: %v\n", err)
		os.Exit(1)
	}

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(priv),
	})

	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal public key failed: %v\n", err)
		os.Exit(1)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubDER,
	})

	privPath := filepath.Join(*outDir, "jwt_private.pem")
	pubPath := filepath.Join(*outDir, "jwt_public.pem")

	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "write private key failed: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write public key failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s\nWrote %s\n", privPath, pubPath)

	if *env {
		fmt.Printf("JWT_PRIVATE_KEY_PEM=\"%s\"\n", oneLine(privPEM))
		fmt.Printf("JWT_PUBLIC_KEY_PEM=\"%s\"\n", oneLine(pubPEM))
	}
}

// oneLine escapes newlines the way auth.LoadRSAPublicKeyFromEnv expects.
func oneLine(b []byte) string {
	return strings.ReplaceAll(strings.TrimSpace(string(b)), "\n", `\n`)
}
