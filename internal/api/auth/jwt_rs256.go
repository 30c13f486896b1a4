package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const Issuer = "lister"

type Claims struct {
	jwt.RegisteredClaims
}

// LoadRSAPublicKeyFromEnv reads a PEM public key from an env var.
// It supports either a normal multi-line PEM, or a single-line PEM with \n escapes.
func LoadRSAPublicKeyFromEnv(envKey string) (*rsa.PublicKey, error) {
	raw, err := pemFromEnv(envKey)
	if err != nil {
		return nil, err
	}

	pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("parse public key pem failed: %w", err)
	}

	return pub, nil
}

// LoadRSAPrivateKeyFromEnv reads a PKCS#1 or PKCS#8 RSA private key PEM.
func LoadRSAPrivateKeyFromEnv(envKey string) (*rsa.PrivateKey, error) {
	raw, err := pemFromEnv(envKey)
	if err != nil {
		return nil, err
	}
	return ParseRSAPrivateKeyPEM([]byte(raw))
}

func pemFromEnv(envKey string) (string, error) {
	raw := strings.TrimSpace(os.Getenv(envKey))
	if raw == "" {
		return "", fmt.Errorf("%s is not set", envKey)
	}

	// Allow users to store PEM in env as single line with "\n"
	return strings.ReplaceAll(raw, `\n`, "\n"), nil
}

func ParseRSAPrivateKeyPEM(b []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, errors.New("pem decode failed")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse pkcs1 private key failed: %w", err)
		}
		return priv, nil

	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse pkcs8 private key failed: %w", err)
		}
		priv, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("pkcs8 key is not rsa")
		}
		return priv, nil

	default:
		return nil, fmt.Errorf("unsupported pem type: %s", block.Type)
	}
}

func ParseAndValidateRS256(tokenString string, pub *rsa.PublicKey) (*Claims, error) {
	if pub == nil {
		return nil, errors.New("public key is nil")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name}),
		jwt.WithLeeway(30*time.Second),
		jwt.WithExpirationRequired(),
	)

	tok, err := parser.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		return pub, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, errors.New("invalid token")
	}

	if claims.Subject == "" {
		return nil, errors.New("sub missing")
	}

	return claims, nil
}

// Sign issues an RS256 token for subject valid for ttl.
func Sign(priv *rsa.PrivateKey, subject string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()

	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
	return tok.SignedString(priv)
}
