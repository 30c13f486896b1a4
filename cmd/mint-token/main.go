package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/api/auth"
)

func main() {
	var (
		subject = flag.String("sub", "dev-client", "subject (sub) of the caller")
		ttl     = flag.Duration("ttl", 30*time.Minute, "token TTL (e.g. 30m, 2h)")
		envKey  = flag.String("env", "JWT_PRIVATE_KEY_PEM", "env var containing RSA private key PEM")
	)
	flag.Parse()

	priv, err := auth.LoadRSAPrivateKeyFromEnv(*envKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load private key failed: %v\n", err)
		os.Exit(1)
	}

	s, err := auth.Sign(priv, *subject, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign token failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(s)
}
