// Command gatewayctl is the operator CLI for the gateway: it seeds the
// provider catalog, stores vendor keys and works with credential ciphertexts.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(connectFromEnv).Execute(); err != nil {
		os.Exit(1)
	}
}
