// Command salttoken issues and inspects SALT API tokens, for example the
// long-lived service tokens given to other observatory systems.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
