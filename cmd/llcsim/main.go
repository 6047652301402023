// Command llcsim drives the replacement-policy core standalone: run feeds a
// synthetic two-application access stream through one policy and records the
// result to a run ledger; serve hosts a dashboard over a ledger's history.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
