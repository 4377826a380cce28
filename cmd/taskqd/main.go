// Command taskqd runs a taskq engine behind the admin HTTP API, binding
// job types to webhook endpoints and firing configured crons.
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
