// Command portalctl runs portal operations from the shell: statements,
// tourist-tax reports, review syncs and account creation.
package main

import (
	"fmt"
	"os"

	"github.com/mmynk/ownerportal/pkg/logging"
)

func main() {
	logger := logging.Setup()

	if err := newRootCmd(os.Stdout, logger).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
