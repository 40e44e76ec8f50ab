// Command ccsrepo is a thin operator CLI over a repo: list collections,
// run garbage collection, and pull from a remote. URI/flag parsing depth
// beyond what each subcommand needs is a declared non-goal; the binary
// exists to wire pod.Open, repo.Open, gc, and sync together the way the
// teacher's registry binary wires configuration and storage together.
package main

import (
	"fmt"
	"os"

	_ "github.com/vistore/vistore/pod/file"
	_ "github.com/vistore/vistore/pod/memory"
	_ "github.com/vistore/vistore/pod/s3"
)

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
