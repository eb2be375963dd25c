// Command petctl talks to a running petfinder server and manages the
// advertisement data behind it.
//
// Usage:
//
//	petctl [flags] <command> [args]
//
// Commands:
//
//	search      - search by photo or text
//	status      - show vector index status
//	login       - exchange operator credentials for a token
//	reindex     - trigger a full index rebuild (admin token)
//	seed        - load advertisements from a YAML or JSON file
//	placeholder - hide or unhide an advertisement from search
package main

import (
	"fmt"
	"os"

	"petfinder/cmd/petctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
