// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-biovault.
//
// go-biovault is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jeremyhahn/go-biovault/internal/cli"
)

func main() {
	// Browsers launch the native messaging host with the extension
	// origin as the first argument rather than a subcommand.
	if len(os.Args) > 1 && isExtensionOrigin(os.Args[1]) {
		if err := cli.RunHost(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func isExtensionOrigin(arg string) bool {
	return strings.HasPrefix(arg, "chrome-extension://") ||
		strings.HasPrefix(arg, "moz-extension://")
}
