// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for secretive-x.
//
// Usage:
//
//	go run . [flags]
//	./secretive-x [flags]
//
// This launches the secretive-x CLI. See --help for options.
package main

import "github.com/sarveshkapre/secretive-x/ui/cli"

func main() {
	cli.Execute()
}
