// Package main is the entry point for the tennisfeat CLI tool, which replays
// historical tennis matches and builds a leakage-free feature table.
package main

import "github.com/pable/go-tennis-features/cmd"

func main() {
	cmd.Execute()
}
