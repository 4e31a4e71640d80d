package main

import "github.com/brocaar/loramac-ascon/cmd/loramac-ascon/cmd"

var version string // set by the compiler

func main() {
	cmd.Execute(version)
}
