// Package main is the entry point for ignition, the bootstrap orchestrator
// that prepares the runtime environment for the speech API server and hands
// control to it.
package main

func main() {
	Execute()
}
