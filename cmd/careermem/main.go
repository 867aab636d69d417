// Package main provides the careermem CLI.
//
// Usage:
//
//	careermem [flags] <command> [args]
//
// Commands:
//
//	maintain      - Run decay, merge and purge over memory stores
//	memory        - Inspect and seed a user's memory store
//	conversation  - Drive coaching conversations
//	mcp           - Serve memory tools over stdio
//
// Configuration:
//
//	Settings come from the environment or a .env file; see core.LoadConfigFromEnv.
package main

import (
	"fmt"
	"os"

	"github.com/hireflow/careermem-go/cmd/careermem/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
