// Package main provides the entry point for the edgescan CLI.
package main

import "edgescan/internal/cli"

func main() {
	cli.Execute()
}
