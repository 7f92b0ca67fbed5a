// Package main is the entry point for the kcovmark CLI.
package main

import "kcovmark.dev/pkg/kcovmark/cmd"

func main() {
	cmd.Execute()
}
