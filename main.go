package main

import (
	"log"

	"github.com/debug-flow/debug-flow/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		log.Fatalf("debug-flow: %v", err)
	}
}
