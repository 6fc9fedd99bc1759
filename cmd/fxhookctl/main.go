package main

import (
	"log"

	"github.com/cambista/fxhooks/cmd/fxhookctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
