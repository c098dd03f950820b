package main

import (
	"os"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
