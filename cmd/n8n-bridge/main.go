package main

import (
	"os"

	"github.com/sonnd/n8n-ai-bridge/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
