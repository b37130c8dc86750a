package main

import (
	"context"
	"fmt"
	"os"

	"github.com/plantcare-go/plantcare/cmd"
	"github.com/plantcare-go/plantcare/internal/conf"
)

func main() {
	settings := &conf.Settings{}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
