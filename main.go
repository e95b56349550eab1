package main

import (
	"fmt"
	"os"

	"github.com/haguru/eduquest/config"
	"github.com/haguru/eduquest/internal/app"
)

func main() {
	configPath := config.CONFIG_PATH
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	// create and initialize the app
	app, err := app.NewApp(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize eduquest: %v\n", err)
		os.Exit(1)
	}

	// Run blocks until SIGINT/SIGTERM and then drains in-flight requests.
	if err := app.Run(); err != nil {
		app.Logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}
