package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/MrSnakeDoc/nginxlb/internal/app"
	"github.com/MrSnakeDoc/nginxlb/internal/config"
)

func main() {
	a, err := app.New(os.Args[1:])
	if errors.Is(err, config.ErrHelp) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("❌ nginxlb failed to start: %v", err)
	}

	if err := a.Run(); err != nil {
		log.Fatalf("❌ nginxlb stopped: %v", err)
	}
}
