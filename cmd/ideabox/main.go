package main

import (
	"context"
	"log"

	"github.com/MrSnakeDoc/ideabox/internal/app"
)

func main() {
	ctx := context.Background()
	a, err := app.New(ctx)
	if err != nil {
		log.Fatalf("❌ ideabox failed to start: %v", err)
	}
	if err := a.Run(ctx); err != nil {
		log.Fatalf("❌ ideabox failed: %v", err)
	}
}
