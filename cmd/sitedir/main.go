package main

import (
	"log"

	"github.com/MrSnakeDoc/sitedir/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("❌ sitedir failed to start: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("❌ sitedir stopped: %v", err)
	}
}
