package main

import (
	"log"

	"github.com/patric-chuzhbe/fenix/internal/app"
)

func main() {
	theApp, err := app.New()
	if err != nil {
		log.Fatalf("unable to initialize the application: %v", err)
	}
	defer theApp.Close()

	if err := theApp.Run(); err != nil {
		theApp.Close()
		log.Fatalf("the application stopped with an error: %v", err)
	}
}
