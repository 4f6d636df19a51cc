package main

import (
	"log"
	"os"

	"github.com/commentsweep/quota-server/app/app"
)

func main() {
	a, err := app.NewApp()
	if err != nil {
		log.Printf("Application failed: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.Log.Error().Err(err).Msg("error closing application")
		}
	}()
	if err := a.Run(); err != nil {
		a.Log.Error().Err(err).Msg("application failed")
		os.Exit(1)
	}
}
