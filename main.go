package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/spotthebot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("spotthebot exited")
		os.Exit(1)
	}
}
