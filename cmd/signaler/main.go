package main

import (
	"context"

	"github.com/openhuddle/huddle/pkg/config"
	"github.com/openhuddle/huddle/pkg/logger"
	"github.com/openhuddle/huddle/pkg/os"
	"github.com/openhuddle/huddle/pkg/signaler"
	flag "github.com/spf13/pflag"
)

var Version = "?"

func main() {
	conf := config.NewConfig()
	conf.AddFlags(flag.CommandLine)
	flag.Parse()

	log := logger.NewConsole(conf.Signaler.Debug, "sig", false)
	log.Info().Msgf("version %s", Version)
	if log.GetLevel() < logger.InfoLevel {
		log.Debug().Msgf("config: %+v", conf)
	}

	s := signaler.New(conf, log)
	s.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		if err := s.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("service shutdown errors")
		}
	}()
	<-os.ExpectTermination()
	cancel()
}
