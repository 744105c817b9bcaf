// Command showplayer runs the show control module with a console step sink and
// an HTTP API for playing shows into slots.
package main

import (
	"log/slog"
	"os"

	"github.com/GoCodeAlone/modular"
	"github.com/GoCodeAlone/modular/feeders"

	"github.com/GoCodeAlone/showcontrol"
	"github.com/GoCodeAlone/showcontrol/show"
)

type AppConfig struct {
	Name string `yaml:"name" default:"Show Player"`
	API  struct {
		Address string `yaml:"address" env:"API_ADDRESS" default:":8080"`
	} `yaml:"api"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Set up configuration feeders
	modular.ConfigFeeders = []modular.Feeder{
		feeders.NewYamlFeeder("config.yaml"),
		feeders.NewEnvFeeder(),
	}

	appConfig := &AppConfig{}
	app := modular.NewStdApplication(modular.NewStdConfigProvider(appConfig), logger)

	sink := show.StepSinkFunc(func(step show.StepContext) {
		logger.Info("Show step",
			"show", step.ShowName,
			"instance", step.InstanceID,
			"priority", step.Priority,
			"step", step.StepIndex+1,
			"payload", step.Payload)
	})

	app.RegisterModule(showcontrol.NewModule(showcontrol.WithStepSink(sink)))
	app.RegisterModule(NewAPIModule(appConfig))

	if err := app.Run(); err != nil {
		logger.Error("Application error", "error", err)
		os.Exit(1)
	}
}
