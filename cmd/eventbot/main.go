package main

import (
	"errors"
	"log"

	"github.com/volunteerhub/eventbot/core/cmd"
	"github.com/volunteerhub/eventbot/internal/app"
)

var errUnexpectedConfig = errors.New("unexpected config carrier type")

func main() {
	err := cmd.Run(cmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			return app.LoadConfig(path)
		},
		Bootstrap: func(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			cfg, ok := carrier.(*app.Config)
			if !ok {
				return nil, errUnexpectedConfig
			}
			return app.Bootstrap(cfg)
		},
	})
	if err != nil {
		log.Fatalf("eventbot: %v", err)
	}
}
