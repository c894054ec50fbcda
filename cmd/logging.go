package cmd

import (
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/factory"
	"github.com/vibast-solutions/ms-go-payments-reconciler/config"
)

func configureLogging(cfg *config.Config) error {
	return factory.ConfigureLogging(cfg.Log.Level, cfg.Log.Format)
}
