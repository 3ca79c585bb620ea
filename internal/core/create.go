package core

import (
	"github.com/robgonnella/pmtud/internal/config"
	"github.com/robgonnella/pmtud/internal/discovery"
	"github.com/robgonnella/pmtud/internal/socket"
	"github.com/spf13/viper"
)

// CreateNewAppCore creates and returns a new instance of *core.Core backed
// by raw sockets and the user's config file. observer receives every
// bracket movement as it happens.
func CreateNewAppCore(observer func(step discovery.Step)) (*Core, error) {
	configFile := viper.Get("config-file").(string)
	configRepo := config.NewYAMLRepo(configFile)
	configService := config.NewConfigService(configRepo)

	conf, err := configService.Get()

	if err != nil {
		return nil, err
	}

	provisioner := socket.NewRawProvisioner()

	opts := []discovery.Option{}

	if observer != nil {
		opts = append(opts, discovery.WithStepObserver(observer))
	}

	engine := discovery.NewEngine(provisioner, opts...)

	return New(conf, configService, engine), nil
}
