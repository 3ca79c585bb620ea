package config

//go:generate mockgen -destination=../mock/config/mock_config.go -package=mock_config . Repo,Service

// Repo interface representing access to the stored config
type Repo interface {
	Load() (*Config, error)
	Write(conf *Config) error
}

// Service interface for reading and updating the stored config
type Service interface {
	Get() (*Config, error)
	Update(conf *Config) error
}
