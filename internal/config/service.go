package config

// ConfigService validates configs on their way in and out of the repo
type ConfigService struct {
	repo Repo
}

// NewConfigService returns a new instance of ConfigService
func NewConfigService(repo Repo) *ConfigService {
	return &ConfigService{repo: repo}
}

// Get returns the stored config merged over defaults
func (s *ConfigService) Get() (*Config, error) {
	conf, err := s.repo.Load()

	if err != nil {
		return nil, err
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

// Update validates and stores conf
func (s *ConfigService) Update(conf *Config) error {
	if err := conf.Validate(); err != nil {
		return err
	}

	return s.repo.Write(conf)
}
