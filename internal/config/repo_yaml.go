package config

import (
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/imdario/mergo"
	"gopkg.in/yaml.v3"
)

// YAMLRepo is our repo implementation for a flat yaml file
type YAMLRepo struct {
	configPath string
	mux        sync.Mutex
}

// NewYAMLRepo returns a new repo backed by the yaml file at configPath
func NewYAMLRepo(configPath string) *YAMLRepo {
	return &YAMLRepo{
		configPath: configPath,
		mux:        sync.Mutex{},
	}
}

// Load reads the config file and fills unset fields from Default. A missing
// file yields the defaults.
func (r *YAMLRepo) Load() (*Config, error) {
	r.mux.Lock()
	defer r.mux.Unlock()

	conf := &Config{}

	raw, err := os.ReadFile(r.configPath)

	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if err == nil {
		if err := yaml.Unmarshal(raw, conf); err != nil {
			return nil, err
		}
	}

	if err := mergo.Merge(conf, Default()); err != nil {
		return nil, err
	}

	return conf, nil
}

// Write persists conf, replacing any existing file
func (r *YAMLRepo) Write(conf *Config) error {
	r.mux.Lock()
	defer r.mux.Unlock()

	file, err := os.OpenFile(r.configPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)

	if err != nil {
		return err
	}

	defer file.Close()

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)

	if err := encoder.Encode(conf); err != nil {
		return err
	}

	return encoder.Close()
}
