package config

import (
	"io/ioutil"

	"gopkg.in/yaml.v2"

	"github.com/qdispatch/qdispatch/internal/client"
)

// Config represents the configuration file specified by the user
type Config struct {
	Project        string        `yaml:"project"`
	Dataset        string        `yaml:"dataset"`
	Client         client.Config `yaml:"client"`
	Region         string        `yaml:"region"`
	Local          bool          `yaml:"local"`
	LogLevel       int           `yaml:"logLevel"`
	ArtifactBucket string        `yaml:"artifactBucket"`
	LogGroup       string        `yaml:"logGroup"`
}

// ReadLocalConfigFile reads the config file from the local file system
// note that the path can be absolute or relative path
func ReadLocalConfigFile(path string) (*Config, error) {
	var conf Config

	confFile, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	err = yaml.Unmarshal(confFile, &conf)
	if err != nil {
		return nil, err
	}

	return &conf, nil
}
