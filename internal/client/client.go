package client

import (
	"fmt"
)

// Invocation holds the per-job identifiers a query client needs
// to construct its command-line arguments
type Invocation struct {
	ProjectID        string
	DatasetID        string
	JobID            string
	CollectOutput    bool
	DestinationTable string
}

// Client is an interface over command-line query clients. A client
// names the binary to execute and builds its argument list; the SQL
// script itself is always delivered on the process's standard input
type Client interface {
	Name() string
	Args(inv Invocation) []string
}

// Config represents the client section of the user's configuration file
type Config struct {
	Kind        string   `yaml:"kind"`
	Binary      string   `yaml:"binary"`
	Args        []string `yaml:"args"`
	CollectArgs []string `yaml:"collectArgs"`
}

const (
	KindBigQuery = "bigquery"
	KindGeneric  = "generic"
)

// New creates the query client selected by the configuration
func New(conf Config) (Client, error) {
	switch conf.Kind {
	case KindBigQuery, "":
		return NewBigQuery(conf.Binary), nil
	case KindGeneric:
		if conf.Binary == "" {
			return nil, fmt.Errorf("generic client requires a binary")
		}
		return NewGeneric(conf.Binary, conf.Args, conf.CollectArgs), nil
	default:
		return nil, fmt.Errorf("unknown client kind: %s", conf.Kind)
	}
}
