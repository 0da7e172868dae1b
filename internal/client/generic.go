package client

import "strings"

// placeholders recognised in generic argument templates
const (
	placeholderProject     = "{project}"
	placeholderDataset     = "{dataset}"
	placeholderJob         = "{job}"
	placeholderDestination = "{destination}"
)

// Generic adapts any query client that accepts SQL on standard input.
// The argument lists are templates from the configuration file; CollectArgs
// are only appended when results are collected into a destination table
type Generic struct {
	Binary      string
	ArgTemplate []string
	CollectArgs []string
}

// NewGeneric creates a Generic client from configured argument templates
func NewGeneric(binary string, args []string, collectArgs []string) *Generic {
	return &Generic{
		Binary:      binary,
		ArgTemplate: args,
		CollectArgs: collectArgs,
	}
}

// Name returns the binary to execute
func (g *Generic) Name() string {
	return g.Binary
}

// Args expands the configured templates with the invocation values
func (g *Generic) Args(inv Invocation) []string {
	replacer := strings.NewReplacer(
		placeholderProject, inv.ProjectID,
		placeholderDataset, inv.DatasetID,
		placeholderJob, inv.JobID,
		placeholderDestination, inv.DestinationTable,
	)

	args := make([]string, 0, len(g.ArgTemplate)+len(g.CollectArgs))
	for _, arg := range g.ArgTemplate {
		args = append(args, replacer.Replace(arg))
	}

	if inv.CollectOutput {
		for _, arg := range g.CollectArgs {
			args = append(args, replacer.Replace(arg))
		}
	}

	return args
}
