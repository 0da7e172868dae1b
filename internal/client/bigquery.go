package client

import "fmt"

const defaultBigQueryBinary = "bq"

// BigQuery builds invocations for the bq command-line tool
type BigQuery struct {
	Binary string
}

// NewBigQuery creates a BigQuery client, falling back to the
// bq binary on the PATH when none is configured
func NewBigQuery(binary string) *BigQuery {
	if binary == "" {
		binary = defaultBigQueryBinary
	}
	return &BigQuery{Binary: binary}
}

// Name returns the binary to execute
func (b *BigQuery) Name() string {
	return b.Binary
}

// Args builds the bq argument list. Global flags identify the project
// and dataset, the query subcommand carries the job id, and the
// destination-table flags are only present when results are collected
// into a table
func (b *BigQuery) Args(inv Invocation) []string {
	args := []string{
		"--quiet",
		"--format=csv",
		fmt.Sprintf("--project_id=%s", inv.ProjectID),
		fmt.Sprintf("--dataset_id=%s", inv.DatasetID),
		"query",
		fmt.Sprintf("--job_id=%s", inv.JobID),
		"--nouse_legacy_sql",
	}

	if inv.CollectOutput {
		args = append(
			args,
			fmt.Sprintf("--destination_table=%s", inv.DestinationTable),
			"--allow_large_results",
		)
	}

	return args
}
