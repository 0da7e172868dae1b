package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/qdispatch/qdispatch/internal/artifact"
	"github.com/qdispatch/qdispatch/internal/client"
	"github.com/qdispatch/qdispatch/internal/config"
	"github.com/qdispatch/qdispatch/internal/dispatch"
	"github.com/qdispatch/qdispatch/internal/logs"
)

const version = "0.1.0"

// CLI flags
var (
	configPath       string
	scriptPath       string
	stdoutPath       string
	stderrPath       string
	jobID            string
	collectOutput    bool
	destinationTable string
)

func main() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")

	runCmd.PersistentFlags().StringVar(&scriptPath, "script", "", "path to SQL script to run")
	runCmd.PersistentFlags().StringVar(&stdoutPath, "stdout", "", "file the client's standard output is written to")
	runCmd.PersistentFlags().StringVar(&stderrPath, "stderr", "", "file the client's standard error is written to")
	runCmd.PersistentFlags().StringVar(&jobID, "job-id", "", "job id for the query (generated when omitted)")
	runCmd.PersistentFlags().BoolVar(&collectOutput, "collect-output", false, "materialize results into the destination table")
	runCmd.PersistentFlags().StringVar(&destinationTable, "destination-table", "", "table the results are written to")
	runCmd.MarkFlagRequired("script")
	runCmd.MarkFlagRequired("stdout")
	runCmd.MarkFlagRequired("stderr")

	rootCmd.Execute()
}

var rootCmd = &cobra.Command{
	Use:   "qdispatch",
	Short: "Qdispatch runs SQL scripts against a data warehouse through its command-line client",
	Long:  `Qdispatch runs SQL scripts against a data warehouse through its command-line client`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the qdispatch version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("qdispatch", version)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one SQL script and report the client's outcome",
	Long:  `Run one SQL script and report the client's outcome`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		conf, err := config.ReadLocalConfigFile(configPath)
		if err != nil {
			logrus.WithField(
				"File name", configPath,
			).WithError(err).Fatal("Error reading config file")
			return
		}

		// set logger
		logrus.SetLevel(logs.ConfigLogLevelToLevel(conf.LogLevel))

		if jobID == "" {
			jobID = uuid.New().String()
		}

		queryClient, err := client.New(conf.Client)
		if err != nil {
			logrus.WithError(err).Fatal("Error initializing query client")
			return
		}

		runLogger := logrus.WithFields(logrus.Fields{
			"Job ID": jobID,
			"Client": queryClient.Name(),
		})

		dispatcher := dispatch.NewDispatcher(queryClient)

		fmt.Println("Dispatching query with Job ID: ", jobID)
		outcome, err := dispatcher.Dispatch(ctx, dispatch.Request{
			ProjectID:        conf.Project,
			DatasetID:        conf.Dataset,
			JobID:            jobID,
			ScriptPath:       scriptPath,
			StdoutPath:       stdoutPath,
			StderrPath:       stderrPath,
			CollectOutput:    collectOutput,
			DestinationTable: destinationTable,
		})
		if err != nil {
			runLogger.WithError(err).Fatal("Error dispatching query script")
			return
		}

		if conf.ArtifactBucket != "" {
			store := artifact.NewStore(mustAwsCfg(conf, runLogger), conf.ArtifactBucket)
			err = store.SaveRun(ctx, jobID, outcome.StdoutPath, outcome.StderrPath)
			if err != nil {
				runLogger.WithError(err).Error("Error uploading output files")
			}
		}

		if conf.LogGroup != "" {
			publisher := logs.NewPublisher(mustAwsCfg(conf, runLogger), conf.LogGroup)
			err = publisher.PublishOutcome(ctx, outcome)
			if err != nil {
				runLogger.WithError(err).Error("Error publishing outcome")
			}
		}

		if outcome.ExitCode != 0 {
			runLogger.WithFields(logrus.Fields{
				"Exit code":   outcome.ExitCode,
				"Stderr tail": outcome.StderrTail,
			}).Error("Query client exited with failure")
			os.Exit(outcome.ExitCode)
		}

		fmt.Println("Query complete with Job ID: ", jobID)
	},
}

// mustAwsCfg loads the AWS configuration, pointing at localstack
// when running locally
func mustAwsCfg(conf *config.Config, runLogger *logrus.Entry) aws.Config {
	var cfg aws.Config
	var err error

	if conf.Local {
		cfg, err = config.InitLocalCfg()
	} else {
		cfg, err = config.InitCfg(conf.Region)
	}
	if err != nil {
		runLogger.WithError(err).Fatal("Error loading AWS configuration")
	}

	return cfg
}
