package main

import (
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"election-agent/handler"
)

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Serve API Gateway proxy events as an AWS Lambda function",
	RunE:  runLambda,
}

func init() {
	rootCmd.AddCommand(lambdaCmd)
}

func runLambda(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg, os.Stdout, "json")

	a, err := newApp(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	h, err := handler.NewHandler(a.orchestrator, a.sessions,
		handler.WithLogger(log),
		handler.WithHealth(a.orchestrator),
	)
	if err != nil {
		return fmt.Errorf("creating handler: %w", err)
	}

	lambda.Start(h.Handle)
	return nil
}
