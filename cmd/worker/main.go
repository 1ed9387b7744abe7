package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/imrishuroy/go-decor-cartflow/internal/aws"
	"github.com/imrishuroy/go-decor-cartflow/internal/config"
	"github.com/imrishuroy/go-decor-cartflow/internal/logger"
	"github.com/imrishuroy/go-decor-cartflow/internal/submissions"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadWorker()
	if err != nil {
		logger.New(logger.Options{ServiceName: "cartflow-worker"}).Error(ctx, "loading config", err)
		os.Exit(1)
	}
	log := logger.New(logger.Options{
		ServiceName: "cartflow-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})

	clients, err := aws.NewAWSClients(ctx)
	if err != nil {
		log.Error(ctx, "init aws clients", err)
		os.Exit(1)
	}

	p := NewProcessor(submissions.NewStore(clients.DynamoDB, cfg.AWS.SubmissionsTable), log)

	// RUN_LOCAL=true processes one message from LOCAL_SQS_BODY and exits.
	if cfg.App.RunLocal {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			body = `{"type":"cart.submitted","submission_id":"local-submission-1","cart_session":"local-session","decorador_id":1,"estimated_value":"0"}`
		}
		resp, err := p.Handle(ctx, events.SQSEvent{
			Records: []events.SQSMessage{{MessageId: "local-1", Body: body}},
		})
		if err != nil || len(resp.BatchItemFailures) > 0 {
			log.Error(ctx, "local message failed", err)
			os.Exit(1)
		}
		return
	}

	lambda.Start(p.Handle)
}
