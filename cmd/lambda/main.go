package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"workflow-dispatcher/internal/dispatch"
)

var dispatcher = dispatch.New("")

// handler runs one dispatch per invocation. The result record is the
// invocation output for every outcome; the runtime never sees an error.
func handler(ctx context.Context, event dispatch.Event) (dispatch.Result, error) {
	return dispatcher.Trigger(ctx, event), nil
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.With().Str("component", "lambda").Logger()

	lambda.Start(handler)
}
