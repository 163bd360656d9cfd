package handler

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"
)

// Body is the JSON-encoded greeting every invocation answers with.
const Body = `"Hello from Lambda!"`

type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Func is the signature lambda.Start accepts.
type Func func(ctx context.Context, event json.RawMessage) (Response, error)

// New returns a Lambda handler that ignores its event and performs one run.
// The response is the same whatever the run did; a run error is also
// returned so the runtime marks the invocation failed.
func New(run func(ctx context.Context) error, log *zap.SugaredLogger) Func {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return func(ctx context.Context, _ json.RawMessage) (Response, error) {
		l := log
		if lc, ok := lambdacontext.FromContext(ctx); ok {
			l = l.With("aws_request_id", lc.AwsRequestID)
		}
		l.Infow("invocation started")

		resp := Response{StatusCode: 200, Body: Body}
		if err := run(ctx); err != nil {
			l.Errorw("invocation failed", "error", err)
			return resp, err
		}
		l.Infow("invocation finished")
		return resp, nil
	}
}
