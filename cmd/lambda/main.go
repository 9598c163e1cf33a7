package main

import (
	"context"
	"log"
	"time"

	"thoughtgraph/infrastructure/config"
	"thoughtgraph/infrastructure/di"
	"thoughtgraph/pkg/observability"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var (
	// chiLambda wraps the reference backend router for API Gateway HTTP APIs
	chiLambda *chiadapter.ChiLambdaV2

	container *di.ServerContainer
	tracing   *observability.TracerProvider

	coldStart     = true
	coldStartTime time.Time
)

// init runs during cold start
func init() {
	coldStartTime = time.Now()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err = di.InitializeServer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	tracing, err = di.StartTracing(context.Background(), cfg, "thoughtgraph-lambda")
	if err != nil {
		log.Fatalf("Failed to start tracing: %v", err)
	}

	chiRouter, ok := container.Router.Setup().(*chi.Mux)
	if !ok {
		log.Fatal("Failed to cast handler to chi.Mux")
	}
	chiLambda = chiadapter.NewV2(chiRouter)

	container.Logger.Info("Lambda cold start completed",
		zap.Duration("duration", time.Since(coldStartTime)),
		zap.String("storage", cfg.Storage),
	)
}

// Handler is the Lambda function handler
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	resp, err := chiLambda.ProxyWithContextV2(ctx, req)

	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	if coldStart {
		resp.Headers["X-Cold-Start"] = "true"
		coldStart = false
	}
	if req.RequestContext.RequestID != "" {
		resp.Headers["X-Request-ID"] = req.RequestContext.RequestID
	}

	// The execution environment may freeze once the handler returns
	if tracing != nil {
		if flushErr := tracing.ForceFlush(ctx); flushErr != nil {
			container.Logger.Warn("Span flush failed", zap.Error(flushErr))
		}
	}

	container.Logger.Debug("Lambda response",
		zap.String("method", req.RequestContext.HTTP.Method),
		zap.String("path", req.RequestContext.HTTP.Path),
		zap.String("request_id", req.RequestContext.RequestID),
		zap.Int("status_code", resp.StatusCode),
	)
	return resp, err
}

func main() {
	lambda.Start(Handler)
}
