package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/bankguaranteeflow/internal/app"
	"github.com/Lllllllleong/bankguaranteeflow/internal/config"
	"github.com/Lllllllleong/bankguaranteeflow/internal/ingress"
)

var (
	etl          *app.GuaranteeETL
	router       http.Handler
	eventHandler *ingress.EventHandler
	once         sync.Once
	initErr      error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("StartETL", startETL)
	functions.CloudEvent("ProcessDocumentEvent", processDocumentEvent)
}

// main runs the functions locally; in Cloud Functions the framework calls the registered
// entry points directly.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := funcframework.Start(cfg.Port); err != nil {
		slog.Error("Function framework stopped", "error", err)
		os.Exit(1)
	}
}

func setup() {
	once.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			initErr = err
			return
		}
		etl, initErr = app.NewGuaranteeETL(context.Background(), cfg)
		if initErr != nil {
			return
		}
		router = ingress.NewRouter(etl)
		eventHandler = ingress.NewEventHandler(etl)
	})
}

func startETL(w http.ResponseWriter, r *http.Request) {
	setup()
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	router.ServeHTTP(w, r)
}

func processDocumentEvent(ctx context.Context, e cloudevents.Event) error {
	setup()
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}
	return eventHandler.Handle(ctx, e)
}
