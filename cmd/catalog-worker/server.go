package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/feedpipe/catalog-worker/internal/config"
	"github.com/feedpipe/catalog-worker/internal/orchestrator"
	"github.com/feedpipe/catalog-worker/pkg/log"
	"github.com/feedpipe/catalog-worker/pkg/schema"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
)

var (
	router *mux.Router
	server *http.Server
)

// serverInit builds the router: the single POST invocation endpoint
// spec.md §6 describes, plus a /swagger/ UI route; this module
// registers no generated swag docs for that route to serve.
func serverInit(orch *orchestrator.Orchestrator) {
	router = mux.NewRouter()

	router.HandleFunc("/v1/invoke", invokeHandler(orch)).Methods(http.MethodPost)
	router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL("http://" + config.Keys.Addr + "/swagger/doc.json"))).Methods(http.MethodGet)

	router.Use(handlers.CompressHandler)
	router.Use(handlers.RecoveryHandler(handlers.PrintRecoveryStack(true)))
	router.Use(handlers.CORS(
		handlers.AllowedHeaders([]string{"Content-Type"}),
		handlers.AllowedMethods([]string{"POST", "GET", "OPTIONS"}),
		handlers.AllowedOrigins([]string{"*"})))
}

// invokeHandler validates the request body's fee_config against the
// embedded schema, then hands the whole request to the orchestrator.
// A lost lease maps to 409; any other fatal categorical error maps to
// 500, per spec.md §6's status-code contract.
func invokeHandler(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(rw, "could not read request body", http.StatusBadRequest)
			return
		}

		var req schema.InvocationRequest
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(rw, "malformed json: "+err.Error(), http.StatusBadRequest)
			return
		}

		feeConfigRaw, err := json.Marshal(req.FeeConfig)
		if err != nil {
			http.Error(rw, "malformed fee_config", http.StatusBadRequest)
			return
		}
		if err := schema.Validate(schema.FeeConfigSchema, bytes.NewReader(feeConfigRaw)); err != nil {
			http.Error(rw, "fee_config: "+err.Error(), http.StatusBadRequest)
			return
		}

		resp := orch.Invoke(r.Context(), req)

		rw.Header().Set("Content-Type", "application/json")
		switch {
		case resp.Status != schema.StatusError:
			rw.WriteHeader(http.StatusOK)
		case strings.HasPrefix(resp.Error, "lease_lost"):
			// Orchestrator.fail renders a lost lease through
			// pipeline.ErrLeaseLost, whose Error() always starts with
			// its stable "lease_lost" ident.
			rw.WriteHeader(http.StatusConflict)
		default:
			rw.WriteHeader(http.StatusInternalServerError)
		}
		json.NewEncoder(rw).Encode(resp)
	}
}

func serverStart() {
	handler := handlers.CustomLoggingHandler(io.Discard, router, func(_ io.Writer, params handlers.LogFormatterParams) {
		log.Debugf("%s %s (%d, %.02fkb, %dms)",
			params.Request.Method, params.URL.RequestURI(),
			params.StatusCode, float32(params.Size)/1024,
			time.Since(params.TimeStamp).Milliseconds())
	})

	server = &http.Server{
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
		Handler:      handler,
		Addr:         config.Keys.Addr,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("starting server failed: %s", err.Error())
	}
}

func serverShutdown(ctx context.Context) {
	server.Shutdown(ctx)
}
