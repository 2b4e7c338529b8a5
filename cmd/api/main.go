package main

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/punchamoorthee/billpay/internal/api"
	"github.com/punchamoorthee/billpay/internal/config"
	"github.com/punchamoorthee/billpay/internal/flow"
	"github.com/punchamoorthee/billpay/internal/gateway"
)

func main() {
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	// Initialize Layers
	client := gateway.NewClient(cfg.GatewayURL, gateway.WithLogger(logger.Named("gateway")))
	sessions := flow.NewManager(client, logger.Named("flow"))
	handler := api.NewHandler(sessions, client, logger.Named("api"))

	// Router
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", handler.HealthCheckHandler).Methods("GET")

	sess := r.PathPrefix("/api/v1/bill-payment/sessions").Subrouter()
	sess.HandleFunc("", handler.CreateSessionHandler).Methods("POST")
	sess.HandleFunc("/{id}", handler.GetSessionHandler).Methods("GET")
	sess.HandleFunc("/{id}", handler.DeleteSessionHandler).Methods("DELETE")
	sess.HandleFunc("/{id}/balance", handler.RetrieveBalanceHandler).Methods("POST")
	sess.HandleFunc("/{id}/account-id", handler.EditAccountIDHandler).Methods("PUT")
	sess.HandleFunc("/{id}/confirmation", handler.SetConfirmationHandler).Methods("PUT")
	sess.HandleFunc("/{id}/payment", handler.SubmitPaymentHandler).Methods("POST")
	sess.HandleFunc("/{id}/reset", handler.ResetSessionHandler).Methods("POST")

	passthrough := r.PathPrefix("/api/bill-payment").Subrouter()
	passthrough.HandleFunc("/account/{accountId}/balance", handler.GetAccountBalanceHandler).Methods("GET")
	passthrough.HandleFunc("/process", handler.ProcessBillPaymentHandler).Methods("POST")

	logger.Info("server starting", zap.String("port", cfg.Port), zap.String("gateway_url", cfg.GatewayURL))
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
