package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/punchamoorthee/billpay/internal/config"
	"github.com/punchamoorthee/billpay/internal/ledgerapi"
	"github.com/punchamoorthee/billpay/internal/service"
	"github.com/punchamoorthee/billpay/internal/store"
)

func main() {
	cfg, err := config.LoadLedger()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ledgerStore, err := store.NewStore(cfg.DBSource)
	if err != nil {
		logger.Fatal("unable to connect to database", zap.Error(err))
	}
	defer ledgerStore.Close()

	if err := ledgerStore.Migrate(context.Background()); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	// Initialize Layers
	payments := service.NewBillPaymentService(ledgerStore, logger.Named("service"))
	handler := ledgerapi.NewHandler(payments, ledgerStore, logger.Named("api"))

	// Router
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", handler.HealthCheckHandler).Methods("GET")

	billpay := r.PathPrefix("/api/bill-payment").Subrouter()
	billpay.HandleFunc("/account/{accountId}/balance", handler.GetAccountBalanceHandler).Methods("GET")
	billpay.HandleFunc("/process", handler.ProcessBillPaymentHandler).Methods("POST")
	billpay.HandleFunc("/transaction/{transactionId}", handler.GetTransactionHandler).Methods("GET")

	logger.Info("server starting", zap.String("port", cfg.Port))
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
