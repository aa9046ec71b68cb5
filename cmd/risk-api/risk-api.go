package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/willbeason/review-risk/pkg/tables"
)

const FlagAddr = "addr"

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "risk-api",
		Short:   "serves low-review risk predictions for orders in the modeling table schema",
		Args:    cobra.NoArgs,
		Version: "0.1.0",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), v.GetString(FlagAddr))
		},
	}

	cmd.Flags().String(FlagAddr, ":8080", "address to listen on")
	_ = v.BindPFlag(FlagAddr, cmd.Flags().Lookup(FlagAddr))
	v.SetEnvPrefix("RISK_API")
	v.AutomaticEnv()

	return cmd
}

func serve(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           newMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr)
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := server.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /schema", schemaHandler)
	mux.HandleFunc("POST /predict", predictHandler)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("encoding response", "error", err)
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Comment  string `json:"comment,omitempty"`
}

// schemaHandler publishes the modeling table columns a prediction request
// will be expected to carry.
func schemaHandler(w http.ResponseWriter, _ *http.Request) {
	fields := tables.Modeling.Fields()
	columns := make([]Column, len(fields))
	for i, field := range fields {
		columns[i] = Column{
			Name:     field.Name,
			Type:     field.Type.String(),
			Nullable: field.Nullable,
			Comment:  tables.Comment(field),
		}
	}
	writeJSON(w, http.StatusOK, columns)
}

// TODO: load a trained model and score the posted orders.
func predictHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "prediction is not implemented"})
}
