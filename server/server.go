package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/snapp-incubator/updatelog/internal/ghfake"
	"github.com/snapp-incubator/updatelog/internal/logging"
)

var (
	help  bool   // Indicates whether to show the help or not
	bind  string // Address of the fake API
	token string // Accepted bearer token, empty accepts any
)

func init() {
	flag.BoolVar(&help, "help", false, "Show help")
	flag.StringVar(&bind, "bind", "127.0.0.1:8080", "The address of the fake contents API")
	flag.StringVar(&token, "token", "", "The only accepted bearer token")
}

func main() {
	flag.Parse()

	// Usage Demo
	if help {
		flag.Usage()
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	fake := ghfake.New()
	fake.Token = token

	srv := server(bind, fake.Router())
	logging.L.Info("fake contents api is running", zap.String("address", bind))

	<-c
	shutdown(srv)
	logging.L.Debug("server is down")
}

// server is HTTP server creator.
func server(address string, handler http.Handler) *http.Server {
	srv := &http.Server{
		Addr:         address,
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      handler,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L.Fatal("error in HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	return srv
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(2)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.L.Error("error in shutting down the server", zap.Error(err))
	}
}
