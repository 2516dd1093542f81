package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tomz197/balls/internal/config"
	"github.com/tomz197/balls/internal/physics"
	"github.com/tomz197/balls/internal/spawn"
)

const (
	defaultHost = "0.0.0.0"
	defaultPort = "8080"
)

//go:embed index.html
var htmlPage string

func main() {
	host := config.GetEnv("WEB_HOST", defaultHost)
	port := config.GetEnv("WEB_PORT", defaultPort)
	sshHost := config.GetEnv("SSH_DISPLAY_HOST", "your-server.com")
	sshPort := config.GetEnv(config.EnvPrefix+"SSH_PORT", "2222")

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "web",
	})

	addr := net.JoinHostPort(host, port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           newHandler(renderPage(sshHost, sshPort)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() {
		logger.Info("Starting web server", "addr", "http://"+addr)
		done <- srv.ListenAndServe()
	}()

	select {
	case err := <-done:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", "err", err)
		}
	case <-ctx.Done():
		logger.Info("Stopping web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Could not stop server", "err", err)
		}
	}
}

// renderPage fills the connection details and the list of selectable
// scenarios and broad phases into the landing page.
func renderPage(sshHost, sshPort string) string {
	command := "ssh " + sshHost
	if sshPort != "22" {
		command = fmt.Sprintf("ssh -p %s %s", sshPort, sshHost)
	}
	kinds := make([]string, 0, len(physics.Kinds()))
	for i, k := range physics.Kinds() {
		kinds = append(kinds, fmt.Sprintf("<li><kbd>%d</kbd> %s</li>", i+1, k))
	}
	scenarios := make([]string, 0)
	for _, name := range spawn.Names() {
		scenarios = append(scenarios, "<li>"+name+"</li>")
	}

	r := strings.NewReplacer(
		"{{.SSHCommand}}", command,
		"{{.BroadPhases}}", strings.Join(kinds, "\n"),
		"{{.Scenarios}}", strings.Join(scenarios, "\n"),
	)
	return r.Replace(htmlPage)
}

func newHandler(page string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}
