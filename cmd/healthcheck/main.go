// Package main probes the liveness endpoint for container health checks.
// It exits 0 when the server answers 200 and 1 otherwise.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"
)

var (
	pathFlag    = flag.String("path", "/livez", "Endpoint to probe (/livez or /readyz)")
	timeoutFlag = flag.Duration("timeout", 5*time.Second, "Probe timeout")
)

func main() {
	flag.Parse()

	port := os.Getenv("PORT")
	if port == "" {
		port = "10000"
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://localhost:"+port+*pathFlag, nil)
	if err != nil {
		os.Exit(1)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		os.Exit(1)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
