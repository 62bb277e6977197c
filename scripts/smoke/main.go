// Command smoke probes a running famboard API instance and reports
// per-endpoint status and latency. Intended for deploy verification.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"
)

type target struct {
	Method   string
	Path     string
	Expect   int
	NeedAuth bool
}

var targets = []target{
	{Method: http.MethodGet, Path: "/health", Expect: http.StatusOK},
	{Method: http.MethodGet, Path: "/metrics", Expect: http.StatusOK},
	{Method: http.MethodGet, Path: "/api/v1/messages", Expect: http.StatusOK, NeedAuth: true},
	{Method: http.MethodGet, Path: "/api/v1/display/board", Expect: http.StatusOK, NeedAuth: true},
	{Method: http.MethodGet, Path: "/api/v1/settings", Expect: http.StatusOK, NeedAuth: true},
}

func main() {
	var (
		base    string
		token   string
		timeout time.Duration
	)
	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&token, "token", "", "access token for authenticated endpoints")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	client := &http.Client{Timeout: timeout}
	failures := 0

	for _, t := range targets {
		if t.NeedAuth && token == "" {
			fmt.Printf("SKIP %-6s %-28s (no token)\n", t.Method, t.Path)
			continue
		}

		req, err := http.NewRequest(t.Method, base+t.Path, nil)
		if err != nil {
			fmt.Printf("FAIL %-6s %-28s %v\n", t.Method, t.Path, err)
			failures++
			continue
		}
		if t.NeedAuth {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		start := time.Now()
		resp, err := client.Do(req)
		elapsed := time.Since(start)
		if err != nil {
			fmt.Printf("FAIL %-6s %-28s %v\n", t.Method, t.Path, err)
			failures++
			continue
		}
		resp.Body.Close()

		if resp.StatusCode != t.Expect {
			fmt.Printf("FAIL %-6s %-28s got %d want %d (%s)\n", t.Method, t.Path, resp.StatusCode, t.Expect, elapsed)
			failures++
			continue
		}
		fmt.Printf("OK   %-6s %-28s %d (%s)\n", t.Method, t.Path, resp.StatusCode, elapsed)
	}

	if failures > 0 {
		fmt.Printf("%d endpoint(s) failing\n", failures)
		os.Exit(1)
	}
}
