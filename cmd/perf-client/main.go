package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// PerfResult gathers aggregated metrics for the test run.
// Atomic counters are used to avoid lock contention on hot paths.
// Latencies are in nanoseconds.
type PerfResult struct {
	TotalRequests int64
	SuccessCount  int64
	ErrorCount    int64
	LatencySum    int64
}

const (
	fixedWorkers   = 50
	fixedRPSTarget = 300
	fixedDuration  = 30 * time.Second
	defaultTimeout = 30 * time.Second
)

// previewRule targets the audience preview endpoint: a nested rule tree
// forces a full customer scan per request.
const previewRule = `{"type":"group","op":"OR","children":[` +
	`{"type":"group","op":"AND","children":[` +
	`{"field":"totalSpend","operator":">","value":1000},` +
	`{"field":"totalVisits","operator":">=","value":2}]},` +
	`{"field":"inactiveDays","operator":">","value":90}]}`

func main() {
	baseURL := "http://localhost:8080"
	if len(os.Args) > 1 {
		baseURL = os.Args[1]
	}

	client := &http.Client{Timeout: defaultTimeout}
	limiter := rate.NewLimiter(rate.Limit(fixedRPSTarget), fixedWorkers)

	body, err := json.Marshal(map[string]string{"ruleJson": previewRule})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode preview body: %v\n", err)
		os.Exit(1)
	}

	result := &PerfResult{}
	var latencies []int64
	var latenciesMu sync.Mutex

	ctx, cancel := context.WithTimeout(context.Background(), fixedDuration)
	defer cancel()

	fmt.Printf("Running preview load: %d workers, %d rps target, %s against %s\n",
		fixedWorkers, fixedRPSTarget, fixedDuration, baseURL)

	var wg sync.WaitGroup
	for i := 0; i < fixedWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if err := limiter.Wait(ctx); err != nil {
					return
				}

				start := time.Now()
				resp, err := client.Post(baseURL+"/api/segments/preview", "application/json", bytes.NewReader(body))
				elapsed := time.Since(start).Nanoseconds()

				atomic.AddInt64(&result.TotalRequests, 1)
				atomic.AddInt64(&result.LatencySum, elapsed)
				latenciesMu.Lock()
				latencies = append(latencies, elapsed)
				latenciesMu.Unlock()

				if err != nil || resp.StatusCode != http.StatusOK {
					atomic.AddInt64(&result.ErrorCount, 1)
					if err == nil {
						resp.Body.Close()
					}
					continue
				}
				resp.Body.Close()
				atomic.AddInt64(&result.SuccessCount, 1)
			}
		}()
	}
	wg.Wait()

	printSummary(result, latencies)
}

func printSummary(result *PerfResult, latencies []int64) {
	fmt.Println("=== Results ===")
	fmt.Printf("Total requests: %d\n", result.TotalRequests)
	fmt.Printf("Success:        %d\n", result.SuccessCount)
	fmt.Printf("Errors:         %d\n", result.ErrorCount)
	if result.TotalRequests == 0 {
		return
	}

	avg := time.Duration(result.LatencySum / result.TotalRequests)
	fmt.Printf("Avg latency:    %s\n", avg)

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	p95 := latencies[len(latencies)*95/100]
	fmt.Printf("P95 latency:    %s\n", time.Duration(p95))
	fmt.Printf("Throughput:     %.1f req/s\n",
		float64(result.SuccessCount)/fixedDuration.Seconds())
}
