package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds the benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	workload    string
)

// Metrics
var (
	totalRequests uint64
	success200    uint64 // OK
	fail400       uint64 // Business-rule rejections (nothing to pay)
	fail404       uint64 // Unknown accounts
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8081", "Ledger base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "balance", "Workload type: balance | payment | mixed")
}

func main() {
	flag.Parse()
	log.Printf("Starting Benchmark: %s | Workers: %d | Duration: %s", workload, concurrency, duration)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, start)
	}

	wg.Wait()
	printResults(time.Since(start))
}

func worker(wg *sync.WaitGroup, start time.Time) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	for time.Since(start) < duration {
		var resp *http.Response
		var err error

		switch pickOp() {
		case "balance":
			url := fmt.Sprintf("%s/api/bill-payment/account/%s/balance", targetURL, randomAccountID())
			resp, err = client.Get(url)
		case "payment":
			payload := map[string]interface{}{
				"accountId":      randomAccountID(),
				"confirmPayment": true,
			}
			body, _ := json.Marshal(payload)
			resp, err = client.Post(targetURL+"/api/bill-payment/process", "application/json", bytes.NewBuffer(body))
		}

		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		atomic.AddUint64(&totalRequests, 1)
		switch resp.StatusCode {
		case 200:
			atomic.AddUint64(&success200, 1)
		case 400:
			atomic.AddUint64(&fail400, 1)
		case 404:
			atomic.AddUint64(&fail404, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()
	}
}

func pickOp() string {
	if workload == "mixed" {
		// Mostly lookups, occasional payments; mirrors the real flow where
		// every payment is preceded by at least one balance retrieval.
		if rand.Float32() < 0.8 {
			return "balance"
		}
		return "payment"
	}
	return workload
}

func randomAccountID() string {
	// Assumes 1000 accounts seeded (ids 00000000001-00000001000)
	return fmt.Sprintf("%011d", rand.Intn(1000)+1)
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	s200 := atomic.LoadUint64(&success200)
	f400 := atomic.LoadUint64(&fail400)
	f404 := atomic.LoadUint64(&fail404)
	fErr := atomic.LoadUint64(&failOther)

	tps := float64(total) / d.Seconds()

	results := map[string]interface{}{
		"workload":         workload,
		"duration_sec":     d.Seconds(),
		"total_requests":   total,
		"throughput_tps":   tps,
		"success_ok":       s200,
		"rejected_nothing": f400,
		"rejected_unknown": f404,
		"errors":           fErr,
	}

	// Print JSON for the python plotter to consume
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	// Also save to file
	filename := fmt.Sprintf("results_%s.json", workload)
	file, _ := os.Create(filename)
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
