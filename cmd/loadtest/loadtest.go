package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

type LoadTestConfig struct {
	BaseURL             string
	ConcurrentShoppers  int
	TestDurationSeconds int
	RampUpSeconds       int
	ProductIDs          []string
	Email               string
	Password            string
}

type TestResult struct {
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	CartOperations     int64
	OrdersPlaced       int64
	OrdersRejected     int64
	ResponseTimes      []time.Duration
	Errors             map[string]int64
	mutex              sync.Mutex
}

type PerformanceMetrics struct {
	StartTime        time.Time        `json:"start_time"`
	EndTime          time.Time        `json:"end_time"`
	TotalDuration    time.Duration    `json:"total_duration"`
	ThroughputRPS    float64          `json:"throughput_rps"`
	SuccessfulRPS    float64          `json:"successful_rps"`
	P50ResponseTime  time.Duration    `json:"p50"`
	P95ResponseTime  time.Duration    `json:"p95"`
	P99ResponseTime  time.Duration    `json:"p99"`
	ErrorRate        float64          `json:"error_rate"`
	CartOperations   int64            `json:"cart_operations"`
	OrdersPlaced     int64            `json:"orders_placed"`
	OrderSuccessRate float64          `json:"order_success_rate"`
	TopErrors        map[string]int64 `json:"top_errors,omitempty"`
}

type LoadTester struct {
	config    *LoadTestConfig
	result    *TestResult
	transport *http.Transport
}

func NewLoadTester(config *LoadTestConfig) *LoadTester {
	return &LoadTester{
		config: config,
		result: &TestResult{
			ResponseTimes: make([]time.Duration, 0),
			Errors:        make(map[string]int64),
		},
		transport: &http.Transport{
			MaxIdleConns:        1000,
			MaxIdleConnsPerHost: 100,
			MaxConnsPerHost:     200,
		},
	}
}

// shopper is one browser: its own cookie jar, so its own storefront
// session.
type shopper struct {
	id     int
	client *http.Client
}

func (lt *LoadTester) newShopper(id int) *shopper {
	jar, _ := cookiejar.New(nil)
	return &shopper{
		id: id,
		client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: lt.transport,
			Jar:       jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (lt *LoadTester) recordResponse(duration time.Duration, success bool, operation string, err error) {
	lt.result.mutex.Lock()
	defer lt.result.mutex.Unlock()

	atomic.AddInt64(&lt.result.TotalRequests, 1)
	lt.result.ResponseTimes = append(lt.result.ResponseTimes, duration)

	if success {
		atomic.AddInt64(&lt.result.SuccessfulRequests, 1)
	} else {
		atomic.AddInt64(&lt.result.FailedRequests, 1)
		if err != nil {
			lt.result.Errors[fmt.Sprintf("%s: %s", operation, err.Error())]++
		}
	}
}

func (lt *LoadTester) call(s *shopper, operation, method, path string, body interface{}, expected ...int) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, lt.config.BaseURL+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	duration := time.Since(start)
	if err != nil {
		lt.recordResponse(duration, false, operation, err)
		return 0, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	ok := resp.StatusCode < 400
	for _, code := range expected {
		if resp.StatusCode == code {
			ok = true
		}
	}
	if !ok {
		err = fmt.Errorf("status %d", resp.StatusCode)
	}
	lt.recordResponse(duration, ok, operation, err)
	return resp.StatusCode, err
}

func (lt *LoadTester) simulateShopper(ctx context.Context, id int, wg *sync.WaitGroup) {
	defer wg.Done()

	s := lt.newShopper(id)
	loggedIn := false
	if lt.config.Email != "" {
		_, err := lt.call(s, "login", http.MethodPost, "/api/auth/login", map[string]string{
			"email":    lt.config.Email,
			"password": lt.config.Password,
		})
		loggedIn = err == nil
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		lt.browseAndFillCart(s)

		if loggedIn && rand.Intn(4) == 0 {
			lt.placeOrder(s)
		}

		time.Sleep(time.Duration(rand.Intn(1000)) * time.Millisecond)
	}
}

func (lt *LoadTester) browseAndFillCart(s *shopper) {
	products := lt.config.ProductIDs
	productID := products[rand.Intn(len(products))]

	_, _ = lt.call(s, "home", http.MethodGet, "/", nil)
	_, _ = lt.call(s, "product", http.MethodGet, "/products/"+productID, nil)

	if _, err := lt.call(s, "cart_add", http.MethodPost, "/api/cart/items", map[string]interface{}{
		"productId": productID,
		"quantity":  1 + rand.Intn(3),
	}); err == nil {
		atomic.AddInt64(&lt.result.CartOperations, 1)
	}

	if rand.Intn(3) == 0 {
		_, _ = lt.call(s, "cart_update", http.MethodPatch, "/api/cart/items/"+productID, map[string]int{"quantity": 1 + rand.Intn(5)})
		atomic.AddInt64(&lt.result.CartOperations, 1)
	}

	_, _ = lt.call(s, "cart_view", http.MethodGet, "/api/cart", nil)
}

// placeOrder treats 409 as expected: another tab of the same shopper may
// already be handing the cart to the gateway.
func (lt *LoadTester) placeOrder(s *shopper) {
	code, err := lt.call(s, "place_order", http.MethodPost, "/api/checkout/place-order", nil, http.StatusConflict)
	switch {
	case err == nil && code == http.StatusCreated:
		atomic.AddInt64(&lt.result.OrdersPlaced, 1)
	default:
		atomic.AddInt64(&lt.result.OrdersRejected, 1)
	}
}

func (lt *LoadTester) Run() *PerformanceMetrics {
	fmt.Printf("Starting load test with %d concurrent shoppers for %d seconds\n",
		lt.config.ConcurrentShoppers, lt.config.TestDurationSeconds)

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(lt.config.TestDurationSeconds)*time.Second)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Println("\nReceived interrupt signal, stopping test...")
			cancel()
		case <-ctx.Done():
		}
	}()

	startTime := time.Now()
	var wg sync.WaitGroup

	shoppers := lt.config.ConcurrentShoppers
	if shoppers < 1 {
		shoppers = 1
	}
	interval := time.Duration(lt.config.RampUpSeconds) * time.Second / time.Duration(shoppers)

	for i := 0; i < shoppers; i++ {
		wg.Add(1)
		go lt.simulateShopper(ctx, i, &wg)

		if i < shoppers-1 {
			time.Sleep(interval)
		}
	}

	go lt.monitorProgress(ctx, startTime)

	wg.Wait()
	return lt.calculateMetrics(startTime, time.Now())
}

func (lt *LoadTester) monitorProgress(ctx context.Context, startTime time.Time) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			elapsed := time.Since(startTime)
			totalReqs := atomic.LoadInt64(&lt.result.TotalRequests)
			successReqs := atomic.LoadInt64(&lt.result.SuccessfulRequests)

			fmt.Printf("[%s] Total: %d, Success: %d, RPS: %.1f, Orders: %d\n",
				elapsed.Round(time.Second), totalReqs, successReqs,
				float64(totalReqs)/elapsed.Seconds(), atomic.LoadInt64(&lt.result.OrdersPlaced))
		}
	}
}

func (lt *LoadTester) calculateMetrics(startTime, endTime time.Time) *PerformanceMetrics {
	lt.result.mutex.Lock()
	defer lt.result.mutex.Unlock()

	totalDuration := endTime.Sub(startTime)
	totalRequests := atomic.LoadInt64(&lt.result.TotalRequests)
	successfulRequests := atomic.LoadInt64(&lt.result.SuccessfulRequests)

	metrics := &PerformanceMetrics{
		StartTime:      startTime,
		EndTime:        endTime,
		TotalDuration:  totalDuration,
		CartOperations: atomic.LoadInt64(&lt.result.CartOperations),
		OrdersPlaced:   atomic.LoadInt64(&lt.result.OrdersPlaced),
		TopErrors:      topErrors(lt.result.Errors, 5),
	}

	if totalDuration.Seconds() > 0 {
		metrics.ThroughputRPS = float64(totalRequests) / totalDuration.Seconds()
		metrics.SuccessfulRPS = float64(successfulRequests) / totalDuration.Seconds()
	}
	if totalRequests > 0 {
		metrics.ErrorRate = float64(atomic.LoadInt64(&lt.result.FailedRequests)) / float64(totalRequests) * 100
	}

	orderAttempts := metrics.OrdersPlaced + atomic.LoadInt64(&lt.result.OrdersRejected)
	if orderAttempts > 0 {
		metrics.OrderSuccessRate = float64(metrics.OrdersPlaced) / float64(orderAttempts) * 100
	}

	if len(lt.result.ResponseTimes) > 0 {
		metrics.P50ResponseTime = calculatePercentile(lt.result.ResponseTimes, 50)
		metrics.P95ResponseTime = calculatePercentile(lt.result.ResponseTimes, 95)
		metrics.P99ResponseTime = calculatePercentile(lt.result.ResponseTimes, 99)
	}

	return metrics
}

func topErrors(errs map[string]int64, n int) map[string]int64 {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return errs[keys[i]] > errs[keys[j]] })

	out := make(map[string]int64)
	for i := 0; i < len(keys) && i < n; i++ {
		out[keys[i]] = errs[keys[i]]
	}
	return out
}

func calculatePercentile(durations []time.Duration, percentile int) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	index := int(float64(len(sorted)) * float64(percentile) / 100.0)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}

func (pm *PerformanceMetrics) PrintReport() {
	fmt.Printf("STOREFRONT LOAD TEST RESULTS\n")
	fmt.Printf("Test Duration: %v\n", pm.TotalDuration.Round(time.Second))
	fmt.Printf("\n")

	fmt.Printf("THROUGHPUT:\n")
	fmt.Printf("- Total RPS: %.2f requests/second\n", pm.ThroughputRPS)
	fmt.Printf("- Successful RPS: %.2f requests/second\n", pm.SuccessfulRPS)
	fmt.Printf("- Error Rate: %.2f%%\n", pm.ErrorRate)
	fmt.Printf("\n")

	fmt.Printf("RESPONSE TIME:\n")
	fmt.Printf("- P50: %v\n", pm.P50ResponseTime.Round(time.Millisecond))
	fmt.Printf("- P95: %v\n", pm.P95ResponseTime.Round(time.Millisecond))
	fmt.Printf("- P99: %v\n", pm.P99ResponseTime.Round(time.Millisecond))
	fmt.Printf("\n")

	fmt.Printf("STOREFRONT:\n")
	fmt.Printf("- Cart operations: %d\n", pm.CartOperations)
	fmt.Printf("- Orders handed to gateway: %d (%.2f%% of attempts)\n", pm.OrdersPlaced, pm.OrderSuccessRate)
	for msg, count := range pm.TopErrors {
		fmt.Printf("- %d x %s\n", count, msg)
	}
}

func (pm *PerformanceMetrics) SaveToFile(filename string) error {
	data, err := json.MarshalIndent(pm, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0o644)
}
