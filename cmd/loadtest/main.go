package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

func main() {
	config := &LoadTestConfig{}
	flag.StringVar(&config.BaseURL, "url", "http://localhost:8080", "Storefront base URL")
	flag.IntVar(&config.ConcurrentShoppers, "shoppers", 100, "Concurrent shoppers")
	flag.IntVar(&config.TestDurationSeconds, "duration", 60, "Test duration in seconds")
	flag.IntVar(&config.RampUpSeconds, "rampup", 10, "Seconds to start all shoppers")
	products := flag.String("products", "", "Comma-separated product ids to add to carts")
	flag.StringVar(&config.Email, "email", "", "Login email; enables place-order when set")
	flag.StringVar(&config.Password, "password", "", "Login password")
	profile := flag.String("profile", "", "Preset: light, heavy or stress")
	output := flag.String("out", "", "Write the report as JSON to this file")
	flag.Parse()

	switch *profile {
	case "light":
		config.ConcurrentShoppers = 50
		config.TestDurationSeconds = 30
	case "heavy":
		config.ConcurrentShoppers = 500
		config.TestDurationSeconds = 300
	case "stress":
		config.ConcurrentShoppers = 1000
		config.TestDurationSeconds = 600
	}

	for _, id := range strings.Split(*products, ",") {
		if id = strings.TrimSpace(id); id != "" {
			config.ProductIDs = append(config.ProductIDs, id)
		}
	}
	if len(config.ProductIDs) == 0 {
		log.Fatal("at least one product id is required (-products)")
	}

	tester := NewLoadTester(config)
	metrics := tester.Run()
	metrics.PrintReport()

	if *output != "" {
		if err := metrics.SaveToFile(*output); err != nil {
			log.Fatalf("Failed to save report: %v", err)
		}
		fmt.Printf("Report saved to %s\n", *output)
	}

	if metrics.ErrorRate > 5 {
		fmt.Fprintf(os.Stderr, "error rate %.2f%% above 5%% at %s\n", metrics.ErrorRate, time.Now().Format(time.RFC3339))
		os.Exit(1)
	}
}
