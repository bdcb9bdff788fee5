// Seed tool for populating a running credit approval server with
// synthetic customers and loans.
//
// Usage:
//   go run cmd/seed/main.go -url http://localhost:8080 -customers 50 -loans 3
//
// This tool:
//  1. Registers the requested number of customers with randomized
//     salaries and ages
//  2. Requests up to -loans loans per customer through /create-loan
//  3. Prints a summary of approvals and rejections
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

var firstNames = []string{
	"Aarav", "Vivaan", "Aditya", "Arjun", "Reyansh",
	"Ananya", "Diya", "Saanvi", "Meera", "Ishita",
	"Rohan", "Kabir", "Priya", "Neha", "Kavya",
}

var lastNames = []string{
	"Sharma", "Verma", "Patel", "Iyer", "Reddy",
	"Nair", "Mehta", "Gupta", "Singh", "Rao",
}

type registerRequest struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Age           int    `json:"age"`
	MonthlyIncome int64  `json:"monthly_income"`
	PhoneNumber   int64  `json:"phone_number"`
}

type registerResponse struct {
	CustomerID    int64 `json:"customer_id"`
	ApprovedLimit int64 `json:"approved_limit"`
}

type createLoanRequest struct {
	CustomerID   int64   `json:"customer_id"`
	LoanAmount   float64 `json:"loan_amount"`
	InterestRate float64 `json:"interest_rate"`
	Tenure       int     `json:"tenure"`
}

type createLoanResponse struct {
	LoanID       *int64 `json:"loan_id"`
	LoanApproved bool   `json:"loan_approved"`
	Message      string `json:"message"`
}

type counters struct {
	customers int64
	approved  int64
	rejected  int64
	errors    int64
}

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:8080", "server base URL")
		numCustomers = flag.Int("customers", 50, "number of customers to register")
		loansPer     = flag.Int("loans", 3, "loan requests per customer")
		workers      = flag.Int("workers", 5, "concurrent workers")
		seed         = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	)
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	client := &http.Client{Timeout: 10 * time.Second}

	// Pre-generate customer profiles so the worker pool can share the RNG
	// safely.
	type profile struct {
		req   registerRequest
		loans []createLoanRequest
	}
	profiles := make([]profile, *numCustomers)
	for i := range profiles {
		salary := int64(20000 + rng.Intn(18)*10000)
		profiles[i].req = registerRequest{
			FirstName:     firstNames[rng.Intn(len(firstNames))],
			LastName:      lastNames[rng.Intn(len(lastNames))],
			Age:           21 + rng.Intn(40),
			MonthlyIncome: salary,
			PhoneNumber:   9000000000 + int64(rng.Intn(999999999)),
		}
		for j := 0; j < *loansPer; j++ {
			profiles[i].loans = append(profiles[i].loans, createLoanRequest{
				LoanAmount:   float64(50000 + rng.Intn(20)*25000),
				InterestRate: 8 + rng.Float64()*12,
				Tenure:       6 * (1 + rng.Intn(8)),
			})
		}
	}

	var stats counters
	jobs := make(chan profile)
	var wg sync.WaitGroup

	start := time.Now()
	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				customerID, err := register(client, *baseURL, p.req)
				if err != nil {
					fmt.Fprintf(os.Stderr, "register failed: %v\n", err)
					atomic.AddInt64(&stats.errors, 1)
					continue
				}
				atomic.AddInt64(&stats.customers, 1)

				for _, loan := range p.loans {
					loan.CustomerID = customerID
					approved, err := createLoan(client, *baseURL, loan)
					switch {
					case err != nil:
						atomic.AddInt64(&stats.errors, 1)
					case approved:
						atomic.AddInt64(&stats.approved, 1)
					default:
						atomic.AddInt64(&stats.rejected, 1)
					}
				}
			}
		}()
	}

	for _, p := range profiles {
		jobs <- p
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(start)

	fmt.Println()
	fmt.Println("Seed complete")
	fmt.Printf("  Customers registered: %d\n", stats.customers)
	fmt.Printf("  Loans approved:       %d\n", stats.approved)
	fmt.Printf("  Loans rejected:       %d\n", stats.rejected)
	fmt.Printf("  Errors:               %d\n", stats.errors)
	fmt.Printf("  Elapsed:              %s\n", elapsed.Round(time.Millisecond))
}

func register(client *http.Client, baseURL string, req registerRequest) (int64, error) {
	body, _ := json.Marshal(req)
	resp, err := client.Post(baseURL+"/register", "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out registerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.CustomerID, nil
}

func createLoan(client *http.Client, baseURL string, req createLoanRequest) (bool, error) {
	body, _ := json.Marshal(req)
	resp, err := client.Post(baseURL+"/create-loan", "application/json", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out createLoanResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, err
	}
	return out.LoanApproved, nil
}
