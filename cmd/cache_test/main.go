package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// CacheTestResult is one timed API call.
type CacheTestResult struct {
	Step         string        `json:"step"`
	Endpoint     string        `json:"endpoint"`
	StatusCode   int           `json:"status_code"`
	ResponseTime time.Duration `json:"response_time"`
	DataSize     int           `json:"data_size"`
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
}

// CacheTestSuite walks the session API twice for the same selection. The
// second pass restores sessions from cached probe results and should be
// noticeably faster.
type CacheTestSuite struct {
	BaseURL string
	Client  *http.Client
	Results []CacheTestResult
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

type sessionView struct {
	SessionID string `json:"session_id"`
	Filters   struct {
		Options struct {
			Countries []string `json:"countries"`
			Packages  []string `json:"packages"`
		} `json:"options"`
		CurrentFileID string `json:"current_file_id"`
	} `json:"filters"`
}

func main() {
	baseURL := flag.String("base-url", "http://localhost:8080/api/v1", "API base URL")
	out := flag.String("out", "", "write detailed results as JSON to this file")
	flag.Parse()

	suite := &CacheTestSuite{
		BaseURL: *baseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}

	fmt.Println("🧪 Starting probe cache testing...")
	fmt.Println("===================================")

	for _, pass := range []string{"cold", "warm"} {
		fmt.Printf("\n🔍 Pass: %s\n", pass)
		if err := suite.RunPass(pass); err != nil {
			log.Fatalf("❌ %s pass failed: %v", pass, err)
		}
	}

	report := suite.Report()
	fmt.Println("\n📊 CACHE PERFORMANCE REPORT")
	fmt.Println("==========================")
	fmt.Printf("Calls: %d, failed: %d\n", report.Calls, report.Failed)
	fmt.Printf("Cold pass: %v\n", report.Cold)
	fmt.Printf("Warm pass: %v\n", report.Warm)
	if report.Cold > 0 {
		fmt.Printf("Improvement: %.1f%%\n", float64(report.Cold-report.Warm)/float64(report.Cold)*100)
	}

	if *out != "" {
		data, _ := json.MarshalIndent(map[string]interface{}{
			"summary": report,
			"results": suite.Results,
		}, "", "  ")
		if err := os.WriteFile(*out, data, 0o644); err != nil {
			log.Fatalf("❌ write results: %v", err)
		}
		fmt.Printf("\n💾 Detailed results saved to %s\n", *out)
	}

	fmt.Println("\n🎉 Probe cache testing complete!")
}

// RunPass creates a session, picks the first country and package, reads
// the session back and deletes it.
func (s *CacheTestSuite) RunPass(pass string) error {
	var view sessionView
	if err := s.call(pass, "create", http.MethodPost, "/sessions", nil, &view); err != nil {
		return err
	}
	if len(view.Filters.Options.Countries) == 0 {
		return fmt.Errorf("catalog offers no countries")
	}
	base := "/sessions/" + view.SessionID

	if err := s.call(pass, "country", http.MethodPut, base+"/country",
		map[string]string{"country": view.Filters.Options.Countries[0]}, &view); err != nil {
		return err
	}
	if len(view.Filters.Options.Packages) > 0 {
		if err := s.call(pass, "package", http.MethodPut, base+"/package",
			map[string]string{"package": view.Filters.Options.Packages[0]}, &view); err != nil {
			return err
		}
	}
	if err := s.call(pass, "get", http.MethodGet, base, nil, &view); err != nil {
		return err
	}
	fmt.Printf("   📄 file id: %q\n", view.Filters.CurrentFileID)

	return s.call(pass, "delete", http.MethodDelete, base, nil, nil)
}

func (s *CacheTestSuite) call(pass, step, method, endpoint string, body interface{}, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.BaseURL+endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := s.Client.Do(req)
	result := CacheTestResult{Step: pass + ":" + step, Endpoint: endpoint}
	if err != nil {
		result.ResponseTime = time.Since(start)
		result.Error = err.Error()
		s.Results = append(s.Results, result)
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	result.ResponseTime = time.Since(start)
	result.StatusCode = resp.StatusCode
	result.DataSize = len(raw)
	result.Success = err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300
	if !result.Success {
		result.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	s.Results = append(s.Results, result)

	statusIcon := "✅"
	if !result.Success {
		statusIcon = "❌"
	}
	fmt.Printf("   %s %-8s %v (%d bytes)\n", statusIcon, step, result.ResponseTime, result.DataSize)

	if !result.Success {
		return fmt.Errorf("%s %s: %s", method, endpoint, result.Error)
	}
	if dest == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return json.Unmarshal(env.Data, dest)
}

// Summary totals the timings per pass.
type Summary struct {
	Calls  int           `json:"calls"`
	Failed int           `json:"failed"`
	Cold   time.Duration `json:"cold"`
	Warm   time.Duration `json:"warm"`
}

func (s *CacheTestSuite) Report() Summary {
	var sum Summary
	for _, r := range s.Results {
		sum.Calls++
		if !r.Success {
			sum.Failed++
		}
		switch {
		case strings.HasPrefix(r.Step, "cold:"):
			sum.Cold += r.ResponseTime
		case strings.HasPrefix(r.Step, "warm:"):
			sum.Warm += r.ResponseTime
		}
	}
	return sum
}
