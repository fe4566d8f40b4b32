package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/chat"
)

type loadtestConfig struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Chats       int
	Texts       []string
}

var loadTexts = []string{
	"I like cats.",
	"You like dogs!",
	"the weather is nice today",
	"we should grab lunch. I know a place",
	"my cat sat on the keyboard again",
	"dogs are better than cats, obviously",
	"is anyone going to the meetup tonight?",
	"the build is broken again",
	"nice weather for a walk",
	"I know what you mean",
}

type loadStats struct {
	total       atomic.Int64
	success     atomic.Int64
	errors      atomic.Int64
	replied     atomic.Int64
	latencies   []time.Duration
	latenciesMu sync.Mutex
	codes       map[int]*atomic.Int64
	codesMu     sync.Mutex
}

func newLoadStats() *loadStats {
	return &loadStats{
		latencies: make([]time.Duration, 0, 100000),
		codes:     make(map[int]*atomic.Int64),
	}
}

func (s *loadStats) record(d time.Duration, status int, replied bool, err error) {
	s.total.Add(1)
	if err != nil {
		s.errors.Add(1)
		return
	}
	if status >= 200 && status < 300 {
		s.success.Add(1)
	} else {
		s.errors.Add(1)
	}
	if replied {
		s.replied.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, d)
	s.latenciesMu.Unlock()

	s.codesMu.Lock()
	if _, ok := s.codes[status]; !ok {
		s.codes[status] = &atomic.Int64{}
	}
	s.codes[status].Add(1)
	s.codesMu.Unlock()
}

func newLoadtestCmd() *cobra.Command {
	cfg := loadtestConfig{Texts: loadTexts}
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Post chat messages to a running server and report latencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Concurrency < 1 || cfg.Chats < 1 {
				return fmt.Errorf("--concurrency and --chats must be positive")
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "=== phrasebot load test ===")
			fmt.Fprintf(out, "Target:      %s\n", cfg.BaseURL)
			fmt.Fprintf(out, "Concurrency: %d\n", cfg.Concurrency)
			fmt.Fprintf(out, "Duration:    %s\n", cfg.Duration)
			fmt.Fprintf(out, "Chats:       %d\n\n", cfg.Chats)

			stats := runLoad(cmd.Context(), cfg)
			return printLoadReport(out, stats, cfg.Duration)
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "url", "http://localhost:8080", "base URL of the phrasebot server")
	cmd.Flags().IntVar(&cfg.Concurrency, "concurrency", 10, "number of concurrent workers")
	cmd.Flags().DurationVar(&cfg.Duration, "duration", 30*time.Second, "test duration")
	cmd.Flags().IntVar(&cfg.Chats, "chats", 5, "number of distinct chat ids to spread messages over")
	return cmd
}

func runLoad(parent context.Context, cfg loadtestConfig) *loadStats {
	if parent == nil {
		parent = context.Background()
	}
	stats := newLoadStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	ctx, cancel := context.WithTimeout(parent, cfg.Duration)
	defer cancel()

	endpoint := cfg.BaseURL + "/api/v1/messages"
	var wg sync.WaitGroup
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := worker; ctx.Err() == nil; i++ {
				msg := chat.Message{
					ChatID: int64(i % cfg.Chats),
					Text:   cfg.Texts[i%len(cfg.Texts)],
				}
				start := time.Now()
				status, replied, err := postMessage(ctx, client, endpoint, msg)
				if ctx.Err() != nil {
					return
				}
				stats.record(time.Since(start), status, replied, err)
			}
		}(w)
	}
	wg.Wait()
	return stats
}

func postMessage(ctx context.Context, client *http.Client, endpoint string, msg chat.Message) (int, bool, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return 0, false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()

	var outcome chat.Outcome
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&outcome); err != nil {
			return resp.StatusCode, false, fmt.Errorf("decoding outcome: %w", err)
		}
	}
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, outcome.Replied, nil
}

func printLoadReport(out io.Writer, stats *loadStats, duration time.Duration) error {
	total := stats.total.Load()
	fmt.Fprintln(out, "=== Results ===")
	fmt.Fprintf(out, "Total Requests:  %d\n", total)
	fmt.Fprintf(out, "Successful:      %d\n", stats.success.Load())
	fmt.Fprintf(out, "Errors:          %d\n", stats.errors.Load())
	fmt.Fprintf(out, "Replied:         %d\n", stats.replied.Load())
	if total > 0 {
		fmt.Fprintf(out, "Error Rate:      %.2f%%\n", float64(stats.errors.Load())/float64(total)*100)
		fmt.Fprintf(out, "Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	stats.latenciesMu.Lock()
	latencies := append([]time.Duration(nil), stats.latencies...)
	stats.latenciesMu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Fprintln(out)
		fmt.Fprintln(out, "=== Latency ===")
		fmt.Fprintf(out, "Min:    %s\n", latencies[0])
		fmt.Fprintf(out, "Avg:    %s\n", avg)
		fmt.Fprintf(out, "P50:    %s\n", percentile(latencies, 50))
		fmt.Fprintf(out, "P90:    %s\n", percentile(latencies, 90))
		fmt.Fprintf(out, "P99:    %s\n", percentile(latencies, 99))
		fmt.Fprintf(out, "Max:    %s\n", latencies[len(latencies)-1])
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "=== Status Codes ===")
	stats.codesMu.Lock()
	codes := make([]int, 0, len(stats.codes))
	for code := range stats.codes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(out, "  %d: %d\n", code, stats.codes[code].Load())
	}
	stats.codesMu.Unlock()

	if total == 0 {
		return fmt.Errorf("no requests completed, is the server running?")
	}
	return nil
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
