// Command bufferpoolctl drives a Pool from the command line: it runs a
// page-access trace against a page file under a chosen replacement
// strategy, prints the final statistics, and can optionally keep serving
// them over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/coredb/bufferpool"
	"github.com/coredb/bufferpool/httpstats"
)

func main() {
	file := flag.String("file", "", "path to the page file (created if missing)")
	numFrames := flag.Int("frames", 4, "number of buffer pool frames")
	strategyName := flag.String("strategy", "LRU", "replacement strategy: FIFO, LRU, CLOCK, LFU, LRU_K")
	k := flag.Int("k", 2, "K for the LRU_K strategy")
	trace := flag.String("trace", "", "comma-separated page numbers to pin then immediately unpin, in order")
	addr := flag.String("http", "", "if set, serve stats on this address (e.g. :8090) after the trace runs")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "bufferpoolctl: -file is required")
		os.Exit(1)
	}

	strategy, err := parseStrategy(*strategyName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bufferpoolctl: %v\n", err)
		os.Exit(1)
	}

	if _, err := os.Stat(*file); os.IsNotExist(err) {
		f, err := os.Create(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bufferpoolctl: create %s: %v\n", *file, err)
			os.Exit(1)
		}
		f.Close()
	}

	pool, err := bufferpool.Init(bufferpool.Config{
		PageFile:       *file,
		NumFrames:      *numFrames,
		Strategy:       strategy,
		StrategyConfig: bufferpool.StrategyConfig{K: *k},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "bufferpoolctl: init: %v\n", err)
		os.Exit(1)
	}

	pages, err := parseTrace(*trace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bufferpoolctl: %v\n", err)
		os.Exit(1)
	}
	for _, pageNo := range pages {
		if err := runOne(pool, pageNo); err != nil {
			fmt.Fprintf(os.Stderr, "bufferpoolctl: pin page %d: %v\n", pageNo, err)
			os.Exit(1)
		}
	}

	printStats(pool)

	if *addr != "" {
		serveStats(pool, *addr)
		return
	}

	if err := pool.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "bufferpoolctl: shutdown: %v\n", err)
		os.Exit(1)
	}
}

func runOne(pool *bufferpool.Pool, pageNo bufferpool.PageNo) error {
	h, err := pool.PinPage(pageNo)
	if err != nil {
		return err
	}
	return pool.UnpinPage(h)
}

func parseStrategy(name string) (bufferpool.Strategy, error) {
	switch strings.ToUpper(name) {
	case "FIFO":
		return bufferpool.FIFO, nil
	case "LRU":
		return bufferpool.LRU, nil
	case "CLOCK":
		return bufferpool.CLOCK, nil
	case "LFU":
		return bufferpool.LFU, nil
	case "LRU_K", "LRUK":
		return bufferpool.LRUK, nil
	default:
		return 0, fmt.Errorf("unrecognized strategy %q", name)
	}
}

func parseTrace(trace string) ([]bufferpool.PageNo, error) {
	trace = strings.TrimSpace(trace)
	if trace == "" {
		return nil, nil
	}
	parts := strings.Split(trace, ",")
	pages := make([]bufferpool.PageNo, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid page number %q in -trace: %w", part, err)
		}
		pages = append(pages, bufferpool.PageNo(n))
	}
	return pages, nil
}

func printStats(pool *bufferpool.Pool) {
	fmt.Printf("strategy=%s frames=%d read_io=%d write_io=%d\n",
		pool.Strategy(), pool.NumFrames(), pool.NumReadIO(), pool.NumWriteIO())

	pages := pool.FrameContents()
	dirty := pool.DirtyFlags()
	fixCounts := pool.FixCounts()
	for slot := range pages {
		fmt.Printf("  slot=%d page=%d dirty=%t fix_count=%d\n", slot, pages[slot], dirty[slot], fixCounts[slot])
	}
}

func serveStats(pool *bufferpool.Pool, addr string) {
	srv := httpstats.New(pool, addr)
	log.Printf("bufferpoolctl: serving stats on %s", addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "bufferpoolctl: http server: %v\n", err)
		os.Exit(1)
	}
}
