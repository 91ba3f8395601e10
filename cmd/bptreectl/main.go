// bptreectl is a demo load generator for the in-memory B+ tree core.
// It drives a random-insert or range-scan workload against a single
// tree instance and exposes Prometheus metrics while it runs.
package main

import (
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/nainya/bptree/internal/logger"
	"github.com/nainya/bptree/internal/metrics"
	"github.com/nainya/bptree/pkg/btree"
)

var (
	maxNodeSize = pflag.Int("max-node-size", 8, "maximum cell count per node before a split")
	workload    = pflag.String("workload", "random-insert", "workload to run: random-insert, range-scan")
	numKeys     = pflag.Int("num-keys", 10000, "number of keys to generate for the workload")
	metricsAddr = pflag.String("metrics-addr", ":9090", "address to serve /metrics on")
	logLevel    = pflag.String("log-level", "info", "log level: debug, info, warn, error")
)

func main() {
	pflag.Parse()

	log := logger.NewLogger(logger.Config{Level: *logLevel, Pretty: true})
	m := metrics.NewMetrics()

	log.Info("bptreectl starting").
		Int("max_node_size", *maxNodeSize).
		Str("workload", *workload).
		Int("num_keys", *numKeys).
		Msg("")

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", err).Msg("")
		}
	}()

	tree, err := btree.NewBTree[string, string](
		*maxNodeSize,
		func(a, b string) int { return stringCmp(a, b) },
		btree.WithLogger[string, string](log),
		btree.WithMetrics[string, string](m),
	)
	if err != nil {
		log.Error("failed to construct tree", err).Msg("")
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		runWorkload(tree, log)
		close(done)
	}()

	select {
	case <-sigChan:
		log.Info("interrupted, shutting down").Msg("")
	case <-done:
		log.Info("workload complete").
			Uint64("final_size", tree.Size()).
			Msg("")
	}

	_ = srv.Close()
}

func runWorkload(tree *btree.BTree[string, string], log *logger.Logger) {
	switch *workload {
	case "range-scan":
		runRangeScan(tree, log)
	default:
		runRandomInsert(tree, log)
	}
}

func runRandomInsert(tree *btree.BTree[string, string], log *logger.Logger) {
	start := time.Now()
	for i := 0; i < *numKeys; i++ {
		key := uuid.New().String()
		tree.Insert(key, "v"+strconv.Itoa(i))
	}
	log.Info("random-insert workload finished").
		Int("keys_inserted", *numKeys).
		Str("elapsed", time.Since(start).String()).
		Msg("")
}

func runRangeScan(tree *btree.BTree[string, string], log *logger.Logger) {
	seeds := make([]string, 0, *numKeys)
	for i := 0; i < *numKeys; i++ {
		key := fmt.Sprintf("k%08d", i)
		tree.Insert(key, "v"+strconv.Itoa(i))
		seeds = append(seeds, key)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < 100; i++ {
		a := seeds[rng.Intn(len(seeds))]
		b := seeds[rng.Intn(len(seeds))]
		if a > b {
			a, b = b, a
		}
		results := tree.RangeKeys(0, 50, &a, &b)
		log.Debug("range scan").
			Str("start", a).
			Str("end", b).
			Int("results", len(results)).
			Msg("")
	}
}

func stringCmp(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
