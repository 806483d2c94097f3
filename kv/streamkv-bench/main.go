package main

import (
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/streamkv/streamkv/kv/config"
	"github.com/streamkv/streamkv/kv/engine"
)

var (
	configPath  = flag.String("config", "", "config file path")
	concurrency = flag.Int("concurrency", 0, "worker pool size (0 = available parallelism)")
	statusAddr  = flag.String("status-addr", "127.0.0.1:9180", "metrics and pprof listen address")
	producers   = flag.Int("producers", 4, "number of producer goroutines")
	keySpace    = flag.Int("keys", 64, "size of the key space")
	runFor      = flag.Duration("duration", 10*time.Second, "how long to generate load")
)

func main() {
	flag.Parse()
	conf := loadConfig()

	lg, props, err := log.InitLogger(&conf.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "initialize logger error:", err)
		os.Exit(1)
	}
	log.ReplaceGlobals(lg, props)
	defer log.Sync()

	eng := engine.New(conf)
	eng.Start()

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(*statusAddr, nil); err != nil {
			log.Warn("status server exited", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	stopCh := make(chan struct{})
	go func() {
		select {
		case sig := <-sigCh:
			log.Info("received signal, draining", zap.String("signal", sig.String()))
		case <-time.After(*runFor):
		}
		close(stopCh)
	}()

	var (
		wg        sync.WaitGroup
		ops       = atomic.NewInt64(0)
		conflicts = atomic.NewInt64(0)
		misses    = atomic.NewInt64(0)
		failures  = atomic.NewInt64(0)
	)
	start := time.Now()
	for i := 0; i < *producers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			runProducer(eng, seed, stopCh, ops, conflicts, misses, failures)
		}(int64(i))
	}
	wg.Wait()

	eng.Shutdown(true)
	elapsed := time.Since(start)
	log.Info("bench finished",
		zap.Int64("ops", ops.Load()),
		zap.Int64("conflicts", conflicts.Load()),
		zap.Int64("not-found", misses.Load()),
		zap.Int64("internal-errors", failures.Load()),
		zap.Duration("elapsed", elapsed),
		zap.Float64("ops-per-sec", float64(ops.Load())/elapsed.Seconds()))
}

// runProducer issues a mixed read/write/update/delete/scan workload against
// eng until stopCh closes, awaiting each result in turn.
func runProducer(eng *engine.Engine, seed int64, stopCh <-chan struct{}, ops, conflicts, misses, failures *atomic.Int64) {
	rnd := rand.New(rand.NewSource(seed))
	for {
		select {
		case <-stopCh:
			return
		default:
		}

		key := fmt.Sprintf("key-%04d", rnd.Intn(*keySpace))
		var op engine.Operation
		switch p := rnd.Intn(100); {
		case p < 40:
			op = engine.Write(key, []byte(fmt.Sprintf("value-%d", rnd.Int63())))
		case p < 75:
			op = engine.Read(key)
		case p < 90:
			// Read-then-update with the observed version, the contended path.
			h, err := eng.Submit(engine.Read(key))
			if err != nil {
				return
			}
			res := h.Wait()
			ops.Inc()
			if res.Err != nil {
				misses.Inc()
				continue
			}
			op = engine.Update(key, []byte(fmt.Sprintf("value-%d", rnd.Int63())), res.Version)
		case p < 95:
			op = engine.Delete(key)
		default:
			op = engine.Scan("", 16)
		}

		h, err := eng.Submit(op)
		if err != nil {
			// Engine closed under us, nothing more to produce.
			return
		}
		res := h.Wait()
		ops.Inc()
		switch {
		case res.Err == nil:
		case engine.IsConflict(res.Err):
			conflicts.Inc()
		case engine.IsNotFound(res.Err):
			misses.Inc()
		default:
			failures.Inc()
		}
	}
}

func loadConfig() *config.Config {
	conf := config.NewDefaultConfig()
	if *configPath != "" {
		if _, err := toml.DecodeFile(*configPath, conf); err != nil {
			fmt.Fprintln(os.Stderr, "load config error:", err)
			os.Exit(1)
		}
	}
	if *concurrency > 0 {
		conf.Concurrency = *concurrency
	}
	if err := conf.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid config:", err)
		os.Exit(1)
	}
	return conf
}
