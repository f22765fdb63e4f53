package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	colorable "github.com/mattn/go-colorable"

	"github.com/freenet-go/nodelog/pkg/config"
	"github.com/freenet-go/nodelog/pkg/metrics"
	"github.com/freenet-go/nodelog/pkg/rotate"
	"github.com/freenet-go/nodelog/util"
)

func main() {
	out := colorable.NewColorableStdout()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	if err := config.Validate(cfg.Interval); err != nil {
		log.Fatalf("❌ Invalid rotation interval %q: %v", cfg.Interval, err)
	}

	fmt.Fprintf(out, "%s Starting nodelogd, rotating every %s into %s\n",
		color.GreenString("🚀"), cfg.Interval, cfg.LogDir)
	fmt.Fprintf(out, "%s Mirror: %v | %s Exporter: %v (port %d)\n",
		color.CyanString("🧠"), cfg.EnableMirror, color.YellowString("📊"), cfg.EnableExporter, cfg.ExporterPort)

	hook, err := rotate.NewHook(rotate.HookConfig{
		LogDir:          cfg.LogDir,
		BaseName:        cfg.BaseName,
		Interval:        cfg.Interval,
		BuildNumber:     cfg.BuildNumber,
		MaxListCount:    cfg.MaxListCount,
		MaxListBytes:    cfg.MaxListBytes,
		MaxArchiveBytes: cfg.MaxArchiveBytes,
		EnableMirror:    cfg.EnableMirror,
		FlushDelay:      cfg.FlushDelay(),
	})
	if err != nil {
		log.Fatalf("❌ Failed to construct log hook: %v", err)
	}
	hook.Start()

	if cfg.EnableExporter {
		metrics.StartMetricsServer(cfg.ExporterPort)
	}

	var watcher *config.TunablesWatcher
	if cfg.WatchConfig {
		if path := configPathFromEnv(); path != "" {
			watcher, err = config.WatchTunables(path, func(t config.Tunables) {
				if t.MaxListBytes > 0 {
					hook.SetMaxListBytes(t.MaxListBytes)
				}
				if t.MaxArchiveBytes > 0 {
					hook.SetMaxOldLogsSize(t.MaxArchiveBytes)
				}
				if t.FlushDelayMS > 0 {
					hook.SetMaxBacklogNotBusy(time.Duration(t.FlushDelayMS) * time.Millisecond)
				}
				util.Info("tunables reloaded from %s", path)
			})
			if err != nil {
				fmt.Fprintf(out, "%s Could not watch config for hot-reload: %v\n", color.YellowString("⚠️"), err)
			}
		} else {
			fmt.Fprintf(out, "%s watch-config is set but no -config/CONFIG_PATH was given, skipping\n", color.YellowString("⚠️"))
		}
	}

	stop := make(chan struct{})
	go demoProducer(hook, stop)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	close(stop)

	fmt.Fprintf(out, "%s Shutting down, draining buffered log records...\n", color.YellowString("⚠️"))
	if watcher != nil {
		watcher.Stop()
	}
	if !hook.Close() {
		fmt.Fprintf(out, "%s Drain deadline elapsed before the writer finished\n", color.RedString("❌"))
		os.Exit(1)
	}
}

func configPathFromEnv() string {
	if f := flag.Lookup("config"); f != nil && f.Value.String() != "" {
		return f.Value.String()
	}
	return os.Getenv("CONFIG_PATH")
}

// demoProducer feeds synthetic log lines into hook until stop is closed,
// standing in for the P2P node's own call sites.
func demoProducer(hook *rotate.Hook, stop <-chan struct{}) {
	classes := []string{"freenet.node.NodeDispatcher", "freenet.client.FetchContext", "freenet.io.comm.Peer"}
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			class := classes[rand.Intn(len(classes))]
			line := fmt.Sprintf("%s %s [demo] heartbeat tick\n", time.Now().UTC().Format(time.RFC3339Nano), class)
			hook.Enqueue([]byte(line))
		}
	}
}
