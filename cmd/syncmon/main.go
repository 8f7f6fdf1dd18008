package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jeongseonghan/ofdm-sync/internal/audio"
	"github.com/jeongseonghan/ofdm-sync/internal/server"
	"github.com/jeongseonghan/ofdm-sync/internal/timing"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	listen := flag.String("listen", "", "override listen address")
	listDevices := flag.Bool("list-devices", false, "list audio devices and exit")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	if cfg.Source == "audio" || *listDevices {
		if err := audio.Init(); err != nil {
			log.Fatalf("Failed to initialize PortAudio: %v", err)
		}
		defer audio.Terminate()
	}
	if *listDevices {
		if err := audio.PrintDevices(); err != nil {
			log.Fatalf("Failed to list devices: %v", err)
		}
		return
	}

	sy, err := timing.New(timing.Config{
		K:         cfg.Sync.K,
		CP:        cfg.Sync.CP,
		L:         cfg.Sync.L,
		N:         cfg.Sync.N,
		Threshold: cfg.Sync.Threshold,
	})
	if err != nil {
		log.Fatalf("Failed to create synchronizer: %v", err)
	}

	src, err := openSource(cfg)
	if err != nil {
		log.Fatalf("Failed to open %s source: %v", cfg.Source, err)
	}
	defer src.Close()

	scfg := sy.Config()
	log.Printf("K=%d CP=%d L=%d N=%d threshold=%v delay=%d period=%d",
		scfg.K, scfg.CP, scfg.L, scfg.N, scfg.Threshold, sy.Delay(), scfg.FramePeriod())

	hub := server.NewWSHub()

	var mu sync.Mutex
	status := server.Status{Source: cfg.Source}
	handlers := server.NewHandlers(hub, scfg, func() server.Status {
		mu.Lock()
		defer mu.Unlock()
		return status
	})
	srv := server.NewServer(cfg.Listen, handlers)

	go feedLoop(sy, src, hub, cfg.TraceEvery, &mu, &status)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		src.Close()
		if cfg.Source == "audio" {
			audio.Terminate()
		}
		os.Exit(0)
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func openSource(cfg *Config) (source, error) {
	switch cfg.Source {
	case "audio":
		return newAudioSource(cfg.Audio)
	default:
		return newSyntheticSource(cfg.Sync.K, cfg.Sync.CP, cfg.Sync.N, cfg.Synthetic)
	}
}

// feedLoop pushes source chunks through the synchronizer and fans detections
// out to the log and WebSocket clients.
func feedLoop(sy *timing.Synchronizer, src source, hub *server.WSHub, traceEvery int, mu *sync.Mutex, status *server.Status) {
	var lastTrace int64

	for {
		chunk, err := src.Next()
		if err != nil {
			log.Printf("Source error: %v", err)
			hub.BroadcastStatus("error", err.Error())
			return
		}

		frames := sy.Feed(chunk)
		for _, f := range frames {
			log.Printf("frame: start=%d preamble=[%d,%d) payloads=%d",
				f.Start, f.Preamble.Start, f.Preamble.End, len(f.Payload))
			hub.BroadcastFrame(f)
		}

		mu.Lock()
		status.Samples = sy.Count()
		status.Frames += int64(len(frames))
		if len(frames) > 0 {
			status.LastBoundary = frames[len(frames)-1].Boundary
		}
		mu.Unlock()

		if traceEvery > 0 && sy.Count()-lastTrace >= int64(traceEvery) {
			lastTrace = sy.Count()
			hub.BroadcastTrace(sy.Count()-1, sy.LastMetric(), sy.LastFiltered())
		}
	}
}
