// Command radarnode bridges a DRVEGRD-UATv4 radar's CAN and UDP
// transports into a pub/sub middleware: it owns the CAN socket, the UDP
// cube socket, and the outbound sink, wires them through the
// orchestrator, and optionally runs the track-history recorder and the
// JSON introspection endpoint as sidecars.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/EdgeFirstAI/radarpub/internal/radarnode/can"
	radarconfig "github.com/EdgeFirstAI/radarpub/internal/radarnode/config"
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/introspect"
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/pipeline"
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/recorder"
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/rlog"
)

func main() {
	configPath := flag.String("config", "radarnode.json", "path to the node's JSON configuration file")
	dev := flag.Bool("dev", false, "enable debug-level logging")
	listen := flag.String("listen", "", "override the introspection listen address from the config file")
	flag.Parse()

	rlog.SetDebug(*dev)

	cfg, err := radarconfig.LoadNodeConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load %s: %v", *configPath, err)
	}

	var canSource can.Source
	if iface := cfg.GetCANInterface(); iface != "" {
		src, err := can.OpenSocketCAN(iface)
		if err != nil {
			log.Fatalf("failed to open CAN interface %s: %v", iface, err)
		}
		canSource = src
	}

	var udpConn *net.UDPConn
	if ip := cfg.GetEthIP(); ip != "" {
		addr := &net.UDPAddr{IP: net.ParseIP(ip), Port: cfg.GetEthPort()}
		conn, err := net.ListenUDP("udp", addr)
		if err != nil {
			log.Fatalf("failed to bind UDP cube socket %s: %v", addr, err)
		}
		udpConn = conn
	}

	sink, err := pipeline.NewUDPSink(cfg.GetSinkAddr())
	if err != nil {
		log.Fatalf("failed to open sink: %v", err)
	}
	defer sink.Close()

	var rec *recorder.Recorder
	if cfg.GetRecorderEnabled() {
		rec, err = recorder.Open(cfg.GetRecorderDBPath(), recorder.DefaultMigrationsDir)
		if err != nil {
			log.Fatalf("failed to open track recorder: %v", err)
		}
		defer rec.Close()
	}

	orch := pipeline.New(cfg.PipelineConfig(), canSource, udpConn, sink, recorderOrNil(rec))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := orch.Start(ctx); err != nil {
		log.Fatalf("failed to start pipeline: %v", err)
	}

	introspectAddr := cfg.GetIntrospectAddr()
	if *listen != "" {
		introspectAddr = *listen
	}
	info := map[string]any{
		"frequency_ghz":      cfg.GetFrequencyGHz(),
		"max_range_m":        cfg.GetMaxRangeM(),
		"range_resolution_m": cfg.GetRangeResolutionM(),
	}
	httpSrv := &http.Server{Addr: introspectAddr, Handler: introspect.New(orch, orch, info).ServeMux()}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			rlog.Logf("radarnode: introspection server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	rlog.Logf("radarnode: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)

	orch.Stop()
}

// recorderOrNil adapts a possibly-nil *recorder.Recorder to the
// orchestrator's TrackRecorder interface: a nil *Recorder passed
// directly would be a non-nil interface wrapping a nil pointer, which
// the orchestrator's "recorder != nil" check would wrongly treat as
// present.
func recorderOrNil(r *recorder.Recorder) pipeline.TrackRecorder {
	if r == nil {
		return nil
	}
	return r
}
