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
	"sync"
	"syscall"
	"time"

	"github.com/ShaunJohnsonou/mpumulanga-project/internal/api"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/config"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/db"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/evidence"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/fsutil"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/monitoring"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/pipeline"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/region"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/source"
)

var (
	configPath     = flag.String("config", config.DefaultConfigPath, "Calibration JSON file (defaults are used if the default file is missing)")
	regionPath     = flag.String("region", "region_points.json", "Region polygon JSON file")
	framesDir      = flag.String("frames", "", "Directory of decoded frames to replay")
	detectionsPath = flag.String("detections", "", "JSON-lines detection log")
	listen         = flag.String("listen", ":8080", "Listen address (empty disables the HTTP server)")
	dbPath         = flag.String("db", "", "Site database; with -site, overrides calibration and region")
	siteName       = flag.String("site", "", "Site to load from -db")
	loop           = flag.Bool("loop", false, "Restart the footage when it ends")
	realtime       = flag.Bool("realtime", true, "Pace frames at the configured fps")
	evidenceDir    = flag.String("evidence", "", "Evidence directory (overrides evidence_dir)")
	maxFrames      = flag.Int("max-frames", 0, "Stop after this many frames (0 means no limit)")
	keepAlive      = flag.Duration("keepalive", 5*time.Second, "Resend the last frame on /video_feed after this idle period")
	debug          = flag.Bool("debug", false, "Log per-detection diagnostics")
)

// inputs is everything main needs before the pipeline can be built.
type inputs struct {
	cfg    *config.Config
	region region.Polygon
	site   string
}

// loadInputs resolves calibration and region from files and, when a site is
// named, from the site database.
func loadInputs(cfgPath, regionPath, dbPath, site string) (inputs, error) {
	in := inputs{cfg: config.Defaults(), site: site}

	if cfgPath != "" {
		cfg, err := config.LoadConfig(cfgPath)
		switch {
		case err == nil:
			in.cfg = cfg
		case cfgPath == config.DefaultConfigPath && errors.Is(err, os.ErrNotExist):
			log.Printf("config %s not found, using built-in defaults", cfgPath)
		default:
			return in, err
		}
	}

	in.region = region.DefaultPolygon()
	if regionPath != "" {
		poly, err := region.LoadPolygon(regionPath)
		switch {
		case err == nil:
			in.region = poly
		case errors.Is(err, os.ErrNotExist):
			log.Printf("region %s not found, using the default rectangle", regionPath)
		default:
			return in, err
		}
	}

	if site == "" {
		return in, nil
	}
	if dbPath == "" {
		return in, fmt.Errorf("-site %q requires -db", site)
	}
	store, err := db.NewDB(dbPath)
	if err != nil {
		return in, fmt.Errorf("failed to open site database: %w", err)
	}
	defer store.Close()
	s, err := store.GetSite(site)
	if err != nil {
		return in, err
	}
	in.cfg = s.Apply(in.cfg)
	in.region = s.Region
	log.Printf("loaded site %q (%s)", s.Name, s.Location)
	return in, nil
}

func main() {
	flag.Parse()
	monitoring.SetDebug(*debug)

	if *framesDir == "" && *detectionsPath == "" {
		log.Fatal("at least one of -frames and -detections is required")
	}

	in, err := loadInputs(*configPath, *regionPath, *dbPath, *siteName)
	if err != nil {
		log.Fatalf("failed to load inputs: %v", err)
	}
	cfg := in.cfg

	dir := cfg.GetEvidenceDir()
	if *evidenceDir != "" {
		dir = *evidenceDir
	}
	store := evidence.NewDiskStore(fsutil.OSFileSystem{}, dir)
	metrics := monitoring.NewMetrics()
	latest := pipeline.NewLatest()

	orch, err := pipeline.NewFromConfig(cfg, in.region, store, latest, metrics)
	if err != nil {
		log.Fatalf("failed to build pipeline: %v", err)
	}

	src, err := source.NewReplay(source.ReplayOptions{
		FramesDir:      *framesDir,
		DetectionsPath: *detectionsPath,
		Width:          cfg.GetProcessingWidth(),
		Height:         cfg.GetProcessingHeight(),
		Loop:           *loop,
	})
	if err != nil {
		log.Fatalf("failed to open footage: %v", err)
	}
	defer src.Close()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// pipeline routine
	wg.Add(1)
	go func() {
		defer wg.Done()
		st, err := pipeline.Run(ctx, src, orch, pipeline.RunOptions{Realtime: *realtime, MaxFrames: *maxFrames})
		if err != nil {
			log.Printf("pipeline stopped: %v", err)
		}
		log.Printf("processed %d frames, %d detections, %d evidence captures in %s",
			st.Frames, st.Detections, st.Captures, st.Elapsed.Round(time.Millisecond))
		if *listen == "" {
			stop()
			return
		}
		if ctx.Err() == nil {
			log.Printf("footage finished, serving the last frame until interrupted")
		}
	}()

	if *listen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()

			mux := api.NewServer(api.Options{
				Latest:    latest,
				Config:    cfg,
				Region:    in.region,
				Evidence:  store,
				Metrics:   metrics,
				Site:      in.site,
				KeepAlive: *keepAlive,
			}).ServeMux()

			server := &http.Server{
				Addr:    *listen,
				Handler: api.LoggingMiddleware(mux),
			}

			go func() {
				log.Printf("serving on %s", *listen)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("failed to start server: %v", err)
				}
			}()

			<-ctx.Done()
			log.Println("shutting down HTTP server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
			defer cancel()

			// /video_feed streams never finish on their own
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("HTTP server shutdown error: %v", err)
				if err := server.Close(); err != nil {
					log.Printf("HTTP server force close error: %v", err)
				}
			}
			log.Printf("HTTP server routine stopped")
		}()
	}

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
