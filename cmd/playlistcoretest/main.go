// Command playlistcoretest exercises a Playlist end to end against real
// WAV/FLAC files on disk: it opens each path given on the command line as a
// playlist item, attaches two Sinks declared in different target formats
// so the decode worker's fan-out, grouping and filter-graph rebuild logic
// all get driven by real decode traffic, and serves /metrics and /status
// over HTTP while playback runs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aviarysound/playlistcore/internal/audiocore"
	"github.com/aviarysound/playlistcore/internal/config"
	"github.com/aviarysound/playlistcore/internal/filesource"
	"github.com/aviarysound/playlistcore/internal/filterengine"
	"github.com/aviarysound/playlistcore/internal/logging"
)

func main() {
	root := rootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "playlistcoretest [files...]",
		Short: "Play one or more audio files through a Playlist and report metrics over HTTP",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args, listenAddr)
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", ":8089", "address to serve /metrics and /status on")
	return cmd
}

func run(paths []string, listenAddr string) error {
	config.Setting()
	logging.Init()
	logger := logging.ForService("playlistcoretest")

	registry := prometheus.NewRegistry()
	metrics := audiocore.NewMetricsCollector(registry)

	bufferPool := audiocore.NewBufferPool(audiocore.BufferPoolConfig{
		MaxBuffersPerSize: 16,
		EnableMetrics:     true,
	})

	playlist, err := audiocore.PlaylistCreate(filterengine.NewEngine(), bufferPool)
	if err != nil {
		return fmt.Errorf("creating playlist: %w", err)
	}
	playlist.SetMetricsCollector(metrics)
	defer playlist.Destroy()

	for _, path := range paths {
		file, err := filesource.Open(path)
		if err != nil {
			logger.Error("failed to open source, skipping", "path", path, "error", err)
			continue
		}
		playlist.Insert(file, 1.0, nil)
	}

	stereoSink := audiocore.NewSink(audiocore.AudioFormat{
		SampleRate:    48000,
		ChannelLayout: audiocore.ChannelLayoutStereo,
		SampleFormat:  audiocore.SampleFormatS16,
	}, 4096, 0, false)
	monoSink := audiocore.NewSink(audiocore.AudioFormat{
		SampleRate:    44100,
		ChannelLayout: audiocore.ChannelLayoutMono,
		SampleFormat:  audiocore.SampleFormatS16,
	}, 4096, 0, false)

	if err := playlist.AttachSink(stereoSink); err != nil {
		return fmt.Errorf("attaching stereo sink: %w", err)
	}
	if err := playlist.AttachSink(monoSink); err != nil {
		return fmt.Errorf("attaching mono sink: %w", err)
	}

	drainSink(stereoSink, logger.With("sink", "stereo"))
	drainSink(monoSink, logger.With("sink", "mono"))

	e := echo.New()
	e.HideBanner = true
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	e.GET("/status", func(c echo.Context) error {
		return c.JSON(http.StatusOK, playlist.Metrics())
	})

	go func() {
		if err := e.Start(listenAddr); err != nil && err != http.ErrServerClosed {
			logger.Error("http server stopped", "error", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return e.Shutdown(shutdownCtx)
}

// drainSink runs a background consumer over sink's queue so the decode
// worker never stalls on backpressure; buffers are released immediately
// since this command only measures throughput, not audio output.
func drainSink(sink *audiocore.Sink, logger *slog.Logger) {
	go func() {
		for {
			status, buf := sink.BufferGet(true)
			switch status {
			case audiocore.StatusEnd:
				logger.Info("end of stream")
				return
			case audiocore.StatusYes:
				buf.Release()
			default:
				return
			}
		}
	}()
}
