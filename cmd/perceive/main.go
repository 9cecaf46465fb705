// perceive runs a YOLOv8 model over a camera, a video or a directory of
// recorded frames and shows the tracked detections.
package main

import (
	"fmt"
	"image"
	"os"
	"time"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/nvr-ai/go-perception/config"
	"github.com/nvr-ai/go-perception/inference"
	"github.com/nvr-ai/go-perception/pipeline"
	"github.com/nvr-ai/go-perception/profiler"
	"gocv.io/x/gocv"
)

const (
	keyEsc = 27
	keyS   = 's'
)

// Profiler names recorded by the frame loop, next to the pipeline stages.
const (
	opFrame      = "frame"
	opInference  = "inference"
	metricFPS    = "fps"
	metricTracks = "tracks"
)

func main() {
	parser := argparse.NewParser("perceive", "Detect and track objects in a video stream")
	configPath := parser.String("c", "config", &argparse.Options{Help: "YAML config file"})
	modelPath := parser.String("m", "model", &argparse.Options{Help: "ONNX model, overrides the config"})
	backend := parser.String("b", "backend", &argparse.Options{Help: "Execution backend: cpu, coreml or openvino"})
	libPath := parser.String("l", "lib", &argparse.Options{Help: "Path to the onnxruntime shared library"})
	input := parser.String("i", "input", &argparse.Options{Help: "Camera index, video file or frame directory", Default: "0"})
	budgetMs := parser.Int("", "budget", &argparse.Options{Help: "Frame budget in milliseconds, 0 to disable", Default: 0})
	headless := parser.Flag("", "headless", &argparse.Options{Help: "Do not open a window"})
	reportEvery := parser.Int("", "report", &argparse.Options{Help: "Seconds between profiler reports", Default: 10})
	screenshot := parser.String("s", "screenshot", &argparse.Options{Help: "File written when 's' is pressed", Default: "agent_screenshot.jpg"})
	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	log, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Error creating log: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		if cfg, err = config.Load(*configPath); err != nil {
			log.Errorf("%v", err)
			os.Exit(1)
		}
	}
	if *modelPath != "" {
		cfg.Session.ModelPath = *modelPath
	}
	if *libPath != "" {
		cfg.Session.LibraryPath = *libPath
	}
	if *backend != "" {
		if cfg.Session.Backend, err = inference.ParseBackend(*backend); err != nil {
			log.Errorf("%v", err)
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}

	opts := runOptions{
		input:       *input,
		budget:      time.Duration(*budgetMs) * time.Millisecond,
		headless:    *headless,
		reportEvery: time.Duration(*reportEvery) * time.Second,
		screenshot:  *screenshot,
	}
	if err := run(log, cfg, opts); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

type runOptions struct {
	input       string
	budget      time.Duration
	headless    bool
	reportEvery time.Duration
	screenshot  string
}

func run(log logs.Log, cfg *config.Config, opts runOptions) error {
	session, err := inference.NewSession(cfg.SessionConfig())
	if err != nil {
		return err
	}
	defer session.Close()

	pipeOpts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	prof := profiler.New(profiler.DefaultMaxSamples)
	pipeOpts.Profiler = prof
	pipe := pipeline.New(log, pipeOpts)

	source, name, err := openSource(opts.input)
	if err != nil {
		return err
	}
	defer source.Close()
	log.Infof("Reading %v with %v on %v", name, cfg.Session.ModelPath, cfg.Session.Backend)

	var window *gocv.Window
	if !opts.headless {
		window = gocv.NewWindow("Perception")
		defer window.Close()
	}

	img := gocv.NewMat()
	defer img.Close()

	fps := 0.0
	frameCount := 0
	lastTime := time.Now()
	lastReport := time.Now()

	for {
		if ok := source.Read(&img); !ok {
			log.Infof("End of input %v", name)
			break
		}
		if img.Empty() {
			continue
		}

		frameStart := time.Now()
		stopFrame := prof.StartOperation(opFrame)

		frame, err := img.ToImage()
		if err != nil {
			log.Warnf("Error converting frame: %v", err)
			stopFrame()
			continue
		}

		stopInference := prof.StartOperation(opInference)
		output, err := session.Run(frame)
		stopInference()
		if err != nil {
			return err
		}

		res, err := pipe.Process(output, image.Pt(img.Cols(), img.Rows()))
		stopFrame()
		if err != nil {
			// Already logged by the pipeline; the next frame starts clean.
			continue
		}

		frameCount++
		if elapsed := time.Since(lastTime).Seconds(); elapsed >= 1.0 {
			fps = float64(frameCount) / elapsed
			frameCount = 0
			lastTime = time.Now()
			prof.RecordMetric(metricFPS, fps)
		}
		prof.RecordMetric(metricTracks, float64(pipe.Stats().Tracks))

		if opts.headless && len(res.Detections) > 0 {
			log.Debugf("Frame %d: %v", res.Frame, pipeline.Describe(res.Detections))
		}

		if opts.reportEvery > 0 && time.Since(lastReport) >= opts.reportEvery {
			prof.LogReport(log)
			lastReport = time.Now()
		}

		if window == nil {
			continue
		}

		if spent := time.Since(frameStart); opts.budget > 0 && spent > opts.budget {
			log.Warnf("Frame %d took %v, over the %v budget; skipping overlay", res.Frame, spent, opts.budget)
		} else {
			drawDetections(&img, res.Detections)
			drawStatus(&img, fps, len(res.Detections))
		}

		window.IMShow(img)
		switch window.WaitKey(1) {
		case keyEsc:
			log.Infof("Stopped after %d frames", res.Frame)
			prof.LogReport(log)
			return nil
		case keyS:
			if gocv.IMWrite(opts.screenshot, img) {
				log.Infof("Saved %v", opts.screenshot)
			} else {
				log.Warnf("Error saving %v", opts.screenshot)
			}
		}
	}

	stats := pipe.Stats()
	log.Infof("Processed %d frames, %d dropped, %d live tracks", stats.Frames, stats.Dropped, stats.Tracks)
	prof.LogReport(log)
	return nil
}
