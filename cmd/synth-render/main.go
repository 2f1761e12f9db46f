package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/cwbudde/algo-synth/internal/fitcommon"
	"github.com/cwbudde/algo-synth/preset"
	"github.com/cwbudde/algo-synth/synth"
	"github.com/cwbudde/algo-synth/transport"
)

func main() {
	note := flag.Int("note", 69, "MIDI note number (69 = A4 = 440 Hz)")
	velocity := flag.Int("velocity", 100, "MIDI velocity (0-127)")
	channel := flag.Int("channel", 0, "MIDI channel (0-15)")
	kernel := flag.String("kernel", "", "Kernel override: string, modal, noise, fm (default: preset)")
	duration := flag.Float64("duration", 2.0, "Duration in seconds")
	decayDBFS := flag.Float64("decay-dbfs", math.Inf(1), "Auto-stop when block RMS falls below this dBFS (e.g. -90). Disabled by default")
	decayHoldBlocks := flag.Int("decay-hold-blocks", 6, "Consecutive below-threshold blocks required to stop in auto-decay mode")
	minDuration := flag.Float64("min-duration", 0.5, "Minimum render duration in seconds when using -decay-dbfs")
	maxDuration := flag.Float64("max-duration", 20.0, "Maximum render duration in seconds when using -decay-dbfs")
	releaseAfter := flag.Float64("release-after", 0.5, "Send NoteOff after this many seconds")
	sampleRate := flag.Int("sample-rate", 48000, "Render sample rate in Hz")
	presetPath := flag.String("preset", "", "Preset JSON file path (optional)")
	output := flag.String("output", "output.wav", "Output WAV file path")
	flag.Parse()

	params := synth.NewDefaultParams()
	if *presetPath != "" {
		var err error
		params, err = preset.LoadJSON(*presetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading preset %q: %v\n", *presetPath, err)
			os.Exit(1)
		}
	}
	if *kernel != "" {
		params.Kernel = synth.KernelKindByName(*kernel)
	}

	fmt.Printf("Rendering note %d, velocity %d, kernel %s at %d Hz...\n",
		*note, *velocity, params.Kernel, *sampleRate)

	eng := synth.NewEngine(*sampleRate, params)
	eng.NoteOn(*note, *velocity, *channel)

	blockSize := 128
	autoStop := !math.IsInf(*decayDBFS, 1)

	// Bounce path: blocks flow through a plain ring buffer, the same shape
	// the realtime path uses, just drained synchronously.
	ring := transport.NewRingBuffer(blockSize*4 + 1)
	drain := make([]float32, blockSize)

	var totalFrames int
	if !autoStop {
		totalFrames = int(float64(*sampleRate) * (*duration))
		if totalFrames < 1 {
			totalFrames = 1
		}
	}

	maxFrames := totalFrames
	minFrames := 0
	if autoStop {
		minFrames = int(float64(*sampleRate) * (*minDuration))
		maxFrames = int(float64(*sampleRate) * (*maxDuration))
		if maxFrames < minFrames {
			maxFrames = minFrames
		}
		if maxFrames < blockSize {
			maxFrames = blockSize
		}
	}
	releaseAtFrame := int(float64(*sampleRate) * (*releaseAfter))
	if releaseAtFrame < 0 {
		releaseAtFrame = 0
	}
	thresholdLin := math.Pow(10.0, *decayDBFS/20.0)
	if *decayHoldBlocks < 1 {
		*decayHoldBlocks = 1
	}

	samples := make([]float32, 0, maxFrames)
	framesRendered := 0
	noteReleased := false
	belowCount := 0

	for framesRendered < maxFrames {
		framesToRender := blockSize
		if framesRendered+framesToRender > maxFrames {
			framesToRender = maxFrames - framesRendered
		}

		if !noteReleased && framesRendered >= releaseAtFrame {
			eng.NoteOff(*note, *channel)
			noteReleased = true
		}

		block := eng.Process(framesToRender)
		ring.Write(block)
		n := ring.Read(drain[:framesToRender])
		samples = append(samples, drain[:n]...)
		framesRendered += framesToRender

		if autoStop && framesRendered >= minFrames {
			if blockRMS(drain[:n]) < thresholdLin {
				belowCount++
				if belowCount >= *decayHoldBlocks {
					break
				}
			} else {
				belowCount = 0
			}
		}
	}

	if autoStop {
		fmt.Printf("Auto-stop at %d frames (%.3fs), threshold %.1f dBFS\n",
			framesRendered, float64(framesRendered)/float64(*sampleRate), *decayDBFS)
	}

	if err := fitcommon.WriteMonoWAV(*output, samples, *sampleRate); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d frames to %s\n", framesRendered, *output)
}

func blockRMS(block []float32) float64 {
	if len(block) == 0 {
		return 0
	}
	var sum float64
	for _, s := range block {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(block)))
}
