// synth-play renders a short demo phrase in a background goroutine and
// streams it to the default audio device. The renderer and the device
// callback communicate only through a SharedRing; neither side ever
// blocks on the other.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/cwbudde/algo-synth/preset"
	"github.com/cwbudde/algo-synth/synth"
	"github.com/cwbudde/algo-synth/transport"
)

// ringReader adapts the consumer side of a SharedRing to the io.Reader
// the oto player pulls from. Shortfalls come back as silence, so the
// device never stalls on a slow renderer.
type ringReader struct {
	ring *transport.SharedRing
	buf  []float32
}

func (r *ringReader) Read(p []byte) (int, error) {
	n := len(p) / 4
	if len(r.buf) < n {
		r.buf = make([]float32, n)
	}
	samples := r.buf[:n]
	r.ring.Read(samples)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return n * 4, nil
}

func main() {
	notes := flag.String("notes", "60,64,67,72", "Comma-separated MIDI notes to arpeggiate")
	velocity := flag.Int("velocity", 100, "MIDI velocity (0-127)")
	kernel := flag.String("kernel", "", "Kernel override: string, modal, noise, fm (default: preset)")
	interval := flag.Float64("interval", 0.35, "Seconds between successive notes")
	hold := flag.Float64("hold", 0.8, "Seconds each note is held before NoteOff")
	tail := flag.Float64("tail", 2.0, "Seconds to keep streaming after the last NoteOff")
	sampleRate := flag.Int("sample-rate", 48000, "Playback sample rate in Hz")
	ringFrames := flag.Int("ring-frames", 4096, "SharedRing capacity in frames")
	presetPath := flag.String("preset", "", "Preset JSON file path (optional)")
	flag.Parse()

	noteList, err := parseNotes(*notes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -notes: %v\n", err)
		os.Exit(1)
	}

	params := synth.NewDefaultParams()
	if *presetPath != "" {
		params, err = preset.LoadJSON(*presetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading preset %q: %v\n", *presetPath, err)
			os.Exit(1)
		}
	}
	if *kernel != "" {
		params.Kernel = synth.KernelKindByName(*kernel)
	}

	eng := synth.NewEngine(*sampleRate, params)
	ring := transport.NewSharedRing(*ringFrames)

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   *sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   20 * time.Millisecond,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening audio device: %v\n", err)
		os.Exit(1)
	}
	<-ready

	done := make(chan struct{})
	go render(eng, ring, *sampleRate, noteList, *velocity, *interval, *hold, *tail, done)

	player := ctx.NewPlayer(&ringReader{ring: ring})
	player.Play()

	<-done
	// Let the device drain what the renderer already wrote.
	time.Sleep(200 * time.Millisecond)
	player.Close()

	fmt.Printf("Done. underruns=%d overruns=%d\n", ring.Underruns(), ring.Overruns())
}

// render is the producer loop: it fires the note schedule and keeps the
// ring topped up one block at a time, yielding whenever the ring is full.
func render(eng *synth.Engine, ring *transport.SharedRing, sampleRate int, notes []int, velocity int, interval, hold, tail float64, done chan<- struct{}) {
	defer close(done)

	const blockSize = 128
	type event struct {
		frame int
		note  int
		on    bool
	}
	var events []event
	for i, n := range notes {
		onAt := int(float64(i) * interval * float64(sampleRate))
		events = append(events, event{frame: onAt, note: n, on: true})
		events = append(events, event{frame: onAt + int(hold*float64(sampleRate)), note: n, on: false})
	}
	endFrame := events[len(events)-1].frame + int(tail*float64(sampleRate))

	frame := 0
	next := 0
	for frame < endFrame {
		if ring.Writable() < blockSize {
			time.Sleep(time.Millisecond)
			continue
		}
		for next < len(events) && events[next].frame <= frame {
			if events[next].on {
				eng.NoteOn(events[next].note, velocity, 0)
			} else {
				eng.NoteOff(events[next].note, 0)
			}
			next++
		}
		ring.Write(eng.Process(blockSize))
		frame += blockSize
	}
	eng.AllNotesOff()
}

func parseNotes(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	notes := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 127 {
			return nil, fmt.Errorf("invalid note %q (expected 0..127)", p)
		}
		notes = append(notes, n)
	}
	if len(notes) == 0 {
		return nil, fmt.Errorf("no notes given")
	}
	return notes, nil
}
