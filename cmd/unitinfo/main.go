// Command unitinfo prints a unit descriptor's parameters and renders a
// short probe through the unit.
//
// Usage:
//
//	unitinfo -descriptor path [flags]
//
// Effects are probed with a unit impulse, instruments with one note at
// frame zero. The probe reports peak, RMS and the strongest spectral bin
// of the rendered signal.
//
// Examples:
//
//	unitinfo -descriptor units/crunch.yaml
//	unitinfo -descriptor units/keys.yaml -note 330 -frames 8192
//	unitinfo -descriptor units/crunch.yaml -rate 48000
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/algo-rack/host"
	"github.com/cwbudde/algo-rack/monitor"
)

const probeBlock = 256

type probeResult struct {
	Frames  int
	PeakDB  float64
	RMSDB   float64
	PeakHz  float64
	Failure error
}

func main() {
	path := flag.String("descriptor", "", "unit descriptor YAML file")
	rate := flag.Float64("rate", 44100, "sample rate in Hz")
	frames := flag.Int("frames", 4096, "probe length in samples")
	note := flag.Float64("note", 220, "note frequency for instrument probes")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: unitinfo -descriptor path [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Prints a unit's parameters and renders a probe through it.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *path == "" {
		flag.Usage()
		os.Exit(2)
	}

	d, err := host.LoadDescriptorFile(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := printParameters(os.Stdout, d); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	res, err := probe(context.Background(), d, *rate, *frames, *note)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := printProbe(os.Stdout, d, res); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printParameters(w io.Writer, d *host.Descriptor) error {
	runtime := d.RuntimeOrDefault()
	if _, err := fmt.Fprintf(w, "%s (%s, %s)\n\n", d.Name, d.Type, runtime); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tName\tKind\tDefault\tMin\tMax\tStep\tUnit\tAffects\n")
	fmt.Fprintf(tw, "--\t----\t----\t-------\t---\t---\t----\t----\t-------\n")
	for _, p := range d.Parameters {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%g\t%g\t%g\t%s\t%s\n",
			p.ID, p.Name, p.Kind, p.Normalize(p.Default), p.Min, p.Max, p.Step, p.Unit, p.Affects)
	}
	return tw.Flush()
}

// probe instantiates d on a private host and renders frames samples.
func probe(ctx context.Context, d *host.Descriptor, rate float64, frames int, noteHz float64) (probeResult, error) {
	if frames <= 0 {
		return probeResult{}, errors.New("frames must be positive")
	}

	h, err := host.New(ctx, rate,
		host.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		host.WithMaxBlockSize(probeBlock))
	if err != nil {
		return probeResult{}, err
	}
	defer h.Close(ctx)

	u, err := h.Instantiate(ctx, d)
	if err != nil {
		return probeResult{}, err
	}
	defer u.Close(ctx)

	tap, err := monitor.New(rate, monitor.WithSize(tapSizeFor(frames)))
	if err != nil {
		return probeResult{}, err
	}

	inst, isInstrument := u.(host.Instrument)
	if isInstrument {
		inst.Play(noteHz, 0)
	}

	src := make([]float64, probeBlock)
	dst := make([]float64, probeBlock)
	var sumSq float64
	for start := 0; start < frames; start += probeBlock {
		n := min(probeBlock, frames-start)
		clear(src[:n])
		if start == 0 && !isInstrument {
			src[0] = 1
		}
		u.Process(dst[:n], src[:n], int64(start))
		tap.Observe(dst[:n])
		for _, v := range dst[:n] {
			sumSq += v * v
		}
	}

	res := probeResult{
		Frames: frames,
		PeakDB: toDB(tap.Peak()),
		RMSDB:  toDB(math.Sqrt(sumSq / float64(frames))),
	}
	if f, ok := u.(host.Failing); ok {
		res.Failure = f.Err()
	}

	spec, err := tap.Spectrum(nil)
	if err != nil {
		return res, err
	}
	best := 1
	for k := 2; k < len(spec); k++ {
		if spec[k] > spec[best] {
			best = k
		}
	}
	res.PeakHz = float64(best) * tap.BinHz()

	return res, nil
}

// tapSizeFor picks the largest analysis window the probe fills.
func tapSizeFor(frames int) int {
	size := 256
	for size*2 <= frames && size < 16384 {
		size *= 2
	}
	return size
}

func toDB(v float64) float64 {
	return math.Max(monitor.FloorDB, 20*math.Log10(math.Max(v, 1e-12)))
}

func printProbe(w io.Writer, d *host.Descriptor, res probeResult) error {
	kind := "impulse"
	if d.Type == host.TypeInstrument {
		kind = "note"
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\nProbe\tFrames\tPeak [dBFS]\tRMS [dBFS]\tStrongest bin [Hz]\n")
	fmt.Fprintf(tw, "-----\t------\t-----------\t----------\t------------------\n")
	fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.1f\n", kind, res.Frames, res.PeakDB, res.RMSDB, res.PeakHz)
	if err := tw.Flush(); err != nil {
		return err
	}

	if res.Failure != nil {
		_, err := fmt.Fprintf(w, "\nunit faulted: %v\n", res.Failure)
		return err
	}
	return nil
}
