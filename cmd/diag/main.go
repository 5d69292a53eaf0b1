package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/kessler/kesslergo/internal/correction"
	"github.com/kessler/kesslergo/internal/physics"
	"github.com/kessler/kesslergo/internal/propagation"
	"github.com/kessler/kesslergo/internal/tle"
)

func main() {
	tlePath := flag.String("tle", "", "path to a TLE file (3-line or 2-line format)")
	checkpoint := flag.String("checkpoint", "", "path to a correction model checkpoint")
	minutes := flag.Int("minutes", 360, "propagation horizon in minutes")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if *tlePath == "" {
		fmt.Println("usage: diag -tle <file> [-checkpoint <file>] [-minutes N]")
		os.Exit(1)
	}

	data, err := os.ReadFile(*tlePath)
	if err != nil {
		fmt.Println("ERROR reading TLE file:", err)
		os.Exit(1)
	}

	sets, err := tle.Parse(bytes.NewReader(data), logger)
	if err != nil || len(sets) == 0 {
		fmt.Println("ERROR: no usable element sets in", *tlePath)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d element sets\n", len(sets))

	driver := propagation.NewDriver(logger)
	corrections, err := correction.NewProvider(*checkpoint, logger)
	if err != nil {
		fmt.Println("ERROR loading checkpoint:", err)
		os.Exit(1)
	}

	for _, set := range sets {
		fmt.Printf("\n%s (NORAD %d) epoch %v\n", set.Name, set.NoradID, set.Epoch)

		baseline, err := driver.Propagate(context.Background(), set, *minutes)
		if err != nil {
			fmt.Println("  propagation ERROR:", err)
			continue
		}
		fmt.Printf("  baseline: %d states over %d min\n", len(baseline), *minutes)

		res, ok := physics.Residuals(baseline)
		if !ok {
			fmt.Println("  too few states for residuals")
			continue
		}
		fmt.Printf("  baseline residuals:  pos %.6e km/s  vel %.6e km/s^2\n", res.Position, res.Velocity)

		if !corrections.Available() {
			continue
		}
		refined, source, err := corrections.Refine(baseline, false)
		if err != nil {
			fmt.Println("  correction ERROR:", err)
			continue
		}
		cres, ok := physics.Residuals(refined)
		if !ok {
			continue
		}
		fmt.Printf("  corrected residuals (%s): pos %.6e km/s  vel %.6e km/s^2\n", source, cres.Position, cres.Velocity)
		fmt.Printf("  residual change: pos %+.2f%%  vel %+.2f%%\n",
			100*(cres.Position-res.Position)/res.Position,
			100*(cres.Velocity-res.Velocity)/res.Velocity,
		)
	}
}
