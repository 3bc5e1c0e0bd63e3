package main

import (
	"flag"
	"os"

	"github.com/milk9111/hillroll/common"
	"github.com/milk9111/hillroll/game"
	"github.com/milk9111/hillroll/levels"
	"github.com/milk9111/hillroll/physics"
)

func main() {
	levelName := flag.String("level", "hill", "level name in levels/ (basename, .json optional)")
	frames := flag.Int("frames", 600, "maximum frames to simulate")
	dt := flag.Float64("dt", 1.0/60, "wall seconds per frame")
	timeScale := flag.Float64("timescale", 1, "simulation time scale")
	dump := flag.String("dump", "", "write the final snapshot to this file (msgpack)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logger := common.NewLogger("rollsim")

	ctx, err := game.NewContext(game.Options{Logger: logger, Debug: *debug})
	if err != nil {
		logger.Fatal(err)
	}
	lvl, err := levels.Load(*levelName)
	if err != nil {
		logger.Fatal(err)
	}
	if err := ctx.LoadLevel(lvl); err != nil {
		logger.Fatal(err)
	}
	ctx.World().SetTimeScale(*timeScale)
	if err := ctx.LaunchTire(); err != nil {
		logger.Fatal(err)
	}

	for ctx.Frames() < *frames && !ctx.Done() {
		ctx.Update(*dt)
	}

	tire := ctx.Tire()
	if b, ok := ctx.World().Body(tire.Handle()); ok {
		logger.Printf("tire %s %v at (%.2f, %.2f, %.2f) after %d frames", tire.Archetype().Name, tire.State(), b.Position.X(), b.Position.Y(), b.Position.Z(), ctx.Frames())
	} else {
		logger.Printf("tire %s %v after %d frames", tire.Archetype().Name, tire.State(), ctx.Frames())
	}
	logger.Printf("destroyed %d obstacles for %d points, %d ground impacts", ctx.DestroyedCount(), ctx.Score(), ctx.TerrainImpacts())

	if *dump == "" {
		return
	}
	data, err := physics.EncodeSnapshot(ctx.World().Snapshot())
	if err != nil {
		logger.Fatal(err)
	}
	if err := os.WriteFile(*dump, data, 0o644); err != nil {
		logger.Fatal(err)
	}
	logger.Printf("snapshot written to %s (%d bytes)", *dump, len(data))
}
