package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/hillroll/common"
	"github.com/milk9111/hillroll/game"
	"github.com/milk9111/hillroll/levels"
	"github.com/milk9111/hillroll/physics"
	"github.com/milk9111/hillroll/prefabs"
	"golang.org/x/image/colornames"
)

const (
	baseWidth  = 1280
	baseHeight = 720

	pixelsPerMeter = 24
	cameraSmooth   = 0.15
	markerLife     = 1.5
	frameTime      = 1.0 / 60
)

// tirePose is the render-side transform the tire writes into.
type tirePose struct {
	position    mgl64.Vec3
	orientation mgl64.Quat
}

func (p *tirePose) SetPose(position mgl64.Vec3, orientation mgl64.Quat) {
	p.position = position
	p.orientation = orientation
}

type marker struct {
	position cp.Vector
	age      float64
	destroy  bool
}

type Viewer struct {
	levelName string
	levelPath string
	debug     bool
	log       *log.Logger

	ctx     *game.Context
	pose    *tirePose
	markers []marker
	watcher *prefabs.Watcher
	status  string

	camX, camY float64
}

func NewViewer(levelName string, debug bool) (*Viewer, error) {
	v := &Viewer{levelName: levelName, debug: debug, log: common.NewLogger("viewer")}
	if err := v.reload(); err != nil {
		return nil, err
	}

	var dirs []string
	for _, dir := range []string{"prefabs", filepath.Join("prefabs", "scripts"), "levels"} {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirs = append(dirs, dir)
		}
	}
	if len(dirs) > 0 {
		w, err := prefabs.NewWatcher(dirs...)
		if err != nil {
			v.log.Printf("hot reload disabled: %v", err)
		} else {
			v.watcher = w
		}
	}
	return v, nil
}

// reload rebuilds the whole simulation from the prefab files and the current level.
func (v *Viewer) reload() error {
	pose := &tirePose{}
	ctx, err := game.NewContext(game.Options{Logger: v.log, Debug: v.debug, Visual: pose})
	if err != nil {
		return err
	}
	var lvl *levels.Level
	if v.levelPath != "" {
		lvl, err = levels.LoadFile(v.levelPath)
	} else {
		lvl, err = levels.Load(v.levelName)
	}
	if err != nil {
		return err
	}
	if err := ctx.LoadLevel(lvl); err != nil {
		return err
	}
	ctx.World().OnTerrainImpact(func(e physics.TerrainImpact) {
		v.markers = append(v.markers, marker{position: project(e.Position)})
	})
	ctx.World().OnDestroyed(func(e physics.ObjectDestroyed) {
		v.markers = append(v.markers, marker{position: project(e.Position), destroy: true})
	})
	v.ctx = ctx
	v.pose = pose
	v.markers = nil
	v.status = ""
	v.camX, v.camY = pose.position.X(), pose.position.Y()
	return nil
}

func (v *Viewer) pollWatcher() {
	if v.watcher == nil {
		return
	}
	changed := false
	for {
		select {
		case c := <-v.watcher.Events:
			v.log.Printf("%s changed: %s", c.Kind, c.Path)
			if c.Kind == prefabs.LevelChange && strings.TrimSuffix(filepath.Base(c.Path), ".json") == strings.TrimSuffix(v.levelName, ".json") {
				v.levelPath = c.Path
			}
			changed = true
		case err := <-v.watcher.Errors:
			v.log.Printf("watch error: %v", err)
		default:
			if changed {
				v.tryReload()
			}
			return
		}
	}
}

func (v *Viewer) tryReload() {
	if err := v.reload(); err != nil {
		v.log.Printf("reload failed: %v", err)
		v.status = "reload failed: " + err.Error()
	}
}

func (v *Viewer) Update() error {
	v.pollWatcher()

	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		if err := v.ctx.LaunchTire(); err != nil {
			v.status = err.Error()
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		v.ctx.SetSlowMotion(!v.ctx.SlowMotion())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		v.tryReload()
	}

	v.ctx.Update(frameTime)
	v.camX = common.Lerp(v.camX, v.pose.position.X(), cameraSmooth)
	v.camY = common.Lerp(v.camY, v.pose.position.Y(), cameraSmooth)

	live := v.markers[:0]
	for _, m := range v.markers {
		m.age += frameTime * v.ctx.World().TimeScale()
		if m.age < markerLife {
			live = append(live, m)
		}
	}
	v.markers = live
	return nil
}

func (v *Viewer) Draw(screen *ebiten.Image) {
	screen.Fill(colornames.Lightskyblue)

	d := &sideDrawer{
		screen: screen,
		camX:   v.camX,
		camY:   v.camY,
		zoom:   pixelsPerMeter,
		width:  baseWidth,
		height: baseHeight,
	}

	profile := v.ctx.Mesh().Row(v.pose.position.Z())
	points := make([]cp.Vector, len(profile))
	for i, p := range profile {
		points[i] = project(p)
	}
	d.drawPolyline(points, colornames.Darkolivegreen)

	tire := v.ctx.Tire().Handle()
	for _, b := range v.ctx.World().Bodies() {
		d.drawBody(b, bodyColor(b, tire))
	}
	for _, m := range v.markers {
		clr := colornames.Orange
		if m.destroy {
			clr = colornames.Red
		}
		d.drawDot(m.position, fadeColor(clr, m.age, markerLife))
	}

	t := v.ctx.Tire()
	speed := 0.0
	if b, ok := v.ctx.World().Body(t.Handle()); ok {
		speed = b.Speed()
	}
	text := fmt.Sprintf("Level: %s    Tire: %s    State: %v\nSpeed: %.1f m/s    Score: %d    Destroyed: %d\nTime scale: %.2f    Bodies: %d    Steps: %d    FPS: %.1f\nspace: launch  s: slow motion  r: reload",
		v.ctx.Level().Name, t.Archetype().Name, t.State(),
		speed, v.ctx.Score(), v.ctx.DestroyedCount(),
		v.ctx.World().TimeScale(), v.ctx.World().BodyCount(), v.ctx.World().StepCount(), ebiten.ActualFPS())
	if v.status != "" {
		text += "\n" + v.status
	}
	ebitenutil.DebugPrintAt(screen, text, 10, 10)
}

func (v *Viewer) LayoutF(outsideWidth, outsideHeight float64) (float64, float64) {
	return baseWidth, baseHeight
}

func (v *Viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	panic("shouldn't use Layout")
}

func (v *Viewer) Close() {
	if v.watcher != nil {
		_ = v.watcher.Close()
	}
}
