//go:build cgo
// +build cgo

package highlight

import (
	"fmt"
	"image"
	"image/color"
	"runtime"
	"sync"

	"gocv.io/x/gocv"
)

// DebugPreview provides an optional debug window showing the active
// camera's frame with the current zone geometry and ball marker overlaid.
// OpenCV UI functions must run on a single dedicated OS thread, so the draw
// loop below locks to one for the lifetime of the window.
type DebugPreview struct {
	window   *gocv.Window
	frameCh  chan overlayFrame
	closeCh  chan struct{}
	doneCh   chan struct{}
	once     sync.Once
	initDone chan struct{}
}

type overlayFrame struct {
	mat        gocv.Mat
	zones      []Zone
	ballCenter Point
	hasBall    bool
	label      string
}

// NewDebugPreview creates a new preview window with the given title. Must be
// called once per run; the draw loop owns its own OS thread for the
// lifetime of the window.
func NewDebugPreview(title string) *DebugPreview {
	p := &DebugPreview{
		frameCh:  make(chan overlayFrame, 1),
		closeCh:  make(chan struct{}),
		doneCh:   make(chan struct{}),
		initDone: make(chan struct{}),
	}

	go p.loop(title)
	<-p.initDone

	return p
}

func (p *DebugPreview) loop(title string) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	p.window = gocv.NewWindow(title)
	close(p.initDone)

	for {
		select {
		case of := <-p.frameCh:
			drawOverlay(of)
			p.window.IMShow(of.mat)
			p.window.WaitKey(1)
			of.mat.Close()

		case <-p.closeCh:
			if p.window != nil {
				p.window.Close()
			}
			close(p.doneCh)
			return
		}
	}
}

// drawOverlay paints zone rectangles and the (smoothed) ball marker onto a
// frame already sized to the active camera's resolution.
func drawOverlay(of overlayFrame) {
	w, h := float64(of.mat.Cols()), float64(of.mat.Rows())
	zoneColor := color.RGBA{R: 0, G: 200, B: 255, A: 0}
	for _, z := range of.zones {
		pt1 := image.Pt(int(z.X1*w), int(z.Y1*h))
		pt2 := image.Pt(int(z.X2*w), int(z.Y2*h))
		gocv.Rectangle(&of.mat, image.Rectangle{Min: pt1, Max: pt2}, zoneColor, 1)
		gocv.PutText(&of.mat, z.Label.String(), image.Pt(pt1.X+2, pt1.Y+14),
			gocv.FontHersheyPlain, 1.0, zoneColor, 1)
	}

	if of.hasBall {
		center := image.Pt(int(of.ballCenter.X*w), int(of.ballCenter.Y*h))
		gocv.Circle(&of.mat, center, 6, color.RGBA{R: 255, G: 60, B: 60, A: 0}, 2)
	}

	gocv.PutText(&of.mat, of.label, image.Pt(10, int(h)-10),
		gocv.FontHersheyPlain, 1.2, color.RGBA{R: 255, G: 255, B: 255, A: 0}, 1)
}

// Show displays a frame with zone/ball overlays. The mat is cloned
// internally, so the caller keeps ownership of the original. Non-blocking:
// frames are dropped if the preview can't keep up with the draw loop.
func (p *DebugPreview) Show(mat gocv.Mat, activeCamID int, zones []Zone, ball Point, hasBall bool) {
	if mat.Empty() {
		return
	}

	of := overlayFrame{
		mat:        mat.Clone(),
		zones:      zones,
		ballCenter: ball,
		hasBall:    hasBall,
		label:      fmt.Sprintf("camera %d", activeCamID),
	}

	select {
	case p.frameCh <- of:
	default:
		of.mat.Close()
	}
}

// Close closes the preview window and releases resources. Safe to call more
// than once.
func (p *DebugPreview) Close() error {
	p.once.Do(func() {
		close(p.closeCh)
		<-p.doneCh
	})
	return nil
}

// ShowFrame implements Previewer by extracting the gocv.Mat backing frame
// and forwarding it to Show. Frames not produced by a gocv StreamSource are
// silently dropped.
func (p *DebugPreview) ShowFrame(frame Frame, activeCam int, zones []Zone, ball Point, hasBall bool) {
	mat, ok := FrameMat(frame)
	if !ok || mat == nil {
		return
	}
	p.Show(*mat, activeCam, zones, ball, hasBall)
}
