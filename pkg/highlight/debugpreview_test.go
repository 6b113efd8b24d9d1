//go:build cgo
// +build cgo

package highlight

import (
	"runtime"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func TestNewDebugPreview(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("Skipping GUI test on macOS: NSWindow requires main thread")
	}
	preview := NewDebugPreview("Test Window")
	if preview == nil {
		t.Fatal("NewDebugPreview returned nil")
	}
	defer preview.Close()
}

func TestDebugPreview_Show(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("Skipping GUI test on macOS: NSWindow requires main thread")
	}
	preview := NewDebugPreview("Test Window")
	defer preview.Close()

	mat := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer mat.Close()

	zones := []Zone{{Label: ZoneRight, X1: 0.8, Y1: 0, X2: 1, Y2: 1}}
	preview.Show(mat, 0, zones, Point{X: 0.5, Y: 0.5}, true)

	time.Sleep(50 * time.Millisecond)
}

func TestDebugPreview_Close(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("Skipping GUI test on macOS: NSWindow requires main thread")
	}
	preview := NewDebugPreview("Test Window")

	if err := preview.Close(); err != nil {
		t.Errorf("Close() returned error: %v", err)
	}
	if err := preview.Close(); err != nil {
		t.Errorf("second Close() returned error: %v", err)
	}
}

func TestDebugPreview_ShowMultiple(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("Skipping GUI test on macOS: NSWindow requires main thread")
	}
	preview := NewDebugPreview("Test Window")
	defer preview.Close()

	for i := 0; i < 5; i++ {
		mat := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
		preview.Show(mat, i%2, nil, Point{}, false)
		mat.Close()
		time.Sleep(10 * time.Millisecond)
	}
}
