package main

import (
	"embed"
	"flag"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"github.com/wailsapp/wails/v2/pkg/options/windows"

	"github.com/nmtuan2007/echo-flux/internal/logging"
	"github.com/nmtuan2007/echo-flux/internal/overlay"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	windowName := flag.String("window", "", "run as a named child window instead of the main shell")
	flag.Parse()

	if *windowName != "" {
		runChildWindow(*windowName)
		return
	}

	if _, err := logging.Init(filepath.Join(shellDataDir(), "logs"), "info"); err != nil {
		logrus.Warnf("logging setup failed: %v", err)
	}

	app := NewApp()
	err := wails.Run(&options.App{
		Title:            "EchoFlux",
		Width:            900,
		Height:           640,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 18, G: 18, B: 24, A: 1},
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		Bind: []interface{}{
			app,
		},
		Linux: &linux.Options{
			WindowIsTranslucent: false,
			WebviewGpuPolicy:    linux.WebviewGpuPolicyNever,
			ProgramName:         "EchoFlux",
		},
		Windows: &windows.Options{
			WebviewIsTransparent: false,
			WindowIsTranslucent:  false,
		},
		CSSDragProperty: "--wails-draggable",
		CSSDragValue:    "drag",
	})
	if err != nil {
		logrus.Fatal(err)
	}
}

// runChildWindow hosts one of the shell's auxiliary windows in its own
// process. Only the overlay exists today.
func runChildWindow(name string) {
	if name != overlay.WindowName {
		logrus.Errorf("unknown window %q", name)
		os.Exit(2)
	}

	opts := overlay.OverlayOptions()
	err := wails.Run(&options.App{
		Title:         opts.Title,
		Width:         opts.Width,
		Height:        opts.Height,
		Frameless:     opts.Frameless,
		AlwaysOnTop:   opts.AlwaysOnTop,
		DisableResize: !opts.Resizable,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 0, G: 0, B: 0, A: 0},
		Bind: []interface{}{
			NewOverlayWindow(),
		},
		Linux: &linux.Options{
			WindowIsTranslucent: opts.Transparent,
			WebviewGpuPolicy:    linux.WebviewGpuPolicyNever,
			ProgramName:         opts.Title,
		},
		Windows: &windows.Options{
			WebviewIsTransparent: opts.Transparent,
			WindowIsTranslucent:  opts.Transparent,
			DisableWindowIcon:    opts.SkipTaskbar,
		},
		CSSDragProperty: "--wails-draggable",
		CSSDragValue:    "drag",
	})
	if err != nil {
		logrus.Fatal(err)
	}
}
