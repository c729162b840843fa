// Package main computes camera preview transforms and plugin requests from the command line.
package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/camview/capability"
	"go.viam.com/camview/config"
	"go.viam.com/camview/events"
	"go.viam.com/camview/geometry"
	"go.viam.com/camview/logging"
	"go.viam.com/camview/plugins/flash"
	"go.viam.com/camview/preview"
	"go.viam.com/camview/session"
)

const (
	flagConfig      = "config"
	flagDebug       = "debug"
	flagLogFile     = "log-file"
	flagPreview     = "preview"
	flagView        = "view"
	flagRotation    = "rotation"
	flagOrientation = "orientation"
	flagMirror      = "mirror"
	flagOut         = "out"
	flagFlash       = "flash"
	flagAEModes     = "ae-modes"
	flagTrace       = "trace"

	loggerName = "camview"
)

func main() {
	var logger logging.Logger
	var fileAppender *logging.FileAppender

	app := &cli.App{
		Name:  "preview-transform",
		Usage: "compute how camera previews are placed on screen",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs to `FILE`, rotated at 10MB",
			},
		},
		Before: func(c *cli.Context) error {
			logger = logging.NewLogger(loggerName)
			if path := c.String(flagLogFile); path != "" {
				fileAppender = logging.NewFileAppender(path, 10, 3)
				logger.AddAppender(fileAppender)
			}
			config.InitLoggingSettings(logger, c.Bool(flagDebug))
			return nil
		},
		After: func(c *cli.Context) error {
			if fileAppender == nil {
				return nil
			}
			return fileAppender.Close()
		},
		Commands: []*cli.Command{
			{
				Name:  "check-config",
				Usage: "validate the config file and list its plugins",
				Action: func(c *cli.Context) error {
					path := c.String(flagConfig)
					if path == "" {
						return errors.New("--config is required")
					}
					cfg, err := config.Read(c.Context, path, logger)
					if err != nil {
						return err
					}
					for _, pc := range cfg.Plugins {
						if _, ok := capability.LookupPlugin(pc.Type); !ok {
							return errors.Errorf("plugin %q has unknown type %q, known types are %v",
								pc.Name, pc.Type, capability.RegisteredPlugins())
						}
					}
					fmt.Fprintln(c.App.Writer, cfg)
					return nil
				},
			},
			{
				Name:  "transform",
				Usage: "print the preview transform for a display state and optionally render a test frame",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagPreview, Usage: "native preview `SIZE`, e.g. 1920x1080"},
					&cli.StringFlag{Name: flagView, Required: true, Usage: "view `SIZE`, e.g. 1080x1920"},
					&cli.IntFlag{Name: flagRotation, Usage: "display rotation in degrees (0, 90, 180 or 270)"},
					&cli.StringFlag{Name: flagOrientation, Value: "portrait", Usage: "portrait or landscape"},
					&cli.BoolFlag{Name: flagMirror, Usage: "mirror horizontally"},
					&cli.StringFlag{Name: flagOut, Usage: "render a test pattern to `FILE`"},
				},
				Action: func(c *cli.Context) error {
					return transformAction(c, logger)
				},
			},
			{
				Name:  "request",
				Usage: "build the camera request the configured plugins produce",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagFlash, Usage: "flash `MODE` to request before building"},
					&cli.StringFlag{
						Name:  flagAEModes,
						Value: "0,1,2,3,4",
						Usage: "auto exposure modes the camera reports, modern backend only",
					},
					&cli.BoolFlag{Name: flagTrace, Usage: "log this request's debug lines at any level"},
				},
				Action: func(c *cli.Context) error {
					return requestAction(c, logger)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// openSession builds a session from the config file if one was given and a plugin-less legacy
// back camera session otherwise.
func openSession(ctx context.Context, c *cli.Context, bus *events.Bus, logger logging.Logger) (*session.Session, error) {
	path := c.String(flagConfig)
	if path == "" {
		return session.New(capability.Legacy, capability.FacingBack, logger)
	}
	cfg, err := config.Read(ctx, path, logger)
	if err != nil {
		return nil, err
	}
	registry := logging.NewRegistry()
	registry.Register(loggerName, logger)
	if err := cfg.ApplyLogging(registry, logger); err != nil {
		return nil, err
	}
	return session.FromConfig(ctx, cfg, bus, logger)
}

func transformAction(c *cli.Context, logger logging.Logger) (err error) {
	viewSize, err := geometry.ParseSize(c.String(flagView))
	if err != nil {
		return err
	}
	rotation, err := geometry.RotationFromDegrees(c.Int(flagRotation))
	if err != nil {
		return err
	}
	orientation, err := geometry.OrientationFromString(c.String(flagOrientation))
	if err != nil {
		return err
	}

	bus := events.NewBus(logger.Sublogger("events"))
	defer bus.Close()
	s, err := openSession(c.Context, c, bus, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, s.Close())
	}()

	v := s.NewView(preview.StaticDisplay{Rotation: rotation, Orientation: orientation})
	if c.IsSet(flagPreview) {
		previewSize, err := geometry.ParseSize(c.String(flagPreview))
		if err != nil {
			return err
		}
		v.SetPreviewSize(previewSize)
	}
	if c.IsSet(flagMirror) {
		v.SetMirror(c.Bool(flagMirror))
	}
	previewSize, ok := v.PreviewSize()
	if !ok {
		return errors.New("no preview size; pass --preview or set preview in the config")
	}

	v.SurfaceAvailable(viewSize.Width, viewSize.Height)
	t, ok := v.Transform()
	if !ok {
		return errors.Errorf("cannot place a %s preview on a %s view", previewSize, viewSize)
	}
	content := t.MapRect(viewSize.Rect())
	fmt.Fprintf(c.App.Writer, "default landscape: %t\n", preview.IsDefaultLandscape(rotation, orientation))
	fmt.Fprintf(c.App.Writer, "effective rotation: %s\n",
		preview.EffectiveRotation(rotation, preview.IsDefaultLandscape(rotation, orientation)))
	fmt.Fprintf(c.App.Writer, "matrix: %s\n", t)
	fmt.Fprintf(c.App.Writer, "content: (%.1f, %.1f)-(%.1f, %.1f)\n", content.X.Lo, content.Y.Lo, content.X.Hi, content.Y.Hi)

	out := c.String(flagOut)
	if out == "" {
		return nil
	}
	img, err := v.Render(testPattern(previewSize), nil)
	if err != nil {
		return err
	}
	if err := imaging.Save(img, out); err != nil {
		return errors.Wrapf(err, "cannot write %q", out)
	}
	logger.Infow("rendered preview", "path", out, "view", viewSize.String())
	return nil
}

// testPattern is a frame of quadrants with an arrow-like marker in the top left so that
// rotation and mirroring are visible.
func testPattern(size geometry.Size) image.Image {
	img := imaging.New(size.Width, size.Height, color.NRGBA{R: 40, G: 40, B: 40, A: 255})
	quadrants := []color.NRGBA{
		{R: 200, A: 255},
		{G: 200, A: 255},
		{B: 200, A: 255},
		{R: 200, G: 200, A: 255},
	}
	halfW, halfH := size.Width/2, size.Height/2
	for i, col := range quadrants {
		x0, y0 := (i%2)*halfW, (i/2)*halfH
		img = imaging.Paste(img, imaging.New(halfW, halfH, col), image.Pt(x0, y0))
	}
	marker := imaging.New(max(1, size.Width/8), max(1, size.Height/16), color.White)
	return imaging.Paste(img, marker, image.Pt(size.Width/16, size.Height/16))
}

func requestAction(c *cli.Context, logger logging.Logger) (err error) {
	ctx := c.Context
	if c.Bool(flagTrace) {
		ctx = logging.WithDebug(ctx, "")
	}
	bus := events.NewBus(logger.Sublogger("events"))
	defer bus.Close()
	s, err := openSession(ctx, c, bus, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, s.Close())
	}()

	if c.IsSet(flagFlash) {
		mode, err := flash.ModeFromString(c.String(flagFlash))
		if err != nil {
			return err
		}
		if err := bus.Publish(flash.ModeRequestEvent{Mode: mode}); err != nil {
			return err
		}
	}

	switch s.Backend() {
	case capability.Legacy:
		params := capability.NewLegacyParameters()
		params.SetSupported(flash.LegacyKey, legacyValues(flash.Off, flash.On, flash.Auto, flash.RedEye, flash.Torch)...)
		params, err := s.ConfigureStillCamera(ctx, capability.DeviceInfo{Facing: s.Facing()}, params)
		fmt.Fprintln(c.App.Writer, params.Flatten())
		return err
	case capability.Modern:
		aeModes, err := parseInts(c.String(flagAEModes))
		if err != nil {
			return err
		}
		chars := capability.NewCharacteristics().With(capability.ControlAEAvailableModes, aeModes...)
		return printRequests(ctx, c, s, chars)
	default:
		return errors.Wrapf(capability.ErrUnknownBackend, "%s", s.Backend())
	}
}

func printRequests(ctx context.Context, c *cli.Context, s *session.Session, chars *capability.Characteristics) error {
	capture, err := s.BuildCaptureRequest(ctx, chars)
	if err != nil {
		return err
	}
	previewReq, err := s.BuildPreviewRequest(ctx, chars)
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Key", "Capture", "Preview"})
	keys := lo.Union(lo.Keys(capture.Fields()), lo.Keys(previewReq.Fields()))
	slices.Sort(keys)
	for _, key := range keys {
		t.AppendRow(table.Row{key, fieldString(capture, key), fieldString(previewReq, key)})
	}
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
}

func fieldString(b *capability.RequestBuilder, key capability.RequestKey) string {
	v, ok := b.Get(key)
	if !ok {
		return "-"
	}
	return strconv.Itoa(v)
}

func legacyValues(modes ...flash.Mode) []string {
	return lo.Map(modes, func(m flash.Mode, _ int) string { return m.LegacyValue() })
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.Atoi(field)
		if err != nil {
			return nil, errors.Wrapf(err, "bad integer %q", field)
		}
		out = append(out, v)
	}
	return out, nil
}
