package main

import (
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/bodgit/bps"
	"github.com/bodgit/bps/framebuffer"
	"github.com/bodgit/bps/metrics"
	"github.com/bodgit/bps/sheet"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

const defaultDB = "bps.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) (*zap.Logger, error) {
	if c.Bool("verbose") {
		return zap.NewDevelopment()
	}
	return zap.NewNop(), nil
}

func open(c *cli.Context) (*bps.BPS, *zap.Logger, error) {
	logger, err := newLogger(c)
	if err != nil {
		return nil, nil, err
	}

	b, err := bps.New(c.String("db"), logger)
	if err != nil {
		return nil, nil, err
	}

	return b, logger, nil
}

func config(c *cli.Context) framebuffer.Config {
	return framebuffer.Config{
		Width:   c.Int("width"),
		Height:  c.Int("height"),
		Depth:   c.Int("depth"),
		Workers: c.Int("workers"),
	}
}

func importAction(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	b, logger, err := open(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer b.Close()
	defer logger.Sync() //nolint:errcheck

	opts := []sheet.Option{
		sheet.WithTileSize(c.Int("tile-width"), c.Int("tile-height")),
	}
	if c.Bool("quantize") {
		opts = append(opts, sheet.WithQuantize())
	}

	for _, path := range c.Args().Slice() {
		if err := b.Import(path, opts...); err != nil {
			return cli.Exit(err, 1)
		}
	}

	return nil
}

func listAction(c *cli.Context) error {
	b, logger, err := open(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer b.Close()
	defer logger.Sync() //nolint:errcheck

	names, err := b.Names()
	if err != nil {
		return cli.Exit(err, 1)
	}

	for _, name := range names {
		s, err := b.Sheet(name)
		if err != nil {
			return cli.Exit(err, 1)
		}
		size, tileSize := s.Size(), s.TileSize()
		fmt.Fprintf(c.App.Writer, "%s\t%dx%d\t%d tiles of %dx%d\n", name, size.X, size.Y, s.Len(), tileSize.X, tileSize.Y)
	}

	return nil
}

func setup(c *cli.Context) (*bps.BPS, *zap.Logger, *framebuffer.FrameBuffer, *sheet.Sheet, error) {
	b, logger, err := open(c)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	s, err := b.Sheet(c.String("sheet"))
	if err != nil {
		b.Close()
		return nil, nil, nil, nil, err
	}

	fb, err := framebuffer.New(config(c), s.Palette(), logger)
	if err != nil {
		b.Close()
		return nil, nil, nil, nil, err
	}

	return b, logger, fb, s, nil
}

func writePNG(file string, m image.Image) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}

	if err := png.Encode(f, m); err != nil {
		return multierr.Append(err, f.Close())
	}

	return f.Close()
}

func renderAction(c *cli.Context) error {
	b, logger, fb, s, err := setup(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer b.Close()
	defer logger.Sync() //nolint:errcheck

	if err := b.Draw(fb, demoScene(c.String("sheet"), s, fb, c.Int("frame"))); err != nil {
		return cli.Exit(err, 1)
	}

	var m image.Image = fb.Compose()
	if scale := c.Int("scale"); scale > 1 {
		dst := image.NewNRGBA(image.Rect(0, 0, fb.Width()*scale, fb.Height()*scale))
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), m, m.Bounds(), draw.Src, nil)
		m = dst
	}

	if err := writePNG(c.String("out"), m); err != nil {
		return cli.Exit(err, 1)
	}

	logger.Info("rendered frame", zap.String("out", c.String("out")), zap.Int("frame", c.Int("frame")))

	return nil
}

func benchAction(c *cli.Context) error {
	b, logger, fb, s, err := setup(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer b.Close()
	defer logger.Sync() //nolint:errcheck

	frames := c.Int("frames")
	r := metrics.New(frames, c.Float64("fps"))

	for frame := 0; frame < frames; frame++ {
		start := time.Now()

		fb.Clear()
		if err := b.Draw(fb, demoScene(c.String("sheet"), s, fb, frame)); err != nil {
			return cli.Exit(err, 1)
		}
		fb.Compose()

		r.Record(time.Since(start))
	}

	fmt.Fprintf(c.App.Writer, "frames: %d\nlast: %s (%.1f fps)\n99th percentile: %.1f fps\ntarget: %s\n",
		r.Len(), r.Last(), r.LastFPS(), r.Percentile99(), r.Target())

	return nil
}

func main() {
	app := cli.NewApp()

	app.Name = "bps"
	app.Usage = "Indexed color tile renderer"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"BPS_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	frameFlags := []cli.Flag{
		&cli.StringFlag{
			Name:     "sheet",
			Usage:    "name of the sheet to draw from",
			Required: true,
		},
		&cli.IntFlag{
			Name:    "width",
			EnvVars: []string{"BPS_WIDTH"},
			Value:   framebuffer.DefaultWidth,
			Usage:   "frame width in pixels",
		},
		&cli.IntFlag{
			Name:    "height",
			EnvVars: []string{"BPS_HEIGHT"},
			Value:   framebuffer.DefaultHeight,
			Usage:   "frame height in pixels",
		},
		&cli.IntFlag{
			Name:    "depth",
			EnvVars: []string{"BPS_DEPTH"},
			Value:   framebuffer.DefaultDepth,
			Usage:   "number of layers",
		},
		&cli.IntFlag{
			Name:    "workers",
			EnvVars: []string{"BPS_WORKERS"},
			Usage:   "goroutines per pixel loop, 0 for one per CPU",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "import",
			Usage:       "Import indexed images into the database",
			Description: "Each PNG, GIF or BMP file found is stored as a sheet named after its path.",
			ArgsUsage:   "PATH...",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "tile-width",
					Value: 8,
					Usage: "tile width in pixels",
				},
				&cli.IntFlag{
					Name:  "tile-height",
					Value: 8,
					Usage: "tile height in pixels",
				},
				&cli.BoolFlag{
					Name:  "quantize",
					Usage: "reduce images that are not indexed instead of skipping them",
				},
			},
			Action: importAction,
		},
		{
			Name:   "list",
			Usage:  "List sheets in the database",
			Action: listAction,
		},
		{
			Name:  "render",
			Usage: "Render a single frame to a PNG file",
			Flags: append(frameFlags,
				&cli.StringFlag{
					Name:     "out",
					Aliases:  []string{"o"},
					Usage:    "output PNG file",
					Required: true,
				},
				&cli.IntFlag{
					Name:  "scale",
					Value: 1,
					Usage: "integer upscaling factor",
				},
				&cli.IntFlag{
					Name:  "frame",
					Usage: "animation frame number",
				},
			),
			Action: renderAction,
		},
		{
			Name:  "bench",
			Usage: "Render frames repeatedly and report frame rates",
			Flags: append(frameFlags[:len(frameFlags):len(frameFlags)],
				&cli.IntFlag{
					Name:  "frames",
					Value: 600,
					Usage: "number of frames to render",
				},
				&cli.Float64Flag{
					Name:  "fps",
					Value: metrics.DefaultFPS,
					Usage: "target frame rate",
				},
			),
			Action: benchAction,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
