package main

import (
	"context"
	"fmt"
	"image/png"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/bodgit/degrid"
	"github.com/bodgit/degrid/tile"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultDB         = "degrid.db"
	defaultLogMaxSize = 10
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	var writers []io.Writer
	if c.Bool("verbose") {
		writers = append(writers, os.Stderr)
	}
	if file := c.String("log-file"); file != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename: file,
			MaxSize:  c.Int("log-max-size"),
		})
	}

	logger := log.New(io.Discard, "", log.LstdFlags)
	if len(writers) > 0 {
		logger.SetOutput(io.MultiWriter(writers...))
	}
	return logger
}

func newRestorer(c *cli.Context) (*degrid.Restorer, *degrid.DB, error) {
	db, err := degrid.NewDB(c.String("db"))
	if err != nil {
		return nil, nil, err
	}

	return degrid.New(db, newLogger(c), degrid.Options{
		Columns:       c.Int("columns"),
		Workers:       c.Int("workers"),
		FrameWorkers:  c.Int("frame-workers"),
		SkipBadFrames: c.Bool("skip-bad-frames"),
		Force:         c.Bool("force"),
		FFmpeg:        c.String("ffmpeg"),
		FFprobe:       c.String("ffprobe"),
	}), db, nil
}

func restore(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	input := c.Args().First()
	output := c.String("output")
	if output == "" {
		info, err := os.Stat(input)
		if err != nil {
			return cli.Exit(err, 1)
		}
		output = input
		if !info.IsDir() {
			output = filepath.Dir(input)
		}
	}

	r, db, err := newRestorer(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer db.Close()

	s, err := r.Scan(c.Context, input, output)
	if err != nil {
		return cli.Exit(err, 1)
	}

	fmt.Fprintf(c.App.Writer, "Restored %d files (%d images, %d animations, %d videos), %d skipped, %d failed\n", s.Total(), s.Images, s.Animations, s.Videos, s.Skipped, s.Failed)

	if s.Failed > 0 {
		return cli.Exit(fmt.Sprintf("%d files could not be restored", s.Failed), 1)
	}

	return nil
}

func history(c *cli.Context) error {
	db, err := degrid.NewDB(c.String("db"))
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer db.Close()

	records, err := db.List()
	if err != nil {
		return cli.Exit(err, 1)
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tSIZE\tRESTORED\tCOLUMNS\tFRAMES\tDATE\tSOURCE\tOUTPUT")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%dx%d\t%dx%d\t%d\t%d\t%s\t%s\t%s\n", r.ID, r.Kind, r.Width, r.Height, r.RestoredWidth, r.RestoredHeight, r.Columns, r.Frames, r.Created.Format("2006-01-02 15:04:05"), r.Source, r.Output)
	}

	return w.Flush()
}

func preview(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	id, err := strconv.ParseInt(c.Args().Get(0), 10, 64)
	if err != nil {
		return cli.Exit(err, 1)
	}

	db, err := degrid.NewDB(c.String("db"))
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer db.Close()

	p, err := db.Preview(id)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if p == nil {
		return cli.Exit(fmt.Sprintf("no preview for %d", id), 1)
	}

	f, err := os.Create(c.Args().Get(1))
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer f.Close()

	if err := png.Encode(f, p); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func main() {
	app := cli.NewApp()

	app.Name = "degrid"
	app.Usage = "Restore images, animations and videos scrambled by tile mirroring"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"DEGRID_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
		&cli.StringFlag{
			Name:    "log-file",
			EnvVars: []string{"DEGRID_LOG_FILE"},
			Usage:   "also write log to `FILE`",
		},
		&cli.IntFlag{
			Name:  "log-max-size",
			Value: defaultLogMaxSize,
			Usage: "rotate the log file once it reaches `MB` megabytes",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "restore",
			Usage:       "Restore scrambled files",
			Description: "Restores every image, animation and video in DIRECTORY, or a single FILE. Restored copies are written with a \"_restored\" suffix.",
			ArgsUsage:   "DIRECTORY|FILE",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Usage:   "write restored files to `DIRECTORY`, default is alongside the input",
				},
				&cli.IntFlag{
					Name:    "columns",
					Aliases: []string{"c"},
					EnvVars: []string{"DEGRID_COLUMNS"},
					Value:   tile.DefaultColumns,
					Usage:   "number of grid columns",
				},
				&cli.IntFlag{
					Name:  "workers",
					Value: 4,
					Usage: "number of files restored concurrently",
				},
				&cli.IntFlag{
					Name:  "frame-workers",
					Usage: "number of frames restored concurrently, default is one per CPU",
				},
				&cli.BoolFlag{
					Name:  "skip-bad-frames",
					Usage: "drop frames that can't be restored rather than failing the file",
				},
				&cli.BoolFlag{
					Name:    "force",
					Aliases: []string{"f"},
					Usage:   "restore files even if they have been restored before",
				},
				&cli.StringFlag{
					Name:    "ffmpeg",
					EnvVars: []string{"DEGRID_FFMPEG"},
					Value:   "ffmpeg",
					Usage:   "path to ffmpeg",
				},
				&cli.StringFlag{
					Name:    "ffprobe",
					EnvVars: []string{"DEGRID_FFPROBE"},
					Value:   "ffprobe",
					Usage:   "path to ffprobe",
				},
			},
			Action: restore,
		},
		{
			Name:      "history",
			Usage:     "List previously restored files",
			ArgsUsage: " ",
			Action:    history,
		},
		{
			Name:      "preview",
			Usage:     "Write the stored preview of a restored file as PNG",
			ArgsUsage: "ID FILE",
			Action:    preview,
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
