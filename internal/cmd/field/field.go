// Package field parses field command flags and runs the headless field host.
package field

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/louisbranch/solarfield/internal/field/app"
	"github.com/louisbranch/solarfield/internal/field/geom"
	"github.com/louisbranch/solarfield/internal/field/journal/sqlite"
	"github.com/louisbranch/solarfield/internal/field/placement"
	entrypoint "github.com/louisbranch/solarfield/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/solarfield/internal/platform/grpc"
	"github.com/louisbranch/solarfield/internal/platform/timeouts"
	"golang.org/x/sync/errgroup"
)

// Config holds field command configuration.
type Config struct {
	DBPath       string        `env:"DB_PATH" envDefault:"data/field.db"`
	FieldID      string        `env:"FIELD_ID" envDefault:"solar-panel-field-v2"`
	HealthAddr   string        `env:"HEALTH_ADDR" envDefault:"127.0.0.1:8090"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"250ms"`
	Filter       string        `env:"FILTER"`

	ViewportWidth  float64   `env:"VIEWPORT_WIDTH" envDefault:"800"`
	ViewportHeight float64   `env:"VIEWPORT_HEIGHT" envDefault:"600"`
	CameraPosition []float64 `env:"CAMERA_POSITION" envDefault:"0,5,10" envSeparator:","`
	CameraTarget   []float64 `env:"CAMERA_TARGET" envDefault:"0,0,0" envSeparator:","`
	CameraUp       []float64 `env:"CAMERA_UP" envDefault:"0,1,0" envSeparator:","`
	CameraFovY     float64   `env:"CAMERA_FOV" envDefault:"75"`
	GroundHeight   float64   `env:"GROUND_HEIGHT" envDefault:"-0.5"`

	// Headless skips the console and runs until the process is stopped.
	Headless bool `env:"HEADLESS"`
	// Probe checks the health endpoint of a running host and exits.
	Probe bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the field journal database")
	fs.StringVar(&cfg.FieldID, "field", cfg.FieldID, "Field id; each field keeps its own journal")
	fs.StringVar(&cfg.HealthAddr, "health-addr", cfg.HealthAddr, "gRPC health listen address")
	fs.StringVar(&cfg.Filter, "filter", cfg.Filter, "AIP-160 filter of the rendered panels (empty: live panels)")
	fs.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "Journal poll interval for appends from other processes")
	fs.BoolVar(&cfg.Headless, "headless", cfg.Headless, "Run without the stdin console")
	fs.BoolVar(&cfg.Probe, "probe", false, "Check the health of a running host and exit")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// View builds the placement view from the camera settings.
func (c Config) View() (app.View, error) {
	position, err := vec(c.CameraPosition, "camera position")
	if err != nil {
		return app.View{}, err
	}
	target, err := vec(c.CameraTarget, "camera target")
	if err != nil {
		return app.View{}, err
	}
	up, err := vec(c.CameraUp, "camera up")
	if err != nil {
		return app.View{}, err
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return app.View{}, fmt.Errorf("viewport must be positive, got %vx%v", c.ViewportWidth, c.ViewportHeight)
	}
	return app.View{
		Viewport:     placement.Viewport{Width: c.ViewportWidth, Height: c.ViewportHeight},
		Camera:       placement.Camera{Position: position, Target: target, Up: up, FovY: c.CameraFovY},
		GroundHeight: c.GroundHeight,
	}, nil
}

func vec(values []float64, name string) (geom.Vec3, error) {
	if len(values) != 3 {
		return geom.Vec3{}, fmt.Errorf("%s needs 3 components, got %d", name, len(values))
	}
	return geom.V(values[0], values[1], values[2]), nil
}

// Run starts the field host, reading console commands from in and writing
// replies to out.
func Run(ctx context.Context, cfg Config, in io.Reader, out io.Writer) error {
	if cfg.Probe {
		return platformgrpc.Probe(ctx, cfg.HealthAddr, timeouts.HealthProbe, log.Printf)
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceField, func(ctx context.Context) error {
		return serve(ctx, cfg, in, out)
	})
}

// errConsoleClosed ends the host when console input runs out.
var errConsoleClosed = errors.New("console closed")

func serve(ctx context.Context, cfg Config, in io.Reader, out io.Writer) error {
	view, err := cfg.View()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}

	journal, err := sqlite.Open(ctx, cfg.DBPath, cfg.FieldID, sqlite.WithPollInterval(cfg.PollInterval))
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer journal.Close()

	renderer := newLogRenderer(log.Printf)
	field, err := app.New(journal, renderer, app.WithView(view), app.WithFilter(cfg.Filter))
	if err != nil {
		return err
	}
	defer func() {
		if err := field.Close(); err != nil {
			log.Printf("release scene: %v", err)
		}
	}()

	health, err := platformgrpc.NewHealthServer(cfg.HealthAddr, entrypoint.ServiceField)
	if err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return health.Serve(ctx) })

	if err := field.Start(ctx); err != nil {
		health.MarkNotServing()
		_ = group.Wait()
		return err
	}
	health.MarkServing()
	log.Printf("field %s ready at seq %d, health on %s", journal.FieldID(), field.Store().Position(), health.Addr())

	group.Go(func() error { return field.Run(ctx) })
	if !cfg.Headless {
		console := newConsole(field, journal, out)
		group.Go(func() error {
			if err := console.Serve(ctx, in); err != nil {
				return err
			}
			return errConsoleClosed
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, errConsoleClosed) {
		return err
	}
	return nil
}
