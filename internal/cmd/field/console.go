package field

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/solarfield/internal/field/app"
	"github.com/louisbranch/solarfield/internal/field/event"
	"github.com/louisbranch/solarfield/internal/field/placement"
	apperrors "github.com/louisbranch/solarfield/internal/platform/errors"
	"github.com/louisbranch/solarfield/internal/platform/timeouts"
)

type verifier interface {
	Verify(ctx context.Context) error
}

// console runs line commands against a field.
type console struct {
	field    *app.Field
	verifier verifier
	out      io.Writer
}

func newConsole(field *app.Field, verifier verifier, out io.Writer) *console {
	return &console{field: field, verifier: verifier, out: out}
}

// Serve reads commands from in until it is exhausted or ctx ends.
func (c *console) Serve(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			c.handle(ctx, line)
		}
	}
}

func (c *console) handle(ctx context.Context, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "click":
		c.click(ctx, fields[1:])
	case "delete":
		c.delete(ctx, fields[1:])
	case "clear":
		c.clear(ctx)
	case "list":
		c.list()
	case "verify":
		c.verify(ctx)
	case "help":
		c.printf("commands: click <px> <py> | delete <id> | clear | list | verify")
	default:
		c.printf("unknown command %q (try help)", fields[0])
	}
}

func (c *console) click(ctx context.Context, args []string) {
	if len(args) != 2 {
		c.printf("usage: click <px> <py>")
		return
	}
	px, errX := strconv.ParseFloat(args[0], 64)
	py, errY := strconv.ParseFloat(args[1], 64)
	if errX != nil || errY != nil {
		c.printf("click needs numeric pixel coordinates")
		return
	}
	evt, ok, err := c.field.Place(ctx, placement.Pixel{X: px, Y: py})
	if err != nil {
		c.printf("%s", app.UserMessage(err))
		return
	}
	if !ok {
		c.printf("missed the ground")
		return
	}
	c.sync(ctx, evt)
	if row, found := c.field.Store().Get(evt.EntityID); found {
		c.printf("placed %s at (%.3f, %.3f, %.3f)", row.ID, row.X, row.Y, row.Z)
		return
	}
	c.printf("placed %s", evt.EntityID)
}

func (c *console) delete(ctx context.Context, args []string) {
	if len(args) != 1 {
		c.printf("usage: delete <id>")
		return
	}
	evt, err := c.field.Delete(ctx, args[0])
	if err != nil {
		c.printf("%s", app.UserMessage(err))
		return
	}
	c.sync(ctx, evt)
	c.printf("deleted %s", args[0])
}

func (c *console) clear(ctx context.Context) {
	events, err := c.field.ClearAll(ctx)
	if len(events) > 0 {
		c.sync(ctx, events[len(events)-1])
	}
	if err != nil {
		c.printf("cleared %d panels; %s", len(events), app.UserMessage(err))
		return
	}
	c.printf("cleared %d panels", len(events))
}

func (c *console) list() {
	rows := c.field.List()
	if len(rows) == 0 {
		c.printf("no panels")
		return
	}
	for _, row := range rows {
		c.printf("%s (%.3f, %.3f, %.3f) placed %s", row.ID, row.X, row.Y, row.Z, row.CreatedAt.Format(time.RFC3339))
	}
}

func (c *console) verify(ctx context.Context) {
	if c.verifier == nil {
		c.printf("verification is not available")
		return
	}
	if err := c.verifier.Verify(ctx); err != nil {
		if apperrors.IsIntegrity(err) {
			c.printf("journal is corrupt: %v", err)
			return
		}
		c.printf("verify failed: %v", err)
		return
	}
	c.printf("journal ok at seq %d", c.field.Store().Position())
}

func (c *console) sync(ctx context.Context, evt event.Event) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.ConsoleSync)
	defer cancel()
	if err := c.field.Sync(ctx, evt.Seq); err != nil {
		c.printf("waiting for seq %d: %v", evt.Seq, err)
	}
}

func (c *console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}
