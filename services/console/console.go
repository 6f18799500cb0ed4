// Package console is the operator command shell:
//
//	start [-d driver] [-T 4525|4515] [-b bus] [-a addr] [-f freq] [-i interval_us]
//	stop [-d driver]
//	status
//	help
//
// Commands are sent to the driver service as bus requests. Exec returns 0
// on success and -1 on a usage error or a failed request.
package console

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/shlex"

	"airspeed-go/bus"
	"airspeed-go/services/driver"
	"airspeed-go/types"
)

const (
	ExitOK   = 0
	ExitFail = -1
)

// DefaultTimeout bounds each driver request.
const DefaultTimeout = 2 * time.Second

// DefaultBus is used by start when -b is not given.
const DefaultBus = 1

type Console struct {
	conn    *bus.Connection
	out     io.Writer
	log     *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

func New(conn *bus.Connection, out io.Writer, log *slog.Logger) *Console {
	if log == nil {
		log = slog.Default()
	}
	return &Console{conn: conn, out: out, log: log, timeout: DefaultTimeout, now: time.Now}
}

// Run executes one command per input line until in is exhausted or ctx is
// cancelled.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return <-errc
			}
			if strings.TrimSpace(l) == "" {
				continue
			}
			if rc := c.Exec(ctx, l); rc != ExitOK {
				c.log.Debug("command failed", "line", l, "rc", rc)
			}
		}
	}
}

// Exec runs one command line.
func (c *Console) Exec(ctx context.Context, line string) int {
	args, err := shlex.Split(line)
	if err != nil {
		fmt.Fprintf(c.out, "parse error: %v\n", err)
		return ExitFail
	}
	if len(args) == 0 {
		c.usage()
		return ExitFail
	}

	switch args[0] {
	case "start":
		return c.start(ctx, args[1:])
	case "stop":
		return c.stop(ctx, args[1:])
	case "status":
		return c.status(ctx)
	case "help", "-h", "--help":
		c.usage()
		return ExitOK
	default:
		fmt.Fprintf(c.out, "unrecognized command %q\n", args[0])
		c.usage()
		return ExitFail
	}
}

func (c *Console) start(ctx context.Context, args []string) int {
	fs := c.flagSet("start")
	drv := fs.String("d", driver.NameMS4525, "driver ("+strings.Join(driver.Names(), "|")+")")
	typ := fs.String("T", "", "device type (4525|4515)")
	busNum := fs.Int("b", DefaultBus, "i2c bus number")
	addr := fs.Uint("a", 0, "i2c address override")
	freq := fs.Uint("f", 0, "bus frequency in Hz")
	intervalUS := fs.Uint("i", 0, "poll interval in microseconds (0: as fast as conversions allow)")
	if err := fs.Parse(args); err != nil {
		return ExitFail
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(c.out, "unexpected arguments: %v\n", fs.Args())
		return ExitFail
	}
	if *addr > 0x7F {
		fmt.Fprintf(c.out, "address 0x%x is not a 7-bit address\n", *addr)
		return ExitFail
	}
	if *freq > math.MaxUint32 {
		fmt.Fprintf(c.out, "frequency %s is out of range\n", humanize.Comma(int64(*freq)))
		return ExitFail
	}

	rep, err := c.request(ctx, driver.VerbStart, types.DriverStart{
		Driver:    *drv,
		Type:      *typ,
		Bus:       *busNum,
		Address:   uint16(*addr),
		Frequency: uint32(*freq),
		Interval:  time.Duration(*intervalUS) * time.Microsecond,
	})
	if err != nil {
		return c.fail(err)
	}
	fmt.Fprintf(c.out, "%s started as instance %d\n", *drv, rep.Instance)
	return ExitOK
}

func (c *Console) stop(ctx context.Context, args []string) int {
	fs := c.flagSet("stop")
	drv := fs.String("d", "", "driver to stop (default: all)")
	if err := fs.Parse(args); err != nil {
		return ExitFail
	}
	rep, err := c.request(ctx, driver.VerbStop, types.DriverStop{Driver: *drv})
	if err != nil {
		return c.fail(err)
	}
	fmt.Fprintf(c.out, "stopped %d instance(s)\n", rep.Stopped)
	return ExitOK
}

func (c *Console) status(ctx context.Context) int {
	rep, err := c.request(ctx, driver.VerbStatus, nil)
	if err != nil {
		return c.fail(err)
	}
	if len(rep.Status) == 0 {
		fmt.Fprintln(c.out, "no driver running")
		return ExitOK
	}
	now := c.now()
	for _, st := range rep.Status {
		c.printStatus(st, now)
	}
	return ExitOK
}

func (c *Console) printStatus(st types.DriverStatus, now time.Time) {
	name := st.Driver
	if st.Type != "" {
		name += " " + st.Type
	}
	fmt.Fprintf(c.out, "instance %d: %s on i2c bus %d address 0x%02x (%s)\n",
		st.Instance, name, st.Bus, st.Address, humanize.SI(float64(st.Frequency), "Hz"))
	fmt.Fprintf(c.out, "  device id %s  phase %s  link %s\n", st.DeviceID, st.Phase, st.Link)
	fmt.Fprintf(c.out, "  poll interval %v  conversion %v  started %s\n",
		st.PollInterval, st.Conversion, humanize.RelTime(st.Started, now, "ago", "from now"))
	last := "never"
	if !st.LastSample.IsZero() {
		last = humanize.RelTime(st.LastSample, now, "ago", "from now")
	}
	fmt.Fprintf(c.out, "  published %s  errors %s  last sample %s\n",
		humanize.Comma(int64(st.Published)), humanize.Comma(int64(st.Errors)), last)
}

func (c *Console) request(ctx context.Context, verb string, payload any) (types.DriverReply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.conn.RequestWait(ctx, c.conn.NewMessage(driver.CtlTopic(verb), payload, false))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return types.DriverReply{}, errors.New("driver service did not answer")
		}
		return types.DriverReply{}, err
	}
	rep, ok := msg.Payload.(types.DriverReply)
	if !ok {
		return types.DriverReply{}, fmt.Errorf("unexpected reply %T", msg.Payload)
	}
	if !rep.OK {
		return rep, errors.New(rep.Error)
	}
	return rep, nil
}

func (c *Console) fail(err error) int {
	fmt.Fprintf(c.out, "error: %v\n", err)
	return ExitFail
}

func (c *Console) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.out)
	return fs
}

func (c *Console) usage() {
	fmt.Fprint(c.out, `Differential pressure sensor driver.

Commands:
  start   [-d driver] [-T 4525|4515] [-b bus] [-a addr] [-f freq] [-i interval_us]
  stop    [-d driver]
  status
  help

Drivers: `+strings.Join(driver.Names(), ", ")+`
`)
}
