package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hallway/src/anticipation"
	"hallway/src/console"
	"hallway/src/debug/hallway"
	"hallway/src/debug/markers"
	"hallway/src/gen"
	"hallway/src/hardware/host"
	"hallway/src/hardware/sim"
	"hallway/src/joy"
	"hallway/src/joy/fatal"
	"hallway/src/lib/arena"
	"hallway/src/lib/trampoline"
	"hallway/src/lib/trust"
	"hallway/src/lib/upbeat"
)

// ctrlC is what a raw terminal sends instead of SIGINT.
const ctrlC = 0x03

// port is the host end of the serial line.
type port interface {
	console.Handle
	io.Writer
	Raw() bool
	Close() error
}

// openPort is replaced by tests.
var openPort = func(device string) (port, error) {
	var (
		p   *host.Port
		err error
	)
	if device == "" {
		p, err = host.OpenStdio()
	} else {
		p, err = host.OpenTTY(device)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// kernel is a booted board.
type kernel struct {
	board   *sim.Board
	port    port
	task    joy.Task
	state   joy.KTaskState
	errSlot arena.Addr
}

// boot brings the board up the way the kernel entry point does: take the
// peripherals, install the console, move onto the kernel stack, then
// load whatever image and markers are configured.
func boot() (*kernel, error) {
	p, err := openPort(cfg.Console.Device)
	if err != nil {
		return nil, fmt.Errorf("opening console: %w", err)
	}
	board, err := sim.NewBoard(sim.Config{
		RAMBase: arena.Addr(cfg.Board.RAMBase),
		RAMSize: cfg.Board.RAMSize,
		UART:    sim.UARTConfig{BaudRate: cfg.Board.BaudRate, CRLF: p.Raw()},
	}, p, upbeat.CPU)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	peripherals, err := board.Take()
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	console.Set(peripherals.Serial)
	fatal.SetLineMax(cfg.Console.LineMax)
	k := &kernel{board: board, port: p}

	bottom, top, err := joy.ReserveStack(board.RAM())
	if err != nil {
		return nil, k.fail(fmt.Errorf("reserving kernel stack: %w", err))
	}
	if err := joy.NewStackSwitcher(board.Memory()).JumpToStack(top); err != nil {
		return nil, k.fail(fmt.Errorf("switching stack: %w", err))
	}
	markers.Register("stack", bottom)
	k.task = joy.NewTask(bottom, top, 0)
	k.state = joy.NewKTaskState(0, "/")
	trust.Debugf("task %d on stack 0x%x-0x%x, cwd %s", k.state.ID,
		uint32(k.task.StackStart), uint32(k.task.StackTop), k.state.Cwd.String())

	if k.errSlot, err = board.RAM().Reserve(joy.ErrorLayoutSize()); err != nil {
		return nil, k.fail(fmt.Errorf("reserving error slot: %w", err))
	}
	k.record(joy.NewError(joy.Unknown, gen.Borrow("none")))
	markers.Register("last_error", k.errSlot)

	// jumping here starts a fresh monitor session
	restart, err := board.RAM().Reserve(2)
	if err != nil {
		return nil, k.fail(fmt.Errorf("reserving monitor entry: %w", err))
	}
	trampoline.Register(restart, func() {
		trust.Infof("monitor restarted")
		k.monitor().Interactive()
	})
	markers.Register("monitor", restart)

	if cfg.Image.Path != "" {
		if err := k.loadImage(cfg.Image.Path); err != nil {
			k.record(joy.Errorf(joy.Unknown, "image: %v", err))
			trust.Errorf("unable to load %s: %v", cfg.Image.Path, err)
		}
	}
	for _, m := range cfg.Markers {
		markers.Register(m.Name, arena.Addr(m.Addr))
	}
	trust.Infof("booted, console at %d baud, %d markers",
		peripherals.Serial.BaudRate(), markers.Markers.Len())
	return k, nil
}

// monitor is a fresh monitor session on the kernel's memory.
func (k *kernel) monitor() *hallway.Monitor {
	return hallway.New(
		hallway.WithMemory(k.board.Memory()),
		hallway.WithLineMax(cfg.Console.LineMax),
	)
}

func (k *kernel) fail(err error) error {
	_ = k.port.Close()
	return err
}

// record keeps err in the last_error slot, where the monitor can see it.
func (k *kernel) record(err *joy.KernelError) {
	if serr := err.StoreAt(k.board.Memory(), k.errSlot); serr != nil {
		logger.Warn("unable to record error", zap.Error(serr))
	}
}

func (k *kernel) loadImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	img, err := anticipation.Load(f, k.board.Memory(), markers.Markers)
	if err != nil {
		return err
	}
	if img.HasEntry {
		entry := img.Entry
		trampoline.Register(entry, func() {
			trust.Infof("jumped to image entry 0x%x; there is nothing to run hosted", uint32(entry))
		})
	}
	return nil
}

// run starts the wire and the timer, then runs body as the kernel's main
// thread with the panic handler in place. It returns when body does.
func (k *kernel) run(ctx context.Context, body func()) error {
	defer k.port.Close()

	go func() {
		src := io.ByteReader(k.port)
		if k.port.Raw() {
			src = &hangup{src: k.port, onInterrupt: func() {
				_ = k.port.Close()
				os.Exit(130)
			}}
		}
		if err := k.board.UART().Pump(src); err != nil {
			k.record(joy.Errorf(joy.Stdio, "console: %v", err))
			logger.Warn("console pump stopped", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return k.board.RunTimer(gctx, cfg.GetTickPeriod())
	})
	// hanging up the line is what gets a monitor session out of ReadLine
	g.Go(func() error {
		<-gctx.Done()
		return k.board.UART().Close()
	})
	g.Go(func() error {
		defer cancel()
		defer fatal.Catch(k.board)
		upbeat.CPU.Enable()
		body()
		return nil
	})
	err := g.Wait()
	logger.Info("kernel stopped", zap.Uint64("ticks", k.board.Ticks()))
	return err
}

// hangup watches a raw terminal for ^C.
type hangup struct {
	src         io.ByteReader
	onInterrupt func()
}

func (h *hangup) ReadByte() (byte, error) {
	b, err := h.src.ReadByte()
	if err == nil && b == ctrlC {
		h.onInterrupt()
	}
	return b, err
}
