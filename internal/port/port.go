// Package port opens the serial link the emulator talks over.
package port

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tarm "github.com/tarm/serial"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"go.tigermatt.uk/rosslar"
)

var (
	ErrNoPort        = errors.New("no serial port matches")
	ErrAmbiguousPort = errors.New("more than one serial port matches")
	ErrUnknownDriver = errors.New("unknown serial driver")
)

// Port is an open serial link.
type Port interface {
	io.ReadWriteCloser
}

// Driver selects the serial library a port is opened with.
type Driver string

const (
	BugST Driver = "bugst"
	Tarm  Driver = "tarm"
)

func ParseDriver(s string) (Driver, error) {
	switch d := Driver(strings.ToLower(s)); d {
	case "", BugST:
		return BugST, nil
	case Tarm:
		return Tarm, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownDriver, s)
	}
}

type Options struct {
	// Spec names the port: a device name or path, a USB serial number,
	// a VID:PID pair or part of the USB product description.
	Spec        string
	Driver      Driver
	Baud        int
	ReadTimeout time.Duration
}

// listPorts is replaced in tests.
var listPorts = enumerator.GetDetailedPortsList

// Open resolves opts.Spec and opens the port 8N1 at opts.Baud. It
// returns the device name it opened.
func Open(opts Options) (Port, string, error) {
	ports, err := List()
	if err != nil {
		return nil, "", err
	}

	name, err := Resolve(opts.Spec, ports)
	if err != nil {
		return nil, "", err
	}

	switch opts.Driver {
	case "", BugST:
		p, err := openBugST(name, opts)
		return p, name, err
	case Tarm:
		p, err := openTarm(name, opts)
		return p, name, err
	default:
		return nil, "", fmt.Errorf("%w %q", ErrUnknownDriver, opts.Driver)
	}
}

// Resolve picks the single port in ports that spec describes. Exact
// names win, then serial numbers, then VID:PID, then product
// substrings. When nothing matches, a spec that looks like a device
// path is returned as is.
func Resolve(spec string, ports []*enumerator.PortDetails) (string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return "", fmt.Errorf("%w: empty port description", ErrNoPort)
	}

	rules := []func(p *enumerator.PortDetails) bool{
		func(p *enumerator.PortDetails) bool { return p.Name == spec },
		func(p *enumerator.PortDetails) bool { return p.IsUSB && p.SerialNumber == spec },
		func(p *enumerator.PortDetails) bool {
			return p.IsUSB && strings.EqualFold(p.VID+":"+p.PID, spec)
		},
		func(p *enumerator.PortDetails) bool {
			return p.Product != "" && strings.Contains(strings.ToLower(p.Product), strings.ToLower(spec))
		},
	}

	for _, rule := range rules {
		var found []string
		for _, p := range ports {
			if p != nil && rule(p) {
				found = append(found, p.Name)
			}
		}

		switch len(found) {
		case 0:
			continue
		case 1:
			return found[0], nil
		default:
			return "", fmt.Errorf("%w %q: %s", ErrAmbiguousPort, spec, strings.Join(found, ", "))
		}
	}

	if looksLikeDevice(spec) {
		return spec, nil
	}

	return "", fmt.Errorf("%w %q", ErrNoPort, spec)
}

func looksLikeDevice(spec string) bool {
	return strings.HasPrefix(spec, "/") || strings.HasPrefix(strings.ToUpper(spec), "COM")
}

type bugstPort struct {
	serial.Port
}

func openBugST(name string, opts Options) (Port, error) {
	p, err := serial.Open(name, &serial.Mode{
		BaudRate: opts.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("while opening serial port %s: %w", name, err)
	}

	if opts.ReadTimeout > 0 {
		if err := p.SetReadTimeout(opts.ReadTimeout); err != nil {
			p.Close()
			return nil, fmt.Errorf("setting read timeout on %s: %w", name, err)
		}
	}

	return &bugstPort{Port: p}, nil
}

func (p *bugstPort) Read(bs []byte) (int, error) {
	n, err := p.Port.Read(bs)
	return n, translate(err)
}

func (p *bugstPort) Write(bs []byte) (int, error) {
	n, err := p.Port.Write(bs)
	return n, translate(err)
}

// translate reports a closed port as rosslar.ErrPortClosed.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var perr *serial.PortError
	if errors.As(err, &perr) && perr.Code() == serial.PortClosed {
		return fmt.Errorf("%w: %w", rosslar.ErrPortClosed, err)
	}
	if errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("%w: %w", rosslar.ErrPortClosed, err)
	}

	return err
}

type tarmPort struct {
	*tarm.Port
}

func openTarm(name string, opts Options) (Port, error) {
	p, err := tarm.OpenPort(&tarm.Config{
		Name:        name,
		Baud:        opts.Baud,
		ReadTimeout: opts.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("while opening serial port %s: %w", name, err)
	}

	return &tarmPort{Port: p}, nil
}

// Read reports the driver's timeout, io.EOF with no data, as an empty
// read.
func (p *tarmPort) Read(bs []byte) (int, error) {
	n, err := p.Port.Read(bs)
	if err == io.EOF {
		return n, nil
	}
	return n, translate(err)
}

// List returns the ports present on the system.
func List() ([]*enumerator.PortDetails, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("listing serial ports: %w", err)
	}
	return ports, nil
}
