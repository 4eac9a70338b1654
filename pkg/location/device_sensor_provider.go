package location

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/tarm/serial"
)

// ErrNoFix is returned when the GPS stream ends without a usable sentence.
var ErrNoFix = errors.New("no valid GPS data found")

// DeviceSensorProvider reads fixes from a GPS receiver on a serial port.
type DeviceSensorProvider struct {
	port     string // Serial port to which the GPS device is connected
	baudRate int    // Baud rate for the serial communication

	open func() (io.ReadCloser, error)

	mu     sync.Mutex
	stream io.ReadCloser
	lines  *bufio.Scanner
}

// NewDeviceSensorProvider creates a new instance of DeviceSensorProvider with the specified port and baud rate.
func NewDeviceSensorProvider(port string, baudRate int) *DeviceSensorProvider {
	d := &DeviceSensorProvider{
		port:     port,
		baudRate: baudRate,
	}
	d.open = func() (io.ReadCloser, error) {
		return serial.OpenPort(&serial.Config{Name: d.port, Baud: d.baudRate, ReadTimeout: time.Second})
	}
	return d
}

// NewStreamSensorProvider reads NMEA sentences from an already opened stream.
func NewStreamSensorProvider(stream io.ReadCloser) *DeviceSensorProvider {
	return &DeviceSensorProvider{
		open: func() (io.ReadCloser, error) { return stream, nil },
	}
}

// GetLocation reads sentences until a GGA or RMC fix is found.
// The port stays open between calls and is reopened after a read error.
func (d *DeviceSensorProvider) GetLocation(ctx context.Context) (Location, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lines == nil {
		stream, err := d.open()
		if err != nil {
			return Location{}, err
		}
		d.stream = stream
		d.lines = bufio.NewScanner(stream)
	}

	for d.lines.Scan() {
		if err := ctx.Err(); err != nil {
			return Location{}, err
		}
		if loc, ok := parseFix(d.lines.Text()); ok {
			return loc, nil
		}
	}

	err := d.lines.Err()
	d.reset()
	if err != nil {
		return Location{}, err
	}
	return Location{}, ErrNoFix
}

// Close releases the serial port.
func (d *DeviceSensorProvider) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reset()
}

func (d *DeviceSensorProvider) reset() error {
	d.lines = nil
	if d.stream == nil {
		return nil
	}
	err := d.stream.Close()
	d.stream = nil
	return err
}

// parseFix extracts a position from a GGA or RMC sentence with a valid fix.
func parseFix(line string) (Location, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return Location{}, false
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return Location{}, false
	}

	switch s := sentence.(type) {
	case nmea.GGA:
		if s.FixQuality == nmea.Invalid {
			return Location{}, false
		}
		return Location{
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
			Accuracy:  s.HDOP, // HDOP as a proxy for accuracy
			Timestamp: time.Now(),
		}, true
	case nmea.RMC:
		if s.Validity != nmea.ValidRMC {
			return Location{}, false
		}
		return Location{
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
			Timestamp: time.Now(),
		}, true
	}
	return Location{}, false
}
