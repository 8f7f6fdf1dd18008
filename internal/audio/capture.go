// Package audio feeds live microphone samples into the synchronizer using
// PortAudio. Captured audio is real-valued; samples are widened to complex
// baseband with zero imaginary part.
package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const (
	DefaultSampleRate   = 44100
	DefaultFramesPerBuf = 1152
	numChannels         = 1
)

// Init initializes PortAudio.
func Init() error {
	return portaudio.Initialize()
}

// Terminate cleans up PortAudio.
func Terminate() error {
	return portaudio.Terminate()
}

// Capture wraps a PortAudio input stream.
type Capture struct {
	stream     *portaudio.Stream
	sampleRate float64
	frames     int
	buf        []float32
	out        []complex128
	mu         sync.Mutex
}

// NewCapture creates a capture source. Zero arguments select the defaults.
func NewCapture(sampleRate float64, framesPerBuf int) *Capture {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if framesPerBuf <= 0 {
		framesPerBuf = DefaultFramesPerBuf
	}
	return &Capture{
		sampleRate: sampleRate,
		frames:     framesPerBuf,
		buf:        make([]float32, framesPerBuf),
		out:        make([]complex128, framesPerBuf),
	}
}

// Open opens the default input stream.
func (c *Capture) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stream, err := portaudio.OpenDefaultStream(
		numChannels, // input channels
		0,           // output channels
		c.sampleRate,
		c.frames,
		c.buf,
	)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	c.stream = stream
	return nil
}

// Start starts the input stream.
func (c *Capture) Start() error {
	if c.stream == nil {
		return fmt.Errorf("input stream not opened")
	}
	return c.stream.Start()
}

// Read blocks for one buffer of input and returns it as complex baseband.
// The returned slice is reused by the next call.
func (c *Capture) Read() ([]complex128, error) {
	if err := c.stream.Read(); err != nil {
		return nil, fmt.Errorf("read input stream: %w", err)
	}
	for i, s := range c.buf {
		c.out[i] = complex(float64(s), 0)
	}
	return c.out, nil
}

// Close stops and closes the stream.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return nil
	}
	c.stream.Stop()
	err := c.stream.Close()
	c.stream = nil
	return err
}

// PrintDevices lists the available audio devices.
func PrintDevices() error {
	devices, err := portaudio.Devices()
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}

	var defaultInName string
	if d, err := portaudio.DefaultInputDevice(); err == nil {
		defaultInName = d.Name
	}

	fmt.Println("Input devices:")
	for i, d := range devices {
		if d.MaxInputChannels == 0 {
			continue
		}
		marker := "  "
		if d.Name == defaultInName {
			marker = "* "
		}
		fmt.Printf("%s%d: %s (in:%d rate:%.0f)\n", marker, i, d.Name, d.MaxInputChannels, d.DefaultSampleRate)
	}
	return nil
}
