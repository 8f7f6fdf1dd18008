// rtlsync runs the timing synchronizer against a live rtl_tcp sample stream.
package main

import (
	"flag"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/bemasher/rtltcp"

	"github.com/jeongseonghan/ofdm-sync/internal/timing"
)

var rcvr Receiver

// Receiver couples an rtl_tcp connection with a synchronizer instance.
type Receiver struct {
	rtltcp.SDR
	sy  *timing.Synchronizer
	lut iqLUT

	block []byte
	iq    []complex128
}

func (rcvr *Receiver) NewReceiver(cfg timing.Config, blockSize int) {
	var err error
	rcvr.sy, err = timing.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	rcvr.lut = newIQLUT()
	rcvr.block = make([]byte, blockSize<<1)
	rcvr.iq = make([]complex128, blockSize)

	// Connect to rtl_tcp server.
	if err := rcvr.Connect(nil); err != nil {
		log.Fatal(err)
	}

	rcvr.HandleFlags()

	// Tell the user how many gain settings were reported by rtl_tcp.
	log.Println("GainCount:", rcvr.SDR.Info.GainCount)
}

func (rcvr *Receiver) Run(timeLimit time.Duration) {
	// Setup signal channel for interruption.
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt)

	tLimit := make(<-chan time.Time, 1)
	if timeLimit != 0 {
		tLimit = time.After(timeLimit)
	}
	start := time.Now()

	for {
		// Exit on interrupt or time limit, otherwise receive.
		select {
		case <-sigint:
			return
		case <-tLimit:
			log.Println("Time Limit Reached:", time.Since(start))
			return
		default:
			_, err := io.ReadFull(rcvr, rcvr.block)
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				log.Println("encountered eof:", err)
				return
			}
			if opErr, ok := err.(*net.OpError); ok {
				log.Printf("operr: %+v\n", opErr)
				if opErr.Temporary() {
					continue
				}
				return
			}
			if err != nil {
				log.Fatal("Error reading samples: ", err)
			}

			rcvr.lut.Execute(rcvr.block, rcvr.iq)
			for _, f := range rcvr.sy.Feed(rcvr.iq) {
				log.Printf("frame: start=%d preamble=[%d,%d) payloads=%d metric=%0.3f",
					f.Start, f.Preamble.Start, f.Preamble.End, len(f.Payload), rcvr.sy.LastMetric())
			}
		}
	}
}

// iqLUT converts rtl_tcp's offset-binary uint8 I/Q pairs to complex128,
// removing the common DC offset of rtl-sdr dongles.
type iqLUT []float64

func newIQLUT() (lut iqLUT) {
	lut = make([]float64, 0x100)
	for idx := range lut {
		lut[idx] = (float64(idx) - 127.5) / 127.5
	}
	return
}

// Execute converts a block of interleaved I/Q bytes into complex samples.
func (lut iqLUT) Execute(input []byte, output []complex128) {
	i := 0
	for idx := range output {
		output[idx] = complex(lut[input[i]], lut[input[i+1]])
		i += 2
	}
}

func init() {
	log.SetFlags(log.Lshortfile | log.Lmicroseconds)
}

func main() {
	symbolLength := flag.Int("k", 1024, "useful symbol length in samples")
	cpLength := flag.Int("cp", 128, "cyclic prefix length in samples")
	halfLength := flag.Int("l", 0, "preamble repetition half-length, 0 for k/2")
	numPayload := flag.Int("n", 5, "payload symbols per frame")
	threshold := flag.Float64("threshold", timing.DefaultThreshold, "detection metric threshold in (0,1]")
	blockSize := flag.Int("blocksize", 16384, "samples per read block")
	timeLimit := flag.Duration("duration", 0, "time to run for, 0 for infinite, ex. 1h5m10s")

	rcvr.RegisterFlags()
	flag.Parse()

	rcvr.NewReceiver(timing.Config{
		K:         *symbolLength,
		CP:        *cpLength,
		L:         *halfLength,
		N:         *numPayload,
		Threshold: *threshold,
	}, *blockSize)
	defer rcvr.Close()

	rcvr.Run(*timeLimit)
}
