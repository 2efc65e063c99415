// amd-stream: stream an audio file to a running amd-server and print
// the verdicts it emits. Useful for exercising the streaming endpoint
// against recorded calls.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/outdial/amd/pkg/audio"
	"github.com/outdial/amd/pkg/session"
)

var (
	addr       = flag.String("addr", "localhost:8000", "amd-server address")
	chunkMs    = flag.Int("chunk-ms", 100, "chunk size in milliseconds")
	realtime   = flag.Bool("realtime", false, "pace chunks at real time")
	sampleRate = flag.Int("rate", 16000, "sample rate for raw PCM input")
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: amd-stream [flags] <audio-file>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}

	// Decode whatever we were given down to mono PCM at the server's
	// sample rate, then send raw frames.
	samples, rate, err := audio.Decode(data, *sampleRate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode: %v\n", err)
		os.Exit(1)
	}
	pcm := audio.SamplesToBytes(samples)

	url := fmt.Sprintf("ws://%s/api/v1/amd/stream", *addr)
	fmt.Printf("connecting to %s\n", url)
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer ws.Close()

	// Verdicts arrive asynchronously while we stream.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var result session.Result
			if err := ws.ReadJSON(&result); err != nil {
				return
			}
			out, _ := json.Marshal(result)
			fmt.Printf("verdict: %s\n", out)
		}
	}()

	chunkBytes := rate * 2 * *chunkMs / 1000
	sent := 0
	for off := 0; off < len(pcm); off += chunkBytes {
		end := off + chunkBytes
		if end > len(pcm) {
			end = len(pcm)
		}
		if err := ws.WriteMessage(websocket.BinaryMessage, pcm[off:end]); err != nil {
			fmt.Fprintf(os.Stderr, "send: %v\n", err)
			os.Exit(1)
		}
		sent++
		if *realtime {
			time.Sleep(time.Duration(*chunkMs) * time.Millisecond)
		}
	}
	fmt.Printf("sent %d chunks (%d bytes), waiting for verdict...\n", sent, len(pcm))

	// Give the server time to classify and answer before closing.
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		fmt.Fprintln(os.Stderr, "timed out waiting for verdict")
	}
}
