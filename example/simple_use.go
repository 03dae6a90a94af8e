package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leandrodaf/blemidi/internal/logger"
	"github.com/leandrodaf/blemidi/internal/transport/tinyble"
	"github.com/leandrodaf/blemidi/sdk/blemidi"
	"github.com/leandrodaf/blemidi/sdk/contracts"
	"github.com/leandrodaf/blemidi/sdk/midi"
	gomidi "gitlab.com/gomidi/midi/v2"
)

func main() {
	name := flag.String("name", "", "advertised name prefix of the BLE-MIDI peripheral")
	address := flag.String("address", "", "Bluetooth address of the BLE-MIDI peripheral")
	scanTimeout := flag.Duration("scan-timeout", 30*time.Second, "how long to scan before giving up")
	dest := flag.Int("dest", -1, "index of the OS MIDI destination to forward to (-1 prints events only)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	logFile := flag.String("log-file", "", "write logs to this file instead of stderr")
	flag.Parse()

	log := logger.NewZapLogger()
	log.SetLevel(contracts.ParseLogLevel(*logLevel))
	if *logFile != "" {
		log.SetDestination(contracts.FileLog, *logFile)
	}
	opts := []contracts.Option{
		contracts.WithLogger(log),
		contracts.WithDecodeErrorHandler(func(p contracts.PeripheralHandle, err error) {
			fmt.Fprintf(os.Stderr, "%s: dropped malformed data: %v\n", p, err)
		}),
	}

	consumers := []contracts.Consumer{contracts.ConsumerFunc(printEvent)}
	if *dest >= 0 {
		output, err := midi.NewMIDIOutput(opts...)
		if err != nil {
			log.Fatal("Failed to initialize MIDI output", log.Field().Error("error", err))
		}
		defer output.Stop()

		destinations, err := output.ListDestinations()
		if err != nil {
			log.Fatal("No MIDI destinations found or error listing destinations", log.Field().Error("error", err))
		}
		fmt.Println("Available MIDI destinations:", destinations)

		if err := output.SelectDestination(*dest); err != nil {
			log.Fatal("Failed to select MIDI destination", log.Field().Error("error", err))
		}
		consumers = append(consumers, output)
	}

	central, err := blemidi.NewCentral(contracts.ConsumerFunc(func(p contracts.PeripheralHandle, ev contracts.Event) {
		for _, c := range consumers {
			c.OnMidiEvent(p, ev)
		}
	}), opts...)
	if err != nil {
		log.Fatal("Failed to create BLE-MIDI central", log.Field().Error("error", err))
	}
	defer central.Terminate()

	adapter, err := tinyble.NewAdapter(log)
	if err != nil {
		log.Fatal("Failed to enable Bluetooth", log.Field().Error("error", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adapter.OnDisconnect(func(id string) {
		if central.Disconnect(id) {
			stop()
		}
	})

	scanCtx, cancelScan := context.WithTimeout(ctx, *scanTimeout)
	adv, err := adapter.Scan(scanCtx, tinyble.Match{Name: *name, Address: *address})
	cancelScan()
	if err != nil {
		log.Error("No BLE-MIDI peripheral found", log.Field().Error("error", err))
		return
	}

	peripheral, err := adapter.Connect(adv, central.Notify)
	if err != nil {
		log.Error("Failed to connect", log.Field().Error("error", err))
		return
	}
	defer peripheral.Disconnect()

	services, err := peripheral.Discover()
	if err != nil {
		log.Error("Failed to discover services", log.Field().Error("error", err))
		return
	}

	ch, err := central.ServicesDiscovered(peripheral.Handle(), services, peripheral)
	if err != nil {
		log.Error("Peripheral is not a usable BLE-MIDI device", log.Field().Error("error", err))
		return
	}

	fmt.Printf("Receiving MIDI from %s... Press Ctrl+C to exit.\n", peripheral.Handle())
	<-ctx.Done()

	stats := ch.Stats()
	log.Info("Session finished",
		log.Field().Uint64("packets", stats.Packets),
		log.Field().Uint64("events", stats.Events),
		log.Field().Uint64("malformed_headers", stats.MalformedHeaders),
		log.Field().Uint64("unexpected_continuations", stats.UnexpectedContinuations),
		log.Field().Uint64("truncated_messages", stats.TruncatedMessages))
}

func printEvent(p contracts.PeripheralHandle, ev contracts.Event) {
	msg := ev.Message()
	var channel, key, velocity uint8
	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		fmt.Printf("[%s t=%d] note on  %-4s ch=%d vel=%d\n", p.Name, ev.Time, gomidi.Note(key), channel+1, velocity)
	case msg.GetNoteOff(&channel, &key, &velocity):
		fmt.Printf("[%s t=%d] note off %-4s ch=%d\n", p.Name, ev.Time, gomidi.Note(key), channel+1)
	default:
		fmt.Printf("[%s t=%d] %s\n", p.Name, ev.Time, msg)
	}
}
