package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/jinni2k/esp32-usb-flasher/flash"
	"github.com/jinni2k/esp32-usb-flasher/protocol"
)

var (
	port    = flag.String("port", "", "serial port of the target (default: first detected)")
	list    = flag.Bool("list", false, "list serial ports and exit")
	address = flag.String("address", "Application", "named flash region to write")
	offset  = flag.String("offset", "", "custom flash offset in hex, implies -address Custom")
	baud    = flag.Int("baud", 0, "bulk write baud rate (0 keeps the detect rate)")
	noReset = flag.Bool("no-reset", false, "skip the DTR/RTS bootloader strap")
	verbose = flag.Bool("v", false, "verbose mode with protocol traces")
	quiet   = flag.Bool("q", false, "quiet mode")
	enPin   = flag.Int("en-pin", 0, "host GPIO wired to the target EN line")
	bootPin = flag.Int("boot-pin", 0, "host GPIO wired to the target IO0 line")
)

func main() {
	flag.Parse()

	logrus.SetLevel(logrus.InfoLevel)
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if *quiet {
		logrus.SetLevel(logrus.ErrorLevel)
	}

	if *list {
		listPorts()
		return
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] firmware.bin\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(args[0]); err != nil {
		logrus.Error(err.Error())
		os.Exit(1)
	}
}

func run(firmwarePath string) error {
	image, err := os.ReadFile(firmwarePath)
	if err != nil {
		return err
	}

	addr, err := resolveAddress()
	if err != nil {
		return err
	}

	portName := *port
	if portName == "" {
		if portName, err = firstPort(); err != nil {
			return err
		}
		logrus.Infof("using %s", portName)
	}

	cfg := flash.Config{
		Port:                portName,
		WriteBaud:           *baud,
		SkipBootloaderEntry: *noReset,
		ENPin:               *enPin,
		BootPin:             *bootPin,
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-sigs
		cancel()
	}()

	session, err := flash.NewSession(cfg, image, addr)
	if err != nil {
		return err
	}

	logrus.Infof("flashing %s (%d bytes, %s image) to %s at 0x%x",
		firmwarePath, len(image), session.Chip(), addr.Name, addr.Offset)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range session.Events() {
			if *quiet {
				continue
			}
			fmt.Fprintf(os.Stderr, "\r[%-10s] %5.1f%% %s\033[K", ev.Phase, ev.Progress*100, ev.Message)
		}
		if !*quiet {
			fmt.Fprintln(os.Stderr)
		}
	}()

	err = session.Run(ctx)
	<-done
	return err
}

// resolveAddress maps the -address / -offset flags onto the catalog.
func resolveAddress() (protocol.FlashAddress, error) {
	if *offset != "" {
		return flash.CustomAddress(*offset)
	}
	return protocol.LookupAddress(*address)
}

func firstPort() (string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", fmt.Errorf("no serial ports found")
	}
	return ports[0], nil
}

func listPorts() {
	ports, err := serial.GetPortsList()
	if err != nil {
		logrus.Error(err.Error())
		os.Exit(1)
	}
	if len(ports) == 0 {
		fmt.Println("no serial ports found")
		return
	}
	for _, p := range ports {
		fmt.Println(p)
	}
}
