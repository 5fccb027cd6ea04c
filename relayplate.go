package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"lautenbacher.net/relayplate/config"
	"lautenbacher.net/relayplate/logging"
	"lautenbacher.net/relayplate/monitor"
	"lautenbacher.net/relayplate/plate"
	"lautenbacher.net/relayplate/platform"
)

const usageText = `Usage: relayplate [flags] <command> [args]

Commands:
  on <relay>       energize a relay (1-7)
  off <relay>      de-energize a relay (1-7)
  toggle <relay>   flip a relay (1-7)
  all <mask>       set all relays from a 7-bit mask (0-127, bit 0 = relay 1)
  state            print the state of all relays
  id               print the board's identity string
  led-on           light the board's status LED
  led-off          turn the board's status LED off
  led-toggle       flip the board's status LED
  monitor          interactive TUI for all configured boards

Flags:
`

func main() {
	configFile := flag.String("config", "", "path to the config file (default "+config.CONFILE+" if present)")
	board := flag.Int("board", plate.DefaultBoard, "board id (0-7); without it the configured DefaultBoard is used")
	sim := flag.Bool("sim", false, "run against a simulated board chain instead of real hardware")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usageText)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	cmd := flag.Arg(0)

	conf, confPath, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *sim {
		conf.Hardware.GPIOLibrary = "simulation"
	}

	// In monitor mode the TUI takes over the terminal, so logging starts
	// buffered and is flushed into the log pane once it is up.
	if err := logging.Init(conf.Logging, cmd == "monitor"); err != nil {
		fmt.Fprintln(os.Stderr, "can't initialise logging:", err)
		os.Exit(1)
	}
	defer logging.Close()

	pf, err := platform.New(&conf.Hardware)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer pf.Close()

	if simpf, ok := pf.(*platform.SimPlatform); ok {
		for _, b := range conf.Monitor.Boards {
			simpf.AddBoard(b, "Pi-Plate RELAY")
		}
	}

	pl, err := plate.Open(conf, pf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer pl.Close()

	if err := run(cmd, flag.Args()[1:], *board, conf, confPath, pl); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the named config file, or falls back to the defaults
// when no file was named and none is present in the working directory.
func loadConfig(cfile string) (*config.Config, string, error) {
	if cfile != "" {
		conf, err := config.ReadConfig(cfile)
		return conf, cfile, err
	}
	if _, err := os.Stat(config.CONFILE); err == nil {
		conf, err := config.ReadConfig(config.CONFILE)
		return conf, config.CONFILE, err
	}
	return config.Default(), "", nil
}

func run(cmd string, args []string, board int, conf *config.Config, confPath string, pl *plate.Plate) error {
	switch cmd {
	case "on", "off", "toggle":
		relay, err := relayArg(cmd, args)
		if err != nil {
			return err
		}
		switch cmd {
		case "on":
			return pl.RelayOn(board, relay)
		case "off":
			return pl.RelayOff(board, relay)
		default:
			return pl.RelayToggle(board, relay)
		}
	case "all":
		if len(args) != 1 {
			return errors.New("all needs exactly one mask argument")
		}
		mask, err := strconv.ParseUint(args[0], 0, 8)
		if err != nil || mask > 0x7F {
			return fmt.Errorf("mask %q must be a number in [0,127]", args[0])
		}
		return pl.RelayAll(board, plate.StateFromMask(int(mask)))
	case "state":
		st, err := pl.State(board)
		if err != nil {
			return err
		}
		for i, on := range st {
			status := "off"
			if on {
				status = "on"
			}
			fmt.Printf("relay %d: %s\n", i+1, status)
		}
		return nil
	case "id":
		id, err := pl.Identify(board)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	case "led-on":
		return pl.LEDOn(board)
	case "led-off":
		return pl.LEDOff(board)
	case "led-toggle":
		return pl.LEDToggle(board)
	case "monitor":
		return monitor.New(conf, confPath, pl).Run()
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func relayArg(cmd string, args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%s needs exactly one relay argument", cmd)
	}
	relay, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("relay %q must be a number", args[0])
	}
	return relay, nil
}
