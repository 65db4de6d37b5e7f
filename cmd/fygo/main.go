package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/cjeanneret/FyGo/internal/config"
	"github.com/cjeanneret/FyGo/internal/debug"
	"github.com/cjeanneret/FyGo/internal/hw/gimbal"
	"github.com/cjeanneret/FyGo/internal/hw/gpio"
	"github.com/cjeanneret/FyGo/internal/hw/joystick"
	"github.com/cjeanneret/FyGo/internal/hw/led"
	"github.com/cjeanneret/FyGo/internal/logic/motion"
	"github.com/cjeanneret/FyGo/internal/logic/session"
	"github.com/cjeanneret/FyGo/internal/web"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start status web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	port := flag.String("port", "", "serial device path (overrides config)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	applyPortOverride(cfg, *port)

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("Serial port", cfg.Serial.Port)
	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)

	// GPIO driver and status LED
	gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		log.Fatalf("init GPIO failed: %v", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}()
	indicator := led.NewIndicator(gpioDriver, cfg.LED.Pin)

	// Joystick: explicit device or discovery
	var dev joystick.Device
	if cfg.Joystick.Device != "" {
		dev, err = joystick.Open(cfg.Joystick.Device)
	} else {
		dev, err = joystick.Discover()
	}
	if err != nil {
		log.Fatalf("joystick: %v", err)
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.Printf("closing joystick failed: %v", err)
		}
	}()
	debug.Value("Joystick", dev.Name())
	reader := joystick.NewReader(dev)

	// Gimbal serial link
	link, err := gimbal.Open(cfg.Serial.Port, cfg.Serial.Baud, cfg.ResponseTimeout())
	if err != nil {
		log.Fatalf("gimbal: %v", err)
	}
	defer func() {
		if err := link.Close(); err != nil {
			log.Printf("closing gimbal link failed: %v", err)
		}
	}()

	// Control loop
	loop := motion.NewLoop(link, reader, buildParams(cfg))
	loop.OnReady = func() {
		if err := indicator.On(); err != nil {
			debug.Error(err)
		}
	}
	debug.PrintStruct("Control params", buildParams(cfg))

	// Optional status page
	if p := webPort.port(); p > 0 {
		broadcaster := web.NewStatusBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))

		srv := web.NewServer(fmt.Sprintf(":%d", p), broadcaster, configView(cfg))
		loop.OnStatus = srv.Handlers().Publish
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Printf("web server: %v", err)
			}
		}()
	}

	debug.Section("Running")
	sess := session.New(reader, loop, link, indicator)
	if err := sess.Run(ctx); err != nil {
		log.Fatalf("session failed: %v", err)
	}
}

// applyPortOverride sets the serial port from the CLI when given;
// an empty flag keeps the config value.
func applyPortOverride(cfg *config.Config, port string) {
	if port != "" {
		cfg.Serial.Port = port
	}
}

// buildParams maps configuration onto control loop parameters.
func buildParams(cfg *config.Config) motion.Params {
	return motion.Params{
		RateHz:        cfg.Control.RateHz,
		DeadzoneWidth: cfg.Control.Deadzone,
		YawGain:       cfg.Control.YawGain,
		PitchGain:     cfg.Control.PitchGain,
		YawMin:        int16(cfg.Control.YawMin),
		YawMax:        int16(cfg.Control.YawMax),
		PitchMin:      float64(cfg.Control.PitchMin),
		PitchMax:      float64(cfg.Control.PitchMax),
		YawAxis:       cfg.Joystick.YawAxis,
		PitchAxis:     cfg.Joystick.PitchAxis,
	}
}

// configView maps configuration onto the read-only view the status
// page exposes.
func configView(cfg *config.Config) web.ConfigView {
	return web.ConfigView{
		RateHz:    cfg.Control.RateHz,
		Deadzone:  cfg.Control.Deadzone,
		YawGain:   cfg.Control.YawGain,
		PitchGain: cfg.Control.PitchGain,
		YawMin:    cfg.Control.YawMin,
		YawMax:    cfg.Control.YawMax,
		PitchMin:  cfg.Control.PitchMin,
		PitchMax:  cfg.Control.PitchMax,
		YawAxis:   cfg.Joystick.YawAxis,
		PitchAxis: cfg.Joystick.PitchAxis,
	}
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
