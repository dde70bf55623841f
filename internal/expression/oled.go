package expression

import (
	"fmt"
	"image"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"
)

// OLEDRenderer drives an SSD1306 panel over I2C.
type OLEDRenderer struct {
	bus    i2c.BusCloser
	dev    *ssd1306.Dev
	width  int
	height int
	logger *zap.Logger
}

// OpenOLED initializes the host drivers and the display. An empty busName
// picks the first I2C bus.
func OpenOLED(busName string, width, height int, logger *zap.Logger) (*OLEDRenderer, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %q: %w", busName, err)
	}

	opts := ssd1306.DefaultOpts
	opts.W = width
	opts.H = height

	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to initialize SSD1306: %w", err)
	}

	r := &OLEDRenderer{
		bus:    bus,
		dev:    dev,
		width:  width,
		height: height,
		logger: logger,
	}
	if err := r.Clear(); err != nil {
		r.Close()
		return nil, err
	}

	logger.Info("OLED display initialized", zap.String("bus", bus.String()), zap.Int("width", width), zap.Int("height", height))
	return r, nil
}

func (r *OLEDRenderer) Render(f Frame) error {
	img := DrawFace(f, r.width, r.height)
	if err := r.dev.Draw(r.dev.Bounds(), img, image.Point{}); err != nil {
		return fmt.Errorf("failed to draw frame: %w", err)
	}
	return nil
}

func (r *OLEDRenderer) Clear() error {
	blank := image.NewGray(image.Rect(0, 0, r.width, r.height))
	if err := r.dev.Draw(r.dev.Bounds(), blank, image.Point{}); err != nil {
		return fmt.Errorf("failed to clear display: %w", err)
	}
	return nil
}

func (r *OLEDRenderer) Close() error {
	haltErr := r.dev.Halt()
	if err := r.bus.Close(); err != nil {
		return fmt.Errorf("failed to close I2C bus: %w", err)
	}
	return haltErr
}
