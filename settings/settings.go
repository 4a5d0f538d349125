package settings

import (
	"errors"
	"fmt"
	"os"

	"github.com/oomph-ac/netmove/movement"
	"github.com/oomph-ac/netmove/prediction"
	"github.com/oomph-ac/netmove/simulation"
	"github.com/pelletier/go-toml"
	"github.com/sirupsen/logrus"
)

// Settings contains everything that can be configured about the movement of both sides.
type Settings struct {
	Prediction struct {
		// BufferSize is the maximum amount of unacknowledged moves.
		BufferSize int
		// MaxCombineDelta is the maximum delta time, in seconds, of a combined move.
		MaxCombineDelta float32
		// StalenessTicks is the amount of ticks without acknowledgement after which a desync is
		// flagged.
		StalenessTicks    int
		PositionTolerance float32
		VelocityTolerance float32
	}
	Bounds struct {
		MaxCustomSpeed  float32
		MaxLaunchSpeed  float32
		MaxAcceleration float32
		MaxDeltaTime    float32
		MaxPullRange    float32
	}
	Pull struct {
		Acceleration float32
		MaxSpeed     float32
	}
	Simulation struct {
		Gravity        float32
		GroundFriction float32
		AirFriction    float32
		FloorHeight    float32
		CeilingHeight  float32
		FlyingEnabled  bool
		BodyWidth      float32
		BodyHeight     float32
	}
	Log struct {
		// Level is one of the logrus levels, such as "debug" or "info".
		Level string
	}
	Sentry struct {
		// DSN enables error reporting to Sentry if set.
		DSN string
	}
}

// DefaultSettings returns the default settings.
func DefaultSettings() Settings {
	s := Settings{}

	pc := prediction.DefaultConfig()
	s.Prediction.BufferSize = pc.BufferSize
	s.Prediction.MaxCombineDelta = pc.MaxCombineDelta
	s.Prediction.StalenessTicks = pc.StalenessTicks
	s.Prediction.PositionTolerance = pc.PositionTolerance
	s.Prediction.VelocityTolerance = pc.VelocityTolerance

	xo := movement.DefaultOptions()
	s.Bounds.MaxCustomSpeed = xo.Bounds.MaxCustomSpeed
	s.Bounds.MaxLaunchSpeed = xo.Bounds.MaxLaunchSpeed
	s.Bounds.MaxAcceleration = xo.Bounds.MaxAcceleration
	s.Bounds.MaxDeltaTime = xo.Bounds.MaxDeltaTime
	s.Bounds.MaxPullRange = xo.Bounds.MaxPullRange
	s.Pull.Acceleration = xo.PullAcceleration
	s.Pull.MaxSpeed = xo.PullMaxSpeed

	so := simulation.DefaultOptions()
	s.Simulation.Gravity = so.Gravity
	s.Simulation.GroundFriction = so.GroundFriction
	s.Simulation.AirFriction = so.AirFriction
	s.Simulation.FloorHeight = so.FloorHeight
	s.Simulation.CeilingHeight = so.CeilingHeight
	s.Simulation.FlyingEnabled = so.FlyingEnabled
	s.Simulation.BodyWidth = so.BodyWidth
	s.Simulation.BodyHeight = so.BodyHeight

	s.Log.Level = logrus.InfoLevel.String()
	return s
}

// PredictionConfig returns the configuration of a prediction.Context.
func (s Settings) PredictionConfig() prediction.Config {
	return prediction.Config{
		BufferSize:        s.Prediction.BufferSize,
		MaxCombineDelta:   s.Prediction.MaxCombineDelta,
		StalenessTicks:    s.Prediction.StalenessTicks,
		PositionTolerance: s.Prediction.PositionTolerance,
		VelocityTolerance: s.Prediction.VelocityTolerance,
	}
}

// ExecutorOptions returns predicting executor options. Authoritative sessions enable clamping
// themselves.
func (s Settings) ExecutorOptions() movement.Options {
	return movement.Options{
		Bounds: movement.Bounds{
			MaxCustomSpeed:  s.Bounds.MaxCustomSpeed,
			MaxLaunchSpeed:  s.Bounds.MaxLaunchSpeed,
			MaxAcceleration: s.Bounds.MaxAcceleration,
			MaxDeltaTime:    s.Bounds.MaxDeltaTime,
			MaxPullRange:    s.Bounds.MaxPullRange,
		},
		PullAcceleration: s.Pull.Acceleration,
		PullMaxSpeed:     s.Pull.MaxSpeed,
	}
}

// SimulationOptions returns the options of the default movement engine.
func (s Settings) SimulationOptions() simulation.Options {
	return simulation.Options{
		Gravity:        s.Simulation.Gravity,
		GroundFriction: s.Simulation.GroundFriction,
		AirFriction:    s.Simulation.AirFriction,
		FloorHeight:    s.Simulation.FloorHeight,
		CeilingHeight:  s.Simulation.CeilingHeight,
		FlyingEnabled:  s.Simulation.FlyingEnabled,
		BodyWidth:      s.Simulation.BodyWidth,
		BodyHeight:     s.Simulation.BodyHeight,
	}
}

// Logger returns a logger using the configured level.
func (s Settings) Logger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(s.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %v", err)
	}
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{ForceColors: true, FullTimestamp: true})
	log.SetLevel(level)
	return log, nil
}

// SaveDefault will create and save the default settings file. If the file already exists, it will return an error.
func SaveDefault(path string) error {
	s := DefaultSettings()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if data, err := toml.Marshal(s); err != nil {
			return fmt.Errorf("failed encoding default settings: %v", err)
		} else if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed creating settings file: %v", err)
		}
		return nil
	}
	return errors.New("settings file already exists")
}

// Load will load the settings from your settings file, and return an error if the file does not exist.
func Load(path string) (Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Settings{}, errors.New("settings file doesn't exist")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("error reading config: %v", err)
	}

	settings := DefaultSettings()
	if err = toml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("error decoding config: %v", err)
	}
	return settings, nil
}
