package config

import "flag"

var (
	flagConfig      = flag.String("config", "", "Path to config file")
	flagDebug       = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile     = flag.String("log", "", "Write logs to this file as well")
	flagIterations  = flag.Int("iterations", 0, "Maximum FABRIK iterations per solve")
	flagTolerance   = flag.Float64("tolerance", 0, "Distance at which a target counts as reached")
	flagConstraints = flag.String("constraints", "", "Enforce cone constraints (on|off)")
	flagTransition  = flag.Float64("transition", -1, "Cross-fade length in seconds")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagIterations > 0 {
		cfg.Solver.MaxIterations = *flagIterations
	}
	if *flagTolerance > 0 {
		cfg.Solver.Tolerance = float32(*flagTolerance)
	}
	switch *flagConstraints {
	case "on":
		cfg.Solver.Constraints = true
	case "off":
		cfg.Solver.Constraints = false
	}
	if *flagTransition >= 0 {
		cfg.Animation.TransitionSeconds = float32(*flagTransition)
	}
}
