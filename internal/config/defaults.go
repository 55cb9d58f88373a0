package config

const (
	defaultDataDir           = "~/.local/share/netsight"
	defaultLogDir            = "~/.local/share/netsight/logs"
	defaultBusyTimeoutMS     = 5000
	defaultWiGLEBaseURL      = "https://api.wigle.net"
	defaultWiGLETimeout      = 30
	defaultCoordinateEpsilon = 0.0001
	defaultQueueLimit        = 100
	defaultStaleClaimMinutes = 30
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Database: Database{
			BusyTimeout: defaultBusyTimeoutMS,
		},
		WiGLE: WiGLE{
			BaseURL:        defaultWiGLEBaseURL,
			TimeoutSeconds: defaultWiGLETimeout,
		},
		Merge: Merge{
			CoordinateEpsilon: defaultCoordinateEpsilon,
		},
		Queue: Queue{
			DefaultLimit:      defaultQueueLimit,
			StaleClaimMinutes: defaultStaleClaimMinutes,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
