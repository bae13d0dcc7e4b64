package config

const (
	defaultDataDir               = "~/.local/share/dawpresence"
	defaultLogDirName            = "logs"
	defaultDaemonBinaryName      = "dawpresenced"
	defaultChannelName           = "DiscordPipe"
	defaultConnectTimeoutSeconds = 5
	defaultWriteTimeoutSeconds   = 1
	defaultMaxFrameBytes         = 64 * 1024
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
	defaultBitwigClientID        = "1244793162887594121"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		Channel: Channel{
			Name:                  defaultChannelName,
			ConnectTimeoutSeconds: defaultConnectTimeoutSeconds,
			WriteTimeoutSeconds:   defaultWriteTimeoutSeconds,
			MaxFrameBytes:         defaultMaxFrameBytes,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Clients: map[string]string{
			"Bitwig Studio": defaultBitwigClientID,
		},
	}
}
