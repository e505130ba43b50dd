package config

const (
	defaultConfigPath          = "~/.config/logtail/config.toml"
	defaultFilesDir            = "~/.local/share/logtail/files"
	defaultLogDir              = "~/.local/share/logtail/logs"
	defaultAPIBind             = "127.0.0.1:3000"
	defaultTailLines           = 10
	defaultMaxLines            = 10000
	defaultChunkSize           = 64 * 1024
	defaultPollIntervalMS      = 1000
	defaultReadLimit           = 1 << 20
	defaultSendBuffer          = 256
	defaultPingIntervalSeconds = 30
	defaultWriteTimeoutSeconds = 10
	defaultMaxMessageBytes     = 64 * 1024
	defaultMaxUploadBytes      = 512 << 20
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			FilesDir: defaultFilesDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Tail: Tail{
			DefaultLines:   defaultTailLines,
			MaxLines:       defaultMaxLines,
			ChunkSize:      defaultChunkSize,
			PollIntervalMS: defaultPollIntervalMS,
			ReadLimit:      defaultReadLimit,
			Notify:         true,
		},
		Transport: Transport{
			SendBuffer:          defaultSendBuffer,
			PingIntervalSeconds: defaultPingIntervalSeconds,
			WriteTimeoutSeconds: defaultWriteTimeoutSeconds,
			MaxMessageBytes:     defaultMaxMessageBytes,
			MaxUploadBytes:      defaultMaxUploadBytes,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
