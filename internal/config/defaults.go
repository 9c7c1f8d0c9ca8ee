package config

// Accepted values for the enumerated configuration keys.
const (
	DurationSourceSndinfo = "sndinfo"
	DurationSourceHeader  = "header"
	ChannelSourceHeader   = "header"
	ChannelSourceSfprops  = "sfprops"
	MismatchFail          = "fail"
	MismatchWarn          = "warn"
)

const (
	defaultConfigPath      = "~/.config/cdpflow/config.toml"
	defaultStagingDir      = "~/.local/share/cdpflow/staging"
	defaultHistoryDB       = "~/.local/share/cdpflow/history.db"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultDurationSource  = DurationSourceSndinfo
	defaultChannelSource   = ChannelSourceHeader
	defaultAnalysisMode    = 1
	defaultStaleAfterHours = 24
	defaultMergeTolerance  = 0.05
	defaultMergeOnMismatch = MismatchFail
	defaultPvocBinary      = "pvoc"
	defaultHousekeepBinary = "housekeep"
	defaultSubmixBinary    = "submix"
	defaultSndinfoBinary   = "sndinfo"
	defaultSfpropsBinary   = "sfprops"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			HistoryDB:  defaultHistoryDB,
		},
		Tools: Tools{
			Pvoc:           defaultPvocBinary,
			Housekeep:      defaultHousekeepBinary,
			Submix:         defaultSubmixBinary,
			Sndinfo:        defaultSndinfoBinary,
			Sfprops:        defaultSfpropsBinary,
			DurationSource: defaultDurationSource,
			ChannelSource:  defaultChannelSource,
			AnalysisMode:   defaultAnalysisMode,
		},
		Pipeline: Pipeline{
			StaleAfterHours: defaultStaleAfterHours,
		},
		Merge: Merge{
			DurationToleranceSeconds: defaultMergeTolerance,
			OnMismatch:               defaultMergeOnMismatch,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
