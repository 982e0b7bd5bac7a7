package config

const (
	defaultConfigPath              = "~/.config/autoposter/config.toml"
	defaultStateDir                = "~/.local/share/autoposter"
	defaultLogDir                  = "~/.local/share/autoposter/logs"
	defaultMaxRevisions            = 3
	defaultClaimTTLMinutes         = 30
	defaultBacklogFloor            = 5
	defaultSourceLookbackDays      = 7
	defaultScoutMaxItems           = 5
	defaultAgentMaxItems           = 3
	defaultStaleClaimMinutes       = 30
	defaultErrorStaleMinutes       = 60
	defaultMaxAutoResets           = 2
	defaultStuckHours              = 4
	defaultUnhealthyErrorThreshold = 3
	defaultTimezone                = "UTC"
	defaultWindowStart             = "08:00"
	defaultWindowEnd               = "10:00"
	defaultWebhookTimeoutSeconds   = 15
	defaultNotifyRequestTimeout    = 10
	defaultGenerationTimeout       = 60
	defaultResearchMaxItems        = 10
	defaultResearchRequestTimeout  = 20
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Pipeline: Pipeline{
			MaxRevisions:       defaultMaxRevisions,
			ClaimTTLMinutes:    defaultClaimTTLMinutes,
			BacklogFloor:       defaultBacklogFloor,
			SourceLookbackDays: defaultSourceLookbackDays,
			ScoutMaxItems:      defaultScoutMaxItems,
			WriterMaxItems:     defaultAgentMaxItems,
			EditorMaxItems:     defaultAgentMaxItems,
			PublisherMaxItems:  defaultAgentMaxItems,
			PromoterMaxItems:   defaultAgentMaxItems,
		},
		Monitor: Monitor{
			StaleClaimMinutes:       defaultStaleClaimMinutes,
			ErrorStaleMinutes:       defaultErrorStaleMinutes,
			MaxAutoResets:           defaultMaxAutoResets,
			StuckHours:              defaultStuckHours,
			UnhealthyErrorThreshold: defaultUnhealthyErrorThreshold,
		},
		Publishing: Publishing{
			Timezone:    defaultTimezone,
			WindowStart: defaultWindowStart,
			WindowEnd:   defaultWindowEnd,
		},
		Webhook: Webhook{
			TimeoutSeconds: defaultWebhookTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Generation: Generation{
			TimeoutSeconds: defaultGenerationTimeout,
		},
		Research: Research{
			MaxItemsPerSource: defaultResearchMaxItems,
			RequestTimeout:    defaultResearchRequestTimeout,
		},
		Schedule: Schedule{
			Scout:     Job{IntervalMinutes: 360, OffsetMinutes: 15},
			Writer:    Job{IntervalMinutes: 120, OffsetMinutes: 30},
			Editor:    Job{IntervalMinutes: 120, OffsetMinutes: 45},
			Publisher: Job{IntervalMinutes: 30},
			Promoter:  Job{IntervalMinutes: 60, OffsetMinutes: 10},
			Morgan:    Job{IntervalMinutes: 15},
			Research:  Job{IntervalMinutes: 360},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
