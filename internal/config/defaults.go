package config

// Default returns the configuration used when no file overrides are present.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:  "~/.local/state/docmill/logs",
			LockDir: "~/.local/state/docmill",
		},
		Storage: Storage{
			PublicHost:     "https://storage.googleapis.com",
			RequestTimeout: 60,
		},
		DocAI: DocAI{
			Location:       "us",
			PayloadLimitMB: 35,
			TimeoutSeconds: 300,
		},
		Gemini: Gemini{
			Location:        "us-central1",
			Model:           "gemini-1.5-pro",
			Temperature:     0.1,
			MaxOutputTokens: 65536,
			ChunkPages:      80,
			TimeoutSeconds:  300,
		},
		OCR: OCR{
			Binary:                "ocrmypdf",
			Oversample:            600,
			EnhancedOversample:    1200,
			TimeoutSeconds:        600,
			SequentialThresholdMB: 5,
		},
		Workers: Workers{
			Network:               5,
			Local:                 0, // 0 derives from core count
			Retries:               3,
			AttemptTimeoutSeconds: 600,
		},
		Verification: Verification{
			AccuracyWarn:       70,
			SamplePages:        "first-last",
			PageCountTolerance: 2,
			ProbeLinks:         true,
		},
		Repair: Repair{
			VerifyAfterRepair: true,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
		Daemon: Daemon{
			PollIntervalSeconds: 300,
			MarkerName:          ".docmill_done.json",
		},
	}
}
