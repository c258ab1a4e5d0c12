package config

const (
	defaultReferenceDir         = "~/.local/share/herpid/reference"
	defaultCandidateDir         = "~/.local/share/herpid/candidates"
	defaultResultsPath          = "~/.local/share/herpid/results.csv"
	defaultLogDir               = "~/.local/share/herpid/logs"
	defaultGeminiBaseURL        = "https://generativelanguage.googleapis.com"
	defaultGeminiModel          = "gemini-2.5-flash"
	defaultGeminiTimeoutSeconds = 120
	defaultPacingSeconds        = 1
	defaultRetryAttempts        = 3
	defaultRetryBaseSeconds     = 2
	defaultRetryMaxSeconds      = 10
	defaultResponseCacheEnabled = true
	defaultTargetSpecies        = "Leptodeira annulata"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults. The reference
// set and species labels mirror the Leptodeira study the tool was built for;
// deployments verifying other taxa override them in the config file.
func Default() Config {
	return Config{
		Paths: Paths{
			ReferenceDir: defaultReferenceDir,
			CandidateDir: defaultCandidateDir,
			ResultsPath:  defaultResultsPath,
			LogDir:       defaultLogDir,
		},
		Gemini: Gemini{
			BaseURL:        defaultGeminiBaseURL,
			Model:          defaultGeminiModel,
			TimeoutSeconds: defaultGeminiTimeoutSeconds,
		},
		Batch: Batch{
			PacingSeconds:    defaultPacingSeconds,
			RetryAttempts:    defaultRetryAttempts,
			RetryBaseSeconds: defaultRetryBaseSeconds,
			RetryMaxSeconds:  defaultRetryMaxSeconds,
		},
		ResponseCache: ResponseCache{
			Enabled: defaultResponseCacheEnabled,
		},
		Identification: Identification{
			TargetSpecies: defaultTargetSpecies,
			Species: []string{
				"L. annulata",
				"L. approximans",
				"L. ashmeadii",
				"L. ornata",
			},
		},
		References: []Reference{
			{
				FileName:    "L. annulata_reference.PNG",
				Description: "First dorsal blotch with half-moon shape generally fused with other dorsal blotches in the first third of body forming a zigzag pattern.",
			},
			{
				FileName:    "L. approximans_reference.PNG",
				Description: "first dorsal blotches of the body with a half-moon shape, generally fused with other dorsal blotches in the first third of body forming a zig-zag pattern",
			},
			{
				FileName:    "L. ashmeadii_reference.PNG",
				Description: "two dark brown parallel stripes in the parietal region which run toward the occipitals; two occipital stripes extend to the body and fuse with the first dorsal blotch",
			},
			{
				FileName:    "L. ornata_reference.PNG",
				Description: "occipital region light brown with medial wide line",
			},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
