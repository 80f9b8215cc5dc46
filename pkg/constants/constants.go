// Package constants provides shared constants for the adaptive-trial application.
package constants

// Reference design (Bhatt & Mehta 2016, Table 2).
const (
	// ReferenceNInitial is the planned total sample size
	ReferenceNInitial = 10900

	// ReferenceInterimFraction is the fraction of NInitial enrolled at the interim look
	ReferenceInterimFraction = 0.7

	// ReferenceZAlphaInterim is the interim efficacy stopping boundary
	ReferenceZAlphaInterim = 2.797

	// ReferenceZAlphaFinal is the final-analysis critical value
	ReferenceZAlphaFinal = 1.98

	// ReferenceRRRLower is the lower bound of the promising zone
	ReferenceRRRLower = 0.136

	// ReferenceRRRUpper is the upper bound of the promising zone
	ReferenceRRRUpper = 0.212

	// ReferenceTargetCP is the conditional power targeted in the promising zone
	ReferenceTargetCP = 0.90

	// ReferenceAlpha is the one-sided significance level
	ReferenceAlpha = 0.025

	// ReferenceNMaxCap is the maximum total sample size after re-estimation
	ReferenceNMaxCap = 20000
)

// Simulation defaults
const (
	// DefaultReplications is the number of Monte Carlo replications per scenario
	DefaultReplications = 100000

	// DefaultSeed is the base seed for the random streams
	DefaultSeed = 20160301

	// LowReplicationWarning is the count below which Monte Carlo noise is flagged
	LowReplicationWarning = 10000
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"

	// OutputFormatMarkdown is the markdown table output format
	OutputFormatMarkdown = "markdown"

	// OutputFormatXLSX is the Excel workbook output format (requires an output file)
	OutputFormatXLSX = "xlsx"
)

// NotAvailable marks a zone statistic that has no observations.
const NotAvailable = "n/a"

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix is the prefix for environment overrides of configuration keys
	EnvPrefix = "ADAPTIVE_TRIAL"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for YAML configs (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024

	// DefaultMaxReplications caps the replications per scenario of a single API request
	DefaultMaxReplications = 200000

	// DefaultMaxTotalReplications caps replications summed over every scenario of a single API request
	DefaultMaxTotalReplications = 2000000
)

// Validation constants
const (
	// ProbabilityTolerance is the tolerance for comparing probabilities
	ProbabilityTolerance = 1e-9

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)
