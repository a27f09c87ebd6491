package score

// Per-family caps. Each family clamps its own result as a post-condition;
// the engine never re-clamps.
const (
	CapPlatform      = 50.0
	CapMomentum      = 38.0
	CapSafety        = 25.0
	CapCrossPlatform = 12.0

	// RawMax is the ceiling of the summed families.
	RawMax = CapPlatform + CapMomentum + CapSafety + CapCrossPlatform

	// FastTrackCap bounds the reduced path used for unenriched candidates.
	FastTrackCap = 60.0
)

// ConvictionTier buckets a final score into actionable categories.
type ConvictionTier int

const (
	TierDiscard ConvictionTier = iota
	TierMonitor
	TierWatch
	TierAlert
)

// Tier cutoffs over the final (0-100) score.
const (
	AlertCutoff   = 70.0
	WatchCutoff   = 55.0
	MonitorCutoff = 40.0
)

func (t ConvictionTier) String() string {
	switch t {
	case TierAlert:
		return "alert"
	case TierWatch:
		return "watch"
	case TierMonitor:
		return "monitor"
	case TierDiscard:
		return "discard"
	default:
		return "unknown"
	}
}

// TierFor classifies a final score by the fixed cutoffs.
func TierFor(final float64) ConvictionTier {
	switch {
	case final >= AlertCutoff:
		return TierAlert
	case final >= WatchCutoff:
		return TierWatch
	case final >= MonitorCutoff:
		return TierMonitor
	default:
		return TierDiscard
	}
}

// Breakdown is the per-family decomposition of one candidate's score. The
// final score is a deterministic, monotonic function of the sub-scores.
type Breakdown struct {
	Platform      float64 `json:"platform"`
	Momentum      float64 `json:"momentum"`
	Safety        float64 `json:"safety"`
	CrossPlatform float64 `json:"cross_platform"`

	RawTotal float64        `json:"raw_total"`
	Final    float64        `json:"final"`
	Tier     ConvictionTier `json:"tier"`

	// FastTracked marks the reduced path for unenriched candidates. Its
	// Final never mixes with the full-path families above.
	FastTracked bool `json:"fast_tracked"`

	// Degraded marks a base-score fallback after a family computation
	// failed.
	Degraded bool `json:"degraded"`
}

// normalize maps a raw family sum onto the final 0-100 scale.
func normalize(raw float64) float64 {
	final := raw * 100.0 / RawMax
	if final > 100 {
		final = 100
	}
	if final < 0 {
		final = 0
	}
	return final
}

// clamp bounds v to [0, cap].
func clamp(v, cap float64) float64 {
	if v < 0 {
		return 0
	}
	if v > cap {
		return cap
	}
	return v
}
