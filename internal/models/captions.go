package models

// Caption identifiers for the 8 scored captions
const (
	CaptionGE1               = "GE1"
	CaptionGE2               = "GE2"
	CaptionVisualProficiency = "VP"
	CaptionVisualAnalysis    = "VA"
	CaptionColorGuard        = "CG"
	CaptionBrass             = "B"
	CaptionMusicAnalysis     = "MA"
	CaptionPercussion        = "P"
)

// MaxCaptionScore is the ceiling for a single caption score
const MaxCaptionScore = 20.0

var (
	// AllCaptions is every caption a lineup must fill, in display order
	AllCaptions = []string{
		CaptionGE1, CaptionGE2,
		CaptionVisualProficiency, CaptionVisualAnalysis, CaptionColorGuard,
		CaptionBrass, CaptionMusicAnalysis, CaptionPercussion,
	}

	// GECaptions are summed into the General Effect subtotal
	GECaptions = []string{CaptionGE1, CaptionGE2}

	// VisualCaptions are averaged into the Visual subtotal
	VisualCaptions = []string{CaptionVisualProficiency, CaptionVisualAnalysis, CaptionColorGuard}

	// MusicCaptions are averaged into the Music subtotal
	MusicCaptions = []string{CaptionBrass, CaptionMusicAnalysis, CaptionPercussion}
)

// ValidCaption checks whether id names one of the 8 scored captions
func ValidCaption(id string) bool {
	for _, c := range AllCaptions {
		if c == id {
			return true
		}
	}
	return false
}

// CaptionScores maps caption id to a score in [0, MaxCaptionScore]
type CaptionScores map[string]float64
