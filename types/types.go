package types

// SourceKind tags how a source's item list is fetched and parsed
type SourceKind string

const (
	KindFeed   SourceKind = "feed"   // RSS / Atom
	KindCustom SourceKind = "custom" // bespoke HTML listing page
	KindReddit SourceKind = "reddit" // subreddit hot listing
)

// Source is one configured upstream of a segment
type Source struct {
	Name string     `yaml:"name" json:"name"`
	URL  string     `yaml:"url" json:"url"`
	Kind SourceKind `yaml:"kind" json:"kind"`

	// Custom-page selectors. Empty means the built-in defaults.
	LinkSelector    string `yaml:"link_selector,omitempty" json:"link_selector,omitempty"`
	SummarySelector string `yaml:"summary_selector,omitempty" json:"summary_selector,omitempty"`
}

// Segment is a named topic bucket with its ordered sources
type Segment struct {
	Name    string   `yaml:"name" json:"name"`
	Sources []Source `yaml:"sources" json:"sources"`
}

// NewsItem is one scraped candidate. ID is the canonical item URL.
type NewsItem struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
	Source  string `json:"source,omitempty"`
}

// NarrationText is what gets spoken for the item
func (n NewsItem) NarrationText() string {
	if n.Summary == "" {
		return n.Title
	}
	return n.Title + ". " + n.Summary
}

// Provenance records which fallback stage supplied a visual
type Provenance string

const (
	ProvenancePageMetadata Provenance = "page-metadata-image"
	ProvenanceInPage       Provenance = "in-page-search"
	ProvenanceStockSearch  Provenance = "stock-search"
	ProvenanceNone         Provenance = "none"
)

// VisualResolutionResult is diagnostic output of the visual resolver
type VisualResolutionResult struct {
	ImageURL   string     `json:"image_url,omitempty"`
	Provenance Provenance `json:"provenance"`
}

// ClipSpec holds everything needed to render one item's clip
type ClipSpec struct {
	ItemID     string     `json:"item_id"`
	Title      string     `json:"title"`
	VisualPath string     `json:"visual_path"`
	AudioPath  string     `json:"audio_path"`
	Duration   float64    `json:"duration"`
	Provenance Provenance `json:"provenance"`
	ClipPath   string     `json:"clip_path,omitempty"`
}

// PipelineState tracks the full state of one pipeline run
type PipelineState struct {
	RunID           string     `json:"run_id"`
	StartedAt       string     `json:"started_at"`
	CompletedAt     string     `json:"completed_at"`
	Segment         string     `json:"segment"`
	Items           []NewsItem `json:"items"`
	Clips           []ClipSpec `json:"clips"`
	VideoFile       string     `json:"video_file"`
	DescriptionFile string     `json:"description_file"`
	YouTubeURL      string     `json:"youtube_url,omitempty"`
	YouTubeID       string     `json:"youtube_id,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// VideoMetadata is everything the upload stage needs besides the video file
type VideoMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	CategoryID  string   `json:"category_id"`
	Visibility  string   `json:"visibility"`
}
