package models

// VideoSource is a playable stream for an episode
type VideoSource struct {
	URL     string `json:"url"`
	Quality string `json:"quality"`
	Type    string `json:"type"`
}

// Subtitle represents a subtitle track for video playback
type Subtitle struct {
	URL      string `json:"url"`
	Language string `json:"language"`
	Label    string `json:"label"`
}

// EpisodeSources holds the streams and subtitle tracks of one episode.
// Both slices are non-nil, empty when nothing could be resolved.
type EpisodeSources struct {
	Sources   []VideoSource `json:"sources"`
	Subtitles []Subtitle    `json:"subtitles"`
}

// EmptySources returns an EpisodeSources with empty, non-nil slices
func EmptySources() EpisodeSources {
	return EpisodeSources{
		Sources:   []VideoSource{},
		Subtitles: []Subtitle{},
	}
}
