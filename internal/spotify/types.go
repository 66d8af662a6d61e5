package spotify

// Track contains the track metadata TuneSwipe keeps from a catalog search.
type Track struct {
	SpotifyID   string
	URI         string
	Title       string
	Artist      string // first credited artist
	Album       string
	AlbumCover  string
	ReleaseDate string
	ExternalURL string
	Popularity  int
	DurationMs  int
	Explicit    bool
}
