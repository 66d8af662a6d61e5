package history

import (
	"sort"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/tuneswipe/tuneswipe-api/internal/db"
)

// Clustering parameters for the taste profile.
const (
	// minSongsForProfile is the fewest liked songs worth clustering; below
	// this the groups would be noise.
	minSongsForProfile = 6

	// maxGroups caps the number of taste groups.
	maxGroups = 3

	// maxDurationMs normalizes track duration into [0, 1]; ten minutes
	// covers virtually all popular music.
	maxDurationMs = 600_000
)

// Profile is a user's aggregate listening taste derived from liked songs.
type Profile struct {
	TotalLiked int          `json:"total_liked"`
	TopGenres  []GenreCount `json:"top_genres"`
	Groups     []TasteGroup `json:"groups"`
}

// GenreCount is a genre with the number of liked songs carrying it.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// TasteGroup is one cluster of liked songs with similar popularity and
// length, labeled by its dominant genre.
type TasteGroup struct {
	Label             string   `json:"label"`
	SongCount         int      `json:"song_count"`
	AveragePopularity float64  `json:"average_popularity"`
	AverageDurationMs float64  `json:"average_duration_ms"`
	SampleTitles      []string `json:"sample_titles"`
}

// songObservation wraps a liked song to implement clusters.Observation.
type songObservation struct {
	song   *db.Song
	coords clusters.Coordinates
}

func (o songObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o songObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// songCoordinates maps a song into the clustering space: normalized
// popularity and normalized duration.
func songCoordinates(song *db.Song) clusters.Coordinates {
	duration := 0.0
	if song.DurationMs != nil {
		duration = min(float64(*song.DurationMs)/maxDurationMs, 1.0)
	}
	return clusters.Coordinates{
		float64(song.Popularity) / 100,
		duration,
	}
}

// buildProfile groups liked songs into taste groups with k-means.
func buildProfile(liked []db.Song) *Profile {
	profile := &Profile{
		TotalLiked: len(liked),
		TopGenres:  topGenres(liked),
	}
	if len(liked) < minSongsForProfile {
		return profile
	}

	var obs clusters.Observations
	for i := range liked {
		obs = append(obs, songObservation{
			song:   &liked[i],
			coords: songCoordinates(&liked[i]),
		})
	}

	groups := min(maxGroups, len(liked)/2)
	km := kmeans.New()
	result, err := km.Partition(obs, groups)
	if err != nil {
		// A degenerate distribution (all points identical) is the common
		// cause; the flat profile still stands on its own.
		return profile
	}

	for _, cluster := range result {
		if len(cluster.Observations) == 0 {
			continue
		}
		profile.Groups = append(profile.Groups, summarizeCluster(cluster))
	}
	sort.Slice(profile.Groups, func(i, j int) bool {
		return profile.Groups[i].SongCount > profile.Groups[j].SongCount
	})
	return profile
}

// summarizeCluster labels a cluster by its dominant genre and averages its
// coordinates back into human units.
func summarizeCluster(cluster clusters.Cluster) TasteGroup {
	var (
		popularitySum float64
		durationSum   float64
		genreCounts   = make(map[string]int)
		titles        []string
	)
	for _, o := range cluster.Observations {
		song := o.(songObservation).song
		popularitySum += float64(song.Popularity)
		if song.DurationMs != nil {
			durationSum += float64(*song.DurationMs)
		}
		if song.Genre != nil {
			genreCounts[*song.Genre]++
		}
		if len(titles) < 3 {
			titles = append(titles, song.Title)
		}
	}

	n := float64(len(cluster.Observations))
	return TasteGroup{
		Label:             dominantGenre(genreCounts),
		SongCount:         len(cluster.Observations),
		AveragePopularity: popularitySum / n,
		AverageDurationMs: durationSum / n,
		SampleTitles:      titles,
	}
}

// dominantGenre picks the most common genre, ties broken alphabetically.
func dominantGenre(counts map[string]int) string {
	label := "mixed"
	best := 0
	for genre, count := range counts {
		if count > best || (count == best && genre < label) {
			label = genre
			best = count
		}
	}
	return label
}

// topGenres counts liked songs per genre, most liked first.
func topGenres(liked []db.Song) []GenreCount {
	counts := make(map[string]int)
	for i := range liked {
		if liked[i].Genre != nil {
			counts[*liked[i].Genre]++
		}
	}

	out := make([]GenreCount, 0, len(counts))
	for genre, count := range counts {
		out = append(out, GenreCount{Genre: genre, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Genre < out[j].Genre
	})
	return out
}
