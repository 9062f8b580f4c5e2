// Package similarity scores diarization centroids against stored voice
// fingerprints.
//
// Scores are cosine similarities in [-1, 1]. A candidate counts as a match
// only when its score is strictly above the configured threshold; the
// strong and medium bands are labels for display and never change which
// candidates match.
//
//	m := similarity.NewMatcher(similarity.Config{})
//	res := m.Match(centroid, entries)
//	if best, ok := res.Best(); ok {
//	    fmt.Println(best.PersonID, best.Similarity, best.Band)
//	}
package similarity
