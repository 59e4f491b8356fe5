package trust

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Aryiadm/physio-threat-engine/internal/models"
)

// Embedding is the unit-normalised vector of per-metric means over a history.
// Absent metrics contribute 0. Only this aggregate leaves the user's data.
func Embedding(h *models.History) []float64 {
	vec := make([]float64, len(models.AllMetrics))
	for i, m := range models.AllMetrics {
		vals := h.Series(m).Present()
		if len(vals) == 0 {
			continue
		}
		vec[i] = stat.Mean(vals, nil)
	}
	return normalize(vec)
}

// CohortEmbedding pools every cohort record into one mean vector.
func CohortEmbedding(cohort []*models.History) []float64 {
	sums := make([]float64, len(models.AllMetrics))
	counts := make([]int, len(models.AllMetrics))
	for _, h := range cohort {
		for i, m := range models.AllMetrics {
			for _, v := range h.Series(m).Present() {
				sums[i] += v
				counts[i]++
			}
		}
	}
	vec := make([]float64, len(sums))
	for i := range sums {
		if counts[i] > 0 {
			vec[i] = sums[i] / float64(counts[i])
		}
	}
	return normalize(vec)
}

// Federated maps the cosine similarity between the user's and the cohort's
// embeddings from [-1,1] onto [0,1].
func Federated(user *models.History, cohort []*models.History) models.FederatedTrust {
	u := Embedding(user)
	c := CohortEmbedding(cohort)

	sim := floats.Dot(u, c) / (floats.Norm(u, 2)*floats.Norm(c, 2) + 1e-8)
	return models.FederatedTrust{
		UserID:     user.UserID,
		Similarity: sim,
		Score:      clamp01((sim + 1) / 2),
		CohortSize: len(cohort),
	}
}

func normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	floats.Scale(1/(floats.Norm(v, 2)+1e-8), out)
	return out
}
