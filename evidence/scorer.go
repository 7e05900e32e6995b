package evidence

// Scorer judges how well a fact description covers a criterion's stated
// behavior, returning a value in [0, 1]. Implementations must be pure and
// deterministic so audit runs stay reproducible. The built-in TokenScorer
// can be swapped for an embedding-based implementation without touching
// resolution or classification.
type Scorer interface {
	Score(criterionText, factText string) float64
}

// TokenScorer scores by Jaccard index over normalized token sets.
type TokenScorer struct{}

func (TokenScorer) Score(criterionText, factText string) float64 {
	a := tokenSet(Tokens(criterionText))
	b := tokenSet(Tokens(factText))
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for t := range a {
		if b[t] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
