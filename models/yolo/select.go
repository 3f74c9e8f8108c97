package yolo

// bestClass returns the index and value of the maximal score. The first index wins on
// exact ties.
func bestClass(scores []float32) (int, float32) {
	classID := 0
	maxScore := scores[0]
	for j := 1; j < len(scores); j++ {
		if scores[j] > maxScore {
			maxScore = scores[j]
			classID = j
		}
	}
	return classID, maxScore
}

// score applies the two-stage confidence filter to a record.
//
// Objectness is checked first so background records skip the class scan. Comparisons
// are written so that NaN scores are always rejected.
//
// Returns:
//   - float32: objectness x best class score.
//   - int: the best class index.
//   - bool: false when the record is filtered out.
func (c Config) score(r Record) (float32, int, bool) {
	objectness := r.Objectness()
	if !(objectness >= c.objectnessCutoff()) {
		return 0, 0, false
	}

	classID, maxScore := bestClass(r.ClassScores())
	confidence := objectness * maxScore
	if !(confidence >= c.ConfidenceThreshold) {
		return 0, 0, false
	}

	return confidence, classID, true
}
