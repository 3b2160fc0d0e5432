package matching

import (
	"fmt"
	"log/slog"
	"strings"

	"reconciler/internal/logging"
	"reconciler/internal/registry"
	"reconciler/internal/textutil"
)

// Tier names the rule that selected a candidate.
type Tier string

const (
	TierExact                 Tier = "exact"
	TierContainment           Tier = "containment"
	TierLetterOverlap         Tier = "letter_overlap"
	TierSingleCandidateForced Tier = "single_candidate_forced"
	TierNone                  Tier = "none"
)

// Result is the outcome of disambiguating one record key.
type Result struct {
	Candidate      *registry.Candidate
	Tier           Tier
	Score          float64
	CandidateCount int
}

// Matched reports whether a candidate was selected.
func (r Result) Matched() bool {
	return r.Candidate != nil
}

// MultipleCandidates reports whether the selection was made among several
// candidates without an exact match, which the annotation flags for review.
func (r Result) MultipleCandidates() bool {
	return r.Tier != TierExact && r.CandidateCount > 1
}

// Select picks one candidate for key. Rules apply in order and the first that
// yields a candidate wins:
//
//  1. exact: a candidate whose normalized name equals the normalized key
//  2. containment: the shortest normalized name containing the normalized key
//  3. letter overlap: the largest shared distinct-letter set, ties going to
//     the most recent reference date (undated candidates last)
//
// A lone candidate is always selected; when it only qualifies through letter
// overlap the tier is reported as TierSingleCandidateForced. Ties that survive
// every rule resolve to the earliest candidate in registry order, so Select is
// deterministic for a fixed input.
func Select(logger *slog.Logger, key string, candidates []registry.Candidate) Result {
	if logger == nil {
		logger = logging.NewNop()
	}
	normalizedKey := textutil.Normalize(key)
	result := Result{Tier: TierNone, CandidateCount: len(candidates)}

	if len(candidates) == 0 {
		logDecision(logger, key, normalizedKey, result, "no candidates returned")
		return result
	}

	reason := ""
	switch {
	case normalizedKey == "":
		reason = "key normalizes to empty; only letter overlap applies"
	default:
		if idx := exactMatch(normalizedKey, candidates); idx >= 0 {
			result = choose(result, candidates, idx, TierExact, 1.0)
			logDecision(logger, key, normalizedKey, result, "normalized names equal")
			return result
		}
		if idx := closestContainment(normalizedKey, candidates); idx >= 0 {
			score := float64(len(normalizedKey)) / float64(len(candidates[idx].NormalizedName))
			result = choose(result, candidates, idx, TierContainment, score)
			logDecision(logger, key, normalizedKey, result, "key contained in shortest candidate name")
			return result
		}
		reason = "no exact or containment match"
	}

	idx, common := bestLetterOverlap(normalizedKey, candidates)
	score := 0.0
	if keyLetters := textutil.Letters(normalizedKey).Len(); keyLetters > 0 {
		score = float64(common) / float64(keyLetters)
	}
	tier := TierLetterOverlap
	if len(candidates) == 1 {
		tier = TierSingleCandidateForced
		reason = "single candidate accepted regardless of match quality"
	} else {
		reason = fmt.Sprintf("%s; %d shared letters", reason, common)
	}
	result = choose(result, candidates, idx, tier, score)
	logDecision(logger, key, normalizedKey, result, reason)
	return result
}

func choose(result Result, candidates []registry.Candidate, idx int, tier Tier, score float64) Result {
	selected := candidates[idx]
	result.Candidate = &selected
	result.Tier = tier
	result.Score = score
	return result
}

func exactMatch(normalizedKey string, candidates []registry.Candidate) int {
	for idx, candidate := range candidates {
		if candidate.NormalizedName == normalizedKey {
			return idx
		}
	}
	return -1
}

func closestContainment(normalizedKey string, candidates []registry.Candidate) int {
	best := -1
	for idx, candidate := range candidates {
		if !strings.Contains(candidate.NormalizedName, normalizedKey) {
			continue
		}
		if best < 0 || len(candidate.NormalizedName) < len(candidates[best].NormalizedName) {
			best = idx
		}
	}
	return best
}

func bestLetterOverlap(normalizedKey string, candidates []registry.Candidate) (int, int) {
	keyLetters := textutil.Letters(normalizedKey)
	best, bestCommon := -1, -1
	for idx, candidate := range candidates {
		common := (keyLetters & textutil.Letters(candidate.NormalizedName)).Len()
		switch {
		case common > bestCommon:
			best, bestCommon = idx, common
		case common == bestCommon && moreRecent(candidate, candidates[best]):
			best = idx
		}
	}
	return best, bestCommon
}

// moreRecent reports whether a is strictly more recent than b. Undated
// candidates sort after dated ones.
func moreRecent(a, b registry.Candidate) bool {
	switch {
	case !a.HasReferenceDate():
		return false
	case !b.HasReferenceDate():
		return true
	default:
		return a.ReferenceDate.After(b.ReferenceDate)
	}
}

func logDecision(logger *slog.Logger, key, normalizedKey string, result Result, reason string) {
	selected := ""
	if result.Candidate != nil {
		selected = result.Candidate.RawName
	}
	attrs := logging.CandidateMatchAttrs(string(result.Tier), selected, reason, result.CandidateCount, result.Score)
	attrs = append(attrs,
		logging.String("key", key),
		logging.String("key_normalized", normalizedKey),
		logging.Bool("multiple_candidates", result.MultipleCandidates()),
	)
	logger.Info("candidate match decision", logging.Args(attrs...)...)
}
