package classifier

import (
	"regexp"
	"strings"

	"github.com/yeisme/docuvault/pkg/internal/types"
	nlog "github.com/yeisme/docuvault/pkg/log"
)

// ClassifyByRules scores the text against each profile and returns the best
// candidate, or nil when no profile reaches the candidate floor.
//
// Score per profile: 0.4 * keywordHits/keywordTotal + 0.6 * patternHits/patternTotal,
// each ratio computed only over non-empty lists. Keyword matching is
// case-insensitive substring; patterns are regular expressions. Ties keep the
// earlier profile.
func ClassifyByRules(text string, profiles []Profile) *types.Candidate {
	if text == "" || len(profiles) == 0 {
		return nil
	}

	lower := strings.ToLower(text)

	var best *types.Candidate

	bestScore := 0.0

	for _, p := range profiles {
		if p.Name == "" || (len(p.Keywords) == 0 && len(p.Patterns) == 0) {
			continue
		}

		keywordHits := 0

		for _, kw := range p.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				keywordHits++
			}
		}

		keywordScore := float64(keywordHits) / float64(max(1, len(p.Keywords)))

		patternHits := 0

		for _, pat := range p.Patterns {
			if pat.Regex == "" {
				continue
			}

			re, err := regexp.Compile(pat.Regex)
			if err != nil {
				nlog.Logger().Warn().Str("profile", p.Name).Str("regex", pat.Regex).Msg("invalid profile pattern")

				continue
			}

			if re.MatchString(text) {
				patternHits++
			}
		}

		patternScore := float64(patternHits) / float64(max(1, len(p.Patterns)))

		score := keywordScore*0.4 + patternScore*0.6
		if score > bestScore {
			bestScore = score
			best = &types.Candidate{
				DocType:    p.Name,
				Confidence: score,
				Source:     types.SourceRule,
			}
		}
	}

	if best == nil || best.Confidence < types.RuleCandidateFloor {
		return nil
	}

	return best
}
