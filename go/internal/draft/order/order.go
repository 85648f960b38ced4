package order

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/google/uuid"
	"github.com/mcdev12/draftengine/go/internal/draft/drafterr"
	"github.com/mcdev12/draftengine/go/internal/models"
)

// Source supplies randomness for the randomized mode. *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// Options carries the mode-specific inputs of Generate.
type Options struct {
	// BaseOrder is the caller supplied round 1 order for custom mode.
	BaseOrder []uuid.UUID
	// RoundOverrides replaces every round explicitly for custom mode. When set it must
	// hold exactly one permutation of the team set per round.
	RoundOverrides [][]uuid.UUID
	// Existing is a previously generated order for the session. Randomized mode returns
	// it untouched so the base order stays stable across calls.
	Existing *models.DraftOrder
	// PickCount is the number of valid picks already committed for the session.
	PickCount int
	// Rand defaults to the package level generator.
	Rand Source
	// ThirdRoundReversal makes round 3 repeat round 2's direction.
	ThirdRoundReversal bool
}

// Generate computes the per-round team order for a session. The result has exactly
// rounds entries, each a permutation of teamIDs.
func Generate(teamIDs []uuid.UUID, mode models.DraftMode, rounds int, opts Options) ([][]uuid.UUID, error) {
	if rounds < 1 {
		return nil, fmt.Errorf("%w: rounds must be positive, got %d", drafterr.ErrConfiguration, rounds)
	}
	if err := validateTeams(teamIDs); err != nil {
		return nil, err
	}

	switch mode {
	case models.DraftModeStandard:
		out := make([][]uuid.UUID, rounds)
		for r := range out {
			out[r] = slices.Clone(teamIDs)
		}
		return out, nil

	case models.DraftModeSerpentine:
		return Extend(teamIDs, rounds, opts.ThirdRoundReversal), nil

	case models.DraftModeCustom:
		if len(opts.RoundOverrides) > 0 {
			return customOverrides(teamIDs, rounds, opts.RoundOverrides)
		}
		if !isPermutation(teamIDs, opts.BaseOrder) {
			return nil, fmt.Errorf("%w: custom order must contain each team exactly once", drafterr.ErrConfiguration)
		}
		return Extend(opts.BaseOrder, rounds, opts.ThirdRoundReversal), nil

	case models.DraftModeRandomized:
		// order is immutable once drafting has begun
		if opts.PickCount > 0 {
			return nil, fmt.Errorf("%w: cannot randomize order after %d picks", drafterr.ErrConfiguration, opts.PickCount)
		}
		if opts.Existing != nil && len(opts.Existing.Base()) > 0 {
			out := make([][]uuid.UUID, len(opts.Existing.Rounds))
			for r, ids := range opts.Existing.Rounds {
				out[r] = slices.Clone(ids)
			}
			return out, nil
		}
		base := shuffle(teamIDs, opts.Rand)
		return Extend(base, rounds, opts.ThirdRoundReversal), nil

	default:
		return nil, fmt.Errorf("%w: unknown draft mode %q", drafterr.ErrConfiguration, mode)
	}
}

// Extend builds a serpentine order of the given number of rounds from base.
func Extend(base []uuid.UUID, rounds int, thirdRoundReversal bool) [][]uuid.UUID {
	out := make([][]uuid.UUID, rounds)
	for r := 1; r <= rounds; r++ {
		out[r-1] = Round(base, r, thirdRoundReversal)
	}
	return out
}

// Round returns the serpentine order of a single 1-based round.
func Round(base []uuid.UUID, round int, thirdRoundReversal bool) []uuid.UUID {
	ids := slices.Clone(base)
	if reversed(round, thirdRoundReversal) {
		slices.Reverse(ids)
	}
	return ids
}

func reversed(round int, thirdRoundReversal bool) bool {
	if !thirdRoundReversal || round < 3 {
		return round%2 == 0
	}
	// round 3 runs the same way as round 2, alternation resumes after
	return round%2 == 1
}

// shuffle is a Fisher-Yates shuffle over a copy of ids.
func shuffle(ids []uuid.UUID, src Source) []uuid.UUID {
	out := slices.Clone(ids)
	for i := len(out) - 1; i > 0; i-- {
		var j int
		if src != nil {
			j = src.IntN(i + 1)
		} else {
			j = rand.IntN(i + 1)
		}
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func customOverrides(teamIDs []uuid.UUID, rounds int, overrides [][]uuid.UUID) ([][]uuid.UUID, error) {
	if len(overrides) != rounds {
		return nil, fmt.Errorf("%w: %d round overrides for %d rounds", drafterr.ErrConfiguration, len(overrides), rounds)
	}
	out := make([][]uuid.UUID, rounds)
	for r, ids := range overrides {
		if !isPermutation(teamIDs, ids) {
			return nil, fmt.Errorf("%w: round %d override must contain each team exactly once", drafterr.ErrConfiguration, r+1)
		}
		out[r] = slices.Clone(ids)
	}
	return out, nil
}

func validateTeams(teamIDs []uuid.UUID) error {
	if len(teamIDs) == 0 {
		return fmt.Errorf("%w: no teams", drafterr.ErrConfiguration)
	}
	seen := make(map[uuid.UUID]struct{}, len(teamIDs))
	for _, id := range teamIDs {
		if id == uuid.Nil {
			return fmt.Errorf("%w: nil team id", drafterr.ErrConfiguration)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate team id %s", drafterr.ErrConfiguration, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func isPermutation(teamIDs, candidate []uuid.UUID) bool {
	if len(candidate) != len(teamIDs) {
		return false
	}
	want := make(map[uuid.UUID]int, len(teamIDs))
	for _, id := range teamIDs {
		want[id]++
	}
	for _, id := range candidate {
		if want[id] == 0 {
			return false
		}
		want[id]--
	}
	return true
}
