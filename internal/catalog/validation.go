package catalog

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/yourusername/banker-pool/internal/models"
)

var structValidator = validator.New()

// RaceProblems checks a race card for referential integrity and returns every problem found
func RaceProblems(races []models.Race) []string {
	var problems []string
	if len(races) == 0 {
		return []string{"race list is empty"}
	}

	raceIDs := make(map[string]bool, len(races))
	for i := range races {
		race := &races[i]
		label := fmt.Sprintf("race %d", i+1)
		if race.ID != "" {
			label = fmt.Sprintf("race %q", race.ID)
		}

		if err := structValidator.Struct(race); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", label, err))
		}

		if strings.TrimSpace(race.ID) == "" {
			problems = append(problems, fmt.Sprintf("%s: missing id", label))
		} else if raceIDs[race.ID] {
			problems = append(problems, fmt.Sprintf("%s: duplicate race id", label))
		}
		raceIDs[race.ID] = true

		numbers := make(map[int]bool, len(race.Horses))
		for _, horse := range race.Horses {
			if numbers[horse.Number] {
				problems = append(problems, fmt.Sprintf("%s: duplicate horse number %d", label, horse.Number))
			}
			numbers[horse.Number] = true
			if !horse.Odds.GreaterThan(decimal.Zero) {
				problems = append(problems, fmt.Sprintf("%s: horse %d has non-positive odds %s", label, horse.Number, horse.Odds))
			}
		}

		if race.Winner != nil && !numbers[*race.Winner] {
			problems = append(problems, fmt.Sprintf("%s: winner %d is not a horse in the race", label, *race.Winner))
		}
	}
	return problems
}

// ValidateRaces returns an invalid_race_list validation error describing every problem, or nil
func ValidateRaces(races []models.Race) error {
	problems := RaceProblems(races)
	if len(problems) == 0 {
		return nil
	}
	return models.NewValidationError(models.CodeInvalidRaceList, strings.Join(problems, "; "))
}
