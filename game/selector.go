package game

import (
	"fmt"
	"math/rand"

	"github.com/bitterfly/go-chaos/kategorie/schema"
)

// Alphabet holds the letters a round can start with. Q, V, X and Y are left out.
const Alphabet = "ABCDEFGHIJKLMNOPRSTUWZ"

var ClassicCategories = []string{
	"Państwo", "Miasto", "Imię", "Zwierzę", "Roślina", "Rzecz", "Zawód",
}

var Catalog = []string{
	"Państwo", "Miasto", "Imię", "Zwierzę", "Roślina", "Rzecz", "Zawód",
	"Kolor", "Marka Samochodu", "Pierwiastek", "Tytuł Filmu", "Danie",
	"Część Ciała", "Stolica", "Instrument Muzyczny", "Sport",
	"Rzeka", "Aktor", "Piosenkarz",
}

type Selection struct {
	Letter     string
	Categories []string
}

// SelectRound draws the letter and categories of a round. It never fails:
// misconfigured settings fall back to the classic list.
func SelectRound(settings schema.Settings, rng *rand.Rand) Selection {
	letter := string(Alphabet[rng.Intn(len(Alphabet))])

	categories := append([]string{}, ClassicCategories...)
	switch settings.GameMode {
	case schema.ModeCustom:
		if len(settings.CustomCategories) > 0 {
			categories = append([]string{}, settings.CustomCategories...)
		}
	case schema.ModeSingle:
		categories = []string{Catalog[rng.Intn(len(Catalog))]}
	case schema.ModeFullRandom:
		categories = shuffled(rng, 5+rng.Intn(4))
	case schema.ModePlayerSelected:
		// No lobby submissions exist yet, so this draws like FULL_RANDOM with fewer categories.
		categories = shuffled(rng, 4+rng.Intn(3))
	}

	return Selection{Letter: letter, Categories: categories}
}

func shuffled(rng *rand.Rand, count int) []string {
	res := make([]string, 0, count)
	for _, i := range rng.Perm(len(Catalog))[:count] {
		res = append(res, Catalog[i])
	}
	return res
}

// ValidateSettings reports settings that SelectRound or the engine would have
// to paper over. Callers log the result; nothing is rejected because of it.
func ValidateSettings(settings schema.Settings) error {
	switch settings.GameMode {
	case schema.ModeClassic, schema.ModeSingle, schema.ModeFullRandom, schema.ModePlayerSelected:
	case schema.ModeCustom:
		if len(settings.CustomCategories) == 0 {
			return fmt.Errorf("%w: custom mode without categories", ErrInvalidConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown game mode %q", ErrInvalidConfiguration, settings.GameMode)
	}

	switch settings.ScoringVariant {
	case schema.VariantStandard, schema.VariantHardcore, schema.VariantEasy:
	default:
		return fmt.Errorf("%w: unknown scoring variant %q", ErrInvalidConfiguration, settings.ScoringVariant)
	}

	if settings.RoundsTotal <= 0 || settings.TimePerRound <= 0 || settings.MaxPlayers <= 0 {
		return fmt.Errorf("%w: rounds, time and max players must be positive", ErrInvalidConfiguration)
	}
	return nil
}
