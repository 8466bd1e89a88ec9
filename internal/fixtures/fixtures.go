// Package fixtures is the regression oracle for routing changes.
//
// Every row pairs a literal message with the specialist it must reach. Any
// registry or scoring change that flips a row is a breaking change and needs
// an explicit review of the row, not a silent edit.
package fixtures

import (
	"github.com/aescanero/dago-childcare-router/internal/router"
)

// TestType groups fixtures by the rule they exercise
type TestType string

const (
	TestBasic        TestType = "basic"
	TestNegation     TestType = "negation"
	TestForceRouting TestType = "force_routing"
	TestFallback     TestType = "fallback"
	TestParallel     TestType = "parallel"
	TestSequential   TestType = "sequential"
	TestTieBreak     TestType = "tie_break"
)

// Fixture is one (input, expected destination) row
type Fixture struct {
	Input           string
	ExpectedPrimary string
	TestType        TestType
	ForceRouting    bool
	// SecondaryKeywords are competing keywords present in Input that must not win
	SecondaryKeywords []string
}

// AppliesTo reports whether the row's expectation holds for a strategy kind.
// Keyword routing is held to every row. Intent routing has no force, fan-out
// or weighting layers, so it is only held to rows without competing keywords.
func (f Fixture) AppliesTo(kind router.Kind) bool {
	switch kind {
	case router.KindKeyword:
		return true
	case router.KindIntent:
		switch f.TestType {
		case TestParallel, TestSequential, TestTieBreak:
			return false
		}
		return len(f.SecondaryKeywords) == 0
	default:
		return false
	}
}

// All returns the fixture table
func All() []Fixture {
	out := make([]Fixture, len(table))
	copy(out, table)
	return out
}

var table = []Fixture{
	// Nutrition
	{
		Input:           "What should I do when my baby won't eat the leftover weaning food?",
		ExpectedPrimary: "nutrition_specialist",
		TestType:        TestNegation,
	},
	{
		Input:           "What to do when my child won't eat",
		ExpectedPrimary: "nutrition_specialist",
		TestType:        TestNegation,
	},
	{
		Input:           "Any meal ideas for a picky eater?",
		ExpectedPrimary: "nutrition_specialist",
		TestType:        TestBasic,
	},

	// Sleep
	{
		Input:           "My 10-month-old has severe night crying every night",
		ExpectedPrimary: "sleep_specialist",
		TestType:        TestBasic,
	},
	{
		Input:           "My baby fell asleep during the nap",
		ExpectedPrimary: "sleep_specialist",
		TestType:        TestBasic,
	},

	// Development
	{
		Input:           "When should my baby start crawling and walking?",
		ExpectedPrimary: "development_specialist",
		TestType:        TestBasic,
	},

	// Health
	{
		Input:           "My daughter has a runny nose and a cough",
		ExpectedPrimary: "health_specialist",
		TestType:        TestBasic,
	},
	{
		Input:           "My baby has a 38°C fever since this morning",
		ExpectedPrimary: "health_specialist",
		TestType:        TestForceRouting,
		ForceRouting:    true,
	},
	{
		Input:             "My baby won't eat and has a 38°C fever",
		ExpectedPrimary:   "health_specialist",
		TestType:          TestForceRouting,
		ForceRouting:      true,
		SecondaryKeywords: []string{"won't eat"},
	},
	{
		Input:             "She fell off the bed and hit her head and now has a seizure",
		ExpectedPrimary:   "health_specialist",
		TestType:          TestForceRouting,
		ForceRouting:      true,
		SecondaryKeywords: []string{"fell off", "hit her head"},
	},

	// Behavior
	{
		Input:           "How do I handle my toddler's tantrum and hitting?",
		ExpectedPrimary: "behavior_specialist",
		TestType:        TestBasic,
	},

	// Play and learning
	{
		Input:           "What toy or game is good for a two year old?",
		ExpectedPrimary: "play_learning_specialist",
		TestType:        TestBasic,
	},

	// Safety
	{
		Input:           "My baby fell and hit her head on the floor",
		ExpectedPrimary: "safety_specialist",
		TestType:        TestForceRouting,
		ForceRouting:    true,
	},
	{
		Input:             "He started choking on a puree snack",
		ExpectedPrimary:   "safety_specialist",
		TestType:          TestForceRouting,
		ForceRouting:      true,
		SecondaryKeywords: []string{"puree", "snack"},
	},

	// Work and life
	{
		Input:           "Should I put my baby in daycare when I return to work?",
		ExpectedPrimary: "work_life_specialist",
		TestType:        TestBasic,
	},

	// Mental care
	{
		Input:           "I feel overwhelmed and exhausted since the birth",
		ExpectedPrimary: "mental_care_specialist",
		TestType:        TestBasic,
	},
	{
		Input:             "I'm not stressed at all, just asking about naps",
		ExpectedPrimary:   "mental_care_specialist",
		TestType:          TestNegation,
		SecondaryKeywords: []string{"nap"},
	},

	// Fallback
	{
		Input:           "I'd like a childcare consultation, please.",
		ExpectedPrimary: "coordinator",
		TestType:        TestFallback,
	},
	{
		Input:           "",
		ExpectedPrimary: "coordinator",
		TestType:        TestFallback,
	},

	// Fan-out
	{
		Input:             "Please comprehensively analyze my child's development",
		ExpectedPrimary:   "parallel",
		TestType:          TestParallel,
		SecondaryKeywords: []string{"development"},
	},
	{
		Input:             "Walk me through sleep training step by step",
		ExpectedPrimary:   "sequential",
		TestType:          TestSequential,
		SecondaryKeywords: []string{"sleep training", "sleep"},
	},

	// Equal scores resolve to the smallest specialist id
	{
		Input:             "Meal time near the crib",
		ExpectedPrimary:   "nutrition_specialist",
		TestType:          TestTieBreak,
		SecondaryKeywords: []string{"crib"},
	},
}
