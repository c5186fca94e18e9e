package achievements

import (
	"errors"
	"fmt"
	"time"
)

// Storage keys, shared with the browser scripts that used to own this state.
const (
	UnlockedKey = "unlockedAchievements"
	ViewedKey   = "viewedRoadmaps"
)

type Trigger string

const (
	// TriggerDistinct counts distinct resource ids seen this session.
	TriggerDistinct Trigger = "distinct"
	// TriggerBurst counts events that keep arriving within Window of each other.
	TriggerBurst Trigger = "burst"
	// TriggerPredicate checks the local hour once, when the tracker starts.
	TriggerPredicate Trigger = "predicate"
	// TriggerOnce unlocks on the first qualifying event.
	TriggerOnce Trigger = "once"
)

type EventKind string

const (
	EventResourceView  EventKind = "resource_view"
	EventClick         EventKind = "click"
	EventConsoleSecret EventKind = "console_secret"
)

const (
	RoadmapExplorer = "roadmap-explorer"
	NightOwl        = "night-owl"
	SpeedClicker    = "speed-clicker"
	ConsoleExplorer = "console-explorer"
)

// HourRange is a half-open interval of local hours. From > To wraps past
// midnight.
type HourRange struct {
	From int `yaml:"from" json:"from"`
	To   int `yaml:"to" json:"to"`
}

func (h HourRange) Contains(hour int) bool {
	if h.From <= h.To {
		return hour >= h.From && hour < h.To
	}
	return hour >= h.From || hour < h.To
}

type Definition struct {
	ID          string        `yaml:"id" json:"id"`
	Name        string        `yaml:"name" json:"name"`
	Description string        `yaml:"description" json:"description"`
	Icon        string        `yaml:"icon,omitempty" json:"icon,omitempty"`
	Trigger     Trigger       `yaml:"trigger" json:"trigger"`
	Event       EventKind     `yaml:"event,omitempty" json:"event,omitempty"`
	Threshold   int           `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	Window      time.Duration `yaml:"window,omitempty" json:"window,omitempty"`
	Hours       *HourRange    `yaml:"hours,omitempty" json:"hours,omitempty"`
}

// Builtin is the achievement table shipped with EdgeRoute.
var Builtin = []Definition{
	{
		ID:          RoadmapExplorer,
		Name:        "Roadmap Explorer",
		Description: "View 5 different roadmaps in a single session",
		Icon:        "🧭",
		Trigger:     TriggerDistinct,
		Event:       EventResourceView,
		Threshold:   5,
	},
	{
		ID:          NightOwl,
		Name:        "Night Owl",
		Description: "Use the site between 12 AM and 4 AM",
		Icon:        "🦉",
		Trigger:     TriggerPredicate,
		Hours:       &HourRange{From: 0, To: 4},
	},
	{
		ID:          SpeedClicker,
		Name:        "Speed Clicker",
		Description: "Click 50 times in 10 seconds",
		Icon:        "⚡",
		Trigger:     TriggerBurst,
		Event:       EventClick,
		Threshold:   50,
		Window:      10 * time.Second,
	},
	{
		ID:          ConsoleExplorer,
		Name:        "Console Explorer",
		Description: "Call the secret console function",
		Icon:        "💻",
		Trigger:     TriggerOnce,
		Event:       EventConsoleSecret,
	},
}

var ErrInvalidDefinition = errors.New("invalid achievement definition")

// Validate checks a definition table for duplicate ids and incomplete
// trigger settings.
func Validate(defs []Definition) error {
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("%w: missing id", ErrInvalidDefinition)
		}
		if seen[d.ID] {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidDefinition, d.ID)
		}
		seen[d.ID] = true

		switch d.Trigger {
		case TriggerDistinct:
			if d.Event == "" || d.Threshold <= 0 {
				return fmt.Errorf("%w: %s needs an event and a positive threshold", ErrInvalidDefinition, d.ID)
			}
		case TriggerBurst:
			if d.Event == "" || d.Threshold <= 0 || d.Window <= 0 {
				return fmt.Errorf("%w: %s needs an event, a positive threshold and a window", ErrInvalidDefinition, d.ID)
			}
		case TriggerPredicate:
			if d.Hours == nil {
				return fmt.Errorf("%w: %s needs an hour range", ErrInvalidDefinition, d.ID)
			}
		case TriggerOnce:
			if d.Event == "" {
				return fmt.Errorf("%w: %s needs an event", ErrInvalidDefinition, d.ID)
			}
		default:
			return fmt.Errorf("%w: %s has unknown trigger %q", ErrInvalidDefinition, d.ID, d.Trigger)
		}
	}
	return nil
}

// Achievement is a point-in-time view of one tracked achievement.
type Achievement struct {
	Definition
	Unlocked bool `json:"unlocked"`
	Counter  int  `json:"counter"`
}

// Payload carries event details. Only resource views use it today.
type Payload struct {
	ResourceID string
}

// Unlocked is the notification sent once per achievement.
type Unlocked struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon,omitempty"`
	At          time.Time `json:"at"`
}
