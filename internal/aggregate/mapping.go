package aggregate

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidMapping = errors.New("invalid epic mapping")
	ErrAmbiguousEpic  = errors.New("issue matches more than one mapped epic")
)

// EpicRule assigns every issue whose parent epic summary contains Epic to Team.
type EpicRule struct {
	Epic string `yaml:"epic"`
	Team string `yaml:"team"`
}

// EpicMapping is a validated epic-to-team lookup table. The unmapped team
// receives whatever the mapped teams do not account for.
type EpicMapping struct {
	rules        []EpicRule
	teams        []string
	unmappedTeam string
}

func NewEpicMapping(teams []string, unmappedTeam string, rules []EpicRule) (*EpicMapping, error) {
	known := make(map[string]bool, len(teams))
	var cleanTeams []string
	for _, team := range teams {
		team = strings.TrimSpace(team)
		if team == "" {
			return nil, fmt.Errorf("%w: empty team name", ErrInvalidMapping)
		}
		if known[team] {
			return nil, fmt.Errorf("%w: duplicate team %q", ErrInvalidMapping, team)
		}
		known[team] = true
		cleanTeams = append(cleanTeams, team)
	}

	unmappedTeam = strings.TrimSpace(unmappedTeam)
	if unmappedTeam == "" {
		return nil, fmt.Errorf("%w: unmapped team is not set", ErrInvalidMapping)
	}
	if !known[unmappedTeam] {
		return nil, fmt.Errorf("%w: unmapped team %q is not in the team list", ErrInvalidMapping, unmappedTeam)
	}

	cleanRules := make([]EpicRule, 0, len(rules))
	for _, rule := range rules {
		rule.Epic = strings.TrimSpace(rule.Epic)
		rule.Team = strings.TrimSpace(rule.Team)
		if rule.Epic == "" {
			return nil, fmt.Errorf("%w: empty epic name for team %q", ErrInvalidMapping, rule.Team)
		}
		if !known[rule.Team] {
			return nil, fmt.Errorf("%w: epic %q maps to unknown team %q", ErrInvalidMapping, rule.Epic, rule.Team)
		}
		if rule.Team == unmappedTeam {
			return nil, fmt.Errorf("%w: epic %q maps to the unmapped team %q", ErrInvalidMapping, rule.Epic, rule.Team)
		}
		for _, prev := range cleanRules {
			if prev.Epic == rule.Epic {
				return nil, fmt.Errorf("%w: epic %q is mapped more than once", ErrInvalidMapping, rule.Epic)
			}
			// An issue under the longer epic would always match both entries.
			if strings.Contains(prev.Epic, rule.Epic) || strings.Contains(rule.Epic, prev.Epic) {
				return nil, fmt.Errorf("%w: epic names %q and %q overlap", ErrInvalidMapping, prev.Epic, rule.Epic)
			}
		}
		cleanRules = append(cleanRules, rule)
	}

	return &EpicMapping{
		rules:        cleanRules,
		teams:        cleanTeams,
		unmappedTeam: unmappedTeam,
	}, nil
}

func (m *EpicMapping) Rules() []EpicRule {
	return append([]EpicRule(nil), m.rules...)
}

func (m *EpicMapping) Teams() []string {
	return append([]string(nil), m.teams...)
}

func (m *EpicMapping) UnmappedTeam() string {
	return m.unmappedTeam
}

// Match returns the rule for an issue's parent epic summary. ok is false when
// no rule matches; an error is returned when more than one does.
func (m *EpicMapping) Match(parentSummary string) (EpicRule, bool, error) {
	if parentSummary == "" {
		return EpicRule{}, false, nil
	}
	var matched []EpicRule
	for _, rule := range m.rules {
		if strings.Contains(parentSummary, rule.Epic) {
			matched = append(matched, rule)
		}
	}
	switch len(matched) {
	case 0:
		return EpicRule{}, false, nil
	case 1:
		return matched[0], true, nil
	default:
		names := make([]string, 0, len(matched))
		for _, r := range matched {
			names = append(names, r.Epic)
		}
		return EpicRule{}, false, fmt.Errorf("%w: %q matches %s", ErrAmbiguousEpic, parentSummary, strings.Join(names, ", "))
	}
}
