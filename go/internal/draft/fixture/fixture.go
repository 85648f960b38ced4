// Package fixture loads leagues, teams and the player catalog from a YAML file.
package fixture

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/draftengine/go/internal/models"
	"gopkg.in/yaml.v3"
)

type Team struct {
	ID   uuid.UUID `yaml:"id"`
	Name string    `yaml:"name"`
	// OwnerID is empty for computer run teams.
	OwnerID *uuid.UUID `yaml:"owner_id"`
}

type League struct {
	ID             uuid.UUID `yaml:"id"`
	Name           string    `yaml:"name"`
	CommissionerID uuid.UUID `yaml:"commissioner_id"`
	Season         string    `yaml:"season"`
	Teams          []Team    `yaml:"teams"`
}

type Player struct {
	ID       uuid.UUID `yaml:"id"`
	FullName string    `yaml:"full_name"`
	Position string    `yaml:"position"`
	Value    float64   `yaml:"value"`
}

type Fixture struct {
	Leagues []League `yaml:"leagues"`
	Players []Player `yaml:"players"`
}

// Sink receives seeded rows. Both repository stores implement it.
type Sink interface {
	CreateLeague(ctx context.Context, l models.League) error
	CreateTeam(ctx context.Context, t models.FantasyTeam) error
	UpsertPlayer(ctx context.Context, p models.Player) (bool, error)
}

// Stats counts what Apply wrote.
type Stats struct {
	Leagues         int
	Teams           int
	PlayersInserted int
	PlayersUpdated  int
}

func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes a fixture and checks that every row carries an id. JSON input works too.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	for _, l := range f.Leagues {
		if l.ID == uuid.Nil {
			return nil, fmt.Errorf("league %q has no id", l.Name)
		}
		for _, t := range l.Teams {
			if t.ID == uuid.Nil {
				return nil, fmt.Errorf("team %q in league %q has no id", t.Name, l.Name)
			}
		}
	}
	for _, p := range f.Players {
		if p.ID == uuid.Nil {
			return nil, fmt.Errorf("player %q has no id", p.FullName)
		}
	}
	return &f, nil
}

// Apply writes the fixture to sink. Teams get increasing creation times in file order
// so the league's team order is the listed one.
func (f *Fixture) Apply(ctx context.Context, sink Sink, now time.Time) (Stats, error) {
	var stats Stats
	for _, l := range f.Leagues {
		league := models.League{
			ID:             l.ID,
			Name:           l.Name,
			CommissionerID: l.CommissionerID,
			Season:         l.Season,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := sink.CreateLeague(ctx, league); err != nil {
			return stats, fmt.Errorf("league %s: %w", l.ID, err)
		}
		stats.Leagues++

		for i, t := range l.Teams {
			team := models.FantasyTeam{
				ID:        t.ID,
				LeagueID:  l.ID,
				OwnerID:   t.OwnerID,
				Name:      t.Name,
				CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
			}
			if err := sink.CreateTeam(ctx, team); err != nil {
				return stats, fmt.Errorf("team %s: %w", t.ID, err)
			}
			stats.Teams++
		}
	}

	for _, p := range f.Players {
		inserted, err := sink.UpsertPlayer(ctx, models.Player{
			ID:        p.ID,
			FullName:  p.FullName,
			Position:  p.Position,
			Value:     p.Value,
			CreatedAt: now,
		})
		if err != nil {
			return stats, fmt.Errorf("player %s: %w", p.ID, err)
		}
		if inserted {
			stats.PlayersInserted++
		} else {
			stats.PlayersUpdated++
		}
	}
	return stats, nil
}
