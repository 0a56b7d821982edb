// Package agents manages running agent instances and their character
// definitions.
package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrAgentNotFound reports an unknown agent id.
var ErrAgentNotFound = errors.New("agent not found")

// ErrCharacterNotFound reports an unknown character name.
var ErrCharacterNotFound = errors.New("character not found")

// StoredCharacter is one persisted character definition.
type StoredCharacter struct {
	Name string
	Data []byte
}

// CharacterStore persists character definitions.
type CharacterStore interface {
	SaveCharacter(ctx context.Context, name string, data []byte) error
	GetCharacter(ctx context.Context, name string) ([]byte, error)
	ListCharacters(ctx context.Context) ([]StoredCharacter, error)
}

// Agent is one running agent instance.
type Agent struct {
	ID        uuid.UUID `json:"id"`
	Character Character `json:"character"`
	StartedAt time.Time `json:"startedAt"`
}

// Manager owns the set of running agents. It is safe for concurrent use;
// every lookup returns a copy, so agents obtained from it are never mutated
// by a later Update.
type Manager struct {
	mu     sync.RWMutex
	agents map[uuid.UUID]Agent
	chars  CharacterStore
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates a Manager backed by the given character store.
func NewManager(chars CharacterStore, logger *slog.Logger) *Manager {
	return &Manager{
		agents: make(map[uuid.UUID]Agent),
		chars:  chars,
		logger: logger,
		now:    time.Now,
	}
}

// Start persists the character and launches a new agent instance for it.
func (m *Manager) Start(ctx context.Context, character Character) (*Agent, error) {
	if err := character.Validate(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(character)
	if err != nil {
		return nil, fmt.Errorf("encode character: %w", err)
	}
	if err := m.chars.SaveCharacter(ctx, character.Name, data); err != nil {
		return nil, fmt.Errorf("save character: %w", err)
	}

	agent := Agent{
		ID:        uuid.New(),
		Character: character,
		StartedAt: m.now().UTC(),
	}

	m.mu.Lock()
	m.agents[agent.ID] = agent
	m.mu.Unlock()

	m.logger.Info("agent started", "id", agent.ID, "character", character.Name)
	return &agent, nil
}

// StartByName launches an agent from a previously stored character.
func (m *Manager) StartByName(ctx context.Context, name string) (*Agent, error) {
	data, err := m.chars.GetCharacter(ctx, name)
	if err != nil {
		return nil, err
	}

	var character Character
	if err := json.Unmarshal(data, &character); err != nil {
		return nil, fmt.Errorf("decode character %s: %w", name, err)
	}
	return m.Start(ctx, character)
}

// Stop removes a running agent.
func (m *Manager) Stop(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	agent, ok := m.agents[id]
	if !ok {
		return ErrAgentNotFound
	}
	delete(m.agents, id)
	m.logger.Info("agent stopped", "id", id, "character", agent.Character.Name)
	return nil
}

// Get returns a copy of a running agent by id.
func (m *Manager) Get(id uuid.UUID) (*Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	agent, ok := m.agents[id]
	if !ok {
		return nil, ErrAgentNotFound
	}
	return &agent, nil
}

// List returns copies of all running agents ordered by start time.
func (m *Manager) List() []*Agent {
	m.mu.RLock()
	agents := make([]*Agent, 0, len(m.agents))
	for _, a := range m.agents {
		agents = append(agents, &a)
	}
	m.mu.RUnlock()

	sort.Slice(agents, func(i, j int) bool {
		if agents[i].StartedAt.Equal(agents[j].StartedAt) {
			return agents[i].ID.String() < agents[j].ID.String()
		}
		return agents[i].StartedAt.Before(agents[j].StartedAt)
	})
	return agents
}

// Update replaces a running agent's character, keeping its id. The new
// character is persisted like on Start.
func (m *Manager) Update(ctx context.Context, id uuid.UUID, character Character) (*Agent, error) {
	if err := character.Validate(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(character)
	if err != nil {
		return nil, fmt.Errorf("encode character: %w", err)
	}
	if err := m.chars.SaveCharacter(ctx, character.Name, data); err != nil {
		return nil, fmt.Errorf("save character: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	agent, ok := m.agents[id]
	if !ok {
		return nil, ErrAgentNotFound
	}
	agent.Character = character
	m.agents[id] = agent
	m.logger.Info("agent updated", "id", id, "character", character.Name)
	return &agent, nil
}

// Characters returns all stored character definitions.
func (m *Manager) Characters(ctx context.Context) ([]Character, error) {
	stored, err := m.chars.ListCharacters(ctx)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}

	chars := make([]Character, 0, len(stored))
	for _, s := range stored {
		var c Character
		if err := json.Unmarshal(s.Data, &c); err != nil {
			m.logger.Warn("skipping undecodable character", "name", s.Name, "error", err)
			continue
		}
		chars = append(chars, c)
	}
	return chars, nil
}
