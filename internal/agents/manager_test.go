package agents

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	chars   map[string][]byte
	saveErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{chars: make(map[string][]byte)}
}

func (m *memoryStore) SaveCharacter(_ context.Context, name string, data []byte) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.chars[name] = data
	return nil
}

func (m *memoryStore) GetCharacter(_ context.Context, name string) ([]byte, error) {
	data, ok := m.chars[name]
	if !ok {
		return nil, ErrCharacterNotFound
	}
	return data, nil
}

func (m *memoryStore) ListCharacters(context.Context) ([]StoredCharacter, error) {
	out := make([]StoredCharacter, 0, len(m.chars))
	for name, data := range m.chars {
		out = append(out, StoredCharacter{Name: name, Data: data})
	}
	return out, nil
}

func newTestManager(store CharacterStore) *Manager {
	return NewManager(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStartPersistsCharacter(t *testing.T) {
	store := newMemoryStore()
	m := newTestManager(store)

	agent, err := m.Start(context.Background(), Character{Name: "scout", Topics: []string{"rollups"}})
	require.NoError(t, err)

	assert.NotEqual(t, agent.ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, "scout", agent.Character.Name)
	assert.False(t, agent.StartedAt.IsZero())

	var saved Character
	require.NoError(t, json.Unmarshal(store.chars["scout"], &saved))
	assert.Equal(t, []string{"rollups"}, saved.Topics)
}

func TestStartRejectsInvalidCharacter(t *testing.T) {
	m := newTestManager(newMemoryStore())

	_, err := m.Start(context.Background(), Character{})
	assert.Error(t, err)
	assert.Empty(t, m.List())
}

func TestStartStoreFailure(t *testing.T) {
	store := newMemoryStore()
	store.saveErr = errors.New("disk full")
	m := newTestManager(store)

	_, err := m.Start(context.Background(), Character{Name: "scout"})
	require.Error(t, err)
	assert.Empty(t, m.List(), "an agent must not run without a persisted character")
}

func TestStartByName(t *testing.T) {
	store := newMemoryStore()
	store.chars["scout"] = []byte(`{"name":"scout","system":"be curious"}`)
	m := newTestManager(store)

	agent, err := m.StartByName(context.Background(), "scout")
	require.NoError(t, err)
	assert.Equal(t, "be curious", agent.Character.System)

	_, err = m.StartByName(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrCharacterNotFound)
}

func TestStopAgent(t *testing.T) {
	m := newTestManager(newMemoryStore())

	agent, err := m.Start(context.Background(), Character{Name: "scout"})
	require.NoError(t, err)

	require.NoError(t, m.Stop(agent.ID))
	assert.Empty(t, m.List())

	assert.ErrorIs(t, m.Stop(agent.ID), ErrAgentNotFound)
}

func TestGetAgent(t *testing.T) {
	m := newTestManager(newMemoryStore())

	started, err := m.Start(context.Background(), Character{Name: "scout"})
	require.NoError(t, err)

	got, err := m.Get(started.ID)
	require.NoError(t, err)
	assert.Equal(t, started.ID, got.ID)
}

func TestListOrderedByStart(t *testing.T) {
	m := newTestManager(newMemoryStore())

	for _, name := range []string{"one", "two", "three"} {
		_, err := m.Start(context.Background(), Character{Name: name})
		require.NoError(t, err)
	}

	agents := m.List()
	require.Len(t, agents, 3)
	for i := 1; i < len(agents); i++ {
		assert.False(t, agents[i].StartedAt.Before(agents[i-1].StartedAt))
	}
}

func TestUpdateAgent(t *testing.T) {
	store := newMemoryStore()
	m := newTestManager(store)

	agent, err := m.Start(context.Background(), Character{Name: "scout"})
	require.NoError(t, err)

	updated, err := m.Update(context.Background(), agent.ID, Character{Name: "scout", System: "new system"})
	require.NoError(t, err)

	assert.Equal(t, agent.ID, updated.ID, "updating keeps the agent id")
	assert.Equal(t, "new system", updated.Character.System)
	assert.Contains(t, string(store.chars["scout"]), "new system")
}

func TestUpdateDoesNotMutateEarlierLookups(t *testing.T) {
	m := newTestManager(newMemoryStore())

	agent, err := m.Start(context.Background(), Character{Name: "scout"})
	require.NoError(t, err)

	before, err := m.Get(agent.ID)
	require.NoError(t, err)
	listed := m.List()
	require.Len(t, listed, 1)

	_, err = m.Update(context.Background(), agent.ID, Character{Name: "scout", System: "rewritten"})
	require.NoError(t, err)

	// Agents handed out before the update keep their snapshot.
	assert.Empty(t, before.Character.System)
	assert.Empty(t, listed[0].Character.System)

	after, err := m.Get(agent.ID)
	require.NoError(t, err)
	assert.Equal(t, "rewritten", after.Character.System)
}

func TestCharacters(t *testing.T) {
	store := newMemoryStore()
	store.chars["good"] = []byte(`{"name":"good"}`)
	store.chars["broken"] = []byte(`{not json`)
	m := newTestManager(store)

	chars, err := m.Characters(context.Background())
	require.NoError(t, err)
	require.Len(t, chars, 1, "undecodable definitions are skipped")
	assert.Equal(t, "good", chars[0].Name)
}
