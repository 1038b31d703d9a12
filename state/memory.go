package state

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/jonwraymond/codesession/session"
)

// memorySeparator joins appended texts within a block.
const memorySeparator = "\n"

// Memory returns the named block's text, empty when the block does not
// exist.
func (m *Manager) Memory(ctx context.Context, block string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	blocks, err := m.loadMemory(ctx)
	if err != nil {
		return "", err
	}
	return blocks[block], nil
}

// AppendMemory adds text to the named block, separated from existing
// content by a newline. The append fails whole, leaving the block
// unchanged, when the result would exceed the per-block character
// limit.
func (m *Manager) AppendMemory(ctx context.Context, block, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	blocks, err := m.loadMemory(ctx)
	if err != nil {
		return err
	}
	next := text
	if existing := blocks[block]; existing != "" {
		next = existing + memorySeparator + text
	}
	if n := utf8.RuneCountInString(next); n > m.memoryLimit {
		return fmt.Errorf("%w: block %s: %d > %d characters", ErrMemoryLimit, block, n, m.memoryLimit)
	}
	blocks[block] = next
	return m.saveMemory(ctx, blocks)
}

// ReplaceMemory overwrites the named block unconditionally.
func (m *Manager) ReplaceMemory(ctx context.Context, block, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	blocks, err := m.loadMemory(ctx)
	if err != nil {
		return err
	}
	blocks[block] = text
	return m.saveMemory(ctx, blocks)
}

func (m *Manager) loadMemory(ctx context.Context) (map[string]string, error) {
	blocks := make(map[string]string)
	raw, err := m.readFile(ctx, memoryFile)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return blocks, nil
	}
	if err := json.Unmarshal([]byte(raw), &blocks); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", session.ErrVolume, memoryFile, err)
	}
	return blocks, nil
}

func (m *Manager) saveMemory(ctx context.Context, blocks map[string]string) error {
	data, err := json.Marshal(blocks)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", session.ErrVolume, memoryFile, err)
	}
	if err := m.writeFile(ctx, memoryFile, string(data)); err != nil {
		return err
	}
	return m.session.Commit(ctx)
}
