// Package session stores per-user conversation state for the chat bot.
package session

import (
	"context"
	"errors"
	"sync"

	"finsheet/internal/core"
)

type Step string

const (
	StepCurrency Step = "currency"
	StepCategory Step = "category"
	StepAmount   Step = "amount"
)

// Session is the in-progress transaction of one user. An init session has
// Step amount and Category "init".
type Session struct {
	Step     Step          `json:"step"`
	Currency core.Currency `json:"currency,omitempty"`
	Category string        `json:"category,omitempty"`
}

// IsInit reports whether the session collects opening balances.
func (s Session) IsInit() bool {
	return s.Step == StepAmount && s.Category == core.CategoryInit
}

var ErrNotFound = errors.New("session not found")

// Store keeps at most one session per user.
type Store interface {
	Get(ctx context.Context, userID int64) (Session, error)
	Put(ctx context.Context, userID int64, s Session) error
	Delete(ctx context.Context, userID int64) error
}

// Memory is a process-local store. Sessions are lost on restart.
type Memory struct {
	mu       sync.Mutex
	sessions map[int64]Session
}

func NewMemory() *Memory {
	return &Memory{sessions: map[int64]Session{}}
}

func (m *Memory) Get(_ context.Context, userID int64) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *Memory) Put(_ context.Context, userID int64, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = s
	return nil
}

func (m *Memory) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}
