// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package authz

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/tomtom215/switchboard/internal/models"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Action is a channel operation subject to role checks.
type Action string

const (
	ActionRead          Action = "read"
	ActionSend          Action = "send"
	ActionReact         Action = "react"
	ActionAddMembers    Action = "addMembers"
	ActionRemoveMember  Action = "removeMember"
	ActionFreeze        Action = "freeze"
	ActionTruncate      Action = "truncate"
	ActionBan           Action = "ban"
	ActionPin           Action = "pin"
	ActionDeleteAny     Action = "deleteAny"
	ActionSlowMode      Action = "slowMode"
	ActionDeleteChannel Action = "deleteChannel"
	ActionUpdateRole    Action = "updateRole"

	// ActionManageWebhooks is granted to token scopes, not channel roles.
	ActionManageWebhooks Action = "manageWebhooks"
)

// ErrUnknownRole is returned by Enforce for a role outside the hierarchy.
var ErrUnknownRole = errors.New("unknown role")

// EnforcerConfig holds configuration for the Casbin enforcer.
type EnforcerConfig struct {
	// PolicyPath is the path to a Casbin policy CSV.
	// If empty, uses embedded policy.
	PolicyPath string
}

// Enforcer wraps the Casbin enforcer with a decision cache.
//
// Decisions depend only on (subject, action), so they are memoized forever
// and invalidated wholesale by Reload. Subjects are channel roles or token
// scopes.
type Enforcer struct {
	config   *EnforcerConfig
	enforcer *casbin.SyncedEnforcer

	mu    sync.RWMutex
	cache map[string]bool
}

// NewEnforcer creates a new authorization enforcer.
func NewEnforcer(config *EnforcerConfig) (*Enforcer, error) {
	if config == nil {
		config = &EnforcerConfig{}
	}

	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if config.PolicyPath != "" && fileExists(config.PolicyPath) {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(config.PolicyPath))
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadEmbeddedPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	return &Enforcer{
		config:   config,
		enforcer: enforcer,
		cache:    make(map[string]bool),
	}, nil
}

// loadEmbeddedPolicy parses and loads the embedded policy CSV.
func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) != 3 {
			return fmt.Errorf("malformed policy line %q", line)
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch parts[0] {
		case "p":
			if _, err := enforcer.AddPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", parts[1:], err)
			}
		case "g":
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("unknown policy type %q", parts[0])
		}
	}
	return nil
}

// Enforce reports whether role may perform action.
func (e *Enforcer) Enforce(role models.Role, action Action) (bool, error) {
	if !role.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	return e.decide("role:"+string(role), string(role), action)
}

func (e *Enforcer) decide(key, subject string, action Action) (bool, error) {
	key += ":" + string(action)
	e.mu.RLock()
	allowed, ok := e.cache[key]
	e.mu.RUnlock()
	if ok {
		return allowed, nil
	}

	allowed, err := e.enforcer.Enforce(subject, string(action))
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}

	e.mu.Lock()
	e.cache[key] = allowed
	e.mu.Unlock()
	return allowed, nil
}

// Can is Enforce with errors treated as a denial.
func (e *Enforcer) Can(role models.Role, action Action) bool {
	allowed, err := e.Enforce(role, action)
	return err == nil && allowed
}

// Allows reports whether a token scope grants action. The empty scope of
// end-user tokens grants nothing.
func (e *Enforcer) Allows(scope string, action Action) bool {
	if scope == "" || models.Role(scope).Valid() {
		return false
	}
	allowed, err := e.decide("scope:"+scope, scope, action)
	return err == nil && allowed
}

// Reload re-reads the policy file, if one is configured, and clears the
// decision cache.
func (e *Enforcer) Reload() error {
	if e.config.PolicyPath != "" {
		if err := e.enforcer.LoadPolicy(); err != nil {
			return fmt.Errorf("failed to reload policy: %w", err)
		}
	}
	e.mu.Lock()
	e.cache = make(map[string]bool)
	e.mu.Unlock()
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
