package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Contact is a workspace CRM record reachable through the workspace tools.
type Contact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Company   string    `json:"company,omitempty"`
	LeadScore float64   `json:"leadScore,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ActivityEntry is one line in a workspace activity log.
type ActivityEntry struct {
	AgentID string    `json:"agentId,omitempty"`
	Kind    string    `json:"kind"`
	Summary string    `json:"summary"`
	At      time.Time `json:"at"`
}

// WorkspaceStore is the consumed persistence collaborator for workspace
// data. The orchestration core treats it as an external system.
type WorkspaceStore interface {
	SearchContacts(ctx context.Context, workspaceID, query string, limit int) ([]Contact, error)
	GetContact(ctx context.Context, workspaceID, contactID string) (*Contact, error)
	UpdateContact(ctx context.Context, workspaceID string, contact Contact) error
	LogActivity(ctx context.Context, workspaceID string, entry ActivityEntry) error
	RecentActivity(ctx context.Context, workspaceID, agentID string, limit int) ([]ActivityEntry, error)
}

const defaultSearchLimit = 10

// WorkspaceTools returns the workspace data tools bound to the given store.
func WorkspaceTools(store WorkspaceStore) []Tool {
	return []Tool{
		{
			Name:        "search_contacts",
			Description: "Search workspace contacts by name, email, or company.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string"},
					"limit": map[string]any{"type": "integer", "minimum": 1, "maximum": 50},
				},
				"required":             []any{"query"},
				"additionalProperties": false,
			},
			Handler: func(ctx context.Context, args map[string]any, tc Context) (Result, error) {
				query, _ := args["query"].(string)

				limit := defaultSearchLimit
				if raw, ok := args["limit"].(float64); ok {
					limit = int(raw)
				}

				contacts, err := store.SearchContacts(ctx, tc.WorkspaceID, query, limit)
				if err != nil {
					return Result{}, err
				}

				return ok(fmt.Sprintf("found %d contacts", len(contacts)), map[string]any{
					"contacts": contacts,
				}), nil
			},
		},
		{
			Name:        "get_contact",
			Description: "Fetch one contact by id.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"contactId": map[string]any{"type": "string"},
				},
				"required":             []any{"contactId"},
				"additionalProperties": false,
			},
			Handler: func(ctx context.Context, args map[string]any, tc Context) (Result, error) {
				contactID, _ := args["contactId"].(string)

				contact, err := store.GetContact(ctx, tc.WorkspaceID, contactID)
				if err != nil {
					return Result{}, err
				}

				return ok("contact found", map[string]any{"contact": contact}), nil
			},
		},
		{
			Name:        "update_contact",
			Description: "Update fields on an existing contact.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"contactId": map[string]any{"type": "string"},
					"name":      map[string]any{"type": "string"},
					"email":     map[string]any{"type": "string"},
					"company":   map[string]any{"type": "string"},
					"leadScore": map[string]any{"type": "number"},
				},
				"required":             []any{"contactId"},
				"additionalProperties": false,
			},
			Handler: func(ctx context.Context, args map[string]any, tc Context) (Result, error) {
				contactID, _ := args["contactId"].(string)

				contact, err := store.GetContact(ctx, tc.WorkspaceID, contactID)
				if err != nil {
					return Result{}, err
				}

				if name, okArg := args["name"].(string); okArg {
					contact.Name = name
				}

				if email, okArg := args["email"].(string); okArg {
					contact.Email = email
				}

				if company, okArg := args["company"].(string); okArg {
					contact.Company = company
				}

				if score, okArg := args["leadScore"].(float64); okArg {
					contact.LeadScore = score
				}

				contact.UpdatedAt = time.Now().UTC()

				if err := store.UpdateContact(ctx, tc.WorkspaceID, *contact); err != nil {
					return Result{}, err
				}

				return ok("contact updated", map[string]any{"contact": contact}), nil
			},
		},
		{
			Name:        "log_activity",
			Description: "Append an entry to the workspace activity log.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"kind":    map[string]any{"type": "string"},
					"summary": map[string]any{"type": "string"},
				},
				"required":             []any{"kind", "summary"},
				"additionalProperties": false,
			},
			Handler: func(ctx context.Context, args map[string]any, tc Context) (Result, error) {
				kind, _ := args["kind"].(string)
				summary, _ := args["summary"].(string)

				entry := ActivityEntry{
					AgentID: tc.AgentID,
					Kind:    kind,
					Summary: summary,
					At:      time.Now().UTC(),
				}

				if err := store.LogActivity(ctx, tc.WorkspaceID, entry); err != nil {
					return Result{}, err
				}

				return ok("activity logged", nil), nil
			},
		},
	}
}

// InMemoryWorkspaceStore is a map-backed WorkspaceStore for development and
// tests.
type InMemoryWorkspaceStore struct {
	mu         sync.RWMutex
	contacts   map[string]map[string]Contact // workspaceID -> contactID -> contact
	activities map[string][]ActivityEntry    // workspaceID -> entries
}

// NewInMemoryWorkspaceStore creates an empty in-memory workspace store.
func NewInMemoryWorkspaceStore() *InMemoryWorkspaceStore {
	return &InMemoryWorkspaceStore{
		contacts:   make(map[string]map[string]Contact),
		activities: make(map[string][]ActivityEntry),
	}
}

// SeedContact inserts a contact directly, bypassing the tool layer.
func (s *InMemoryWorkspaceStore) SeedContact(workspaceID string, contact Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.contacts[workspaceID] == nil {
		s.contacts[workspaceID] = make(map[string]Contact)
	}

	s.contacts[workspaceID][contact.ID] = contact
}

func (s *InMemoryWorkspaceStore) SearchContacts(_ context.Context, workspaceID, query string, limit int) ([]Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	matches := make([]Contact, 0)

	for _, contact := range s.contacts[workspaceID] {
		haystack := strings.ToLower(contact.Name + " " + contact.Email + " " + contact.Company)
		if strings.Contains(haystack, needle) {
			matches = append(matches, contact)
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	return matches, nil
}

func (s *InMemoryWorkspaceStore) GetContact(_ context.Context, workspaceID, contactID string) (*Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contact, found := s.contacts[workspaceID][contactID]
	if !found {
		return nil, fmt.Errorf("contact %s not found", contactID)
	}

	return &contact, nil
}

func (s *InMemoryWorkspaceStore) UpdateContact(_ context.Context, workspaceID string, contact Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.contacts[workspaceID][contact.ID]; !found {
		return fmt.Errorf("contact %s not found", contact.ID)
	}

	s.contacts[workspaceID][contact.ID] = contact

	return nil
}

func (s *InMemoryWorkspaceStore) LogActivity(_ context.Context, workspaceID string, entry ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activities[workspaceID] = append(s.activities[workspaceID], entry)

	return nil
}

func (s *InMemoryWorkspaceStore) RecentActivity(_ context.Context, workspaceID, agentID string, limit int) ([]ActivityEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]ActivityEntry, 0)

	for _, entry := range s.activities[workspaceID] {
		if agentID == "" || entry.AgentID == agentID {
			entries = append(entries, entry)
		}
	}

	// Most recent first.
	sort.Slice(entries, func(i, j int) bool { return entries[i].At.After(entries[j].At) })

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}
