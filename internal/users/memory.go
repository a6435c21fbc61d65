package users

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/saltastro/saltapi/internal/rbac"
	"github.com/saltastro/saltapi/internal/shared"
)

type memoryUser struct {
	identity     shared.Identity
	passwordHash []byte
	settings     []rbac.Setting
}

// MemoryStore is an in-process Store whose passwords are bcrypt hashes. It
// backs tests and the development user store.
type MemoryStore struct {
	mu       sync.RWMutex
	cost     int
	users    map[int64]memoryUser
	byName   map[string]int64
	contacts map[string]ProposalContacts
}

// NewMemoryStore returns an empty store hashing with bcrypt.DefaultCost.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cost:     bcrypt.DefaultCost,
		users:    make(map[int64]memoryUser),
		byName:   make(map[string]int64),
		contacts: make(map[string]ProposalContacts),
	}
}

// WithCost sets the bcrypt cost used for passwords added afterwards.
func (s *MemoryStore) WithCost(cost int) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cost = cost
	return s
}

// AddUser stores a user with the given password and role settings.
func (s *MemoryStore) AddUser(identity shared.Identity, password string, settings ...rbac.Setting) error {
	if identity.ID == 0 {
		return fmt.Errorf("users: memory store: user id required")
	}
	identity.Username = NormalizeUsername(identity.Username)
	if identity.Username == "" {
		return fmt.Errorf("users: memory store: username required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("users: memory store: hash password: %w", err)
	}
	if old, ok := s.users[identity.ID]; ok {
		delete(s.byName, old.identity.Username)
	}
	s.users[identity.ID] = memoryUser{
		identity:     identity,
		passwordHash: hash,
		settings:     append([]rbac.Setting(nil), settings...),
	}
	s.byName[identity.Username] = identity.ID
	return nil
}

// SetProposalContacts records the PI and PC of a proposal.
func (s *MemoryStore) SetProposalContacts(proposalCode string, contacts ProposalContacts) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[proposalCode] = ProposalContacts{
		Investigator: NormalizeUsername(contacts.Investigator),
		Contact:      NormalizeUsername(contacts.Contact),
	}
}

// FindUserByCredentials returns the user when the password matches its hash.
func (s *MemoryStore) FindUserByCredentials(ctx context.Context, username, password string) (*shared.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[NormalizeUsername(username)]
	if !ok {
		return nil, nil
	}
	user := s.users[id]
	if err := bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password)); err != nil {
		return nil, nil
	}
	identity := user.identity
	return &identity, nil
}

// FindUserByID returns the user with the given id.
func (s *MemoryStore) FindUserByID(ctx context.Context, id int64) (*shared.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	identity := user.identity
	return &identity, nil
}

// FindUserRoleSettings returns the settings rows of a user.
func (s *MemoryStore) FindUserRoleSettings(ctx context.Context, id int64) ([]rbac.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return append([]rbac.Setting(nil), user.settings...), nil
}

// FindProposalContacts returns the recorded contacts of a proposal.
func (s *MemoryStore) FindProposalContacts(ctx context.Context, proposalCode string) (ProposalContacts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contacts[proposalCode], nil
}

type seedUser struct {
	ID        int64             `json:"id"`
	Username  string            `json:"username"`
	Password  string            `json:"password"`
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Email     string            `json:"email"`
	Active    bool              `json:"active"`
	Settings  map[string]string `json:"settings"`
}

type seedFile struct {
	Users     []seedUser                  `json:"users"`
	Proposals map[string]ProposalContacts `json:"proposals"`
}

// LoadMemoryStore builds a MemoryStore from a JSON seed file.
func LoadMemoryStore(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("users: read seed file: %w", err)
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("users: parse seed file: %w", err)
	}
	store := NewMemoryStore()
	for _, u := range seed.Users {
		settings := []rbac.Setting{{Active: u.Active}}
		for key, value := range u.Settings {
			settings = append(settings, rbac.Setting{Key: key, Value: value, Active: u.Active})
		}
		identity := shared.Identity{ID: u.ID, Username: u.Username, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
		if err := store.AddUser(identity, u.Password, settings...); err != nil {
			return nil, err
		}
	}
	for code, contacts := range seed.Proposals {
		store.SetProposalContacts(code, contacts)
	}
	return store, nil
}

var _ Store = (*MemoryStore)(nil)
