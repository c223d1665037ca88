// Package leads holds the waitlist and contact submissions collected by the
// app, along with the referral bookkeeping that ranks signups.
package leads

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"neuralflow/internal/domain"
)

// Keys used in the KV store.
const (
	KeyLeads  = "neuralflow_leads"
	KeyMyLead = "neuralflow_my_lead"
)

var ErrLeadNotFound = errors.New("lead not found")

// Store is the in-memory lead collection, persisted through a KVStore.
// Every mutation writes through immediately.
type Store struct {
	mu     sync.RWMutex
	kv     domain.KVStore
	log    *zap.Logger
	leads  []domain.Lead
	myLead *domain.Lead
	now    func() time.Time
}

func NewStore(kv domain.KVStore, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		kv:    kv,
		log:   log.Named("leads"),
		leads: []domain.Lead{},
		now:   time.Now,
	}
}

// Load reads both persisted values. Unreadable or corrupt values are
// replaced by empty defaults with a warning; only KV errors are returned.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.leads = []domain.Lead{}
	s.myLead = nil

	raw, ok, err := s.kv.Get(KeyLeads)
	if err != nil {
		return fmt.Errorf("load leads: %w", err)
	}
	if ok && raw != "" {
		var leads []domain.Lead
		if err := json.Unmarshal([]byte(raw), &leads); err != nil {
			s.log.Warn("stored leads are corrupt, starting empty", zap.Error(err))
		} else if leads != nil {
			s.leads = leads
		}
	}

	raw, ok, err = s.kv.Get(KeyMyLead)
	if err != nil {
		return fmt.Errorf("load my lead: %w", err)
	}
	if ok && raw != "" && raw != "null" {
		var mine domain.Lead
		if err := json.Unmarshal([]byte(raw), &mine); err != nil {
			s.log.Warn("stored own lead is corrupt, ignoring", zap.Error(err))
		} else {
			s.myLead = &mine
		}
	}

	s.log.Debug("leads loaded", zap.Int("count", len(s.leads)), zap.Bool("hasMyLead", s.myLead != nil))
	return nil
}

// Save writes both values.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.saveLeads(s.leads); err != nil {
		return err
	}
	return s.saveMyLeadLocked()
}

// saveLeads persists leads. Mutations save the next collection first and
// only swap it in once the write succeeded.
func (s *Store) saveLeads(leads []domain.Lead) error {
	data, err := json.Marshal(leads)
	if err != nil {
		return fmt.Errorf("marshal leads: %w", err)
	}
	if err := s.kv.Set(KeyLeads, string(data)); err != nil {
		return fmt.Errorf("save leads: %w", err)
	}
	return nil
}

func (s *Store) saveMyLeadLocked() error {
	if s.myLead == nil {
		return s.kv.Delete(KeyMyLead)
	}
	data, err := json.Marshal(s.myLead)
	if err != nil {
		return fmt.Errorf("marshal my lead: %w", err)
	}
	if err := s.kv.Set(KeyMyLead, string(data)); err != nil {
		return fmt.Errorf("save my lead: %w", err)
	}
	return nil
}

// ── Mutations ──────────────────────────────────────────────

// Append adds lead at the end of the collection. The new lead starts with
// no referrals; every lead whose referral code equals lead.ReferredBy gains
// one.
func (s *Store) Append(lead domain.Lead) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	if lead.Status == "" {
		lead.Status = domain.LeadStatusNew
	}
	if lead.Timestamp.IsZero() {
		lead.Timestamp = s.now()
	}
	lead.ReferralCount = 0

	next := make([]domain.Lead, len(s.leads), len(s.leads)+1)
	copy(next, s.leads)
	credited := 0
	if lead.ReferredBy != "" {
		for i := range next {
			if next[i].ReferralCode == lead.ReferredBy {
				next[i].ReferralCount++
				credited++
			}
		}
	}
	next = append(next, lead)
	if err := s.saveLeads(next); err != nil {
		return domain.Lead{}, err
	}
	s.leads = next

	s.log.Info("lead appended",
		zap.String("id", lead.ID),
		zap.String("type", string(lead.Type)),
		zap.String("referredBy", lead.ReferredBy),
		zap.Int("credited", credited),
	)

	// The own-lead copy tracks its referral count as well.
	if s.myLead != nil && lead.ReferredBy != "" && s.myLead.ReferralCode == lead.ReferredBy {
		s.myLead.ReferralCount++
		if err := s.saveMyLeadLocked(); err != nil {
			s.myLead.ReferralCount--
			return lead, err
		}
	}
	return lead, nil
}

// MarkProcessed sets status PROCESSED on every lead in ids and returns how
// many matched.
func (s *Store) MarkProcessed(ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := idSet(ids)
	next := make([]domain.Lead, len(s.leads))
	copy(next, s.leads)
	n := 0
	for i := range next {
		if _, ok := set[next[i].ID]; ok {
			next[i].Status = domain.LeadStatusProcessed
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	if err := s.saveLeads(next); err != nil {
		return 0, err
	}
	s.leads = next
	return n, nil
}

// Delete removes every lead in ids and returns how many were removed.
// Referral counts of other leads are left as they are.
func (s *Store) Delete(ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := idSet(ids)
	kept := make([]domain.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		if _, ok := set[l.ID]; !ok {
			kept = append(kept, l)
		}
	}
	n := len(s.leads) - len(kept)
	if n == 0 {
		return 0, nil
	}
	if err := s.saveLeads(kept); err != nil {
		return 0, err
	}
	s.leads = kept
	s.log.Info("leads deleted", zap.Int("count", n))
	return n, nil
}

// SetMyLead records the signup made from this installation.
func (s *Store) SetMyLead(l domain.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.myLead = &l
	return s.saveMyLeadLocked()
}

// ClearMyLead forgets the own lead, returning the app to the waitlist.
func (s *Store) ClearMyLead() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.myLead = nil
	return s.saveMyLeadLocked()
}

// ── Queries ────────────────────────────────────────────────

func (s *Store) MyLead() (domain.Lead, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.myLead == nil {
		return domain.Lead{}, false
	}
	return *s.myLead, true
}

// All returns a copy of every lead in insertion order.
func (s *Store) All() []domain.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Lead, len(s.leads))
	copy(out, s.leads)
	return out
}

func (s *Store) Get(id string) (domain.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.leads {
		if l.ID == id {
			return l, nil
		}
	}
	return domain.Lead{}, fmt.Errorf("%w: %s", ErrLeadNotFound, id)
}

// Filter matches leads whose email contains f.Query (case-insensitive) and,
// when f.Type is set, whose type equals it.
func (s *Store) Filter(f domain.LeadFilter) []domain.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filter(s.leads, f)
}

func filter(leads []domain.Lead, f domain.LeadFilter) []domain.Lead {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := []domain.Lead{}
	for _, l := range leads {
		if f.Type != "" && l.Type != f.Type {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(l.Email), q) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func (s *Store) Stats() domain.LeadStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := domain.LeadStats{Total: len(s.leads)}
	for _, l := range s.leads {
		switch l.Type {
		case domain.LeadTypeSignup:
			st.Signups++
		case domain.LeadTypeContact:
			st.Contacts++
		}
		if l.Status == domain.LeadStatusNew {
			st.New++
		}
		st.Referrals += l.ReferralCount
	}
	return st
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
