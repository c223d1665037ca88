package leads_test

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"neuralflow/internal/domain"
	"neuralflow/internal/leads"
)

type memKV struct {
	data    map[string]string
	err     error
	failSet map[string]error
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (m *memKV) Get(key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(key, value string) error {
	if err := m.failSet[key]; err != nil {
		return err
	}
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(key string) error {
	delete(m.data, key)
	return nil
}

func loadedStore(t *testing.T, kv domain.KVStore) *leads.Store {
	t.Helper()
	s := leads.NewStore(kv, nil)
	require.NoError(t, s.Load())
	return s
}

func signup(id, email, code, referredBy string, count int) domain.Lead {
	return domain.Lead{
		ID: id, Email: email, Type: domain.LeadTypeSignup, Status: domain.LeadStatusNew,
		ReferralCode: code, ReferredBy: referredBy, ReferralCount: count,
		Timestamp: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

// ─────────────────────────────────────────────────────────────
// Referral bookkeeping
// ─────────────────────────────────────────────────────────────

func TestAppend_IncrementsEveryMatchingReferrer(t *testing.T) {
	tests := []struct {
		name       string
		existing   []domain.Lead
		referredBy string
		wantDelta  map[string]int
	}{
		{
			name:       "no referrer",
			existing:   []domain.Lead{signup("a", "a@x.io", "AAA111", "", 0)},
			referredBy: "",
			wantDelta:  map[string]int{"a": 0},
		},
		{
			name:       "no match",
			existing:   []domain.Lead{signup("a", "a@x.io", "AAA111", "", 0)},
			referredBy: "ZZZ999",
			wantDelta:  map[string]int{"a": 0},
		},
		{
			name: "single match",
			existing: []domain.Lead{
				signup("a", "a@x.io", "ABC123", "", 0),
				signup("b", "b@x.io", "BBB222", "", 0),
			},
			referredBy: "ABC123",
			wantDelta:  map[string]int{"a": 1, "b": 0},
		},
		{
			name: "duplicate codes all credited",
			existing: []domain.Lead{
				signup("a", "a@x.io", "ABC123", "", 0),
				signup("b", "b@x.io", "ABC123", "", 0),
				{ID: "c", Email: "c@x.io", Type: domain.LeadTypeContact},
			},
			referredBy: "ABC123",
			wantDelta:  map[string]int{"a": 1, "b": 1, "c": 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := loadedStore(t, newMemKV())
			for _, l := range tt.existing {
				_, err := s.Append(l)
				require.NoError(t, err)
			}
			before := counts(s.All())

			added, err := s.Append(domain.Lead{
				Email: "new@x.io", Type: domain.LeadTypeSignup,
				ReferralCode: "NEW000", ReferredBy: tt.referredBy, ReferralCount: 7,
			})
			require.NoError(t, err)
			assert.Zero(t, added.ReferralCount, "new lead starts at zero")

			after := counts(s.All())
			for id, want := range tt.wantDelta {
				assert.Equal(t, want, after[id]-before[id], "lead %s", id)
			}
		})
	}
}

func counts(ls []domain.Lead) map[string]int {
	out := make(map[string]int, len(ls))
	for _, l := range ls {
		out[l.ID] = l.ReferralCount
	}
	return out
}

func TestAppend_FillsDefaultsAndPersists(t *testing.T) {
	kv := newMemKV()
	s := loadedStore(t, kv)

	l, err := s.Append(domain.Lead{Email: "x@y.io", Type: domain.LeadTypeContact, Message: "hi"})
	require.NoError(t, err)
	assert.NotEmpty(t, l.ID)
	assert.Equal(t, domain.LeadStatusNew, l.Status)
	assert.False(t, l.Timestamp.IsZero())

	reloaded := loadedStore(t, kv)
	require.Len(t, reloaded.All(), 1)
	assert.Equal(t, "hi", reloaded.All()[0].Message)
}

func TestAppend_CreditsOwnLead(t *testing.T) {
	s := loadedStore(t, newMemKV())
	mine := signup("me", "me@x.io", "MINE01", "", 0)
	_, err := s.Append(mine)
	require.NoError(t, err)
	require.NoError(t, s.SetMyLead(mine))

	_, err = s.Append(signup("f", "friend@x.io", "FRND01", "MINE01", 0))
	require.NoError(t, err)

	got, ok := s.MyLead()
	require.True(t, ok)
	assert.Equal(t, 1, got.ReferralCount)
	assert.Equal(t, 1408, leads.Rank(got))
}

func TestAppend_FailedWriteLeavesStateUnchanged(t *testing.T) {
	kv := newMemKV()
	s := loadedStore(t, kv)
	mine := signup("me", "me@x.io", "MINE01", "", 0)
	_, err := s.Append(mine)
	require.NoError(t, err)
	require.NoError(t, s.SetMyLead(mine))

	kv.failSet = map[string]error{leads.KeyLeads: errors.New("disk full")}
	_, err = s.Append(signup("f", "friend@x.io", "FRND01", "MINE01", 0))
	require.Error(t, err)

	assert.Len(t, s.All(), 1)
	assert.Equal(t, 0, s.All()[0].ReferralCount)
	got, _ := s.MyLead()
	assert.Equal(t, 0, got.ReferralCount)

	// Persisted and in-memory collections still agree.
	kv.failSet = nil
	assert.Equal(t, referralCounts(s), referralCounts(loadedStore(t, kv)))
}

func TestAppend_FailedOwnLeadWriteKeepsCounts(t *testing.T) {
	kv := newMemKV()
	s := loadedStore(t, kv)
	mine := signup("me", "me@x.io", "MINE01", "", 0)
	_, err := s.Append(mine)
	require.NoError(t, err)
	require.NoError(t, s.SetMyLead(mine))

	kv.failSet = map[string]error{leads.KeyMyLead: errors.New("disk full")}
	_, err = s.Append(signup("f", "friend@x.io", "FRND01", "MINE01", 0))
	require.Error(t, err)

	// The collection was saved, so it keeps the credit.
	assert.Len(t, s.All(), 2)
	assert.Equal(t, 1, s.All()[0].ReferralCount)
	reloaded := loadedStore(t, kv)
	assert.Equal(t, referralCounts(s), referralCounts(reloaded))

	// The own-lead copy matches what is stored.
	got, _ := s.MyLead()
	stored, _ := reloaded.MyLead()
	assert.Equal(t, stored.ReferralCount, got.ReferralCount)
}

// referralCounts maps lead id to referral count.
func referralCounts(s *leads.Store) map[string]int {
	out := map[string]int{}
	for _, l := range s.All() {
		out[l.ID] = l.ReferralCount
	}
	return out
}

func TestMarkProcessedAndDelete_FailedWrite(t *testing.T) {
	kv := newMemKV()
	s := loadedStore(t, kv)
	_, err := s.Append(signup("a", "a@x.io", "AAAAA1", "", 0))
	require.NoError(t, err)

	kv.failSet = map[string]error{leads.KeyLeads: errors.New("disk full")}
	n, err := s.MarkProcessed([]string{"a"})
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Equal(t, domain.LeadStatusNew, s.All()[0].Status)

	n, err = s.Delete([]string{"a"})
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Len(t, s.All(), 1)
}

func TestRank(t *testing.T) {
	assert.Equal(t, 1420, leads.Rank(domain.Lead{}))
	assert.Equal(t, 1360, leads.Rank(domain.Lead{ReferralCount: 5}))
	assert.Equal(t, 4, leads.Rank(domain.Lead{ReferralCount: 118}))
	assert.Equal(t, 1, leads.Rank(domain.Lead{ReferralCount: 119}))
	assert.Equal(t, 1, leads.Rank(domain.Lead{ReferralCount: 1000}))
}

// ─────────────────────────────────────────────────────────────
// Bulk operations and queries
// ─────────────────────────────────────────────────────────────

func seeded(t *testing.T) *leads.Store {
	t.Helper()
	s := loadedStore(t, newMemKV())
	for _, l := range []domain.Lead{
		signup("1", "Alice@Example.com", "AAA111", "", 0),
		{ID: "2", Email: "bob@corp.io", Type: domain.LeadTypeContact, Message: "pricing?"},
		signup("3", "carol@example.com", "CCC333", "AAA111", 0),
	} {
		_, err := s.Append(l)
		require.NoError(t, err)
	}
	return s
}

func TestMarkProcessedAndDelete(t *testing.T) {
	s := seeded(t)

	n, err := s.MarkProcessed([]string{"1", "2", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	st := s.Stats()
	assert.Equal(t, 1, st.New)

	n, err = s.Delete([]string{"2"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, s.All(), 2)

	_, err = s.Get("2")
	assert.ErrorIs(t, err, leads.ErrLeadNotFound)

	n, err = s.Delete(nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFilter(t *testing.T) {
	s := seeded(t)

	tests := []struct {
		name string
		f    domain.LeadFilter
		want []string
	}{
		{"all", domain.LeadFilter{}, []string{"1", "2", "3"}},
		{"case-insensitive email", domain.LeadFilter{Query: "EXAMPLE"}, []string{"1", "3"}},
		{"type only", domain.LeadFilter{Type: domain.LeadTypeContact}, []string{"2"}},
		{"query and type", domain.LeadFilter{Query: "alice", Type: domain.LeadTypeContact}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids []string
			for _, l := range s.Filter(tt.f) {
				ids = append(ids, l.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestStats(t *testing.T) {
	st := seeded(t).Stats()
	assert.Equal(t, domain.LeadStats{Total: 3, Signups: 2, Contacts: 1, New: 3, Referrals: 1}, st)
}

// ─────────────────────────────────────────────────────────────
// Persistence
// ─────────────────────────────────────────────────────────────

func TestLoad_CorruptValuesFallBackToEmpty(t *testing.T) {
	kv := newMemKV()
	kv.data[leads.KeyLeads] = "{not json"
	kv.data[leads.KeyMyLead] = "[1,2]"

	core, logs := observer.New(zapcore.WarnLevel)
	s := leads.NewStore(kv, zap.New(core))
	require.NoError(t, s.Load())

	assert.Empty(t, s.All())
	_, ok := s.MyLead()
	assert.False(t, ok)
	assert.Equal(t, 2, logs.Len())
}

func TestLoad_KVErrorIsReturned(t *testing.T) {
	kv := newMemKV()
	kv.err = errors.New("disk gone")
	assert.Error(t, leads.NewStore(kv, nil).Load())
}

func TestMyLead_RoundTrip(t *testing.T) {
	kv := newMemKV()
	s := loadedStore(t, kv)
	_, ok := s.MyLead()
	assert.False(t, ok)

	require.NoError(t, s.SetMyLead(signup("me", "me@x.io", "MEME00", "", 0)))
	got, ok := loadedStore(t, kv).MyLead()
	require.True(t, ok)
	assert.Equal(t, "MEME00", got.ReferralCode)

	require.NoError(t, s.ClearMyLead())
	_, ok = loadedStore(t, kv).MyLead()
	assert.False(t, ok)
}

func TestNewSignup(t *testing.T) {
	s := seeded(t)
	l, err := s.NewSignup("  dave@x.io ", " abc123 ")
	require.NoError(t, err)

	assert.Equal(t, "dave@x.io", l.Email)
	assert.Equal(t, domain.LeadTypeSignup, l.Type)
	assert.Equal(t, "ABC123", l.ReferredBy)
	assert.Regexp(t, `^[0-9A-Z]{6}$`, l.ReferralCode)
	assert.NotEqual(t, "AAA111", l.ReferralCode)
	assert.Len(t, s.All(), 3, "NewSignup does not append")

	c := s.NewContact("e@x.io", " hello ")
	assert.Equal(t, domain.LeadTypeContact, c.Type)
	assert.Empty(t, c.ReferralCode)
	assert.Equal(t, "hello", c.Message)
}

// ─────────────────────────────────────────────────────────────
// CSV export
// ─────────────────────────────────────────────────────────────

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	rows := []domain.Lead{
		signup("1", "a@x.io", "AAA111", "", 3),
		{ID: "2", Email: `quote"d@x.io`, Type: domain.LeadTypeContact, Status: domain.LeadStatusProcessed,
			Timestamp: time.Date(2026, 5, 2, 8, 30, 0, 0, time.UTC)},
	}
	require.NoError(t, leads.WriteCSV(&buf, rows))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"Email", "Type", "Status", "Referral Code", "Referrals", "Date"}, recs[0])
	assert.Equal(t, []string{"a@x.io", "SIGNUP", "NEW", "AAA111", "3", "2026-05-01T10:00:00Z"}, recs[1])
	assert.Equal(t, `quote"d@x.io`, recs[2][0])
	assert.Equal(t, "", recs[2][3])
}

func TestCSVFileName(t *testing.T) {
	assert.Equal(t, "neuralflow-leads-2026-10-18.csv", leads.CSVFileName(time.Date(2026, 10, 18, 23, 0, 0, 0, time.UTC)))
}
