package leads

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"

	"neuralflow/internal/domain"
)

const (
	codeLength   = 6
	codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeAttempts = 32

	baseRank     = 1420
	rankPerRefer = 12
)

// Rank is the queue position shown to a signup. Each referral moves the
// lead up twelve places, never past first.
func Rank(l domain.Lead) int {
	return max(1, baseRank-l.ReferralCount*rankPerRefer)
}

// NewSignup builds a SIGNUP lead with a referral code not yet used by any
// stored lead. The lead is not appended.
func (s *Store) NewSignup(email, referredBy string) (domain.Lead, error) {
	s.mu.RLock()
	taken := make(map[string]struct{}, len(s.leads))
	for _, l := range s.leads {
		if l.ReferralCode != "" {
			taken[l.ReferralCode] = struct{}{}
		}
	}
	s.mu.RUnlock()

	var code string
	for i := 0; i < codeAttempts; i++ {
		c, err := referralCode()
		if err != nil {
			return domain.Lead{}, err
		}
		if _, dup := taken[c]; !dup {
			code = c
			break
		}
	}
	if code == "" {
		return domain.Lead{}, fmt.Errorf("no free referral code after %d attempts", codeAttempts)
	}

	return domain.Lead{
		ID:           uuid.NewString(),
		Email:        strings.TrimSpace(email),
		Type:         domain.LeadTypeSignup,
		Status:       domain.LeadStatusNew,
		Timestamp:    s.now(),
		ReferralCode: code,
		ReferredBy:   NormalizeCode(referredBy),
	}, nil
}

// NewContact builds a CONTACT lead. Contacts carry no referral code.
func (s *Store) NewContact(email, message string) domain.Lead {
	return domain.Lead{
		ID:        uuid.NewString(),
		Email:     strings.TrimSpace(email),
		Type:      domain.LeadTypeContact,
		Message:   strings.TrimSpace(message),
		Status:    domain.LeadStatusNew,
		Timestamp: s.now(),
	}
}

// NormalizeCode upper-cases and trims a code taken from a link.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func referralCode() (string, error) {
	var sb strings.Builder
	limit := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("referral code: %w", err)
		}
		sb.WriteByte(codeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}
