package domain

import "time"

type LeadType string

const (
	LeadTypeSignup  LeadType = "SIGNUP"
	LeadTypeContact LeadType = "CONTACT"
)

type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "NEW"
	LeadStatusProcessed LeadStatus = "PROCESSED"
)

type Lead struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Type          LeadType   `json:"type"`
	Message       string     `json:"message,omitempty"`
	Status        LeadStatus `json:"status"`
	Timestamp     time.Time  `json:"timestamp"`
	ReferralCode  string     `json:"referralCode"`
	ReferredBy    string     `json:"referredBy,omitempty"`
	ReferralCount int        `json:"referralCount"`
}

// LeadFilter narrows the admin lead table. An empty Type matches every lead.
type LeadFilter struct {
	Query string   `json:"query"`
	Type  LeadType `json:"type,omitempty"`
}

type LeadStats struct {
	Total     int `json:"total"`
	Signups   int `json:"signups"`
	Contacts  int `json:"contacts"`
	New       int `json:"new"`
	Referrals int `json:"referrals"`
}
