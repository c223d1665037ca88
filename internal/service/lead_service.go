package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"neuralflow/internal/domain"
	"neuralflow/internal/leads"
	"neuralflow/internal/notify"
)

// View is the screen the app opens on.
type View string

const (
	ViewCanvas   View = "CANVAS"
	ViewWaitlist View = "WAITLIST"
	ViewAdmin    View = "ADMIN"
)

// ReferralParam is the query parameter carrying a referrer's code.
const ReferralParam = "ref"

var ErrInvalidInput = errors.New("invalid input")

// ─────────────────────────────────────────────────────────────
// Lead Service: waitlist, contact form and the admin table
// ─────────────────────────────────────────────────────────────

type signupInput struct {
	Email string `validate:"required,email,max=320"`
}

type contactInput struct {
	Email   string `validate:"required,email,max=320"`
	Message string `validate:"required,max=5000"`
}

var leadValidate = validator.New()

type LeadService struct {
	store      *leads.Store
	notifier   notify.Notifier
	ownerEmail string
	emitter    EventEmitter
	log        *zap.Logger
	now        func() time.Time

	// referral code captured from the launch link
	refMu      sync.Mutex
	pendingRef string
}

func NewLeadService(store *leads.Store, notifier notify.Notifier, ownerEmail string, emitter EventEmitter, log *zap.Logger) *LeadService {
	if log == nil {
		log = zap.NewNop()
	}
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if ownerEmail == "" {
		ownerEmail = notify.DefaultOwnerEmail
	}
	return &LeadService{
		store:      store,
		notifier:   notifier,
		ownerEmail: ownerEmail,
		emitter:    emitter,
		log:        log.Named("leads"),
		now:        time.Now,
	}
}

// WaitlistStatus is what the waitlist page shows for the own signup.
type WaitlistStatus struct {
	Joined    bool        `json:"joined"`
	Lead      domain.Lead `json:"lead"`
	Rank      int         `json:"rank"`
	ShareLink string      `json:"shareLink"`
}

// ── Deep link ──────────────────────────────────────────────

// ParseReferral extracts the referral code from a launch URL or bare query
// string such as "neuralflow://join?ref=ABC123". It returns "" when absent.
func ParseReferral(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	var q url.Values
	if u, err := url.Parse(raw); err == nil && (u.Scheme != "" || u.RawQuery != "") {
		q = u.Query()
	} else {
		q, _ = url.ParseQuery(strings.TrimPrefix(raw, "?"))
	}
	return leads.NormalizeCode(q.Get(ReferralParam))
}

// ShareLink appends ?ref=<code> to base, replacing any existing ref.
func ShareLink(base, code string) string {
	u, err := url.Parse(base)
	if err != nil || code == "" {
		return ""
	}
	q := u.Query()
	q.Set(ReferralParam, code)
	u.RawQuery = q.Encode()
	return u.String()
}

// SetReferral remembers a referral code from the launch link. It is
// attached to the next signup.
func (s *LeadService) SetReferral(code string) {
	code = leads.NormalizeCode(code)
	s.refMu.Lock()
	s.pendingRef = code
	s.refMu.Unlock()
	if code != "" {
		s.log.Debug("referral captured", zap.String("code", code))
	}
}

func (s *LeadService) Referral() string {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	return s.pendingRef
}

// InitialView is CANVAS once this installation has signed up, WAITLIST
// before.
func (s *LeadService) InitialView() View {
	if _, ok := s.store.MyLead(); ok {
		return ViewCanvas
	}
	return ViewWaitlist
}

// ── Public forms ───────────────────────────────────────────

// JoinWaitlist records a signup for email, credits the referrer and sends
// the confirmation. An explicit referredBy wins over the captured link.
func (s *LeadService) JoinWaitlist(ctx context.Context, email, referredBy string) (WaitlistStatus, error) {
	email = strings.TrimSpace(email)
	if err := leadValidate.Struct(signupInput{Email: email}); err != nil {
		return WaitlistStatus{}, fmt.Errorf("%w: %s", ErrInvalidInput, describeInput(err))
	}
	if referredBy == "" {
		referredBy = s.Referral()
	}

	lead, err := s.store.NewSignup(email, referredBy)
	if err != nil {
		return WaitlistStatus{}, err
	}
	lead, err = s.store.Append(lead)
	if err != nil {
		return WaitlistStatus{}, fmt.Errorf("save signup: %w", err)
	}
	if err := s.store.SetMyLead(lead); err != nil {
		return WaitlistStatus{}, fmt.Errorf("save own lead: %w", err)
	}
	s.SetReferral("")

	s.send(ctx, notify.Confirmation(lead.Email))
	s.emitter.Emit(ctx, EventLeadsChanged, s.store.Stats())

	return s.statusFor(lead, ""), nil
}

// SubmitContact records a contact-form message and alerts the owner.
func (s *LeadService) SubmitContact(ctx context.Context, email, message string) (domain.Lead, error) {
	in := contactInput{Email: strings.TrimSpace(email), Message: strings.TrimSpace(message)}
	if err := leadValidate.Struct(in); err != nil {
		return domain.Lead{}, fmt.Errorf("%w: %s", ErrInvalidInput, describeInput(err))
	}
	lead, err := s.store.Append(s.store.NewContact(in.Email, in.Message))
	if err != nil {
		return domain.Lead{}, fmt.Errorf("save contact: %w", err)
	}

	s.send(ctx, notify.OwnerAlert(s.ownerEmail, lead.Email, lead.Message))
	s.emitter.Emit(ctx, EventLeadsChanged, s.store.Stats())
	return lead, nil
}

// send dispatches n without waiting. Delivery outlives the request.
func (s *LeadService) send(ctx context.Context, n notify.Notification) {
	if s.notifier == nil {
		return
	}
	notify.Dispatch(context.WithoutCancel(ctx), s.notifier, n, s.log)
}

// Status reports the own signup, with a share link built on base.
func (s *LeadService) Status(base string) WaitlistStatus {
	mine, ok := s.store.MyLead()
	if !ok {
		return WaitlistStatus{}
	}
	// Referral counts live on the collection copy.
	if l, err := s.store.Get(mine.ID); err == nil {
		mine.ReferralCount = l.ReferralCount
	}
	return s.statusFor(mine, base)
}

func (s *LeadService) statusFor(l domain.Lead, base string) WaitlistStatus {
	st := WaitlistStatus{Joined: true, Lead: l, Rank: leads.Rank(l)}
	if base != "" {
		st.ShareLink = ShareLink(base, l.ReferralCode)
	}
	return st
}

// ── Admin ──────────────────────────────────────────────────

func (s *LeadService) List(f domain.LeadFilter) []domain.Lead {
	return s.store.Filter(f)
}

func (s *LeadService) Stats() domain.LeadStats {
	return s.store.Stats()
}

func (s *LeadService) MarkProcessed(ctx context.Context, ids []string) (int, error) {
	n, err := s.store.MarkProcessed(ids)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.emitter.Emit(ctx, EventLeadsChanged, s.store.Stats())
	}
	return n, nil
}

func (s *LeadService) Delete(ctx context.Context, ids []string) (int, error) {
	n, err := s.store.Delete(ids)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.emitter.Emit(ctx, EventLeadsChanged, s.store.Stats())
	}
	return n, nil
}

// ExportCSV renders the filtered leads and the suggested file name.
func (s *LeadService) ExportCSV(f domain.LeadFilter) (string, []byte, error) {
	var buf bytes.Buffer
	if err := leads.WriteCSV(&buf, s.store.Filter(f)); err != nil {
		return "", nil, err
	}
	return leads.CSVFileName(s.now()), buf.Bytes(), nil
}

func describeInput(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid e-mail address")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, e.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}
