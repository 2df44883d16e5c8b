// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// Demo backend limits, mirroring the reference server's policy.
const (
	// demoMaxOTPAttempts locks the account after this many wrong codes.
	demoMaxOTPAttempts = 3

	// demoOTPPeriod is the code validity window.
	demoOTPPeriod = 120 * time.Second

	// demoLoginRate throttles first-factor attempts per account.
	demoLoginRate  = rate.Limit(1) // one attempt per second sustained
	demoLoginBurst = 5
)

var demoOTPOpts = totp.ValidateOpts{
	Period: uint(demoOTPPeriod / time.Second),
	Skew:   1,
	Digits: otp.DigitsSix,
}

// demoUser is an account plus the server-side secrets the real backend
// would keep in its user store.
type demoUser struct {
	User
	passwordHash []byte
	totpSecret   string
	otpFailures  int
}

// demoRecord pairs the opaque record the client sees with the plaintext
// and trust state only the server knows.
type demoRecord struct {
	Record
	plaintext RecordData
	// tampered marks a record whose signature check fails on decrypt.
	tampered bool
}

// =============================================================================
// DEMO BACKEND
// =============================================================================

// Demo is the in-memory Backend used when no portal server is
// available. Same interface, same visible behavior: bcrypt passwords,
// TOTP one-time codes, lockout after repeated OTP failures, role-scoped
// record visibility, and one deliberately tampered record so the
// signature-invalid path is reachable.
type Demo struct {
	mu           sync.Mutex
	users        map[string]*demoUser     // keyed by username
	records      []*demoRecord
	sessions     map[string]string        // token -> user ID
	pending      map[string]bool          // usernames with an outstanding OTP
	limiters     map[string]*rate.Limiter
	verifyTokens map[string]string        // username -> registration token

	// OTPSink receives issued codes, standing in for out-of-band
	// delivery. The reference server prints codes to its console.
	OTPSink io.Writer

	now func() time.Time
}

// NewDemo creates a demo backend with the seeded fixture accounts and
// records. Credentials: admin/admin1234, drwilliams/doctor1234,
// alexj/patient1234.
func NewDemo() *Demo {
	d := &Demo{
		users:        make(map[string]*demoUser),
		sessions:     make(map[string]string),
		pending:      make(map[string]bool),
		limiters:     make(map[string]*rate.Limiter),
		verifyTokens: make(map[string]string),
		OTPSink:      io.Discard,
		now:          time.Now,
	}
	d.seed()
	return d
}

func (d *Demo) seed() {
	seedUsers := []struct {
		username, email, role, password string
		locked                          bool
	}{
		{"admin", "admin@aegis.med", "admin", "admin1234", false},
		{"drwilliams", "doc@aegis.med", "doctor", "doctor1234", false},
		{"drpatel", "patel@aegis.med", "doctor", "doctor1234", false},
		{"alexj", "alex@aegis.med", "patient", "patient1234", false},
		{"sarahc", "sarah@aegis.med", "patient", "patient1234", true},
	}
	for _, s := range seedUsers {
		u := d.newUser(s.username, s.email, s.role, s.password)
		u.Verified = true
		u.Locked = s.locked
	}

	doctor := d.users["drwilliams"]
	patient := d.users["alexj"]
	seedRecords := []struct {
		title, category, content string
		tampered                 bool
	}{
		{"Annual Checkup Results", CategoryDiagnosis,
			"Patient shows normal vitals. Blood pressure 120/80. Heart rate 72bpm.", false},
		{"Blood Work Panel", CategoryLabResult,
			"All lab values within normal range. HbA1c 5.2%.", false},
		{"Prescription - Amoxicillin", CategoryPrescription,
			"Amoxicillin 500mg, three times daily for 7 days.", false},
		{"MRI Scan - Left Knee", CategoryImaging,
			"Minor meniscal wear, no tear. Physical therapy recommended.", true},
	}
	created := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)
	for i, s := range seedRecords {
		d.records = append(d.records, &demoRecord{
			Record: Record{
				ID:         uuid.NewString(),
				Title:      s.title,
				Category:   s.category,
				Patient:    UserRef{ID: patient.ID, Username: patient.Username},
				Doctor:     UserRef{ID: doctor.ID, Username: doctor.Username},
				CreatedAt:  created.Add(time.Duration(i) * 24 * time.Hour),
				Ciphertext: "***ENCRYPTED***",
				IV:         uuid.NewString(),
				Signature:  uuid.NewString(),
				Encrypted:  true,
			},
			plaintext: RecordData{Content: s.content, CreatedBy: doctor.Username},
			tampered:  s.tampered,
		})
	}
}

func (d *Demo) newUser(username, email, role, password string) *demoUser {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	key, _ := totp.Generate(totp.GenerateOpts{
		Issuer:      "Aegis Medical",
		AccountName: username,
		Period:      demoOTPOpts.Period,
	})
	u := &demoUser{
		User: User{
			ID:       uuid.NewString(),
			Username: username,
			Email:    email,
			Role:     role,
		},
		passwordHash: hash,
	}
	if key != nil {
		u.totpSecret = key.Secret()
	}
	d.users[username] = u
	return u
}

func (d *Demo) limiter(username string) *rate.Limiter {
	lim, ok := d.limiters[username]
	if !ok {
		lim = rate.NewLimiter(demoLoginRate, demoLoginBurst)
		d.limiters[username] = lim
	}
	return lim
}

func (d *Demo) userByToken(token string) (*demoUser, error) {
	id, ok := d.sessions[token]
	if !ok || token == "" {
		return nil, &APIError{Status: 401, Message: "Invalid or expired session"}
	}
	for _, u := range d.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, &APIError{Status: 401, Message: "Invalid or expired session"}
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

// Login checks the password and, on success, issues a one-time code.
// The demo backend always requires the second factor.
func (d *Demo) Login(_ context.Context, username, password string) (*LoginResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.limiter(username).Allow() {
		return nil, &APIError{Status: 429, Message: "Too many login attempts. Please wait."}
	}

	u, ok := d.users[username]
	if !ok {
		return nil, &APIError{Status: 401, Message: "Invalid username or password"}
	}
	if u.Locked {
		return nil, &APIError{Status: 403, Message: "Account is locked. Contact an administrator."}
	}
	if !u.Verified {
		return nil, &APIError{Status: 403, Message: "Account not verified"}
	}
	if bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)) != nil {
		return nil, &APIError{Status: 401, Message: "Invalid username or password"}
	}

	code, err := totp.GenerateCodeCustom(u.totpSecret, d.now(), demoOTPOpts)
	if err != nil {
		return nil, &APIError{Status: 500, Message: "Failed to issue one-time code"}
	}
	d.pending[username] = true
	fmt.Fprintf(d.OTPSink, "[demo] OTP for %s: %s\n", username, code)

	return &LoginResult{RequiresOTP: true}, nil
}

// VerifyOTP validates the code and issues a session token. Three wrong
// codes lock the account until an administrator unlocks it.
func (d *Demo) VerifyOTP(_ context.Context, username, code string) (*AuthResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[username]
	if !ok || !d.pending[username] {
		return nil, &APIError{Status: 401, Message: "No pending login for this user"}
	}
	if u.Locked {
		return nil, &APIError{Status: 403, Message: "Account is locked. Contact an administrator."}
	}

	valid, err := totp.ValidateCustom(code, u.totpSecret, d.now(), demoOTPOpts)
	if err != nil || !valid {
		u.otpFailures++
		if u.otpFailures >= demoMaxOTPAttempts {
			u.Locked = true
			delete(d.pending, username)
			return nil, &APIError{Status: 403, Message: "Too many failed codes. Account locked."}
		}
		return nil, &APIError{Status: 401, Message: "Invalid or expired code"}
	}

	u.otpFailures = 0
	delete(d.pending, username)

	token := uuid.NewString()
	d.sessions[token] = u.ID
	user := u.User
	return &AuthResult{Token: token, User: user}, nil
}

// Me resolves a token into its identity.
func (d *Demo) Me(_ context.Context, token string) (*User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, err := d.userByToken(token)
	if err != nil {
		return nil, err
	}
	user := u.User
	return &user, nil
}

// =============================================================================
// REGISTRATION
// =============================================================================

// Register creates an unverified account and returns its verification token.
func (d *Demo) Register(_ context.Context, req RegisterRequest) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if req.Username == "" || req.Password == "" || req.Email == "" {
		return "", &APIError{Status: 400, Message: "Username, email and password are required"}
	}
	if len(req.Password) < 6 {
		return "", &APIError{Status: 400, Message: "Password must be at least 6 characters"}
	}
	switch req.Role {
	case "admin", "doctor", "patient":
	default:
		return "", &APIError{Status: 400, Message: "Invalid role"}
	}
	if _, exists := d.users[req.Username]; exists {
		return "", &APIError{Status: 409, Message: "Username already taken"}
	}

	d.newUser(req.Username, req.Email, req.Role, req.Password)
	token := uuid.NewString()
	d.verifyTokens[req.Username] = token
	return token, nil
}

// VerifyRegistration activates an account.
func (d *Demo) VerifyRegistration(_ context.Context, username, token string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	want, ok := d.verifyTokens[username]
	if !ok || want != token {
		return &APIError{Status: 400, Message: "Invalid verification token"}
	}
	delete(d.verifyTokens, username)
	d.users[username].Verified = true
	return nil
}

// =============================================================================
// RECORDS
// =============================================================================

// ListRecords returns records scoped to the caller: patients see their
// own, doctors and admins see everything.
func (d *Demo) ListRecords(_ context.Context, token string) ([]Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, err := d.userByToken(token)
	if err != nil {
		return nil, err
	}

	var out []Record
	for _, r := range d.records {
		if u.Role == "patient" && r.Patient.ID != u.ID {
			continue
		}
		out = append(out, r.Record)
	}
	return out, nil
}

// CreateRecord encrypts-and-signs server-side; here that means storing
// the plaintext behind an opaque placeholder.
func (d *Demo) CreateRecord(_ context.Context, token string, req CreateRecordRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, err := d.userByToken(token)
	if err != nil {
		return err
	}
	if u.Role != "doctor" && u.Role != "admin" {
		return &APIError{Status: 403, Message: "Only doctors and admins can create records"}
	}
	if req.PatientID == "" || req.Title == "" || req.Data.Content == "" {
		return &APIError{Status: 400, Message: "Patient, title and data are required"}
	}
	if !ValidCategory(req.Category) {
		return &APIError{Status: 400, Message: "Invalid category"}
	}

	var patient *demoUser
	for _, cand := range d.users {
		if cand.ID == req.PatientID && cand.Role == "patient" {
			patient = cand
			break
		}
	}
	if patient == nil {
		return &APIError{Status: 404, Message: "Patient not found"}
	}

	d.records = append(d.records, &demoRecord{
		Record: Record{
			ID:         uuid.NewString(),
			Title:      req.Title,
			Category:   req.Category,
			Patient:    UserRef{ID: patient.ID, Username: patient.Username},
			Doctor:     UserRef{ID: u.ID, Username: u.Username},
			CreatedAt:  d.now(),
			Ciphertext: "***ENCRYPTED***",
			IV:         uuid.NewString(),
			Signature:  uuid.NewString(),
			Encrypted:  true,
		},
		plaintext: req.Data,
	})
	return nil
}

// DecryptRecord returns the plaintext and the signature verdict.
// A tampered record still decrypts; signatureValid carries the trust
// failure separately, exactly as the real backend does.
func (d *Demo) DecryptRecord(_ context.Context, token, recordID string) (*DecryptResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, err := d.userByToken(token)
	if err != nil {
		return nil, err
	}

	for _, r := range d.records {
		if r.ID != recordID {
			continue
		}
		if u.Role == "patient" && r.Patient.ID != u.ID {
			return nil, &APIError{Status: 403, Message: "Not your record"}
		}
		data := r.plaintext
		data.Timestamp = r.CreatedAt.Format(time.RFC3339)
		return &DecryptResult{Data: data, SignatureValid: !r.tampered}, nil
	}
	return nil, &APIError{Status: 404, Message: "Record not found"}
}

// =============================================================================
// DIRECTORY
// =============================================================================

// ListPatients returns the patient roster (doctor/admin only).
func (d *Demo) ListPatients(_ context.Context, token string) ([]User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, err := d.userByToken(token)
	if err != nil {
		return nil, err
	}
	if u.Role != "doctor" && u.Role != "admin" {
		return nil, &APIError{Status: 403, Message: "Forbidden"}
	}

	var out []User
	for _, cand := range d.users {
		if cand.Role == "patient" {
			out = append(out, cand.User)
		}
	}
	sortUsers(out)
	return out, nil
}

// ListUsers returns every account (admin only).
func (d *Demo) ListUsers(_ context.Context, token string) ([]User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, err := d.userByToken(token)
	if err != nil {
		return nil, err
	}
	if u.Role != "admin" {
		return nil, &APIError{Status: 403, Message: "Forbidden"}
	}

	var out []User
	for _, cand := range d.users {
		out = append(out, cand.User)
	}
	sortUsers(out)
	return out, nil
}

// UnlockUser clears a lockout (admin only).
func (d *Demo) UnlockUser(_ context.Context, token, userID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, err := d.userByToken(token)
	if err != nil {
		return "", err
	}
	if u.Role != "admin" {
		return "", &APIError{Status: 403, Message: "Forbidden"}
	}

	for _, cand := range d.users {
		if cand.ID == userID {
			cand.Locked = false
			cand.otpFailures = 0
			return "User unlocked", nil
		}
	}
	return "", &APIError{Status: 404, Message: "User not found"}
}

func sortUsers(users []User) {
	sort.Slice(users, func(i, j int) bool {
		return strings.ToLower(users[i].Username) < strings.ToLower(users[j].Username)
	})
}

// interface guard
var _ Backend = (*Demo)(nil)
