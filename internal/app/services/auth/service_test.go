package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	domainauth "github.com/slogsolutions/WebBuyer/internal/domain/auth"
	domainuser "github.com/slogsolutions/WebBuyer/internal/domain/user"
)

type memUsers struct {
	byID    map[domainuser.ID]*domainuser.User
	byEmail map[string]domainuser.ID
}

func newMemUsers() *memUsers {
	return &memUsers{
		byID:    make(map[domainuser.ID]*domainuser.User),
		byEmail: make(map[string]domainuser.ID),
	}
}

func (m *memUsers) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *memUsers) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	id, ok := m.byEmail[email]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return m.ByID(ctx, id)
}

func (m *memUsers) Save(ctx context.Context, u *domainuser.User) error {
	if id, ok := m.byEmail[u.Email]; ok && id != u.ID {
		return domainuser.ErrEmailAlreadyUsed
	}
	clone := *u
	m.byID[u.ID] = &clone
	m.byEmail[u.Email] = u.ID
	return nil
}

type memSessions struct {
	byToken map[domainauth.Token]*domainauth.Session
}

func newMemSessions() *memSessions {
	return &memSessions{byToken: make(map[domainauth.Token]*domainauth.Session)}
}

func (m *memSessions) Save(ctx context.Context, s *domainauth.Session) error {
	clone := *s
	m.byToken[s.Token] = &clone
	return nil
}

func (m *memSessions) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	s, ok := m.byToken[token]
	if !ok {
		return nil, domainauth.ErrSessionNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *memSessions) Delete(ctx context.Context, token domainauth.Token) error {
	delete(m.byToken, token)
	return nil
}

func (m *memSessions) DeleteByUser(ctx context.Context, userID domainuser.ID) error {
	for token, s := range m.byToken {
		if s.UserID == userID {
			delete(m.byToken, token)
		}
	}
	return nil
}

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (plainHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return errors.New("mismatch")
	}
	return nil
}

type seqTokens struct{ n int }

func (s *seqTokens) NewToken() (string, error) {
	s.n += 1
	return fmt.Sprintf("tok-%d", s.n), nil
}

func testService() (*Service, *memUsers, *memSessions) {
	users := newMemUsers()
	sessions := newMemSessions()
	svc := &Service{
		Users:      users,
		Sessions:   sessions,
		Passwords:  plainHasher{},
		Tokens:     &seqTokens{},
		SessionTTL: time.Hour,
	}
	return svc, users, sessions
}

func TestRegisterCreatesDriverWithSession(t *testing.T) {
	svc, _, sessions := testService()

	res, err := svc.Register(context.Background(), RegisterParams{
		Email:    "Asha@Example.Com",
		Name:     "Asha",
		Phone:    "+91 5550100",
		Password: "wide open bay",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.User.Email != "asha@example.com" {
		t.Fatalf("expected normalized email, got %q", res.User.Email)
	}
	if len(res.User.Roles) != 1 || res.User.Roles[0] != domainuser.RoleDriver {
		t.Fatalf("expected driver role, got %v", res.User.Roles)
	}
	if res.User.PasswordHash != "hashed:wide open bay" {
		t.Fatalf("expected hashed password, got %q", res.User.PasswordHash)
	}
	if res.User.PhoneVerified != nil {
		t.Fatalf("expected phone verification unset at registration")
	}
	if res.Token == "" {
		t.Fatalf("expected session token")
	}
	if _, err := sessions.Get(context.Background(), domainauth.Token(res.Token)); err != nil {
		t.Fatalf("expected stored session, got %v", err)
	}
}

func TestRegisterWantToListAddsOwnerRole(t *testing.T) {
	svc, _, _ := testService()

	res, err := svc.Register(context.Background(), RegisterParams{
		Email:      "o@example.com",
		Name:       "Omar",
		Password:   "long enough",
		WantToList: true,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !res.User.HasRole(domainuser.RoleOwner) {
		t.Fatalf("expected owner role, got %v", res.User.Roles)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _, _ := testService()

	_, err := svc.Register(context.Background(), RegisterParams{
		Email:    "a@example.com",
		Name:     "A",
		Password: "short",
	})
	if !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := testService()
	ctx := context.Background()

	params := RegisterParams{Email: "a@example.com", Name: "A", Password: "long enough"}
	if _, err := svc.Register(ctx, params); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := svc.Register(ctx, params); !errors.Is(err, domainuser.ErrEmailAlreadyUsed) {
		t.Fatalf("expected ErrEmailAlreadyUsed, got %v", err)
	}
}

func TestLoginChecksCredentials(t *testing.T) {
	svc, _, _ := testService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterParams{Email: "a@example.com", Name: "A", Password: "long enough"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, err := svc.Login(ctx, LoginParams{Email: "a@example.com", Password: "wrong wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, LoginParams{Email: "nobody@example.com", Password: "long enough"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}

	res, err := svc.Login(ctx, LoginParams{Email: "A@Example.com", Password: "long enough"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Token == "" {
		t.Fatalf("expected session token")
	}
}

func TestResolveTokenLoadsUserFresh(t *testing.T) {
	svc, users, _ := testService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterParams{Email: "d@example.com", Name: "D", Password: "long enough"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	res, err := svc.ResolveToken(ctx, reg.Token)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.User.IdentityVerified {
		t.Fatalf("expected unverified identity at registration")
	}

	// Verification lands out of band; the very next resolve must see it.
	stored := users.byID[reg.User.ID]
	stored.MarkIdentityVerified(time.Now())

	res, err = svc.ResolveToken(ctx, reg.Token)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !res.User.IdentityVerified {
		t.Fatalf("expected resolve to observe new verification state")
	}
}

func TestResolveTokenDropsOrphanedSession(t *testing.T) {
	svc, users, sessions := testService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterParams{Email: "d@example.com", Name: "D", Password: "long enough"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	delete(users.byID, reg.User.ID)

	if _, err := svc.ResolveToken(ctx, reg.Token); !errors.Is(err, domainauth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := sessions.Get(ctx, domainauth.Token(reg.Token)); !errors.Is(err, domainauth.ErrSessionNotFound) {
		t.Fatalf("expected orphaned session removed, got %v", err)
	}
}

func TestLogoutDeletesSession(t *testing.T) {
	svc, _, _ := testService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterParams{Email: "d@example.com", Name: "D", Password: "long enough"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := svc.Logout(ctx, reg.Token); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := svc.ResolveToken(ctx, reg.Token); !errors.Is(err, domainauth.ErrSessionNotFound) {
		t.Fatalf("expected session gone, got %v", err)
	}
}

func TestPhoneLifecycle(t *testing.T) {
	svc, _, _ := testService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterParams{Email: "d@example.com", Name: "D", Password: "long enough"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	u, err := svc.UpdatePhone(ctx, reg.User.ID, "+91 5550123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if u.PhoneVerified == nil || *u.PhoneVerified {
		t.Fatalf("expected explicit unverified flag after phone change, got %v", u.PhoneVerified)
	}

	u, err = svc.ConfirmPhone(ctx, reg.User.ID, true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if u.PhoneVerified == nil || !*u.PhoneVerified {
		t.Fatalf("expected verified flag, got %v", u.PhoneVerified)
	}

	// A later number change invalidates the earlier confirmation.
	u, err = svc.UpdatePhone(ctx, reg.User.ID, "+91 5550999")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if u.PhoneVerified == nil || *u.PhoneVerified {
		t.Fatalf("expected confirmation reset, got %v", u.PhoneVerified)
	}
}

func TestMarkIdentityVerified(t *testing.T) {
	svc, _, _ := testService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterParams{Email: "d@example.com", Name: "D", Password: "long enough"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	u, err := svc.MarkIdentityVerified(ctx, reg.User.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !u.IdentityVerified {
		t.Fatalf("expected identity verified")
	}
	if _, err := svc.MarkIdentityVerified(ctx, "ghost"); !errors.Is(err, domainuser.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
