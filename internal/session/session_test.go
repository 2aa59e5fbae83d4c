package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kisumi/kisumi/internal/core/auth"
	"github.com/kisumi/kisumi/internal/core/data"
)

// countingVerifier accepts a single password and records how often it is asked.
type countingVerifier struct {
	mu       sync.Mutex
	calls    int
	password string
}

func (v *countingVerifier) Hash(_ context.Context, plaintext string) (string, error) {
	return "hash:" + plaintext, nil
}

func (v *countingVerifier) Verify(_ context.Context, plaintext, stored string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	return stored == "hash:"+plaintext && plaintext == v.password, nil
}

func (v *countingVerifier) Calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

var testPassword = auth.MD5Hex("password")

func newTestUser(id uint64) *User {
	return NewUser(data.Account{
		ID:         id,
		Username:   "user",
		SafeName:   "user",
		Password:   "hash:" + testPassword,
		Privileges: data.PrivilegeNormal,
	}, data.NewModeStats(id))
}

func newTestDeps(t *testing.T) (AuthDeps, *countingVerifier) {
	t.Helper()
	signer, err := auth.NewJWTSigner([]byte("test"), time.Hour)
	if err != nil {
		t.Fatalf("NewJWTSigner() error = %v", err)
	}
	v := &countingVerifier{password: testPassword}
	return AuthDeps{Verifier: v, Signer: signer}, v
}

func newTestSession(t *testing.T, variant Variant) *Session {
	t.Helper()
	deps, _ := newTestDeps(t)
	return New(variant, NewAuthenticator(variant, deps))
}

func variants(sessions []*Session) []Variant {
	out := make([]Variant, len(sessions))
	for i, s := range sessions {
		out[i] = s.Variant
	}
	return out
}

func TestClientList_Priority(t *testing.T) {
	tests := []struct {
		name        string
		attach      []Variant
		wantOrder   []Variant
		wantPrimary int
	}{
		{
			name:        "stable on empty list is primary",
			attach:      []Variant{Stable},
			wantOrder:   []Variant{Stable},
			wantPrimary: 0,
		},
		{
			name:        "second stable is appended",
			attach:      []Variant{Stable, Stable},
			wantOrder:   []Variant{Stable, Stable},
			wantPrimary: 0,
		},
		{
			name:        "non-stable never displaces stable",
			attach:      []Variant{Stable, Lazer, Web},
			wantOrder:   []Variant{Stable, Lazer, Web},
			wantPrimary: 0,
		},
		{
			name:        "stable takes position 0 from non-stable",
			attach:      []Variant{Web, IRC, Stable},
			wantOrder:   []Variant{Stable, Web, IRC},
			wantPrimary: 2,
		},
		{
			name:        "no stable means no primary stable",
			attach:      []Variant{Lazer},
			wantOrder:   []Variant{Lazer},
			wantPrimary: -1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := newTestUser(1)
			var attached []*Session
			for i, v := range tt.attach {
				s := newTestSession(t, v)
				first, err := u.Clients.Attach(s)
				if err != nil {
					t.Fatalf("Attach() error = %v", err)
				}
				if first != (i == 0) {
					t.Errorf("Attach() #%d first = %v", i, first)
				}
				attached = append(attached, s)
			}

			if diff := cmp.Diff(tt.wantOrder, variants(u.Clients.Snapshot())); diff != "" {
				t.Errorf("unexpected order; diff:\n%s", diff)
			}

			primary := u.Clients.PrimaryStable()
			if tt.wantPrimary < 0 {
				if primary != nil {
					t.Errorf("PrimaryStable() = %s, want nil", primary)
				}
				return
			}
			if primary != attached[tt.wantPrimary] {
				t.Errorf("PrimaryStable() = %v, want session #%d", primary, tt.wantPrimary)
			}
		})
	}
}

func TestClientList_Detach(t *testing.T) {
	u := newTestUser(1)
	a, b := newTestSession(t, Stable), newTestSession(t, Stable)
	for _, s := range []*Session{a, b} {
		if _, err := u.Clients.Attach(s); err != nil {
			t.Fatalf("Attach() error = %v", err)
		}
	}

	if remaining, ok := u.Clients.Detach(a); !ok || remaining != 1 {
		t.Fatalf("Detach() = (%d, %v), want (1, true)", remaining, ok)
	}
	if a.User() != nil {
		t.Errorf("detached session still references its user")
	}
	if _, ok := u.Clients.Detach(a); ok {
		t.Errorf("Detach() of an unattached session reported success")
	}
	if u.Clients.ByID(b.ID) != b {
		t.Errorf("ByID() did not find the remaining session")
	}
	if !u.Clients.HasVariant(Stable) || u.Clients.HasVariant(Web) {
		t.Errorf("HasVariant() returned unexpected results")
	}
	if got := len(u.Clients.AllOfVariant(Stable)); got != 1 {
		t.Errorf("AllOfVariant(Stable) returned %d sessions, want 1", got)
	}
}

func TestClientList_AttachTwice(t *testing.T) {
	u := newTestUser(1)
	s := newTestSession(t, Stable)
	if _, err := u.Clients.Attach(s); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	if _, err := u.Clients.Attach(s); err == nil {
		t.Errorf("Attach() of an attached session expected an error")
	}
	if u.Clients.Len() != 1 {
		t.Errorf("Len() = %d, want 1", u.Clients.Len())
	}
}

func TestOnAttachIssuesToken(t *testing.T) {
	u := newTestUser(42)
	s := newTestSession(t, Stable)
	if s.Token() != "" {
		t.Fatalf("detached session already has a token")
	}
	if _, err := u.Clients.Attach(s); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	token, ok := auth.ParseTokenString(s.Token())
	if !ok || token.AccountID != 42 {
		t.Fatalf("unexpected token %q", s.Token())
	}
	if s.User() != u {
		t.Errorf("session does not reference its user")
	}
}

func TestStableAuth_CachesPassword(t *testing.T) {
	deps, verifier := newTestDeps(t)
	a := NewAuthenticator(Stable, deps)
	a.Bind(1, "hash:"+testPassword)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := a.Authenticate(ctx, testPassword)
		if err != nil || !ok {
			t.Fatalf("Authenticate() #%d = (%v, %v)", i, ok, err)
		}
	}
	if verifier.Calls() != 1 {
		t.Errorf("verifier called %d times, want 1", verifier.Calls())
	}

	// Uppercase digests are the same credential.
	if ok, _ := a.Authenticate(ctx, strings.ToUpper(testPassword)); !ok {
		t.Errorf("Authenticate() rejected an uppercase digest")
	}
	if verifier.Calls() != 1 {
		t.Errorf("verifier called %d times, want 1", verifier.Calls())
	}

	a.Reload()
	if ok, _ := a.Authenticate(ctx, testPassword); !ok {
		t.Errorf("Authenticate() after Reload() failed")
	}
	if verifier.Calls() != 2 {
		t.Errorf("verifier called %d times after Reload(), want 2", verifier.Calls())
	}
}

func TestStableAuth_DoesNotCacheFailures(t *testing.T) {
	deps, verifier := newTestDeps(t)
	a := NewAuthenticator(Stable, deps)
	a.Bind(1, "hash:"+testPassword)
	wrong := auth.MD5Hex("wrong")

	for i := 0; i < 2; i++ {
		if ok, err := a.Authenticate(context.Background(), wrong); ok || err != nil {
			t.Fatalf("Authenticate() = (%v, %v), want (false, nil)", ok, err)
		}
	}
	if verifier.Calls() != 2 {
		t.Errorf("verifier called %d times, want 2", verifier.Calls())
	}
	if a.Authenticated() {
		t.Errorf("failed attempts left the authenticator authenticated")
	}
}

func TestStableAuth_Credentials(t *testing.T) {
	deps, verifier := newTestDeps(t)
	a := NewAuthenticator(Stable, deps)
	a.Bind(7, "hash:"+testPassword)
	token, err := a.IssueToken()
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	tests := []struct {
		name       string
		credential string
		want       bool
		wantErr    error
	}{
		{name: "issued token", credential: token, want: true},
		{name: "other secret", credential: "7|other", want: false},
		{name: "other account", credential: "8|" + strings.SplitN(token, "|", 2)[1], want: false},
		{name: "32 characters of non-hex", credential: strings.Repeat("g", 32), wantErr: ErrCredentialShape},
		{name: "garbage", credential: "not a credential", wantErr: ErrCredentialShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := a.Authenticate(context.Background(), tt.credential)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Authenticate() error = %v, want %v", err, tt.wantErr)
			}
			if ok != tt.want {
				t.Errorf("Authenticate() = %v, want %v", ok, tt.want)
			}
		})
	}
	if verifier.Calls() != 0 {
		t.Errorf("token checks invoked the password verifier")
	}
}

func TestStableAuth_Unbound(t *testing.T) {
	deps, _ := newTestDeps(t)
	a := NewAuthenticator(Stable, deps)
	if _, err := a.Authenticate(context.Background(), testPassword); !errors.Is(err, ErrUnbound) {
		t.Errorf("Authenticate() error = %v, want %v", err, ErrUnbound)
	}
	if _, err := a.IssueToken(); !errors.Is(err, ErrUnbound) {
		t.Errorf("IssueToken() error = %v, want %v", err, ErrUnbound)
	}
}

func TestJWTAuth(t *testing.T) {
	deps, _ := newTestDeps(t)
	a := NewAuthenticator(Lazer, deps)
	a.Bind(3, "hash:"+testPassword)
	token, err := a.IssueToken()
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	other := NewAuthenticator(Web, deps)
	other.Bind(3, "hash:"+testPassword)
	webToken, err := other.IssueToken()
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	tests := []struct {
		name       string
		credential string
		want       bool
		wantErr    error
	}{
		{name: "password", credential: testPassword, want: true},
		{name: "token for another variant", credential: webToken, want: false},
		{name: "forged token", credential: "a.b.c", wantErr: auth.ErrTokenInvalid},
		{name: "token string", credential: "3|secret", wantErr: ErrCredentialShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := a.Authenticate(context.Background(), tt.credential)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Authenticate() error = %v, want %v", err, tt.wantErr)
			}
			if ok != tt.want {
				t.Errorf("Authenticate() = %v, want %v", ok, tt.want)
			}
		})
	}

	// Tokens are issued with second precision, so wait until the issue time
	// is strictly in the past.
	time.Sleep(1100 * time.Millisecond)
	if ok, err := a.Authenticate(context.Background(), token); !ok || err != nil {
		t.Errorf("Authenticate(token) = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestActionStableText(t *testing.T) {
	tests := []struct {
		action     Action
		wantText   string
		wantStable ActionID
	}{
		{
			action:     Action{ID: ActionPlaying, Text: "a map", CustomMode: data.CustomModeRelax},
			wantText:   "[RX] a map",
			wantStable: ActionPlaying,
		},
		{
			action:     Action{ID: ActionBotWatching, Text: "someone"},
			wantText:   "[BOT] someone",
			wantStable: ActionWatching,
		},
		{
			action:     Action{ID: ActionWebMaps, Text: "browsing"},
			wantText:   "[Web] browsing",
			wantStable: ActionDirect,
		},
		{
			action:     Action{ID: ActionWebProfile},
			wantText:   "[Web] ",
			wantStable: ActionIdle,
		},
	}
	for _, tt := range tests {
		if got := tt.action.StableText(); got != tt.wantText {
			t.Errorf("StableText() = %q, want %q", got, tt.wantText)
		}
		if got := tt.action.ID.Stable(); got != tt.wantStable {
			t.Errorf("%d.Stable() = %d, want %d", tt.action.ID, got, tt.wantStable)
		}
	}
}

func TestParseStableHWID(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    *StableHWID
		wantErr bool
	}{
		{
			name: "valid",
			in:   "a:b:c:d:e:",
			want: &StableHWID{ClientMD5: "a", Adapters: "b", AdaptersMD5: "c", UninstallerMD5: "d", SerialMD5: "e"},
		},
		{name: "missing trailing separator", in: "a:b:c:d:e", wantErr: true},
		{name: "too few fields", in: "a:b:", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStableHWID(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStableHWID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("unexpected hwid; diff:\n%s", diff)
			}
		})
	}
}

func TestByteQueue(t *testing.T) {
	var q ByteQueue
	q.Append([]byte{1, 2}, []byte{3})
	q.Append([]byte{4})
	if q.Len() != 4 {
		t.Errorf("Len() = %d, want 4", q.Len())
	}
	if diff := cmp.Diff([]byte{1, 2, 3, 4}, q.Drain()); diff != "" {
		t.Errorf("unexpected drain; diff:\n%s", diff)
	}
	if q.Len() != 0 || q.Drain() != nil {
		t.Errorf("queue not empty after Drain()")
	}
}

func TestClientPrivileges(t *testing.T) {
	u := NewUser(data.Account{ID: 1, Privileges: data.PrivilegeNormal | data.PrivilegeSupporter | data.PrivilegeDeveloper}, nil)
	want := uint32(1 | 4 | 16)
	if got := u.ClientPrivileges(); got != want {
		t.Errorf("ClientPrivileges() = %b, want %b", got, want)
	}
}
