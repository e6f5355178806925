package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-todo-api/internal/domain"
	"github.com/go-todo-api/internal/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}

type mockVerificationStore struct{ mock.Mock }

func (m *mockVerificationStore) Put(ctx context.Context, t *domain.VerificationToken) error {
	return m.Called(ctx, t).Error(0)
}
func (m *mockVerificationStore) Get(ctx context.Context, token string) (*domain.VerificationToken, error) {
	args := m.Called(ctx, token)
	if t, _ := args.Get(0).(*domain.VerificationToken); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockVerificationStore) Delete(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}
func (m *mockVerificationStore) DeleteAllForEmail(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

type mockResetStore struct{ mock.Mock }

func (m *mockResetStore) Put(ctx context.Context, t *domain.PasswordResetToken) error {
	return m.Called(ctx, t).Error(0)
}
func (m *mockResetStore) ScanLive(ctx context.Context, now time.Time) ([]domain.PasswordResetToken, error) {
	args := m.Called(ctx, now)
	if ts, _ := args.Get(0).([]domain.PasswordResetToken); ts != nil {
		return ts, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockResetStore) MarkUsed(ctx context.Context, tokenID string) error {
	return m.Called(ctx, tokenID).Error(0)
}
func (m *mockResetStore) DeleteAllForUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendVerificationEmail(to, verifyURL string) error {
	return m.Called(to, verifyURL).Error(0)
}
func (m *mockMailer) SendPasswordResetEmail(to, resetURL string) error {
	return m.Called(to, resetURL).Error(0)
}

// --- builder ---

func newService(us *mockUserStore, vs *mockVerificationStore, rs *mockResetStore, ml *mockMailer) Service {
	return NewService(ServiceDeps{
		UserRepo:          us,
		VerificationRepo:  vs,
		ResetRepo:         rs,
		Mailer:            ml,
		VerificationLimit: ratelimit.NewFixedWindow(3, time.Hour),
		BaseURL:           "http://localhost:3000",
	})
}

// --- SendVerificationEmail ---

func TestSendVerificationEmail_PurgesPriorTokensBeforeIssuing(t *testing.T) {
	us := &mockUserStore{}
	vs := &mockVerificationStore{}
	ml := &mockMailer{}

	us.On("GetByEmail", mock.Anything, "bob@x.com").Return(nil, domain.ErrNotFound)
	vs.On("DeleteAllForEmail", mock.Anything, "bob@x.com").Return(nil)
	vs.On("Put", mock.Anything, mock.MatchedBy(func(tok *domain.VerificationToken) bool {
		return tok.Email == "bob@x.com" && tok.Token != "" &&
			tok.ExpiresAt > time.Now().Add(23*time.Hour).Unix()
	})).Return(nil)
	ml.On("SendVerificationEmail", "bob@x.com", mock.Anything).Return(nil)

	svc := newService(us, vs, nil, ml)
	err := svc.SendVerificationEmail(context.Background(), "bob@x.com")

	require.NoError(t, err)
	vs.AssertExpectations(t)
	ml.AssertExpectations(t)
}

func TestSendVerificationEmail_NormalisesAddress(t *testing.T) {
	us := &mockUserStore{}
	vs := &mockVerificationStore{}
	ml := &mockMailer{}

	us.On("GetByEmail", mock.Anything, "bob@x.com").Return(nil, domain.ErrNotFound)
	vs.On("DeleteAllForEmail", mock.Anything, "bob@x.com").Return(nil)
	vs.On("Put", mock.Anything, mock.Anything).Return(nil)
	ml.On("SendVerificationEmail", "bob@x.com", mock.Anything).Return(nil)

	svc := newService(us, vs, nil, ml)
	err := svc.SendVerificationEmail(context.Background(), "  Bob@X.com ")

	require.NoError(t, err)
	vs.AssertExpectations(t)
}

func TestSendVerificationEmail_AlreadyVerified_Conflict(t *testing.T) {
	us := &mockUserStore{}
	now := time.Now()
	us.On("GetByEmail", mock.Anything, "bob@x.com").Return(&domain.User{
		UserID: "u1", Email: "bob@x.com", VerifiedAt: &now,
	}, nil)

	svc := newService(us, nil, nil, nil)
	err := svc.SendVerificationEmail(context.Background(), "bob@x.com")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestSendVerificationEmail_FourthRequestRateLimited(t *testing.T) {
	us := &mockUserStore{}
	vs := &mockVerificationStore{}
	ml := &mockMailer{}

	us.On("GetByEmail", mock.Anything, "bob@x.com").Return(nil, domain.ErrNotFound)
	vs.On("DeleteAllForEmail", mock.Anything, "bob@x.com").Return(nil)
	vs.On("Put", mock.Anything, mock.Anything).Return(nil)
	ml.On("SendVerificationEmail", "bob@x.com", mock.Anything).Return(nil)

	svc := newService(us, vs, nil, ml)
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.SendVerificationEmail(context.Background(), "bob@x.com"))
	}

	err := svc.SendVerificationEmail(context.Background(), "bob@x.com")
	require.Error(t, err)
	var rle *domain.RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Greater(t, rle.RetryAfter, time.Duration(0))
}

func TestSendVerificationEmail_MailFailure_TokenStillIssued(t *testing.T) {
	us := &mockUserStore{}
	vs := &mockVerificationStore{}
	ml := &mockMailer{}

	us.On("GetByEmail", mock.Anything, "bob@x.com").Return(nil, domain.ErrNotFound)
	vs.On("DeleteAllForEmail", mock.Anything, "bob@x.com").Return(nil)
	vs.On("Put", mock.Anything, mock.Anything).Return(nil)
	ml.On("SendVerificationEmail", "bob@x.com", mock.Anything).Return(errors.New("smtp down"))

	svc := newService(us, vs, nil, ml)
	err := svc.SendVerificationEmail(context.Background(), "bob@x.com")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMailDelivery))
	vs.AssertExpectations(t) // Put happened before the send failed
}

// --- VerifyEmail ---

func TestVerifyEmail_HappyPath_SetsVerifiedAtAndDeletesToken(t *testing.T) {
	us := &mockUserStore{}
	vs := &mockVerificationStore{}

	vs.On("Get", mock.Anything, "tok1").Return(&domain.VerificationToken{
		Token: "tok1", Email: "bob@x.com",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}, nil)
	us.On("GetByEmail", mock.Anything, "bob@x.com").Return(&domain.User{UserID: "u1", Email: "bob@x.com"}, nil)
	us.On("Update", mock.Anything, "u1", mock.MatchedBy(func(m map[string]interface{}) bool {
		_, ok := m["verified_at"]
		return ok
	})).Return(nil)
	vs.On("Delete", mock.Anything, "tok1").Return(nil)

	svc := newService(us, vs, nil, nil)
	err := svc.VerifyEmail(context.Background(), "tok1")

	require.NoError(t, err)
	us.AssertExpectations(t)
	vs.AssertExpectations(t)
}

func TestVerifyEmail_TokenNotFound(t *testing.T) {
	vs := &mockVerificationStore{}
	vs.On("Get", mock.Anything, "nope").Return(nil, domain.ErrNotFound)

	svc := newService(nil, vs, nil, nil)
	err := svc.VerifyEmail(context.Background(), "nope")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestVerifyEmail_Expired_DeletesTokenAndReturnsExpired(t *testing.T) {
	vs := &mockVerificationStore{}
	vs.On("Get", mock.Anything, "tok1").Return(&domain.VerificationToken{
		Token: "tok1", Email: "bob@x.com",
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	}, nil)
	vs.On("Delete", mock.Anything, "tok1").Return(nil)

	svc := newService(nil, vs, nil, nil)
	err := svc.VerifyEmail(context.Background(), "tok1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExpired))
	assert.False(t, errors.Is(err, domain.ErrNotFound), "expired must be distinct from not-found")
	vs.AssertExpectations(t)
}

func TestVerifyEmail_AlreadyVerified_ShortCircuitsButConsumesToken(t *testing.T) {
	us := &mockUserStore{}
	vs := &mockVerificationStore{}

	verifiedAt := time.Now().Add(-time.Hour)
	vs.On("Get", mock.Anything, "tok1").Return(&domain.VerificationToken{
		Token: "tok1", Email: "bob@x.com",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}, nil)
	us.On("GetByEmail", mock.Anything, "bob@x.com").Return(&domain.User{
		UserID: "u1", Email: "bob@x.com", VerifiedAt: &verifiedAt,
	}, nil)
	vs.On("Delete", mock.Anything, "tok1").Return(nil)

	svc := newService(us, vs, nil, nil)
	err := svc.VerifyEmail(context.Background(), "tok1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	vs.AssertExpectations(t)
	// No Update call: the effect is not re-applied.
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

// --- ForgotPassword ---

func TestForgotPassword_UnknownEmail_NoTokenCreated(t *testing.T) {
	us := &mockUserStore{}
	rs := &mockResetStore{}
	us.On("GetByEmail", mock.Anything, "ghost@x.com").Return(nil, domain.ErrNotFound)

	svc := newService(us, nil, rs, nil)
	err := svc.ForgotPassword(context.Background(), "ghost@x.com")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	rs.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestForgotPassword_StoresHashNotRawSecret(t *testing.T) {
	us := &mockUserStore{}
	rs := &mockResetStore{}
	ml := &mockMailer{}

	us.On("GetByEmail", mock.Anything, "bob@x.com").Return(&domain.User{UserID: "u1", Email: "bob@x.com"}, nil)
	rs.On("DeleteAllForUser", mock.Anything, "u1").Return(nil)

	var stored *domain.PasswordResetToken
	rs.On("Put", mock.Anything, mock.AnythingOfType("*domain.PasswordResetToken")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.PasswordResetToken) }).
		Return(nil)

	var mailedURL string
	ml.On("SendPasswordResetEmail", "bob@x.com", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { mailedURL = args.String(1) }).
		Return(nil)

	svc := newService(us, nil, rs, ml)
	require.NoError(t, svc.ForgotPassword(context.Background(), "bob@x.com"))

	require.NotNil(t, stored)
	require.NotEmpty(t, mailedURL)

	// The raw secret is the query parameter of the mailed URL.
	rawSecret := mailedURL[len("http://localhost:3000/reset-password?token="):]
	assert.NotEqual(t, rawSecret, stored.TokenHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.TokenHash), []byte(rawSecret)))
	assert.False(t, stored.Used)
	assert.InDelta(t, time.Now().Add(time.Hour).Unix(), stored.ExpiresAt, 5)
}

func TestForgotPassword_PurgesPriorResetTokens(t *testing.T) {
	us := &mockUserStore{}
	rs := &mockResetStore{}
	ml := &mockMailer{}

	us.On("GetByEmail", mock.Anything, "bob@x.com").Return(&domain.User{UserID: "u1", Email: "bob@x.com"}, nil)
	rs.On("DeleteAllForUser", mock.Anything, "u1").Return(nil)
	rs.On("Put", mock.Anything, mock.Anything).Return(nil)
	ml.On("SendPasswordResetEmail", mock.Anything, mock.Anything).Return(nil)

	svc := newService(us, nil, rs, ml)
	require.NoError(t, svc.ForgotPassword(context.Background(), "bob@x.com"))
	rs.AssertCalled(t, "DeleteAllForUser", mock.Anything, "u1")
}

// --- ResetPassword ---

func hashOf(t *testing.T, secret string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestResetPassword_FirstMatchWins_UpdatesPasswordAndPurges(t *testing.T) {
	us := &mockUserStore{}
	rs := &mockResetStore{}

	rs.On("ScanLive", mock.Anything, mock.Anything).Return([]domain.PasswordResetToken{
		{TokenID: "t1", UserID: "other", TokenHash: hashOf(t, "other-secret"), ExpiresAt: time.Now().Add(time.Hour).Unix()},
		{TokenID: "t2", UserID: "u1", TokenHash: hashOf(t, "raw-secret"), ExpiresAt: time.Now().Add(time.Hour).Unix()},
	}, nil)
	us.On("Update", mock.Anything, "u1", mock.MatchedBy(func(m map[string]interface{}) bool {
		h, ok := m["password_hash"].(string)
		return ok && bcrypt.CompareHashAndPassword([]byte(h), []byte("newpass123")) == nil
	})).Return(nil)
	rs.On("MarkUsed", mock.Anything, "t2").Return(nil)
	rs.On("DeleteAllForUser", mock.Anything, "u1").Return(nil)

	svc := newService(us, nil, rs, nil)
	err := svc.ResetPassword(context.Background(), "raw-secret", "newpass123")

	require.NoError(t, err)
	us.AssertExpectations(t)
	rs.AssertExpectations(t)
}

func TestResetPassword_NoMatch_NotFound(t *testing.T) {
	us := &mockUserStore{}
	rs := &mockResetStore{}
	rs.On("ScanLive", mock.Anything, mock.Anything).Return([]domain.PasswordResetToken{
		{TokenID: "t1", UserID: "u1", TokenHash: hashOf(t, "different"), ExpiresAt: time.Now().Add(time.Hour).Unix()},
	}, nil)

	svc := newService(us, nil, rs, nil)
	err := svc.ResetPassword(context.Background(), "raw-secret", "newpass123")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestResetPassword_ExpiredToken_PasswordUnchanged(t *testing.T) {
	us := &mockUserStore{}
	rs := &mockResetStore{}

	// A stale row the TTL sweep has not removed yet.
	rs.On("ScanLive", mock.Anything, mock.Anything).Return([]domain.PasswordResetToken{
		{TokenID: "t1", UserID: "u1", TokenHash: hashOf(t, "raw-secret"), ExpiresAt: time.Now().Add(-time.Minute).Unix()},
	}, nil)

	svc := newService(us, nil, rs, nil)
	err := svc.ResetPassword(context.Background(), "raw-secret", "newpass123")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExpired))
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	rs.AssertNotCalled(t, "MarkUsed", mock.Anything, mock.Anything)
}

func TestResetPassword_SecondConsumption_Fails(t *testing.T) {
	us := &mockUserStore{}
	rs := &mockResetStore{}

	// First consumption.
	rs.On("ScanLive", mock.Anything, mock.Anything).Return([]domain.PasswordResetToken{
		{TokenID: "t1", UserID: "u1", TokenHash: hashOf(t, "raw-secret"), ExpiresAt: time.Now().Add(time.Hour).Unix()},
	}, nil).Once()
	us.On("Update", mock.Anything, "u1", mock.Anything).Return(nil).Once()
	rs.On("MarkUsed", mock.Anything, "t1").Return(nil).Once()
	rs.On("DeleteAllForUser", mock.Anything, "u1").Return(nil).Once()

	// Second attempt sees no live tokens, they were purged.
	rs.On("ScanLive", mock.Anything, mock.Anything).Return([]domain.PasswordResetToken{}, nil).Once()

	svc := newService(us, nil, rs, nil)
	require.NoError(t, svc.ResetPassword(context.Background(), "raw-secret", "newpass123"))

	err := svc.ResetPassword(context.Background(), "raw-secret", "otherpass456")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	us.AssertNumberOfCalls(t, "Update", 1)
}
