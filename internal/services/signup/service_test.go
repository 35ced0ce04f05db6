// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package signup_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"codeberg.org/oliverandrich/coursehub/internal/apperr"
	"codeberg.org/oliverandrich/coursehub/internal/i18n"
	"codeberg.org/oliverandrich/coursehub/internal/models"
	"codeberg.org/oliverandrich/coursehub/internal/repository"
	"codeberg.org/oliverandrich/coursehub/internal/services/signup"
	"codeberg.org/oliverandrich/coursehub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	if err := i18n.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type mockSender struct{ mock.Mock }

func (m *mockSender) Send(ctx context.Context, to, subject, body string) error {
	return m.Called(ctx, to, subject, body).Error(0)
}

type fixture struct {
	svc    *signup.Service
	repo   *repository.Repository
	clock  *testutil.Clock
	mailer *mockSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	clock := testutil.NewClock()
	mailer := &mockSender{}
	mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := signup.NewService(repo, mailer, signup.Options{
		EchoCode: true,
		HashCost: bcrypt.MinCost,
		Now:      clock.Now,
	})
	return &fixture{svc: svc, repo: repo, clock: clock, mailer: mailer}
}

func (f *fixture) request(t *testing.T, address string) *signup.RequestResult {
	t.Helper()
	res, err := f.svc.RequestCode(context.Background(), address)
	require.NoError(t, err)
	require.Len(t, res.Code, 6)
	return res
}

func (f *fixture) verified(t *testing.T, address string) {
	t.Helper()
	res := f.request(t, address)
	_, err := f.svc.VerifyCode(context.Background(), address, res.Code)
	require.NoError(t, err)
}

func otherCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}

func validInput(address, username string) signup.CompleteSignupInput {
	return signup.CompleteSignupInput{
		Email:           address,
		Name:            "Jane Doe",
		Username:        username,
		Password:        "s3cret-pass",
		ConfirmPassword: "s3cret-pass",
	}
}

func TestRequestCode_SendsCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.request(t, "  Jane@Example.com ")

	assert.Equal(t, signup.StageVerify, res.Stage)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, f.clock.Now().Add(5*time.Minute), res.ExpiresAt)

	rec, err := f.repo.GetOtpRecord(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, res.Code, rec.Code)
	assert.Equal(t, models.StatusSent, rec.Status)
	assert.Equal(t, models.PurposeSignup, rec.Purpose)

	require.Len(t, f.mailer.Calls, 1)
	call := f.mailer.Calls[0]
	assert.Equal(t, "jane@example.com", call.Arguments.String(1))
	assert.Equal(t, "Your Coursehub verification code", call.Arguments.String(2))
	assert.Contains(t, call.Arguments.String(3), res.Code)
	assert.Contains(t, call.Arguments.String(3), "5 minutes")
}

func TestRequestCode_NoEchoByDefault(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	mailer := &mockSender{}
	mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := signup.NewService(repo, mailer, signup.Options{})

	res, err := svc.RequestCode(context.Background(), "jane@example.com")

	require.NoError(t, err)
	assert.Empty(t, res.Code)
}

func TestRequestCode_InvalidEmail(t *testing.T) {
	f := newFixture(t)

	for _, address := range []string{"", "not-an-email"} {
		_, err := f.svc.RequestCode(context.Background(), address)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	}
	f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestCode_EmailTaken(t *testing.T) {
	f := newFixture(t)
	testutil.NewTestAccount(t, f.repo, "jane@example.com", "jane")

	_, err := f.svc.RequestCode(context.Background(), "jane@example.com")

	assert.ErrorIs(t, err, apperr.ErrEmailTaken)
	f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestCode_ReplacesPreviousCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.request(t, "jane@example.com")
	f.clock.Advance(time.Minute)
	second := f.request(t, "jane@example.com")

	rec, err := f.repo.GetOtpRecord(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, second.Code, rec.Code)
	assert.Equal(t, 2, second.Attempts)

	if first.Code != second.Code {
		_, err = f.svc.VerifyCode(ctx, "jane@example.com", first.Code)
		assert.ErrorIs(t, err, apperr.ErrMismatch)
	}
}

func TestRequestCode_RateLimited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		res := f.request(t, "jane@example.com")
		assert.Equal(t, want, res.Attempts)
		f.clock.Advance(time.Minute)
	}

	_, err := f.svc.RequestCode(ctx, "jane@example.com")
	require.ErrorIs(t, err, apperr.ErrRateLimited)
	assert.Len(t, f.mailer.Calls, 3)

	// Other addresses are unaffected.
	f.request(t, "john@example.com")
}

func TestRequestCode_WindowElapses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for range 3 {
		f.request(t, "jane@example.com")
	}
	_, err := f.svc.RequestCode(ctx, "jane@example.com")
	require.ErrorIs(t, err, apperr.ErrRateLimited)

	f.clock.Advance(15*time.Minute + time.Second)

	res := f.request(t, "jane@example.com")
	assert.Equal(t, 1, res.Attempts)
}

func TestRequestCode_ConfigurableLimits(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	clock := testutil.NewClock()
	mailer := &mockSender{}
	mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := signup.NewService(repo, mailer, signup.Options{
		CodeTTL:       time.Minute,
		AttemptWindow: time.Hour,
		MaxAttempts:   1,
		Now:           clock.Now,
	})
	ctx := context.Background()

	res, err := svc.RequestCode(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(time.Minute), res.ExpiresAt)

	clock.Advance(30 * time.Minute)
	_, err = svc.RequestCode(ctx, "jane@example.com")
	assert.ErrorIs(t, err, apperr.ErrRateLimited)
	assert.Equal(t, time.Hour, svc.AttemptWindow())
}

func TestRequestCode_DeliveryFailed(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	mailer := &mockSender{}
	mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))
	clock := testutil.NewClock()
	svc := signup.NewService(repo, mailer, signup.Options{Now: clock.Now})
	ctx := context.Background()

	_, err := svc.RequestCode(ctx, "jane@example.com")

	require.ErrorIs(t, err, apperr.ErrDeliveryFailed)
	assert.Contains(t, err.Error(), "smtp down")

	rec, err := repo.GetOtpRecord(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, rec.Status)

	session, err := repo.GetAttemptSession(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, session.Attempts)
}

func TestVerifyCode_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.request(t, "jane@example.com")

	out, err := f.svc.VerifyCode(ctx, "Jane@example.com", res.Code)

	require.NoError(t, err)
	assert.Equal(t, signup.StageComplete, out.Stage)
	assert.Equal(t, models.PurposeSignup, out.Purpose)

	rec, err := f.repo.GetOtpRecord(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, rec.Status)

	_, err = f.repo.GetAttemptSession(ctx, "jane@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestVerifyCode_Mismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.request(t, "jane@example.com")

	for _, wrong := range []string{otherCode(res.Code), "12345", res.Code + "0"} {
		_, err := f.svc.VerifyCode(ctx, "jane@example.com", wrong)
		assert.ErrorIs(t, err, apperr.ErrMismatch, wrong)
	}

	rec, err := f.repo.GetOtpRecord(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, rec.Status)

	_, err = f.svc.VerifyCode(ctx, "jane@example.com", res.Code)
	assert.NoError(t, err)
}

func TestVerifyCode_Twice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.request(t, "jane@example.com")

	_, err := f.svc.VerifyCode(ctx, "jane@example.com", res.Code)
	require.NoError(t, err)

	_, err = f.svc.VerifyCode(ctx, "jane@example.com", res.Code)
	assert.ErrorIs(t, err, apperr.ErrAlreadyUsed)
}

func TestVerifyCode_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.request(t, "jane@example.com")

	f.clock.Advance(5*time.Minute + time.Second)

	_, err := f.svc.VerifyCode(ctx, "jane@example.com", res.Code)
	require.ErrorIs(t, err, apperr.ErrExpired)

	_, err = f.repo.GetOtpRecord(ctx, "jane@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = f.svc.VerifyCode(ctx, "jane@example.com", res.Code)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestVerifyCode_AtExactTTL(t *testing.T) {
	f := newFixture(t)
	res := f.request(t, "jane@example.com")

	f.clock.Advance(5 * time.Minute)

	_, err := f.svc.VerifyCode(context.Background(), "jane@example.com", res.Code)
	assert.NoError(t, err)
}

func TestVerifyCode_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.VerifyCode(context.Background(), "jane@example.com", "123456")

	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestVerifyCode_MissingCode(t *testing.T) {
	f := newFixture(t)
	f.request(t, "jane@example.com")

	_, err := f.svc.VerifyCode(context.Background(), "jane@example.com", "")

	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestCompleteSignup_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.verified(t, "jane@example.com")

	account, err := f.svc.CompleteSignup(ctx, validInput("Jane@Example.com", "abc123"))

	require.NoError(t, err)
	assert.NotEmpty(t, account.ID)
	assert.Equal(t, "jane@example.com", account.Email)
	assert.Equal(t, "abc123", account.Username)
	assert.Equal(t, "Jane Doe", account.Name)

	data, err := json.Marshal(account)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "password")
	assert.NotContains(t, string(data), "$2a$")

	stored, err := f.repo.GetAccountByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret-pass")))

	_, err = f.repo.GetOtpRecord(ctx, "jane@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = f.svc.CompleteSignup(ctx, validInput("jane@example.com", "abc123"))
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)

	_, err = f.svc.CompleteSignup(ctx, validInput("jane@example.com", "other1"))
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
}

func TestCompleteSignup_PasswordMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := validInput("jane@example.com", "abc123")
	in.ConfirmPassword = "different-pass"

	_, err := f.svc.CompleteSignup(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput, "unverified")

	f.verified(t, "jane@example.com")
	_, err = f.svc.CompleteSignup(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput, "verified")
}

func TestCompleteSignup_InvalidInput(t *testing.T) {
	f := newFixture(t)
	f.verified(t, "jane@example.com")

	tests := []struct {
		name   string
		modify func(*signup.CompleteSignupInput)
	}{
		{"missing email", func(in *signup.CompleteSignupInput) { in.Email = "" }},
		{"malformed email", func(in *signup.CompleteSignupInput) { in.Email = "jane" }},
		{"missing name", func(in *signup.CompleteSignupInput) { in.Name = "" }},
		{"missing username", func(in *signup.CompleteSignupInput) { in.Username = "" }},
		{"missing password", func(in *signup.CompleteSignupInput) { in.Password, in.ConfirmPassword = "", "" }},
		{"short password", func(in *signup.CompleteSignupInput) { in.Password, in.ConfirmPassword = "short", "short" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput("jane@example.com", "abc123")
			tt.modify(&in)

			_, err := f.svc.CompleteSignup(context.Background(), in)
			assert.ErrorIs(t, err, apperr.ErrInvalidInput)
		})
	}
}

func TestCompleteSignup_PasswordByteLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.verified(t, "jane@example.com")

	in := validInput("jane@example.com", "abc123")
	in.Password = strings.Repeat("é", 40)
	in.ConfirmPassword = in.Password

	_, err := f.svc.CompleteSignup(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	in.Password = strings.Repeat("é", 36)
	in.ConfirmPassword = in.Password
	_, err = f.svc.CompleteSignup(ctx, in)
	assert.NoError(t, err)
}

func TestCompleteSignup_BlankName(t *testing.T) {
	f := newFixture(t)
	f.verified(t, "jane@example.com")

	in := validInput("jane@example.com", "abc123")
	in.Name = "   "

	_, err := f.svc.CompleteSignup(context.Background(), in)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestCompleteSignup_TrimsName(t *testing.T) {
	f := newFixture(t)
	f.verified(t, "jane@example.com")

	in := validInput("jane@example.com", "abc123")
	in.Name = "  Jane Doe  "

	account, err := f.svc.CompleteSignup(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", account.Name)
}

// lateConflictStore reports both identifiers as free and then fails the
// insert, as a concurrent signup would.
type lateConflictStore struct {
	*repository.Repository
	createErr error
}

func (s *lateConflictStore) EmailExists(context.Context, string) (bool, error)    { return false, nil }
func (s *lateConflictStore) UsernameExists(context.Context, string) (bool, error) { return false, nil }
func (s *lateConflictStore) CreateAccount(context.Context, *models.Account) error { return s.createErr }

func TestCompleteSignup_InsertConflict(t *testing.T) {
	tests := []struct {
		name      string
		createErr error
		want      error
	}{
		{"email", repository.ErrDuplicateEmail, apperr.ErrAlreadyExists},
		{"username", repository.ErrDuplicateUsername, apperr.ErrUsernameTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.verified(t, "jane@example.com")

			store := &lateConflictStore{Repository: f.repo, createErr: tt.createErr}
			svc := signup.NewService(store, f.mailer, signup.Options{HashCost: bcrypt.MinCost, Now: f.clock.Now})

			_, err := svc.CompleteSignup(ctx, validInput("jane@example.com", "abc123"))
			assert.ErrorIs(t, err, tt.want)

			rec, err := f.repo.GetOtpRecord(ctx, "jane@example.com")
			require.NoError(t, err)
			assert.True(t, rec.IsVerified())
		})
	}
}

func TestCompleteSignup_UsernameFormat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.verified(t, "jane@example.com")

	for _, username := range []string{"ab", "UPPERCASE1", "abcdefghijk", "jane_doe"} {
		_, err := f.svc.CompleteSignup(ctx, validInput("jane@example.com", username))
		assert.ErrorIs(t, err, apperr.ErrUsernameInvalid, username)
		assert.NotErrorIs(t, err, apperr.ErrUsernameTaken, username)
	}

	_, err := f.svc.CompleteSignup(ctx, validInput("jane@example.com", "abc123"))
	assert.NoError(t, err)
}

func TestCompleteSignup_UsernameTaken(t *testing.T) {
	f := newFixture(t)
	testutil.NewTestAccount(t, f.repo, "john@example.com", "taken1")
	f.verified(t, "jane@example.com")

	_, err := f.svc.CompleteSignup(context.Background(), validInput("jane@example.com", "taken1"))

	assert.ErrorIs(t, err, apperr.ErrUsernameTaken)
	assert.ErrorIs(t, err, apperr.ErrUsernameInvalid)
}

func TestCompleteSignup_NotVerified(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CompleteSignup(ctx, validInput("jane@example.com", "abc123"))
	assert.ErrorIs(t, err, apperr.ErrNotVerified, "no code")

	f.request(t, "jane@example.com")
	_, err = f.svc.CompleteSignup(ctx, validInput("jane@example.com", "abc123"))
	assert.ErrorIs(t, err, apperr.ErrNotVerified, "code not verified")

	exists, err := f.repo.EmailExists(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCompleteSignup_SweptAfterVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.verified(t, "jane@example.com")

	f.clock.Advance(6 * time.Minute)
	_, _, err := f.svc.Sweep(ctx)
	require.NoError(t, err)

	_, err = f.svc.CompleteSignup(ctx, validInput("jane@example.com", "abc123"))
	assert.ErrorIs(t, err, apperr.ErrNotVerified)
}

func TestStage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	address := "jane@example.com"

	stage := func() signup.Stage {
		s, err := f.svc.Stage(ctx, address)
		require.NoError(t, err)
		return s
	}

	assert.Equal(t, signup.StageEmail, stage())

	res := f.request(t, address)
	assert.Equal(t, signup.StageVerify, stage())

	_, err := f.svc.VerifyCode(ctx, address, res.Code)
	require.NoError(t, err)
	assert.Equal(t, signup.StageComplete, stage())

	_, err = f.svc.CompleteSignup(ctx, validInput(address, "abc123"))
	require.NoError(t, err)
	assert.Equal(t, signup.StageEmail, stage())
}

func TestStage_ExpiredCode(t *testing.T) {
	f := newFixture(t)
	f.request(t, "jane@example.com")
	f.clock.Advance(10 * time.Minute)

	stage, err := f.svc.Stage(context.Background(), "jane@example.com")

	require.NoError(t, err)
	assert.Equal(t, signup.StageEmail, stage)
}

func TestStage_InvalidEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Stage(context.Background(), "nope")

	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.request(t, "jane@example.com")
	f.request(t, "john@example.com")

	f.clock.Advance(10 * time.Minute)
	otps, sessions, err := f.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), otps)
	assert.Zero(t, sessions)

	f.clock.Advance(6 * time.Minute)
	otps, sessions, err = f.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, otps)
	assert.Equal(t, int64(2), sessions)
}

func TestSweep_RunsOnRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.request(t, "jane@example.com")
	f.clock.Advance(10 * time.Minute)
	f.request(t, "john@example.com")

	_, err := f.repo.GetOtpRecord(ctx, "jane@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.repo.GetAttemptSession(ctx, "jane@example.com")
	assert.NoError(t, err)
}
