package services

import (
	"context"
	"testing"

	"gasy-hub-backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUserService() (*UserService, *memory.Store) {
	store := memory.New()
	return NewUserService(store.Users(), "test-secret", []string{"+261 3411 1111"}), store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{
		Name:         "Rasoa",
		Phone:        "+261 3422 2222",
		Password:     "tsiambaratelo",
		Neighborhood: "Analakely",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "+26134222222", resp.User.Phone)
	assert.False(t, resp.User.IsAdmin)
	assert.NotEqual(t, "tsiambaratelo", resp.User.PasswordHash)

	userID, err := svc.ValidateJWT(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, userID)

	login, err := svc.Login(ctx, "+26134222222", "tsiambaratelo")
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)

	_, err = svc.Login(ctx, "+26134222222", "wrong-password")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Login(ctx, "+26100000000", "tsiambaratelo")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()
	lat := -18.91

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"no name", RegisterRequest{Phone: "+26134000001", Password: "secret1"}},
		{"no phone", RegisterRequest{Name: "Rabe", Password: "secret1"}},
		{"short password", RegisterRequest{Name: "Rabe", Phone: "+26134000001", Password: "abc"}},
		{"half coordinates", RegisterRequest{Name: "Rabe", Phone: "+26134000001", Password: "secret1", Latitude: &lat}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestRegisterDuplicatePhone(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Name: "Rabe", Phone: "+26134000001", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterRequest{Name: "Rakoto", Phone: "+261 34 000 001", Password: "secret2"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAdminPhoneBootstrap(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()

	admin, err := svc.Register(ctx, RegisterRequest{Name: "Admin", Phone: "+26134111111", Password: "secret1"})
	require.NoError(t, err)
	assert.True(t, admin.User.IsAdmin)

	user, err := svc.Register(ctx, RegisterRequest{Name: "Rabe", Phone: "+26134000001", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.SetVerified(ctx, user.User.ID, admin.User.ID, true)
	assert.ErrorIs(t, err, ErrForbidden)

	verified, err := svc.SetVerified(ctx, admin.User.ID, user.User.ID, true)
	require.NoError(t, err)
	assert.True(t, verified.HasCIN)

	_, err = svc.SetVerified(ctx, admin.User.ID, "ghost", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePushToken(t *testing.T) {
	svc, store := newTestUserService()
	ctx := context.Background()

	a, err := svc.Register(ctx, RegisterRequest{Name: "A", Phone: "+26134000001", Password: "secret1"})
	require.NoError(t, err)
	b, err := svc.Register(ctx, RegisterRequest{Name: "B", Phone: "+26134000002", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, svc.UpdatePushToken(ctx, a.User.ID, "token-a"))
	require.NoError(t, svc.UpdatePushToken(ctx, b.User.ID, "token-b"))

	tokens, err := store.Users().ListPushTokens(ctx, a.User.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"token-b"}, tokens)

	require.NoError(t, svc.UpdatePushToken(ctx, b.User.ID, " "))
	tokens, err = store.Users().ListPushTokens(ctx, a.User.ID)
	require.NoError(t, err)
	assert.Empty(t, tokens)

	assert.ErrorIs(t, svc.UpdatePushToken(ctx, "ghost", "t"), ErrNotFound)
}

func TestValidateJWTRejectsForeignToken(t *testing.T) {
	svc, _ := newTestUserService()
	other := NewUserService(memory.New().Users(), "another-secret", nil)

	token, err := other.GenerateJWT("u1")
	require.NoError(t, err)

	_, err = svc.ValidateJWT(token)
	assert.Error(t, err)
}
