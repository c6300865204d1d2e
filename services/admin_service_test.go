package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/inmatch/models"
)

func seedSuperAdmin(t *testing.T, svc AdminService) *models.Admin {
	t.Helper()
	admin, created, err := svc.EnsureSuperAdmin(context.Background(), RegisterAdminInput{
		Name:     "Root",
		Email:    "root@inmatch.test",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	require.True(t, created)
	return admin
}

func TestEnsureSuperAdmin_Idempotent(t *testing.T) {
	svc := NewAdminService(newFakeAdminRepo(), nil)
	first := seedSuperAdmin(t, svc)
	assert.Equal(t, models.RoleSuperAdmin, first.Role)
	assert.Empty(t, first.PasswordHash)

	again, created, err := svc.EnsureSuperAdmin(context.Background(), RegisterAdminInput{
		Name: "Root", Email: "root@inmatch.test", Password: "another-pass",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
}

func TestAdminLogin(t *testing.T) {
	svc := NewAdminService(newFakeAdminRepo(), nil)
	root := seedSuperAdmin(t, svc)
	ctx := context.Background()

	admin, err := svc.Login(ctx, LoginInput{Email: "root@inmatch.test", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, root.ID, admin.ID)
	assert.Empty(t, admin.PasswordHash)

	_, err = svc.Login(ctx, LoginInput{Email: "root@inmatch.test", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginInput{Email: "nobody@inmatch.test", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAdminRegister(t *testing.T) {
	svc := NewAdminService(newFakeAdminRepo(), nil)
	root := seedSuperAdmin(t, svc)
	super := Actor{ID: root.ID, Role: models.RoleSuperAdmin}
	ctx := context.Background()

	admin, err := svc.Register(ctx, super, RegisterAdminInput{Name: "Editor", Email: "Editor@InMatch.test", Password: "12345678"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.Equal(t, "editor@inmatch.test", admin.Email)

	tests := []struct {
		name  string
		actor Actor
		input RegisterAdminInput
		want  error
	}{
		{"plain admin", Actor{ID: admin.ID, Role: models.RoleAdmin}, RegisterAdminInput{Name: "x", Email: "x@y.z", Password: "12345678"}, ErrForbiddenOperation},
		{"no name", super, RegisterAdminInput{Email: "x@y.z", Password: "12345678"}, ErrAdminNameRequired},
		{"bad email", super, RegisterAdminInput{Name: "x", Email: "not-an-email", Password: "12345678"}, ErrAdminInvalidEmail},
		{"short password", super, RegisterAdminInput{Name: "x", Email: "x@y.z", Password: "short"}, ErrPasswordTooShort},
		{"bad role", super, RegisterAdminInput{Name: "x", Email: "x@y.z", Password: "12345678", Role: "owner"}, ErrAdminInvalidRole},
		{"duplicate email", super, RegisterAdminInput{Name: "x", Email: "editor@inmatch.test", Password: "12345678"}, ErrAdminEmailConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.actor, tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAdminDelete(t *testing.T) {
	svc := NewAdminService(newFakeAdminRepo(), nil)
	root := seedSuperAdmin(t, svc)
	super := Actor{ID: root.ID, Role: models.RoleSuperAdmin}
	ctx := context.Background()

	editor, err := svc.Register(ctx, super, RegisterAdminInput{Name: "Editor", Email: "e@inmatch.test", Password: "12345678"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, Actor{ID: editor.ID, Role: models.RoleAdmin}, root.ID), ErrForbiddenOperation)
	assert.ErrorIs(t, svc.Delete(ctx, super, root.ID), ErrCannotDeleteSelf)

	second, err := svc.Register(ctx, super, RegisterAdminInput{Name: "Second", Email: "s@inmatch.test", Password: "12345678", Role: models.RoleSuperAdmin})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, Actor{ID: second.ID, Role: models.RoleSuperAdmin}, root.ID))
	// последнего суперадмина удалить нельзя даже другому суперадмину
	third := Actor{ID: 999, Role: models.RoleSuperAdmin}
	assert.ErrorIs(t, svc.Delete(ctx, third, second.ID), ErrLastSuperAdmin)

	require.NoError(t, svc.Delete(ctx, Actor{ID: second.ID, Role: models.RoleSuperAdmin}, editor.ID))
	assert.ErrorIs(t, svc.Delete(ctx, Actor{ID: second.ID, Role: models.RoleSuperAdmin}, editor.ID), ErrAdminNotFound)

	list, err := svc.List(ctx, Actor{ID: second.ID, Role: models.RoleSuperAdmin})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	_, err = svc.List(ctx, Actor{ID: 1, Role: models.RoleAdmin})
	assert.ErrorIs(t, err, ErrForbiddenOperation)
}
