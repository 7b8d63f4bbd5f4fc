package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ehopn/invoice_go_server/internal/model"
	"github.com/ehopn/invoice_go_server/internal/model/dto"
	"github.com/ehopn/invoice_go_server/internal/repository"
	"github.com/ehopn/invoice_go_server/internal/testutil"
)

func setupUserService(t *testing.T) (*UserService, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	userRepo := repository.NewUserRepository(db)
	service := NewUserService(userRepo, testConfig())

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}

	return service, db, cleanup
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestUserService_GetProfile(t *testing.T) {
	service, db, cleanup := setupUserService(t)
	defer cleanup()

	user := testutil.TestUser(t, db, testutil.WithName("Profile User"))

	info, err := service.GetProfile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Profile User", info.Name)
	assert.Equal(t, user.Email, info.Email)
}

func TestUserService_GetProfile_NotFound(t *testing.T) {
	service, _, cleanup := setupUserService(t)
	defer cleanup()

	_, err := service.GetProfile(99999)
	assert.Equal(t, ErrUserNotFound, err)
}

func TestUserService_UpdateLanguage(t *testing.T) {
	service, db, cleanup := setupUserService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	err := service.UpdateLanguage(user.ID, model.LanguageDE)
	require.NoError(t, err)

	var updated model.User
	require.NoError(t, db.First(&updated, user.ID).Error)
	assert.Equal(t, model.LanguageDE, updated.Language)
}

func TestUserService_UpdateLanguage_Unsupported(t *testing.T) {
	service, db, cleanup := setupUserService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	err := service.UpdateLanguage(user.ID, "fr")
	assert.Equal(t, ErrUnsupportedLanguage, err)

	var updated model.User
	require.NoError(t, db.First(&updated, user.ID).Error)
	assert.Equal(t, model.LanguageEN, updated.Language)
}

func TestUserService_UpdateProfile(t *testing.T) {
	service, db, cleanup := setupUserService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	newName := "Renamed User"
	newEmail := "renamed@example.com"
	info, err := service.UpdateProfile(user.ID, &dto.UpdateProfileRequest{
		Name:  &newName,
		Email: &newEmail,
	})
	require.NoError(t, err)
	assert.Equal(t, newName, info.Name)
	assert.Equal(t, newEmail, info.Email)
}

func TestUserService_UpdateProfile_EmailTaken(t *testing.T) {
	service, db, cleanup := setupUserService(t)
	defer cleanup()

	testutil.TestUser(t, db, testutil.WithEmail("taken@example.com"))
	user := testutil.TestUser(t, db)

	taken := "taken@example.com"
	_, err := service.UpdateProfile(user.ID, &dto.UpdateProfileRequest{Email: &taken})
	assert.Equal(t, ErrEmailExists, err)
}

func TestUserService_ChangePassword(t *testing.T) {
	service, db, cleanup := setupUserService(t)
	defer cleanup()

	user := testutil.TestUser(t, db,
		testutil.WithPasswordHash(hashPassword(t, "old-password")))

	err := service.ChangePassword(user.ID, "old-password", "new-password")
	require.NoError(t, err)

	var updated model.User
	require.NoError(t, db.First(&updated, user.ID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("new-password")))
}

func TestUserService_ChangePassword_WrongCurrent(t *testing.T) {
	service, db, cleanup := setupUserService(t)
	defer cleanup()

	user := testutil.TestUser(t, db,
		testutil.WithPasswordHash(hashPassword(t, "old-password")))

	err := service.ChangePassword(user.ID, "not-the-password", "new-password")
	assert.Equal(t, ErrWrongPassword, err)
}

func TestUserService_DeleteAccount(t *testing.T) {
	service, db, cleanup := setupUserService(t)
	defer cleanup()

	user := testutil.TestUser(t, db,
		testutil.WithPasswordHash(hashPassword(t, "password123")))
	testutil.TestInvoice(t, db, user.ID)
	testutil.TestSubscription(t, db, user.ID)

	err := service.DeleteAccount(user.ID, "password123")
	require.NoError(t, err)

	// 用户连同发票和订阅一起删除
	var count int64
	db.Model(&model.User{}).Where("id = ?", user.ID).Count(&count)
	assert.Zero(t, count)
	db.Model(&model.Invoice{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Zero(t, count)
	db.Model(&model.Subscription{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Zero(t, count)
}

func TestUserService_DeleteAccount_WrongPassword(t *testing.T) {
	service, db, cleanup := setupUserService(t)
	defer cleanup()

	user := testutil.TestUser(t, db,
		testutil.WithPasswordHash(hashPassword(t, "password123")))

	err := service.DeleteAccount(user.ID, "wrong")
	assert.Equal(t, ErrWrongPassword, err)
}
