package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"string_server/models"
)

func validUser(username string) NewUserInput {
	return NewUserInput{Username: username, Password: "correct horse", Name: "Amy", Age: 29, Bio: " hi "}
}

func TestCreateUser_Defaults(t *testing.T) {
	h := newHarness(t)

	u, err := h.users.CreateUser(h.ctx, validUser("amy"))
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "hi", u.Bio)
	assert.InDelta(t, models.DefaultStarRating, u.StarRating, 1e-9)
	assert.Equal(t, models.DefaultFidelityPoints, u.FidelityPoints)
	assert.Equal(t, models.DefaultDailyTugs, u.DailyTugsRemaining)
	assert.Equal(t, start, u.LastTugReset)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("correct horse")))

	got, err := h.users.GetUser(h.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "amy", got.Username)
}

func TestCreateUser_Validation(t *testing.T) {
	h := newHarness(t)
	cases := map[string]func(in *NewUserInput){
		"missing username": func(in *NewUserInput) { in.Username = " " },
		"short password":   func(in *NewUserInput) { in.Password = "short" },
		"long password":    func(in *NewUserInput) { in.Password = strings.Repeat("a", 73) },
		"missing name":     func(in *NewUserInput) { in.Name = "" },
		"underage":         func(in *NewUserInput) { in.Age = 17 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validUser("amy")
			mutate(&in)
			_, err := h.users.CreateUser(h.ctx, in)
			requireKind(t, err, models.KindValidation)
		})
	}

	_, err := h.users.CreateUser(h.ctx, validUser("amy"))
	require.NoError(t, err)
	_, err = h.users.CreateUser(h.ctx, validUser("amy"))
	requireKind(t, err, models.KindDuplicate)

	longest := validUser("bo")
	longest.Password = strings.Repeat("b", 72)
	_, err = h.users.CreateUser(h.ctx, longest)
	require.NoError(t, err)
}

func TestGetUser_ShowsLazyTugReset(t *testing.T) {
	h := newHarness(t)
	h.addUser("amy", func(u *models.User) { u.DailyTugsRemaining = 0 })

	_, err := h.users.GetUser(h.ctx, "ghost")
	requireKind(t, err, models.KindNotFound)

	h.clock.Advance(models.TugResetInterval)
	u, err := h.users.GetUser(h.ctx, "amy")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultDailyTugs, u.DailyTugsRemaining)
}

func TestListUsers_Exclude(t *testing.T) {
	h := newHarness(t)
	h.addUser("amy")
	h.addUser("bo")

	users, err := h.users.ListUsers(h.ctx, "amy")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bo", users[0].ID)

	users, err = h.users.ListUsers(h.ctx, "")
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestUpdateProfile(t *testing.T) {
	h := newHarness(t)
	h.addUser("amy")

	bio, verified := "climber", true
	u, err := h.users.UpdateProfile(h.ctx, "amy", ProfileUpdate{Bio: &bio, IsVerified: &verified})
	require.NoError(t, err)
	assert.Equal(t, "climber", u.Bio)
	assert.True(t, u.IsVerified)
	assert.Equal(t, models.DefaultFidelityPoints, u.FidelityPoints)

	young := 16
	_, err = h.users.UpdateProfile(h.ctx, "amy", ProfileUpdate{Age: &young})
	requireKind(t, err, models.KindValidation)
	_, err = h.users.UpdateProfile(h.ctx, "ghost", ProfileUpdate{Bio: &bio})
	requireKind(t, err, models.KindNotFound)
}
