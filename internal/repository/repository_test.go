package repository

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/petermazzocco/go-notes-project/internal/testdb"
	"github.com/petermazzocco/go-notes-project/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestUpsertNoteCreatesWhenIDAbsent(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	repo := New(db)
	kody := testdb.User(t, db, "kody")

	note, err := repo.UpsertNote(ctx, kody.ID, NoteInput{Title: "Hello", Content: "World"})
	require.NoError(t, err)
	require.NotEmpty(t, note.ID)

	got, err := repo.FindOwnedNote(ctx, "kody", note.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Title)
	assert.Equal(t, "World", got.Content)
	assert.Equal(t, kody.ID, got.OwnerID)
	require.NotNil(t, got.Owner)
	assert.Equal(t, "kody", got.Owner.Username)
}

func TestUpsertNoteUpdatesExisting(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	repo := New(db)
	kody := testdb.User(t, db, "kody")

	created, err := repo.UpsertNote(ctx, kody.ID, NoteInput{Title: "Draft", Content: "v1"})
	require.NoError(t, err)

	updated, err := repo.UpsertNote(ctx, kody.ID, NoteInput{ID: created.ID, Title: "Final", Content: "v2"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Final", updated.Title)

	var count int64
	require.NoError(t, db.Model(&models.Note{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpsertNoteUnknownIDCreatesFreshNote(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	repo := New(db)
	kody := testdb.User(t, db, "kody")

	note, err := repo.UpsertNote(ctx, kody.ID, NoteInput{ID: "missing-id", Title: "T", Content: "C"})
	require.NoError(t, err)
	assert.NotEqual(t, "missing-id", note.ID)
}

func TestUpsertNoteDoesNotTouchOtherOwnersNote(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	repo := New(db)
	kody := testdb.User(t, db, "kody")
	hannah := testdb.User(t, db, "hannah")

	theirs, err := repo.UpsertNote(ctx, hannah.ID, NoteInput{Title: "Mine", Content: "Hands off"})
	require.NoError(t, err)

	_, err = repo.UpsertNote(ctx, kody.ID, NoteInput{ID: theirs.ID, Title: "Stolen", Content: "x"})
	require.NoError(t, err)

	again, err := repo.FindNote(ctx, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mine", again.Title)
}

func TestFindNoteMissing(t *testing.T) {
	repo := New(testdb.New(t))

	_, err := repo.FindNote(context.Background(), "missing-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteNoteScopedToOwner(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	repo := New(db)
	kody := testdb.User(t, db, "kody")
	testdb.User(t, db, "hannah")

	note, err := repo.UpsertNote(ctx, kody.ID, NoteInput{Title: "T", Content: "C"})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteNote(ctx, "hannah", note.ID))
	_, err = repo.FindNote(ctx, note.ID)
	require.NoError(t, err, "another user's delete must not remove the note")

	require.NoError(t, repo.DeleteNote(ctx, "kody", note.ID))
	_, err = repo.FindNote(ctx, note.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteMissingNoteIsNoop(t *testing.T) {
	db := testdb.New(t)
	testdb.User(t, db, "kody")

	assert.NoError(t, New(db).DeleteNote(context.Background(), "kody", "missing-id"))
}

func TestSetOwnerImageUpsertsByOwner(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	repo := New(db)
	kody := testdb.User(t, db, "kody")

	first, err := repo.SetOwnerImage(ctx, kody.ID, ImageData{URL: "https://cdn/a.png", ContentType: "image/png"})
	require.NoError(t, err)

	second, err := repo.SetOwnerImage(ctx, kody.ID, ImageData{URL: "https://cdn/b.jpg", ContentType: "image/jpeg"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "second upload must reuse the owner's image row")
	assert.Equal(t, "https://cdn/b.jpg", second.URL)
	assert.Equal(t, "image/jpeg", second.ContentType)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))

	var count int64
	require.NoError(t, db.Model(&models.Image{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	user, err := repo.FindUserByUsername(ctx, "kody")
	require.NoError(t, err)
	require.NotNil(t, user.Image)
	assert.Equal(t, "https://cdn/b.jpg", user.Image.URL)
}

func TestSetNoteImageIndependentOfProfile(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	repo := New(db)
	kody := testdb.User(t, db, "kody")
	note, err := repo.UpsertNote(ctx, kody.ID, NoteInput{Title: "T", Content: "C"})
	require.NoError(t, err)

	_, err = repo.SetOwnerImage(ctx, kody.ID, ImageData{URL: "https://cdn/profile.png", ContentType: "image/png"})
	require.NoError(t, err)
	attached, err := repo.SetNoteImage(ctx, note.ID, ImageData{URL: "https://cdn/note.png", ContentType: "image/png"})
	require.NoError(t, err)

	got, err := repo.FindImage(ctx, attached.ID)
	require.NoError(t, err)
	require.NotNil(t, got.NoteID)
	assert.Equal(t, note.ID, *got.NoteID)
	assert.Nil(t, got.UserID)
}

func TestSearchUsersPrefersUsersWithImages(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	repo := New(db)
	testdb.User(t, db, "alice")
	bob := testdb.User(t, db, "bob")
	testdb.User(t, db, "carol")

	_, err := repo.SetOwnerImage(ctx, bob.ID, ImageData{URL: "https://cdn/bob.png", ContentType: "image/png"})
	require.NoError(t, err)

	all, err := repo.SearchUsers(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "bob", all[0].Username)
	assert.Equal(t, "alice", all[1].Username)

	some, err := repo.SearchUsers(ctx, "ar", 10)
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "carol", some[0].Username)
}

func TestSearchUsersTreatsWildcardsLiterally(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	repo := New(db)
	testdb.User(t, db, "kody")
	testdb.User(t, db, "kody_koala")

	for term, want := range map[string][]string{
		"%":  nil,
		"_":  {"kody_koala"},
		"y_": {"kody_koala"},
		`\`: nil,
	} {
		users, err := repo.SearchUsers(ctx, term, 10)
		require.NoError(t, err, term)
		var got []string
		for _, u := range users {
			got = append(got, u.Username)
		}
		assert.Equal(t, want, got, term)
	}
}

func TestListNotesOmitsContent(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	repo := New(db)
	kody := testdb.User(t, db, "kody")

	_, err := repo.UpsertNote(ctx, kody.ID, NoteInput{Title: "One", Content: strings.Repeat("x", 50)})
	require.NoError(t, err)

	notes, err := repo.ListNotes(ctx, kody.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "One", notes[0].Title)
	assert.Empty(t, notes[0].Content)
}

func TestSeedNotes(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	repo := New(db)
	kody := testdb.User(t, db, "kody")
	testdb.User(t, db, "hannah")

	created, err := repo.SeedNotes(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 20, created)

	notes, err := repo.ListNotes(ctx, kody.ID)
	require.NoError(t, err)
	assert.Len(t, notes, 10)
}

func TestFindOrCreateIdentity(t *testing.T) {
	ctx := context.Background()
	repo := New(testdb.New(t))

	alice := Identity{Provider: "google", ProviderID: "111", Email: "alice@example.com", Username: "kody_koala", Name: "Kody Koala"}
	mallory := Identity{Provider: "google", ProviderID: "222", Email: "mallory@example.com", Username: "kody_koala", Name: "Kody Koala"}

	first, err := repo.FindOrCreateIdentity(ctx, alice)
	require.NoError(t, err)
	second, err := repo.FindOrCreateIdentity(ctx, mallory)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "kody_koala", first.Username)
	assert.Equal(t, "kody_koala-2", second.Username)

	alice.Username = "renamed"
	alice.Name = "Someone Else"
	again, err := repo.FindOrCreateIdentity(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "kody_koala", again.Username)
	assert.Equal(t, "Kody Koala", again.DisplayName())
}

func TestFindOrCreateIdentityDefaultsUsername(t *testing.T) {
	ctx := context.Background()
	repo := New(testdb.New(t))

	user, err := repo.FindOrCreateIdentity(ctx, Identity{Provider: "google", ProviderID: "333"})
	require.NoError(t, err)
	assert.Equal(t, "user", user.Username)

	_, err = repo.FindOrCreateIdentity(ctx, Identity{Provider: "google", Username: "kody"})
	assert.Error(t, err)
}

func TestStoreFailureIsNotNotFound(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT .* FROM "users"`).WillReturnError(errors.New("connection reset by peer"))

	_, err = New(db).FindUserByUsername(context.Background(), "kody")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "connection reset by peer")
	assert.NoError(t, mock.ExpectationsWereMet())
}
