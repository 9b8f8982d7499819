package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/petermazzocco/go-notes-project/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const DefaultSearchLimit = 50

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ErrNotFound is returned by the find operations when no row matches.
var ErrNotFound = errors.New("record not found")

type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Open connects to postgres or sqlite and routes gorm's own logging through log.
func Open(driver, dsn string, log logrus.FieldLogger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(log, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", driver, err)
	}
	return db, nil
}

func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&models.User{}, &models.Note{}, &models.Image{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

type NoteInput struct {
	ID      string
	Title   string
	Content string
}

type ImageData struct {
	URL         string
	ContentType string
}

func (r *Repository) CreateUser(ctx context.Context, username, name string) (*models.User, error) {
	user := models.User{Username: username}
	if name != "" {
		user.Name = &name
	}
	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("creating user %q: %w", username, err)
	}
	return &user, nil
}

// Identity is an external login. Username is only a suggestion used when the
// account is first created.
type Identity struct {
	Provider   string
	ProviderID string
	Email      string
	Username   string
	Name       string
}

const maxUsernameAttempts = 100

// FindOrCreateIdentity returns the user bound to the provider account,
// creating one with an unused username on first login.
func (r *Repository) FindOrCreateIdentity(ctx context.Context, id Identity) (*models.User, error) {
	if id.Provider == "" || id.ProviderID == "" {
		return nil, errors.New("identity needs a provider and provider id")
	}

	user, err := r.findIdentity(ctx, id)
	if !errors.Is(err, ErrNotFound) {
		return user, err
	}

	username, err := r.availableUsername(ctx, id.Username)
	if err != nil {
		return nil, err
	}
	created := models.User{
		Username:   username,
		Provider:   &id.Provider,
		ProviderID: &id.ProviderID,
	}
	if id.Name != "" {
		created.Name = &id.Name
	}
	if id.Email != "" {
		created.Email = &id.Email
	}
	if err := r.db.WithContext(ctx).Create(&created).Error; err != nil {
		// A concurrent first login may have created the row.
		if user, ferr := r.findIdentity(ctx, id); ferr == nil {
			return user, nil
		}
		return nil, fmt.Errorf("creating user for %s identity: %w", id.Provider, err)
	}
	return &created, nil
}

func (r *Repository) findIdentity(ctx context.Context, id Identity) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", id.Provider, id.ProviderID).
		First(&user).Error
	if err != nil {
		return nil, notFoundOr(err, "finding %s identity", id.Provider)
	}
	return &user, nil
}

// availableUsername returns base, or base-2, base-3... when taken.
func (r *Repository) availableUsername(ctx context.Context, base string) (string, error) {
	if base == "" {
		base = "user"
	}
	for i := 1; i <= maxUsernameAttempts; i++ {
		candidate := base
		if i > 1 {
			candidate = fmt.Sprintf("%s-%d", base, i)
		}
		var n int64
		if err := r.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", candidate).Count(&n).Error; err != nil {
			return "", fmt.Errorf("checking username %q: %w", candidate, err)
		}
		if n == 0 {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free username for %q", base)
}

func (r *Repository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Image").
		Where("username = ?", username).
		First(&user).Error
	if err != nil {
		return nil, notFoundOr(err, "finding user %q", username)
	}
	return &user, nil
}

// SearchUsers matches username or name; users with a profile image sort first.
func (r *Repository) SearchUsers(ctx context.Context, term string, limit int) ([]models.User, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	like := "%" + likeEscaper.Replace(term) + "%"

	var users []models.User
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("users.*").
		Preload("Image").
		Joins("LEFT JOIN images ON images.user_id = users.id").
		Where(`users.username LIKE ? ESCAPE '\' OR users.name LIKE ? ESCAPE '\'`, like, like).
		Order("images.url IS NULL, users.username").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}
	return users, nil
}

// ListNotes returns the owner's notes without their content, newest first.
func (r *Repository) ListNotes(ctx context.Context, ownerID string) ([]models.Note, error) {
	var notes []models.Note
	err := r.db.WithContext(ctx).
		Select("id", "title", "owner_id", "created_at", "updated_at").
		Where("owner_id = ?", ownerID).
		Order("updated_at DESC").
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	return notes, nil
}

func (r *Repository) FindNote(ctx context.Context, id string) (*models.Note, error) {
	var note models.Note
	err := r.db.WithContext(ctx).
		Preload("Image").
		Where("id = ?", id).
		First(&note).Error
	if err != nil {
		return nil, notFoundOr(err, "finding note %q", id)
	}
	return &note, nil
}

func (r *Repository) FindOwnedNote(ctx context.Context, username, id string) (*models.Note, error) {
	var note models.Note
	err := r.db.WithContext(ctx).
		Preload("Image").
		Preload("Owner").
		Where("id = ? AND owner_id IN (?)", id, r.ownerIDs(ctx, username)).
		First(&note).Error
	if err != nil {
		return nil, notFoundOr(err, "finding note %q of %q", id, username)
	}
	return &note, nil
}

// UpsertNote updates the owner's note named by in.ID, or creates a new note
// with a fresh id when in.ID is empty or names no note of this owner.
func (r *Repository) UpsertNote(ctx context.Context, ownerID string, in NoteInput) (*models.Note, error) {
	db := r.db.WithContext(ctx)

	if in.ID != "" {
		res := db.Model(&models.Note{}).
			Where("id = ? AND owner_id = ?", in.ID, ownerID).
			Updates(map[string]any{"title": in.Title, "content": in.Content})
		if res.Error != nil {
			return nil, fmt.Errorf("updating note %q: %w", in.ID, res.Error)
		}
		if res.RowsAffected > 0 {
			return r.FindNote(ctx, in.ID)
		}
	}

	note := models.Note{Title: in.Title, Content: in.Content, OwnerID: ownerID}
	if err := db.Create(&note).Error; err != nil {
		return nil, fmt.Errorf("creating note: %w", err)
	}
	return &note, nil
}

// DeleteNote removes the note only when it belongs to username. Deleting a
// missing note is not an error.
func (r *Repository) DeleteNote(ctx context.Context, username, id string) error {
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id IN (?)", id, r.ownerIDs(ctx, username)).
		Delete(&models.Note{}).Error
	if err != nil {
		return fmt.Errorf("deleting note %q: %w", id, err)
	}
	return nil
}

// SetOwnerImage points the user's profile image at a newly uploaded URL,
// creating the image row on first upload.
func (r *Repository) SetOwnerImage(ctx context.Context, ownerID string, data ImageData) (*models.Image, error) {
	return r.setImage(ctx, "user_id", ownerID, data)
}

func (r *Repository) SetNoteImage(ctx context.Context, noteID string, data ImageData) (*models.Image, error) {
	return r.setImage(ctx, "note_id", noteID, data)
}

// setImage is a single upsert keyed by the owning foreign key so repeated
// uploads never leave orphaned rows. Concurrent callers: last write wins.
func (r *Repository) setImage(ctx context.Context, column, ownerID string, data ImageData) (*models.Image, error) {
	db := r.db.WithContext(ctx)

	image := models.Image{URL: data.URL, ContentType: data.ContentType}
	switch column {
	case "user_id":
		image.UserID = &ownerID
	case "note_id":
		image.NoteID = &ownerID
	default:
		return nil, fmt.Errorf("unknown image owner column %q", column)
	}

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: column}},
		DoUpdates: clause.AssignmentColumns([]string{"url", "content_type", "updated_at"}),
	}).Create(&image).Error
	if err != nil {
		return nil, fmt.Errorf("upserting image for %s %q: %w", column, ownerID, err)
	}

	var stored models.Image
	if err := db.Where(column+" = ?", ownerID).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("reading image for %s %q: %w", column, ownerID, err)
	}
	return &stored, nil
}

func (r *Repository) FindImage(ctx context.Context, id string) (*models.Image, error) {
	var image models.Image
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&image).Error; err != nil {
		return nil, notFoundOr(err, "finding image %q", id)
	}
	return &image, nil
}

// SeedNotes gives every existing user perUser numbered notes.
func (r *Repository) SeedNotes(ctx context.Context, perUser int) (int, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Find(&users).Error; err != nil {
		return 0, fmt.Errorf("listing users: %w", err)
	}

	created := 0
	for _, user := range users {
		notes := make([]models.Note, 0, perUser)
		for i := 1; i <= perUser; i++ {
			notes = append(notes, models.Note{
				Title:   fmt.Sprintf("Note %d for %s", i, user.Username),
				Content: fmt.Sprintf("This is the content for note %d for %s", i, user.Username),
				OwnerID: user.ID,
			})
		}
		if len(notes) == 0 {
			continue
		}
		if err := r.db.WithContext(ctx).Create(&notes).Error; err != nil {
			return created, fmt.Errorf("seeding notes for %q: %w", user.Username, err)
		}
		created += len(notes)
	}
	return created, nil
}

func (r *Repository) ownerIDs(ctx context.Context, username string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.User{}).Select("id").Where("username = ?", username)
}

func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
