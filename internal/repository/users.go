package repository

import (
	"context"
	"slices"

	"github.com/go-faster/errors"

	"github.com/hackbridge/hackbridge/internal/kv"
	"github.com/hackbridge/hackbridge/internal/models"
)

// CourseChecker reports whether a course exists. CourseRepository implements it.
type CourseChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// UserRepository manages user records, the unique email index and
// password hashes.
type UserRepository struct {
	store   kv.Store
	users   *Collection[models.User]
	courses CourseChecker
}

// NewUserRepository creates a UserRepository. A nil courses checker disables
// validation of purchased course ids.
func NewUserRepository(store kv.Store, courses CourseChecker) *UserRepository {
	return &UserRepository{
		store:   store,
		users:   NewCollection(store, UsersPrefix, func(u *models.User) string { return u.ID }),
		courses: courses,
	}
}

func emailKey(email string) string { return UserEmailPrefix + models.NormalizeEmail(email) }

func credentialsKey(userID string) string { return CredentialsPrefix + userID }

func (r *UserRepository) GetAll(ctx context.Context) ([]models.User, error) {
	return r.users.GetAll(ctx)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.users.GetByID(ctx, id)
}

// GetByEmail looks a user up through the email index, case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	e, err := r.store.Get(ctx, emailKey(email))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "lookup email")
	}
	u, err := r.users.GetByID(ctx, string(e.Value))
	if err != nil {
		return nil, err
	}
	if models.NormalizeEmail(u.Email) != models.NormalizeEmail(email) {
		return nil, ErrNotFound
	}
	return u, nil
}

func (r *UserRepository) validate(ctx context.Context, u *models.User, prev []string) error {
	if models.NormalizeEmail(u.Email) == "" {
		return errors.Wrap(ErrInvalid, "email is required")
	}
	if !u.Role.Valid() {
		return errors.Wrapf(ErrInvalid, "unknown role %q", u.Role)
	}
	for i := range u.Skills {
		if u.Skills[i].Level < models.MinSkillLevel || u.Skills[i].Level > models.MaxSkillLevel {
			return errors.Wrapf(ErrInvalid, "skill %q level %d out of range", u.Skills[i].Name, u.Skills[i].Level)
		}
	}
	if r.courses == nil {
		return nil
	}
	// Only newly referenced ids are checked so a deleted course does not
	// block unrelated edits of users who bought it.
	for _, id := range u.PurchasedCourses {
		if slices.Contains(prev, id) {
			continue
		}
		ok, err := r.courses.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Wrapf(ErrUnknownCourse, "course %q", id)
		}
	}
	return nil
}

// claimEmail points the email index at userID. A stale entry whose user no
// longer exists is taken over.
func (r *UserRepository) claimEmail(ctx context.Context, email, userID string) error {
	key := emailKey(email)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		_, err := r.store.CompareAndSwap(ctx, key, []byte(userID), 0)
		if err == nil {
			return nil
		}
		if !errors.Is(err, kv.ErrVersionConflict) {
			return errors.Wrap(err, "claim email")
		}

		cur, err := r.store.Get(ctx, key)
		if errors.Is(err, kv.ErrNotFound) {
			continue
		}
		if err != nil {
			return errors.Wrap(err, "claim email")
		}
		owner := string(cur.Value)
		if owner == userID {
			return nil
		}
		ok, err := r.users.Exists(ctx, owner)
		if err != nil {
			return err
		}
		if ok {
			return ErrEmailTaken
		}
		_, err = r.store.CompareAndSwap(ctx, key, []byte(userID), cur.Version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, kv.ErrVersionConflict) {
			return errors.Wrap(err, "claim email")
		}
	}
	return ErrConflict
}

// releaseEmail drops the index entry only while it still points at userID.
func (r *UserRepository) releaseEmail(ctx context.Context, email, userID string) error {
	key := emailKey(email)
	cur, err := r.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "release email")
	}
	if string(cur.Value) != userID {
		return nil
	}
	err = r.store.CompareAndDelete(ctx, key, cur.Version)
	if err != nil && !errors.Is(err, kv.ErrNotFound) && !errors.Is(err, kv.ErrVersionConflict) {
		return errors.Wrap(err, "release email")
	}
	return nil
}

// Create stores a new user. It fails with ErrEmailTaken when another user
// already has the email and with ErrAlreadyExists on a duplicate id; in both
// cases nothing is written.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if err := validID(u.ID); err != nil {
		return err
	}
	if err := r.validate(ctx, u, nil); err != nil {
		return err
	}
	if exists, err := r.users.Exists(ctx, u.ID); err != nil {
		return err
	} else if exists {
		return ErrAlreadyExists
	}
	if err := r.claimEmail(ctx, u.Email, u.ID); err != nil {
		return err
	}
	if err := r.users.Create(ctx, u); err != nil {
		_ = r.releaseEmail(ctx, u.Email, u.ID)
		return err
	}
	return nil
}

// Update replaces the user wholesale. When the email changes the new one
// must be free.
func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	cur, err := r.users.GetByID(ctx, u.ID)
	if err != nil {
		return err
	}
	if err := r.validate(ctx, u, cur.PurchasedCourses); err != nil {
		return err
	}

	oldEmail := cur.Email
	emailChanged := models.NormalizeEmail(oldEmail) != models.NormalizeEmail(u.Email)
	if emailChanged {
		if err := r.claimEmail(ctx, u.Email, u.ID); err != nil {
			return err
		}
	}
	if err := r.users.Update(ctx, u); err != nil {
		if emailChanged {
			_ = r.releaseEmail(ctx, u.Email, u.ID)
		}
		return err
	}
	if emailChanged {
		return r.releaseEmail(ctx, oldEmail, u.ID)
	}
	return nil
}

// Modify applies fn to the stored user with optimistic retries. fn must not
// change the email; use Update for that.
func (r *UserRepository) Modify(ctx context.Context, id string, fn func(u *models.User) error) (*models.User, error) {
	return r.users.Modify(ctx, id, func(u *models.User) error {
		email := models.NormalizeEmail(u.Email)
		prev := slices.Clone(u.PurchasedCourses)
		if err := fn(u); err != nil {
			return err
		}
		if models.NormalizeEmail(u.Email) != email {
			return ErrEmailChange
		}
		return r.validate(ctx, u, prev)
	})
}

// Delete removes the user with its email index entry and credentials.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	u, err := r.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.users.Delete(ctx, id); err != nil {
		return err
	}
	if err := r.releaseEmail(ctx, u.Email, id); err != nil {
		return err
	}
	if err := r.store.Remove(ctx, credentialsKey(id)); err != nil && !errors.Is(err, kv.ErrNotFound) {
		return errors.Wrap(err, "delete credentials")
	}
	return nil
}

// SetPasswordHash stores the bcrypt hash for an existing user.
func (r *UserRepository) SetPasswordHash(ctx context.Context, userID string, hash []byte) error {
	ok, err := r.users.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if _, err := r.store.Set(ctx, credentialsKey(userID), hash); err != nil {
		return errors.Wrap(err, "store credentials")
	}
	return nil
}

// PasswordHash returns ErrNotFound when the user has no credentials.
func (r *UserRepository) PasswordHash(ctx context.Context, userID string) ([]byte, error) {
	e, err := r.store.Get(ctx, credentialsKey(userID))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load credentials")
	}
	return e.Value, nil
}
