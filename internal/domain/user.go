package domain

import (
	"context"
	"strings"
	"time"

	"github.com/hilthontt/nodeline/internal/infrastructure/validate"
)

// User mirrors the session state of an account. Only the allocator writes
// Connected and Node; the registry remains the answer to "who is online".
type User struct {
	ID         string
	Handle     string
	Staff      bool
	Guest      bool
	Connected  bool
	Node       int
	OnlineTime time.Duration
	LastLogin  time.Time
}

var validateHandle = validate.Compose(
	validate.Required(),
	validate.MinLength(2),
	validate.MaxLength(32),
	validate.NoSpaces(),
)

func NewUser(id, handle string, staff, guest bool) (User, error) {
	id = strings.TrimSpace(id)
	if err := validate.Required()(id); err != nil {
		return User{}, NewValidationError("id", err.Error())
	}

	handle = strings.TrimSpace(handle)
	if err := validateHandle(handle); err != nil {
		return User{}, NewValidationError("handle", err.Error())
	}

	return User{
		ID:     id,
		Handle: handle,
		Staff:  staff,
		Guest:  guest,
	}, nil
}

type UserRepository interface {
	Get(ctx context.Context, id string) (User, error)
	Save(ctx context.Context, user User) error
	Delete(ctx context.Context, id string) error
}
