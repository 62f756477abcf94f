package session

import (
	"errors"
	"fmt"

	"github.com/laibashaikh28/twee-webapp/internal/models"
)

// Field names the editable inputs of the profile form. The values match the
// document keys.
type Field string

const (
	FieldFullName Field = "fullName"
	FieldUsername Field = "username"
	FieldEmail    Field = "email"
	FieldContact  Field = "contact"
	FieldStatus   Field = "status"
	FieldAvatar   Field = "avatar"
	FieldVerified Field = "verified"
)

var (
	ErrUnknownField     = errors.New("unknown profile field")
	ErrFieldNotEditable = errors.New("profile field is not editable")
)

// Form is the editor's working copy of the profile. Every input goes through
// Set so there is exactly one place that maps field names onto the record.
type Form struct {
	models.Profile
}

func NewForm(p models.Profile) Form {
	return Form{Profile: p}
}

func (f *Form) Set(field Field, value string) error {
	switch field {
	case FieldFullName:
		f.FullName = value
	case FieldUsername:
		f.Username = value
	case FieldEmail:
		f.Email = value
	case FieldContact:
		f.Contact = value
	case FieldStatus:
		f.Status = value
	case FieldAvatar:
		f.Avatar = value
	case FieldVerified:
		return fmt.Errorf("%w: %s", ErrFieldNotEditable, field)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// Record is the full document the form submits.
func (f Form) Record() models.Profile {
	return f.Profile
}
