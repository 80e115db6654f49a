package models

// UserAccount holds a user's bot settings. Accounts exist only for
// individual users: platform group identities (negative ids) never register.
type UserAccount struct {
	UserID            int64   `json:"user_id"`
	SelectedPersonaID int64   `json:"selected_persona_id"`
	CreatedPersonaIDs []int64 `json:"created_persona_ids"`
}
