package domain

import (
	"strings"
	"unicode/utf8"
)

// Member is a participant of a group order.
type Member struct {
	ID          string
	FirstName   string
	LastName    string
	DisplayName string
	Email       string
	// Allergies holds allergy keys (codes such as "egg"), not free text.
	Allergies []string
	// DeviceIDs are the push-notification subscriptions of the member.
	DeviceIDs []string
}

type memberPublicData struct {
	Allergies []string `json:"allergies"`
}

type memberPrivateData struct {
	OneSignalUserIDs []string `json:"oneSignalUserIds"`
}

// DecodeMember converts a user entity into a Member.
func DecodeMember(e Entity) (Member, error) {
	m := Member{ID: e.Key(), Email: e.Attributes.Email}
	if p := e.Attributes.Profile; p != nil {
		m.FirstName = p.FirstName
		m.LastName = p.LastName
		m.DisplayName = p.DisplayName

		var pub memberPublicData
		if err := unmarshalBag(p.PublicData, "profile.publicData", &pub); err != nil {
			return Member{}, withEntity(err, e.Key())
		}
		var priv memberPrivateData
		if err := unmarshalBag(p.PrivateData, "profile.privateData", &priv); err != nil {
			return Member{}, withEntity(err, e.Key())
		}
		m.Allergies = pub.Allergies
		m.DeviceIDs = priv.OneSignalUserIDs
	}
	return m, nil
}

// Name returns the name shown to bookers and in notifications.
func (m Member) Name() string {
	return PreferredName(m.FirstName, m.LastName, m.DisplayName)
}

// PreferredName picks between the full name ("last first") and the display
// name: whichever is longer in characters wins, the full name on a tie.
//
// This is a product heuristic. A member with only a first name and a longer
// display name shows the display name.
func PreferredName(firstName, lastName, displayName string) string {
	full := strings.TrimSpace(strings.TrimSpace(lastName) + " " + strings.TrimSpace(firstName))
	display := strings.TrimSpace(displayName)
	if utf8.RuneCountInString(display) > utf8.RuneCountInString(full) {
		return display
	}
	return full
}
