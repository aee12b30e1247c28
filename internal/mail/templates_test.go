package mail

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetailsBody(t *testing.T) {
	ist := time.FixedZone("IST", 19800)
	start := time.Date(2026, 10, 19, 10, 0, 0, 0, ist)

	tests := []struct {
		name     string
		password string
		want     string
	}{
		{
			name: "without password",
			want: "Event: Interview\n" +
				"Time: 2026-10-19 10:00:00+05:30 - 2026-10-19 11:00:00+05:30\n" +
				"Google Meet Link: https://meet.google.com/abc\n\n" +
				"Please respond with Yes/No/Maybe directly from Google Calendar\n",
		},
		{
			name:     "with password",
			password: "s3cret",
			want: "Event: Interview\n" +
				"Time: 2026-10-19 10:00:00+05:30 - 2026-10-19 11:00:00+05:30\n" +
				"Google Meet Link: https://meet.google.com/abc\n" +
				"Password for organization email confirmation: s3cret\n\n" +
				"Please respond with Yes/No/Maybe directly from Google Calendar\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetailsBody(Meeting{
				Summary:  "Interview",
				Start:    start,
				End:      start.Add(time.Hour),
				MeetLink: "https://meet.google.com/abc",
				Password: tt.password,
			})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMeetingDetails(t *testing.T) {
	start := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	msg := MeetingDetails("org@example.com", "guest@example.com", Meeting{
		Summary: "Interview",
		Start:   start,
		End:     start.Add(30 * time.Minute),
	})

	assert.Equal(t, DetailsSubject, msg.Subject)
	assert.Equal(t, []string{"guest@example.com"}, msg.To)
	require.NotNil(t, msg.Invite)
	assert.True(t, strings.HasSuffix(msg.Invite.UID, "@meetslots"))
	assert.Equal(t, []string{"guest@example.com"}, msg.Invite.Attendees)
	assert.NoError(t, msg.Validate())
}

func TestInvitation(t *testing.T) {
	msg := Invitation("org@example.com", "guest@example.com", "https://book.example.com/")
	assert.Equal(t, InvitationSubject, msg.Subject)
	assert.Contains(t, msg.Body, "https://book.example.com/")
	assert.Nil(t, msg.Invite)
	assert.NoError(t, msg.Validate())
}
