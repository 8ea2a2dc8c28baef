package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-ai/internal/domain"
	"github.com/spec-kit/ticket-ai/pkg/util"
)

func TestSkillList_Unmarshal(t *testing.T) {
	cases := map[string]struct {
		in   string
		want SkillList
	}{
		"array":       {`{"skills":["vpn"," Linux ",""]}`, SkillList{"vpn", "Linux"}},
		"comma":       {`{"skills":"react, node ,,react"}`, SkillList{"react", "node"}},
		"null":        {`{"skills":null}`, nil},
		"empty array": {`{"skills":[]}`, SkillList{}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var req SignupRequest
			require.NoError(t, json.Unmarshal([]byte(tc.in), &req))
			assert.Equal(t, tc.want, req.Skills)
		})
	}

	var req SignupRequest
	assert.Error(t, json.Unmarshal([]byte(`{"skills":42}`), &req))
}

func TestUpdateUserRequest_OmittedSkills(t *testing.T) {
	var req UpdateUserRequest
	require.NoError(t, json.Unmarshal([]byte(`{"email":"a@b.co","role":"moderator"}`), &req))
	assert.Nil(t, req.Skills)
	require.NotNil(t, req.Role)
	assert.Equal(t, "moderator", *req.Role)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(LoginRequest{Email: "a@b.co", Password: "x"}))

	role := "root"
	err := Validate(UpdateUserRequest{Email: "not-an-email", Role: &role})
	de := util.ToDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, "VALIDATION_FAILED", de.Code)
	assert.Equal(t, "email", de.Details["email"])
	assert.Equal(t, "oneof", de.Details["role"])
}

func TestNewTicketDetail(t *testing.T) {
	p := domain.TicketPriorityHigh
	ticket := &domain.Ticket{ID: "t-1", Title: "VPN", Status: domain.TicketStatusInProgress, Priority: &p}

	resp := NewTicketDetail(ticket, &domain.User{ID: "u-1", Email: "mod@example.com", PasswordHash: "secret"})
	require.NotNil(t, resp.AssignedTo)
	assert.Equal(t, "mod@example.com", resp.AssignedTo.Email)
	assert.Equal(t, []string{}, resp.RelatedSkills)

	raw, err := json.Marshal(NewTicketDetail(ticket, nil))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"assigned_to":null`)

	raw, err = json.Marshal(NewUserResponse(&domain.User{ID: "u-1", Email: "a@b.co", PasswordHash: "secret"}))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")
}
