package services

import (
	"time"

	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
)

func (s *ServiceTestSuite) TestIssueKeepsNewestSessions() {
	eng := s.newTeam("Eng")
	user := s.newUser("sam", models.RoleUser, eng)

	clock := time.Now()
	s.useClock(func() time.Time { return clock })

	var tokens []string
	for i := 0; i < 5; i++ {
		clock = clock.Add(time.Minute)
		pair, err := s.sessions.Issue(s.ctx, user.ID)
		s.Require().NoError(err)
		tokens = append(tokens, pair.RefreshToken)
	}

	active, err := s.sessions.ActiveSessions(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Len(active, 3)

	_, err = s.sessions.Refresh(s.ctx, tokens[0])
	s.ErrorIs(err, ErrRefreshInvalid)
	_, err = s.sessions.Refresh(s.ctx, tokens[4])
	s.NoError(err)
}

func (s *ServiceTestSuite) TestIssuePrunesStaleSessions() {
	eng := s.newTeam("Eng")
	user := s.newUser("stale", models.RoleUser, eng)

	clock := time.Now()
	s.useClock(func() time.Time { return clock })
	_, err := s.sessions.Issue(s.ctx, user.ID)
	s.Require().NoError(err)

	clock = clock.Add(8 * 24 * time.Hour)
	_, err = s.sessions.Issue(s.ctx, user.ID)
	s.Require().NoError(err)

	active, err := s.sessions.ActiveSessions(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Len(active, 1)
}

func (s *ServiceTestSuite) TestRevokeIsIdempotent() {
	eng := s.newTeam("Eng")
	user := s.newUser("rita", models.RoleUser, eng)
	pair, err := s.sessions.Issue(s.ctx, user.ID)
	s.Require().NoError(err)

	s.NoError(s.sessions.Revoke(s.ctx, user.ID, pair.RefreshToken))
	s.NoError(s.sessions.Revoke(s.ctx, user.ID, pair.RefreshToken))
	s.NoError(s.sessions.Revoke(s.ctx, user.ID, ""))

	_, err = s.sessions.Refresh(s.ctx, pair.RefreshToken)
	s.ErrorIs(err, ErrRefreshInvalid)
}

func (s *ServiceTestSuite) TestAuthenticateErrors() {
	eng := s.newTeam("Eng")
	user := s.newUser("alex", models.RoleUser, eng)

	clock := time.Now()
	s.useClock(func() time.Time { return clock })
	pair, err := s.sessions.Issue(s.ctx, user.ID)
	s.Require().NoError(err)

	got, err := s.sessions.Authenticate(s.ctx, pair.AccessToken)
	s.Require().NoError(err)
	s.Equal(user.ID, got.ID)

	_, err = s.sessions.Authenticate(s.ctx, "")
	s.ErrorIs(err, ErrTokenMissing)

	_, err = s.sessions.Authenticate(s.ctx, pair.RefreshToken)
	s.ErrorIs(err, ErrTokenInvalid)

	clock = clock.Add(16 * time.Minute)
	_, err = s.sessions.Authenticate(s.ctx, pair.AccessToken)
	s.ErrorIs(err, ErrTokenExpired)

	clock = clock.Add(-16 * time.Minute)
	s.Require().NoError(s.users.DeleteUser(s.ctx, s.admin, user.ID))
	_, err = s.sessions.Authenticate(s.ctx, pair.AccessToken)
	s.ErrorIs(err, ErrTokenInvalid)
	s.Equal(apierrors.KindAuthentication, apierrors.KindOf(err))
}

func (s *ServiceTestSuite) TestRefreshErrors() {
	eng := s.newTeam("Eng")
	user := s.newUser("remy", models.RoleUser, eng)

	clock := time.Now()
	s.useClock(func() time.Time { return clock })
	pair, err := s.sessions.Issue(s.ctx, user.ID)
	s.Require().NoError(err)

	_, err = s.sessions.Refresh(s.ctx, "")
	s.ErrorIs(err, ErrRefreshMissing)

	_, err = s.sessions.Refresh(s.ctx, pair.AccessToken)
	s.ErrorIs(err, ErrRefreshInvalid)

	clock = clock.Add(8 * 24 * time.Hour)
	_, err = s.sessions.Refresh(s.ctx, pair.RefreshToken)
	s.ErrorIs(err, ErrRefreshExpired)
}
