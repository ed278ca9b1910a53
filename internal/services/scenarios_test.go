package services

import (
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/optional"
)

func (s *ServiceTestSuite) TestAdminCreatesEmptyTeam() {
	team := s.newTeam("Eng")

	got, err := s.teams.GetTeam(s.ctx, s.admin, team.ID)
	s.Require().NoError(err)
	s.Nil(got.ManagerID)
	s.Empty(got.Members)
}

func (s *ServiceTestSuite) TestTaskDefaultsToCreatorAsAssignee() {
	eng := s.newTeam("Eng")
	manager := s.newUser("maria", models.RoleManager, eng)

	task := s.newTask(s.principal(manager), "Plan sprint", nil)
	s.Equal(manager.ID, task.AssignedToID)
	s.Equal(manager.ID, task.CreatedByID)
	s.Equal(models.TaskPriorityMedium, task.Priority)
	s.Equal(models.TaskStatusPending, task.Status)
}

func (s *ServiceTestSuite) TestUserCannotReassign() {
	eng := s.newTeam("Eng")
	user := s.newUser("xavier", models.RoleUser, eng)
	p := s.principal(user)
	task := s.newTask(p, "Mine", nil)

	_, err := s.tasks.AssignTask(s.ctx, p, task.ID, user.ID)
	s.requireKind(err, apierrors.KindAuthorization)
}

func (s *ServiceTestSuite) TestPromotionToManagerClaimsTeam() {
	eng := s.newTeam("Eng")
	first := s.newUser("ursula", models.RoleUser, eng)
	second := s.newUser("victor", models.RoleUser, eng)
	manager := models.RoleManager

	_, err := s.users.UpdateUser(s.ctx, s.admin, first.ID, UpdateUserInput{Role: &manager})
	s.Require().NoError(err)
	s.Require().NotNil(s.team(eng.ID).ManagerID)
	s.Equal(first.ID, *s.team(eng.ID).ManagerID)

	_, err = s.users.UpdateUser(s.ctx, s.admin, second.ID, UpdateUserInput{Role: &manager})
	s.requireKind(err, apierrors.KindConflict)

	unchanged, err := s.store.Users().FindByID(s.ctx, second.ID)
	s.Require().NoError(err)
	s.Equal(models.RoleUser, unchanged.Role)
	s.Equal(first.ID, *s.team(eng.ID).ManagerID)
}

func (s *ServiceTestSuite) TestDeletedTeamLeavesManagerWithoutTeam() {
	eng := s.newTeam("Eng")
	manager := s.newUser("mona", models.RoleManager, eng)
	_, _, err := s.auth.Login(s.ctx, LoginInput{Identifier: "mona", Password: testPassword})
	s.Require().NoError(err)

	s.Require().NoError(s.teams.DeleteTeam(s.ctx, s.admin, eng.ID))

	_, err = s.teams.MyTeam(s.ctx, s.principal(manager))
	s.ErrorIs(err, ErrNoTeamAssigned)
	s.requireKind(err, apierrors.KindNotFound)
}

func (s *ServiceTestSuite) TestPasswordChangeRevokesRefreshTokens() {
	eng := s.newTeam("Eng")
	user := s.newUser("uma", models.RoleUser, eng)
	_, pair, err := s.auth.Login(s.ctx, LoginInput{Identifier: "uma@example.com", Password: testPassword})
	s.Require().NoError(err)

	_, err = s.auth.Refresh(s.ctx, pair.RefreshToken)
	s.Require().NoError(err)

	s.Require().NoError(s.auth.ChangePassword(s.ctx, user.ID, ChangePasswordInput{
		CurrentPassword: testPassword,
		NewPassword:     "N3wPassword!",
	}))

	_, err = s.auth.Refresh(s.ctx, pair.RefreshToken)
	s.requireKind(err, apierrors.KindAuthentication)

	_, _, err = s.auth.Login(s.ctx, LoginInput{Identifier: "uma", Password: "N3wPassword!"})
	s.NoError(err)
}

func (s *ServiceTestSuite) TestTeamReassignmentInvalidatesAssignment() {
	eng := s.newTeam("Eng")
	ops := s.newTeam("Ops")
	manager := s.newUser("mike", models.RoleManager, eng)
	dev := s.newUser("dana", models.RoleUser, eng)
	mp := s.principal(manager)
	task := s.newTask(mp, "Review", nil)

	_, err := s.tasks.AssignTask(s.ctx, mp, task.ID, dev.ID)
	s.Require().NoError(err)

	_, err = s.users.UpdateUser(s.ctx, s.admin, dev.ID, UpdateUserInput{Team: optional.Of(ops.ID)})
	s.Require().NoError(err)

	_, err = s.tasks.AssignTask(s.ctx, mp, task.ID, dev.ID)
	s.requireKind(err, apierrors.KindAuthorization)
}
