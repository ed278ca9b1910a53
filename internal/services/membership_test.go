package services

import (
	"github.com/yukikurage/team-task-api/internal/authz"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/optional"
	"github.com/yukikurage/team-task-api/internal/utils"
)

func (s *ServiceTestSuite) TestManagerCreatesUserInOwnTeam() {
	eng := s.newTeam("Eng")
	ops := s.newTeam("Ops")
	manager := s.newUser("mel", models.RoleManager, eng)

	user, err := s.users.CreateUser(s.ctx, s.principal(manager), CreateUserInput{
		Username: "newbie",
		Email:    "newbie@example.com",
		Password: testPassword,
		Role:     models.RoleAdmin,
		TeamID:   &ops.ID,
	})
	s.Require().NoError(err)
	s.Equal(models.RoleUser, user.Role)
	s.Require().NotNil(user.TeamID)
	s.Equal(eng.ID, *user.TeamID)
	s.Len(s.team(eng.ID).Members, 2)
	s.Empty(s.team(ops.ID).Members)
}

func (s *ServiceTestSuite) TestUserCannotCreateUsers() {
	eng := s.newTeam("Eng")
	user := s.newUser("ulla", models.RoleUser, eng)

	_, err := s.users.CreateUser(s.ctx, s.principal(user), CreateUserInput{
		Username: "other",
		Email:    "other@example.com",
		Password: testPassword,
	})
	s.requireKind(err, apierrors.KindAuthorization)
}

func (s *ServiceTestSuite) TestCreateUserRequiresTeamForNonAdmins() {
	_, err := s.users.CreateUser(s.ctx, s.admin, CreateUserInput{
		Username: "drifter",
		Email:    "drifter@example.com",
		Password: testPassword,
		Role:     models.RoleUser,
	})
	s.requireKind(err, apierrors.KindValidation)
}

func (s *ServiceTestSuite) TestManagerOfAnotherTeamCannotBeAssigned() {
	ops := s.newTeam("Ops")
	manager := s.newUser("olga", models.RoleManager, ops)

	_, err := s.teams.CreateTeam(s.ctx, s.admin, CreateTeamInput{Name: "Eng", ManagerID: &manager.ID})
	s.ErrorIs(err, authz.ErrManagerAlreadyAssign)

	teams, _, err := s.teams.ListTeams(s.ctx, s.admin, "", utils.NewPaginationParams(1, 10))
	s.Require().NoError(err)
	s.Len(teams, 1, "failed create must not leave a team behind")
}

func (s *ServiceTestSuite) TestCreateTeamWithManagerAndMembers() {
	ops := s.newTeam("Ops")
	manager := s.newUser("mara", models.RoleManager, ops)
	s.Require().NoError(s.teams.DeleteTeam(s.ctx, s.admin, ops.ID))
	other := s.newTeam("Other")
	dev := s.newUser("devi", models.RoleUser, other)

	team, err := s.teams.CreateTeam(s.ctx, s.admin, CreateTeamInput{
		Name:      "Eng",
		ManagerID: &manager.ID,
		MemberIDs: []uint64{dev.ID, manager.ID, dev.ID},
	})
	s.Require().NoError(err)
	s.Require().NotNil(team.ManagerID)
	s.Equal(manager.ID, *team.ManagerID)
	s.Len(team.Members, 2)
	s.Empty(s.team(other.ID).Members)
}

func (s *ServiceTestSuite) TestCreateTeamRejectsNonManagerAsManager() {
	eng := s.newTeam("Eng")
	user := s.newUser("ugo", models.RoleUser, eng)

	_, err := s.teams.CreateTeam(s.ctx, s.admin, CreateTeamInput{Name: "Ops", ManagerID: &user.ID})
	s.ErrorIs(err, ErrManagerRoleNeeded)
}

func (s *ServiceTestSuite) TestReplacingManagerDetachesPrevious() {
	eng := s.newTeam("Eng")
	oldManager := s.newUser("otto", models.RoleManager, eng)
	spare := s.newTeam("Spare")
	newManager := s.newUser("nina", models.RoleManager, spare)
	s.Require().NoError(s.teams.DeleteTeam(s.ctx, s.admin, spare.ID))

	team, err := s.teams.UpdateTeam(s.ctx, s.admin, eng.ID, UpdateTeamInput{Manager: optional.Of(newManager.ID)})
	s.Require().NoError(err)
	s.Equal(newManager.ID, *team.ManagerID)

	old, err := s.store.Users().FindByID(s.ctx, oldManager.ID)
	s.Require().NoError(err)
	s.Nil(old.TeamID)
	s.Len(s.team(eng.ID).Members, 1)
}

func (s *ServiceTestSuite) TestClearingManager() {
	eng := s.newTeam("Eng")
	manager := s.newUser("max", models.RoleManager, eng)

	team, err := s.teams.UpdateTeam(s.ctx, s.admin, eng.ID, UpdateTeamInput{Manager: optional.Value[uint64]{Set: true, Null: true}})
	s.Require().NoError(err)
	s.Nil(team.ManagerID)

	fresh, err := s.store.Users().FindByID(s.ctx, manager.ID)
	s.Require().NoError(err)
	s.Nil(fresh.TeamID)
	s.Equal(models.RoleManager, fresh.Role)
}

func (s *ServiceTestSuite) TestSetMembersReplacesList() {
	eng := s.newTeam("Eng")
	manager := s.newUser("mimi", models.RoleManager, eng)
	stay := s.newUser("stay", models.RoleUser, eng)
	leave := s.newUser("leave", models.RoleUser, eng)
	ops := s.newTeam("Ops")
	join := s.newUser("joiner", models.RoleUser, ops)

	members := []uint64{stay.ID, join.ID}
	_, err := s.teams.UpdateTeam(s.ctx, s.admin, eng.ID, UpdateTeamInput{MemberIDs: &members})
	s.Require().NoError(err)

	ids := map[uint64]bool{}
	for _, m := range s.team(eng.ID).Members {
		ids[m.UserID] = true
	}
	s.Equal(map[uint64]bool{manager.ID: true, stay.ID: true, join.ID: true}, ids)

	gone, err := s.store.Users().FindByID(s.ctx, leave.ID)
	s.Require().NoError(err)
	s.Nil(gone.TeamID)
}

func (s *ServiceTestSuite) TestAddMemberByManager() {
	eng := s.newTeam("Eng")
	ops := s.newTeam("Ops")
	manager := s.newUser("moe", models.RoleManager, eng)
	mp := s.principal(manager)
	busy := s.newUser("busy", models.RoleUser, ops)

	_, err := s.teams.AddMember(s.ctx, mp, eng.ID, busy.ID)
	s.ErrorIs(err, ErrInAnotherTeam)

	_, err = s.teams.RemoveMember(s.ctx, s.admin, ops.ID, busy.ID)
	s.Require().NoError(err)

	team, err := s.teams.AddMember(s.ctx, mp, eng.ID, busy.ID)
	s.Require().NoError(err)
	s.Len(team.Members, 2)

	_, err = s.teams.AddMember(s.ctx, mp, eng.ID, busy.ID)
	s.ErrorIs(err, ErrAlreadyTeamMember)

	_, err = s.teams.AddMember(s.ctx, mp, ops.ID, manager.ID)
	s.requireKind(err, apierrors.KindAuthorization)
}

func (s *ServiceTestSuite) TestAddMemberRejectsAdmin() {
	eng := s.newTeam("Eng")

	_, err := s.teams.AddMember(s.ctx, s.admin, eng.ID, s.admin.UserID)
	s.ErrorIs(err, ErrAdminInTeam)
}

func (s *ServiceTestSuite) TestRemoveMember() {
	eng := s.newTeam("Eng")
	manager := s.newUser("mick", models.RoleManager, eng)
	dev := s.newUser("dora", models.RoleUser, eng)
	ops := s.newTeam("Ops")
	stranger := s.newUser("stranger", models.RoleUser, ops)
	mp := s.principal(manager)

	_, err := s.teams.RemoveMember(s.ctx, mp, eng.ID, manager.ID)
	s.ErrorIs(err, ErrCannotRemoveManager)

	_, err = s.teams.RemoveMember(s.ctx, mp, eng.ID, stranger.ID)
	s.ErrorIs(err, ErrNotTeamMember)

	team, err := s.teams.RemoveMember(s.ctx, mp, eng.ID, dev.ID)
	s.Require().NoError(err)
	s.Len(team.Members, 1)

	_, err = s.teams.RemoveMember(s.ctx, s.principal(dev), eng.ID, manager.ID)
	s.requireKind(err, apierrors.KindAuthorization)
}

func (s *ServiceTestSuite) TestMoveIsAtomic() {
	eng := s.newTeam("Eng")
	ops := s.newTeam("Ops")
	s.newUser("opsboss", models.RoleManager, ops)
	manager := s.newUser("engboss", models.RoleManager, eng)

	_, err := s.users.UpdateUser(s.ctx, s.admin, manager.ID, UpdateUserInput{Team: optional.Of(ops.ID)})
	s.requireKind(err, apierrors.KindConflict)

	fresh, err := s.store.Users().FindByID(s.ctx, manager.ID)
	s.Require().NoError(err)
	s.Equal(eng.ID, *fresh.TeamID)
	s.Equal(manager.ID, *s.team(eng.ID).ManagerID)
	s.Len(s.team(eng.ID).Members, 1)
}

func (s *ServiceTestSuite) TestManagerMovesToTeamWithoutManager() {
	eng := s.newTeam("Eng")
	ops := s.newTeam("Ops")
	manager := s.newUser("engboss", models.RoleManager, eng)
	dev := s.newUser("engdev", models.RoleUser, eng)

	moved, err := s.users.UpdateUser(s.ctx, s.admin, manager.ID, UpdateUserInput{Team: optional.Of(ops.ID)})
	s.Require().NoError(err)
	s.Require().NotNil(moved.TeamID)
	s.Equal(ops.ID, *moved.TeamID)
	s.Equal(models.RoleManager, moved.Role)

	left := s.team(eng.ID)
	s.Nil(left.ManagerID)
	s.Require().Len(left.Members, 1)
	s.Equal(dev.ID, left.Members[0].UserID)

	joined := s.team(ops.ID)
	s.Require().NotNil(joined.ManagerID)
	s.Equal(manager.ID, *joined.ManagerID)
	s.Require().Len(joined.Members, 1)
	s.Equal(manager.ID, joined.Members[0].UserID)
}

func (s *ServiceTestSuite) TestDemotionKeepsMembership() {
	eng := s.newTeam("Eng")
	manager := s.newUser("demi", models.RoleManager, eng)
	role := models.RoleUser

	user, err := s.users.UpdateUser(s.ctx, s.admin, manager.ID, UpdateUserInput{Role: &role})
	s.Require().NoError(err)
	s.Equal(models.RoleUser, user.Role)
	s.Equal(eng.ID, *user.TeamID)
	s.Nil(s.team(eng.ID).ManagerID)
}

func (s *ServiceTestSuite) TestPromotionToAdminLeavesTeam() {
	eng := s.newTeam("Eng")
	manager := s.newUser("ada", models.RoleManager, eng)
	role := models.RoleAdmin

	user, err := s.users.UpdateUser(s.ctx, s.admin, manager.ID, UpdateUserInput{Role: &role})
	s.Require().NoError(err)
	s.Nil(user.TeamID)
	s.Nil(s.team(eng.ID).ManagerID)
	s.Empty(s.team(eng.ID).Members)

	_, err = s.users.UpdateUser(s.ctx, s.admin, manager.ID, UpdateUserInput{Team: optional.Of(eng.ID)})
	s.ErrorIs(err, ErrAdminInTeam)
}

func (s *ServiceTestSuite) TestDeleteUserCascades() {
	eng := s.newTeam("Eng")
	manager := s.newUser("del", models.RoleManager, eng)
	_, _, err := s.auth.Login(s.ctx, LoginInput{Identifier: "del", Password: testPassword})
	s.Require().NoError(err)

	s.ErrorIs(s.users.DeleteUser(s.ctx, s.admin, s.admin.UserID), ErrCannotDeleteSelf)

	s.Require().NoError(s.users.DeleteUser(s.ctx, s.admin, manager.ID))
	s.Nil(s.team(eng.ID).ManagerID)
	s.Empty(s.team(eng.ID).Members)

	active, err := s.sessions.ActiveSessions(s.ctx, manager.ID)
	s.Require().NoError(err)
	s.Empty(active)

	s.ErrorIs(s.users.DeleteUser(s.ctx, s.admin, manager.ID), ErrUserNotFound)
}

func (s *ServiceTestSuite) TestRegisterManagerClaimsTeam() {
	eng := s.newTeam("Eng")

	user, pair, err := s.auth.Register(s.ctx, RegisterInput{
		Username: "reggie",
		Email:    "Reggie@Example.com",
		Password: testPassword,
		Role:     models.RoleManager,
		TeamID:   &eng.ID,
	})
	s.Require().NoError(err)
	s.NotEmpty(pair.AccessToken)
	s.Equal("reggie@example.com", user.Email)
	s.Equal(user.ID, *s.team(eng.ID).ManagerID)

	_, _, err = s.auth.Register(s.ctx, RegisterInput{
		Username: "second",
		Email:    "second@example.com",
		Password: testPassword,
		Role:     models.RoleManager,
		TeamID:   &eng.ID,
	})
	s.requireKind(err, apierrors.KindConflict)

	_, err = s.store.Users().FindByUsername(s.ctx, "second")
	s.Error(err, "failed registration must not leave a user behind")
}
