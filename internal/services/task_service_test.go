package services

import (
	"time"

	"github.com/yukikurage/team-task-api/internal/authz"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/optional"
	"github.com/yukikurage/team-task-api/internal/utils"
)

type taskFixture struct {
	eng, ops           *models.Team
	manager, dev, dev2 *models.User
	outsider           *models.User
}

func (s *ServiceTestSuite) taskFixture() taskFixture {
	f := taskFixture{eng: s.newTeam("Eng"), ops: s.newTeam("Ops")}
	f.manager = s.newUser("manny", models.RoleManager, f.eng)
	f.dev = s.newUser("devon", models.RoleUser, f.eng)
	f.dev2 = s.newUser("devina", models.RoleUser, f.eng)
	f.outsider = s.newUser("otis", models.RoleUser, f.ops)
	return f
}

func (s *ServiceTestSuite) listTitles(p authz.Principal, input ListTasksInput) ([]string, int64) {
	if input.Pagination.Limit == 0 {
		input.Pagination = utils.NewPaginationParams(1, 50)
	}
	tasks, total, err := s.tasks.ListTasks(s.ctx, p, input)
	s.Require().NoError(err)
	titles := make([]string, 0, len(tasks))
	for _, t := range tasks {
		titles = append(titles, t.Title)
	}
	return titles, total
}

func (s *ServiceTestSuite) TestTaskVisibilityByRole() {
	f := s.taskFixture()
	s.newTask(s.principal(f.dev), "dev own", nil)
	s.newTask(s.principal(f.dev2), "dev2 own", nil)
	s.newTask(s.principal(f.outsider), "ops own", nil)

	titles, total := s.listTitles(s.admin, ListTasksInput{})
	s.EqualValues(3, total)
	s.Len(titles, 3)

	titles, _ = s.listTitles(s.principal(f.manager), ListTasksInput{})
	s.ElementsMatch([]string{"dev own", "dev2 own"}, titles)

	titles, total = s.listTitles(s.principal(f.dev), ListTasksInput{})
	s.Equal([]string{"dev own"}, titles)
	s.EqualValues(1, total)
}

func (s *ServiceTestSuite) TestGetTaskGate() {
	f := s.taskFixture()
	task := s.newTask(s.principal(f.dev), "private", nil)

	_, err := s.tasks.GetTask(s.ctx, s.principal(f.manager), task.ID)
	s.NoError(err)

	_, err = s.tasks.GetTask(s.ctx, s.principal(f.dev2), task.ID)
	s.ErrorIs(err, authz.ErrTaskAccessDenied)

	_, err = s.tasks.GetTask(s.ctx, s.admin, 9999)
	s.ErrorIs(err, ErrTaskNotFound)
}

func (s *ServiceTestSuite) TestCreateTaskAssignmentRules() {
	f := s.taskFixture()

	_, err := s.tasks.CreateTask(s.ctx, s.principal(f.dev), CreateTaskInput{
		Title:      "for someone else",
		DueDate:    time.Now().Add(time.Hour).Format(time.RFC3339),
		AssignedTo: &f.dev2.ID,
	})
	s.ErrorIs(err, authz.ErrAssignOnlySelf)

	task := s.newTask(s.principal(f.manager), "delegated", &f.dev.ID)
	s.Equal(f.dev.ID, task.AssignedToID)

	_, err = s.tasks.CreateTask(s.ctx, s.principal(f.manager), CreateTaskInput{
		Title:      "ghost",
		DueDate:    time.Now().Add(time.Hour).Format(time.RFC3339),
		AssignedTo: ptr(uint64(9999)),
	})
	s.ErrorIs(err, ErrAssigneeNotFound)
}

func (s *ServiceTestSuite) TestCreateTaskValidation() {
	f := s.taskFixture()

	_, err := s.tasks.CreateTask(s.ctx, s.principal(f.dev), CreateTaskInput{
		Title:    "",
		DueDate:  time.Now().Add(-time.Hour).Format(time.RFC3339),
		Priority: "Urgent",
	})
	s.requireKind(err, apierrors.KindValidation)

	var appErr *apierrors.Error
	s.Require().ErrorAs(err, &appErr)
	fields := map[string]bool{}
	for _, fe := range appErr.Fields {
		fields[fe.Field] = true
	}
	s.True(fields["title"])
	s.True(fields["dueDate"])
	s.True(fields["priority"])
}

func (s *ServiceTestSuite) TestAssigneeMayOnlyChangeStatus() {
	f := s.taskFixture()
	task := s.newTask(s.principal(f.manager), "handoff", &f.dev.ID)
	devP := s.principal(f.dev)

	_, err := s.tasks.UpdateTask(s.ctx, devP, task.ID, TaskPatch{
		Status: optional.Of(models.TaskStatusInProgress),
		Title:  optional.Of("renamed"),
	})
	s.ErrorIs(err, authz.ErrAssigneeStatusOnly)

	unchanged, err := s.tasks.GetTask(s.ctx, devP, task.ID)
	s.Require().NoError(err)
	s.Equal("handoff", unchanged.Title)
	s.Equal(models.TaskStatusPending, unchanged.Status)

	updated, err := s.tasks.UpdateTask(s.ctx, devP, task.ID, TaskPatch{Status: optional.Of(models.TaskStatusCompleted)})
	s.Require().NoError(err)
	s.Equal(models.TaskStatusCompleted, updated.Status)
}

func (s *ServiceTestSuite) TestCreatorMayChangeAnyField() {
	f := s.taskFixture()
	devP := s.principal(f.dev)
	task := s.newTask(devP, "mine", nil)
	due := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)

	updated, err := s.tasks.UpdateTask(s.ctx, devP, task.ID, TaskPatch{
		Title:       optional.Of("still mine"),
		Description: optional.Of("details"),
		DueDate:     optional.Of(due.Format(time.RFC3339)),
		Priority:    optional.Of(models.TaskPriorityHigh),
	})
	s.Require().NoError(err)
	s.Equal("still mine", updated.Title)
	s.Equal("details", updated.Description)
	s.Equal(models.TaskPriorityHigh, updated.Priority)
	s.True(due.Equal(updated.DueDate))
}

func (s *ServiceTestSuite) TestCreatorCannotHandTaskToOthers() {
	f := s.taskFixture()
	devP := s.principal(f.dev)
	task := s.newTask(devP, "mine", nil)

	_, err := s.tasks.UpdateTask(s.ctx, devP, task.ID, TaskPatch{AssignedTo: optional.Of(f.outsider.ID)})
	s.ErrorIs(err, authz.ErrAssignOnlySelf)

	_, err = s.tasks.UpdateTask(s.ctx, devP, task.ID, TaskPatch{
		Title:      optional.Of("renamed"),
		AssignedTo: optional.Of(f.dev2.ID),
	})
	s.ErrorIs(err, authz.ErrAssignOnlySelf)

	unchanged, err := s.tasks.GetTask(s.ctx, devP, task.ID)
	s.Require().NoError(err)
	s.Equal(f.dev.ID, unchanged.AssignedToID)
	s.Equal("mine", unchanged.Title)

	kept, err := s.tasks.UpdateTask(s.ctx, devP, task.ID, TaskPatch{AssignedTo: optional.Of(f.dev.ID)})
	s.Require().NoError(err)
	s.Equal(f.dev.ID, kept.AssignedToID)
}

func (s *ServiceTestSuite) TestManagerReassignWithinTeamOnly() {
	f := s.taskFixture()
	mp := s.principal(f.manager)
	task := s.newTask(mp, "team work", &f.dev.ID)

	updated, err := s.tasks.UpdateTask(s.ctx, mp, task.ID, TaskPatch{AssignedTo: optional.Of(f.dev2.ID)})
	s.Require().NoError(err)
	s.Equal(f.dev2.ID, updated.AssignedToID)

	_, err = s.tasks.UpdateTask(s.ctx, mp, task.ID, TaskPatch{AssignedTo: optional.Of(f.outsider.ID)})
	s.ErrorIs(err, authz.ErrAssignOutsideTeam)

	_, err = s.tasks.AssignTask(s.ctx, mp, task.ID, f.outsider.ID)
	s.ErrorIs(err, authz.ErrAssignOutsideTeam)

	assigned, err := s.tasks.AssignTask(s.ctx, s.admin, task.ID, f.outsider.ID)
	s.Require().NoError(err)
	s.Equal(f.outsider.ID, assigned.AssignedToID)
}

func (s *ServiceTestSuite) TestDeleteTaskRules() {
	f := s.taskFixture()
	task := s.newTask(s.principal(f.manager), "assigned", &f.dev.ID)

	s.ErrorIs(s.tasks.DeleteTask(s.ctx, s.principal(f.dev), task.ID), authz.ErrOnlyCreatorDeletes)

	own := s.newTask(s.principal(f.dev), "own", nil)
	s.NoError(s.tasks.DeleteTask(s.ctx, s.principal(f.dev), own.ID))
	s.NoError(s.tasks.DeleteTask(s.ctx, s.principal(f.manager), task.ID))

	_, err := s.tasks.GetTask(s.ctx, s.admin, task.ID)
	s.ErrorIs(err, ErrTaskNotFound)
}

func (s *ServiceTestSuite) TestMyTasksAndStats() {
	f := s.taskFixture()
	mp := s.principal(f.manager)
	s.newTask(mp, "later", &f.dev.ID)
	soon, err := s.tasks.CreateTask(s.ctx, mp, CreateTaskInput{
		Title:      "sooner",
		DueDate:    time.Now().Add(2 * time.Hour).Format(time.RFC3339),
		Priority:   models.TaskPriorityHigh,
		AssignedTo: &f.dev.ID,
	})
	s.Require().NoError(err)
	s.newTask(mp, "manager own", nil)

	tasks, total, err := s.tasks.MyTasks(s.ctx, s.principal(f.dev), ListTasksInput{Pagination: utils.NewPaginationParams(1, 10)})
	s.Require().NoError(err)
	s.EqualValues(2, total)
	s.Equal(soon.ID, tasks[0].ID)

	s.tasks.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	stats, err := s.tasks.Stats(s.ctx, mp)
	s.Require().NoError(err)
	s.EqualValues(3, stats.TotalTasks)
	s.EqualValues(3, stats.PendingTasks)
	s.EqualValues(1, stats.HighPriorityTasks)
	s.EqualValues(1, stats.OverdueTasks)
}

func (s *ServiceTestSuite) TestListTasksRejectsUnknownSort() {
	f := s.taskFixture()

	_, _, err := s.tasks.ListTasks(s.ctx, s.principal(f.dev), ListTasksInput{SortBy: "password"})
	s.requireKind(err, apierrors.KindValidation)
}

func ptr[T any](v T) *T { return &v }
