package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"reminddo/internal/models"
	"reminddo/internal/recurrence"
	"reminddo/internal/repositories"
	"reminddo/internal/testutil"
)

type TaskServiceSuite struct {
	suite.Suite
	db      *gorm.DB
	store   *repositories.Store
	service *TaskServiceImpl
	user    *models.User
	other   *models.User
	ctx     context.Context
	base    time.Time
}

func TestTaskServiceSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceSuite))
}

func (s *TaskServiceSuite) SetupTest() {
	s.db = testutil.NewDB(s.T())
	s.store = repositories.NewStore(s.db)
	s.service = NewTaskService(s.store, nil)
	s.user = testutil.CreateUser(s.T(), s.db, "alice")
	s.other = testutil.CreateUser(s.T(), s.db, "bob")
	s.ctx = context.Background()
	s.base = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
}

func ts(t time.Time) *Timestamp { return &Timestamp{t} }

func strPtr(s string) *string { return &s }

func (s *TaskServiceSuite) countTasks(userID uuid.UUID) int64 {
	var n int64
	s.Require().NoError(s.db.Model(&models.Task{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func (s *TaskServiceSuite) createOne(title string) models.Task {
	tasks, err := s.service.CreateTasks(s.ctx, s.user.ID, CreateTaskInput{
		Title:     title,
		StartTime: ts(s.base),
		EndTime:   ts(s.base.Add(time.Hour)),
	})
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	return tasks[0]
}

func (s *TaskServiceSuite) TestCreate_SingleWithoutPattern() {
	tasks, err := s.service.CreateTasks(s.ctx, s.user.ID, CreateTaskInput{
		Title:             "  Dentist  ",
		StartTime:         ts(s.base),
		EndTime:           ts(s.base.Add(time.Hour)),
		RecurrencePattern: strPtr("none"),
	})
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)

	t := tasks[0]
	s.Equal("Dentist", t.Title)
	s.Nil(t.RecurrencePattern)
	s.Nil(t.RecurrenceID)
	s.Equal(int64(1), s.countTasks(s.user.ID))
}

func (s *TaskServiceSuite) TestCreate_DailyExpandsIntoSeries() {
	tasks, err := s.service.CreateTasks(s.ctx, s.user.ID, CreateTaskInput{
		Title:             "Meditate",
		StartTime:         ts(s.base),
		EndTime:           ts(s.base.Add(15 * time.Minute)),
		RecurrencePattern: strPtr("daily"),
		ChecklistItems: []ChecklistItemInput{
			{Title: "Breathe", IsCompleted: true},
			{Title: "Stretch"},
		},
	})
	s.Require().NoError(err)
	s.Require().Len(tasks, 30)
	s.Equal(int64(30), s.countTasks(s.user.ID))

	seriesID := tasks[0].RecurrenceID
	s.Require().NotNil(seriesID)
	for i, t := range tasks {
		s.Equal(*seriesID, *t.RecurrenceID, "instance %d", i)
		s.Equal(recurrence.Daily, *t.RecurrencePattern)
		s.True(t.StartTime.Equal(s.base.AddDate(0, 0, i)), "instance %d start", i)
		s.Equal(15*time.Minute, t.EndTime.Sub(*t.StartTime))
	}

	var items []models.ChecklistItem
	s.Require().NoError(s.db.Find(&items).Error)
	s.Len(items, 60)
	for _, item := range items {
		s.False(item.IsCompleted, "cloned items start unchecked")
	}
}

func (s *TaskServiceSuite) TestCreate_PatternWithoutEndStoresPatternOnly() {
	tasks, err := s.service.CreateTasks(s.ctx, s.user.ID, CreateTaskInput{
		Title:             "Call mom",
		StartTime:         ts(s.base),
		RecurrencePattern: strPtr("weekly"),
	})
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	s.Equal(recurrence.Weekly, *tasks[0].RecurrencePattern)
	s.Nil(tasks[0].RecurrenceID)
}

func (s *TaskServiceSuite) TestCreate_PatternWithoutStartIsDropped() {
	tasks, err := s.service.CreateTasks(s.ctx, s.user.ID, CreateTaskInput{
		Title:             "Someday",
		RecurrencePattern: strPtr("daily"),
	})
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	s.Nil(tasks[0].RecurrencePattern)
	s.Nil(tasks[0].RecurrenceID)
}

func (s *TaskServiceSuite) TestCreate_CustomIsStoredButNotExpanded() {
	tasks, err := s.service.CreateTasks(s.ctx, s.user.ID, CreateTaskInput{
		Title:             "Odd schedule",
		StartTime:         ts(s.base),
		EndTime:           ts(s.base.Add(time.Hour)),
		RecurrencePattern: strPtr("custom"),
	})
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	s.Equal(recurrence.Custom, *tasks[0].RecurrencePattern)
	s.Nil(tasks[0].RecurrenceID)
}

func (s *TaskServiceSuite) TestCreate_Validation() {
	_, err := s.service.CreateTasks(s.ctx, s.user.ID, CreateTaskInput{
		Title:             " ",
		StartTime:         ts(s.base),
		EndTime:           ts(s.base.Add(-time.Hour)),
		Priority:          strPtr("urgent"),
		RecurrencePattern: strPtr("hourly"),
	})

	var verr *ValidationError
	s.Require().True(errors.As(err, &verr))
	s.Contains(verr.Fields, "title")
	s.Contains(verr.Fields, "end_time")
	s.Contains(verr.Fields, "priority")
	s.Contains(verr.Fields, "recurrence_pattern")
	s.Equal(int64(0), s.countTasks(s.user.ID))
}

func (s *TaskServiceSuite) TestUpdate_OwnershipAndMissing() {
	task := s.createOne("Mine")

	_, err := s.service.UpdateTask(s.ctx, s.other.ID, task.ID, UpdateTaskInput{Title: Some("Stolen")})
	s.ErrorIs(err, ErrForbidden)

	_, err = s.service.UpdateTask(s.ctx, s.user.ID, uuid.Must(uuid.NewV4()), UpdateTaskInput{})
	s.ErrorIs(err, ErrNotFound)

	found, err := s.store.Tasks.FindByID(s.ctx, task.ID)
	s.Require().NoError(err)
	s.Equal("Mine", found.Title)
}

func (s *TaskServiceSuite) TestUpdate_OnlyPresentFieldsChange() {
	tasks, err := s.service.CreateTasks(s.ctx, s.user.ID, CreateTaskInput{
		Title:     "Write report",
		StartTime: ts(s.base),
		EndTime:   ts(s.base.Add(time.Hour)),
		Notes:     strPtr("draft first"),
		Color:     strPtr("#FFFFFF"),
	})
	s.Require().NoError(err)

	updated, err := s.service.UpdateTask(s.ctx, s.user.ID, tasks[0].ID, UpdateTaskInput{
		Title:       Some("Write final report"),
		Notes:       Null[string](),
		Priority:    Some("high"),
		IsCompleted: Some(true),
	})
	s.Require().NoError(err)

	s.Equal("Write final report", updated.Title)
	s.Nil(updated.Notes)
	s.Equal("#FFFFFF", *updated.Color)
	s.Equal(models.PriorityHigh, *updated.Priority)
	s.True(updated.IsCompleted)
	s.True(updated.StartTime.Equal(s.base))
	s.Nil(updated.RecurrenceID)
}

func (s *TaskServiceSuite) TestUpdate_RejectsEndBeforeStart() {
	task := s.createOne("Focus")

	_, err := s.service.UpdateTask(s.ctx, s.user.ID, task.ID, UpdateTaskInput{
		EndTime: Some(Timestamp{s.base.Add(-time.Minute)}),
	})
	var verr *ValidationError
	s.Require().True(errors.As(err, &verr))
	s.Contains(verr.Fields, "end_time")
}

func (s *TaskServiceSuite) TestUpdate_ConvertsToWeeklySeries() {
	task := s.createOne("Team sync")

	updated, err := s.service.UpdateTask(s.ctx, s.user.ID, task.ID, UpdateTaskInput{
		RecurrencePattern: Some("weekly"),
		ChecklistItems: Some([]ChecklistItemInput{
			{Title: "Agenda", IsCompleted: true},
		}),
	})
	s.Require().NoError(err)
	s.Require().NotNil(updated.RecurrenceID)
	s.Equal(recurrence.Weekly, *updated.RecurrencePattern)

	s.Require().Len(updated.ChecklistItems, 1)
	s.True(updated.ChecklistItems[0].IsCompleted, "the edited task keeps the submitted state")

	var series []models.Task
	s.Require().NoError(s.db.Preload("ChecklistItems").
		Where("recurrence_id = ?", *updated.RecurrenceID).
		Order("start_time").Find(&series).Error)
	s.Require().Len(series, 8)
	s.Equal(task.ID, series[0].ID)
	for i, t := range series {
		s.True(t.StartTime.Equal(s.base.AddDate(0, 0, 7*i)), "instance %d", i)
		s.Require().Len(t.ChecklistItems, 1)
		if i > 0 {
			s.False(t.ChecklistItems[0].IsCompleted)
			s.Equal("Agenda", t.ChecklistItems[0].Title)
		}
	}
}

func (s *TaskServiceSuite) TestUpdate_ConvertsToDailySeries() {
	task := s.createOne("Walk")

	updated, err := s.service.UpdateTask(s.ctx, s.user.ID, task.ID, UpdateTaskInput{
		RecurrencePattern: Some("daily"),
	})
	s.Require().NoError(err)
	s.Equal(int64(30), s.countTasks(s.user.ID))

	var items int64
	s.Require().NoError(s.db.Model(&models.ChecklistItem{}).Count(&items).Error)
	s.Zero(items, "no checklist without checklist_items in the request")

	var n int64
	s.Require().NoError(s.db.Model(&models.Task{}).Where("recurrence_id = ?", *updated.RecurrenceID).Count(&n).Error)
	s.Equal(int64(30), n)
}

func (s *TaskServiceSuite) TestUpdate_RecurringTaskIsNotConvertedAgain() {
	tasks, err := s.service.CreateTasks(s.ctx, s.user.ID, CreateTaskInput{
		Title:             "Gym",
		StartTime:         ts(s.base),
		EndTime:           ts(s.base.Add(time.Hour)),
		RecurrencePattern: strPtr("weekly"),
	})
	s.Require().NoError(err)
	s.Require().Len(tasks, 12)

	updated, err := s.service.UpdateTask(s.ctx, s.user.ID, tasks[0].ID, UpdateTaskInput{
		RecurrencePattern: Some("daily"),
	})
	s.Require().NoError(err)
	s.Equal(*tasks[0].RecurrenceID, *updated.RecurrenceID)
	s.Equal(recurrence.Daily, *updated.RecurrencePattern)
	s.Equal(int64(12), s.countTasks(s.user.ID))
}

func (s *TaskServiceSuite) TestUpdate_NonePatternClears() {
	tasks, err := s.service.CreateTasks(s.ctx, s.user.ID, CreateTaskInput{
		Title:             "Bills",
		StartTime:         ts(s.base),
		RecurrencePattern: strPtr("monthly"),
	})
	s.Require().NoError(err)

	updated, err := s.service.UpdateTask(s.ctx, s.user.ID, tasks[0].ID, UpdateTaskInput{
		RecurrencePattern: Some("none"),
	})
	s.Require().NoError(err)
	s.Nil(updated.RecurrencePattern)
	s.Equal(int64(1), s.countTasks(s.user.ID))
}

func (s *TaskServiceSuite) TestUpdate_ReplacesChecklist() {
	tasks, err := s.service.CreateTasks(s.ctx, s.user.ID, CreateTaskInput{
		Title:          "Pack",
		ChecklistItems: []ChecklistItemInput{{Title: "Socks"}, {Title: "Charger"}},
	})
	s.Require().NoError(err)

	updated, err := s.service.UpdateTask(s.ctx, s.user.ID, tasks[0].ID, UpdateTaskInput{
		ChecklistItems: Some([]ChecklistItemInput{{Title: "Passport", IsCompleted: true}}),
	})
	s.Require().NoError(err)
	s.Require().Len(updated.ChecklistItems, 1)
	s.Equal("Passport", updated.ChecklistItems[0].Title)

	cleared, err := s.service.UpdateTask(s.ctx, s.user.ID, tasks[0].ID, UpdateTaskInput{
		ChecklistItems: Some([]ChecklistItemInput{}),
	})
	s.Require().NoError(err)
	s.Empty(cleared.ChecklistItems)
}

func (s *TaskServiceSuite) TestDelete() {
	tasks, err := s.service.CreateTasks(s.ctx, s.user.ID, CreateTaskInput{
		Title:          "Laundry",
		ChecklistItems: []ChecklistItemInput{{Title: "Whites"}},
	})
	s.Require().NoError(err)
	id := tasks[0].ID

	s.ErrorIs(s.service.DeleteTask(s.ctx, s.other.ID, id), ErrForbidden)
	s.Require().NoError(s.service.DeleteTask(s.ctx, s.user.ID, id))
	s.ErrorIs(s.service.DeleteTask(s.ctx, s.user.ID, id), ErrNotFound)

	var items int64
	s.Require().NoError(s.db.Model(&models.ChecklistItem{}).Count(&items).Error)
	s.Zero(items)
}

func (s *TaskServiceSuite) TestToggleChecklistItem() {
	tasks, err := s.service.CreateTasks(s.ctx, s.user.ID, CreateTaskInput{
		Title:          "Groceries",
		ChecklistItems: []ChecklistItemInput{{Title: "Milk"}},
	})
	s.Require().NoError(err)
	itemID := tasks[0].ChecklistItems[0].ID

	_, err = s.service.ToggleChecklistItem(s.ctx, s.other.ID, itemID, true)
	s.ErrorIs(err, ErrForbidden)

	item, err := s.service.ToggleChecklistItem(s.ctx, s.user.ID, itemID, true)
	s.Require().NoError(err)
	s.True(item.IsCompleted)

	_, err = s.service.ToggleChecklistItem(s.ctx, s.user.ID, uuid.Must(uuid.NewV4()), true)
	s.ErrorIs(err, ErrNotFound)
}

func (s *TaskServiceSuite) TestToggle_DoesNotAffectSiblingInstances() {
	tasks, err := s.service.CreateTasks(s.ctx, s.user.ID, CreateTaskInput{
		Title:             "Run",
		StartTime:         ts(s.base),
		EndTime:           ts(s.base.Add(time.Hour)),
		RecurrencePattern: strPtr("weekly"),
		ChecklistItems:    []ChecklistItemInput{{Title: "Shoes"}},
	})
	s.Require().NoError(err)
	s.Require().Greater(len(tasks), 1)
	s.Require().Len(tasks[0].ChecklistItems, 1)

	first := tasks[0].ChecklistItems[0]
	_, err = s.service.ToggleChecklistItem(s.ctx, s.user.ID, first.ID, true)
	s.Require().NoError(err)

	sibling, err := s.store.Tasks.FindByID(s.ctx, tasks[1].ID)
	s.Require().NoError(err)
	s.Require().Len(sibling.ChecklistItems, 1)
	s.Equal("Shoes", sibling.ChecklistItems[0].Title)
	s.False(sibling.ChecklistItems[0].IsCompleted)
	s.NotEqual(first.ID, sibling.ChecklistItems[0].ID)

	toggled, err := s.store.Tasks.FindByID(s.ctx, tasks[0].ID)
	s.Require().NoError(err)
	s.True(toggled.ChecklistItems[0].IsCompleted)
}

func (s *TaskServiceSuite) TestBulkSchedule_SkipsForeignAndUnknown() {
	mine := s.createOne("Mine")
	theirs, err := s.service.CreateTasks(s.ctx, s.other.ID, CreateTaskInput{Title: "Theirs"})
	s.Require().NoError(err)

	newStart := s.base.Add(3 * time.Hour)
	n, err := s.service.BulkSchedule(s.ctx, s.user.ID, []ScheduleEntry{
		{ID: mine.ID.String(), StartTime: ts(newStart), EndTime: ts(newStart.Add(30 * time.Minute))},
		{ID: theirs[0].ID.String(), StartTime: ts(newStart), EndTime: ts(newStart.Add(30 * time.Minute))},
		{ID: uuid.Must(uuid.NewV4()).String(), StartTime: ts(newStart), EndTime: ts(newStart.Add(30 * time.Minute))},
	})
	s.Require().NoError(err)
	s.Equal(1, n)

	moved, err := s.store.Tasks.FindByID(s.ctx, mine.ID)
	s.Require().NoError(err)
	s.True(moved.StartTime.Equal(newStart))

	untouched, err := s.store.Tasks.FindByID(s.ctx, theirs[0].ID)
	s.Require().NoError(err)
	s.Nil(untouched.StartTime)
}

func (s *TaskServiceSuite) TestBulkSchedule_Validation() {
	_, err := s.service.BulkSchedule(s.ctx, s.user.ID, []ScheduleEntry{{ID: "nope"}})
	var verr *ValidationError
	s.Require().True(errors.As(err, &verr))
	s.Contains(verr.Fields, "tasks.0.id")
	s.Contains(verr.Fields, "tasks.0.start_time")

	_, err = s.service.BulkSchedule(s.ctx, s.user.ID, nil)
	s.Require().True(errors.As(err, &verr))
	s.Contains(verr.Fields, "tasks")
}

func (s *TaskServiceSuite) TestBulkStore_DefaultsAndDuration() {
	duration := 45
	tasks, err := s.service.BulkStore(s.ctx, s.user.ID, []BulkTaskInput{
		{Title: "Deep work", StartTime: ts(s.base), Description: strPtr("no meetings")},
		{Title: "Lunch", StartTime: ts(s.base.Add(3 * time.Hour)), Duration: &duration, Icon: strPtr("🥗"), Color: strPtr("#C7CEEA")},
		{Title: "Whenever"},
		{Title: "Fixed", StartTime: ts(s.base), EndTime: ts(s.base.Add(2 * time.Hour)), Duration: &duration},
	})
	s.Require().NoError(err)
	s.Require().Len(tasks, 4)

	s.Equal(30*time.Minute, tasks[0].EndTime.Sub(*tasks[0].StartTime))
	s.Equal("✨", *tasks[0].Icon)
	s.Equal("#E2F0CB", *tasks[0].Color)
	s.Equal("no meetings", *tasks[0].Notes)

	s.Equal(45*time.Minute, tasks[1].EndTime.Sub(*tasks[1].StartTime))
	s.Equal("🥗", *tasks[1].Icon)
	s.Equal("#C7CEEA", *tasks[1].Color)

	s.Nil(tasks[2].StartTime)
	s.Nil(tasks[2].EndTime)

	s.Equal(2*time.Hour, tasks[3].EndTime.Sub(*tasks[3].StartTime))
	s.Equal(int64(4), s.countTasks(s.user.ID))
}

func (s *TaskServiceSuite) TestBulkStore_RejectsMissingTitle() {
	_, err := s.service.BulkStore(s.ctx, s.user.ID, []BulkTaskInput{{Title: "ok"}, {Title: ""}})
	var verr *ValidationError
	s.Require().True(errors.As(err, &verr))
	s.Contains(verr.Fields, "tasks.1.title")
	s.Equal(int64(0), s.countTasks(s.user.ID))
}

func (s *TaskServiceSuite) TestBulkStore_RejectsEmptyWindow() {
	zero, negative := 0, -45
	_, err := s.service.BulkStore(s.ctx, s.user.ID, []BulkTaskInput{
		{Title: "Zero", StartTime: ts(s.base), Duration: &zero},
		{Title: "Negative", StartTime: ts(s.base), Duration: &negative},
		{Title: "Backwards", StartTime: ts(s.base), EndTime: ts(s.base.Add(-time.Hour))},
		{Title: "Fine", StartTime: ts(s.base)},
	})
	var verr *ValidationError
	s.Require().True(errors.As(err, &verr))
	s.Equal("The duration must be at least 1.", verr.Fields["tasks.0.duration"])
	s.Equal("The duration must be at least 1.", verr.Fields["tasks.1.duration"])
	s.Equal("The end time must be a date after start time.", verr.Fields["tasks.2.end_time"])
	s.NotContains(verr.Fields, "tasks.3.end_time")
	s.Equal(int64(0), s.countTasks(s.user.ID))
}

func (s *TaskServiceSuite) TestBulkStore_CapsDuration() {
	tooLong, longest := 1441, 1440
	_, err := s.service.BulkStore(s.ctx, s.user.ID, []BulkTaskInput{
		{Title: "Marathon", StartTime: ts(s.base), Duration: &tooLong},
	})
	var verr *ValidationError
	s.Require().True(errors.As(err, &verr))
	s.Equal("The duration may not be greater than 1440.", verr.Fields["tasks.0.duration"])

	tasks, err := s.service.BulkStore(s.ctx, s.user.ID, []BulkTaskInput{
		{Title: "All day", StartTime: ts(s.base), Duration: &longest},
	})
	s.Require().NoError(err)
	s.Equal(24*time.Hour, tasks[0].EndTime.Sub(*tasks[0].StartTime))
}

func (s *TaskServiceSuite) TestListTasks_OnlyOwn() {
	s.createOne("a")
	_, err := s.service.CreateTasks(s.ctx, s.other.ID, CreateTaskInput{Title: "b"})
	s.Require().NoError(err)

	tasks, err := s.service.ListTasks(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.Len(tasks, 1)
	s.Equal("a", tasks[0].Title)
}
