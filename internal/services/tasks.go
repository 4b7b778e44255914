package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"

	"reminddo/internal/logging"
	"reminddo/internal/models"
	"reminddo/internal/monitoring"
	"reminddo/internal/recurrence"
	"reminddo/internal/repositories"
)

const (
	defaultBulkDuration = 30
	defaultBulkIcon     = "✨"
	defaultBulkColor    = "#E2F0CB"
)

type ChecklistItemInput struct {
	Title       string `json:"title" binding:"required,notblank,max=255"`
	IsCompleted bool   `json:"is_completed"`
}

type CreateTaskInput struct {
	Title             string               `json:"title" binding:"required,notblank,max=255"`
	StartTime         *Timestamp           `json:"start_time"`
	EndTime           *Timestamp           `json:"end_time"`
	AllDay            bool                 `json:"all_day"`
	TimeOfDay         *string              `json:"time_of_day" binding:"omitempty,max=50"`
	Color             *string              `json:"color" binding:"omitempty,max=50"`
	Icon              *string              `json:"icon" binding:"omitempty,max=50"`
	Notes             *string              `json:"notes"`
	Priority          *string              `json:"priority" binding:"omitempty,oneof=high medium low none"`
	RecurrencePattern *string              `json:"recurrence_pattern" binding:"omitempty,oneof=none daily weekly weekday weekend biweekly monthly yearly custom"`
	ChecklistItems    []ChecklistItemInput `json:"checklist_items" binding:"omitempty,dive"`
}

// UpdateTaskInput is a partial update: only fields present in the request are written.
type UpdateTaskInput struct {
	Title             Optional[string]               `json:"title"`
	StartTime         Optional[Timestamp]            `json:"start_time"`
	EndTime           Optional[Timestamp]            `json:"end_time"`
	AllDay            Optional[bool]                 `json:"all_day"`
	TimeOfDay         Optional[string]               `json:"time_of_day"`
	Color             Optional[string]               `json:"color"`
	Icon              Optional[string]               `json:"icon"`
	Notes             Optional[string]               `json:"notes"`
	Priority          Optional[string]               `json:"priority"`
	IsCompleted       Optional[bool]                 `json:"is_completed"`
	RecurrencePattern Optional[string]               `json:"recurrence_pattern"`
	ChecklistItems    Optional[[]ChecklistItemInput] `json:"checklist_items"`
}

type ScheduleEntry struct {
	ID        string     `json:"id" binding:"required,uuid"`
	StartTime *Timestamp `json:"start_time" binding:"required"`
	EndTime   *Timestamp `json:"end_time" binding:"required"`
}

// BulkScheduleRequest is the body of POST /tasks/bulk-schedule.
type BulkScheduleRequest struct {
	Tasks []ScheduleEntry `json:"tasks" binding:"required,min=1,dive"`
}

type BulkTaskInput struct {
	Title       string     `json:"title" binding:"required,notblank,max=255"`
	StartTime   *Timestamp `json:"start_time"`
	EndTime     *Timestamp `json:"end_time"`
	Icon        *string    `json:"icon" binding:"omitempty,max=50"`
	Color       *string    `json:"color" binding:"omitempty,max=50"`
	Duration    *int       `json:"duration" binding:"omitnil,min=1,max=1440"`
	Description *string    `json:"description"`
}

// BulkStoreRequest is the body of POST /tasks/bulk-store.
type BulkStoreRequest struct {
	Tasks []BulkTaskInput `json:"tasks" binding:"required,min=1,dive"`
}

type TaskService interface {
	ListTasks(ctx context.Context, userID uuid.UUID) ([]models.Task, error)
	CreateTasks(ctx context.Context, userID uuid.UUID, in CreateTaskInput) ([]models.Task, error)
	UpdateTask(ctx context.Context, userID, taskID uuid.UUID, in UpdateTaskInput) (*models.Task, error)
	DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error
	ToggleChecklistItem(ctx context.Context, userID, itemID uuid.UUID, completed bool) (*models.ChecklistItem, error)
	BulkSchedule(ctx context.Context, userID uuid.UUID, entries []ScheduleEntry) (int, error)
	BulkStore(ctx context.Context, userID uuid.UUID, inputs []BulkTaskInput) ([]models.Task, error)
}

type TaskServiceImpl struct {
	store  *repositories.Store
	logger *zap.Logger
}

func NewTaskService(store *repositories.Store, logger *zap.Logger) *TaskServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskServiceImpl{store: store, logger: logger}
}

func (s *TaskServiceImpl) ListTasks(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	return s.store.Tasks.ListByUser(ctx, userID)
}

// CreateTasks stores the task, expanded into a series when a recurrence pattern applies.
// Every instance of a series shares one recurrence id and gets its own unchecked copy of the checklist.
func (s *TaskServiceImpl) CreateTasks(ctx context.Context, userID uuid.UUID, in CreateTaskInput) ([]models.Task, error) {
	var v validator
	v.input(in)
	checkRange(&v, "end_time", timePtr(in.StartTime), timePtr(in.EndTime))
	if err := v.err(); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	priority := parsePriority(in.Priority)
	pattern := parsePattern(in.RecurrencePattern)

	start, end := timePtr(in.StartTime), timePtr(in.EndTime)
	if start == nil {
		pattern = recurrence.None
	}

	var seriesID *uuid.UUID
	if pattern.Expands() && start != nil && end != nil {
		id, err := uuid.NewV4()
		if err != nil {
			return nil, err
		}
		seriesID = &id
	}

	instances := recurrence.Expand(recurrence.Template{Start: start, End: end}, pattern)
	tasks := make([]models.Task, len(instances))
	for i, inst := range instances {
		tasks[i] = models.Task{
			UserID:            userID,
			Title:             title,
			StartTime:         inst.Start,
			EndTime:           inst.End,
			AllDay:            in.AllDay,
			TimeOfDay:         in.TimeOfDay,
			Color:             in.Color,
			Icon:              in.Icon,
			Notes:             in.Notes,
			Priority:          priority,
			RecurrencePattern: storedPattern(pattern),
			RecurrenceID:      seriesID,
			ChecklistItems:    cloneChecklist(in.ChecklistItems),
		}
	}

	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		return tx.Tasks.CreateMany(ctx, tasks)
	})
	if err != nil {
		return nil, err
	}

	monitoring.RecordTasksCreated(string(pattern), len(tasks))
	s.logger.Info("tasks created",
		logging.Operation("create_task"),
		logging.UserID(userID),
		zap.String("pattern", string(pattern)),
		zap.Int("instances", len(tasks)))
	return tasks, nil
}

// UpdateTask applies a partial update. Supplying a pattern for a task that is not yet part of a
// series converts it: the task joins a new series and the following occurrences are generated.
func (s *TaskServiceImpl) UpdateTask(ctx context.Context, userID, taskID uuid.UUID, in UpdateTaskInput) (*models.Task, error) {
	var updated *models.Task

	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		task, err := s.ownedTask(ctx, tx, userID, taskID)
		if err != nil {
			return err
		}

		fields, pattern, err := applyUpdate(task, in)
		if err != nil {
			return err
		}
		if err := tx.Tasks.Update(ctx, task, fields); err != nil {
			return err
		}

		if pattern.Expands() && !task.IsRecurring() && task.StartTime != nil && task.EndTime != nil {
			if err := s.convertToSeries(ctx, tx, task, pattern, in.ChecklistItems); err != nil {
				return err
			}
		}

		if in.ChecklistItems.Present {
			if err := tx.Tasks.DeleteChecklistItems(ctx, task.ID); err != nil {
				return err
			}
			var items []models.ChecklistItem
			if in.ChecklistItems.Value != nil {
				items = checklistFromInput(task.ID, *in.ChecklistItems.Value)
			}
			if err := tx.Tasks.CreateChecklistItems(ctx, items); err != nil {
				return err
			}
		}

		updated, err = tx.Tasks.FindByID(ctx, task.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *TaskServiceImpl) convertToSeries(ctx context.Context, tx *repositories.Store, task *models.Task, pattern recurrence.Pattern, checklist Optional[[]ChecklistItemInput]) error {
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	if err := tx.Tasks.Update(ctx, task, map[string]interface{}{"recurrence_id": id}); err != nil {
		return err
	}
	task.RecurrenceID = &id

	var drafts []ChecklistItemInput
	if checklist.Present && checklist.Value != nil {
		drafts = *checklist.Value
	}

	following := recurrence.Continue(recurrence.Template{Start: task.StartTime, End: task.EndTime}, pattern)
	tasks := make([]models.Task, len(following))
	for i, inst := range following {
		tasks[i] = models.Task{
			UserID:            task.UserID,
			Title:             task.Title,
			StartTime:         inst.Start,
			EndTime:           inst.End,
			AllDay:            task.AllDay,
			TimeOfDay:         task.TimeOfDay,
			Color:             task.Color,
			Icon:              task.Icon,
			Notes:             task.Notes,
			Priority:          task.Priority,
			RecurrencePattern: storedPattern(pattern),
			RecurrenceID:      &id,
			ChecklistItems:    cloneChecklist(drafts),
		}
	}
	if err := tx.Tasks.CreateMany(ctx, tasks); err != nil {
		return err
	}

	monitoring.RecordTasksCreated(string(pattern), len(tasks))
	s.logger.Info("task converted to series",
		logging.Operation("convert_task"),
		logging.TaskID(task.ID),
		zap.String("pattern", string(pattern)),
		zap.Int("generated", len(tasks)))
	return nil
}

func (s *TaskServiceImpl) DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error {
	return s.store.Transaction(ctx, func(tx *repositories.Store) error {
		task, err := s.ownedTask(ctx, tx, userID, taskID)
		if err != nil {
			return err
		}
		return tx.Tasks.Delete(ctx, task)
	})
}

func (s *TaskServiceImpl) ToggleChecklistItem(ctx context.Context, userID, itemID uuid.UUID, completed bool) (*models.ChecklistItem, error) {
	var item *models.ChecklistItem

	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		found, owner, err := tx.Tasks.FindChecklistItem(ctx, itemID)
		if err != nil {
			return mapStoreError(err)
		}
		if owner != userID {
			return ErrForbidden
		}
		if err := tx.Tasks.SetChecklistItemCompleted(ctx, found, completed); err != nil {
			return err
		}
		found.IsCompleted = completed
		item = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// BulkSchedule moves the user's tasks to new times. Ids that are unknown or owned by someone
// else are skipped; the number of rescheduled tasks is returned.
func (s *TaskServiceImpl) BulkSchedule(ctx context.Context, userID uuid.UUID, entries []ScheduleEntry) (int, error) {
	var v validator
	v.input(BulkScheduleRequest{Tasks: entries})
	for i, e := range entries {
		checkRange(&v, "tasks."+strconv.Itoa(i)+".end_time", timePtr(e.StartTime), timePtr(e.EndTime))
	}
	if err := v.err(); err != nil {
		return 0, err
	}

	ids := make([]uuid.UUID, 0, len(entries))
	byID := make(map[uuid.UUID]ScheduleEntry, len(entries))
	for _, e := range entries {
		id := uuid.FromStringOrNil(e.ID)
		ids = append(ids, id)
		byID[id] = e
	}

	updated := 0
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		tasks, err := tx.Tasks.FindOwnedByIDs(ctx, userID, ids)
		if err != nil {
			return err
		}
		for i := range tasks {
			e := byID[tasks[i].ID]
			fields := map[string]interface{}{
				"start_time": e.StartTime.Time,
				"end_time":   e.EndTime.Time,
			}
			if err := tx.Tasks.Update(ctx, &tasks[i], fields); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// BulkStore inserts plain tasks, typically the accepted output of the AI planner.
// A missing end time is derived from the start and a duration in minutes (default 30).
func (s *TaskServiceImpl) BulkStore(ctx context.Context, userID uuid.UUID, inputs []BulkTaskInput) ([]models.Task, error) {
	var v validator
	v.input(BulkStoreRequest{Tasks: inputs})

	windows := make([][2]*time.Time, len(inputs))
	for i, in := range inputs {
		start, end := timePtr(in.StartTime), timePtr(in.EndTime)
		if start != nil && end == nil {
			duration := defaultBulkDuration
			if in.Duration != nil {
				duration = *in.Duration
			}
			e := start.Add(time.Duration(duration) * time.Minute)
			end = &e
		}
		checkRange(&v, "tasks."+strconv.Itoa(i)+".end_time", start, end)
		windows[i] = [2]*time.Time{start, end}
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	tasks := make([]models.Task, len(inputs))
	for i, in := range inputs {
		start, end := windows[i][0], windows[i][1]
		tasks[i] = models.Task{
			UserID:    userID,
			Title:     strings.TrimSpace(in.Title),
			StartTime: start,
			EndTime:   end,
			Icon:      stringOr(in.Icon, defaultBulkIcon),
			Color:     stringOr(in.Color, defaultBulkColor),
			Notes:     in.Description,
		}
	}

	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		return tx.Tasks.CreateMany(ctx, tasks)
	})
	if err != nil {
		return nil, err
	}

	monitoring.RecordTasksCreated(string(recurrence.None), len(tasks))
	return tasks, nil
}

func (s *TaskServiceImpl) ownedTask(ctx context.Context, tx *repositories.Store, userID, taskID uuid.UUID) (*models.Task, error) {
	task, err := tx.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if task.UserID != userID {
		return nil, ErrForbidden
	}
	return task, nil
}

func mapStoreError(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// Rules for patch fields. Optional[T] hides presence from struct tags, so applyUpdate applies
// these per field; they mirror the binding tags on CreateTaskInput.
const (
	titleRule    = "required,notblank,max=255"
	shortRule    = "omitempty,max=50"
	priorityRule = "omitempty,oneof=high medium low none"
	patternRule  = "omitempty,oneof=none daily weekly weekday weekend biweekly monthly yearly custom"
)

// applyUpdate validates the patch, applies it to task in memory and returns the columns to write
// together with the requested recurrence pattern (None when absent).
func applyUpdate(task *models.Task, in UpdateTaskInput) (map[string]interface{}, recurrence.Pattern, error) {
	var v validator
	fields := make(map[string]interface{})

	if in.Title.Present {
		title := ""
		if in.Title.Value != nil {
			title = strings.TrimSpace(*in.Title.Value)
		}
		v.field("title", title, titleRule)
		task.Title = title
		fields["title"] = title
	}
	if in.StartTime.Present {
		task.StartTime = timePtr(in.StartTime.Value)
		fields["start_time"] = nullable(task.StartTime)
	}
	if in.EndTime.Present {
		task.EndTime = timePtr(in.EndTime.Value)
		fields["end_time"] = nullable(task.EndTime)
	}
	if in.StartTime.Present || in.EndTime.Present {
		checkRange(&v, "end_time", task.StartTime, task.EndTime)
	}
	if in.AllDay.Present {
		task.AllDay = in.AllDay.Value != nil && *in.AllDay.Value
		fields["all_day"] = task.AllDay
	}
	if in.IsCompleted.Present {
		task.IsCompleted = in.IsCompleted.Value != nil && *in.IsCompleted.Value
		fields["is_completed"] = task.IsCompleted
	}
	setString := func(o Optional[string], column string, dst **string) {
		if !o.Present {
			return
		}
		if o.Value != nil && column != "notes" {
			v.field(column, *o.Value, shortRule)
		}
		*dst = o.Value
		fields[column] = nullable(o.Value)
	}
	setString(in.TimeOfDay, "time_of_day", &task.TimeOfDay)
	setString(in.Color, "color", &task.Color)
	setString(in.Icon, "icon", &task.Icon)
	setString(in.Notes, "notes", &task.Notes)

	if in.Priority.Present {
		if in.Priority.Value != nil {
			v.field("priority", *in.Priority.Value, priorityRule)
		}
		task.Priority = parsePriority(in.Priority.Value)
		fields["priority"] = nullable(task.Priority)
	}

	pattern := recurrence.None
	if in.RecurrencePattern.Present {
		if in.RecurrencePattern.Value != nil {
			v.field("recurrence_pattern", *in.RecurrencePattern.Value, patternRule)
		}
		pattern = parsePattern(in.RecurrencePattern.Value)
		task.RecurrencePattern = storedPattern(pattern)
		fields["recurrence_pattern"] = nullable(task.RecurrencePattern)
	}
	if in.ChecklistItems.Present && in.ChecklistItems.Value != nil {
		for i, item := range *in.ChecklistItems.Value {
			v.inputAt("checklist_items."+strconv.Itoa(i)+".", item)
		}
	}

	if err := v.err(); err != nil {
		return nil, recurrence.None, err
	}
	return fields, pattern, nil
}

// checkRange enforces that a task ends strictly after it starts. Either bound may be absent.
func checkRange(v *validator, field string, start, end *time.Time) {
	if start != nil && end != nil {
		v.check(end.After(*start), field, "The end time must be a date after start time.")
	}
}

// parsePriority maps an already validated priority; empty means unset.
func parsePriority(raw *string) *models.Priority {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	p := models.Priority(strings.TrimSpace(*raw))
	return &p
}

func parsePattern(raw *string) recurrence.Pattern {
	if raw == nil {
		return recurrence.None
	}
	p, err := recurrence.ParsePattern(*raw)
	if err != nil {
		return recurrence.None
	}
	return p
}

// storedPattern maps None to NULL so that "none" never reaches the database.
func storedPattern(p recurrence.Pattern) *recurrence.Pattern {
	if p == recurrence.None {
		return nil
	}
	return &p
}

// cloneChecklist copies titles only; every clone starts unchecked.
func cloneChecklist(items []ChecklistItemInput) []models.ChecklistItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]models.ChecklistItem, len(items))
	for i, item := range items {
		out[i] = models.ChecklistItem{Title: strings.TrimSpace(item.Title), Position: i}
	}
	return out
}

func checklistFromInput(taskID uuid.UUID, items []ChecklistItemInput) []models.ChecklistItem {
	out := make([]models.ChecklistItem, len(items))
	for i, item := range items {
		out[i] = models.ChecklistItem{
			TaskID:      taskID,
			Title:       strings.TrimSpace(item.Title),
			IsCompleted: item.IsCompleted,
			Position:    i,
		}
	}
	return out
}

func stringOr(s *string, fallback string) *string {
	if s != nil && *s != "" {
		return s
	}
	return &fallback
}

// nullable turns a typed nil pointer into an untyped nil so gorm writes NULL.
func nullable[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
