// SPDX-FileCopyrightText: 2025 FinOps Cloud
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/finopscloud/sla-engine/pkg/config"
	"github.com/finopscloud/sla-engine/pkg/task"
)

// MongoStore is the MongoDB-backed TaskStore. Tasks live in a single
// collection with embedded subtask documents; overdue reasons are written
// to a separate side-record collection.
type MongoStore struct {
	client  *mongo.Client
	tasks   *mongo.Collection
	reasons *mongo.Collection
	log     *zap.SugaredLogger
}

// NewMongoStore connects to MongoDB and verifies the connection with a
// ping before returning.
func NewMongoStore(cfg config.MongoDB, log *zap.SugaredLogger) (*MongoStore, error) {
	connectTimeout := 10 * time.Second
	if cfg.ConnectTimeout != "" {
		if d, err := time.ParseDuration(cfg.ConnectTimeout); err == nil && d > 0 {
			connectTimeout = d
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(cfg.Database)
	log.Infow("Connected to MongoDB task store",
		"database", cfg.Database,
		"collection", cfg.Collection)

	return &MongoStore{
		client:  client,
		tasks:   db.Collection(cfg.Collection),
		reasons: db.Collection(cfg.ReasonsCollection),
		log:     log.Named("mongo-store"),
	}, nil
}

// taskDoc is the wire shape of a task document. Statuses arrive as raw
// strings and are coerced through ParseStatus before the record leaves
// this package.
type taskDoc struct {
	ID                 string           `bson:"_id"`
	Name               string           `bson:"name"`
	Client             string           `bson:"client"`
	Assignees          []task.PersonRef `bson:"assignees,omitempty"`
	ReportingManagers  []task.PersonRef `bson:"reportingManagers,omitempty"`
	EscalationManagers []task.PersonRef `bson:"escalationManagers,omitempty"`
	Recurrence         recurrenceDoc    `bson:"recurrence"`
	Active             bool             `bson:"active"`
	Status             string           `bson:"status"`
	Subtasks           []subtaskDoc     `bson:"subtasks,omitempty"`
}

type recurrenceDoc struct {
	Kind          string    `bson:"kind"`
	Weekdays      []int     `bson:"weekdays,omitempty"`
	EffectiveFrom time.Time `bson:"effectiveFrom"`
}

type subtaskDoc struct {
	ID          string     `bson:"id"`
	Name        string     `bson:"name"`
	Position    int        `bson:"position"`
	StartTime   string     `bson:"startTime,omitempty"`
	Status      string     `bson:"status"`
	StartedAt   *time.Time `bson:"startedAt,omitempty"`
	CompletedAt *time.Time `bson:"completedAt,omitempty"`
	DelayReason string     `bson:"delayReason,omitempty"`
	DelayNotes  string     `bson:"delayNotes,omitempty"`
}

func (d taskDoc) toTask(log *zap.SugaredLogger) (task.Task, error) {
	status, err := task.ParseStatus(d.Status)
	if err != nil {
		return task.Task{}, fmt.Errorf("task %s: %w", d.ID, err)
	}

	weekdays := make([]time.Weekday, 0, len(d.Recurrence.Weekdays))
	for _, wd := range d.Recurrence.Weekdays {
		if wd < 0 || wd > 6 {
			log.Warnw("Dropping out-of-range weekday from recurrence", "task", d.ID, "weekday", wd)
			continue
		}
		weekdays = append(weekdays, time.Weekday(wd))
	}

	t := task.Task{
		ID:                 d.ID,
		Name:               d.Name,
		Client:             d.Client,
		Assignees:          d.Assignees,
		ReportingManagers:  d.ReportingManagers,
		EscalationManagers: d.EscalationManagers,
		Recurrence: task.Recurrence{
			Kind:          task.RecurrenceKind(d.Recurrence.Kind),
			Weekdays:      weekdays,
			EffectiveFrom: d.Recurrence.EffectiveFrom,
		},
		Active:   d.Active,
		Status:   status,
		Subtasks: make([]task.Subtask, 0, len(d.Subtasks)),
	}

	for _, sd := range d.Subtasks {
		sStatus, err := task.ParseStatus(sd.Status)
		if err != nil {
			return task.Task{}, fmt.Errorf("task %s subtask %s: %w", d.ID, sd.ID, err)
		}
		t.Subtasks = append(t.Subtasks, task.Subtask{
			ID:          sd.ID,
			Name:        sd.Name,
			Position:    sd.Position,
			StartTime:   sd.StartTime,
			Status:      sStatus,
			StartedAt:   sd.StartedAt,
			CompletedAt: sd.CompletedAt,
			DelayReason: task.DelayReason(sd.DelayReason),
			DelayNotes:  sd.DelayNotes,
		})
	}
	return t, nil
}

// FetchTasks returns all active tasks. Records that fail status coercion
// are skipped and logged rather than propagated into the state machine.
func (s *MongoStore) FetchTasks(ctx context.Context, _ time.Time) ([]task.Task, error) {
	cursor, err := s.tasks.Find(ctx, bson.M{"active": true},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var out []task.Task
	for cursor.Next(ctx) {
		var doc taskDoc
		if err := cursor.Decode(&doc); err != nil {
			s.log.Warnw("Skipping undecodable task document", "error", err)
			continue
		}
		t, err := doc.toTask(s.log)
		if err != nil {
			s.log.Warnw("Skipping task with unknown status", "error", err)
			continue
		}
		out = append(out, t)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error while fetching tasks: %w", err)
	}
	return out, nil
}

// GetTask returns a single task by ID.
func (s *MongoStore) GetTask(ctx context.Context, taskID string) (*task.Task, error) {
	var doc taskDoc
	if err := s.tasks.FindOne(ctx, bson.M{"_id": taskID}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("task %s: %w", taskID, ErrTaskNotFound)
		}
		return nil, fmt.Errorf("failed to get task %s: %w", taskID, err)
	}
	t, err := doc.toTask(s.log)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateSubtaskStatus applies a subtask status change plus the recomputed
// aggregate task status in a single update using an array filter.
func (s *MongoStore) UpdateSubtaskStatus(ctx context.Context, taskID, subtaskID string, update StatusUpdate) error {
	set := bson.M{
		"subtasks.$[st].status": string(update.Status),
		"status":                string(update.TaskStatus),
	}
	unset := bson.M{}

	if update.StartedAt != nil {
		set["subtasks.$[st].startedAt"] = *update.StartedAt
	}
	if update.CompletedAt != nil {
		set["subtasks.$[st].completedAt"] = *update.CompletedAt
	}
	if update.Status == task.StatusDelayed {
		set["subtasks.$[st].delayReason"] = string(update.DelayReason)
		set["subtasks.$[st].delayNotes"] = update.DelayNotes
	} else {
		unset["subtasks.$[st].delayReason"] = ""
		unset["subtasks.$[st].delayNotes"] = ""
	}

	updateDoc := bson.M{"$set": set}
	if len(unset) > 0 {
		updateDoc["$unset"] = unset
	}

	res, err := s.tasks.UpdateOne(ctx,
		bson.M{"_id": taskID},
		updateDoc,
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"st.id": subtaskID}},
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to update subtask %s/%s: %w", taskID, subtaskID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("task %s: %w", taskID, ErrTaskNotFound)
	}
	return nil
}

// RecordOverdueReason inserts an overdue-reason side record.
func (s *MongoStore) RecordOverdueReason(ctx context.Context, rec task.OverdueRecord) error {
	if _, err := s.reasons.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to record overdue reason for %s/%s: %w", rec.TaskID, rec.SubtaskID, err)
	}
	return nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
