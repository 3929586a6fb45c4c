package internal

import (
	"encoding/json"
	"time"
)

type User struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

type SleepLog struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	StartTime time.Time `json:"start_time" bson:"start_time"`
	EndTime   time.Time `json:"end_time" bson:"end_time"`
	Quality   int       `json:"quality" bson:"quality"` // 1–5 scale
	Notes     string    `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Duration is the length of the sleep in hours.
func (l SleepLog) Duration() float64 {
	return l.EndTime.Sub(l.StartTime).Hours()
}

func (l SleepLog) MarshalJSON() ([]byte, error) {
	type alias SleepLog
	return json.Marshal(struct {
		alias
		Duration float64 `json:"duration"`
	}{alias(l), l.Duration()})
}

type Productivity struct {
	ID                 string    `json:"id" bson:"_id"`
	UserID             string    `json:"user_id" bson:"user_id"`
	Date               time.Time `json:"date" bson:"date"`
	ProductivityRating int       `json:"productivity_rating" bson:"productivity_rating"` // 1–5
	TasksCompleted     int       `json:"tasks_completed" bson:"tasks_completed"`
	FocusQuality       int       `json:"focus_quality" bson:"focus_quality"` // 1–5
	EnergyLevel        int       `json:"energy_level" bson:"energy_level"`   // 1–5
	WorkHours          float64   `json:"work_hours" bson:"work_hours"`
	Notes              string    `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt          time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" bson:"updated_at"`
}

func (p Productivity) EfficiencyScore() float64 {
	if p.WorkHours == 0 {
		return 0
	}
	return float64(p.ProductivityRating*p.FocusQuality) / p.WorkHours * 10
}

func (p Productivity) PerformanceScore() float64 {
	return float64(p.ProductivityRating+p.FocusQuality+p.EnergyLevel) / 3
}

func (p Productivity) MarshalJSON() ([]byte, error) {
	type alias Productivity
	return json.Marshal(struct {
		alias
		EfficiencyScore  float64 `json:"efficiency_score"`
		PerformanceScore float64 `json:"performance_score"`
	}{alias(p), p.EfficiencyScore(), p.PerformanceScore()})
}

// StartOfDay truncates t to midnight UTC so one productivity entry maps to one day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
