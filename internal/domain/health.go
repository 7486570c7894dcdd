package domain

import "errors"

// HealthLog is one day's health metrics as stored by the backend.
type HealthLog struct {
	ID           string   `json:"id"`
	UserID       string   `json:"user_id"`
	LogDate      LogDate  `json:"log_date"`
	SleepHours   *float64 `json:"sleep_hours"`
	WaterGlasses *int     `json:"water_glasses"`
	Steps        *int     `json:"steps"`
	MoodScore    *int     `json:"mood_score"`
	Weight       *float64 `json:"weight"`
	Notes        *string  `json:"notes"`
}

func (h HealthLog) RecordID() string { return h.ID }
func (h HealthLog) OwnerID() string  { return h.UserID }
func (h HealthLog) Day() LogDate     { return h.LogDate }

// HealthLogDraft is the create payload for a health log. Every metric is
// optional; nil is sent as JSON null.
type HealthLogDraft struct {
	UserID       string   `json:"user_id"`
	LogDate      LogDate  `json:"log_date"`
	SleepHours   *float64 `json:"sleep_hours"`
	WaterGlasses *int     `json:"water_glasses"`
	Steps        *int     `json:"steps"`
	MoodScore    *int     `json:"mood_score"`
	Weight       *float64 `json:"weight"`
	Notes        *string  `json:"notes"`
}

// Owned implements Draft.
func (d HealthLogDraft) Owned(userID string, date LogDate) HealthLogDraft {
	d.UserID = userID
	d.LogDate = date
	return d
}

// HealthLogForm holds the raw text of the health log form.
type HealthLogForm struct {
	SleepHours   string
	WaterGlasses string
	Steps        string
	MoodScore    string
	Weight       string
	Notes        string
}

// Draft coerces the form into a draft. Ranges are not checked here; the
// backend decides what is acceptable.
func (f HealthLogForm) Draft() (HealthLogDraft, error) {
	var (
		d    HealthLogDraft
		errs []error
		err  error
	)
	if d.SleepHours, err = OptionalFloat("sleep_hours", f.SleepHours); err != nil {
		errs = append(errs, err)
	}
	if d.WaterGlasses, err = OptionalInt("water_glasses", f.WaterGlasses); err != nil {
		errs = append(errs, err)
	}
	if d.Steps, err = OptionalInt("steps", f.Steps); err != nil {
		errs = append(errs, err)
	}
	if d.MoodScore, err = OptionalInt("mood_score", f.MoodScore); err != nil {
		errs = append(errs, err)
	}
	if d.Weight, err = OptionalFloat("weight", f.Weight); err != nil {
		errs = append(errs, err)
	}
	d.Notes = OptionalText(f.Notes)
	return d, errors.Join(errs...)
}
