package domain

import (
	"errors"
	"fmt"
	"strings"
)

// MealType is the meal category.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Snack     MealType = "snack"
)

// MealTypes lists the categories in display order.
var MealTypes = []MealType{Breakfast, Lunch, Dinner, Snack}

// ParseMealType accepts a category name in any case.
func ParseMealType(s string) (MealType, error) {
	t := MealType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range MealTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("meal_type: %q is not one of breakfast, lunch, dinner, snack", s)
}

// MealLog is a single meal as stored by the backend.
type MealLog struct {
	ID           string   `json:"id"`
	UserID       string   `json:"user_id"`
	LogDate      LogDate  `json:"log_date"`
	MealType     MealType `json:"meal_type"`
	MealName     string   `json:"meal_name"`
	Calories     *float64 `json:"calories"`
	ProteinGrams *float64 `json:"protein_grams"`
	CarbsGrams   *float64 `json:"carbs_grams"`
	FatGrams     *float64 `json:"fat_grams"`
	Notes        *string  `json:"notes"`
}

func (m MealLog) RecordID() string { return m.ID }
func (m MealLog) OwnerID() string  { return m.UserID }
func (m MealLog) Day() LogDate     { return m.LogDate }

// MealLogDraft is the create payload for a meal.
type MealLogDraft struct {
	UserID       string   `json:"user_id"`
	LogDate      LogDate  `json:"log_date"`
	MealType     MealType `json:"meal_type"`
	MealName     string   `json:"meal_name"`
	Calories     *float64 `json:"calories"`
	ProteinGrams *float64 `json:"protein_grams"`
	CarbsGrams   *float64 `json:"carbs_grams"`
	FatGrams     *float64 `json:"fat_grams"`
	Notes        *string  `json:"notes"`
}

// Owned implements Draft.
func (d MealLogDraft) Owned(userID string, date LogDate) MealLogDraft {
	d.UserID = userID
	d.LogDate = date
	return d
}

// MealLogForm holds the raw text of the meal form.
type MealLogForm struct {
	MealType string
	MealName string
	Calories string
	Protein  string
	Carbs    string
	Fat      string
	Notes    string
}

// Draft coerces the form into a draft. Meal type and name are required;
// macro values are passed through unchecked.
func (f MealLogForm) Draft() (MealLogDraft, error) {
	var (
		d    MealLogDraft
		errs []error
		err  error
	)
	if strings.TrimSpace(f.MealType) == "" {
		errs = append(errs, errors.New("meal_type is required"))
	} else if d.MealType, err = ParseMealType(f.MealType); err != nil {
		errs = append(errs, err)
	}
	d.MealName = strings.TrimSpace(f.MealName)
	if d.MealName == "" {
		errs = append(errs, errors.New("meal_name is required"))
	}
	if d.Calories, err = OptionalFloat("calories", f.Calories); err != nil {
		errs = append(errs, err)
	}
	if d.ProteinGrams, err = OptionalFloat("protein_grams", f.Protein); err != nil {
		errs = append(errs, err)
	}
	if d.CarbsGrams, err = OptionalFloat("carbs_grams", f.Carbs); err != nil {
		errs = append(errs, err)
	}
	if d.FatGrams, err = OptionalFloat("fat_grams", f.Fat); err != nil {
		errs = append(errs, err)
	}
	d.Notes = OptionalText(f.Notes)
	return d, errors.Join(errs...)
}
