package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"healthmate/internal/adapter/recordapi"
	"healthmate/internal/app"
	"healthmate/internal/domain"
)

// field is one form input of a record type.
type field struct {
	key   string
	flag  string
	usage string
}

// recordKind describes how the CLI reads and prints one record type.
type recordKind[R domain.Record, D domain.Draft[D]] struct {
	use      string
	noun     string
	short    string
	resource func(*recordapi.Client) *recordapi.Resource[R, D]
	fields   []field
	draft    func(values map[string]string) (D, error)
	header   []string
	row      func(R) []string
	// listAll is false when the backend has no /all listing for the type.
	listAll  bool
}

var healthKind = recordKind[domain.HealthLog, domain.HealthLogDraft]{
	use:      "health",
	noun:     "health log",
	short:    "Daily health metrics: sleep, water, steps, mood and weight",
	resource: (*recordapi.Client).HealthLogs,
	listAll:  true,
	fields: []field{
		{"sleep_hours", "sleep", "Hours slept"},
		{"water_glasses", "water", "Glasses of water"},
		{"steps", "steps", "Steps walked"},
		{"mood_score", "mood", "Mood score"},
		{"weight", "weight", "Body weight"},
		{"notes", "notes", "Free text notes"},
	},
	draft: func(v map[string]string) (domain.HealthLogDraft, error) {
		return domain.HealthLogForm{
			SleepHours:   v["sleep_hours"],
			WaterGlasses: v["water_glasses"],
			Steps:        v["steps"],
			MoodScore:    v["mood_score"],
			Weight:       v["weight"],
			Notes:        v["notes"],
		}.Draft()
	},
	header: []string{"DATE", "SLEEP", "WATER", "STEPS", "MOOD", "WEIGHT", "NOTES"},
	row: func(h domain.HealthLog) []string {
		return []string{h.LogDate.String(), float(h.SleepHours), integer(h.WaterGlasses), integer(h.Steps), integer(h.MoodScore), float(h.Weight), text(h.Notes)}
	},
}

var mealKind = recordKind[domain.MealLog, domain.MealLogDraft]{
	use:      "meals",
	noun:     "meal log",
	short:    "Meals with calories and macros",
	resource: (*recordapi.Client).MealLogs,
	fields: []field{
		{"meal_type", "type", "Meal type: breakfast, lunch, dinner or snack"},
		{"meal_name", "name", "What was eaten"},
		{"calories", "calories", "Calories"},
		{"protein_grams", "protein", "Protein in grams"},
		{"carbs_grams", "carbs", "Carbohydrates in grams"},
		{"fat_grams", "fat", "Fat in grams"},
		{"notes", "notes", "Free text notes"},
	},
	draft: func(v map[string]string) (domain.MealLogDraft, error) {
		return domain.MealLogForm{
			MealType: v["meal_type"],
			MealName: v["meal_name"],
			Calories: v["calories"],
			Protein:  v["protein_grams"],
			Carbs:    v["carbs_grams"],
			Fat:      v["fat_grams"],
			Notes:    v["notes"],
		}.Draft()
	},
	header: []string{"DATE", "TYPE", "NAME", "KCAL", "PROTEIN", "CARBS", "FAT", "NOTES"},
	row: func(m domain.MealLog) []string {
		return []string{m.LogDate.String(), string(m.MealType), m.MealName, float(m.Calories), float(m.ProteinGrams), float(m.CarbsGrams), float(m.FatGrams), text(m.Notes)}
	},
}

// lookup maps a flag name or a form key to the form key.
func (k recordKind[R, D]) lookup(name string) (string, bool) {
	for _, f := range k.fields {
		if name == f.key || name == f.flag {
			return f.key, true
		}
	}
	return "", false
}

func (k recordKind[R, D]) keys() string {
	names := make([]string, len(k.fields))
	for i, f := range k.fields {
		names[i] = f.flag
	}
	return strings.Join(names, ", ")
}

func (k recordKind[R, D]) printTable(w io.Writer, records []R) error {
	if len(records) == 0 {
		_, err := fmt.Fprintf(w, "No %ss.\n", k.noun)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(k.header, "\t"))
	for _, r := range records {
		fmt.Fprintln(tw, strings.Join(k.row(r), "\t"))
	}
	return tw.Flush()
}

// printView prints the records of a page and the message of a failed load.
func (k recordKind[R, D]) printView(w io.Writer, v app.View[R]) error {
	if err := k.printTable(w, v.Records); err != nil {
		return err
	}
	if v.Status == app.StatusError && v.Message != "" {
		_, err := fmt.Fprintf(w, "Error: %s\n", v.Message)
		return err
	}
	return nil
}

func newRecordCmd[R domain.Record, D domain.Draft[D]](opts *options, kind recordKind[R, D]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   kind.use,
		Short: kind.short,
	}
	cmd.AddCommand(
		newListCmd(opts, kind),
		newAddCmd(opts, kind),
		newWindowCmd(opts, kind, "today", "List the backend's records for today", (*app.ListingService[R]).Today),
		newWindowCmd(opts, kind, "week", "List the records of the last seven days", (*app.ListingService[R]).Week),
		newShellCmd(opts, kind),
	)
	if kind.listAll {
		cmd.AddCommand(newWindowCmd(opts, kind, "all", "List every record", (*app.ListingService[R]).All))
	}
	return cmd
}

func dateFlag(cmd *cobra.Command, value *string) {
	cmd.Flags().StringVar(value, "date", "", "Log date YYYY-MM-DD (default today)")
}

func parseDateFlag(s string) (domain.LogDate, error) {
	if s == "" || s == "today" {
		return domain.Today(), nil
	}
	return domain.ParseLogDate(s)
}

func newSync[R domain.Record, D domain.Draft[D]](d *deps, kind recordKind[R, D], date domain.LogDate) *app.Synchronizer[R, D] {
	return app.NewSynchronizer[R, D](d.identity, kind.resource(d.records), app.SyncConfig{
		Date:          date,
		RedirectDelay: d.cfg.UI.RedirectDelay,
	})
}

func newListCmd[R domain.Record, D domain.Draft[D]](opts *options, kind recordKind[R, D]) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %ss for one date", kind.noun),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := parseDateFlag(date)
			if err != nil {
				return err
			}
			d, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()

			s := newSync(d, kind, day)
			if err := s.Activate(cmd.Context()); err != nil {
				return err
			}
			return kind.printTable(cmd.OutOrStdout(), s.View().Records)
		},
	}
	dateFlag(cmd, &date)
	return cmd
}

func newAddCmd[R domain.Record, D domain.Draft[D]](opts *options, kind recordKind[R, D]) *cobra.Command {
	var date string
	values := make(map[string]*string, len(kind.fields))
	cmd := &cobra.Command{
		Use:   "add",
		Short: fmt.Sprintf("Add a %s", kind.noun),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := parseDateFlag(date)
			if err != nil {
				return err
			}
			form := make(map[string]string, len(values))
			for key, v := range values {
				form[key] = *v
			}
			draft, err := kind.draft(form)
			if err != nil {
				return err
			}
			d, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()

			// A failed first load leaves the page usable; only a missing
			// session stops the submit.
			s := newSync(d, kind, day)
			if err := s.Activate(cmd.Context()); err != nil {
				var re *app.RedirectError
				if errors.As(err, &re) {
					return err
				}
			}
			created, err := s.Submit(cmd.Context(), draft)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Saved %s %s for %s.\n", kind.noun, created.RecordID(), created.Day())
			return kind.printView(out, s.View())
		},
	}
	dateFlag(cmd, &date)
	for _, f := range kind.fields {
		values[f.key] = cmd.Flags().String(f.flag, "", f.usage)
	}
	return cmd
}

func newWindowCmd[R domain.Record, D domain.Draft[D]](opts *options, kind recordKind[R, D], use, short string, window func(*app.ListingService[R], context.Context) ([]R, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()

			svc := app.NewListingService[R](d.identity, kind.resource(d.records), d.cfg.UI.RedirectDelay)
			records, err := window(svc, cmd.Context())
			if err != nil {
				return err
			}
			return kind.printTable(cmd.OutOrStdout(), records)
		},
	}
}

func float(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func integer(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func text(v *string) string {
	if v == nil {
		return "-"
	}
	return *v
}
