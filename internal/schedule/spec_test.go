package schedule

import (
	"errors"
	"testing"
	"time"
)

func TestParseFrequency(t *testing.T) {
	tests := []struct {
		in      string
		want    Frequency
		wantErr bool
	}{
		{"DAILY", Daily, false},
		{"weekly", Weekly, false},
		{" Monthly ", Monthly, false},
		{"ONCE", Once, false},
		{"NONE", None, false},
		{"", None, false},
		{"HOURLY", None, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFrequency(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFrequency(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFrequency(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	spec, err := Parse("WEEKLY", "09:00", "mon, fri", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.Frequency != Weekly || spec.TimeOfDay != "09:00" {
		t.Errorf("spec = %+v", spec)
	}
	if len(spec.Weekdays) != 2 || spec.Weekdays[0] != "MON" || spec.Weekdays[1] != "FRI" {
		t.Errorf("Weekdays = %v, want [MON FRI]", spec.Weekdays)
	}
}

func TestParseMonthly(t *testing.T) {
	spec, err := Parse("MONTHLY", "03:30", "", "1, 15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(spec.MonthDays) != 2 || spec.MonthDays[0] != 1 || spec.MonthDays[1] != 15 {
		t.Errorf("MonthDays = %v, want [1 15]", spec.MonthDays)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		wantErr bool
	}{
		{
			name:    "none needs nothing",
			spec:    Spec{Frequency: None},
			wantErr: false,
		},
		{
			name:    "daily with time",
			spec:    Spec{Frequency: Daily, TimeOfDay: "03:00"},
			wantErr: false,
		},
		{
			name:    "daily missing time",
			spec:    Spec{Frequency: Daily},
			wantErr: true,
		},
		{
			name:    "daily malformed time",
			spec:    Spec{Frequency: Daily, TimeOfDay: "25:99"},
			wantErr: true,
		},
		{
			name:    "weekly with days",
			spec:    Spec{Frequency: Weekly, TimeOfDay: "09:00", Weekdays: []string{"MON", "FRI"}},
			wantErr: false,
		},
		{
			name:    "weekly without days",
			spec:    Spec{Frequency: Weekly, TimeOfDay: "09:00"},
			wantErr: true,
		},
		{
			name:    "weekly bad day code",
			spec:    Spec{Frequency: Weekly, TimeOfDay: "09:00", Weekdays: []string{"FUNDAY"}},
			wantErr: true,
		},
		{
			name:    "monthly with dates",
			spec:    Spec{Frequency: Monthly, TimeOfDay: "02:00", MonthDays: []int{1, 15}},
			wantErr: false,
		},
		{
			name:    "monthly without dates",
			spec:    Spec{Frequency: Monthly, TimeOfDay: "02:00"},
			wantErr: true,
		},
		{
			name:    "monthly date out of range",
			spec:    Spec{Frequency: Monthly, TimeOfDay: "02:00", MonthDays: []int{32}},
			wantErr: true,
		},
		{
			name:    "once with time",
			spec:    Spec{Frequency: Once, TimeOfDay: "18:45"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCronExpr(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		want string
	}{
		{
			name: "daily",
			spec: Spec{Frequency: Daily, TimeOfDay: "03:00"},
			want: "0 3 * * *",
		},
		{
			name: "weekly",
			spec: Spec{Frequency: Weekly, TimeOfDay: "09:30", Weekdays: []string{"MON", "FRI"}},
			want: "30 9 * * MON,FRI",
		},
		{
			name: "monthly",
			spec: Spec{Frequency: Monthly, TimeOfDay: "00:15", MonthDays: []int{1, 15}},
			want: "15 0 1,15 * *",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.spec.CronExpr()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CronExpr() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCronExprNotRecurring(t *testing.T) {
	for _, spec := range []Spec{
		{Frequency: Once, TimeOfDay: "09:00"},
		{Frequency: None},
	} {
		if _, err := spec.CronExpr(); !errors.Is(err, ErrNotRecurring) {
			t.Errorf("CronExpr(%s) error = %v, want ErrNotRecurring", spec.Frequency, err)
		}
	}
}

func TestNext(t *testing.T) {
	spec := Spec{Frequency: Daily, TimeOfDay: "03:00"}
	from := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	next, err := spec.Next(from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("Next() = %v, want %v", next, want)
	}
}
