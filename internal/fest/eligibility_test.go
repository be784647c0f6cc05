package fest

import (
	"context"
	"errors"
	"testing"

	"github.com/incridea-nmamit/incridea-server/internal/models"
)

type fakeRegistrations struct {
	core int
	err  error
}

func (f fakeRegistrations) CoreEventsOf(context.Context, int64) (int, error) {
	return f.core, f.err
}

func TestCanRegister(t *testing.T) {
	tests := []struct {
		name     string
		core     int
		college  models.CollegeType
		category models.EventCategory
		want     bool
	}{
		{name: "non core always", core: 3, college: models.CollegeOther, category: models.CategoryTechnical, want: true},
		{name: "special always", core: 1, college: models.CollegeOther, category: models.CategorySpecial, want: true},
		{name: "first core", core: 0, college: models.CollegeOther, category: models.CategoryCore, want: true},
		{name: "second core other college", core: 1, college: models.CollegeOther, category: models.CategoryCore, want: false},
		{name: "second core engineering", core: 1, college: models.CollegeEngineering, category: models.CategoryCore, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanRegister(context.Background(), fakeRegistrations{core: tt.core}, 1, tt.college, tt.category)
			if err != nil {
				t.Fatalf("can register: %v", err)
			}
			if got != tt.want {
				t.Fatalf("CanRegister = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanRegisterSkipsLookupOutsideCore(t *testing.T) {
	boom := errors.New("boom")
	ok, err := CanRegister(context.Background(), fakeRegistrations{err: boom}, 1, models.CollegeOther, models.CategoryNonTechnical)
	if err != nil || !ok {
		t.Fatalf("CanRegister = %v, %v; want true, nil", ok, err)
	}
	if _, err := CanRegister(context.Background(), fakeRegistrations{err: boom}, 1, models.CollegeOther, models.CategoryCore); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestCheckEligibleExemptsEngineering(t *testing.T) {
	u := models.User{ID: 1, CollegeType: models.CollegeEngineering}
	ev := models.Event{Category: models.CategoryCore}
	if err := checkEligible(context.Background(), fakeRegistrations{err: errors.New("not consulted")}, u, ev); err != nil {
		t.Fatalf("check eligible: %v", err)
	}
	u.CollegeType = models.CollegeOther
	err := checkEligible(context.Background(), fakeRegistrations{core: 1}, u, ev)
	wantMessage(t, err, KindInvariantViolation, "Not eligible to register")
}
