package shell

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"lifebalance/internal/core"
)

// RecentLimit is how many entries the activity feed shows.
const RecentLimit = 5

// Activity is one line of the dashboard's recent activity feed.
type Activity struct {
	Kind  core.Kind
	Type  string
	Label string
	Title string
	At    time.Time
}

// Overview holds the dashboard figures, all derived from the collections.
type Overview struct {
	User              *core.User
	Month             string
	MonthSpending     decimal.Decimal
	Balance           decimal.Decimal
	Meditations       int
	MinutesMeditated  int
	AverageMood       float64
	AverageProgress   int
	FinancialCount    int
	ProfessionalCount int
	WellnessCount     int
	InProgress        []core.ProfessionalRecord
	Recent            []Activity
}

// Overview computes the dashboard for the month containing now.
func (w *Workspace) Overview(now time.Time) Overview {
	fin := w.Financial.Records()
	prof := w.Professional.Records()
	well := w.Wellness.Records()

	month := now.Format("2006-01")
	fs := core.SummarizeFinancial(fin)
	ps := core.SummarizeProfessional(prof)
	ws := core.SummarizeWellness(well)

	o := Overview{
		User:              w.Session.User(),
		Month:             month,
		MonthSpending:     core.MonthSpending(fin, month),
		Balance:           fs.Balance,
		Meditations:       ws.Meditations,
		MinutesMeditated:  ws.MinutesMeditated,
		AverageMood:       ws.AverageMood,
		AverageProgress:   ps.AverageProgress,
		FinancialCount:    len(fin),
		ProfessionalCount: len(prof),
		WellnessCount:     len(well),
		Recent:            RecentActivity(fin, prof, well, RecentLimit),
	}
	for _, p := range prof {
		if p.Progress < core.MaxProgress {
			o.InProgress = append(o.InProgress, p)
		}
		if len(o.InProgress) == 4 {
			break
		}
	}
	return o
}

// RecentActivity merges the three collections newest first and keeps the
// first limit entries. Records with equal timestamps keep collection order.
func RecentActivity(fin []core.FinancialRecord, prof []core.ProfessionalRecord, well []core.WellnessRecord, limit int) []Activity {
	all := make([]Activity, 0, len(fin)+len(prof)+len(well))
	for _, r := range fin {
		all = append(all, activityOf(r, r.Type.Label()))
	}
	for _, r := range prof {
		all = append(all, activityOf(r, r.Type.Label()))
	}
	for _, r := range well {
		all = append(all, activityOf(r, r.Type.Label()))
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].At.After(all[j].At) })
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

func activityOf(r core.Record, label string) Activity {
	return Activity{
		Kind:  r.RecordKind(),
		Type:  r.RecordType(),
		Label: label,
		Title: r.Headline(),
		At:    r.Timestamp(),
	}
}
