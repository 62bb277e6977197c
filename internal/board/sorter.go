package board

import (
	"sort"
	"time"

	"github.com/famboard/famboard-api/internal/models"
)

// Bucket names the presentation group a message lands in.
type Bucket string

const (
	BucketUpcoming Bucket = "upcoming"
	BucketAllDay   Bucket = "all_day"
	BucketPassed   Bucket = "passed"
)

// View is the fully ordered board for one sort pass: the three buckets
// plus their concatenation in render order.
type View struct {
	Upcoming []models.Message `json:"upcoming"`
	AllDay   []models.Message `json:"all_day"`
	Passed   []models.Message `json:"passed"`
	Order    []models.Message `json:"order"`
	SortedAt time.Time        `json:"sorted_at"`
}

// Classify places a single message relative to now. A missing or
// unparseable display_time falls back to the all-day bucket rather than
// poisoning sort comparisons. A display_time equal to now is passed,
// not upcoming.
func Classify(msg models.Message, now time.Time) Bucket {
	if msg.DisplayTime == nil {
		return BucketAllDay
	}
	minutes, err := ParseTimeOfDay(*msg.DisplayTime)
	if err != nil {
		return BucketAllDay
	}
	if minutes > MinutesOfDay(now) {
		return BucketUpcoming
	}
	return BucketPassed
}

type sortable struct {
	msg     models.Message
	minutes int
}

// Sort partitions messages into upcoming, all-day and passed groups and
// orders each one for rendering:
//
//	upcoming: display_time asc, then priority desc
//	all-day:  priority desc, then created_at desc
//	passed:   display_time desc, then priority desc
//
// The function is pure; callers re-invoke it on a one-minute tick so
// messages migrate from upcoming to passed as now advances.
func Sort(messages []models.Message, now time.Time) View {
	view := View{
		Upcoming: make([]models.Message, 0),
		AllDay:   make([]models.Message, 0),
		Passed:   make([]models.Message, 0),
		SortedAt: now,
	}

	var upcoming, passed []sortable
	for _, msg := range messages {
		switch Classify(msg, now) {
		case BucketAllDay:
			view.AllDay = append(view.AllDay, msg)
		case BucketUpcoming:
			minutes, _ := ParseTimeOfDay(*msg.DisplayTime)
			upcoming = append(upcoming, sortable{msg: msg, minutes: minutes})
		case BucketPassed:
			minutes, _ := ParseTimeOfDay(*msg.DisplayTime)
			passed = append(passed, sortable{msg: msg, minutes: minutes})
		}
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		if upcoming[i].minutes != upcoming[j].minutes {
			return upcoming[i].minutes < upcoming[j].minutes
		}
		return upcoming[i].msg.Priority.Rank() > upcoming[j].msg.Priority.Rank()
	})

	sort.SliceStable(view.AllDay, func(i, j int) bool {
		a, b := view.AllDay[i], view.AllDay[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	sort.SliceStable(passed, func(i, j int) bool {
		if passed[i].minutes != passed[j].minutes {
			return passed[i].minutes > passed[j].minutes
		}
		return passed[i].msg.Priority.Rank() > passed[j].msg.Priority.Rank()
	})

	for _, s := range upcoming {
		view.Upcoming = append(view.Upcoming, s.msg)
	}
	for _, s := range passed {
		view.Passed = append(view.Passed, s.msg)
	}

	view.Order = make([]models.Message, 0, len(messages))
	view.Order = append(view.Order, view.Upcoming...)
	view.Order = append(view.Order, view.AllDay...)
	view.Order = append(view.Order, view.Passed...)

	return view
}
