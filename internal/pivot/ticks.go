package pivot

// Tick pairs an axis index with its display label.
type Tick struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// Ticks is the derived, read-only tick view over a matrix's axes.
type Ticks struct {
	X []Tick `json:"x"`
	Y []Tick `json:"y"`
}

// hourTickStep spaces the hour-axis ticks at every 4th hour.
const hourTickStep = 4

// DeriveTicks computes axis ticks for a matrix: one x tick per column
// whose date is the first of a calendar month, labeled "Jan 2006", and y
// ticks at every 4th hour within the row range, labeled "HH:00".
// Deriving twice from the same matrix yields identical ticks.
func DeriveTicks(m *Matrix) Ticks {
	var t Ticks
	for i, d := range m.Dates {
		if d.Day() == 1 {
			t.X = append(t.X, Tick{Index: i, Label: d.Format("Jan 2006")})
		}
	}
	for h := 0; h < HoursPerDay; h += hourTickStep {
		t.Y = append(t.Y, Tick{Index: h, Label: HourLabel(h)})
	}
	return t
}
