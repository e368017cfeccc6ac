package telemetry

import (
	"sync"
)

// Report is a single call captured by RecorderAPI.
type Report struct {
	Level  string
	Id     string
	Params []any
}

// RecorderAPI keeps every report in memory so tests can assert on what a
// component logged.
type RecorderAPI struct {
	mutex   sync.Mutex
	reports []Report
}

func (r *RecorderAPI) add(level, id string, params []any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = append(r.reports, Report{Level: level, Id: id, Params: params})
}

func (r *RecorderAPI) ReportBroken(id string, params ...any) {
	r.add("broken", id, params)
}

func (r *RecorderAPI) ReportWarning(id string, params ...any) {
	r.add("warning", id, params)
}

func (r *RecorderAPI) ReportDebug(msg string, params ...any) {
	r.add("debug", msg, params)
}

func (r *RecorderAPI) ReportCount(id string, count int64) {
	r.add("count", id, []any{count})
}

// Reports returns a copy of the reports at the given level.
func (r *RecorderAPI) Reports(level string) []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var out []Report
	for _, report := range r.reports {
		if report.Level == level {
			out = append(out, report)
		}
	}
	return out
}
