package detect

import "time"

type timeLocation struct {
	loc *time.Location
}

// day 返回给定时区下的日历日期
func (l *timeLocation) day(t time.Time) string {
	return t.In(l.loc).Format("2006-01-02")
}
