package logger_wrapper

import "time"

type LogEntry struct {
	Msg       string
	Args      any
	State     string
	Error     error
	Component string
	Method    string
	Start     *time.Time
}
